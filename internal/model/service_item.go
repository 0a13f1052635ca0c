package model

import (
	"time"

	"github.com/google/uuid"
)

// ServiceItem 服务项目(洗澡/美容/诊疗等)
type ServiceItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Price       float64   `json:"price" gorm:"not null;default:0"`
	DurationMin int       `json:"duration_min" gorm:"default:30;comment:'时长(分钟)'"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ServiceItem) TableName() string {
	return "service_items"
}

func (s *ServiceItem) GetTenantID() uuid.UUID   { return s.TenantID }
func (s *ServiceItem) SetTenantID(id uuid.UUID) { s.TenantID = id }
