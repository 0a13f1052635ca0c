package model

import (
	"time"

	"github.com/google/uuid"
)

// Sale 销售单 - 引用客户, 明细以jsonb行项存储
type Sale struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	ClientID  uuid.UUID `json:"client_id" gorm:"type:uuid;not null;index"`
	Items     JSONMap   `json:"items" gorm:"type:jsonb;default:'{}';comment:'行项(product_id->{qty,price})'"`
	Total     float64   `json:"total" gorm:"not null;default:0"`
	PaidWith  string    `json:"paid_with" gorm:"size:20;default:'cash'"`
	SoldAt    time.Time `json:"sold_at" gorm:"autoCreateTime;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Sale) TableName() string {
	return "sales"
}

func (s *Sale) GetTenantID() uuid.UUID   { return s.TenantID }
func (s *Sale) SetTenantID(id uuid.UUID) { s.TenantID = id }

func (s *Sale) References() []Reference {
	return []Reference{
		{Field: "client_id", Table: "clients", ID: s.ClientID},
	}
}
