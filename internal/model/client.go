package model

import (
	"time"

	"github.com/google/uuid"
)

// Client 客户 - 租户所属业务实体
// 邮箱在租户内唯一
type Client struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_clients_tenant_email"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Email     string    `json:"email" gorm:"size:255;not null;uniqueIndex:idx_clients_tenant_email"`
	Phone     string    `json:"phone" gorm:"size:30"`
	Address   string    `json:"address" gorm:"type:text"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Client) TableName() string {
	return "clients"
}

func (c *Client) GetTenantID() uuid.UUID   { return c.TenantID }
func (c *Client) SetTenantID(id uuid.UUID) { c.TenantID = id }
