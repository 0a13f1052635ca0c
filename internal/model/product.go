package model

import (
	"time"

	"github.com/google/uuid"
)

// Product 商品 - SKU在租户内唯一
type Product struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_products_tenant_sku"`
	SKU       string    `json:"sku" gorm:"size:50;not null;uniqueIndex:idx_products_tenant_sku"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Category  string    `json:"category" gorm:"size:100"`
	Price     float64   `json:"price" gorm:"not null;default:0"`
	Stock     int       `json:"stock" gorm:"default:0"`
	MinStock  int       `json:"min_stock" gorm:"default:0"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) GetTenantID() uuid.UUID   { return p.TenantID }
func (p *Product) SetTenantID(id uuid.UUID) { p.TenantID = id }
