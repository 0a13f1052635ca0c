package model

import (
	"time"

	"github.com/google/uuid"
)

// TenantUser 租户用户 - 归属于单一租户的身份
// 邮箱在租户内唯一, 跨租户可重复
type TenantUser struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_tenant_user_email"`
	Email        string     `json:"email" gorm:"size:255;not null;uniqueIndex:idx_tenant_user_email"`
	Name         string     `json:"name" gorm:"size:255"`
	Role         string     `json:"role" gorm:"size:20;default:'user';comment:'角色(admin/user)'"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TenantUser) TableName() string {
	return "tenant_users"
}

// 用户角色常量
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
