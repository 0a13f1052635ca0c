package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant 租户 - 共享库注册表, 所有其他实体的归属单位
type Tenant struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name       string    `json:"name" gorm:"not null;size:255;comment:'租户名称'"`
	Subdomain  string    `json:"subdomain" gorm:"uniqueIndex;not null;size:63;comment:'子域名(小写,DNS安全)'"`
	SchemaName string    `json:"schema_name" gorm:"uniqueIndex;not null;size:63;comment:'物理schema名称,创建后不可变'"`
	IsActive   bool      `json:"is_active" gorm:"default:false;comment:'是否激活(开通未完成的租户不可路由)'"`
	PlanType   string    `json:"plan_type" gorm:"size:20;default:'basic';comment:'套餐类型(basic/standard/premium)'"`
	MaxUsers   int       `json:"max_users" gorm:"default:5"`
	MaxAnimals int       `json:"max_animals" gorm:"default:500"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) BeforeCreate() error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// PlanType 套餐类型常量
const (
	PlanTypeBasic    = "basic"
	PlanTypeStandard = "standard"
	PlanTypePremium  = "premium"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidSubdomain 校验子域名是否符合DNS规范(小写字母/数字/中划线)
func ValidSubdomain(subdomain string) bool {
	return subdomainPattern.MatchString(subdomain)
}

// DeriveSchemaName 根据子域名推导schema名称
// schema名称一经创建不可变更, 即使租户被删除也不会复用
func DeriveSchemaName(subdomain string) string {
	return "tenant_" + strings.ReplaceAll(subdomain, "-", "_")
}
