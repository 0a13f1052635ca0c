package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TenantConfiguration 租户配置 - 共享库中按租户隔离的键值存储
// (tenant_id, key) 唯一
type TenantConfiguration struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_tenant_config_key"`
	Key        string    `json:"key" gorm:"size:100;not null;uniqueIndex:idx_tenant_config_key"`
	Value      string    `json:"value" gorm:"type:text"`
	ConfigType string    `json:"config_type" gorm:"size:20;default:'string';comment:'值类型(string/int/bool/json)'"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TenantConfiguration) TableName() string {
	return "tenant_configurations"
}

// ConfigType 配置值类型常量
const (
	ConfigTypeString = "string"
	ConfigTypeInt    = "int"
	ConfigTypeBool   = "bool"
	ConfigTypeJSON   = "json"
)

// TypedValue 按声明类型解析配置值, 解析失败时返回原始字符串
func (c *TenantConfiguration) TypedValue() interface{} {
	switch c.ConfigType {
	case ConfigTypeInt:
		if v, err := strconv.Atoi(c.Value); err == nil {
			return v
		}
	case ConfigTypeBool:
		if v, err := strconv.ParseBool(c.Value); err == nil {
			return v
		}
	case ConfigTypeJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(c.Value), &v); err == nil {
			return v
		}
	}
	return c.Value
}

// 预定义配置键
const (
	ConfigKeyBackupSchedule  = "backup_schedule"
	ConfigKeyBackupRetention = "backup_retention_days"
	ConfigKeyLastBackupAt    = "last_backup_at"
)
