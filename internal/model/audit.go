package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent 审计事件 - 记录在共享库, 标注发生操作的租户
type AuditEvent struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   uuid.UUID `json:"tenant_id" gorm:"type:uuid;index"`
	EventType  string    `json:"event_type" gorm:"size:50;not null"`
	Action     string    `json:"action" gorm:"size:100;not null"`
	Resource   string    `json:"resource" gorm:"size:100;not null"`
	ResourceID string    `json:"resource_id" gorm:"size:255"`
	User       string    `json:"user" gorm:"size:100;not null"`
	Details    JSONMap   `json:"details" gorm:"type:jsonb"`
	Result     string    `json:"result" gorm:"size:20;default:'success'"`
	ErrorMsg   string    `json:"error_msg" gorm:"type:text"`
	Timestamp  time.Time `json:"timestamp" gorm:"autoCreateTime;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
