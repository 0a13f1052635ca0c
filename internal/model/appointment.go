package model

import (
	"time"

	"github.com/google/uuid"
)

// Appointment 预约 - 同时引用宠物和服务项目
type Appointment struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID      uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	AnimalID      uuid.UUID `json:"animal_id" gorm:"type:uuid;not null;index"`
	ServiceItemID uuid.UUID `json:"service_item_id" gorm:"type:uuid;not null;index"`
	ScheduledAt   time.Time `json:"scheduled_at" gorm:"not null;index"`
	Status        string    `json:"status" gorm:"size:20;default:'scheduled';comment:'状态(scheduled/completed/cancelled)'"`
	Notes         string    `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// 预约状态常量
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

func (a *Appointment) GetTenantID() uuid.UUID   { return a.TenantID }
func (a *Appointment) SetTenantID(id uuid.UUID) { a.TenantID = id }

func (a *Appointment) References() []Reference {
	return []Reference{
		{Field: "animal_id", Table: "animals", ID: a.AnimalID},
		{Field: "service_item_id", Table: "service_items", ID: a.ServiceItemID},
	}
}
