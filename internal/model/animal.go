package model

import (
	"time"

	"github.com/google/uuid"
)

// Animal 宠物 - 归属于同租户的客户
type Animal struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	ClientID  uuid.UUID  `json:"client_id" gorm:"type:uuid;not null;index"`
	Name      string     `json:"name" gorm:"size:255;not null"`
	Species   string     `json:"species" gorm:"size:50;not null;comment:'物种(dog/cat/bird/...)'"`
	Breed     string     `json:"breed" gorm:"size:100"`
	BirthDate *time.Time `json:"birth_date"`
	Weight    float64    `json:"weight" gorm:"default:0"`
	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Animal) TableName() string {
	return "animals"
}

func (a *Animal) GetTenantID() uuid.UUID   { return a.TenantID }
func (a *Animal) SetTenantID(id uuid.UUID) { a.TenantID = id }

// References 动物引用客户, 归属租户必须一致
func (a *Animal) References() []Reference {
	return []Reference{
		{Field: "client_id", Table: "clients", ID: a.ClientID},
	}
}
