package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(event *model.AuditEvent) error {
	return r.db.Create(event).Error
}

func (r *AuditRepository) ListByTenant(tenantID uuid.UUID, page, pageSize int) ([]*model.AuditEvent, int64, error) {
	var events []*model.AuditEvent
	var total int64

	query := r.db.Model(&model.AuditEvent{}).Where("tenant_id = ?", tenantID)
	query.Count(&total)

	offset := (page - 1) * pageSize
	err := query.Order("timestamp DESC").Offset(offset).Limit(pageSize).Find(&events).Error
	return events, total, err
}
