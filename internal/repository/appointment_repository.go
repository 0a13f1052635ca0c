package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/tenant"
)

type AppointmentRepository struct {
	gateway *tenant.Gateway
}

func NewAppointmentRepository(gateway *tenant.Gateway) *AppointmentRepository {
	return &AppointmentRepository{gateway: gateway}
}

func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	return r.gateway.Create(ctx, appt)
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	db, err := r.gateway.Scoped(ctx, &model.Appointment{})
	if err != nil {
		return nil, err
	}

	var appt model.Appointment
	if err := db.Where("id = ?", id).First(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListBetween 给定时间窗内的预约
func (r *AppointmentRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	db, err := r.gateway.Scoped(ctx, &model.Appointment{})
	if err != nil {
		return nil, err
	}

	var appts []*model.Appointment
	err = db.Where("scheduled_at >= ? AND scheduled_at < ?", from, to).
		Order("scheduled_at").Find(&appts).Error
	return appts, err
}

func (r *AppointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	return r.gateway.Save(ctx, appt)
}

func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.gateway.Delete(ctx, &model.Appointment{}, id)
}
