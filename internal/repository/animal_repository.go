package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/tenant"
)

type AnimalRepository struct {
	gateway *tenant.Gateway
}

func NewAnimalRepository(gateway *tenant.Gateway) *AnimalRepository {
	return &AnimalRepository{gateway: gateway}
}

func (r *AnimalRepository) Create(ctx context.Context, animal *model.Animal) error {
	return r.gateway.Create(ctx, animal)
}

func (r *AnimalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Animal, error) {
	db, err := r.gateway.Scoped(ctx, &model.Animal{})
	if err != nil {
		return nil, err
	}

	var animal model.Animal
	if err := db.Where("id = ?", id).First(&animal).Error; err != nil {
		return nil, err
	}
	return &animal, nil
}

func (r *AnimalRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.Animal, error) {
	db, err := r.gateway.Scoped(ctx, &model.Animal{})
	if err != nil {
		return nil, err
	}

	var animals []*model.Animal
	err = db.Where("client_id = ?", clientID).Order("name").Find(&animals).Error
	return animals, err
}

func (r *AnimalRepository) List(ctx context.Context, page, pageSize int) ([]*model.Animal, int64, error) {
	db, err := r.gateway.Scoped(ctx, &model.Animal{})
	if err != nil {
		return nil, 0, err
	}

	var total int64
	db.Count(&total)

	var animals []*model.Animal
	offset := (page - 1) * pageSize
	err = db.Order("name").Offset(offset).Limit(pageSize).Find(&animals).Error
	return animals, total, err
}

func (r *AnimalRepository) Update(ctx context.Context, animal *model.Animal) error {
	return r.gateway.Save(ctx, animal)
}

func (r *AnimalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.gateway.Delete(ctx, &model.Animal{}, id)
}

// Count 当前租户的宠物总数(套餐限额检查)
func (r *AnimalRepository) Count(ctx context.Context) (int64, error) {
	db, err := r.gateway.Scoped(ctx, &model.Animal{})
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.Count(&count).Error
	return count, err
}
