package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/tenant"
)

// ClientRepository 客户仓库 - 所有读写都经过租户作用域网关
type ClientRepository struct {
	gateway *tenant.Gateway
}

func NewClientRepository(gateway *tenant.Gateway) *ClientRepository {
	return &ClientRepository{gateway: gateway}
}

func (r *ClientRepository) Create(ctx context.Context, client *model.Client) error {
	return r.gateway.Create(ctx, client)
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	db, err := r.gateway.Scoped(ctx, &model.Client{})
	if err != nil {
		return nil, err
	}

	var client model.Client
	if err := db.Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) List(ctx context.Context, page, pageSize int) ([]*model.Client, int64, error) {
	db, err := r.gateway.Scoped(ctx, &model.Client{})
	if err != nil {
		return nil, 0, err
	}

	var total int64
	db.Count(&total)

	var clients []*model.Client
	offset := (page - 1) * pageSize
	err = db.Order("name").Offset(offset).Limit(pageSize).Find(&clients).Error
	return clients, total, err
}

func (r *ClientRepository) Update(ctx context.Context, client *model.Client) error {
	return r.gateway.Save(ctx, client)
}

func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.gateway.Delete(ctx, &model.Client{}, id)
}
