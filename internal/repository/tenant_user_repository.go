package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
)

type TenantUserRepository struct {
	db *gorm.DB
}

func NewTenantUserRepository(db *gorm.DB) *TenantUserRepository {
	return &TenantUserRepository{db: db}
}

func (r *TenantUserRepository) Create(u *model.TenantUser) error {
	return r.db.Create(u).Error
}

// GetByEmail 在单个租户内按邮箱查找(邮箱仅租户内唯一)
func (r *TenantUserRepository) GetByEmail(tenantID uuid.UUID, email string) (*model.TenantUser, error) {
	var u model.TenantUser
	err := r.db.Where("tenant_id = ? AND email = ?", tenantID, email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *TenantUserRepository) GetByID(id string) (*model.TenantUser, error) {
	var u model.TenantUser
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *TenantUserRepository) ListByTenant(tenantID uuid.UUID) ([]*model.TenantUser, error) {
	var users []*model.TenantUser
	err := r.db.Where("tenant_id = ?", tenantID).Order("created_at").Find(&users).Error
	return users, err
}

func (r *TenantUserRepository) CountByTenant(tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.TenantUser{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}

func (r *TenantUserRepository) Update(u *model.TenantUser) error {
	return r.db.Save(u).Error
}
