package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(t *model.Tenant) error {
	return r.db.Create(t).Error
}

func (r *TenantRepository) GetByID(id string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetBySubdomain(subdomain string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.Where("subdomain = ?", subdomain).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetBySelector 按ID或子域名查找(CLI的租户选择器)
func (r *TenantRepository) GetBySelector(selector string) (*model.Tenant, error) {
	if _, err := uuid.Parse(selector); err == nil {
		return r.GetByID(selector)
	}
	return r.GetBySubdomain(selector)
}

func (r *TenantRepository) List() ([]*model.Tenant, error) {
	var tenants []*model.Tenant
	err := r.db.Order("created_at").Find(&tenants).Error
	return tenants, err
}

func (r *TenantRepository) ListActive() ([]*model.Tenant, error) {
	var tenants []*model.Tenant
	err := r.db.Where("is_active = ?", true).Order("created_at").Find(&tenants).Error
	return tenants, err
}

func (r *TenantRepository) Update(t *model.Tenant) error {
	return r.db.Save(t).Error
}

// SchemaNameTaken schema名称是否已被占用(含已停用租户, 命名空间只增不减)
func (r *TenantRepository) SchemaNameTaken(schemaName string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Tenant{}).Where("schema_name = ?", schemaName).Count(&count).Error
	return count > 0, err
}

// Delete 删除注册行 - 仅限开通回滚和显式销毁清理调用
func (r *TenantRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", id).Delete(&model.TenantConfiguration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&model.TenantUser{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Tenant{}, "id = ?", id).Error
	})
}

func (r *TenantRepository) GetDB() *gorm.DB {
	return r.db
}
