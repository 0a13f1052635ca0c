package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petshop-system/petshop-management/internal/model"
)

type TenantConfigRepository struct {
	db *gorm.DB
}

func NewTenantConfigRepository(db *gorm.DB) *TenantConfigRepository {
	return &TenantConfigRepository{db: db}
}

// SetConfig 写入或更新(tenant, key)配置
func (r *TenantConfigRepository) SetConfig(tenantID uuid.UUID, key, value, configType string) error {
	cfg := &model.TenantConfiguration{
		TenantID:   tenantID,
		Key:        key,
		Value:      value,
		ConfigType: configType,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "config_type", "updated_at"}),
	}).Create(cfg).Error
}

// GetConfig 读取配置, 不存在时返回调用方提供的默认值
func (r *TenantConfigRepository) GetConfig(tenantID uuid.UUID, key, defaultValue string) (string, error) {
	var cfg model.TenantConfiguration
	err := r.db.Where("tenant_id = ? AND key = ?", tenantID, key).First(&cfg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	return cfg.Value, nil
}

// GetTyped 读取配置并按声明类型解析
func (r *TenantConfigRepository) GetTyped(tenantID uuid.UUID, key string) (interface{}, bool, error) {
	var cfg model.TenantConfiguration
	err := r.db.Where("tenant_id = ? AND key = ?", tenantID, key).First(&cfg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return cfg.TypedValue(), true, nil
}

func (r *TenantConfigRepository) ListByTenant(tenantID uuid.UUID) ([]*model.TenantConfiguration, error) {
	var configs []*model.TenantConfiguration
	err := r.db.Where("tenant_id = ?", tenantID).Order("key").Find(&configs).Error
	return configs, err
}
