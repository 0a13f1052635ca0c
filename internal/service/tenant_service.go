package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petshop-system/petshop-management/internal/constants"
	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
)

// TenantService 租户注册表服务
type TenantService struct {
	tenantRepo   *repository.TenantRepository
	configRepo   *repository.TenantConfigRepository
	tenantCache  *repository.TenantCache
	auditService *AuditService
	logger       *zap.Logger
}

func NewTenantService(
	tenantRepo *repository.TenantRepository,
	configRepo *repository.TenantConfigRepository,
	tenantCache *repository.TenantCache,
	auditService *AuditService,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo:   tenantRepo,
		configRepo:   configRepo,
		tenantCache:  tenantCache,
		auditService: auditService,
		logger:       logger,
	}
}

// Resolve 按子域名解析租户, 先查缓存再回源注册表
// 未激活的租户解析失败 - 半开通状态不可达
func (s *TenantService) Resolve(ctx context.Context, subdomain string) (*model.Tenant, error) {
	if cached := s.tenantCache.Get(ctx, subdomain); cached != nil {
		if !cached.IsActive {
			return nil, ErrTenantInactive
		}
		return cached, nil
	}

	t, err := s.tenantRepo.GetBySubdomain(subdomain)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrTenantInactive
	}

	s.tenantCache.Set(ctx, t)
	return t, nil
}

func (s *TenantService) GetTenant(id string) (*model.Tenant, error) {
	t, err := s.tenantRepo.GetByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TenantService) GetBySelector(selector string) (*model.Tenant, error) {
	t, err := s.tenantRepo.GetBySelector(selector)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TenantService) ListTenants() ([]*model.Tenant, error) {
	return s.tenantRepo.List()
}

func (s *TenantService) ListActiveTenants() ([]*model.Tenant, error) {
	return s.tenantRepo.ListActive()
}

// CreateRegistryRow 在事务内创建注册行, 子域名用SELECT FOR UPDATE防并发重复
// 新租户以未激活状态落库, 由开通服务在全部步骤完成后激活
func (s *TenantService) CreateRegistryRow(name, subdomain, planType string) (*model.Tenant, error) {
	var created *model.Tenant

	err := s.tenantRepo.GetDB().Transaction(func(tx *gorm.DB) error {
		var existing model.Tenant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("subdomain = ?", subdomain).First(&existing).Error; err == nil {
			return fmt.Errorf("subdomain %s: %w", subdomain, ErrTenantAlreadyExists)
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		schemaName := model.DeriveSchemaName(subdomain)
		var taken int64
		if err := tx.Model(&model.Tenant{}).Where("schema_name = ?", schemaName).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			// schema命名空间只增不减, 即使注册行已删除也不复用
			return fmt.Errorf("schema %s: %w", schemaName, ErrSchemaNameTaken)
		}

		created = &model.Tenant{
			Name:       name,
			Subdomain:  subdomain,
			SchemaName: schemaName,
			PlanType:   planType,
			IsActive:   false,
		}
		applyPlanLimits(created)

		return tx.Create(created).Error
	})

	if err != nil {
		return nil, err
	}
	return created, nil
}

// SetActive 切换激活状态并失效解析缓存
func (s *TenantService) SetActive(ctx context.Context, id string, active bool) (*model.Tenant, error) {
	t, err := s.GetTenant(id)
	if err != nil {
		return nil, err
	}

	t.IsActive = active
	if err := s.tenantRepo.Update(t); err != nil {
		return nil, err
	}

	s.tenantCache.Invalidate(ctx, t.Subdomain)

	if s.auditService != nil {
		action := "activate"
		if !active {
			action = "deactivate"
		}
		s.auditService.Log(t.ID, constants.EventTypeUpdate, action, constants.ResourceTypeTenant, t.ID.String(), "system", nil)
	}

	s.logger.Info("tenant active flag changed",
		zap.String("tenant", t.Subdomain),
		zap.Bool("is_active", active))
	return t, nil
}

// SetConfig 租户配置透传
func (s *TenantService) SetConfig(tenantID string, key, value, configType string) error {
	t, err := s.GetTenant(tenantID)
	if err != nil {
		return err
	}
	return s.configRepo.SetConfig(t.ID, key, value, configType)
}

// GetTypedConfig 按声明类型解析配置值, 未设置时found为false
func (s *TenantService) GetTypedConfig(tenantID, key string) (interface{}, bool, error) {
	t, err := s.GetTenant(tenantID)
	if err != nil {
		return nil, false, err
	}
	return s.configRepo.GetTyped(t.ID, key)
}

func applyPlanLimits(t *model.Tenant) {
	switch t.PlanType {
	case model.PlanTypePremium:
		t.MaxUsers = 50
		t.MaxAnimals = 10000
	case model.PlanTypeStandard:
		t.MaxUsers = 15
		t.MaxAnimals = 2000
	default:
		t.PlanType = model.PlanTypeBasic
		t.MaxUsers = 5
		t.MaxAnimals = 500
	}
}
