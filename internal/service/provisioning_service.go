package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/constants"
	"github.com/petshop-system/petshop-management/internal/metrics"
	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
	"github.com/petshop-system/petshop-management/internal/tenant"
)

// ProvisionRequest 租户开通请求
type ProvisionRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=255"`
	Subdomain     string `json:"subdomain" binding:"required,min=2,max=63"`
	PlanType      string `json:"plan_type"`
	AdminEmail    string `json:"admin_email" binding:"required,email"`
	AdminName     string `json:"admin_name"`
	AdminPassword string `json:"admin_password" binding:"required"`
}

// 开通步骤名称, 失败报告按此标注
const (
	StepValidate       = "validate"
	StepCreateRegistry = "create_registry"
	StepCreateSchema   = "create_schema"
	StepMigrate        = "migrate"
	StepSeedFixtures   = "seed_fixtures"
	StepCreateAdmin    = "create_admin"
	StepVerify         = "verify"
)

// ProvisionResult 开通结果 - 终态SUCCESS/FAILED, 失败时标注失败步骤
type ProvisionResult struct {
	Status     string          `json:"status"`
	Tenant     *model.Tenant   `json:"tenant,omitempty"`
	FailedStep string          `json:"failed_step,omitempty"`
	Error      string          `json:"error,omitempty"`
	Checks     map[string]bool `json:"checks,omitempty"`
	Validation []string        `json:"validation_errors,omitempty"`
}

// ProvisioningService 租户开通服务
// 按步骤推进, 任一中间步骤失败时回滚已产生的副作用,
// 半开通的租户保持未激活, 对正常请求路由不可达
type ProvisioningService struct {
	tenantService *TenantService
	tenantRepo    *repository.TenantRepository
	configRepo    *repository.TenantConfigRepository
	userRepo      *repository.TenantUserRepository
	schemaManager *tenant.Manager
	router        *tenant.Router
	auditService  *AuditService
	logger        *zap.Logger
}

func NewProvisioningService(
	tenantService *TenantService,
	tenantRepo *repository.TenantRepository,
	configRepo *repository.TenantConfigRepository,
	userRepo *repository.TenantUserRepository,
	schemaManager *tenant.Manager,
	router *tenant.Router,
	auditService *AuditService,
	logger *zap.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		tenantService: tenantService,
		tenantRepo:    tenantRepo,
		configRepo:    configRepo,
		userRepo:      userRepo,
		schemaManager: schemaManager,
		router:        router,
		auditService:  auditService,
		logger:        logger,
	}
}

// Provision 执行完整开通流程
func (s *ProvisioningService) Provision(ctx context.Context, req ProvisionRequest) *ProvisionResult {
	// 1. 校验 - 无副作用, 错误逐项列出
	if errs := s.validate(req); len(errs) > 0 {
		metrics.ProvisioningTotal.WithLabelValues(constants.StatusFailed).Inc()
		return &ProvisionResult{
			Status:     constants.StatusFailed,
			FailedStep: StepValidate,
			Validation: errs,
		}
	}

	// 2. 创建注册行(未激活)
	t, err := s.tenantService.CreateRegistryRow(req.Name, req.Subdomain, req.PlanType)
	if err != nil {
		return s.fail(nil, StepCreateRegistry, err, false)
	}

	// 3. 创建schema
	created, err := s.schemaManager.CreateSchema(t, false)
	if err != nil {
		return s.fail(t, StepCreateSchema, err, false)
	}
	if !created {
		// schema名不复用的前提下已存在即为异常
		return s.fail(t, StepCreateSchema,
			fmt.Errorf("schema %s already exists", t.SchemaName), false)
	}

	// 4. 迁移
	if err := s.schemaManager.Migrate(t, false); err != nil {
		return s.fail(t, StepMigrate, err, true)
	}

	// 5. 种子数据
	if err := s.seedFixtures(t); err != nil {
		return s.fail(t, StepSeedFixtures, err, true)
	}

	// 6. 初始管理员
	if err := s.createAdmin(t, req); err != nil {
		return s.fail(t, StepCreateAdmin, err, true)
	}

	// 7. 回读验证
	checks := s.verify(t, req.AdminEmail)
	for name, ok := range checks {
		if !ok {
			return s.failWithChecks(t, StepVerify,
				fmt.Errorf("provisioning check failed: %s", name), true, checks)
		}
	}

	// 全部通过, 激活
	t.IsActive = true
	if err := s.tenantRepo.Update(t); err != nil {
		return s.failWithChecks(t, StepVerify, err, true, checks)
	}

	metrics.ProvisioningTotal.WithLabelValues(constants.StatusSuccess).Inc()
	if s.auditService != nil {
		s.auditService.LogProvisioning(t.ID, t.Subdomain, "system", true, "")
	}
	s.logger.Info("tenant provisioned",
		zap.String("tenant", t.Subdomain),
		zap.String("schema", t.SchemaName))

	return &ProvisionResult{
		Status: constants.StatusSuccess,
		Tenant: t,
		Checks: checks,
	}
}

func (s *ProvisioningService) validate(req ProvisionRequest) []string {
	var errs []string

	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, "name is required")
	}
	if !model.ValidSubdomain(req.Subdomain) {
		errs = append(errs, "subdomain must be lowercase, DNS-safe (a-z, 0-9, hyphen)")
	} else {
		if _, err := s.tenantRepo.GetBySubdomain(req.Subdomain); err == nil {
			errs = append(errs, "subdomain is already taken")
		}
		// schema命名空间只增不减, 历史占用的名称同样拒绝
		if taken, err := s.tenantRepo.SchemaNameTaken(model.DeriveSchemaName(req.Subdomain)); err == nil && taken {
			errs = append(errs, "derived schema name is already taken")
		}
	}
	if !strings.Contains(req.AdminEmail, "@") {
		errs = append(errs, "admin_email is not a valid email address")
	}
	if msg := checkPasswordStrength(req.AdminPassword); msg != "" {
		errs = append(errs, msg)
	}

	return errs
}

// checkPasswordStrength 至少8位, 含字母和数字
func checkPasswordStrength(password string) string {
	if len(password) < 8 {
		return "admin_password must be at least 8 characters"
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "admin_password must contain both letters and digits"
	}
	return ""
}

// seedFixtures 写入默认服务/商品/配置
// 租户尚未激活, 走SchemaDB管理路径而非请求网关, 归属字段显式盖章
func (s *ProvisioningService) seedFixtures(t *model.Tenant) error {
	db, err := s.router.SchemaDB(t.SchemaName)
	if err != nil {
		return err
	}

	services := []*model.ServiceItem{
		{TenantID: t.ID, Name: "Banho", Description: "Banho completo", Price: 50, DurationMin: 60},
		{TenantID: t.ID, Name: "Tosa", Description: "Tosa higiênica", Price: 70, DurationMin: 90},
		{TenantID: t.ID, Name: "Consulta veterinária", Description: "Consulta clínica geral", Price: 120, DurationMin: 30},
	}
	products := []*model.Product{
		{TenantID: t.ID, SKU: "RACAO-10KG", Name: "Ração premium 10kg", Category: "alimentação", Price: 180, Stock: 20, MinStock: 5},
		{TenantID: t.ID, SKU: "SHAMPOO-500", Name: "Shampoo neutro 500ml", Category: "higiene", Price: 35, Stock: 30, MinStock: 10},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, svc := range services {
			if err := tx.Create(svc).Error; err != nil {
				return fmt.Errorf("failed to seed service %s: %w", svc.Name, err)
			}
		}
		for _, p := range products {
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.SKU, err)
			}
		}
		return nil
	})
}

func (s *ProvisioningService) createAdmin(t *model.Tenant, req ProvisionRequest) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &model.TenantUser{
		TenantID:     t.ID,
		Email:        strings.ToLower(req.AdminEmail),
		Name:         req.AdminName,
		Role:         model.RoleAdmin,
		IsActive:     true,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if err := s.configRepo.SetConfig(t.ID, model.ConfigKeyBackupRetention, "30", model.ConfigTypeInt); err != nil {
		return fmt.Errorf("failed to set default config: %w", err)
	}
	return nil
}

// verify 回读注册行/schema/管理员, 输出结构化的逐项结果
func (s *ProvisioningService) verify(t *model.Tenant, adminEmail string) map[string]bool {
	checks := make(map[string]bool)

	_, err := s.tenantRepo.GetByID(t.ID.String())
	checks["registry_row"] = err == nil

	exists, err := s.schemaManager.SchemaExists(t.SchemaName)
	checks["schema_exists"] = err == nil && exists

	tables, err := s.schemaManager.ListTables(t)
	checks["tables_migrated"] = err == nil && len(tables) > 0

	_, err = s.userRepo.GetByEmail(t.ID, strings.ToLower(adminEmail))
	checks["admin_user"] = err == nil

	return checks
}

func (s *ProvisioningService) fail(t *model.Tenant, step string, err error, dropSchema bool) *ProvisionResult {
	return s.failWithChecks(t, step, err, dropSchema, nil)
}

// failWithChecks 回滚本次运行产生的副作用
// schema由本次创建则删除; 注册行删除失败时保持未激活兜底
func (s *ProvisioningService) failWithChecks(t *model.Tenant, step string, err error, dropSchema bool, checks map[string]bool) *ProvisionResult {
	metrics.ProvisioningTotal.WithLabelValues(constants.StatusFailed).Inc()

	result := &ProvisionResult{
		Status:     constants.StatusFailed,
		FailedStep: step,
		Error:      err.Error(),
		Checks:     checks,
	}

	if t == nil {
		s.logger.Error("provisioning failed", zap.String("step", step), zap.Error(err))
		return result
	}

	s.logger.Error("provisioning failed, rolling back",
		zap.String("tenant", t.Subdomain),
		zap.String("step", step),
		zap.Error(err))

	if dropSchema {
		if dropErr := s.schemaManager.DropSchema(t); dropErr != nil {
			s.logger.Error("rollback: failed to drop schema, tenant left inactive",
				zap.String("schema", t.SchemaName), zap.Error(dropErr))
		}
	}

	if delErr := s.tenantRepo.Delete(t.ID); delErr != nil {
		// 删除失败时注册行还在但is_active=false, 路由拒绝该租户
		s.logger.Error("rollback: failed to delete registry row, tenant left inactive",
			zap.String("tenant", t.Subdomain), zap.Error(delErr))
	}

	if s.auditService != nil {
		s.auditService.LogProvisioning(t.ID, t.Subdomain, "system", false, step)
	}
	return result
}
