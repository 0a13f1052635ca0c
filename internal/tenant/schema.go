package tenant

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
)

// TenantModels 租户schema内的业务表, 迁移按此清单执行
var TenantModels = []interface{}{
	&model.Client{},
	&model.Animal{},
	&model.Product{},
	&model.ServiceItem{},
	&model.Appointment{},
	&model.Sale{},
}

// SharedModels 共享库中的注册表及配套表
var SharedModels = []interface{}{
	&model.Tenant{},
	&model.TenantConfiguration{},
	&model.TenantUser{},
	&model.AuditEvent{},
}

// migrationStep 命名迁移步骤, 按版本号顺序执行并记录
type migrationStep struct {
	Version string
	Run     func(tx *gorm.DB) error
}

var tenantMigrations = []migrationStep{
	{
		Version: "0001_business_tables",
		Run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(TenantModels...)
		},
	},
}

// Manager schema管理器 - 负责租户schema的创建/删除/迁移/巡检
type Manager struct {
	shared *gorm.DB
	router *Router
	locks  *KeyedMutex
	logger *zap.Logger
}

func NewManager(router *Router, locks *KeyedMutex, logger *zap.Logger) *Manager {
	return &Manager{
		shared: router.SharedDB(),
		router: router,
		locks:  locks,
		logger: logger,
	}
}

// SchemaExists 判断schema是否存在
func (m *Manager) SchemaExists(schemaName string) (bool, error) {
	var count int64
	err := m.shared.Raw(
		"SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?",
		schemaName,
	).Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check schema existence: %w", err)
	}
	return count > 0, nil
}

// CreateSchema 创建租户schema
// 已存在且force为false时不产生副作用并返回false
// force为true时破坏性地删除重建, 不可逆, 记录警告日志
func (m *Manager) CreateSchema(t *model.Tenant, force bool) (bool, error) {
	exists, err := m.SchemaExists(t.SchemaName)
	if err != nil {
		return false, err
	}

	if exists {
		if !force {
			return false, nil
		}
		m.logger.Warn("force-recreating tenant schema, all data will be destroyed",
			zap.String("tenant", t.Subdomain),
			zap.String("schema", t.SchemaName))
		if err := m.dropSchema(t.SchemaName); err != nil {
			return false, err
		}
	}

	if err := m.shared.Exec(fmt.Sprintf("CREATE SCHEMA %q", t.SchemaName)).Error; err != nil {
		return false, fmt.Errorf("failed to create schema %s: %w", t.SchemaName, err)
	}

	m.logger.Info("created tenant schema",
		zap.String("tenant", t.Subdomain),
		zap.String("schema", t.SchemaName))
	return true, nil
}

// DropSchema 破坏性删除租户schema及其全部数据
func (m *Manager) DropSchema(t *model.Tenant) error {
	m.logger.Warn("dropping tenant schema, all data will be destroyed",
		zap.String("tenant", t.Subdomain),
		zap.String("schema", t.SchemaName))

	if err := m.dropSchema(t.SchemaName); err != nil {
		return err
	}
	m.router.ClosePool(t.SchemaName)
	return nil
}

func (m *Manager) dropSchema(schemaName string) error {
	if err := m.shared.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %q CASCADE", schemaName)).Error; err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", schemaName, err)
	}
	return nil
}

// ListTables 枚举租户schema内的表(不含共享表)
func (m *Manager) ListTables(t *model.Tenant) ([]string, error) {
	exists, err := m.SchemaExists(t.SchemaName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("tenant %s: %w", t.Subdomain, ErrSchemaNotFound)
	}

	var tables []string
	err = m.shared.Raw(
		"SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE' ORDER BY table_name",
		t.SchemaName,
	).Scan(&tables).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tables for tenant %s: %w", t.Subdomain, err)
	}
	return tables, nil
}

// ComputeSize 统计租户schema的磁盘占用(字节), 用于配额和监控
func (m *Manager) ComputeSize(t *model.Tenant) (int64, error) {
	var size *int64
	err := m.shared.Raw(`
		SELECT SUM(pg_total_relation_size(format('%I.%I', table_schema, table_name)))
		FROM information_schema.tables
		WHERE table_schema = ?`,
		t.SchemaName,
	).Scan(&size).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute size for tenant %s: %w", t.Subdomain, err)
	}
	if size == nil {
		return 0, nil
	}
	return *size, nil
}

// Migrate 在租户schema内执行待应用的迁移
// fake为true时只记录版本不执行DDL(用于带外修复的schema)
func (m *Manager) Migrate(t *model.Tenant, fake bool) error {
	// 同一租户的迁移与备份/恢复互斥
	unlock := m.locks.Lock(t.SchemaName)
	defer unlock()

	exists, err := m.SchemaExists(t.SchemaName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("tenant %s: %w", t.Subdomain, ErrSchemaNotFound)
	}

	db, err := m.router.SchemaDB(t.SchemaName)
	if err != nil {
		return fmt.Errorf("tenant %s: %w", t.Subdomain, err)
	}

	// 每个schema持有自己的迁移记录表
	if err := db.Exec("CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(255) PRIMARY KEY, applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW())").Error; err != nil {
		return fmt.Errorf("tenant %s: failed to create migrations table: %w", t.Subdomain, err)
	}

	var applied []string
	if err := db.Raw("SELECT version FROM schema_migrations").Scan(&applied).Error; err != nil {
		return fmt.Errorf("tenant %s: failed to read applied migrations: %w", t.Subdomain, err)
	}
	appliedMap := make(map[string]bool, len(applied))
	for _, v := range applied {
		appliedMap[v] = true
	}

	for _, step := range tenantMigrations {
		if appliedMap[step.Version] {
			continue
		}

		if !fake {
			if err := step.Run(db); err != nil {
				return fmt.Errorf("tenant %s: migration %s failed: %w", t.Subdomain, step.Version, err)
			}
		} else {
			m.logger.Info("faking migration",
				zap.String("tenant", t.Subdomain),
				zap.String("version", step.Version))
		}

		if err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", step.Version).Error; err != nil {
			return fmt.Errorf("tenant %s: failed to record migration %s: %w", t.Subdomain, step.Version, err)
		}
	}

	return nil
}

// MigrateShared 迁移共享库的注册表结构
func (m *Manager) MigrateShared() error {
	for _, mdl := range SharedModels {
		tabler, ok := mdl.(Tabler)
		if !ok {
			return errors.New("shared model does not declare a table name")
		}
		if _, err := m.router.RouteMigrate(tabler, nil); err != nil {
			return err
		}
	}
	if err := m.shared.AutoMigrate(SharedModels...); err != nil {
		return fmt.Errorf("failed to migrate shared tables: %w", err)
	}
	return nil
}

// MigrateResult 批量迁移汇总
type MigrateResult struct {
	SuccessCount int
	ErrorCount   int
	Errors       map[string]error // subdomain -> error
}

// MigrateAll 迁移全部给定租户, 单个失败不中断批次, 返回汇总
func (m *Manager) MigrateAll(tenants []*model.Tenant, fake bool) *MigrateResult {
	result := &MigrateResult{Errors: make(map[string]error)}

	for _, t := range tenants {
		if err := m.Migrate(t, fake); err != nil {
			m.logger.Error("tenant migration failed",
				zap.String("tenant", t.Subdomain),
				zap.Error(err))
			result.ErrorCount++
			result.Errors[t.Subdomain] = err
			continue
		}
		result.SuccessCount++
	}

	return result
}
