package tenant

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
)

// Operation 数据库操作类型
type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpMigrate
)

func (op Operation) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpMigrate:
		return "migrate"
	}
	return "unknown"
}

// sharedTables 静态白名单: 无论上下文如何, 这些表永远路由到共享库
var sharedTables = map[string]bool{
	"tenants":               true,
	"tenant_configurations": true,
	"tenant_users":          true,
	"audit_events":          true,
	"schema_migrations":     true,
}

// IsSharedTable 判断表是否属于共享白名单
func IsSharedTable(table string) bool {
	return sharedTables[table]
}

// Tabler 能报告自身表名的实体
type Tabler interface {
	TableName() string
}

// SchemaOpener 按schema打开一个连接池, DSN固定search_path
type SchemaOpener func(schema string) (*gorm.DB, error)

// Router 数据库路由器
// 共享实体走共享库, 租户所属实体按当前租户上下文路由到对应schema的连接池
// 路由决策是调用时刻上下文的纯函数, 不缓存跨上下文的决策
type Router struct {
	shared *gorm.DB
	open   SchemaOpener
	logger *zap.Logger

	mu    sync.Mutex
	pools map[string]*gorm.DB
}

func NewRouter(shared *gorm.DB, open SchemaOpener, logger *zap.Logger) *Router {
	return &Router{
		shared: shared,
		open:   open,
		logger: logger,
		pools:  make(map[string]*gorm.DB),
	}
}

// Route 为给定实体和操作决定目标连接
// 租户所属实体在上下文为空时立即报错, 绝不静默落到默认库
func (r *Router) Route(ctx context.Context, entity Tabler, op Operation) (*gorm.DB, error) {
	table := entity.TableName()

	if IsSharedTable(table) {
		return r.shared.WithContext(ctx), nil
	}

	cur, ok := Current(ctx)
	if !ok {
		return nil, fmt.Errorf("route %s %s: %w", op, table, ErrNoTenantContext)
	}
	if !cur.IsActive && op != OpMigrate {
		// 开通未完成或被停用的租户不可达
		return nil, fmt.Errorf("route %s %s: tenant %s: %w", op, table, cur.Subdomain, ErrTenantNotReady)
	}

	db, err := r.SchemaDB(cur.SchemaName)
	if err != nil {
		return nil, fmt.Errorf("route %s %s: tenant %s: %w", op, table, cur.Subdomain, err)
	}
	return db.WithContext(ctx), nil
}

// RouteMigrate 校验迁移目标: 共享表只能迁移共享库, 租户表绝不迁移共享库
func (r *Router) RouteMigrate(entity Tabler, target *model.Tenant) (*gorm.DB, error) {
	table := entity.TableName()

	if IsSharedTable(table) {
		if target != nil {
			return nil, fmt.Errorf("migrate %s: %w", table, ErrSharedMigrateTarget)
		}
		return r.shared, nil
	}

	if target == nil {
		return nil, fmt.Errorf("migrate %s: %w", table, ErrTenantMigrateShared)
	}
	return r.SchemaDB(target.SchemaName)
}

// SharedDB 共享库句柄
func (r *Router) SharedDB() *gorm.DB {
	return r.shared
}

// SchemaDB 按schema名取连接池, 首次访问时打开
// DSN固定search_path, 因此连接归还后不会把schema带入别的租户
func (r *Router) SchemaDB(schema string) (*gorm.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.pools[schema]; ok {
		return db, nil
	}

	db, err := r.open(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool for schema %s: %w", schema, err)
	}

	r.pools[schema] = db
	if r.logger != nil {
		r.logger.Info("opened tenant schema pool", zap.String("schema", schema))
	}
	return db, nil
}

// ClosePool 关闭并移除某个schema的连接池(schema被删除后调用)
func (r *Router) ClosePool(schema string) {
	r.mu.Lock()
	db, ok := r.pools[schema]
	delete(r.pools, schema)
	r.mu.Unlock()

	if !ok {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// PoolDSN 按schema生成固定search_path的DSN
func PoolDSN(baseDSN, schema string) string {
	return fmt.Sprintf("%s search_path=%s,public", baseDSN, schema)
}

// NewPostgresOpener 基于基础DSN构造SchemaOpener
func NewPostgresOpener(baseDSN string, configure func(*gorm.DB) error) SchemaOpener {
	return func(schema string) (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(PoolDSN(baseDSN, schema)), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if configure != nil {
			if err := configure(db); err != nil {
				return nil, err
			}
		}
		return db, nil
	}
}
