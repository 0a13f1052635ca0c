package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"

	"github.com/petshop-system/petshop-management/internal/model"
)

func newDummyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)
	return db
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	shared := newDummyDB(t)
	opener := func(schema string) (*gorm.DB, error) {
		return newDummyDB(t), nil
	}
	return NewRouter(shared, opener, zap.NewNop())
}

func TestIsSharedTable(t *testing.T) {
	assert.True(t, IsSharedTable("tenants"))
	assert.True(t, IsSharedTable("tenant_configurations"))
	assert.True(t, IsSharedTable("tenant_users"))
	assert.True(t, IsSharedTable("audit_events"))
	assert.True(t, IsSharedTable("schema_migrations"))

	assert.False(t, IsSharedTable("clients"))
	assert.False(t, IsSharedTable("animals"))
	assert.False(t, IsSharedTable("appointments"))
}

func TestRouteSharedEntityIgnoresContext(t *testing.T) {
	r := newTestRouter(t)

	// 共享实体无需任何租户上下文
	db, err := r.Route(context.Background(), &model.Tenant{}, OpRead)
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestRouteTenantEntityWithoutContextFails(t *testing.T) {
	r := newTestRouter(t)

	for _, op := range []Operation{OpRead, OpWrite} {
		_, err := r.Route(context.Background(), &model.Client{}, op)
		assert.ErrorIs(t, err, ErrNoTenantContext, "op=%s", op)
	}
}

func TestRouteTenantEntityWithEmptyStackFails(t *testing.T) {
	r := newTestRouter(t)
	ctx := NewContext(context.Background())

	_, err := r.Route(ctx, &model.Client{}, OpRead)
	assert.ErrorIs(t, err, ErrNoTenantContext)
}

func TestRouteInactiveTenantRejected(t *testing.T) {
	r := newTestRouter(t)
	inactive := newTestTenant("meio-aberto")
	inactive.IsActive = false

	ctx := NewContext(context.Background())
	StackFrom(ctx).Push(inactive)

	for _, op := range []Operation{OpRead, OpWrite} {
		_, err := r.Route(ctx, &model.Client{}, op)
		assert.ErrorIs(t, err, ErrTenantNotReady, "op=%s", op)
	}

	// 迁移操作面向开通流程, 未激活租户允许
	db, err := r.Route(ctx, &model.Client{}, OpMigrate)
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestRouteActiveTenantReachesSchemaPool(t *testing.T) {
	r := newTestRouter(t)
	tn := newTestTenant("clinica-a")

	ctx := NewContext(context.Background())
	StackFrom(ctx).Push(tn)

	db, err := r.Route(ctx, &model.Client{}, OpWrite)
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestRouteFollowsNestedScope(t *testing.T) {
	r := newTestRouter(t)
	outer := newTestTenant("outer")
	inner := newTestTenant("inner")

	openCount := make(map[string]int)
	r.open = func(schema string) (*gorm.DB, error) {
		openCount[schema]++
		return newDummyDB(t), nil
	}

	ctx := NewContext(context.Background())
	err := WithScope(ctx, outer, func(ctx context.Context) error {
		if _, err := r.Route(ctx, &model.Client{}, OpRead); err != nil {
			return err
		}
		return WithScope(ctx, inner, func(ctx context.Context) error {
			_, err := r.Route(ctx, &model.Client{}, OpRead)
			return err
		})
	})
	require.NoError(t, err)

	assert.Equal(t, 1, openCount[outer.SchemaName])
	assert.Equal(t, 1, openCount[inner.SchemaName])
}

func TestSchemaDBReusesPool(t *testing.T) {
	r := newTestRouter(t)

	opened := 0
	r.open = func(schema string) (*gorm.DB, error) {
		opened++
		return newDummyDB(t), nil
	}

	first, err := r.SchemaDB("tenant_a")
	require.NoError(t, err)
	second, err := r.SchemaDB("tenant_a")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, opened)
}

func TestRouteMigrateSharedEntity(t *testing.T) {
	r := newTestRouter(t)

	db, err := r.RouteMigrate(&model.Tenant{}, nil)
	require.NoError(t, err)
	assert.Same(t, r.SharedDB(), db)

	// 共享表迁移不允许指定租户目标
	_, err = r.RouteMigrate(&model.Tenant{}, newTestTenant("a"))
	assert.ErrorIs(t, err, ErrSharedMigrateTarget)
}

func TestRouteMigrateTenantEntity(t *testing.T) {
	r := newTestRouter(t)

	// 租户表迁移绝不落到共享库
	_, err := r.RouteMigrate(&model.Client{}, nil)
	assert.ErrorIs(t, err, ErrTenantMigrateShared)

	db, err := r.RouteMigrate(&model.Client{}, newTestTenant("a"))
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestPoolDSNPinsSearchPath(t *testing.T) {
	dsn := PoolDSN("host=localhost dbname=petshop", "tenant_clinica_a")
	assert.Equal(t, "host=localhost dbname=petshop search_path=tenant_clinica_a,public", dsn)
}
