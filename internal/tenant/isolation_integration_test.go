package tenant

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
)

// 隔离测试需要真实的PostgreSQL: 设置TEST_DATABASE_URL后执行
func newIntegrationStack(t *testing.T) (*Router, *Manager) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	shared, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	router := NewRouter(shared, NewPostgresOpener(dsn, nil), zap.NewNop())
	manager := NewManager(router, NewKeyedMutex(), zap.NewNop())
	return router, manager
}

func provisionIntegrationTenant(t *testing.T, router *Router, manager *Manager, subdomain string) *model.Tenant {
	t.Helper()

	tn := newTestTenant(subdomain)
	_, err := manager.CreateSchema(tn, true)
	require.NoError(t, err)
	require.NoError(t, manager.Migrate(tn, false))

	t.Cleanup(func() {
		_ = manager.DropSchema(tn)
		router.ClosePool(tn.SchemaName)
	})
	return tn
}

func TestTenantDataIsolation(t *testing.T) {
	router, manager := newIntegrationStack(t)
	gateway := NewGateway(router, zap.NewNop())

	a := provisionIntegrationTenant(t, router, manager, "isol-a-"+uuid.NewString()[:8])
	b := provisionIntegrationTenant(t, router, manager, "isol-b-"+uuid.NewString()[:8])

	ctxA := scopedCtx(a)
	ctxB := scopedCtx(b)

	clientA := &model.Client{Name: "Maria", Email: "maria@example.com"}
	require.NoError(t, gateway.Create(ctxA, clientA))
	assert.Equal(t, a.ID, clientA.TenantID)

	clientB := &model.Client{Name: "João", Email: "joao@example.com"}
	require.NoError(t, gateway.Create(ctxB, clientB))

	// 租户A的作用域里看不到租户B的数据
	dbA, err := gateway.Scoped(ctxA, &model.Client{})
	require.NoError(t, err)
	var fromA []model.Client
	require.NoError(t, dbA.Find(&fromA).Error)
	require.Len(t, fromA, 1)
	assert.Equal(t, clientA.ID, fromA[0].ID)

	dbB, err := gateway.Scoped(ctxB, &model.Client{})
	require.NoError(t, err)
	var fromB []model.Client
	require.NoError(t, dbB.Find(&fromB).Error)
	require.Len(t, fromB, 1)
	assert.Equal(t, clientB.ID, fromB[0].ID)
}

func TestCrossTenantReferenceRejectedOnCreate(t *testing.T) {
	router, manager := newIntegrationStack(t)
	gateway := NewGateway(router, zap.NewNop())

	a := provisionIntegrationTenant(t, router, manager, "ref-a-"+uuid.NewString()[:8])
	b := provisionIntegrationTenant(t, router, manager, "ref-b-"+uuid.NewString()[:8])

	ctxA := scopedCtx(a)
	ctxB := scopedCtx(b)

	clientA := &model.Client{Name: "Maria", Email: "maria@example.com"}
	require.NoError(t, gateway.Create(ctxA, clientA))

	animalA := &model.Animal{Name: "Rex", Species: "dog", ClientID: clientA.ID}
	require.NoError(t, gateway.Create(ctxA, animalA))

	// 租户B尝试引用租户A的动物 - 引用查询在B的schema里找不到该行
	serviceB := &model.ServiceItem{Name: "Banho", Price: 50}
	require.NoError(t, gateway.Create(ctxB, serviceB))

	appt := &model.Appointment{AnimalID: animalA.ID, ServiceItemID: serviceB.ID}
	err := gateway.Create(ctxB, appt)
	require.Error(t, err)
}
