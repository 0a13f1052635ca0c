package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
)

func newTestGateway(t *testing.T, lookup refTenantLookup) *Gateway {
	t.Helper()
	g := NewGateway(newTestRouter(t), zap.NewNop())
	if lookup != nil {
		g.lookup = lookup
	}
	return g
}

func scopedCtx(tn *model.Tenant) context.Context {
	ctx := NewContext(context.Background())
	StackFrom(ctx).Push(tn)
	return ctx
}

func TestScopedWithoutContextFails(t *testing.T) {
	g := newTestGateway(t, nil)

	_, err := g.Scoped(context.Background(), &model.Client{})
	assert.ErrorIs(t, err, ErrNoTenantContext)
}

func TestScopedInactiveTenantFails(t *testing.T) {
	g := newTestGateway(t, nil)
	tn := newTestTenant("parado")
	tn.IsActive = false

	_, err := g.Scoped(scopedCtx(tn), &model.Client{})
	assert.ErrorIs(t, err, ErrTenantNotReady)
}

func TestCreateWithoutContextFails(t *testing.T) {
	g := newTestGateway(t, nil)

	err := g.Create(context.Background(), &model.Client{Name: "Maria"})
	assert.ErrorIs(t, err, ErrNoTenantContext)
}

func TestStampFillsTenantFromContext(t *testing.T) {
	g := newTestGateway(t, nil)
	tn := newTestTenant("clinica-a")

	client := &model.Client{Name: "Maria"}
	require.NoError(t, g.stamp(client, tn))
	assert.Equal(t, tn.ID, client.TenantID)
}

func TestStampKeepsMatchingTenant(t *testing.T) {
	g := newTestGateway(t, nil)
	tn := newTestTenant("clinica-a")

	client := &model.Client{TenantID: tn.ID, Name: "Maria"}
	require.NoError(t, g.stamp(client, tn))
	assert.Equal(t, tn.ID, client.TenantID)
}

func TestStampRejectsForeignTenant(t *testing.T) {
	g := newTestGateway(t, nil)
	tn := newTestTenant("clinica-a")
	other := uuid.New()

	client := &model.Client{TenantID: other, Name: "Maria"}
	err := g.stamp(client, tn)
	assert.ErrorIs(t, err, ErrTenantMismatch)
	// 归属绝不静默修正
	assert.Equal(t, other, client.TenantID)
}

func TestValidateRejectsForeignEntity(t *testing.T) {
	g := newTestGateway(t, nil)
	tn := newTestTenant("clinica-a")

	client := &model.Client{TenantID: uuid.New(), Name: "Maria"}
	err := g.Validate(scopedCtx(tn), client)
	assert.ErrorIs(t, err, ErrTenantMismatch)
}

func TestValidateAcceptsSameTenantReferences(t *testing.T) {
	tn := newTestTenant("clinica-a")
	g := newTestGateway(t, func(db *gorm.DB, table string, id uuid.UUID) (uuid.UUID, error) {
		return tn.ID, nil
	})

	appt := &model.Appointment{
		TenantID:      tn.ID,
		AnimalID:      uuid.New(),
		ServiceItemID: uuid.New(),
	}
	assert.NoError(t, g.Validate(scopedCtx(tn), appt))
}

func TestValidateDetectsCrossTenantReference(t *testing.T) {
	tn := newTestTenant("clinica-a")
	foreign := uuid.New()
	animalID := uuid.New()

	g := newTestGateway(t, func(db *gorm.DB, table string, id uuid.UUID) (uuid.UUID, error) {
		if table == "animals" {
			return foreign, nil
		}
		return tn.ID, nil
	})

	appt := &model.Appointment{
		TenantID:      tn.ID,
		AnimalID:      animalID,
		ServiceItemID: uuid.New(),
	}
	err := g.Validate(scopedCtx(tn), appt)
	require.Error(t, err)
	require.True(t, IsCrossTenant(err))

	var ce *CrossTenantError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "animal_id", ce.Field)
	assert.Equal(t, "animals", ce.Table)
	assert.Equal(t, animalID, ce.RefID)
	assert.Equal(t, tn.ID, ce.WantTenant)
	assert.Equal(t, foreign, ce.GotTenant)
}

func TestValidateSkipsUnsetReferences(t *testing.T) {
	tn := newTestTenant("clinica-a")
	var lookedUp []string

	g := newTestGateway(t, func(db *gorm.DB, table string, id uuid.UUID) (uuid.UUID, error) {
		lookedUp = append(lookedUp, table)
		return tn.ID, nil
	})

	appt := &model.Appointment{
		TenantID:      tn.ID,
		ServiceItemID: uuid.New(),
	}
	require.NoError(t, g.Validate(scopedCtx(tn), appt))
	assert.Equal(t, []string{"service_items"}, lookedUp)
}

func TestValidateEntityWithoutReferences(t *testing.T) {
	tn := newTestTenant("clinica-a")
	g := newTestGateway(t, func(db *gorm.DB, table string, id uuid.UUID) (uuid.UUID, error) {
		t.Fatal("lookup should not be called")
		return uuid.Nil, nil
	})

	client := &model.Client{TenantID: tn.ID, Name: "Maria"}
	assert.NoError(t, g.Validate(scopedCtx(tn), client))
}

func TestIsCrossTenantOnWrappedError(t *testing.T) {
	err := &CrossTenantError{Field: "animal_id", Table: "animals"}
	assert.True(t, IsCrossTenant(err))
	assert.False(t, IsCrossTenant(ErrTenantMismatch))
	assert.False(t, IsCrossTenant(nil))
}
