package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petshop-system/petshop-management/internal/model"
)

func newTestTenant(subdomain string) *model.Tenant {
	return &model.Tenant{
		ID:         uuid.New(),
		Name:       subdomain,
		Subdomain:  subdomain,
		SchemaName: model.DeriveSchemaName(subdomain),
		IsActive:   true,
	}
}

func TestCurrentWithoutStack(t *testing.T) {
	_, ok := Current(context.Background())
	assert.False(t, ok)
}

func TestCurrentEmptyStack(t *testing.T) {
	ctx := NewContext(context.Background())
	_, ok := Current(ctx)
	assert.False(t, ok)
}

func TestPushPopRestoresOuter(t *testing.T) {
	ctx := NewContext(context.Background())
	s := StackFrom(ctx)
	require.NotNil(t, s)

	outer := newTestTenant("clinica-a")
	inner := newTestTenant("clinica-b")

	s.Push(outer)
	cur, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, outer.ID, cur.ID)

	s.Push(inner)
	cur, ok = Current(ctx)
	require.True(t, ok)
	assert.Equal(t, inner.ID, cur.ID)
	assert.Equal(t, 2, s.Depth())

	s.Pop()
	cur, ok = Current(ctx)
	require.True(t, ok)
	assert.Equal(t, outer.ID, cur.ID)

	s.Pop()
	_, ok = Current(ctx)
	assert.False(t, ok)
}

func TestPopOnEmptyStackIsNoop(t *testing.T) {
	ctx := NewContext(context.Background())
	s := StackFrom(ctx)

	s.Pop()
	s.Pop()
	assert.Equal(t, 0, s.Depth())
}

func TestSetCurrentReplacesTopFrame(t *testing.T) {
	ctx := NewContext(context.Background())
	s := StackFrom(ctx)

	a := newTestTenant("a")
	b := newTestTenant("b")

	SetCurrent(ctx, a)
	assert.Equal(t, 1, s.Depth())

	SetCurrent(ctx, b)
	assert.Equal(t, 1, s.Depth())

	cur, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, b.ID, cur.ID)
}

func TestSetCurrentNilMeansNoTenant(t *testing.T) {
	ctx := NewContext(context.Background())
	SetCurrent(ctx, newTestTenant("a"))
	SetCurrent(ctx, nil)

	_, ok := Current(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, StackFrom(ctx).Depth())
}

func TestClearEmptiesStack(t *testing.T) {
	ctx := NewContext(context.Background())
	s := StackFrom(ctx)

	s.Push(newTestTenant("a"))
	s.Push(newTestTenant("b"))
	Clear(ctx)

	assert.Equal(t, 0, s.Depth())
	_, ok := Current(ctx)
	assert.False(t, ok)
}

func TestWithScopeRestoresOuterTenant(t *testing.T) {
	ctx := NewContext(context.Background())
	outer := newTestTenant("outer")
	inner := newTestTenant("inner")

	StackFrom(ctx).Push(outer)

	err := WithScope(ctx, inner, func(ctx context.Context) error {
		cur, ok := Current(ctx)
		require.True(t, ok)
		assert.Equal(t, inner.ID, cur.ID)
		return nil
	})
	require.NoError(t, err)

	cur, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, outer.ID, cur.ID)
}

func TestWithScopePopsOnError(t *testing.T) {
	ctx := NewContext(context.Background())
	wantErr := errors.New("boom")

	err := WithScope(ctx, newTestTenant("a"), func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, StackFrom(ctx).Depth())
}

func TestWithScopePopsOnPanic(t *testing.T) {
	ctx := NewContext(context.Background())

	func() {
		defer func() {
			require.NotNil(t, recover())
		}()
		_ = WithScope(ctx, newTestTenant("a"), func(ctx context.Context) error {
			panic("boom")
		})
	}()

	assert.Equal(t, 0, StackFrom(ctx).Depth())
}

func TestWithScopeAttachesStackWhenMissing(t *testing.T) {
	tn := newTestTenant("fresh")

	err := WithScope(context.Background(), tn, func(ctx context.Context) error {
		cur, ok := Current(ctx)
		require.True(t, ok)
		assert.Equal(t, tn.ID, cur.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestConcurrentStacksAreIsolated(t *testing.T) {
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx := NewContext(context.Background())
			own := newTestTenant(uuid.NewString())

			err := WithScope(ctx, own, func(ctx context.Context) error {
				for j := 0; j < 100; j++ {
					cur, ok := Current(ctx)
					if !ok || cur.ID != own.ID {
						return errors.New("observed foreign tenant")
					}
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
}
