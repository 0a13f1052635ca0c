package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/metrics"
	"github.com/petshop-system/petshop-management/internal/model"
)

// OwnedEntity 同时具备表名和租户归属的业务实体
type OwnedEntity interface {
	Tabler
	model.TenantOwned
}

// refTenantLookup 查询被引用行的归属租户, 测试时可替换
type refTenantLookup func(db *gorm.DB, table string, id uuid.UUID) (uuid.UUID, error)

// Gateway 租户作用域查询网关
// 读默认按当前租户过滤, 写默认盖章租户归属, 跨实体引用在校验和落库两处检查
type Gateway struct {
	router *Router
	logger *zap.Logger
	lookup refTenantLookup
}

func NewGateway(router *Router, logger *zap.Logger) *Gateway {
	return &Gateway{
		router: router,
		logger: logger,
		lookup: lookupRefTenant,
	}
}

func lookupRefTenant(db *gorm.DB, table string, id uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := db.Table(table).Select("tenant_id").Where("id = ?", id).Scan(&tenantID).Error
	if err != nil {
		return uuid.Nil, err
	}
	if tenantID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s[%s]: referenced row not found", table, id)
	}
	return tenantID, nil
}

// Scoped 当前租户作用域内的查询句柄, tenant_id过滤已就位
// 后续链式调用都继承该过滤条件
func (g *Gateway) Scoped(ctx context.Context, entity OwnedEntity) (*gorm.DB, error) {
	db, err := g.router.Route(ctx, entity, OpRead)
	if err != nil {
		metrics.RoutingFailures.WithLabelValues(routingFailureReason(err)).Inc()
		return nil, err
	}

	cur, _ := Current(ctx)
	return db.Model(entity).Where("tenant_id = ?", cur.ID), nil
}

// AllTenants 管理/报表代码的显式逃生口: 给定租户的无过滤句柄
// 名字刻意区别于Scoped, 防止误用成默认路径
func (g *Gateway) AllTenants(t *model.Tenant) (*gorm.DB, error) {
	return g.router.SchemaDB(t.SchemaName)
}

// Create 落库并盖章租户归属
// 未显式指定租户时从上下文补齐; 显式指定且与上下文不一致时拒绝写入
func (g *Gateway) Create(ctx context.Context, entity OwnedEntity) error {
	db, err := g.router.Route(ctx, entity, OpWrite)
	if err != nil {
		metrics.RoutingFailures.WithLabelValues(routingFailureReason(err)).Inc()
		return err
	}

	cur, _ := Current(ctx)
	if err := g.stamp(entity, cur); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		// 校验可能被低层写入绕过, 落库事务内再查一遍
		if err := g.checkReferences(tx, entity); err != nil {
			return err
		}
		return tx.Create(entity).Error
	})
}

// Save 更新已有实体, 同样执行盖章一致性与引用校验
func (g *Gateway) Save(ctx context.Context, entity OwnedEntity) error {
	db, err := g.router.Route(ctx, entity, OpWrite)
	if err != nil {
		metrics.RoutingFailures.WithLabelValues(routingFailureReason(err)).Inc()
		return err
	}

	cur, _ := Current(ctx)
	if err := g.stamp(entity, cur); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := g.checkReferences(tx, entity); err != nil {
			return err
		}
		return tx.Where("tenant_id = ?", cur.ID).Save(entity).Error
	})
}

// Delete 删除当前租户作用域内的一行
func (g *Gateway) Delete(ctx context.Context, entity OwnedEntity, id uuid.UUID) error {
	db, err := g.router.Route(ctx, entity, OpWrite)
	if err != nil {
		metrics.RoutingFailures.WithLabelValues(routingFailureReason(err)).Inc()
		return err
	}

	cur, _ := Current(ctx)
	return db.Where("tenant_id = ? AND id = ?", cur.ID, id).Delete(entity).Error
}

// Validate 落库前的引用校验入口, 供handler在保存前单独调用
func (g *Gateway) Validate(ctx context.Context, entity OwnedEntity) error {
	db, err := g.router.Route(ctx, entity, OpRead)
	if err != nil {
		return err
	}

	cur, _ := Current(ctx)
	if entity.GetTenantID() != uuid.Nil && entity.GetTenantID() != cur.ID {
		metrics.CrossTenantViolations.WithLabelValues(entity.TableName()).Inc()
		return fmt.Errorf("validate %s: %w", entity.TableName(), ErrTenantMismatch)
	}
	return g.checkReferences(db, entity)
}

// stamp 从上下文补齐租户归属; 显式不一致视为写入违规
func (g *Gateway) stamp(entity OwnedEntity, cur *model.Tenant) error {
	if entity.GetTenantID() == uuid.Nil {
		entity.SetTenantID(cur.ID)
		return nil
	}
	if entity.GetTenantID() != cur.ID {
		metrics.CrossTenantViolations.WithLabelValues(entity.TableName()).Inc()
		g.logger.Warn("rejected write with mismatched tenant stamp",
			zap.String("table", entity.TableName()),
			zap.String("entity_tenant", entity.GetTenantID().String()),
			zap.String("context_tenant", cur.ID.String()))
		return fmt.Errorf("write %s: %w", entity.TableName(), ErrTenantMismatch)
	}
	return nil
}

// checkReferences 校验实体声明的每个引用与实体本身归属同一租户
func (g *Gateway) checkReferences(db *gorm.DB, entity OwnedEntity) error {
	holder, ok := any(entity).(model.ReferenceHolder)
	if !ok {
		return nil
	}

	want := entity.GetTenantID()
	for _, ref := range holder.References() {
		if ref.ID == uuid.Nil {
			continue
		}

		got, err := g.lookup(db, ref.Table, ref.ID)
		if err != nil {
			return fmt.Errorf("check reference %s: %w", ref.Field, err)
		}
		if got != want {
			metrics.CrossTenantViolations.WithLabelValues(entity.TableName()).Inc()
			return &CrossTenantError{
				Field:      ref.Field,
				Table:      ref.Table,
				RefID:      ref.ID,
				WantTenant: want,
				GotTenant:  got,
			}
		}
	}
	return nil
}

func routingFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrNoTenantContext):
		return "no_context"
	case errors.Is(err, ErrTenantNotReady):
		return "tenant_not_ready"
	default:
		return "other"
	}
}
