package tenant

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNoTenantContext 租户所属实体操作时上下文为空, 属于编程错误, 绝不回退到猜测的租户
	ErrNoTenantContext = errors.New("no tenant in context for tenant-owned entity")

	// ErrTenantNotReady 租户未激活(开通未完成或被停用), 拒绝路由
	ErrTenantNotReady = errors.New("tenant is not active")

	// ErrSharedMigrateTarget 共享表迁移只允许在共享库执行
	ErrSharedMigrateTarget = errors.New("shared entity migration is only permitted against the shared target")

	// ErrTenantMigrateShared 租户表迁移不允许落到共享库
	ErrTenantMigrateShared = errors.New("tenant-owned entity migration must not target the shared database")

	// ErrTenantMismatch 写入时显式指定的租户与当前上下文不一致
	ErrTenantMismatch = errors.New("entity tenant does not match current tenant context")

	// ErrSchemaNotFound 租户schema不存在
	ErrSchemaNotFound = errors.New("tenant schema does not exist")
)

// CrossTenantError 跨租户引用 - 数据正确性问题, 绝不静默修正
type CrossTenantError struct {
	Field      string
	Table      string
	RefID      uuid.UUID
	WantTenant uuid.UUID
	GotTenant  uuid.UUID
}

func (e *CrossTenantError) Error() string {
	return fmt.Sprintf("cross-tenant reference: %s -> %s[%s] belongs to tenant %s, expected %s",
		e.Field, e.Table, e.RefID, e.GotTenant, e.WantTenant)
}

// IsCrossTenant 判断是否为跨租户引用错误
func IsCrossTenant(err error) bool {
	var ce *CrossTenantError
	return errors.As(err, &ce)
}
