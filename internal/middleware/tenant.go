package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/petshop-system/petshop-management/internal/constants"
	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/service"
	"github.com/petshop-system/petshop-management/internal/tenant"
)

// TenantMiddleware 租户解析中间件
// 解析优先级: X-Tenant-ID请求头 > token声明 > Host子域名
// 恰好解析出一个激活租户, 否则请求终止, 任何租户作用域操作都不会发生
// 解析成功后为本请求挂载独立的租户栈并压入该租户, 请求结束无条件清理
func TenantMiddleware(tenantService *service.TenantService, baseDomain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := resolveTenant(c, tenantService, baseDomain)
		if err != nil {
			status := http.StatusNotFound
			if err == service.ErrTenantInactive {
				status = http.StatusForbidden
			}
			c.JSON(status, gin.H{"error": "tenant resolution failed: " + err.Error()})
			c.Abort()
			return
		}

		// 每个请求独立的租户栈, 与并发请求互不可见
		ctx := tenant.NewContext(c.Request.Context())
		stack := tenant.StackFrom(ctx)
		stack.Push(t)
		defer stack.Clear()

		c.Request = c.Request.WithContext(ctx)
		c.Set("tenant", t)
		c.Next()
	}
}

func resolveTenant(c *gin.Context, tenantService *service.TenantService, baseDomain string) (*model.Tenant, error) {
	// 1. 显式租户头
	if id := c.GetHeader(constants.TenantIDHeader); id != "" {
		t, err := tenantService.GetTenant(id)
		if err != nil {
			return nil, err
		}
		if !t.IsActive {
			return nil, service.ErrTenantInactive
		}
		return t, nil
	}

	// 2. 认证token中的租户声明
	if claim, exists := c.Get("token_tenant_id"); exists {
		if id, ok := claim.(string); ok && id != "" {
			t, err := tenantService.GetTenant(id)
			if err != nil {
				return nil, err
			}
			if !t.IsActive {
				return nil, service.ErrTenantInactive
			}
			return t, nil
		}
	}

	// 3. Host子域名
	if subdomain := subdomainFromHost(c.Request.Host, baseDomain); subdomain != "" {
		return tenantService.Resolve(c.Request.Context(), subdomain)
	}

	return nil, service.ErrTenantNotFound
}

// subdomainFromHost 从请求Host提取子域名
func subdomainFromHost(host, baseDomain string) string {
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	if baseDomain == "" || !strings.HasSuffix(host, "."+baseDomain) {
		return ""
	}

	sub := strings.TrimSuffix(host, "."+baseDomain)
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return strings.ToLower(sub)
}
