package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/petshop-system/petshop-management/internal/model"
)

// TenantCache 子域名->租户的redis缓存
// 解析中间件的热路径, 缓存未命中或redis不可用时回源注册表
type TenantCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewTenantCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TenantCache {
	return &TenantCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(subdomain string) string {
	return "tenant:subdomain:" + subdomain
}

// Get 按子域名取缓存的租户, 未命中返回nil
func (c *TenantCache) Get(ctx context.Context, subdomain string) *model.Tenant {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, cacheKey(subdomain)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("tenant cache read failed", zap.String("subdomain", subdomain), zap.Error(err))
		}
		return nil
	}

	var t model.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		c.logger.Warn("tenant cache entry corrupted", zap.String("subdomain", subdomain), zap.Error(err))
		return nil
	}
	return &t
}

// Set 写入缓存, 失败只记日志不影响请求
func (c *TenantCache) Set(ctx context.Context, t *model.Tenant) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(t.Subdomain), data, c.ttl).Err(); err != nil {
		c.logger.Warn("tenant cache write failed", zap.String("subdomain", t.Subdomain), zap.Error(err))
	}
}

// Invalidate 租户变更(停用/配置修改)后清除缓存
func (c *TenantCache) Invalidate(ctx context.Context, subdomain string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(subdomain)).Err(); err != nil {
		c.logger.Warn("tenant cache invalidation failed", zap.String("subdomain", subdomain), zap.Error(err))
	}
}
