package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(config.Type) {
	case "", "local", "lru":
		return NewLocalCache(config.Local), nil
	case "gocache":
		return NewGoCache(config.Local), nil
	case "redis":
		return NewRedisCache(config.Redis, config.Local.withDefaults().DefaultExpiration)
	case "layered":
		return NewLayeredCache(config)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// NewLayeredCache 创建分层缓存（本地缓存 + Redis）
func NewLayeredCache(config Config) (Cache, error) {
	distributed, err := NewRedisCache(config.Redis, config.Local.withDefaults().DefaultExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	local := config.Local
	// 一级缓存过期时间短于 Redis，减少多实例间的陈旧读
	if local.DefaultExpiration <= 0 || local.DefaultExpiration > time.Minute {
		local.DefaultExpiration = time.Minute
	}
	return Layered(NewLocalCache(local), distributed), nil
}

// Layered stacks a local cache in front of a distributed one.
func Layered(local, distributed Cache) Cache {
	return &layeredCache{local: local, distributed: distributed}
}

// layeredCache 分层缓存实现
type layeredCache struct {
	local       Cache
	distributed Cache
}

// Get 从本地缓存获取，如果没有则从分布式缓存获取并回填本地缓存
func (lc *layeredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok, _ := lc.local.Get(ctx, key); ok {
		return value, true, nil
	}
	value, ok, err := lc.distributed.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = lc.local.Set(ctx, key, value, 0)
	return value, true, nil
}

// Set 先写分布式缓存，成功后再写本地缓存
func (lc *layeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := lc.distributed.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return lc.local.Set(ctx, key, value, ttl)
}

// Delete 从两个缓存层删除
func (lc *layeredCache) Delete(ctx context.Context, key string) error {
	if err := lc.local.Delete(ctx, key); err != nil {
		return err
	}
	return lc.distributed.Delete(ctx, key)
}

func (lc *layeredCache) Close() error {
	if err := lc.local.Close(); err != nil {
		return err
	}
	return lc.distributed.Close()
}
