package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCacheWrapper go-cache包装器，支持逐项过期时间
type goCacheWrapper struct {
	cache *gocache.Cache
}

// NewGoCache 创建基于go-cache的本地缓存
func NewGoCache(config LocalConfig) Cache {
	config = config.withDefaults()
	return &goCacheWrapper{
		cache: gocache.New(config.DefaultExpiration, config.CleanupInterval),
	}
}

func (gc *goCacheWrapper) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, found := gc.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	b, _ := value.([]byte)
	return b, true, nil
}

func (gc *goCacheWrapper) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	gc.cache.Set(key, value, ttl)
	return nil
}

func (gc *goCacheWrapper) Delete(_ context.Context, key string) error {
	gc.cache.Delete(key)
	return nil
}

// Close 清空缓存，go-cache 的清理协程随进程退出
func (gc *goCacheWrapper) Close() error {
	gc.cache.Flush()
	return nil
}
