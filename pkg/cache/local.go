package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruCache 基于 golang-lru 的有界本地缓存。过期时间统一为
// DefaultExpiration，Set 的 ttl 参数被忽略
type lruCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewLocalCache 创建本地 LRU 缓存
func NewLocalCache(config LocalConfig) Cache {
	config = config.withDefaults()
	return &lruCache{
		lru: expirable.NewLRU[string, []byte](config.MaxSize, nil, config.DefaultExpiration),
	}
}

func (lc *lruCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := lc.lru.Get(key)
	return v, ok, nil
}

func (lc *lruCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	lc.lru.Add(key, value)
	return nil
}

func (lc *lruCache) Delete(_ context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *lruCache) Close() error {
	lc.lru.Purge()
	return nil
}
