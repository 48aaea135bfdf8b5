package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"CompanionGuard/pkg/errors"
	"CompanionGuard/pkg/response"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type IdemStore interface {
	// SetNX return true if set, false if the key already exists
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees a key whose request failed so the caller can retry it
	Release(ctx context.Context, key string) error
}

// memoryIdemStore 基于 go-cache，Add 在键存在时失败，天然原子
type memoryIdemStore struct {
	c *gocache.Cache
}

func NewMemoryIdemStore() IdemStore {
	return &memoryIdemStore{c: gocache.New(10*time.Minute, time.Minute)}
}

func (s *memoryIdemStore) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.c.Add(key, struct{}{}, ttl) == nil, nil
}

func (s *memoryIdemStore) Release(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

type redisIdemStore struct {
	client *redis.Client
	prefix string
}

// NewRedisIdemStore shares idempotency keys between instances.
func NewRedisIdemStore(client *redis.Client) IdemStore {
	return &redisIdemStore{client: client, prefix: "idem:"}
}

func (s *redisIdemStore) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+key, 1, ttl).Result()
}

func (s *redisIdemStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

type IdempotencyConfig struct {
	HeaderName string        // Idempotency-Key 的请求头名
	TTL        time.Duration // 决定一段时间内重复请求的拒绝窗口
	Store      IdemStore     // 可选外部存储（如 Redis）
}

// IdempotencyMiddleware rejects a request whose Idempotency-Key was already
// accepted with 409. Requests without the header pass through. Keys are
// scoped by method and path, and a key whose request ended with status >= 400
// is released so the same request can be retried.
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryIdemStore()
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" {
			c.Next()
			return
		}
		key = c.Request.Method + " " + c.Request.URL.Path + " " + key
		ok, err := store.SetNX(c.Request.Context(), key, cfg.TTL)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !ok {
			response.AbortWithStatus(c, http.StatusConflict, errors.CodeConflict, "duplicate request")
			return
		}
		c.Next()
		if c.Writer.Status() >= http.StatusBadRequest {
			// 失败的请求不占用幂等键
			_ = store.Release(context.WithoutCancel(c.Request.Context()), key)
		}
	}
}
