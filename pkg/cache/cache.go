package cache

import (
	"context"
	"time"
)

// Cache 字节级缓存接口，会话风险状态按 JSON 存储在其上
type Cache interface {
	// Get 获取缓存值，ok=false 表示不存在或已过期
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set 设置缓存值，ttl<=0 使用后端默认过期时间
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Close 关闭缓存连接
	Close() error
}

// Config 缓存配置
type Config struct {
	// 缓存类型: local | gocache | lru | redis | layered
	Type string `json:"type" yaml:"type" env:"CACHE_BACKEND"`

	Redis RedisConfig `json:"redis" yaml:"redis"`
	Local LocalConfig `json:"local" yaml:"local"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	// URL 形如 redis://:password@localhost:6379/0，设置后覆盖 Addr/Password/DB
	URL      string `json:"url" yaml:"url" env:"REDIS_URL"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`

	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	// 最大缓存项数，go-cache 后端不限制
	MaxSize int `json:"max_size" yaml:"max_size" env:"CACHE_SIZE"`

	// 默认过期时间
	DefaultExpiration time.Duration `json:"default_expiration" yaml:"default_expiration" env:"CACHE_TTL"`

	// 清理间隔
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

func (c LocalConfig) withDefaults() LocalConfig {
	if c.MaxSize <= 0 {
		c.MaxSize = 10000
	}
	if c.DefaultExpiration <= 0 {
		c.DefaultExpiration = 24 * time.Hour
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 10 * time.Minute
	}
	return c
}
