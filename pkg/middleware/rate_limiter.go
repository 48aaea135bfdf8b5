package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"CompanionGuard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const CodeTooManyRequests = 4290

// RateLimiterConfig 限流配置
//
// 示例：Rate: "120-M"、Identifier: "ip" 或 "header"、HeaderName: "X-Subject-Code"
type RateLimiterConfig struct {
	Rate       string   `json:"rate"`
	Identifier string   `json:"identifier"` // ip|header
	HeaderName string   `json:"header_name"`
	SkipPaths  []string `json:"skip_paths"` // 前缀匹配
}

// MetricsObserver 指标上报接口
type MetricsObserver interface {
	OnAllow(route string)
	OnDeny(route string)
}

// PrometheusObserver 基于 Prometheus 的实现
type PrometheusObserver struct {
	allow *prometheus.CounterVec
	deny  *prometheus.CounterVec
}

func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	p := &PrometheusObserver{
		allow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_allow_total",
			Help: "Allowed requests by rate limiter",
		}, []string{"route"}),
		deny: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_deny_total",
			Help: "Denied requests by rate limiter",
		}, []string{"route"}),
	}
	reg.MustRegister(p.allow, p.deny)
	return p
}

func (p *PrometheusObserver) OnAllow(route string) { p.allow.WithLabelValues(route).Inc() }
func (p *PrometheusObserver) OnDeny(route string)  { p.deny.WithLabelValues(route).Inc() }

// RateLimiter 面向实例的限流器
type RateLimiter struct {
	cfg      RateLimiterConfig
	limiter  *limiter.Limiter
	observer MetricsObserver
}

// NewRateLimiter builds a limiter over store; nil store means in-memory.
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) (*RateLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = memory.NewStore()
	}
	return &RateLimiter{cfg: cfg, limiter: limiter.New(store, rate)}, nil
}

// NewRedisLimiterStore shares counters between instances.
func NewRedisLimiterStore(client *redis.Client) (limiter.Store, error) {
	return redisstore.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "crisis_limiter"})
}

// WithObserver 配置指标观察者
func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.observer = observer
	return l
}

func (l *RateLimiter) key(c *gin.Context) string {
	route := c.FullPath()
	if l.cfg.Identifier == "header" && l.cfg.HeaderName != "" {
		if v := strings.TrimSpace(c.GetHeader(l.cfg.HeaderName)); v != "" {
			return route + "|h:" + v
		}
	}
	return route + "|ip:" + c.ClientIP()
}

// Middleware 返回 Gin 中间件
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range l.cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}
		route := c.FullPath()
		ctx, err := l.limiter.Get(c.Request.Context(), l.key(c))
		if err != nil {
			// 存储故障时放行，筛查不能因限流存储不可用而中断
			_ = c.Error(err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))
		if ctx.Reached {
			if l.observer != nil {
				l.observer.OnDeny(route)
			}
			retry := time.Until(time.Unix(ctx.Reset, 0))
			if retry < time.Second {
				retry = time.Second
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			response.AbortWithStatus(c, http.StatusTooManyRequests, CodeTooManyRequests, "too many requests")
			return
		}
		if l.observer != nil {
			l.observer.OnAllow(route)
		}
		c.Next()
	}
}
