package handlers

import (
	"CompanionGuard/internal/models"
	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/metrics"
	"CompanionGuard/pkg/middleware"
	"CompanionGuard/pkg/sse"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options wires the HTTP surface. Only Pipeline and Alerts are required.
type Options struct {
	APIPrefix string
	Pipeline  *crisis.Pipeline
	Alerts    *crisis.AlertManager
	// History is optional; without it /alerts/:id/history is not served.
	History   *models.AlertStore
	Hub       *sse.Hub
	Metrics   *metrics.Metrics
	Limiter   *middleware.RateLimiter
	IdemStore middleware.IdemStore
	// CallbackSecret 设置后投递回调必须携带签名
	CallbackSecret string
	Resources      []crisis.Resource
	DB             *gorm.DB
	Logger         *zap.Logger
}

type Handlers struct {
	opts Options
}

func NewHandlers(opts Options) *Handlers {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}
	if opts.Resources == nil {
		opts.Resources = crisis.DefaultResources()
	}
	if opts.Hub == nil {
		opts.Hub = sse.NewHub(30*time.Second, 256)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handlers{opts: opts}
}

func (h *Handlers) Register(engine *gin.Engine) {
	if h.opts.Metrics != nil {
		engine.Use(metrics.MonitorMiddleware(h.opts.Metrics))
		engine.GET("/metrics", gin.WrapH(h.opts.Metrics.Handler()))
	}

	r := engine.Group(h.opts.APIPrefix)
	r.Use(middleware.LanguageMiddleware())

	// Register System Module Routes
	h.registerSystemRoutes(r)

	// Register Crisis Module Routes
	h.registerCrisisRoutes(r)
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)
	}
}

func (h *Handlers) registerCrisisRoutes(r *gin.RouterGroup) {
	g := r.Group("crisis")

	screen := []gin.HandlerFunc{}
	if h.opts.Limiter != nil {
		screen = append(screen, h.opts.Limiter.Middleware())
	}
	// 客户端重发同一条消息时不重复累计风险
	screen = append(screen, middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{Store: h.opts.IdemStore}))
	g.POST("/screen", append(screen, h.handleScreen)...)

	g.DELETE("/conversations/:id", h.handleEndConversation)

	g.GET("/resources", h.handleResources)

	alerts := g.Group("alerts")
	{
		alerts.GET("", h.handleListAlerts)

		alerts.GET("/stream", h.handleAlertStream)

		alerts.GET("/export", h.handleExportAlerts)

		alerts.GET("/:id", h.handleGetAlert)

		if h.opts.History != nil {
			alerts.GET("/:id/history", h.handleAlertHistory)
		}

		// 投递回调，重复确认由生命周期返回 AlreadyNotified
		notified := []gin.HandlerFunc{}
		if h.opts.CallbackSecret != "" {
			notified = append(notified, middleware.SignVerifyMiddleware(h.opts.CallbackSecret, 5*time.Minute))
		}
		alerts.POST("/:id/notified", append(notified, h.handleAlertNotified)...)

		// 专业人员操作记入审计日志
		actions := []gin.HandlerFunc{}
		if h.opts.DB != nil {
			actions = append(actions, middleware.OperationLogMiddleware(h.opts.DB, h.opts.Logger))
		}
		alerts.POST("/:id/viewed", append(actions, h.handleAlertViewed)...)

		alerts.POST("/:id/resolve", append(actions, h.handleAlertResolve)...)
	}
}
