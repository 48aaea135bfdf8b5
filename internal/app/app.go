package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	handlers "CompanionGuard/internal/handler"
	"CompanionGuard/internal/listeners"
	"CompanionGuard/internal/models"
	"CompanionGuard/pkg/backup"
	"CompanionGuard/pkg/cache"
	"CompanionGuard/pkg/config"
	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/i18n"
	"CompanionGuard/pkg/metrics"
	"CompanionGuard/pkg/middleware"
	"CompanionGuard/pkg/notification"
	"CompanionGuard/pkg/scheduler"
	"CompanionGuard/pkg/sse"
	"CompanionGuard/pkg/storage"
	"CompanionGuard/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 组装好的服务：存储、筛查管线、警报管理、HTTP 与定时任务
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Engine   *gin.Engine
	Pipeline *crisis.Pipeline
	Alerts   *crisis.AlertManager
	Hub      *sse.Hub
	Metrics  *metrics.Metrics
	Cron     *scheduler.Cron
	Sweeper  *scheduler.OverdueSweeper

	closers []func()
}

// New wires every component from cfg. Optional backends (redis, minio,
// notifier channels) are only built when configured.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()
	var err error

	if cfg.MetricsEnabled {
		a.Metrics = metrics.NewMetrics()
	}

	// 1. database
	a.DB, err = util.OpenDatabase(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if a.Metrics != nil {
		if err = a.DB.Use(metrics.NewGormPlugin(a.Metrics)); err != nil {
			return nil, fmt.Errorf("register gorm metrics: %w", err)
		}
	}
	if err = models.Migrate(a.DB); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err = a.DB.AutoMigrate(&middleware.OperationLog{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// 2. shared redis client
	var rdb *redis.Client
	if cfg.Cache.RedisURL != "" {
		rdb, err = cache.NewRedisClient(cache.RedisConfig{URL: cfg.Cache.RedisURL})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	// 3. conversation state
	c, err := newStateCache(cfg.Cache, rdb)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = c.Close() })
	states := cache.NewStateStore(c, cfg.Cache.TTL)

	// 4. classifier and responder
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	source, key, err := PatternSource(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	// 读取失败时回退到内置模式表，不阻止启动
	table, _ := storage.LoadPatternTable(ctx, source, key, logger)
	classifier, err := crisis.NewClassifier(table)
	if err != nil {
		return nil, err
	}
	responder := crisis.NewResponder()
	if _, err = i18n.LoadCatalogs(responder, cfg.Patterns.CatalogDir, logger); err != nil {
		return nil, err
	}

	// 5. alert manager
	notifier, err := a.newNotifier(cfg.Notify)
	if err != nil {
		return nil, err
	}
	a.Hub = sse.NewHub(30*time.Second, 256)
	opts := []crisis.ManagerOption{
		crisis.WithLogger(logger),
		crisis.WithListener(listeners.AlertEvents(a.Hub, logger)),
		crisis.WithListener(listeners.ImmediateAlerts(func(alert crisis.CrisisAlert) {
			logger.Warn("immediate crisis alert raised",
				zap.String("alert_id", alert.ID),
				zap.String("subject", alert.SubjectCode),
			)
		})),
	}
	var recorder crisis.Recorder
	if a.Metrics != nil {
		recorder = a.Metrics
		opts = append(opts, crisis.WithRecorder(a.Metrics))
	}
	alertStore := models.NewAlertStore(a.DB)
	a.Alerts = crisis.NewAlertManager(alertStore, notifier, opts...)

	a.Pipeline = crisis.NewPipeline(crisis.PipelineConfig{
		Classifier: classifier,
		Responder:  responder,
		Policy: crisis.Policy{
			SupportThreshold:         uint(max(cfg.SupportThreshold, 0)),
			EndingTurnLimit:          uint(max(cfg.EndingTurnLimit, 0)),
			EndingTurnLimitAfterRest: uint(max(cfg.EndingTurnLimitAfterRest, 0)),
		},
		States:   states,
		Alerts:   a.Alerts,
		Logger:   logger,
		Recorder: recorder,
	})

	// 6. http
	rl, idem, err := a.newGuards(cfg, rdb)
	if err != nil {
		return nil, err
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	a.Engine = gin.New()
	a.Engine.Use(gin.Recovery(), middleware.RequestLogger(logger))
	handlers.NewHandlers(handlers.Options{
		APIPrefix:      cfg.APIPrefix,
		Pipeline:       a.Pipeline,
		Alerts:         a.Alerts,
		History:        alertStore,
		Hub:            a.Hub,
		Metrics:        a.Metrics,
		Limiter:        rl,
		IdemStore:      idem,
		CallbackSecret: cfg.Notify.CallbackSecret,
		DB:             a.DB,
		Logger:         logger,
	}).Register(a.Engine)

	// 7. overdue sweep
	a.Sweeper = &scheduler.OverdueSweeper{
		Alerts:       a.Alerts,
		ViewDeadline: cfg.ViewDeadline,
		Logger:       logger,
	}
	if a.Metrics != nil {
		a.Sweeper.Report = a.Metrics.SetOverdueAlerts
	}
	a.Cron = scheduler.NewCron(time.UTC, logger)
	if _, err = a.Cron.Add(cfg.SweepSchedule, a.Sweeper); err != nil {
		return nil, fmt.Errorf("schedule overdue sweep %q: %w", cfg.SweepSchedule, err)
	}
	if cfg.BackupSchedule != "" {
		archiver := &backup.AlertArchiver{
			Alerts: a.Alerts,
			Store:  storage.NewLocalStore(cfg.BackupPath),
			Logger: logger,
		}
		if _, err = a.Cron.Add(cfg.BackupSchedule, archiver); err != nil {
			return nil, fmt.Errorf("schedule alert backup %q: %w", cfg.BackupSchedule, err)
		}
	}

	ready = true
	logger.Info("crisis service ready",
		zap.String("patterns", classifier.Version()),
		zap.Any("policy", a.Pipeline.Policy()),
		zap.Bool("notifier", notifier != nil),
	)
	return a, nil
}

func newStateCache(cfg config.CacheConfig, rdb *redis.Client) (cache.Cache, error) {
	local := cache.LocalConfig{MaxSize: cfg.Size, DefaultExpiration: cfg.TTL}
	switch cfg.Backend {
	case "redis", "layered":
		if rdb == nil {
			return nil, fmt.Errorf("cache backend %s requires REDIS_URL", cfg.Backend)
		}
		distributed := cache.NewRedisCacheFromClient(rdb, cfg.TTL)
		if cfg.Backend == "redis" {
			return distributed, nil
		}
		return cache.Layered(cache.NewLocalCache(local), distributed), nil
	default:
		return cache.NewCache(cache.Config{Type: cfg.Backend, Local: local})
	}
}

// PatternSource picks where the pattern table lives: a local file, a MinIO
// object, or nowhere (compiled-in table).
func PatternSource(cfg config.PatternConfig) (storage.Store, string, error) {
	switch {
	case cfg.File != "":
		return storage.NewLocalStore(filepath.Dir(cfg.File)), filepath.Base(cfg.File), nil
	case cfg.Endpoint != "" && cfg.Bucket != "":
		s, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, "", err
		}
		return s, cfg.Object, nil
	default:
		return nil, "", nil
	}
}

func (a *App) newNotifier(cfg config.NotifyConfig) (crisis.Notifier, error) {
	var channels []crisis.Notifier
	if cfg.WebhookURL != "" {
		channels = append(channels, notification.NewWebhook(notification.WebhookConfig{
			URL:     cfg.WebhookURL,
			Secret:  cfg.WebhookSecret,
			Timeout: cfg.WebhookTimeout,
			Retries: cfg.WebhookRetries,
		}, a.Logger))
	}
	if cfg.SMSEndpoint != "" && len(cfg.SMSPhones) > 0 {
		channels = append(channels, notification.NewSMS(
			notification.SMSConfig{Endpoint: cfg.SMSEndpoint, Phones: cfg.SMSPhones},
			notification.NewHTTPSMSClient(cfg.SMSEndpoint)))
	}
	if cfg.PushAppKey != "" && len(cfg.PushAudience) > 0 {
		jc := notification.JPushConfig{
			Endpoint:     cfg.PushEndpoint,
			AppKey:       cfg.PushAppKey,
			MasterSecret: cfg.PushSecret,
			Alias:        cfg.PushAudience,
		}
		channels = append(channels, notification.NewJPush(jc, notification.NewJPushClient(jc)))
	}
	if cfg.MQTTBroker != "" {
		mc := notification.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		}
		pub, disconnect, err := notification.NewMQTTPublisher(mc)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, disconnect)
		channels = append(channels, notification.NewMQTT(mc, pub))
	}
	if len(channels) == 0 {
		a.Logger.Warn("no crisis notifier configured, alerts stay in created state until confirmed")
		return nil, nil
	}
	return notification.NewFanout(a.Logger, channels...), nil
}

func (a *App) newGuards(cfg *config.Config, rdb *redis.Client) (*middleware.RateLimiter, middleware.IdemStore, error) {
	idem := middleware.NewMemoryIdemStore()
	if rdb != nil {
		idem = middleware.NewRedisIdemStore(rdb)
	}
	if cfg.ScreenRateLimit == "" {
		return nil, idem, nil
	}
	var store limiter.Store
	if rdb != nil {
		s, err := middleware.NewRedisLimiterStore(rdb)
		if err != nil {
			return nil, nil, err
		}
		store = s
	}
	rl, err := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       cfg.ScreenRateLimit,
		Identifier: "header",
		HeaderName: "X-Subject-Code",
	}, store)
	if err != nil {
		return nil, nil, fmt.Errorf("screen rate limit %q: %w", cfg.ScreenRateLimit, err)
	}
	if a.Metrics != nil {
		rl.WithObserver(middleware.NewPrometheusObserver(a.Metrics.Registry()))
	}
	return rl, idem, nil
}

// Run serves HTTP and runs the sweep until ctx is cancelled, then shuts
// both down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.Cron.Start()
	defer a.Cron.Stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
