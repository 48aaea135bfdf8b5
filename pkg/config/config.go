package config

import (
	"log"
	"os"
	"time"

	"CompanionGuard/pkg/logger"
	"CompanionGuard/pkg/util"
)

// CacheConfig selects the conversation state backend.
type CacheConfig struct {
	Backend  string        `env:"CACHE_BACKEND"` // local | gocache | lru | redis | layered
	Size     int           `env:"CACHE_SIZE"`
	TTL      time.Duration `env:"CACHE_TTL"`
	RedisURL string        `env:"REDIS_URL"`
}

// NotifyConfig 危机警报的投递渠道，空值表示关闭对应渠道
type NotifyConfig struct {
	WebhookURL     string        `env:"CRISIS_WEBHOOK_URL"`
	WebhookSecret  string        `env:"CRISIS_WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `env:"CRISIS_WEBHOOK_TIMEOUT"`
	WebhookRetries int           `env:"CRISIS_WEBHOOK_RETRIES"`
	SMSEndpoint    string        `env:"CRISIS_SMS_ENDPOINT"`
	SMSPhones      []string      `env:"CRISIS_SMS_PHONES"`
	PushEndpoint   string        `env:"CRISIS_PUSH_ENDPOINT"`
	PushAppKey     string        `env:"CRISIS_PUSH_APP_KEY"`
	PushSecret     string        `env:"CRISIS_PUSH_SECRET"`
	PushAudience   []string      `env:"CRISIS_PUSH_AUDIENCE"`
	MQTTBroker     string        `env:"CRISIS_MQTT_BROKER"`
	MQTTClientID   string        `env:"CRISIS_MQTT_CLIENT_ID"`
	MQTTUsername   string        `env:"CRISIS_MQTT_USERNAME"`
	MQTTPassword   string        `env:"CRISIS_MQTT_PASSWORD"`
	MQTTTopic      string        `env:"CRISIS_MQTT_TOPIC"`
	// CallbackSecret 校验投递回调签名，空值表示不校验
	CallbackSecret string `env:"CRISIS_CALLBACK_SECRET"`
}

// PatternConfig locates a replacement pattern table. File wins over MinIO;
// with neither the compiled-in table is used.
type PatternConfig struct {
	File       string `env:"CRISIS_PATTERNS_FILE"`
	Endpoint   string `env:"MINIO_ENDPOINT"`
	AccessKey  string `env:"MINIO_ACCESS_KEY"`
	SecretKey  string `env:"MINIO_SECRET_KEY"`
	UseSSL     bool   `env:"MINIO_USE_SSL"`
	Bucket     string `env:"CRISIS_PATTERNS_BUCKET"`
	Object     string `env:"CRISIS_PATTERNS_OBJECT"`
	CatalogDir string `env:"CRISIS_CATALOG_DIR"`
}

type Config struct {
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`
	DBDriver  string `env:"DB_DRIVER"`
	DSN       string `env:"DSN"`
	Log       logger.LogConfig
	Cache     CacheConfig
	Notify    NotifyConfig
	Patterns  PatternConfig

	SupportThreshold         int `env:"CRISIS_SUPPORT_THRESHOLD"`
	EndingTurnLimit          int `env:"CRISIS_ENDING_TURN_LIMIT"`
	EndingTurnLimitAfterRest int `env:"CRISIS_ENDING_TURN_LIMIT_AFTER_REST"`

	SweepSchedule string        `env:"CRISIS_SWEEP_SCHEDULE"`
	ViewDeadline  time.Duration `env:"CRISIS_VIEW_DEADLINE"`
	// BackupSchedule 为空时不做警报台账备份
	BackupSchedule string `env:"CRISIS_BACKUP_SCHEDULE"`
	BackupPath     string `env:"CRISIS_BACKUP_PATH"`

	ScreenRateLimit string `env:"SCREEN_RATE_LIMIT"` // ulule format, e.g. "60-M"
	MetricsEnabled  bool   `env:"METRICS_ENABLED"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development" // 默认使用开发环境
	}
	err := util.LoadEnv(env)
	if err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = FromEnv()
	return nil
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() *Config {
	return &Config{
		Addr:      util.GetEnvOr("ADDR", ":8080"),
		Mode:      util.GetEnvOr("MODE", "release"),
		APIPrefix: util.GetEnvOr("API_PREFIX", "/api"),
		DBDriver:  util.GetEnv("DB_DRIVER"),
		DSN:       util.GetEnv("DSN"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Cache: CacheConfig{
			Backend:  util.GetEnvOr("CACHE_BACKEND", "local"),
			Size:     int(util.GetIntEnvOr("CACHE_SIZE", 10000)),
			TTL:      util.GetDurationEnvOr("CACHE_TTL", 24*time.Hour),
			RedisURL: util.GetEnv("REDIS_URL"),
		},
		Notify: NotifyConfig{
			WebhookURL:     util.GetEnv("CRISIS_WEBHOOK_URL"),
			WebhookSecret:  util.GetEnv("CRISIS_WEBHOOK_SECRET"),
			WebhookTimeout: util.GetDurationEnvOr("CRISIS_WEBHOOK_TIMEOUT", 10*time.Second),
			WebhookRetries: int(util.GetIntEnvOr("CRISIS_WEBHOOK_RETRIES", 2)),
			SMSEndpoint:    util.GetEnv("CRISIS_SMS_ENDPOINT"),
			SMSPhones:      util.GetListEnv("CRISIS_SMS_PHONES"),
			PushEndpoint:   util.GetEnv("CRISIS_PUSH_ENDPOINT"),
			PushAppKey:     util.GetEnv("CRISIS_PUSH_APP_KEY"),
			PushSecret:     util.GetEnv("CRISIS_PUSH_SECRET"),
			PushAudience:   util.GetListEnv("CRISIS_PUSH_AUDIENCE"),
			MQTTBroker:     util.GetEnv("CRISIS_MQTT_BROKER"),
			MQTTClientID:   util.GetEnvOr("CRISIS_MQTT_CLIENT_ID", "companionguard"),
			MQTTUsername:   util.GetEnv("CRISIS_MQTT_USERNAME"),
			MQTTPassword:   util.GetEnv("CRISIS_MQTT_PASSWORD"),
			MQTTTopic:      util.GetEnvOr("CRISIS_MQTT_TOPIC", "crisis/alerts"),
			CallbackSecret: util.GetEnv("CRISIS_CALLBACK_SECRET"),
		},
		Patterns: PatternConfig{
			File:       util.GetEnv("CRISIS_PATTERNS_FILE"),
			Endpoint:   util.GetEnv("MINIO_ENDPOINT"),
			AccessKey:  util.GetEnv("MINIO_ACCESS_KEY"),
			SecretKey:  util.GetEnv("MINIO_SECRET_KEY"),
			UseSSL:     util.GetBoolEnv("MINIO_USE_SSL"),
			Bucket:     util.GetEnv("CRISIS_PATTERNS_BUCKET"),
			Object:     util.GetEnvOr("CRISIS_PATTERNS_OBJECT", "patterns.yaml"),
			CatalogDir: util.GetEnv("CRISIS_CATALOG_DIR"),
		},
		SupportThreshold:         int(util.GetIntEnv("CRISIS_SUPPORT_THRESHOLD")),
		EndingTurnLimit:          int(util.GetIntEnv("CRISIS_ENDING_TURN_LIMIT")),
		EndingTurnLimitAfterRest: int(util.GetIntEnv("CRISIS_ENDING_TURN_LIMIT_AFTER_REST")),
		SweepSchedule:            util.GetEnvOr("CRISIS_SWEEP_SCHEDULE", "@every 5m"),
		ViewDeadline:             util.GetDurationEnvOr("CRISIS_VIEW_DEADLINE", 30*time.Minute),
		BackupSchedule:           util.GetEnv("CRISIS_BACKUP_SCHEDULE"),
		BackupPath:               util.GetEnvOr("CRISIS_BACKUP_PATH", "./backups"),
		ScreenRateLimit:          util.GetEnvOr("SCREEN_RATE_LIMIT", "120-M"),
		MetricsEnabled:           util.GetEnvOr("METRICS_ENABLED", "true") == "true",
	}
}
