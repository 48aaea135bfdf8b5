package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig 日志配置，Filename 为空时只输出到标准输出
type LogConfig struct {
	Level      string `env:"LOG_LEVEL"`
	Filename   string `env:"LOG_FILENAME"`
	MaxSize    int    `env:"LOG_MAX_SIZE"`
	MaxAge     int    `env:"LOG_MAX_AGE"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS"`
}

var (
	mu     sync.RWMutex
	lg     = zap.NewNop()
	closer func() error
)

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a JSON logger writing to stdout and, when cfg.Filename is
// set, to a lumberjack-rotated file.
func New(cfg LogConfig, serviceName string) (*zap.Logger, func() error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := parseLevel(cfg.Level)
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	closeFn := func() error { return nil }
	if cfg.Filename != "" {
		rotate := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    orDefault(cfg.MaxSize, 100), // MB
			MaxAge:     orDefault(cfg.MaxAge, 30),   // days
			MaxBackups: orDefault(cfg.MaxBackups, 7),
			Compress:   true,
		}
		sinks = append(sinks, zapcore.AddSync(rotate))
		closeFn = rotate.Close
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.NewMultiWriteSyncer(sinks...), lvl)
	l := zap.New(core, zap.AddCaller())
	if serviceName != "" {
		l = l.With(zap.String("service_name", serviceName))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		l = l.With(zap.String("hostname", hostname))
	}
	return l, closeFn
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Init 初始化全局 logger
func Init(cfg LogConfig, serviceName string) *zap.Logger {
	l, closeFn := New(cfg, serviceName)
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer()
	}
	lg, closer = l, closeFn
	return l
}

// L returns the global logger. Before Init it discards everything.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return lg
}

// Sync flushes and closes the rotating file, if any.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = lg.Sync()
	if closer != nil {
		_ = closer()
		closer = nil
	}
}

func Debug(msg string, fields ...zap.Field) {
	L().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}
func Info(msg string, fields ...zap.Field) {
	L().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}
func Warn(msg string, fields ...zap.Field) {
	L().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}
func Error(msg string, fields ...zap.Field) {
	L().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}
