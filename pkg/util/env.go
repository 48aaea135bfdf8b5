package util

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv 加载 .env 与 .env.<env>，已存在的环境变量不会被覆盖
func LoadEnv(env string) error {
	candidates := []string{".env"}
	if env != "" {
		candidates = append(candidates, ".env."+env)
	}
	var files []string
	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no env file found for %q", env)
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files %v: %w", files, err)
	}
	return nil
}

func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetEnvOr returns def when key is unset or blank.
func GetEnvOr(key, def string) string {
	if v := GetEnv(key); v != "" {
		return v
	}
	return def
}

func GetIntEnv(key string) int64 {
	return cast.ToInt64(GetEnv(key))
}

// GetIntEnvOr returns def when key is unset or not a number.
func GetIntEnvOr(key string, def int64) int64 {
	v, err := cast.ToInt64E(GetEnv(key))
	if err != nil || GetEnv(key) == "" {
		return def
	}
	return v
}

func GetBoolEnv(key string) bool {
	return cast.ToBool(GetEnv(key))
}

// GetDurationEnvOr parses values such as "30m" or "45s"; a bare number is
// taken as nanoseconds, matching cast.
func GetDurationEnvOr(key string, def time.Duration) time.Duration {
	raw := GetEnv(key)
	if raw == "" {
		return def
	}
	d, err := cast.ToDurationE(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetListEnv splits a comma separated value, dropping blanks.
func GetListEnv(key string) []string {
	var out []string
	for _, s := range strings.Split(GetEnv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
