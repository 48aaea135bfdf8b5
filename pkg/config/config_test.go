package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"API_PREFIX", "CACHE_BACKEND", "CRISIS_SWEEP_SCHEDULE", "CRISIS_VIEW_DEADLINE", "CRISIS_SUPPORT_THRESHOLD"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, "local", cfg.Cache.Backend)
	assert.Equal(t, "@every 5m", cfg.SweepSchedule)
	assert.Equal(t, 30*time.Minute, cfg.ViewDeadline)
	assert.Equal(t, 0, cfg.SupportThreshold)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CRISIS_SUPPORT_THRESHOLD", "3")
	t.Setenv("CRISIS_VIEW_DEADLINE", "10m")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CRISIS_SMS_PHONES", "+15550001,+15550002")

	cfg := FromEnv()
	assert.Equal(t, 3, cfg.SupportThreshold)
	assert.Equal(t, 10*time.Minute, cfg.ViewDeadline)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, []string{"+15550001", "+15550002"}, cfg.Notify.SMSPhones)
}
