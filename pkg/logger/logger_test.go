package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestInitWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crisis.log")
	Init(LogConfig{Level: "info", Filename: path}, "companionguard")
	defer Sync()

	Info("message screened", zap.String("severity", "elevated"))
	Debug("dropped below level")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"message screened"`)
	assert.Contains(t, string(data), `"service_name":"companionguard"`)
	assert.NotContains(t, string(data), "dropped below level")
}
