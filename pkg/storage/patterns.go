package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"CompanionGuard/pkg/crisis"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadPatternTable reads and validates the table stored under key. A nil
// store, a missing object or an invalid table all fall back to the
// compiled-in table; the returned error says why.
func LoadPatternTable(ctx context.Context, store Store, key string, logger *zap.Logger) (crisis.PatternTable, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := crisis.DefaultPatternTable()
	if store == nil {
		return fallback, nil
	}
	rc, err := store.Read(ctx, key)
	if err != nil {
		logger.Warn("pattern table unavailable, using default",
			zap.String("key", key), zap.String("version", fallback.Version), zap.Error(err))
		return fallback, fmt.Errorf("read pattern table %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fallback, fmt.Errorf("read pattern table %s: %w", key, err)
	}
	table, err := crisis.ParsePatternTable(data)
	if err != nil {
		logger.Error("invalid pattern table, using default", zap.String("key", key), zap.Error(err))
		return fallback, err
	}
	logger.Info("pattern table loaded", zap.String("key", key), zap.String("version", table.Version),
		zap.Int("entries", len(table.Entries)))
	return table, nil
}

// PublishPatternTable 将模式表以 YAML 写入存储，写入前校验
func PublishPatternTable(ctx context.Context, store Store, key string, table crisis.PatternTable) error {
	if err := table.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(table)
	if err != nil {
		return err
	}
	return store.Write(ctx, key, bytes.NewReader(data), int64(len(data)))
}
