package backup

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/report"
	"CompanionGuard/pkg/storage"

	"go.uber.org/zap"
)

// AlertArchiver 定期把警报台账导出为 Excel 写入存储，与数据库驱动无关
type AlertArchiver struct {
	Alerts *crisis.AlertManager
	Store  storage.Store
	// Prefix 备份对象的目录前缀
	Prefix string
	Logger *zap.Logger
	Now    func() time.Time
}

func (b *AlertArchiver) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Run is the cron entry point; failures are logged.
func (b *AlertArchiver) Run(ctx context.Context) {
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}
	key, n, err := b.Archive(ctx)
	if err != nil {
		log.Warn("alert backup failed", zap.Error(err))
		return
	}
	log.Info("alert backup completed", zap.String("key", key), zap.Int("alerts", n))
}

// Archive writes one snapshot of every alert and returns its key.
func (b *AlertArchiver) Archive(ctx context.Context) (string, int, error) {
	alerts, err := b.Alerts.List(ctx, crisis.AlertFilter{})
	if err != nil {
		return "", 0, fmt.Errorf("list alerts: %w", err)
	}
	data, err := report.AlertsWorkbook(alerts)
	if err != nil {
		return "", 0, err
	}
	key := path.Join(b.Prefix, fmt.Sprintf("crisis_alerts_%s.xlsx", b.now().UTC().Format("20060102_150405")))
	if err := b.Store.Write(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", 0, fmt.Errorf("write backup %s: %w", key, err)
	}
	return key, len(alerts), nil
}
