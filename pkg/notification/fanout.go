package notification

import (
	"context"
	"errors"
	"fmt"

	"CompanionGuard/pkg/crisis"

	"go.uber.org/zap"
)

// Fanout 依次尝试所有渠道，至少一个渠道送达即成功，回执取最早的送达
type Fanout struct {
	channels []crisis.Notifier
	logger   *zap.Logger
}

func NewFanout(logger *zap.Logger, channels ...crisis.Notifier) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{channels: channels, logger: logger}
}

// Len returns the number of configured channels.
func (f *Fanout) Len() int { return len(f.channels) }

func (f *Fanout) Deliver(ctx context.Context, alert crisis.CrisisAlert) (crisis.DeliveryReceipt, error) {
	if len(f.channels) == 0 {
		return crisis.DeliveryReceipt{}, errors.New("no notification channel configured")
	}
	var (
		first    crisis.DeliveryReceipt
		ok       bool
		failures []error
	)
	for i, ch := range f.channels {
		r, err := ch.Deliver(ctx, alert)
		if err != nil {
			f.logger.Warn("crisis alert channel failed",
				zap.String("alert_id", alert.ID),
				zap.Int("channel", i),
				zap.Error(err),
			)
			failures = append(failures, err)
			continue
		}
		if !ok || r.DeliveredAt.Before(first.DeliveredAt) {
			first = r
			ok = true
		}
	}
	if !ok {
		return crisis.DeliveryReceipt{}, fmt.Errorf("all %d channels failed: %w", len(f.channels), errors.Join(failures...))
	}
	return first, nil
}
