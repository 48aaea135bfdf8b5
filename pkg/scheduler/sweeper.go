package scheduler

import (
	"context"
	"time"

	"CompanionGuard/pkg/crisis"

	"go.uber.org/zap"
)

// OverdueSweeper 定期检查已通知但超时未查看的警报，只上报不重发，投递重试由通知渠道负责
type OverdueSweeper struct {
	Alerts *crisis.AlertManager
	// ViewDeadline is how long a notified alert may stay unviewed.
	ViewDeadline time.Duration
	Logger       *zap.Logger
	// Report receives the overdue count after every run.
	Report func(overdue int)
	Now    func() time.Time
}

// SweepResult summarizes one run.
type SweepResult struct {
	Overdue []crisis.CrisisAlert
}

func (s *OverdueSweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OverdueSweeper) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *OverdueSweeper) Run(ctx context.Context) {
	_, _ = s.Sweep(ctx)
}

// Sweep performs one pass and returns what it found.
func (s *OverdueSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()
	log := s.logger()

	overdue, err := s.Alerts.List(ctx, crisis.AlertFilter{
		Status:         crisis.StatusNotified,
		NotifiedBefore: now.Add(-s.ViewDeadline),
	})
	if err != nil {
		log.Error("list overdue alerts failed", zap.Error(err))
		return res, err
	}
	res.Overdue = overdue
	for _, a := range overdue {
		log.Warn("crisis alert not viewed in time",
			zap.String("alert_id", a.ID),
			zap.String("subject", a.SubjectCode),
			zap.String("severity", a.Severity.String()),
			zap.Duration("waiting", now.Sub(*a.NotifiedAt)),
		)
	}
	if s.Report != nil {
		s.Report(len(overdue))
	}
	return res, nil
}
