package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"CompanionGuard/pkg/crisis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepFindsOverdueAlerts(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	m := crisis.NewAlertManager(crisis.NewMemoryAlertStore(), nil, crisis.WithClock(func() time.Time { return start }))

	old, err := m.Create(ctx, "S-1", crisis.SeverityImmediate, "r")
	require.NoError(t, err)
	_, err = m.MarkNotified(ctx, old.ID, start)
	require.NoError(t, err)

	fresh, err := m.Create(ctx, "S-2", crisis.SeverityElevated, "r")
	require.NoError(t, err)
	_, err = m.MarkNotified(ctx, fresh.ID, start.Add(50*time.Minute))
	require.NoError(t, err)

	reported := -1
	s := &OverdueSweeper{
		Alerts:       m,
		ViewDeadline: 30 * time.Minute,
		Report:       func(n int) { reported = n },
		Now:          func() time.Time { return start.Add(time.Hour) },
	}
	res, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, res.Overdue, 1)
	assert.Equal(t, old.ID, res.Overdue[0].ID)
	assert.Equal(t, 1, reported)
}

func TestSweepNeverRedispatches(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	var deliveries atomic.Int32
	release := make(chan struct{})
	notifier := crisis.NotifierFunc(func(ctx context.Context, a crisis.CrisisAlert) (crisis.DeliveryReceipt, error) {
		deliveries.Add(1)
		<-release
		return crisis.DeliveryReceipt{DeliveredAt: start.Add(3 * time.Minute), Reference: a.ID}, nil
	})
	m := crisis.NewAlertManager(crisis.NewMemoryAlertStore(), notifier, crisis.WithClock(func() time.Time { return start }))
	a, err := m.Create(ctx, "S-1", crisis.SeverityImmediate, "r")
	require.NoError(t, err)

	// first delivery still in flight while the sweep runs
	dispatched := make(chan error, 1)
	go func() {
		_, err := m.Dispatch(ctx, a)
		dispatched <- err
	}()
	require.Eventually(t, func() bool { return deliveries.Load() == 1 }, time.Second, 5*time.Millisecond)

	s := &OverdueSweeper{Alerts: m, ViewDeadline: time.Hour,
		Now: func() time.Time { return start.Add(2 * time.Minute) }}
	res, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Overdue)

	close(release)
	require.NoError(t, <-dispatched)
	assert.Equal(t, int32(1), deliveries.Load())

	got, err := m.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, crisis.StatusNotified, got.Status())
}

func TestSweepLeavesFailedDeliveryCreated(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	var calls atomic.Int32
	notifier := crisis.NotifierFunc(func(context.Context, crisis.CrisisAlert) (crisis.DeliveryReceipt, error) {
		calls.Add(1)
		return crisis.DeliveryReceipt{}, errors.New("down")
	})
	m := crisis.NewAlertManager(crisis.NewMemoryAlertStore(), notifier, crisis.WithClock(func() time.Time { return start }))
	a, err := m.Create(ctx, "S-1", crisis.SeverityImmediate, "r")
	require.NoError(t, err)
	_, err = m.Dispatch(ctx, a)
	require.Error(t, err)

	s := &OverdueSweeper{Alerts: m, ViewDeadline: time.Hour,
		Now: func() time.Time { return start.Add(time.Hour) }}
	_, err = s.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	got, err := m.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, crisis.StatusCreated, got.Status())
}

func TestCronRunsJob(t *testing.T) {
	c := NewCron(time.UTC, nil)
	ran := make(chan struct{}, 1)
	_, err := c.Add("@every 1s", FuncJob(func(ctx context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	c.Start()
	defer c.Stop()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
