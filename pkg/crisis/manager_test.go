package crisis

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	mu          sync.Mutex
	created     map[RiskSeverity]int
	transitions map[string][2]int // ok, failed
	offers      int
	classified  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{created: map[RiskSeverity]int{}, transitions: map[string][2]int{}}
}

func (r *countingRecorder) ObserveClassification(ClassificationResult) {
	r.mu.Lock()
	r.classified++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveSupportOffer() {
	r.mu.Lock()
	r.offers++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveAlertCreated(s RiskSeverity) {
	r.mu.Lock()
	r.created[s]++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveTransition(name string, err error) {
	r.mu.Lock()
	c := r.transitions[name]
	if err != nil {
		c[1]++
	} else {
		c[0]++
	}
	r.transitions[name] = c
	r.mu.Unlock()
}

func sequentialIDs() func() string {
	var n int64
	return func() string { return fmt.Sprintf("alert-%d", atomic.AddInt64(&n, 1)) }
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	rec := newCountingRecorder()
	m := NewAlertManager(NewMemoryAlertStore(), nil,
		WithClock(fixedClock(t0)), WithIDGenerator(sequentialIDs()), WithRecorder(rec))

	a, err := m.Create(ctx, "S-7", SeverityElevated, "elevated after 2 indicators")
	require.NoError(t, err)
	assert.Equal(t, "alert-1", a.ID)
	assert.Equal(t, t0, a.CreatedAt)

	// no notifier: dispatch is a no-op
	same, err := m.Dispatch(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, same.Status())

	_, err = m.MarkViewed(ctx, a.ID)
	assert.True(t, stderrors.Is(err, ErrNotYetNotified))

	_, err = m.MarkNotified(ctx, a.ID, t0.Add(time.Second))
	require.NoError(t, err)
	_, err = m.MarkNotified(ctx, a.ID, t0.Add(2*time.Second))
	assert.True(t, stderrors.Is(err, ErrAlreadyNotified))

	_, err = m.MarkViewed(ctx, a.ID)
	require.NoError(t, err)
	done, err := m.Resolve(ctx, a.ID, "follow-up booked")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, done.Status())

	stored, err := m.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, done, stored)

	assert.Equal(t, 1, rec.created[SeverityElevated])
	assert.Equal(t, [2]int{1, 1}, rec.transitions[TransitionNotify])
	assert.Equal(t, [2]int{1, 1}, rec.transitions[TransitionView])
}

func TestManagerRejectsDistressed(t *testing.T) {
	m := NewAlertManager(NewMemoryAlertStore(), nil)
	_, err := m.Create(context.Background(), "S-7", SeverityDistressed, "r")
	assert.True(t, stderrors.Is(err, ErrInvalidSeverity))

	all, _ := m.List(context.Background(), AlertFilter{})
	assert.Empty(t, all)
}

func TestManagerUnknownAlert(t *testing.T) {
	m := NewAlertManager(NewMemoryAlertStore(), nil)
	_, err := m.MarkViewed(context.Background(), "missing")
	assert.True(t, stderrors.Is(err, ErrAlertNotFound))
}

func TestDispatchRecordsReceipt(t *testing.T) {
	ctx := context.Background()
	delivered := t0.Add(5 * time.Second)
	var got CrisisAlert
	notifier := NotifierFunc(func(_ context.Context, a CrisisAlert) (DeliveryReceipt, error) {
		got = a
		return DeliveryReceipt{DeliveredAt: delivered, Channel: "test"}, nil
	})
	m := NewAlertManager(NewMemoryAlertStore(), notifier, WithClock(fixedClock(t0)))

	a, err := m.Create(ctx, "S-1", SeverityImmediate, "r")
	require.NoError(t, err)
	a, err = m.Dispatch(ctx, a)
	require.NoError(t, err)

	assert.Equal(t, "S-1", got.SubjectCode)
	assert.Equal(t, StatusNotified, a.Status())
	assert.Equal(t, delivered, *a.NotifiedAt)
}

func TestDispatchFailureLeavesAlertCreated(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("gateway timeout")
	m := NewAlertManager(NewMemoryAlertStore(), NotifierFunc(func(context.Context, CrisisAlert) (DeliveryReceipt, error) {
		return DeliveryReceipt{}, boom
	}))

	a, err := m.Create(ctx, "S-1", SeverityImmediate, "r")
	require.NoError(t, err)
	_, err = m.Dispatch(ctx, a)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, boom))

	stored, err := m.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, stored.Status())
}

func TestConcurrentNotifyAppliesOnce(t *testing.T) {
	ctx := context.Background()
	m := NewAlertManager(NewMemoryAlertStore(), nil)
	a, err := m.Create(ctx, "S-1", SeverityImmediate, "r")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ok int64
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.MarkNotified(ctx, a.ID, time.Now()); err == nil {
				atomic.AddInt64(&ok, 1)
			} else {
				assert.True(t, stderrors.Is(err, ErrAlreadyNotified) || stderrors.Is(err, ErrConcurrentUpdate))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), ok)
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAlertStore()
	a := newTestAlert(t)
	require.NoError(t, s.Insert(ctx, a))
	assert.True(t, stderrors.Is(s.Insert(ctx, a), ErrConcurrentUpdate))

	notified, _ := a.MarkNotified(t0)
	assert.True(t, stderrors.Is(s.CompareAndSwap(ctx, StatusNotified, notified), ErrConcurrentUpdate))
	require.NoError(t, s.CompareAndSwap(ctx, StatusCreated, notified))
	assert.True(t, stderrors.Is(s.CompareAndSwap(ctx, StatusCreated, notified), ErrConcurrentUpdate))
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAlertStore()
	for i := 0; i < 3; i++ {
		a, err := NewAlert(fmt.Sprintf("a-%d", i), fmt.Sprintf("S-%d", i%2), SeverityElevated, "r", t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		if i == 2 {
			a, _ = a.MarkNotified(t0.Add(time.Hour))
		}
		require.NoError(t, s.Insert(ctx, a))
	}

	created, _ := s.List(ctx, AlertFilter{Status: StatusCreated})
	require.Len(t, created, 2)
	assert.Equal(t, "a-0", created[0].ID)

	bySubject, _ := s.List(ctx, AlertFilter{SubjectCode: "S-0"})
	assert.Len(t, bySubject, 2)

	overdue, _ := s.List(ctx, AlertFilter{NotifiedBefore: t0.Add(2 * time.Hour)})
	require.Len(t, overdue, 1)
	assert.Equal(t, "a-2", overdue[0].ID)

	limited, _ := s.List(ctx, AlertFilter{Limit: 1})
	assert.Len(t, limited, 1)
}

func TestListenerSeesEveryStoredVersion(t *testing.T) {
	ctx := context.Background()
	var seen []AlertStatus
	m := NewAlertManager(NewMemoryAlertStore(), nil, WithListener(func(a CrisisAlert) {
		seen = append(seen, a.Status())
	}))

	a, err := m.Create(ctx, "S-1", SeverityElevated, "r")
	require.NoError(t, err)
	_, _ = m.MarkViewed(ctx, a.ID) // rejected, not emitted
	_, err = m.MarkNotified(ctx, a.ID, time.Now())
	require.NoError(t, err)
	_, err = m.MarkViewed(ctx, a.ID)
	require.NoError(t, err)

	assert.Equal(t, []AlertStatus{StatusCreated, StatusNotified, StatusViewed}, seen)
}
