package crisis

import (
	"context"
	"time"

	"CompanionGuard/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers an alert to the supervising professional. Delivery
// mechanics and retries belong to the implementation; the manager only
// records the receipt.
type Notifier interface {
	Deliver(ctx context.Context, alert CrisisAlert) (DeliveryReceipt, error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, alert CrisisAlert) (DeliveryReceipt, error)

func (f NotifierFunc) Deliver(ctx context.Context, alert CrisisAlert) (DeliveryReceipt, error) {
	return f(ctx, alert)
}

// AlertManager drives alerts through created → notified → viewed → resolved
// on top of an AlertStore.
type AlertManager struct {
	store    AlertStore
	notifier Notifier
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
	newID    func() string
	watchers []func(CrisisAlert)
}

// ManagerOption configures an AlertManager.
type ManagerOption func(*AlertManager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *AlertManager) { m.now = now }
}

func WithIDGenerator(newID func() string) ManagerOption {
	return func(m *AlertManager) { m.newID = newID }
}

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *AlertManager) { m.logger = logger }
}

func WithRecorder(r Recorder) ManagerOption {
	return func(m *AlertManager) { m.recorder = r }
}

// WithListener registers fn to receive every stored alert version, after
// creation and after each accepted transition. fn runs synchronously and
// must not block.
func WithListener(fn func(CrisisAlert)) ManagerOption {
	return func(m *AlertManager) { m.watchers = append(m.watchers, fn) }
}

func (m *AlertManager) emit(alert CrisisAlert) {
	for _, fn := range m.watchers {
		fn(alert)
	}
}

// NewAlertManager creates a manager. notifier may be nil when alerts are
// delivered out of band and confirmed through MarkNotified.
func NewAlertManager(store AlertStore, notifier Notifier, opts ...ManagerOption) *AlertManager {
	m := &AlertManager{
		store:    store,
		notifier: notifier,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create validates and stores a new alert.
func (m *AlertManager) Create(ctx context.Context, subjectCode string, severity RiskSeverity, triggerReason string) (CrisisAlert, error) {
	return m.CreateForConversation(ctx, "", subjectCode, severity, triggerReason)
}

// CreateForConversation is Create with the originating conversation recorded.
func (m *AlertManager) CreateForConversation(ctx context.Context, conversationID, subjectCode string, severity RiskSeverity, triggerReason string) (CrisisAlert, error) {
	alert, err := NewAlert(m.newID(), subjectCode, severity, triggerReason, m.now())
	if err == nil {
		alert.ConversationID = conversationID
		err = m.store.Insert(ctx, alert)
	}
	m.recorder.ObserveTransition(TransitionCreate, err)
	if err != nil {
		m.logger.Warn("crisis alert rejected",
			zap.String("severity", severity.String()),
			zap.Error(err),
		)
		return CrisisAlert{}, err
	}
	m.recorder.ObserveAlertCreated(severity)
	m.emit(alert)
	m.logger.Info("crisis alert created",
		zap.String("alert_id", alert.ID),
		zap.String("subject", alert.SubjectCode),
		zap.String("severity", severity.String()),
	)
	return alert, nil
}

// Get loads an alert by id.
func (m *AlertManager) Get(ctx context.Context, id string) (CrisisAlert, error) {
	return m.store.Get(ctx, id)
}

// List returns alerts matching filter.
func (m *AlertManager) List(ctx context.Context, filter AlertFilter) ([]CrisisAlert, error) {
	return m.store.List(ctx, filter)
}

// transition loads the alert, applies step and writes it back with a
// compare-and-set on the status it was loaded with.
func (m *AlertManager) transition(ctx context.Context, name, id string, step func(CrisisAlert) (CrisisAlert, error)) (CrisisAlert, error) {
	cur, err := m.store.Get(ctx, id)
	if err != nil {
		m.recorder.ObserveTransition(name, err)
		return CrisisAlert{}, err
	}
	next, err := step(cur)
	if err == nil {
		err = m.store.CompareAndSwap(ctx, cur.Status(), next)
	}
	m.recorder.ObserveTransition(name, err)
	if err != nil {
		m.logger.Warn("crisis alert transition rejected",
			zap.String("transition", name),
			zap.String("alert_id", id),
			zap.String("status", string(cur.Status())),
			zap.Error(err),
		)
		return cur, err
	}
	m.logger.Info("crisis alert transition",
		zap.String("transition", name),
		zap.String("alert_id", id),
		zap.String("status", string(next.Status())),
	)
	m.emit(next)
	return next, nil
}

// MarkNotified records a delivery confirmation at the given time. A second
// confirmation fails with ErrAlreadyNotified.
func (m *AlertManager) MarkNotified(ctx context.Context, id string, at time.Time) (CrisisAlert, error) {
	return m.transition(ctx, TransitionNotify, id, func(a CrisisAlert) (CrisisAlert, error) {
		return a.MarkNotified(at)
	})
}

// MarkViewed records that a professional viewed the alert.
func (m *AlertManager) MarkViewed(ctx context.Context, id string) (CrisisAlert, error) {
	now := m.now()
	return m.transition(ctx, TransitionView, id, func(a CrisisAlert) (CrisisAlert, error) {
		return a.MarkViewed(now)
	})
}

// Resolve closes a viewed alert with notes.
func (m *AlertManager) Resolve(ctx context.Context, id, notes string) (CrisisAlert, error) {
	now := m.now()
	return m.transition(ctx, TransitionResolve, id, func(a CrisisAlert) (CrisisAlert, error) {
		return a.Resolve(now, notes)
	})
}

// Dispatch hands the alert to the notifier and records the receipt. A
// delivery failure leaves the alert in created state; there is no retry.
func (m *AlertManager) Dispatch(ctx context.Context, alert CrisisAlert) (CrisisAlert, error) {
	if m.notifier == nil {
		return alert, nil
	}
	receipt, err := m.notifier.Deliver(ctx, alert)
	if err != nil {
		m.recorder.ObserveTransition(TransitionDispatch, err)
		m.logger.Error("crisis alert delivery failed",
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
		return alert, errors.Wrapf(err, "deliver crisis alert %s", alert.ID)
	}
	m.recorder.ObserveTransition(TransitionDispatch, nil)
	at := receipt.DeliveredAt
	if at.IsZero() {
		at = m.now()
	}
	return m.MarkNotified(ctx, alert.ID, at)
}
