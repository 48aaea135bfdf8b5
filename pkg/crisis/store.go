package crisis

import (
	"context"
	"sort"
	"sync"
	"time"
)

// AlertFilter narrows List results. Zero fields match everything.
type AlertFilter struct {
	Status      AlertStatus
	SubjectCode string
	// NotifiedBefore selects alerts notified before the given time.
	NotifiedBefore time.Time
	Limit          int
}

func (f AlertFilter) match(a CrisisAlert) bool {
	if f.Status != "" && a.Status() != f.Status {
		return false
	}
	if f.SubjectCode != "" && a.SubjectCode != f.SubjectCode {
		return false
	}
	if !f.NotifiedBefore.IsZero() && (a.NotifiedAt == nil || !a.NotifiedAt.Before(f.NotifiedBefore)) {
		return false
	}
	return true
}

// AlertStore persists alerts. CompareAndSwap writes next only while the
// stored alert still has status expected, otherwise it returns
// ErrConcurrentUpdate; this keeps a delivery webhook racing a
// professional's action from losing or duplicating a transition.
type AlertStore interface {
	Insert(ctx context.Context, alert CrisisAlert) error
	Get(ctx context.Context, id string) (CrisisAlert, error)
	CompareAndSwap(ctx context.Context, expected AlertStatus, next CrisisAlert) error
	List(ctx context.Context, filter AlertFilter) ([]CrisisAlert, error)
}

// MemoryAlertStore is an AlertStore kept in process memory.
type MemoryAlertStore struct {
	mu     sync.Mutex
	alerts map[string]CrisisAlert
}

func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{alerts: make(map[string]CrisisAlert)}
}

func (s *MemoryAlertStore) Insert(_ context.Context, alert CrisisAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; ok {
		return ErrConcurrentUpdate.WithContext("alert_id", alert.ID)
	}
	s.alerts[alert.ID] = alert
	return nil
}

func (s *MemoryAlertStore) Get(_ context.Context, id string) (CrisisAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return CrisisAlert{}, ErrAlertNotFound.WithContext("alert_id", id)
	}
	return a, nil
}

func (s *MemoryAlertStore) CompareAndSwap(_ context.Context, expected AlertStatus, next CrisisAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.alerts[next.ID]
	if !ok {
		return ErrAlertNotFound.WithContext("alert_id", next.ID)
	}
	if cur.Status() != expected {
		return ErrConcurrentUpdate.WithContext("alert_id", next.ID)
	}
	s.alerts[next.ID] = next
	return nil
}

func (s *MemoryAlertStore) List(_ context.Context, filter AlertFilter) ([]CrisisAlert, error) {
	s.mu.Lock()
	out := make([]CrisisAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if filter.match(a) {
			out = append(out, a)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
