package crisis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestAlert(t *testing.T) CrisisAlert {
	t.Helper()
	a, err := NewAlert("a-1", "S-042", SeverityImmediate, "immediate message", t0)
	require.NoError(t, err)
	return a
}

func TestNewAlertRejectsLowSeverity(t *testing.T) {
	for _, s := range []RiskSeverity{SeverityNone, SeverityDistressed} {
		_, err := NewAlert("a", "S-1", s, "r", t0)
		assert.True(t, errors.Is(err, ErrInvalidSeverity), s.String())
	}
	_, err := NewAlert("a", "  ", SeverityElevated, "r", t0)
	assert.True(t, errors.Is(err, ErrInvalidSubject))
}

func TestAlertLifecycle(t *testing.T) {
	a := newTestAlert(t)
	assert.Equal(t, StatusCreated, a.Status())

	a, err := a.MarkNotified(t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusNotified, a.Status())

	a, err = a.MarkViewed(t0.Add(2 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusViewed, a.Status())

	a, err = a.Resolve(t0.Add(3*time.Minute), "called client, safety plan in place")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, a.Status())
	require.NotNil(t, a.ResolutionNotes)
	assert.Equal(t, "called client, safety plan in place", *a.ResolutionNotes)
}

func TestAlertTransitionsReturnNewValues(t *testing.T) {
	a := newTestAlert(t)
	b, err := a.MarkNotified(t0)
	require.NoError(t, err)
	assert.Nil(t, a.NotifiedAt)
	assert.NotNil(t, b.NotifiedAt)
}

func TestAlertOutOfOrderTransitions(t *testing.T) {
	created := newTestAlert(t)

	_, err := created.MarkViewed(t0)
	assert.True(t, errors.Is(err, ErrNotYetNotified))

	_, err = created.Resolve(t0, "x")
	assert.True(t, errors.Is(err, ErrNotYetViewed))

	notified, _ := created.MarkNotified(t0)
	_, err = notified.MarkNotified(t0)
	assert.True(t, errors.Is(err, ErrAlreadyNotified))

	_, err = notified.Resolve(t0, "x")
	assert.True(t, errors.Is(err, ErrNotYetViewed))

	viewed, _ := notified.MarkViewed(t0)
	_, err = viewed.MarkViewed(t0)
	assert.True(t, errors.Is(err, ErrAlreadyViewed))

	resolved, _ := viewed.Resolve(t0, "done")
	_, err = resolved.Resolve(t0, "again")
	assert.True(t, errors.Is(err, ErrAlreadyResolved))
	assert.Equal(t, "done", *resolved.ResolutionNotes)
}

func TestAlertTimestampsStayOrdered(t *testing.T) {
	a := newTestAlert(t)
	a, _ = a.MarkNotified(t0.Add(-time.Hour))
	a, _ = a.MarkViewed(t0.Add(-2 * time.Hour))
	a, _ = a.Resolve(t0.Add(-3*time.Hour), "")

	assert.False(t, a.NotifiedAt.Before(a.CreatedAt))
	assert.False(t, a.ViewedAt.Before(*a.NotifiedAt))
	assert.False(t, a.ResolvedAt.Before(*a.ViewedAt))
}
