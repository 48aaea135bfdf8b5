package listeners

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertEventsFollowLifecycle(t *testing.T) {
	hub := sse.NewHub(time.Minute, 16)
	client := hub.AddClient("dashboard")
	defer hub.RemoveClient("dashboard")

	var immediate []string
	m := crisis.NewAlertManager(crisis.NewMemoryAlertStore(), nil,
		crisis.WithListener(AlertEvents(hub, nil)),
		crisis.WithListener(ImmediateAlerts(func(a crisis.CrisisAlert) { immediate = append(immediate, a.ID) })),
	)
	ctx := context.Background()

	a, err := m.Create(ctx, "S-1", crisis.SeverityImmediate, "planning")
	require.NoError(t, err)
	_, err = m.MarkNotified(ctx, a.ID, time.Now())
	require.NoError(t, err)
	_, err = m.MarkViewed(ctx, a.ID)
	require.NoError(t, err)

	var names []string
	for i := 0; i < 3; i++ {
		select {
		case ev := <-client.Events():
			names = append(names, ev.Name)
			var got crisis.CrisisAlert
			require.NoError(t, json.Unmarshal([]byte(ev.Data), &got))
			assert.Equal(t, a.ID, got.ID)
		case <-time.After(time.Second):
			t.Fatal("missing event")
		}
	}
	assert.Equal(t, []string{"alert.created", "alert.notified", "alert.viewed"}, names)
	assert.Equal(t, []string{a.ID}, immediate)

	_, err = m.Create(ctx, "S-2", crisis.SeverityElevated, "ideation")
	require.NoError(t, err)
	assert.Len(t, immediate, 1)
}
