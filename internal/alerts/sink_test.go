package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/internal/store/sqlite"
	"github.com/scrypster/cortex/pkg/types"
)

func newSink(t *testing.T) (*Sink, *sqlite.KnowledgeStore) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	s, err := NewSink(st, "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, st
}

func TestPublishPersistsAndBroadcasts(t *testing.T) {
	s, st := newSink(t)
	ctx := context.Background()

	feed, cancel := s.Subscribe()
	defer cancel()

	alert := &types.Alert{
		Type:    types.AlertGhostDependency,
		Title:   "Ghosted dependency",
		Urgency: types.UrgencyMedium,
	}
	require.NoError(t, s.Publish(ctx, alert))
	assert.NotEmpty(t, alert.ID, "id assigned on publish")

	pending, err := st.PendingAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, alert.ID, pending[0].ID)

	select {
	case got := <-feed:
		assert.Equal(t, alert.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the alert")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	s, _ := newSink(t)
	ctx := context.Background()

	_, cancel := s.Subscribe()
	defer cancel()

	// Overrun the subscriber buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			_ = s.Publish(ctx, &types.Alert{Type: types.AlertScheduleOptimization, Title: "x"})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	s, _ := newSink(t)
	ctx := context.Background()

	feed, cancel := s.Subscribe()
	cancel()
	cancel() // idempotent

	require.NoError(t, s.Publish(ctx, &types.Alert{Type: types.AlertGhostDependency, Title: "x"}))

	// Channel is closed; no delivery after cancel.
	_, ok := <-feed
	assert.False(t, ok)
}

func TestInvalidRedisURLRejected(t *testing.T) {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = NewSink(st, "://not-a-url")
	assert.Error(t, err)
}
