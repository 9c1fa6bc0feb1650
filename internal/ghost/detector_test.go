package ghost

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/internal/store/sqlite"
	"github.com/scrypster/cortex/pkg/types"
)

type captureSink struct {
	alerts []*types.Alert
}

func (c *captureSink) Publish(_ context.Context, alert *types.Alert) error {
	c.alerts = append(c.alerts, alert)
	return nil
}

func newDetector(t *testing.T, now time.Time) (*Detector, *sqlite.KnowledgeStore, *captureSink) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	sink := &captureSink{}
	return New(st, sink).WithClock(func() time.Time { return now }), st, sink
}

func mention(t *testing.T, st *sqlite.KnowledgeStore, person string, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertEntity(ctx, &types.Entity{Name: person, Type: types.EntityPerson}))
	id := person + at.Format("20060102150405")
	require.NoError(t, st.CreateThought(ctx, &types.Thought{
		ID: id, Content: "talked to " + person, CreatedAt: at,
	}))
	require.NoError(t, st.LinkEntity(ctx, id, person))
}

func TestRunRaisesHighAlertForSilentBlockerNearDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	det, st, sink := newDetector(t, now)
	ctx := context.Background()

	mention(t, st, "Sarah", now.Add(-5*24*time.Hour))
	deadline := now.Add(24 * time.Hour)
	require.NoError(t, st.UpsertBlockedTask(ctx, &types.BlockedTask{
		ID: "task-1", Title: "Ship the launch plan", Priority: 80,
		CognitiveDemand: "MEDIUM", BlockerName: "Sarah", Deadline: &deadline,
	}))

	raised, err := det.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, raised)

	require.Len(t, sink.alerts, 1)
	alert := sink.alerts[0]
	assert.Equal(t, types.AlertGhostDependency, alert.Type)
	assert.Equal(t, types.UrgencyHigh, alert.Urgency)
	assert.Equal(t, "task-1", alert.Metadata["task_id"])
	assert.Equal(t, "Sarah", alert.Metadata["blocker"])
	assert.Equal(t, "5", alert.Metadata["days_silent"])
	assert.Equal(t, deadline.Format(time.RFC3339), alert.Metadata["deadline"])
}

func TestRunMediumUrgencyWithoutNearDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	det, st, sink := newDetector(t, now)
	ctx := context.Background()

	mention(t, st, "Marcus", now.Add(-4*24*time.Hour))
	deadline := now.Add(7 * 24 * time.Hour)
	require.NoError(t, st.UpsertBlockedTask(ctx, &types.BlockedTask{
		ID: "task-2", Title: "Budget review", Priority: 90,
		CognitiveDemand: "LOW", BlockerName: "Marcus", Deadline: &deadline,
	}))

	_, err := det.Run(ctx)
	require.NoError(t, err)
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, types.UrgencyMedium, sink.alerts[0].Urgency)
}

func TestRunNeverMentionedBlocker(t *testing.T) {
	now := time.Now()
	det, st, sink := newDetector(t, now)
	ctx := context.Background()

	require.NoError(t, st.UpsertBlockedTask(ctx, &types.BlockedTask{
		ID: "task-3", Title: "Design handoff", Priority: 10,
		CognitiveDemand: "HIGH", BlockerName: "Priya",
	}))

	raised, err := det.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, raised)
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "never", sink.alerts[0].Metadata["days_silent"])
	assert.Equal(t, types.UrgencyMedium, sink.alerts[0].Urgency)
	assert.Contains(t, sink.alerts[0].Message, "never been mentioned")
}

func TestRunIgnoresRecentAndUnimportant(t *testing.T) {
	now := time.Now()
	det, st, sink := newDetector(t, now)
	ctx := context.Background()

	// Blocker heard from yesterday: not ghosted.
	mention(t, st, "Ana", now.Add(-24*time.Hour))
	require.NoError(t, st.UpsertBlockedTask(ctx, &types.BlockedTask{
		ID: "task-4", Title: "Contract review", Priority: 95,
		CognitiveDemand: "HIGH", BlockerName: "Ana",
	}))

	// Low priority, low demand: below the watch threshold.
	require.NoError(t, st.UpsertBlockedTask(ctx, &types.BlockedTask{
		ID: "task-5", Title: "Tidy backlog", Priority: 20,
		CognitiveDemand: "LOW", BlockerName: "Nobody",
	}))

	raised, err := det.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, raised)
	assert.Empty(t, sink.alerts)
}
