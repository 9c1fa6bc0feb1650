package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

func newTestStore(t *testing.T) *KnowledgeStore {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addThought(t *testing.T, s *KnowledgeStore, id, content string, createdAt time.Time) *types.Thought {
	t.Helper()
	th := &types.Thought{ID: id, Content: content, CreatedAt: createdAt, Salience: 0.5}
	require.NoError(t, s.CreateThought(context.Background(), th))
	return th
}

func TestCreateAndGetThought(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	th := addThought(t, s, "t1", "remember the milk", time.Now())

	got, err := s.GetThought(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, th.Content, got.Content)
	assert.Equal(t, types.DefaultEaseFactor, got.EaseFactor)
	assert.Equal(t, 1, got.IntervalDays)
	assert.False(t, got.InReviewQueue)

	_, err = s.GetThought(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateThoughtValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.CreateThought(ctx, &types.Thought{Content: "no id"}), store.ErrInvalidInput)
	assert.ErrorIs(t, s.CreateThought(ctx, &types.Thought{ID: "x"}), store.ErrInvalidInput)
}

func TestMarkRedundant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addThought(t, s, "earlier", "buy milk", time.Now().Add(-time.Hour))
	addThought(t, s, "later", "buy milk today", time.Now())

	require.NoError(t, s.MarkRedundant(ctx, "later", "earlier"))

	got, err := s.GetThought(ctx, "later")
	require.NoError(t, err)
	assert.Equal(t, "earlier", got.RedundantOf)
	require.NotNil(t, got.MarkedRedundant)

	// Earlier thought is untouched.
	earlier, err := s.GetThought(ctx, "earlier")
	require.NoError(t, err)
	assert.Empty(t, earlier.RedundantOf)

	assert.ErrorIs(t, s.MarkRedundant(ctx, "missing", "earlier"), store.ErrNotFound)
}

func TestUpdateReviewAndCandidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	th := addThought(t, s, "t1", "important fact", now)
	th.Salience = 0.9
	_, err := s.db.Exec(`UPDATE thoughts SET salience = 0.9 WHERE id = 't1'`)
	require.NoError(t, err)

	// Unset next_review makes it a candidate.
	candidates, err := s.ReviewCandidates(ctx, 0.7, now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	// Push next_review into the future; no longer a candidate.
	next := now.Add(6 * 24 * time.Hour)
	th.ReviewCount = 1
	th.IntervalDays = 6
	th.LastReview = &now
	th.NextReview = &next
	require.NoError(t, s.UpdateReview(ctx, th))

	candidates, err = s.ReviewCandidates(ctx, 0.7, now)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	got, err := s.GetThought(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReviewCount)
	assert.Equal(t, 6, got.IntervalDays)
	require.NotNil(t, got.NextReview)
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addThought(t, s, "t1", "vectorize me", time.Now())

	vec := []float32{0.1, 0.2, 0.3}
	require.NoError(t, s.StoreEmbedding(ctx, "t1", vec, "nomic-embed-text"))

	all, err := s.AllEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.InDeltaSlice(t, vec, all["t1"], 1e-6)

	// Upsert replaces the vector.
	require.NoError(t, s.StoreEmbedding(ctx, "t1", []float32{1, 0}, "other"))
	all, err = s.AllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Len(t, all["t1"], 2)
}

func TestUpsertEntityAppendsDescription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertEntity(ctx, &types.Entity{
		Name: "Sarah", Type: types.EntityPerson, Description: "designer",
	}))
	require.NoError(t, s.UpsertEntity(ctx, &types.Entity{
		Name: "Sarah", Type: types.EntityPerson, Description: "coffee companion",
	}))

	got, err := s.GetEntity(ctx, "Sarah")
	require.NoError(t, err)
	assert.Equal(t, "designer | coffee companion", got.Description)

	// Re-upserting the same description does not duplicate it.
	require.NoError(t, s.UpsertEntity(ctx, &types.Entity{
		Name: "Sarah", Type: types.EntityPerson, Description: "designer",
	}))
	got, err = s.GetEntity(ctx, "Sarah")
	require.NoError(t, err)
	assert.Equal(t, "designer | coffee companion", got.Description)

	assert.ErrorIs(t, s.UpsertEntity(ctx, &types.Entity{Name: "X", Type: "Wormhole"}),
		store.ErrInvalidInput)
}

func TestEntityMentionsAndLastInteraction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	addThought(t, s, "old", "met Sarah last month", now.Add(-30*24*time.Hour))
	addThought(t, s, "recent", "coffee with Sarah", now.Add(-time.Hour))
	require.NoError(t, s.UpsertEntity(ctx, &types.Entity{Name: "Sarah", Type: types.EntityPerson}))
	require.NoError(t, s.LinkEntity(ctx, "old", "Sarah"))
	require.NoError(t, s.LinkEntity(ctx, "recent", "Sarah"))
	require.NoError(t, s.LinkEntity(ctx, "recent", "Sarah")) // duplicate link ignored

	mentions, err := s.EntityMentions(ctx, "Sarah", now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "recent", mentions[0].ID)

	last, err := s.LastInteraction(ctx, "Sarah")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, now.Add(-time.Hour), *last, time.Second)

	never, err := s.LastInteraction(ctx, "Nobody")
	require.NoError(t, err)
	assert.Nil(t, never)
}

func TestCoOccurringPairsAndConnections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for _, name := range []string{"Sarah", "Phoenix"} {
		typ := types.EntityPerson
		if name == "Phoenix" {
			typ = types.EntityProject
		}
		require.NoError(t, s.UpsertEntity(ctx, &types.Entity{Name: name, Type: typ}))
	}
	for i, id := range []string{"t1", "t2", "t3"} {
		addThought(t, s, id, "Sarah on Phoenix", now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.LinkEntity(ctx, id, "Sarah"))
		require.NoError(t, s.LinkEntity(ctx, id, "Phoenix"))
	}

	pairs, err := s.CoOccurringPairs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Phoenix", pairs[0].A) // normalized A < B
	assert.Equal(t, "Sarah", pairs[0].B)
	assert.Equal(t, 3, pairs[0].Count)

	pairs, err = s.CoOccurringPairs(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	require.NoError(t, s.StrengthenConnection(ctx, "Sarah", "Phoenix", 3))
	conns, err := s.Connections(ctx, "Sarah")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, 3, conns[0].Weight)

	profile, err := s.EntityProfile(ctx, "Sarah")
	require.NoError(t, err)
	assert.Equal(t, 3, profile.InteractionCount)
	assert.Equal(t, []string{"Phoenix"}, profile.Connections)
}

func TestEventsAndBlockedTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertEvent(ctx, &types.CalendarEvent{
		ID: "e1", Title: "standup",
		Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute),
	}))
	require.NoError(t, s.UpsertEvent(ctx, &types.CalendarEvent{
		ID: "e2", Title: "review", Moveable: true,
		Start: day.Add(14 * time.Hour), End: day.Add(15 * time.Hour),
	}))

	events, err := s.EventsForDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID) // start order
	assert.True(t, events[1].Moveable)

	err = s.UpsertEvent(ctx, &types.CalendarEvent{
		ID: "bad", Start: day.Add(time.Hour), End: day.Add(time.Hour),
	})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	deadline := day.Add(48 * time.Hour)
	require.NoError(t, s.UpsertBlockedTask(ctx, &types.BlockedTask{
		ID: "bt1", Title: "ship feature", Priority: 80,
		CognitiveDemand: "HIGH", BlockerName: "Sarah", Deadline: &deadline,
	}))

	tasks, err := s.BlockedTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Sarah", tasks[0].BlockerName)
	require.NotNil(t, tasks[0].Deadline)
}

func TestClarificationResolvedExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateClarification(ctx, &types.Clarification{
		ID: "c1", Type: types.ClarificationAmbiguity,
		Description: "Which Sarah?", Options: []string{"Sarah K", "Sarah M"},
	}))

	require.NoError(t, s.ResolveClarification(ctx, "c1", "Sarah K"))

	got, err := s.GetClarification(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	assert.Equal(t, "Sarah K", got.Response)
	assert.Equal(t, []string{"Sarah K", "Sarah M"}, got.Options)

	assert.ErrorIs(t, s.ResolveClarification(ctx, "c1", "Sarah M"), store.ErrAlreadyResolved)
	assert.ErrorIs(t, s.ResolveClarification(ctx, "missing", "x"), store.ErrNotFound)
}

func TestPendingClarifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.CreateClarification(ctx, &types.Clarification{
			ID: id, Type: types.ClarificationAmbiguity,
			Description: "Which one?", CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.ResolveClarification(ctx, "c2", "that one"))

	pending, err := s.PendingClarifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c3", pending[0].ID, "newest first")
	assert.Equal(t, "c1", pending[1].ID)

	limited, err := s.PendingClarifications(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c3", limited[0].ID)
}

func TestAlertsUrgencyOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, a := range []types.Alert{
		{ID: "a1", Type: types.AlertScheduleOptimization, Title: "defrag", Urgency: types.UrgencyLow},
		{ID: "a2", Type: types.AlertGhostDependency, Title: "ghost", Urgency: types.UrgencyHigh,
			Metadata: map[string]string{"person": "Sarah"}},
		{ID: "a3", Type: types.AlertDeadlineRisk, Title: "deadline", Urgency: types.UrgencyMedium},
	} {
		alert := a
		require.NoError(t, s.CreateAlert(ctx, &alert))
	}

	alerts, err := s.PendingAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "a2", alerts[0].ID)
	assert.Equal(t, "a3", alerts[1].ID)
	assert.Equal(t, "a1", alerts[2].ID)
	assert.Equal(t, "Sarah", alerts[0].Metadata["person"])

	require.NoError(t, s.DismissAlert(ctx, "a2"))
	alerts, err = s.PendingAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestConsolidationRunHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LastConsolidationRun(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.RecordConsolidationRun(ctx, &types.ConsolidationRun{
		ProfilesUpdated:         4,
		ConnectionsStrengthened: 2,
		Errors:                  []string{"profile refresh: timeout"},
	}))
	require.NoError(t, s.RecordConsolidationRun(ctx, &types.ConsolidationRun{
		RedundantMarked: 1,
	}))

	last, err := s.LastConsolidationRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, last.RedundantMarked)
	assert.Zero(t, last.ProfilesUpdated)
	assert.Empty(t, last.Errors)
}
