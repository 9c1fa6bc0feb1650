package consolidate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/internal/search"
	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/internal/store/sqlite"
	"github.com/scrypster/cortex/pkg/types"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embed" }

func newEngine(t *testing.T, vectors map[string][]float32) (*Engine, *sqlite.KnowledgeStore) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	se := search.New(&fakeEmbedder{vectors: vectors}, st)
	return New(st, se, nil), st
}

func seedThought(t *testing.T, st *sqlite.KnowledgeStore, id, content string, at time.Time, salience float64) {
	t.Helper()
	require.NoError(t, st.CreateThought(context.Background(), &types.Thought{
		ID: id, Content: content, CreatedAt: at, Salience: salience,
	}))
}

func TestRunFullCycle(t *testing.T) {
	engine, st := newEngine(t, map[string][]float32{
		"note about the launch":       {1, 0, 0},
		"note about the launch again": {0.999, 0.001, 0},
	})
	ctx := context.Background()
	now := time.Now()

	// Three thoughts co-mentioning Sarah and Phoenix within the window.
	require.NoError(t, st.UpsertEntity(ctx, &types.Entity{Name: "Sarah", Type: types.EntityPerson}))
	require.NoError(t, st.UpsertEntity(ctx, &types.Entity{Name: "Phoenix", Type: types.EntityProject}))
	for i, id := range []string{"t1", "t2", "t3"} {
		seedThought(t, st, id, "Sarah worked on Phoenix", now.Add(-time.Duration(i)*time.Hour), 0.5)
		require.NoError(t, st.LinkEntity(ctx, id, "Sarah"))
		require.NoError(t, st.LinkEntity(ctx, id, "Phoenix"))
	}

	// A near-duplicate pair.
	seedThought(t, st, "dup-early", "note about the launch", now.Add(-2*time.Hour), 0.5)
	seedThought(t, st, "dup-late", "note about the launch again", now.Add(-time.Hour), 0.5)
	require.NoError(t, st.StoreEmbedding(ctx, "dup-early", []float32{1, 0, 0}, "fake"))
	require.NoError(t, st.StoreEmbedding(ctx, "dup-late", []float32{0.999, 0.001, 0}, "fake"))

	// A salient, never-reviewed thought.
	seedThought(t, st, "salient", "the big insight", now.Add(-time.Hour), 0.9)

	run, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, run.Errors)
	assert.Equal(t, 2, run.ProfilesUpdated, "Sarah and Phoenix were active")
	assert.Equal(t, 1, run.ConnectionsStrengthened)
	assert.Equal(t, 1, run.RedundantMarked)
	assert.Equal(t, 1, run.ReviewQueueUpdated)

	// Connection weight equals the co-occurrence count.
	conns, err := st.Connections(ctx, "Sarah")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, 3, conns[0].Weight)

	// Later duplicate is annotated; the original is untouched.
	late, err := st.GetThought(ctx, "dup-late")
	require.NoError(t, err)
	assert.Equal(t, "dup-early", late.RedundantOf)
	early, err := st.GetThought(ctx, "dup-early")
	require.NoError(t, err)
	assert.Empty(t, early.RedundantOf)

	// Review queue flag set on the salient thought.
	salient, err := st.GetThought(ctx, "salient")
	require.NoError(t, err)
	assert.True(t, salient.InReviewQueue)

	// Entity activity was refreshed.
	sarah, err := st.GetEntity(ctx, "Sarah")
	require.NoError(t, err)
	assert.Equal(t, 3, sarah.RecentActivity)
	require.NotNil(t, sarah.LastSeen)

	// Run summary persisted.
	last, err := st.LastConsolidationRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, last.RedundantMarked)
}

func TestRunEmptyStoreIsClean(t *testing.T) {
	engine, st := newEngine(t, nil)

	run, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, run.Errors)
	assert.Zero(t, run.ProfilesUpdated)
	assert.Zero(t, run.RedundantMarked)

	last, err := st.LastConsolidationRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.RanAt.Unix(), last.RanAt.Unix())
}

func TestRedundancyMarkingIsCapped(t *testing.T) {
	engine, st := newEngine(t, nil)
	ctx := context.Background()
	now := time.Now()

	// 13 identical thoughts produce far more than 10 similar pairs.
	for i := 0; i < 13; i++ {
		id := string(rune('a' + i))
		seedThought(t, st, id, "same note", now.Add(time.Duration(i)*time.Minute), 0.5)
		require.NoError(t, st.StoreEmbedding(ctx, id, []float32{1, 0, 0}, "fake"))
	}

	run, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, maxRedundantPerRun, run.RedundantMarked)
}

func TestUpdateReviewPersists(t *testing.T) {
	engine, st := newEngine(t, nil)
	ctx := context.Background()

	seedThought(t, st, "t1", "reviewable", time.Now(), 0.8)

	updated, err := engine.UpdateReview(ctx, "t1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ReviewCount)

	got, err := st.GetThought(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReviewCount)
	assert.InDelta(t, 2.6, got.EaseFactor, 1e-9)
	require.NotNil(t, got.NextReview)

	_, err = engine.UpdateReview(ctx, "missing", 5)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
