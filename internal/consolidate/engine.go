// Package consolidate implements the nightly memory consolidation cycle:
// entity profile refresh, connection strengthening, redundancy marking,
// and review-queue maintenance, plus the SM-2 spaced-repetition update.
package consolidate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/scrypster/cortex/internal/llm"
	"github.com/scrypster/cortex/internal/router"
	"github.com/scrypster/cortex/internal/search"
	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

const (
	// profileWindow is the trailing window for entity activity refresh.
	profileWindow = 7 * 24 * time.Hour

	// minCoOccurrence is how many distinct thoughts must mention an
	// entity pair before a connection is created.
	minCoOccurrence = 3

	// redundancyThreshold is the cosine similarity above which two
	// thoughts are considered duplicates.
	redundancyThreshold = 0.95

	// maxRedundantPerRun caps redundancy marking per cycle so a bad
	// embedding batch cannot mass-annotate the knowledge base.
	maxRedundantPerRun = 10

	// reviewSalienceFloor is the minimum salience for review-queue
	// membership.
	reviewSalienceFloor = 0.7

	// profileSummaryMentions caps how many mention summaries feed one
	// profile refresh prompt.
	profileSummaryMentions = 5
)

// Engine runs the consolidation cycle.
type Engine struct {
	store  store.KnowledgeStore
	search *search.Engine
	router *router.Router
	now    func() time.Time
}

// New creates a consolidation engine. router may be nil: profile refresh
// then skips activity summaries and only updates counts.
func New(st store.KnowledgeStore, se *search.Engine, rt *router.Router) *Engine {
	return &Engine{store: st, search: se, router: rt, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run executes one consolidation cycle. The four sub-tasks are
// independent: a failure in one is recorded and the rest still run. The
// summary is persisted regardless.
func (e *Engine) Run(ctx context.Context) (*types.ConsolidationRun, error) {
	run := &types.ConsolidationRun{RanAt: e.now()}

	record := func(task string, n int, err error) {
		if err != nil {
			log.Printf("consolidate: %s failed: %v", task, err)
			run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", task, err))
			return
		}
		log.Printf("consolidate: %s done (%d)", task, n)
	}

	n, err := e.refreshEntityProfiles(ctx)
	run.ProfilesUpdated = n
	record("profile refresh", n, err)

	n, err = e.strengthenConnections(ctx)
	run.ConnectionsStrengthened = n
	record("connection strengthening", n, err)

	n, err = e.markRedundant(ctx)
	run.RedundantMarked = n
	record("redundancy marking", n, err)

	n, err = e.updateReviewQueue(ctx)
	run.ReviewQueueUpdated = n
	record("review queue update", n, err)

	if err := e.store.RecordConsolidationRun(ctx, run); err != nil {
		return run, fmt.Errorf("consolidate: failed to persist run summary: %w", err)
	}
	return run, nil
}

// refreshEntityProfiles recomputes mention counts and last-seen over the
// trailing window for every recently active entity.
func (e *Engine) refreshEntityProfiles(ctx context.Context) (int, error) {
	since := e.now().Add(-profileWindow)
	entities, err := e.store.ActiveEntities(ctx, since)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, entity := range entities {
		mentions, err := e.store.EntityMentions(ctx, entity.Name, since)
		if err != nil {
			return updated, err
		}
		var lastSeen *time.Time
		if len(mentions) > 0 {
			lastSeen = &mentions[0].CreatedAt // newest first
		}
		if err := e.store.UpdateEntityActivity(ctx, entity.Name, len(mentions), lastSeen); err != nil {
			return updated, err
		}
		e.refreshActivitySummary(ctx, entity.Name, mentions)
		updated++
	}
	return updated, nil
}

// refreshActivitySummary asks the local model for a one-line activity
// summary and folds it into the entity description. Best effort: a model
// failure is logged and skipped.
func (e *Engine) refreshActivitySummary(ctx context.Context, name string, mentions []*types.Thought) {
	if e.router == nil || len(mentions) == 0 {
		return
	}
	lines := make([]string, 0, profileSummaryMentions)
	for _, m := range mentions {
		summary := m.Summary
		if summary == "" {
			summary = m.Content
		}
		lines = append(lines, summary)
		if len(lines) == profileSummaryMentions {
			break
		}
	}

	summary, err := e.router.Invoke(ctx, router.TierReflex, "consolidate:"+name,
		llm.ProfileRefreshPrompt(name, lines), llm.ProfileRefreshSystemPrompt)
	if err != nil {
		log.Printf("consolidate: activity summary for %s skipped: %v", name, err)
		return
	}

	entity, err := e.store.GetEntity(ctx, name)
	if err != nil {
		return
	}
	entity.Description = summary
	if err := e.store.UpsertEntity(ctx, entity); err != nil {
		log.Printf("consolidate: activity summary for %s not saved: %v", name, err)
	}
}

// strengthenConnections upserts a weighted connection for every entity
// pair co-occurring in enough distinct thoughts. The weight is the
// co-occurrence count.
func (e *Engine) strengthenConnections(ctx context.Context) (int, error) {
	pairs, err := e.store.CoOccurringPairs(ctx, minCoOccurrence)
	if err != nil {
		return 0, err
	}
	strengthened := 0
	for _, pair := range pairs {
		if err := e.store.StrengthenConnection(ctx, pair.A, pair.B, pair.Count); err != nil {
			return strengthened, err
		}
		strengthened++
	}
	return strengthened, nil
}

// markRedundant annotates near-duplicate thoughts. The later thought of
// each pair is marked; nothing is deleted.
func (e *Engine) markRedundant(ctx context.Context) (int, error) {
	pairs, err := e.search.FindSimilarPairs(ctx, redundancyThreshold, maxRedundantPerRun)
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, pair := range pairs {
		if err := e.store.MarkRedundant(ctx, pair.B, pair.A); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// updateReviewQueue flags high-salience thoughts whose review is unset or
// due.
func (e *Engine) updateReviewQueue(ctx context.Context) (int, error) {
	candidates, err := e.store.ReviewCandidates(ctx, reviewSalienceFloor, e.now())
	if err != nil {
		return 0, err
	}
	flagged := 0
	for _, t := range candidates {
		if t.InReviewQueue {
			continue
		}
		if err := e.store.SetReviewQueue(ctx, t.ID, true); err != nil {
			return flagged, err
		}
		flagged++
	}
	return flagged, nil
}
