// Package pipeline implements the cognitive orchestration state machine:
// every user input flows sanitize -> classify -> retrieve-context ->
// route-by-intent -> one reasoning stage -> clarify-or-consolidate.
// Stages are methods on Pipeline with injected collaborators, so the
// whole machine is testable with a mock model.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/cortex/internal/router"
	"github.com/scrypster/cortex/internal/search"
	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

// failureResponse is the generic user-facing reply for any stage error.
// Causes go to logs, never to the user.
const failureResponse = "I encountered an error processing that."

// contextLimit is how many semantic hits the retrieval stage requests.
const contextLimit = 5

// Enqueuer accepts deferred work (embedding generation) so the request
// path never waits on it. Implemented by the jobs queue.
type Enqueuer interface {
	Enqueue(name string, fn func(context.Context) error) bool
}

// Pipeline runs the per-request state machine.
type Pipeline struct {
	router  *router.Router
	store   store.KnowledgeStore
	search  *search.Engine
	profile *types.UserProfile
	queue   Enqueuer

	stageTimeout time.Duration
	now          func() time.Time
	newID        func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator overrides record ID generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(p *Pipeline) { p.newID = gen }
}

// New creates a pipeline. profile and queue may be nil: the pipeline runs
// without personalization and indexes embeddings synchronously in that
// case.
func New(rt *router.Router, st store.KnowledgeStore, se *search.Engine,
	profile *types.UserProfile, queue Enqueuer, stageTimeout time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		router:       rt,
		store:        st,
		search:       se,
		profile:      profile,
		queue:        queue,
		stageTimeout: stageTimeout,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	if p.stageTimeout == 0 {
		p.stageTimeout = 45 * time.Second
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is what a pipeline run returns to the caller.
type Result struct {
	Response   string              `json:"response"`
	Intent     types.Intent        `json:"intent"`
	Entities   map[string][]string `json:"entities,omitempty"`
	Categories []string            `json:"categories,omitempty"`
	Summary    string              `json:"summary,omitempty"`
	ThoughtID  string              `json:"thought_id,omitempty"`
	RoutePath  []string            `json:"route_path"`
}

// Run processes one input through the full state machine. A stage error
// never propagates as a failed request: the result carries the generic
// failure response and the cause is logged.
func (p *Pipeline) Run(ctx context.Context, input, conversationID string) (*Result, error) {
	state := &types.ConversationState{
		RawInput: input,
		Entities: map[string][]string{},
	}
	requestID := conversationID
	if requestID == "" {
		requestID = p.newID()
	}

	stages := []struct {
		name string
		fn   func(context.Context, string, *types.ConversationState) error
	}{
		{"sanitize", p.sanitize},
		{"classify", p.classify},
		{"retrieve_context", p.retrieveContext},
		{"reason", p.reason},
		{"clarify_or_consolidate", p.clarifyOrConsolidate},
	}

	for _, stage := range stages {
		state.Visit(stage.name)
		stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
		err := stage.fn(stageCtx, requestID, state)
		cancel()
		if err != nil {
			log.Printf("pipeline: stage %s failed: %v", stage.name, err)
			state.Err = err.Error()
			state.Response = failureResponse
			break
		}
	}

	return p.result(state), nil
}

func (p *Pipeline) result(state *types.ConversationState) *Result {
	r := &Result{
		Response:  state.Response,
		Intent:    state.Intent,
		Entities:  state.Entities,
		ThoughtID: state.ThoughtID,
		RoutePath: state.RoutePath,
	}
	if state.Extraction != nil {
		r.Categories = state.Extraction.Categories
		r.Summary = state.Extraction.Summary
	}
	return r
}

// sanitize normalizes the raw input. Full PII redaction happens at the
// router boundary for cloud calls; this stage only rejects unusable input
// and trims whitespace.
func (p *Pipeline) sanitize(_ context.Context, _ string, state *types.ConversationState) error {
	trimmed := strings.TrimSpace(state.RawInput)
	if trimmed == "" {
		return fmt.Errorf("empty input")
	}
	state.SanitizedInput = trimmed
	state.Profile = p.profile
	return nil
}

// classify determines intent, urgency, and privacy via the Reflex tier,
// with the trivial-input fast path inside the router.
func (p *Pipeline) classify(ctx context.Context, requestID string, state *types.ConversationState) error {
	result, err := p.router.ClassifyIntent(ctx, requestID, state.SanitizedInput)
	if err != nil {
		return fmt.Errorf("classification: %w", err)
	}
	state.Intent = result.Intent
	state.Urgency = result.Urgency
	state.PrivacyLevel = result.PrivacyLevel
	if result.Entities != nil {
		state.Entities = result.Entities
	}
	return nil
}

// retrieveContext gathers semantic search hits plus graph context for
// mentioned people. Retrieval failures degrade to an empty context rather
// than failing the request.
func (p *Pipeline) retrieveContext(ctx context.Context, _ string, state *types.ConversationState) error {
	if state.Intent == types.IntentSimple {
		return nil // greetings don't need memory
	}

	items, err := p.search.SimilarContext(ctx, state.SanitizedInput, contextLimit)
	if err != nil {
		log.Printf("pipeline: semantic retrieval degraded: %v", err)
	} else {
		state.Context = items
	}

	for _, person := range state.Entities["people"] {
		profile, err := p.store.EntityProfile(ctx, person)
		if err != nil {
			continue // unknown person, nothing to add
		}
		state.Context = append(state.Context, types.ContextItem{
			Entity:  person,
			Content: profile.Entity.Description,
		})
	}
	return nil
}

// reason dispatches to the intent-specific stage. The switch is pure and
// exhaustive: every intent maps to exactly one stage, with the analyst as
// the default for knowledge-bearing intents.
func (p *Pipeline) reason(ctx context.Context, requestID string, state *types.ConversationState) error {
	stage := RouteByIntent(state.Intent)
	state.Visit(stage)
	switch stage {
	case StageScheduler:
		return p.scheduler(ctx, requestID, state)
	case StageSocial:
		return p.social(ctx, requestID, state)
	case StageSimple:
		return p.simple(ctx, requestID, state)
	default:
		return p.analyst(ctx, requestID, state)
	}
}

// Reasoning stage names, also recorded in the route path.
const (
	StageAnalyst   = "analyst"
	StageScheduler = "scheduler"
	StageSocial    = "social"
	StageSimple    = "simple"
)

// RouteByIntent maps an intent to its reasoning stage. Pure function:
// same intent, same stage, no state consulted.
func RouteByIntent(intent types.Intent) string {
	switch intent {
	case types.IntentSchedule:
		return StageScheduler
	case types.IntentSocial:
		return StageSocial
	case types.IntentSimple:
		return StageSimple
	case types.IntentThought, types.IntentQuestion, types.IntentQuery, types.IntentJournal:
		return StageAnalyst
	default:
		return StageAnalyst
	}
}

// clarifyOrConsolidate is the terminal stage: when a reasoning stage
// raised a clarification, persist it and surface the question instead of
// a normal response. Nothing is written to memory for clarified inputs.
func (p *Pipeline) clarifyOrConsolidate(ctx context.Context, _ string, state *types.ConversationState) error {
	if !state.NeedsClarification {
		return nil
	}
	clarification := &types.Clarification{
		ID:          p.newID(),
		Type:        types.ClarificationAmbiguity,
		Description: state.ClarificationRequest,
		Context:     state.SanitizedInput,
		CreatedAt:   p.now(),
	}
	if err := p.store.CreateClarification(ctx, clarification); err != nil {
		return fmt.Errorf("persisting clarification: %w", err)
	}
	state.Response = state.ClarificationRequest
	return nil
}

// contextLines renders retrieved context for inclusion in a prompt.
func contextLines(items []types.ContextItem) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		switch {
		case item.Entity != "" && item.Content != "":
			lines = append(lines, fmt.Sprintf("%s: %s", item.Entity, item.Content))
		case item.Summary != "":
			lines = append(lines, item.Summary)
		case item.Content != "":
			lines = append(lines, item.Content)
		}
	}
	return lines
}

// profileNotes renders the user profile constraints relevant to
// scheduling and social prompts.
func profileNotes(profile *types.UserProfile) []string {
	if profile == nil {
		return nil
	}
	var notes []string
	if profile.Biological.WorkStart != "" && profile.Biological.WorkEnd != "" {
		notes = append(notes, fmt.Sprintf("Work hours: %s-%s (%s)",
			profile.Biological.WorkStart, profile.Biological.WorkEnd, profile.Biological.Timezone))
	}
	for _, ag := range profile.AntiGoalDescriptions() {
		notes = append(notes, "Avoid: "+ag)
	}
	return notes
}
