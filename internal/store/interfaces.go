// Package store provides the knowledge store interface for the Cortex
// system: thoughts, the entity graph, schedule data, clarifications,
// alerts, and embedding storage behind one interface with sqlite and
// postgres backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/scrypster/cortex/pkg/types"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is returned when required fields are missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyResolved is returned when resolving a clarification twice.
	ErrAlreadyResolved = errors.New("clarification already resolved")
)

// KnowledgeStore is the persistence interface for the whole system.
// Implementations must be safe for concurrent use.
type KnowledgeStore interface {
	// Thoughts.
	CreateThought(ctx context.Context, t *types.Thought) error
	GetThought(ctx context.Context, id string) (*types.Thought, error)
	RecentThoughts(ctx context.Context, since time.Time, limit int) ([]*types.Thought, error)
	MarkRedundant(ctx context.Context, id, redundantOf string) error
	UpdateReview(ctx context.Context, t *types.Thought) error
	SetReviewQueue(ctx context.Context, id string, inQueue bool) error
	// ReviewCandidates returns thoughts with salience at or above the
	// threshold whose next review is unset or due at now.
	ReviewCandidates(ctx context.Context, minSalience float64, now time.Time) ([]*types.Thought, error)

	// Embeddings, stored per thought for the semantic search layer.
	StoreEmbedding(ctx context.Context, thoughtID string, embedding []float32, model string) error
	AllEmbeddings(ctx context.Context) (map[string][]float32, error)

	// Entity graph.
	UpsertEntity(ctx context.Context, e *types.Entity) error
	GetEntity(ctx context.Context, name string) (*types.Entity, error)
	LinkEntity(ctx context.Context, thoughtID, entityName string) error
	LinkCategory(ctx context.Context, thoughtID, category string) error
	// EntityMentions returns thoughts mentioning the entity since the
	// given time, newest first.
	EntityMentions(ctx context.Context, entityName string, since time.Time) ([]*types.Thought, error)
	EntityProfile(ctx context.Context, name string) (*types.EntityProfile, error)
	ActiveEntities(ctx context.Context, since time.Time) ([]*types.Entity, error)
	UpdateEntityActivity(ctx context.Context, name string, mentions int, lastSeen *time.Time) error
	// CoOccurringPairs returns unordered entity pairs mentioned together
	// in at least minCount distinct thoughts.
	CoOccurringPairs(ctx context.Context, minCount int) ([]types.EntityPair, error)
	StrengthenConnection(ctx context.Context, from, to string, weight int) error
	Connections(ctx context.Context, entityName string) ([]types.EntityConnection, error)

	// Schedule.
	CreateActionItem(ctx context.Context, item *types.ActionItem) error
	PendingActionItems(ctx context.Context) ([]types.ActionItem, error)
	CreateReminder(ctx context.Context, r *types.Reminder) error
	PendingReminders(ctx context.Context) ([]types.Reminder, error)
	UpsertEvent(ctx context.Context, e *types.CalendarEvent) error
	EventsForDay(ctx context.Context, day time.Time) ([]types.CalendarEvent, error)
	UpcomingEvents(ctx context.Context, days int) ([]types.CalendarEvent, error)
	UpsertBlockedTask(ctx context.Context, t *types.BlockedTask) error
	BlockedTasks(ctx context.Context) ([]types.BlockedTask, error)
	// LastInteraction returns the newest thought timestamp mentioning the
	// person, or nil when they have never been mentioned.
	LastInteraction(ctx context.Context, person string) (*time.Time, error)

	// Clarifications.
	CreateClarification(ctx context.Context, c *types.Clarification) error
	GetClarification(ctx context.Context, id string) (*types.Clarification, error)
	// PendingClarifications returns unresolved clarifications, newest
	// first, capped at limit.
	PendingClarifications(ctx context.Context, limit int) ([]types.Clarification, error)
	ResolveClarification(ctx context.Context, id, response string) error

	// Alerts.
	CreateAlert(ctx context.Context, a *types.Alert) error
	PendingAlerts(ctx context.Context) ([]types.Alert, error)
	DismissAlert(ctx context.Context, id string) error

	// Consolidation history.
	RecordConsolidationRun(ctx context.Context, run *types.ConsolidationRun) error
	LastConsolidationRun(ctx context.Context) (*types.ConsolidationRun, error)

	// Close releases any resources held by the store.
	Close() error
}
