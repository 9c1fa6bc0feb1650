// Package types defines the shared domain types for the Cortex knowledge
// system. Thoughts are the atomic units of captured knowledge; entities,
// action items, and clarifications hang off them.
package types

import "time"

// Thought represents a single captured unit of knowledge.
// Thoughts are created on ingestion and mutated only by the spaced-repetition
// review update and by consolidation (redundancy marking). They are never
// hard-deleted; a redundant thought is annotated with the ID of the thought
// it duplicates.
type Thought struct {
	// Core identification fields
	ID        string    `json:"id"`         // Unique identifier (UUID)
	Content   string    `json:"content"`    // Raw thought content as captured
	Summary   string    `json:"summary"`    // One-line LLM-generated summary
	CreatedAt time.Time `json:"created_at"` // When the thought was captured

	// Embedding fields (populated asynchronously)
	Embedding      []float32 `json:"embedding,omitempty"`       // Vector embedding for semantic search
	EmbeddingModel string    `json:"embedding_model,omitempty"` // Model used for the embedding

	// Salience drives review-queue membership during consolidation.
	Salience float64 `json:"salience"` // Importance score (0.0-1.0)

	// Spaced-repetition scheduling (SM-2)
	ReviewCount  int        `json:"review_count"`          // Completed reviews
	EaseFactor   float64    `json:"ease_factor"`           // SM-2 ease factor (default 2.5, floor 1.3)
	IntervalDays int        `json:"interval_days"`         // Days until next review (default 1)
	LastReview   *time.Time `json:"last_review,omitempty"` // Most recent review timestamp
	NextReview   *time.Time `json:"next_review,omitempty"` // Scheduled next review
	InReviewQueue bool      `json:"in_review_queue"`       // Flagged for review by consolidation

	// Redundancy annotation (set by consolidation, never triggers deletion)
	RedundantOf     string     `json:"redundant_of,omitempty"`     // ID of the earlier thought this duplicates
	MarkedRedundant *time.Time `json:"marked_redundant,omitempty"` // When the annotation was applied
}

// DefaultEaseFactor is the SM-2 ease factor assigned to new thoughts.
const DefaultEaseFactor = 2.5

// MinEaseFactor is the SM-2 ease factor floor.
const MinEaseFactor = 1.3

// NewThoughtDefaults applies the spaced-repetition defaults to a thought
// that has not been reviewed yet.
func NewThoughtDefaults(t *Thought) {
	if t.EaseFactor == 0 {
		t.EaseFactor = DefaultEaseFactor
	}
	if t.IntervalDays == 0 {
		t.IntervalDays = 1
	}
}
