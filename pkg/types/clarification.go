package types

import "time"

// ClarificationType describes why the pipeline could not proceed.
type ClarificationType string

// Clarification types.
const (
	ClarificationAmbiguity   ClarificationType = "AMBIGUITY"
	ClarificationConflict    ClarificationType = "CONFLICT"
	ClarificationMissingInfo ClarificationType = "MISSING_INFO"
)

// Clarification is a pending question raised when a pipeline stage cannot
// proceed unambiguously. It is resolved exactly once by an explicit
// external call.
type Clarification struct {
	ID          string            `json:"id"`
	Type        ClarificationType `json:"type"`
	Description string            `json:"description"`
	Options     []string          `json:"options,omitempty"` // Optional multiple-choice answers
	Context     string            `json:"context,omitempty"` // Originating input
	Resolved    bool              `json:"resolved"`
	Response    string            `json:"response,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
