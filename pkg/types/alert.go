package types

import "time"

// Alert types emitted by the background detectors.
const (
	AlertGhostDependency      = "GHOST_DEPENDENCY"
	AlertScheduleOptimization = "SCHEDULE_OPTIMIZATION"
	AlertDeadlineRisk         = "DEADLINE_RISK"
)

// Alert urgencies, lowest to highest.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Alert is a notification raised by a background job (ghost detector,
// schedule defragmenter). Alerts are persisted for history and pushed to
// live subscribers; resolution is a human action.
type Alert struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Urgency   string            `json:"urgency"` // low | medium | high
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Read      bool              `json:"read"`
	Dismissed bool              `json:"dismissed"`
}

// UrgencyRank maps an urgency label to a sortable rank (high first).
func UrgencyRank(urgency string) int {
	switch urgency {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	default:
		return 2
	}
}
