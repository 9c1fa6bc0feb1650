package types

import "time"

// ActionItem is a task implied by a captured thought. Created by
// extraction; mutated only by status transitions; never auto-deleted.
type ActionItem struct {
	ID        string     `json:"id"`
	Task      string     `json:"task"`
	Urgency   string     `json:"urgency"` // high | medium | low
	Deadline  *time.Time `json:"deadline,omitempty"`
	Status    string     `json:"status"` // pending | done
	CreatedAt time.Time  `json:"created_at"`
}

// Reminder is a time-anchored note created by the scheduler stage.
type Reminder struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	At        time.Time `json:"at"`
	Status    string    `json:"status"` // pending | done
	CreatedAt time.Time `json:"created_at"`
}

// Action item and reminder statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// BlockedTask is the read model consumed by the ghost detector: a task
// whose progress depends on a person. The detector never mutates tasks.
type BlockedTask struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Priority        int        `json:"priority"`         // 0-100
	CognitiveDemand string     `json:"cognitive_demand"` // HIGH | MEDIUM | LOW
	BlockerName     string     `json:"blocker_name"`
	BlockerID       string     `json:"blocker_id"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}

// CalendarEvent is a single scheduled block consumed by the defragmenter.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Moveable bool      `json:"moveable"`
}
