// Package ghost detects stale person-dependencies: important blocked
// tasks whose human blocker has gone quiet.
package ghost

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

const (
	// minPriority is the priority floor below which a blocked task is
	// only considered when its cognitive demand is HIGH.
	minPriority = 50

	// silenceWindow is how long a blocker may go unmentioned before the
	// dependency is considered ghosted.
	silenceWindow = 3 * 24 * time.Hour

	// deadlinePanic is the window inside which a ghosted dependency
	// escalates to high urgency.
	deadlinePanic = 48 * time.Hour
)

// Sink receives the alerts the detector raises.
type Sink interface {
	Publish(ctx context.Context, alert *types.Alert) error
}

// Detector scans blocked tasks for ghosted person-dependencies. It
// reads tasks and thought mentions but never mutates either.
type Detector struct {
	store store.KnowledgeStore
	sink  Sink
	now   func() time.Time
}

// New creates a ghost detector.
func New(st store.KnowledgeStore, sink Sink) *Detector {
	return &Detector{store: st, sink: sink, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// Run performs one detection pass and returns how many alerts were
// raised. A failure on one task is logged and the scan continues.
func (d *Detector) Run(ctx context.Context) (int, error) {
	tasks, err := d.store.BlockedTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("ghost: failed to load blocked tasks: %w", err)
	}

	now := d.now()
	raised := 0
	for _, task := range tasks {
		if !d.matters(task) {
			continue
		}
		alert, err := d.inspect(ctx, task, now)
		if err != nil {
			log.Printf("ghost: skipping task %s: %v", task.ID, err)
			continue
		}
		if alert == nil {
			continue
		}
		if err := d.sink.Publish(ctx, alert); err != nil {
			log.Printf("ghost: failed to publish alert for task %s: %v", task.ID, err)
			continue
		}
		raised++
	}
	return raised, nil
}

// matters reports whether a blocked task is important enough to watch:
// priority at or above the floor, or high cognitive demand.
func (d *Detector) matters(task types.BlockedTask) bool {
	if task.BlockerName == "" {
		return false
	}
	return task.Priority >= minPriority || task.CognitiveDemand == "HIGH"
}

// inspect checks one task's blocker for silence and builds the alert
// when the dependency is ghosted.
func (d *Detector) inspect(ctx context.Context, task types.BlockedTask, now time.Time) (*types.Alert, error) {
	last, err := d.store.LastInteraction(ctx, task.BlockerName)
	if err != nil {
		return nil, fmt.Errorf("last interaction for %q: %w", task.BlockerName, err)
	}

	silence := "never"
	if last != nil {
		elapsed := now.Sub(*last)
		if elapsed < silenceWindow {
			return nil, nil
		}
		silence = strconv.Itoa(int(elapsed.Hours() / 24))
	}

	urgency := types.UrgencyMedium
	deadline := ""
	if task.Deadline != nil {
		deadline = task.Deadline.Format(time.RFC3339)
		if task.Deadline.Sub(now) < deadlinePanic {
			urgency = types.UrgencyHigh
		}
	}

	message := fmt.Sprintf("%q is blocked on %s, last heard from %s days ago.",
		task.Title, task.BlockerName, silence)
	if silence == "never" {
		message = fmt.Sprintf("%q is blocked on %s, who has never been mentioned.",
			task.Title, task.BlockerName)
	}
	if deadline != "" {
		message += fmt.Sprintf(" Deadline: %s.", task.Deadline.Format("Mon Jan 2 15:04"))
	}

	return &types.Alert{
		Type:    types.AlertGhostDependency,
		Title:   "Ghosted dependency: " + task.BlockerName,
		Message: message,
		Urgency: urgency,
		Metadata: map[string]string{
			"task_id":     task.ID,
			"blocker":     task.BlockerName,
			"days_silent": silence,
			"deadline":    deadline,
		},
		CreatedAt: now,
	}, nil
}
