// Package defrag analyzes a day's calendar for fragmentation: awkward
// dead gaps between events and back-to-back transitions with no
// breathing room. It only suggests; events are never modified.
package defrag

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

const (
	// Gaps strictly inside (deadGapMin, deadGapMax) are too short to do
	// deep work in and too long to ignore.
	deadGapMin = 15 * time.Minute
	deadGapMax = 45 * time.Minute

	// noBufferMax marks a transition with effectively no break.
	noBufferMax = 5 * time.Minute

	// consolidationFloor is the cumulative dead time that triggers a
	// consolidation suggestion.
	consolidationFloor = 60 * time.Minute

	// minDeadGaps is the minimum number of dead gaps for consolidation.
	minDeadGaps = 2

	// minNoBuffer is the minimum number of zero-buffer transitions for a
	// buffer warning.
	minNoBuffer = 3

	// suggestedBuffer pads the proposed slot after the day's last event.
	suggestedBuffer = 15 * time.Minute
)

// Sink receives the suggestions the defragmenter raises.
type Sink interface {
	Publish(ctx context.Context, alert *types.Alert) error
}

// Analyzer inspects one day's schedule at a time.
type Analyzer struct {
	store store.KnowledgeStore
	sink  Sink
	now   func() time.Time
}

// New creates a schedule analyzer.
func New(st store.KnowledgeStore, sink Sink) *Analyzer {
	return &Analyzer{store: st, sink: sink, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Run analyzes today's schedule and returns how many suggestions were
// raised.
func (a *Analyzer) Run(ctx context.Context) (int, error) {
	return a.AnalyzeDay(ctx, a.now())
}

// AnalyzeDay inspects the events of the given day and publishes at most
// one consolidation suggestion and at most one buffer warning.
func (a *Analyzer) AnalyzeDay(ctx context.Context, day time.Time) (int, error) {
	events, err := a.store.EventsForDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("defrag: failed to load events: %w", err)
	}
	if len(events) < 2 {
		return 0, nil
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	var (
		deadTime time.Duration
		deadGaps int
		noBuffer int
	)
	for i := 1; i < len(events); i++ {
		gap := events[i].Start.Sub(events[i-1].End)
		if gap < 0 {
			gap = 0
		}
		switch {
		case gap < noBufferMax:
			noBuffer++
		case gap > deadGapMin && gap < deadGapMax:
			deadTime += gap
			deadGaps++
		}
	}

	raised := 0
	if deadTime >= consolidationFloor && deadGaps >= minDeadGaps {
		if alert := a.consolidationSuggestion(events, deadTime, deadGaps); alert != nil {
			if err := a.sink.Publish(ctx, alert); err != nil {
				log.Printf("defrag: failed to publish consolidation suggestion: %v", err)
			} else {
				raised++
			}
		}
	}
	if noBuffer >= minNoBuffer {
		if err := a.sink.Publish(ctx, a.bufferWarning(noBuffer)); err != nil {
			log.Printf("defrag: failed to publish buffer warning: %v", err)
		} else {
			raised++
		}
	}
	return raised, nil
}

// consolidationSuggestion proposes moving the first moveable event into
// a slot after the day's last event. Nil when nothing can move.
func (a *Analyzer) consolidationSuggestion(events []types.CalendarEvent, deadTime time.Duration, deadGaps int) *types.Alert {
	var moveable *types.CalendarEvent
	for i := range events {
		if events[i].Moveable {
			moveable = &events[i]
			break
		}
	}
	if moveable == nil {
		return nil
	}

	slot := events[len(events)-1].End.Add(suggestedBuffer)
	return &types.Alert{
		Type:  types.AlertScheduleOptimization,
		Title: "Schedule consolidation opportunity",
		Message: fmt.Sprintf(
			"Your day has %d awkward gaps totaling %d minutes. Consider moving %q to %s to open a contiguous block.",
			deadGaps, int(deadTime.Minutes()), moveable.Title, slot.Format("15:04")),
		Urgency: types.UrgencyLow,
		Metadata: map[string]string{
			"suggestion":     "CONSOLIDATION",
			"event_id":       moveable.ID,
			"suggested_slot": slot.Format(time.RFC3339),
			"dead_minutes":   strconv.Itoa(int(deadTime.Minutes())),
			"dead_gaps":      strconv.Itoa(deadGaps),
		},
	}
}

func (a *Analyzer) bufferWarning(transitions int) *types.Alert {
	return &types.Alert{
		Type:  types.AlertScheduleOptimization,
		Title: "No breathing room between meetings",
		Message: fmt.Sprintf(
			"You have %d back-to-back transitions today with under five minutes between them.",
			transitions),
		Urgency: types.UrgencyLow,
		Metadata: map[string]string{
			"suggestion":  "BUFFER_WARNING",
			"transitions": strconv.Itoa(transitions),
		},
	}
}
