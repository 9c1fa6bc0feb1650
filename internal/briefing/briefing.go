// Package briefing assembles the morning briefing: urgent risks, open
// clarifications, today's schedule, due action items, and the last
// maintenance run, aggregated read-only from the knowledge store.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

const (
	// maxRisks caps the urgent-risk section.
	maxRisks = 10

	// maxClarifications caps the clarification queue section.
	maxClarifications = 10

	// maxActionItems caps the due action item section.
	maxActionItems = 10

	// lookaheadDays is how far past today the upcoming-events section
	// reaches.
	lookaheadDays = 3
)

// Briefing is the morning dashboard payload.
type Briefing struct {
	GeneratedAt       time.Time               `json:"generated_at"`
	UrgentRisks       []types.Alert           `json:"urgent_risks"`
	Clarifications    []types.Clarification   `json:"clarification_queue"`
	TodaysMeetings    []types.CalendarEvent   `json:"todays_meetings"`
	UpcomingEvents    []types.CalendarEvent   `json:"upcoming_events"`
	ActionItemsDue    []types.ActionItem      `json:"action_items_due"`
	RemindersDue      []types.Reminder        `json:"reminders_due"`
	LastConsolidation *types.ConsolidationRun `json:"last_consolidation,omitempty"`
}

// Service generates briefings. It only reads; nothing in a briefing run
// mutates the store.
type Service struct {
	store store.KnowledgeStore
	now   func() time.Time
}

// NewService creates a briefing service.
func NewService(st store.KnowledgeStore) *Service {
	return &Service{store: st, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Generate assembles the briefing for the current day.
func (s *Service) Generate(ctx context.Context) (*Briefing, error) {
	now := s.now()
	b := &Briefing{
		GeneratedAt:    now,
		UrgentRisks:    []types.Alert{},
		Clarifications: []types.Clarification{},
		TodaysMeetings: []types.CalendarEvent{},
		UpcomingEvents: []types.CalendarEvent{},
		ActionItemsDue: []types.ActionItem{},
		RemindersDue:   []types.Reminder{},
	}

	alerts, err := s.store.PendingAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("briefing: failed to load alerts: %w", err)
	}
	for _, a := range alerts {
		if a.Urgency != types.UrgencyHigh {
			continue
		}
		b.UrgentRisks = append(b.UrgentRisks, a)
		if len(b.UrgentRisks) == maxRisks {
			break
		}
	}

	clarifications, err := s.store.PendingClarifications(ctx, maxClarifications)
	if err != nil {
		return nil, fmt.Errorf("briefing: failed to load clarifications: %w", err)
	}
	b.Clarifications = append(b.Clarifications, clarifications...)

	meetings, err := s.store.EventsForDay(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("briefing: failed to load today's events: %w", err)
	}
	b.TodaysMeetings = append(b.TodaysMeetings, meetings...)

	upcoming, err := s.store.UpcomingEvents(ctx, lookaheadDays)
	if err != nil {
		return nil, fmt.Errorf("briefing: failed to load upcoming events: %w", err)
	}
	endOfToday := startOfDay(now).AddDate(0, 0, 1)
	for _, e := range upcoming {
		// Today's events already have their own section.
		if e.Start.Before(endOfToday) {
			continue
		}
		b.UpcomingEvents = append(b.UpcomingEvents, e)
	}

	items, err := s.store.PendingActionItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("briefing: failed to load action items: %w", err)
	}
	endOfTomorrow := startOfDay(now).AddDate(0, 0, 2)
	for _, item := range items {
		if item.Deadline == nil || !item.Deadline.Before(endOfTomorrow) {
			continue
		}
		b.ActionItemsDue = append(b.ActionItemsDue, item)
		if len(b.ActionItemsDue) == maxActionItems {
			break
		}
	}

	reminders, err := s.store.PendingReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("briefing: failed to load reminders: %w", err)
	}
	for _, r := range reminders {
		if !r.At.Before(endOfToday) {
			continue
		}
		b.RemindersDue = append(b.RemindersDue, r)
	}

	lastRun, err := s.store.LastConsolidationRun(ctx)
	switch {
	case err == nil:
		b.LastConsolidation = lastRun
	case errors.Is(err, store.ErrNotFound):
		// Consolidation has never run; the section stays empty.
	default:
		return nil, fmt.Errorf("briefing: failed to load consolidation history: %w", err)
	}

	return b, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
