package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

// CreateActionItem inserts an action item extracted from a thought.
func (s *KnowledgeStore) CreateActionItem(ctx context.Context, item *types.ActionItem) error {
	if item == nil || item.ID == "" || item.Task == "" {
		return fmt.Errorf("%w: action item ID and task are required", store.ErrInvalidInput)
	}
	if item.Status == "" {
		item.Status = types.StatusPending
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_items (id, task, urgency, deadline, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Task, item.Urgency, item.Deadline, item.Status, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert action item: %w", err)
	}
	return nil
}

// PendingActionItems returns all pending action items, soonest deadline
// first with undated items last.
func (s *KnowledgeStore) PendingActionItems(ctx context.Context) ([]types.ActionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task, urgency, deadline, status, created_at
		FROM action_items WHERE status = ?
		ORDER BY deadline IS NULL, deadline ASC, created_at ASC`,
		types.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query action items: %w", err)
	}
	defer rows.Close()

	var items []types.ActionItem
	for rows.Next() {
		var (
			item     types.ActionItem
			deadline sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.Task, &item.Urgency, &deadline,
			&item.Status, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan action item: %w", err)
		}
		if deadline.Valid {
			item.Deadline = &deadline.Time
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateReminder inserts a reminder created by the scheduler stage.
func (s *KnowledgeStore) CreateReminder(ctx context.Context, r *types.Reminder) error {
	if r == nil || r.ID == "" || r.Title == "" {
		return fmt.Errorf("%w: reminder ID and title are required", store.ErrInvalidInput)
	}
	if r.Status == "" {
		r.Status = types.StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, title, at, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.At, r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert reminder: %w", err)
	}
	return nil
}

// PendingReminders returns all pending reminders in firing order.
func (s *KnowledgeStore) PendingReminders(ctx context.Context) ([]types.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, at, status, created_at FROM reminders
		WHERE status = ? ORDER BY at ASC`,
		types.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []types.Reminder
	for rows.Next() {
		var r types.Reminder
		if err := rows.Scan(&r.ID, &r.Title, &r.At, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// UpsertEvent creates or updates a calendar event.
func (s *KnowledgeStore) UpsertEvent(ctx context.Context, e *types.CalendarEvent) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("%w: event ID is required", store.ErrInvalidInput)
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("%w: event must end after it starts", store.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, start, "end", moveable)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			start = excluded.start,
			"end" = excluded."end",
			moveable = excluded.moveable`,
		e.ID, e.Title, e.Start, e.End, boolToInt(e.Moveable))
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert event: %w", err)
	}
	return nil
}

// EventsForDay returns events starting on the given calendar day, in
// start order.
func (s *KnowledgeStore) EventsForDay(ctx context.Context, day time.Time) ([]types.CalendarEvent, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.eventsBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}

// UpcomingEvents returns events starting within the next N days.
func (s *KnowledgeStore) UpcomingEvents(ctx context.Context, days int) ([]types.CalendarEvent, error) {
	now := time.Now()
	return s.eventsBetween(ctx, now, now.AddDate(0, 0, days))
}

func (s *KnowledgeStore) eventsBetween(ctx context.Context, from, to time.Time) ([]types.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, start, "end", moveable FROM events
		WHERE start >= ? AND start < ?
		ORDER BY start ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []types.CalendarEvent
	for rows.Next() {
		var (
			e        types.CalendarEvent
			moveable int
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Start, &e.End, &moveable); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan event: %w", err)
		}
		e.Moveable = moveable != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpsertBlockedTask creates or updates a blocked task record.
func (s *KnowledgeStore) UpsertBlockedTask(ctx context.Context, t *types.BlockedTask) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("%w: blocked task ID is required", store.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocked_tasks (id, title, priority, cognitive_demand, blocker_name, blocker_id, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			priority = excluded.priority,
			cognitive_demand = excluded.cognitive_demand,
			blocker_name = excluded.blocker_name,
			blocker_id = excluded.blocker_id,
			deadline = excluded.deadline`,
		t.ID, t.Title, t.Priority, t.CognitiveDemand, t.BlockerName, t.BlockerID, t.Deadline)
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert blocked task: %w", err)
	}
	return nil
}

// BlockedTasks returns all tasks currently blocked on a person.
func (s *KnowledgeStore) BlockedTasks(ctx context.Context) ([]types.BlockedTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, priority, cognitive_demand, blocker_name, blocker_id, deadline
		FROM blocked_tasks ORDER BY priority DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query blocked tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.BlockedTask
	for rows.Next() {
		var (
			t        types.BlockedTask
			deadline sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Priority, &t.CognitiveDemand,
			&t.BlockerName, &t.BlockerID, &deadline); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan blocked task: %w", err)
		}
		if deadline.Valid {
			t.Deadline = &deadline.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// LastInteraction returns the most recent thought timestamp mentioning
// the person, or nil if they have never been mentioned.
func (s *KnowledgeStore) LastInteraction(ctx context.Context, person string) (*time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(t.created_at)
		FROM thoughts t
		JOIN thought_entities te ON te.thought_id = t.id
		WHERE te.entity_name = ?`,
		person).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query last interaction: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}
