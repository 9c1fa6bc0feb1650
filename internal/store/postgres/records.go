package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

// UpsertEntity creates an entity or merges new context into an existing
// one, with the same append-only description semantics as the sqlite
// backend.
func (s *KnowledgeStore) UpsertEntity(ctx context.Context, e *types.Entity) error {
	if e == nil || e.Name == "" {
		return fmt.Errorf("%w: entity name is required", store.ErrInvalidInput)
	}
	if !types.IsValidEntityType(e.Type) {
		return fmt.Errorf("%w: unknown entity type %q", store.ErrInvalidInput, e.Type)
	}
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (name, type, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (name) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			description = CASE
				WHEN EXCLUDED.description = '' THEN entities.description
				WHEN entities.description = '' THEN EXCLUDED.description
				WHEN position(EXCLUDED.description IN entities.description) > 0 THEN entities.description
				ELSE entities.description || ' | ' || EXCLUDED.description
			END`,
		e.Name, e.Type, e.Description, now)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert entity: %w", err)
	}
	return nil
}

// GetEntity retrieves an entity by name.
func (s *KnowledgeStore) GetEntity(ctx context.Context, name string) (*types.Entity, error) {
	var (
		e        types.Entity
		lastSeen sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, type, description, created_at, updated_at, recent_activity, last_seen
		FROM entities WHERE name = $1`, name).Scan(
		&e.Name, &e.Type, &e.Description, &e.CreatedAt, &e.UpdatedAt,
		&e.RecentActivity, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get entity: %w", err)
	}
	if lastSeen.Valid {
		e.LastSeen = &lastSeen.Time
	}
	return &e, nil
}

// LinkEntity records that a thought mentions an entity.
func (s *KnowledgeStore) LinkEntity(ctx context.Context, thoughtID, entityName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thought_entities (thought_id, entity_name) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		thoughtID, entityName)
	if err != nil {
		return fmt.Errorf("postgres: failed to link entity: %w", err)
	}
	return nil
}

// LinkCategory tags a thought with a PARA category.
func (s *KnowledgeStore) LinkCategory(ctx context.Context, thoughtID, category string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thought_categories (thought_id, category) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		thoughtID, category)
	if err != nil {
		return fmt.Errorf("postgres: failed to link category: %w", err)
	}
	return nil
}

// EntityMentions returns thoughts mentioning the entity created at or
// after since, newest first.
func (s *KnowledgeStore) EntityMentions(ctx context.Context, entityName string, since time.Time) ([]*types.Thought, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+thoughtColumns+` FROM thoughts
		WHERE id IN (SELECT thought_id FROM thought_entities WHERE entity_name = $1)
		  AND created_at >= $2
		ORDER BY created_at DESC`,
		entityName, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query entity mentions: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// EntityProfile returns the entity with its total mention count and
// connected entity names.
func (s *KnowledgeStore) EntityProfile(ctx context.Context, name string) (*types.EntityProfile, error) {
	entity, err := s.GetEntity(ctx, name)
	if err != nil {
		return nil, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM thought_entities WHERE entity_name = $1`, name).Scan(&count); err != nil {
		return nil, fmt.Errorf("postgres: failed to count mentions: %w", err)
	}

	conns, err := s.Connections(ctx, name)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(conns))
	for _, c := range conns {
		other := c.From
		if other == name {
			other = c.To
		}
		names = append(names, other)
	}

	return &types.EntityProfile{
		Entity:           *entity,
		InteractionCount: count,
		Connections:      names,
	}, nil
}

// ActiveEntities returns entities mentioned by at least one thought
// created at or after since.
func (s *KnowledgeStore) ActiveEntities(ctx context.Context, since time.Time) ([]*types.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.name, e.type, e.description, e.created_at, e.updated_at,
		       e.recent_activity, e.last_seen
		FROM entities e
		JOIN thought_entities te ON te.entity_name = e.name
		JOIN thoughts t ON t.id = te.thought_id
		WHERE t.created_at >= $1`,
		since)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query active entities: %w", err)
	}
	defer rows.Close()

	var entities []*types.Entity
	for rows.Next() {
		var (
			e        types.Entity
			lastSeen sql.NullTime
		)
		if err := rows.Scan(&e.Name, &e.Type, &e.Description, &e.CreatedAt,
			&e.UpdatedAt, &e.RecentActivity, &lastSeen); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan entity: %w", err)
		}
		if lastSeen.Valid {
			e.LastSeen = &lastSeen.Time
		}
		entities = append(entities, &e)
	}
	return entities, rows.Err()
}

// UpdateEntityActivity records the consolidation-computed mention count
// and most recent mention time for an entity.
func (s *KnowledgeStore) UpdateEntityActivity(ctx context.Context, name string, mentions int, lastSeen *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entities SET recent_activity = $1, last_seen = $2, updated_at = $3
		WHERE name = $4`,
		mentions, lastSeen, time.Now(), name)
	if err != nil {
		return fmt.Errorf("postgres: failed to update entity activity: %w", err)
	}
	return requireRowAffected(result)
}

// CoOccurringPairs returns unordered entity pairs mentioned together in
// at least minCount distinct thoughts.
func (s *KnowledgeStore) CoOccurringPairs(ctx context.Context, minCount int) ([]types.EntityPair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.entity_name, b.entity_name, COUNT(DISTINCT a.thought_id) AS n
		FROM thought_entities a
		JOIN thought_entities b
		  ON a.thought_id = b.thought_id AND a.entity_name < b.entity_name
		GROUP BY a.entity_name, b.entity_name
		HAVING COUNT(DISTINCT a.thought_id) >= $1
		ORDER BY n DESC`,
		minCount)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query co-occurring pairs: %w", err)
	}
	defer rows.Close()

	var pairs []types.EntityPair
	for rows.Next() {
		var p types.EntityPair
		if err := rows.Scan(&p.A, &p.B, &p.Count); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// StrengthenConnection sets the weight of the undirected connection
// between two entities, normalized so the smaller name is stored first.
func (s *KnowledgeStore) StrengthenConnection(ctx context.Context, from, to string, weight int) error {
	if from == to || from == "" || to == "" {
		return fmt.Errorf("%w: connection needs two distinct entities", store.ErrInvalidInput)
	}
	a, b := from, to
	if b < a {
		a, b = b, a
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entity_connections (a, b, weight, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (a, b) DO UPDATE SET
			weight = EXCLUDED.weight,
			updated_at = EXCLUDED.updated_at`,
		a, b, weight, time.Now())
	if err != nil {
		return fmt.Errorf("postgres: failed to strengthen connection: %w", err)
	}
	return nil
}

// Connections returns all connections touching an entity.
func (s *KnowledgeStore) Connections(ctx context.Context, entityName string) ([]types.EntityConnection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a, b, weight, updated_at FROM entity_connections
		WHERE a = $1 OR b = $1
		ORDER BY weight DESC`,
		entityName)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []types.EntityConnection
	for rows.Next() {
		var c types.EntityConnection
		if err := rows.Scan(&c.From, &c.To, &c.Weight, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

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
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.Task, item.Urgency, item.Deadline, item.Status, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert action item: %w", err)
	}
	return nil
}

// PendingActionItems returns all pending action items, soonest deadline
// first with undated items last.
func (s *KnowledgeStore) PendingActionItems(ctx context.Context) ([]types.ActionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task, urgency, deadline, status, created_at
		FROM action_items WHERE status = $1
		ORDER BY deadline ASC NULLS LAST, created_at ASC`,
		types.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query action items: %w", err)
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
			return nil, fmt.Errorf("postgres: failed to scan action item: %w", err)
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
		VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.Title, r.At, r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert reminder: %w", err)
	}
	return nil
}

// PendingReminders returns all pending reminders in firing order.
func (s *KnowledgeStore) PendingReminders(ctx context.Context) ([]types.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, at, status, created_at FROM reminders
		WHERE status = $1 ORDER BY at ASC`,
		types.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []types.Reminder
	for rows.Next() {
		var r types.Reminder
		if err := rows.Scan(&r.ID, &r.Title, &r.At, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan reminder: %w", err)
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
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			start = EXCLUDED.start,
			"end" = EXCLUDED."end",
			moveable = EXCLUDED.moveable`,
		e.ID, e.Title, e.Start, e.End, e.Moveable)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert event: %w", err)
	}
	return nil
}

// EventsForDay returns events starting on the given calendar day.
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
		WHERE start >= $1 AND start < $2
		ORDER BY start ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []types.CalendarEvent
	for rows.Next() {
		var e types.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.Start, &e.End, &e.Moveable); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan event: %w", err)
		}
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			priority = EXCLUDED.priority,
			cognitive_demand = EXCLUDED.cognitive_demand,
			blocker_name = EXCLUDED.blocker_name,
			blocker_id = EXCLUDED.blocker_id,
			deadline = EXCLUDED.deadline`,
		t.ID, t.Title, t.Priority, t.CognitiveDemand, t.BlockerName, t.BlockerID, t.Deadline)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert blocked task: %w", err)
	}
	return nil
}

// BlockedTasks returns all tasks currently blocked on a person.
func (s *KnowledgeStore) BlockedTasks(ctx context.Context) ([]types.BlockedTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, priority, cognitive_demand, blocker_name, blocker_id, deadline
		FROM blocked_tasks ORDER BY priority DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query blocked tasks: %w", err)
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
			return nil, fmt.Errorf("postgres: failed to scan blocked task: %w", err)
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
		WHERE te.entity_name = $1`,
		person).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query last interaction: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// CreateClarification persists a pending clarification.
func (s *KnowledgeStore) CreateClarification(ctx context.Context, c *types.Clarification) error {
	if c == nil || c.ID == "" || c.Description == "" {
		return fmt.Errorf("%w: clarification ID and description are required", store.ErrInvalidInput)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	var options interface{}
	if len(c.Options) > 0 {
		data, err := json.Marshal(c.Options)
		if err != nil {
			return fmt.Errorf("postgres: failed to marshal options: %w", err)
		}
		options = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clarifications (id, type, description, options, context, resolved, response, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, '', $6)`,
		c.ID, string(c.Type), c.Description, options, c.Context, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert clarification: %w", err)
	}
	return nil
}

// GetClarification retrieves a clarification by ID.
func (s *KnowledgeStore) GetClarification(ctx context.Context, id string) (*types.Clarification, error) {
	var (
		c       types.Clarification
		ctype   string
		options []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, description, options, context, resolved, response, created_at
		FROM clarifications WHERE id = $1`, id).Scan(
		&c.ID, &ctype, &c.Description, &options, &c.Context, &c.Resolved, &c.Response, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get clarification: %w", err)
	}
	c.Type = types.ClarificationType(ctype)
	if len(options) > 0 {
		if err := json.Unmarshal(options, &c.Options); err != nil {
			return nil, fmt.Errorf("postgres: corrupt clarification options: %w", err)
		}
	}
	return &c, nil
}

// PendingClarifications returns unresolved clarifications, newest first.
func (s *KnowledgeStore) PendingClarifications(ctx context.Context, limit int) ([]types.Clarification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, description, options, context, resolved, response, created_at
		FROM clarifications WHERE resolved = FALSE
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query clarifications: %w", err)
	}
	defer rows.Close()

	var pending []types.Clarification
	for rows.Next() {
		var (
			c       types.Clarification
			ctype   string
			options []byte
		)
		if err := rows.Scan(&c.ID, &ctype, &c.Description, &options, &c.Context,
			&c.Resolved, &c.Response, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan clarification: %w", err)
		}
		c.Type = types.ClarificationType(ctype)
		if len(options) > 0 {
			if err := json.Unmarshal(options, &c.Options); err != nil {
				return nil, fmt.Errorf("postgres: corrupt clarification options: %w", err)
			}
		}
		pending = append(pending, c)
	}
	return pending, rows.Err()
}

// ResolveClarification records the user's answer, exactly once.
func (s *KnowledgeStore) ResolveClarification(ctx context.Context, id, response string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE clarifications SET resolved = TRUE, response = $1
		WHERE id = $2 AND resolved = FALSE`,
		response, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to resolve clarification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetClarification(ctx, id); err != nil {
			return err
		}
		return store.ErrAlreadyResolved
	}
	return nil
}

// CreateAlert persists an alert raised by a background detector.
func (s *KnowledgeStore) CreateAlert(ctx context.Context, a *types.Alert) error {
	if a == nil || a.ID == "" || a.Type == "" {
		return fmt.Errorf("%w: alert ID and type are required", store.ErrInvalidInput)
	}
	if a.Urgency == "" {
		a.Urgency = types.UrgencyLow
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	var metadata interface{}
	if len(a.Metadata) > 0 {
		data, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("postgres: failed to marshal alert metadata: %w", err)
		}
		metadata = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, title, message, urgency, metadata, created_at, read, dismissed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Type, a.Title, a.Message, a.Urgency, metadata, a.CreatedAt, a.Read, a.Dismissed)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert alert: %w", err)
	}
	return nil
}

// PendingAlerts returns undismissed alerts ordered by urgency then
// recency.
func (s *KnowledgeStore) PendingAlerts(ctx context.Context) ([]types.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, message, urgency, metadata, created_at, read, dismissed
		FROM alerts WHERE dismissed = FALSE
		ORDER BY CASE urgency WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
		         created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var (
			a        types.Alert
			metadata []byte
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Title, &a.Message, &a.Urgency,
			&metadata, &a.CreatedAt, &a.Read, &a.Dismissed); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan alert: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: corrupt alert metadata: %w", err)
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DismissAlert marks an alert dismissed.
func (s *KnowledgeStore) DismissAlert(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET dismissed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to dismiss alert: %w", err)
	}
	return requireRowAffected(result)
}

// RecordConsolidationRun appends a consolidation run summary.
func (s *KnowledgeStore) RecordConsolidationRun(ctx context.Context, run *types.ConsolidationRun) error {
	if run == nil {
		return store.ErrInvalidInput
	}
	if run.RanAt.IsZero() {
		run.RanAt = time.Now()
	}
	var errsJSON interface{}
	if len(run.Errors) > 0 {
		data, err := json.Marshal(run.Errors)
		if err != nil {
			return fmt.Errorf("postgres: failed to marshal run errors: %w", err)
		}
		errsJSON = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consolidation_runs
			(ran_at, profiles_updated, connections_strengthened, redundant_marked, review_queue_updated, errors)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.RanAt, run.ProfilesUpdated, run.ConnectionsStrengthened,
		run.RedundantMarked, run.ReviewQueueUpdated, errsJSON)
	if err != nil {
		return fmt.Errorf("postgres: failed to record consolidation run: %w", err)
	}
	return nil
}

// LastConsolidationRun returns the most recent run summary.
func (s *KnowledgeStore) LastConsolidationRun(ctx context.Context) (*types.ConsolidationRun, error) {
	var (
		run      types.ConsolidationRun
		errsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT ran_at, profiles_updated, connections_strengthened, redundant_marked, review_queue_updated, errors
		FROM consolidation_runs ORDER BY id DESC LIMIT 1`).Scan(
		&run.RanAt, &run.ProfilesUpdated, &run.ConnectionsStrengthened,
		&run.RedundantMarked, &run.ReviewQueueUpdated, &errsJSON)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get last consolidation run: %w", err)
	}
	if len(errsJSON) > 0 {
		if err := json.Unmarshal(errsJSON, &run.Errors); err != nil {
			return nil, fmt.Errorf("postgres: corrupt run errors: %w", err)
		}
	}
	return &run, nil
}
