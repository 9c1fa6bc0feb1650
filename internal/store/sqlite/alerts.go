package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

// CreateClarification persists a pending clarification raised by the
// pipeline.
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
			return fmt.Errorf("sqlite: failed to marshal options: %w", err)
		}
		options = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clarifications (id, type, description, options, context, resolved, response, created_at)
		VALUES (?, ?, ?, ?, ?, 0, '', ?)`,
		c.ID, string(c.Type), c.Description, options, c.Context, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert clarification: %w", err)
	}
	return nil
}

// GetClarification retrieves a clarification by ID.
func (s *KnowledgeStore) GetClarification(ctx context.Context, id string) (*types.Clarification, error) {
	var (
		c        types.Clarification
		ctype    string
		options  sql.NullString
		resolved int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, description, options, context, resolved, response, created_at
		FROM clarifications WHERE id = ?`, id).Scan(
		&c.ID, &ctype, &c.Description, &options, &c.Context, &resolved, &c.Response, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get clarification: %w", err)
	}
	c.Type = types.ClarificationType(ctype)
	c.Resolved = resolved != 0
	if options.Valid {
		if err := json.Unmarshal([]byte(options.String), &c.Options); err != nil {
			return nil, fmt.Errorf("sqlite: corrupt clarification options: %w", err)
		}
	}
	return &c, nil
}

// PendingClarifications returns unresolved clarifications, newest first.
func (s *KnowledgeStore) PendingClarifications(ctx context.Context, limit int) ([]types.Clarification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, description, options, context, resolved, response, created_at
		FROM clarifications WHERE resolved = 0
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query clarifications: %w", err)
	}
	defer rows.Close()

	var pending []types.Clarification
	for rows.Next() {
		var (
			c        types.Clarification
			ctype    string
			options  sql.NullString
			resolved int
		)
		if err := rows.Scan(&c.ID, &ctype, &c.Description, &options, &c.Context,
			&resolved, &c.Response, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan clarification: %w", err)
		}
		c.Type = types.ClarificationType(ctype)
		c.Resolved = resolved != 0
		if options.Valid {
			if err := json.Unmarshal([]byte(options.String), &c.Options); err != nil {
				return nil, fmt.Errorf("sqlite: corrupt clarification options: %w", err)
			}
		}
		pending = append(pending, c)
	}
	return pending, rows.Err()
}

// ResolveClarification records the user's answer. A clarification is
// resolved exactly once; a second resolution returns ErrAlreadyResolved.
func (s *KnowledgeStore) ResolveClarification(ctx context.Context, id, response string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE clarifications SET resolved = 1, response = ?
		WHERE id = ? AND resolved = 0`,
		response, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to resolve clarification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
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
			return fmt.Errorf("sqlite: failed to marshal alert metadata: %w", err)
		}
		metadata = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, title, message, urgency, metadata, created_at, read, dismissed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Type, a.Title, a.Message, a.Urgency, metadata, a.CreatedAt,
		boolToInt(a.Read), boolToInt(a.Dismissed))
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert alert: %w", err)
	}
	return nil
}

// PendingAlerts returns undismissed alerts ordered by urgency (high
// first) then recency.
func (s *KnowledgeStore) PendingAlerts(ctx context.Context) ([]types.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, message, urgency, metadata, created_at, read, dismissed
		FROM alerts WHERE dismissed = 0
		ORDER BY CASE urgency WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
		         created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var (
			a         types.Alert
			metadata  sql.NullString
			read      int
			dismissed int
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Title, &a.Message, &a.Urgency,
			&metadata, &a.CreatedAt, &read, &dismissed); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan alert: %w", err)
		}
		a.Read = read != 0
		a.Dismissed = dismissed != 0
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
				return nil, fmt.Errorf("sqlite: corrupt alert metadata: %w", err)
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DismissAlert marks an alert dismissed.
func (s *KnowledgeStore) DismissAlert(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET dismissed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to dismiss alert: %w", err)
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
			return fmt.Errorf("sqlite: failed to marshal run errors: %w", err)
		}
		errsJSON = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consolidation_runs
			(ran_at, profiles_updated, connections_strengthened, redundant_marked, review_queue_updated, errors)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RanAt, run.ProfilesUpdated, run.ConnectionsStrengthened,
		run.RedundantMarked, run.ReviewQueueUpdated, errsJSON)
	if err != nil {
		return fmt.Errorf("sqlite: failed to record consolidation run: %w", err)
	}
	return nil
}

// LastConsolidationRun returns the most recent run summary, or
// ErrNotFound when consolidation has never run.
func (s *KnowledgeStore) LastConsolidationRun(ctx context.Context) (*types.ConsolidationRun, error) {
	var (
		run      types.ConsolidationRun
		errsJSON sql.NullString
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
		return nil, fmt.Errorf("sqlite: failed to get last consolidation run: %w", err)
	}
	if errsJSON.Valid {
		if err := json.Unmarshal([]byte(errsJSON.String), &run.Errors); err != nil {
			return nil, fmt.Errorf("sqlite: corrupt run errors: %w", err)
		}
	}
	return &run, nil
}
