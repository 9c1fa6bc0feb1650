package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

// UpsertEntity creates an entity or merges new context into an existing
// one. Descriptions are append-only: a new description is joined to the
// old one with " | " rather than replacing it.
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
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			updated_at = excluded.updated_at,
			description = CASE
				WHEN excluded.description = '' THEN entities.description
				WHEN entities.description = '' THEN excluded.description
				WHEN instr(entities.description, excluded.description) > 0 THEN entities.description
				ELSE entities.description || ' | ' || excluded.description
			END`,
		e.Name, e.Type, e.Description, now, now)
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert entity: %w", err)
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
		FROM entities WHERE name = ?`, name).Scan(
		&e.Name, &e.Type, &e.Description, &e.CreatedAt, &e.UpdatedAt,
		&e.RecentActivity, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get entity: %w", err)
	}
	if lastSeen.Valid {
		e.LastSeen = &lastSeen.Time
	}
	return &e, nil
}

// LinkEntity records that a thought mentions an entity. Duplicate links
// are ignored.
func (s *KnowledgeStore) LinkEntity(ctx context.Context, thoughtID, entityName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thought_entities (thought_id, entity_name) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		thoughtID, entityName)
	if err != nil {
		return fmt.Errorf("sqlite: failed to link entity: %w", err)
	}
	return nil
}

// LinkCategory tags a thought with a PARA category. Duplicate links are
// ignored.
func (s *KnowledgeStore) LinkCategory(ctx context.Context, thoughtID, category string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thought_categories (thought_id, category) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		thoughtID, category)
	if err != nil {
		return fmt.Errorf("sqlite: failed to link category: %w", err)
	}
	return nil
}

// EntityMentions returns thoughts mentioning the entity created at or
// after since, newest first.
func (s *KnowledgeStore) EntityMentions(ctx context.Context, entityName string, since time.Time) ([]*types.Thought, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+thoughtColumns+` FROM thoughts
		WHERE id IN (SELECT thought_id FROM thought_entities WHERE entity_name = ?)
		  AND created_at >= ?
		ORDER BY created_at DESC`,
		entityName, since)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query entity mentions: %w", err)
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
		`SELECT COUNT(*) FROM thought_entities WHERE entity_name = ?`, name).Scan(&count); err != nil {
		return nil, fmt.Errorf("sqlite: failed to count mentions: %w", err)
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
		WHERE t.created_at >= ?`,
		since)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query active entities: %w", err)
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
			return nil, fmt.Errorf("sqlite: failed to scan entity: %w", err)
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
		UPDATE entities SET recent_activity = ?, last_seen = ?, updated_at = ?
		WHERE name = ?`,
		mentions, lastSeen, time.Now(), name)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update entity activity: %w", err)
	}
	return requireRowAffected(result)
}

// CoOccurringPairs returns unordered entity pairs that appear together in
// at least minCount distinct thoughts. Pairs are normalized so A < B.
func (s *KnowledgeStore) CoOccurringPairs(ctx context.Context, minCount int) ([]types.EntityPair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.entity_name, b.entity_name, COUNT(DISTINCT a.thought_id) AS n
		FROM thought_entities a
		JOIN thought_entities b
		  ON a.thought_id = b.thought_id AND a.entity_name < b.entity_name
		GROUP BY a.entity_name, b.entity_name
		HAVING n >= ?
		ORDER BY n DESC`,
		minCount)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query co-occurring pairs: %w", err)
	}
	defer rows.Close()

	var pairs []types.EntityPair
	for rows.Next() {
		var p types.EntityPair
		if err := rows.Scan(&p.A, &p.B, &p.Count); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// StrengthenConnection sets the weight of the undirected connection
// between two entities, creating it if needed. The pair is stored
// normalized (lexicographically smaller name first).
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
		VALUES (?, ?, ?, ?)
		ON CONFLICT(a, b) DO UPDATE SET
			weight = excluded.weight,
			updated_at = excluded.updated_at`,
		a, b, weight, time.Now())
	if err != nil {
		return fmt.Errorf("sqlite: failed to strengthen connection: %w", err)
	}
	return nil
}

// Connections returns all connections touching an entity.
func (s *KnowledgeStore) Connections(ctx context.Context, entityName string) ([]types.EntityConnection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a, b, weight, updated_at FROM entity_connections
		WHERE a = ? OR b = ?
		ORDER BY weight DESC`,
		entityName, entityName)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []types.EntityConnection
	for rows.Next() {
		var c types.EntityConnection
		if err := rows.Scan(&c.From, &c.To, &c.Weight, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}
