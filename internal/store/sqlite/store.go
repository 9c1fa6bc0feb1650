// Package sqlite implements store.KnowledgeStore on SQLite. It is the
// default backend: a single local file, no external service, which fits
// the privacy posture of keeping the knowledge base on the user's machine.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

// KnowledgeStore implements store.KnowledgeStore using SQLite.
type KnowledgeStore struct {
	db *sql.DB
}

// New opens a SQLite knowledge store at the given DSN, configures WAL
// mode, and applies the schema.
func New(dsn string) (*KnowledgeStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load; WAL
	// mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s failed: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &KnowledgeStore{db: db}, nil
}

// Close releases the database handle.
func (s *KnowledgeStore) Close() error {
	return s.db.Close()
}

// CreateThought inserts a new thought with spaced-repetition defaults
// applied.
func (s *KnowledgeStore) CreateThought(ctx context.Context, t *types.Thought) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("%w: thought ID is required", store.ErrInvalidInput)
	}
	if t.Content == "" {
		return fmt.Errorf("%w: thought content is required", store.ErrInvalidInput)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	types.NewThoughtDefaults(t)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thoughts (
			id, content, summary, created_at, salience,
			review_count, ease_factor, interval_days,
			last_review, next_review, in_review_queue,
			redundant_of, marked_redundant
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Content, t.Summary, t.CreatedAt, t.Salience,
		t.ReviewCount, t.EaseFactor, t.IntervalDays,
		t.LastReview, t.NextReview, boolToInt(t.InReviewQueue),
		nullString(t.RedundantOf), t.MarkedRedundant,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert thought: %w", err)
	}
	return nil
}

const thoughtColumns = `
	id, content, summary, created_at, salience,
	review_count, ease_factor, interval_days,
	last_review, next_review, in_review_queue,
	redundant_of, marked_redundant`

// GetThought retrieves a thought by ID.
func (s *KnowledgeStore) GetThought(ctx context.Context, id string) (*types.Thought, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts WHERE id = ?`, id)
	t, err := scanThought(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get thought: %w", err)
	}
	return t, nil
}

// RecentThoughts returns thoughts created at or after since, newest
// first, capped at limit.
func (s *KnowledgeStore) RecentThoughts(ctx context.Context, since time.Time, limit int) ([]*types.Thought, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts
		 WHERE created_at >= ? ORDER BY created_at DESC LIMIT ?`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query recent thoughts: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// MarkRedundant annotates a thought as a duplicate of an earlier one.
// The thought itself is never deleted.
func (s *KnowledgeStore) MarkRedundant(ctx context.Context, id, redundantOf string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE thoughts SET redundant_of = ?, marked_redundant = ? WHERE id = ?`,
		redundantOf, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to mark redundant: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateReview persists the spaced-repetition fields after a review.
func (s *KnowledgeStore) UpdateReview(ctx context.Context, t *types.Thought) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE thoughts
		SET review_count = ?, ease_factor = ?, interval_days = ?,
		    last_review = ?, next_review = ?
		WHERE id = ?`,
		t.ReviewCount, t.EaseFactor, t.IntervalDays,
		t.LastReview, t.NextReview, t.ID)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update review: %w", err)
	}
	return requireRowAffected(result)
}

// SetReviewQueue flags or unflags a thought for review.
func (s *KnowledgeStore) SetReviewQueue(ctx context.Context, id string, inQueue bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE thoughts SET in_review_queue = ? WHERE id = ?`,
		boolToInt(inQueue), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to set review queue flag: %w", err)
	}
	return requireRowAffected(result)
}

// ReviewCandidates returns thoughts with salience at or above the
// threshold whose next review is unset or due.
func (s *KnowledgeStore) ReviewCandidates(ctx context.Context, minSalience float64, now time.Time) ([]*types.Thought, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts
		 WHERE salience >= ? AND (next_review IS NULL OR next_review <= ?)
		 ORDER BY salience DESC`,
		minSalience, now)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query review candidates: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// StoreEmbedding upserts the embedding vector for a thought. Vectors are
// stored as JSON arrays; similarity math lives in the search layer.
func (s *KnowledgeStore) StoreEmbedding(ctx context.Context, thoughtID string, embedding []float32, model string) error {
	if thoughtID == "" || len(embedding) == 0 {
		return fmt.Errorf("%w: thought ID and embedding are required", store.ErrInvalidInput)
	}
	vec, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (thought_id, vector, model, dimension, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thought_id) DO UPDATE SET
			vector = excluded.vector,
			model = excluded.model,
			dimension = excluded.dimension`,
		thoughtID, string(vec), model, len(embedding), time.Now())
	if err != nil {
		return fmt.Errorf("sqlite: failed to store embedding: %w", err)
	}
	return nil
}

// AllEmbeddings returns every stored embedding keyed by thought ID.
func (s *KnowledgeStore) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thought_id, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query embeddings: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]float32)
	for rows.Next() {
		var id, vec string
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan embedding: %w", err)
		}
		var v []float32
		if err := json.Unmarshal([]byte(vec), &v); err != nil {
			return nil, fmt.Errorf("sqlite: corrupt embedding for %s: %w", id, err)
		}
		result[id] = v
	}
	return result, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for thought scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanThought(row scanner) (*types.Thought, error) {
	var (
		t            types.Thought
		inQueue      int
		lastReview   sql.NullTime
		nextReview   sql.NullTime
		redundantOf  sql.NullString
		markedRedund sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.Content, &t.Summary, &t.CreatedAt, &t.Salience,
		&t.ReviewCount, &t.EaseFactor, &t.IntervalDays,
		&lastReview, &nextReview, &inQueue,
		&redundantOf, &markedRedund,
	)
	if err != nil {
		return nil, err
	}
	t.InReviewQueue = inQueue != 0
	if lastReview.Valid {
		t.LastReview = &lastReview.Time
	}
	if nextReview.Valid {
		t.NextReview = &nextReview.Time
	}
	if redundantOf.Valid {
		t.RedundantOf = redundantOf.String
	}
	if markedRedund.Valid {
		t.MarkedRedundant = &markedRedund.Time
	}
	return &t, nil
}

func scanThoughts(rows *sql.Rows) ([]*types.Thought, error) {
	var thoughts []*types.Thought
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan thought: %w", err)
		}
		thoughts = append(thoughts, t)
	}
	return thoughts, rows.Err()
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Compile-time assertion.
var _ store.KnowledgeStore = (*KnowledgeStore)(nil)
