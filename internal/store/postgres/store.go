// Package postgres implements store.KnowledgeStore on PostgreSQL with
// optional pgvector acceleration for semantic search. It is the backend
// of choice when the knowledge base outgrows a single SQLite file.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

// KnowledgeStore implements store.KnowledgeStore using PostgreSQL.
type KnowledgeStore struct {
	db                *sql.DB
	pgvectorAvailable bool // true when the pgvector extension is present
}

// New opens a PostgreSQL knowledge store with the given DSN and applies
// the schema. pgvector is enabled opportunistically: a server without the
// extension still works, with similarity search served from the JSON
// vectors instead.
func New(dsn string) (*KnowledgeStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	s := &KnowledgeStore{db: db}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available (native vector search disabled): %v", err)
	} else {
		s.pgvectorAvailable = true
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to create schema: %w", err)
	}

	if s.pgvectorAvailable {
		if _, err := db.Exec(MigrationPgvector); err != nil {
			log.Printf("postgres: failed to apply pgvector migration (native vector search disabled): %v", err)
			s.pgvectorAvailable = false
		}
	}

	return s, nil
}

// Close releases the database handle.
func (s *KnowledgeStore) Close() error {
	return s.db.Close()
}

// VectorSearchAvailable reports whether native pgvector ANN search can be
// used.
func (s *KnowledgeStore) VectorSearchAvailable() bool {
	return s.pgvectorAvailable
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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.Content, t.Summary, t.CreatedAt, t.Salience,
		t.ReviewCount, t.EaseFactor, t.IntervalDays,
		t.LastReview, t.NextReview, t.InReviewQueue,
		nullString(t.RedundantOf), t.MarkedRedundant,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert thought: %w", err)
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
		`SELECT `+thoughtColumns+` FROM thoughts WHERE id = $1`, id)
	t, err := scanThought(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get thought: %w", err)
	}
	return t, nil
}

// RecentThoughts returns thoughts created at or after since, newest
// first, capped at limit.
func (s *KnowledgeStore) RecentThoughts(ctx context.Context, since time.Time, limit int) ([]*types.Thought, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts
		 WHERE created_at >= $1 ORDER BY created_at DESC LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query recent thoughts: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// MarkRedundant annotates a thought as a duplicate of an earlier one.
func (s *KnowledgeStore) MarkRedundant(ctx context.Context, id, redundantOf string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE thoughts SET redundant_of = $1, marked_redundant = $2 WHERE id = $3`,
		redundantOf, time.Now(), id)
	if err != nil {
		return fmt.Errorf("postgres: failed to mark redundant: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateReview persists the spaced-repetition fields after a review.
func (s *KnowledgeStore) UpdateReview(ctx context.Context, t *types.Thought) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE thoughts
		SET review_count = $1, ease_factor = $2, interval_days = $3,
		    last_review = $4, next_review = $5
		WHERE id = $6`,
		t.ReviewCount, t.EaseFactor, t.IntervalDays,
		t.LastReview, t.NextReview, t.ID)
	if err != nil {
		return fmt.Errorf("postgres: failed to update review: %w", err)
	}
	return requireRowAffected(result)
}

// SetReviewQueue flags or unflags a thought for review.
func (s *KnowledgeStore) SetReviewQueue(ctx context.Context, id string, inQueue bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE thoughts SET in_review_queue = $1 WHERE id = $2`, inQueue, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to set review queue flag: %w", err)
	}
	return requireRowAffected(result)
}

// ReviewCandidates returns thoughts with salience at or above the
// threshold whose next review is unset or due.
func (s *KnowledgeStore) ReviewCandidates(ctx context.Context, minSalience float64, now time.Time) ([]*types.Thought, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts
		 WHERE salience >= $1 AND (next_review IS NULL OR next_review <= $2)
		 ORDER BY salience DESC`,
		minSalience, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query review candidates: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// StoreEmbedding upserts the embedding for a thought. The vector is
// always stored as JSONB; when pgvector is available it is additionally
// stored in the native column for ANN search.
func (s *KnowledgeStore) StoreEmbedding(ctx context.Context, thoughtID string, embedding []float32, model string) error {
	if thoughtID == "" || len(embedding) == 0 {
		return fmt.Errorf("%w: thought ID and embedding are required", store.ErrInvalidInput)
	}
	vec, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (thought_id, vector, model, dimension, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (thought_id) DO UPDATE SET
			vector = EXCLUDED.vector,
			model = EXCLUDED.model,
			dimension = EXCLUDED.dimension`,
		thoughtID, string(vec), model, len(embedding), time.Now())
	if err != nil {
		return fmt.Errorf("postgres: failed to store embedding: %w", err)
	}

	if s.pgvectorAvailable {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE embeddings SET embedding_vec = $1 WHERE thought_id = $2`,
			pgvector.NewVector(embedding), thoughtID); err != nil {
			return fmt.Errorf("postgres: failed to store native vector: %w", err)
		}
	}
	return nil
}

// AllEmbeddings returns every stored embedding keyed by thought ID.
func (s *KnowledgeStore) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thought_id, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query embeddings: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]float32)
	for rows.Next() {
		var (
			id  string
			vec []byte
		)
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan embedding: %w", err)
		}
		var v []float32
		if err := json.Unmarshal(vec, &v); err != nil {
			return nil, fmt.Errorf("postgres: corrupt embedding for %s: %w", id, err)
		}
		result[id] = v
	}
	return result, rows.Err()
}

// SimilarByVector returns the IDs and cosine similarities of the k
// thoughts nearest to the query vector, using the pgvector ANN index.
// Callers must check VectorSearchAvailable first.
func (s *KnowledgeStore) SimilarByVector(ctx context.Context, query []float32, k int) (map[string]float64, error) {
	if !s.pgvectorAvailable {
		return nil, fmt.Errorf("postgres: pgvector not available")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT thought_id, 1 - (embedding_vec <=> $1) AS similarity
		FROM embeddings
		WHERE embedding_vec IS NOT NULL
		ORDER BY embedding_vec <=> $1
		LIMIT $2`,
		pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("postgres: vector search failed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var (
			id  string
			sim float64
		)
		if err := rows.Scan(&id, &sim); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan similarity: %w", err)
		}
		result[id] = sim
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanThought(row scanner) (*types.Thought, error) {
	var (
		t            types.Thought
		lastReview   sql.NullTime
		nextReview   sql.NullTime
		redundantOf  sql.NullString
		markedRedund sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.Content, &t.Summary, &t.CreatedAt, &t.Salience,
		&t.ReviewCount, &t.EaseFactor, &t.IntervalDays,
		&lastReview, &nextReview, &t.InReviewQueue,
		&redundantOf, &markedRedund,
	)
	if err != nil {
		return nil, err
	}
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
			return nil, fmt.Errorf("postgres: failed to scan thought: %w", err)
		}
		thoughts = append(thoughts, t)
	}
	return thoughts, rows.Err()
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Compile-time assertion.
var _ store.KnowledgeStore = (*KnowledgeStore)(nil)
