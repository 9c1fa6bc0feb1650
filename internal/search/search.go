// Package search provides semantic similarity search over thought
// embeddings. Embeddings are generated locally; similarity is cosine over
// the stored vectors, with an optional fast path through a backend that
// supports native ANN search.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/scrypster/cortex/internal/llm"
	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/pkg/types"
)

// VectorSearcher is implemented by store backends with native vector
// indexes (the postgres backend with pgvector). When available, nearest
// neighbor queries skip the in-memory scan.
type VectorSearcher interface {
	VectorSearchAvailable() bool
	SimilarByVector(ctx context.Context, query []float32, k int) (map[string]float64, error)
}

// Engine performs embedding generation and similarity search.
type Engine struct {
	embedder llm.EmbeddingGenerator
	store    store.KnowledgeStore
}

// New creates a search engine over the given embedder and store.
func New(embedder llm.EmbeddingGenerator, st store.KnowledgeStore) *Engine {
	return &Engine{embedder: embedder, store: st}
}

// IndexThought generates and stores the embedding for a thought.
func (e *Engine) IndexThought(ctx context.Context, thoughtID, content string) error {
	vec, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("search: failed to embed thought %s: %w", thoughtID, err)
	}
	if err := e.store.StoreEmbedding(ctx, thoughtID, vec, e.embedder.GetModel()); err != nil {
		return fmt.Errorf("search: failed to store embedding: %w", err)
	}
	return nil
}

// Hit is a single search result.
type Hit struct {
	ThoughtID string
	Score     float64
}

// Similar returns the k thoughts most similar to the query text, best
// first. An empty knowledge base yields an empty result, not an error.
func (e *Engine) Similar(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: failed to embed query: %w", err)
	}

	if vs, ok := e.store.(VectorSearcher); ok && vs.VectorSearchAvailable() {
		scores, err := vs.SimilarByVector(ctx, queryVec, k)
		if err != nil {
			return nil, fmt.Errorf("search: native vector search: %w", err)
		}
		return sortedHits(scores, k), nil
	}

	all, err := e.store.AllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: failed to load embeddings: %w", err)
	}
	scores := make(map[string]float64, len(all))
	for id, vec := range all {
		scores[id] = CosineSimilarity(queryVec, vec)
	}
	return sortedHits(scores, k), nil
}

// SimilarContext runs Similar and resolves the hits into context items
// for the pipeline's retrieval stage.
func (e *Engine) SimilarContext(ctx context.Context, query string, k int) ([]types.ContextItem, error) {
	hits, err := e.Similar(ctx, query, k)
	if err != nil {
		return nil, err
	}
	items := make([]types.ContextItem, 0, len(hits))
	for _, hit := range hits {
		t, err := e.store.GetThought(ctx, hit.ThoughtID)
		if err != nil {
			continue // embedding for a thought that vanished; skip
		}
		items = append(items, types.ContextItem{
			ThoughtID: t.ID,
			Content:   t.Content,
			Summary:   t.Summary,
			Score:     hit.Score,
		})
	}
	return items, nil
}

// FindSimilarPairs scans all embeddings for pairs with cosine similarity
// at or above threshold, skipping thoughts already marked redundant.
// Pairs are ordered so A is the earlier thought, and the result is capped
// at maxPairs, highest similarity first.
func (e *Engine) FindSimilarPairs(ctx context.Context, threshold float64, maxPairs int) ([]types.SimilarPair, error) {
	all, err := e.store.AllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: failed to load embeddings: %w", err)
	}
	if len(all) < 2 {
		return nil, nil
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic iteration

	var pairs []types.SimilarPair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			sim := CosineSimilarity(all[ids[i]], all[ids[j]])
			if sim < threshold {
				continue
			}
			a, err := e.store.GetThought(ctx, ids[i])
			if err != nil {
				continue
			}
			b, err := e.store.GetThought(ctx, ids[j])
			if err != nil {
				continue
			}
			if a.RedundantOf != "" || b.RedundantOf != "" {
				continue
			}
			// A is always the earlier thought.
			if b.CreatedAt.Before(a.CreatedAt) {
				a, b = b, a
			}
			pairs = append(pairs, types.SimilarPair{A: a.ID, B: b.ID, Similarity: sim})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	if maxPairs > 0 && len(pairs) > maxPairs {
		pairs = pairs[:maxPairs]
	}
	return pairs, nil
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Mismatched lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sortedHits(scores map[string]float64, k int) []Hit {
	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, Hit{ThoughtID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ThoughtID < hits[j].ThoughtID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
