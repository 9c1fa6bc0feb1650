package llm

import "context"

// TextGenerator is the interface for model text completion. All Cortex
// prompts use single-turn completion with an optional system instruction;
// systemPrompt may be empty.
type TextGenerator interface {
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// Returns float32 slices; the store handles any width conversion.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// HealthReporter is implemented by clients that expose their circuit
// breaker state for the health endpoint.
type HealthReporter interface {
	BreakerHealth() BreakerHealth
}
