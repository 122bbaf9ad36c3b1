package driven

import "context"

// LLMService provides text completion for the RAG recommendation pipeline.
// This is an optional service - when nil, recommendation degrades to the
// plain vector-search page.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini and friends)
//   - Any chat-completion compatible endpoint
type LLMService interface {
	// Complete sends a system prompt and a user prompt and returns the
	// model's text response.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
