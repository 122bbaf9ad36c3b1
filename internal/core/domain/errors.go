package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedSearchType indicates an unrecognised search-type
	// selector. This is a caller error and is never retried.
	ErrUnsupportedSearchType = errors.New("unsupported search type")

	// ErrMissingQueryVector indicates a vector-dependent strategy was
	// selected without a query vector being available.
	ErrMissingQueryVector = errors.New("missing query vector")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector, hybrid and RAG search are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the completion service is not
	// configured. RAG recommendation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrProvider indicates an embedding or completion call failed with a
	// transient error (quota, network). Pipelines recover from it locally
	// with a fallback; it never aborts an enclosing batch.
	ErrProvider = errors.New("provider error")
)
