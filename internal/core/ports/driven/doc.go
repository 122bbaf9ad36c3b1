// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to function:
//
//   - BookStore: Book/chunk persistence and strategy-level retrieval
//   - UserStore: Behavioural signal persistence (favourites, last seen, search logs)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, vector,
//     hybrid and RAG search are disabled.
//   - LLMService: Text completion. Without it, RAG recommendation returns
//     the plain vector page.
//   - PromptStore: User-editable prompt templates. Without it, built-in
//     defaults are used.
//   - PipelineMetrics: Observability sink. Defaults to NopMetrics.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
