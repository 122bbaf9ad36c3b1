package driven

// Prompt names used by the engine.
const (
	// PromptRecommend is the system prompt for the RAG recommendation call.
	PromptRecommend = "recommend"
)

// PromptStore loads LLM prompt templates. Implementations may read
// user-editable files; the engine falls back to embedded defaults when a
// prompt cannot be loaded.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}
