package domain

// ChunkMatch is a chunk surfaced by vector search, annotated with its
// similarity to the query vector.
type ChunkMatch struct {
	// ID is the chunk identifier.
	ID string

	// Index is the chunk's position within its book.
	Index int

	// Content is the chunk text.
	Content string

	// Similarity is the cosine similarity to the query vector (0-1).
	Similarity float64
}

// BookResult is a single ranked search hit.
type BookResult struct {
	// Book is the matched book with authors/categories/publisher loaded.
	Book Book

	// Score is the strategy-specific relevance score. Distance ordering
	// for vector search, fuzzy score for fuzzy search, the weighted
	// combination for hybrid strategies, zero for plain text search.
	Score float64

	// Similarity is the best chunk cosine similarity, when the strategy
	// computed one.
	Similarity float64

	// FuzzyScore is the best string similarity, when the strategy
	// computed one.
	FuzzyScore float64

	// Chunks are the top matched chunks by similarity, attached when the
	// query requested chunk loading.
	Chunks []ChunkMatch

	// Reason is the provider-supplied recommendation rationale, set only
	// by the RAG pipeline.
	Reason string
}

// ResultPage is one page of ranked results plus the total matching count.
// Total always reflects the same predicate as the ranked query, independent
// of the page window.
type ResultPage struct {
	Items []BookResult
	Total int
}

// RecommendResult is the outcome of the RAG pipeline: the underlying
// vector-search page, returned unchanged, plus the provider-grounded
// recommendations drawn from it. Recommended is empty whenever the
// provider call fails or returns output that cannot be parsed.
type RecommendResult struct {
	Page        ResultPage
	Recommended []BookResult
}
