package domain

import "time"

// SearchType selects a retrieval strategy.
type SearchType string

// Supported retrieval strategies.
const (
	SearchTypeText       SearchType = "text"
	SearchTypeVector     SearchType = "vector"
	SearchTypeFuzzy      SearchType = "fuzzy"
	SearchTypeHybrid     SearchType = "hybrid"
	SearchTypeHybridFast SearchType = "hybrid-fast"
	SearchTypeRAG        SearchType = "rag"
)

// Valid reports whether t is a recognised search type.
func (t SearchType) Valid() bool {
	switch t {
	case SearchTypeText, SearchTypeVector, SearchTypeFuzzy,
		SearchTypeHybrid, SearchTypeHybridFast, SearchTypeRAG:
		return true
	}
	return false
}

// NeedsVector reports whether the strategy requires a query embedding.
func (t SearchType) NeedsVector() bool {
	switch t {
	case SearchTypeVector, SearchTypeHybrid, SearchTypeHybridFast, SearchTypeRAG:
		return true
	}
	return false
}

// SortDirection orders a sort field.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SortField names a sortable book attribute.
type SortField string

// Sortable fields for text search.
const (
	SortByTitle       SortField = "title"
	SortByPublishedAt SortField = "publishedAt"
	SortByCategory    SortField = "categories"
	SortByAuthor      SortField = "authors"
	SortByPublisher   SortField = "publishers"
)

// SortSpec is one ordered sort key. The first key is the primary ordering,
// subsequent keys are secondary.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// DateRange is an inclusive published-date range filter.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Filters restricts the candidate book set. An absent or empty field means
// "no constraint", never "exclude all".
type Filters struct {
	// CategoryIDs matches books in any of the given categories.
	CategoryIDs []string

	// AuthorIDs matches books by any of the given authors.
	AuthorIDs []string

	// PublisherIDs matches books from any of the given publishers.
	PublisherIDs []string

	// PublishedRange bounds the publication date (inclusive).
	PublishedRange *DateRange
}

// Empty reports whether no filter field is set.
func (f Filters) Empty() bool {
	return len(f.CategoryIDs) == 0 && len(f.AuthorIDs) == 0 &&
		len(f.PublisherIDs) == 0 && f.PublishedRange == nil
}

// Page is offset-based pagination.
type Page struct {
	// Limit is the page size. Non-positive limits fall back to the
	// default page size.
	Limit int

	// Offset is the number of items to skip.
	Offset int
}

// DefaultPageLimit is the page size used when none is given.
const DefaultPageLimit = 10

// Normalise returns the page with defaults applied.
func (p Page) Normalise() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// BookQuery is an ephemeral search request. It is never persisted.
type BookQuery struct {
	// Text is the free-text query. Required for text, fuzzy, hybrid and
	// hybrid-fast strategies.
	Text string

	// Type selects the retrieval strategy.
	Type SearchType

	// Filters restrict the candidate set uniformly across strategies.
	Filters Filters

	// Sort orders text-search results. Ignored by score-ordered strategies.
	Sort []SortSpec

	// Page is the requested result window.
	Page Page

	// SimilarityThreshold, when set, keeps only books with at least one
	// chunk at or above this cosine similarity.
	SimilarityThreshold *float64

	// FuzzyThreshold, when set, keeps only books with a fuzzy score at or
	// above this value.
	FuzzyThreshold *float64

	// ChunkLoadLimit is the number of top chunks attached per book on
	// vector search (default 3 when chunk loading is requested).
	ChunkLoadLimit int

	// TotalChunksLimit bounds the global number of chunks fed into the
	// RAG context (default 10).
	TotalChunksLimit int
}
