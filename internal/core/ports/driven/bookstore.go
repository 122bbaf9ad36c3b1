package driven

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// BookStore persists books and chunks and executes the strategy-level
// retrieval queries. Backed by SQLite; the search methods assume the store
// can order by vector distance and score trigram-style string similarity,
// so a store with native ANN support (e.g. pgvector) can implement this
// interface without the engine changing.
//
// Every search method applies the query's Filters uniformly and returns a
// page whose Total is derived from the identical predicate, independent of
// the page window.
type BookStore interface {
	// GetBook retrieves a book with authors, categories and publisher
	// loaded. Returns domain.ErrNotFound when the id is absent.
	GetBook(ctx context.Context, id string) (*domain.Book, error)

	// ListBooksByIDs retrieves the books for the given ids. Missing ids
	// are silently skipped.
	ListBooksByIDs(ctx context.Context, ids []string) ([]domain.Book, error)

	// ListBooksWithoutChunks pages through books that own zero chunks,
	// for embedding backfill.
	ListBooksWithoutChunks(ctx context.Context, limit, offset int) ([]domain.Book, error)

	// ChunksByBook returns a book's chunks ordered by index.
	ChunksByBook(ctx context.Context, bookID string) ([]domain.Chunk, error)

	// ReplaceChunks atomically deletes a book's existing chunks and
	// inserts the given ones. Stale and fresh chunks never coexist.
	ReplaceChunks(ctx context.Context, bookID string, chunks []domain.Chunk) error

	// DeleteChunks removes all chunks for the given books.
	DeleteChunks(ctx context.Context, bookIDs []string) error

	// SearchText matches case-insensitive substrings of each query word
	// against title, description, author/category names and chunk content.
	SearchText(ctx context.Context, text string, q domain.BookQuery) (domain.ResultPage, error)

	// SearchVector ranks books by the best chunk similarity to the query
	// vector, distance ascending. Honours q.SimilarityThreshold and
	// attaches up to q.ChunkLoadLimit top chunks per book when positive.
	SearchVector(ctx context.Context, vector []float32, q domain.BookQuery) (domain.ResultPage, error)

	// SearchFuzzy ranks books by the best string similarity across title,
	// description, author/category names and chunk content, score
	// descending. Honours q.FuzzyThreshold.
	SearchFuzzy(ctx context.Context, text string, q domain.BookQuery) (domain.ResultPage, error)

	// SearchHybrid combines vector and fuzzy scores per book
	// (0.6*vector + 0.4*fuzzy) over the union of books surfaced by either
	// sub-strategy, score descending.
	SearchHybrid(ctx context.Context, vector []float32, text string, q domain.BookQuery) (domain.ResultPage, error)

	// SearchHybridFast is the cheaper hybrid variant: the lexical side is
	// a normalised per-word substring hit count instead of true string
	// similarity.
	SearchHybridFast(ctx context.Context, vector []float32, text string, q domain.BookQuery) (domain.ResultPage, error)
}
