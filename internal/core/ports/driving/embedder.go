package driving

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// EmbeddingPipeline prepares searchable vector representations of book
// content.
type EmbeddingPipeline interface {
	// EmbedBook chunks and embeds one book, replacing any existing chunks.
	EmbedBook(ctx context.Context, book domain.Book) error

	// EmbedBooks processes books in batches, flattening chunks across up
	// to batchSize books per embedding round. Returns the number of books
	// successfully processed.
	EmbedBooks(ctx context.Context, books []domain.Book) (int, error)

	// UpdateMissingEmbeddings scans for books with zero chunks and feeds
	// them to the batch pipeline, bounded by maxBooks per invocation.
	// Returns the number of books processed.
	UpdateMissingEmbeddings(ctx context.Context, maxBooks int) (int, error)

	// UpdateEmbeddingsForBooks forces regeneration for explicit book ids.
	// Returns the number of books processed.
	UpdateEmbeddingsForBooks(ctx context.Context, bookIDs []string) (int, error)
}
