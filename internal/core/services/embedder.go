package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
	"github.com/custodia-labs/libris/internal/logger"
)

// Ensure EmbedderService implements the interface.
var _ driving.EmbeddingPipeline = (*EmbedderService)(nil)

// Default pipeline bounds.
const (
	// DefaultEmbedConcurrency is the number of embedding requests
	// dispatched per group.
	DefaultEmbedConcurrency = 10

	// DefaultBookBatchSize is the number of books whose chunks are
	// flattened into one embedding round.
	DefaultBookBatchSize = 100

	// DefaultBackfillPageSize is the page size used when scanning for
	// books without chunks.
	DefaultBackfillPageSize = 100

	// DefaultBackfillMaxBooks bounds one backfill invocation.
	DefaultBackfillMaxBooks = 10000
)

// EmbedderService turns books into persisted chunk records with vectors.
// Provider failures are isolated per chunk: a failing chunk receives a
// zero vector of the expected dimensionality and processing continues.
type EmbedderService struct {
	store       driven.BookStore
	embedder    driven.EmbeddingService
	chunker     *Chunker
	metrics     driven.PipelineMetrics
	concurrency int
	batchSize   int
}

// EmbedderOption configures an EmbedderService.
type EmbedderOption func(*EmbedderService)

// WithEmbedConcurrency sets the embedding request group size.
func WithEmbedConcurrency(n int) EmbedderOption {
	return func(s *EmbedderService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithBookBatchSize sets how many books are flattened per embedding round.
func WithBookBatchSize(n int) EmbedderOption {
	return func(s *EmbedderService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *Chunker) EmbedderOption {
	return func(s *EmbedderService) {
		if c != nil {
			s.chunker = c
		}
	}
}

// WithPipelineMetrics injects an observability sink.
func WithPipelineMetrics(m driven.PipelineMetrics) EmbedderOption {
	return func(s *EmbedderService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewEmbedderService creates the chunk embedding pipeline.
func NewEmbedderService(store driven.BookStore, embedder driven.EmbeddingService, opts ...EmbedderOption) *EmbedderService {
	s := &EmbedderService{
		store:       store,
		embedder:    embedder,
		chunker:     NewChunker(),
		metrics:     driven.NopMetrics{},
		concurrency: DefaultEmbedConcurrency,
		batchSize:   DefaultBookBatchSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// EmbedBook chunks and embeds one book, replacing any existing chunks so
// stale and fresh chunks never coexist.
func (s *EmbedderService) EmbedBook(ctx context.Context, book domain.Book) error {
	text := book.VectorText()
	if text == "" {
		return nil
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil
	}

	embeddings := s.embedGroup(ctx, chunks)

	records := make([]domain.Chunk, len(chunks))
	for i, content := range chunks {
		records[i] = domain.Chunk{
			ID:        uuid.New().String(),
			BookID:    book.ID,
			Index:     i,
			Content:   content,
			Embedding: embeddings[i],
		}
	}

	if err := s.store.ReplaceChunks(ctx, book.ID, records); err != nil {
		return fmt.Errorf("replace chunks for book %s: %w", book.ID, err)
	}

	s.metrics.BooksProcessed(1)
	return nil
}

// EmbedBooks processes books in batches of batchSize, flattening all
// chunks of one batch into a single embedding round and regrouping them
// to their owning book before persistence. A failure on one book does not
// abort the batch. Returns the number of books successfully processed.
func (s *EmbedderService) EmbedBooks(ctx context.Context, books []domain.Book) (int, error) {
	logger.Section("Chunk Embedding")
	logger.Info("Processing %d books in batches of %d", len(books), s.batchSize)

	processed := 0
	for start := 0; start < len(books); start += s.batchSize {
		end := start + s.batchSize
		if end > len(books) {
			end = len(books)
		}

		if err := ctx.Err(); err != nil {
			return processed, err
		}

		processed += s.embedBatch(ctx, books[start:end])
	}

	s.metrics.BooksProcessed(processed)
	return processed, nil
}

// embedBatch flattens the chunks of up to batchSize books into one
// embedding round.
func (s *EmbedderService) embedBatch(ctx context.Context, books []domain.Book) int {
	type bookChunks struct {
		book   domain.Book
		chunks []string
	}

	batch := make([]bookChunks, 0, len(books))
	for _, book := range books {
		text := book.VectorText()
		if text == "" {
			continue
		}
		if chunks := s.chunker.Chunk(text); len(chunks) > 0 {
			batch = append(batch, bookChunks{book: book, chunks: chunks})
		}
	}
	if len(batch) == 0 {
		return 0
	}

	// Flatten across books, remembering each chunk's owning slot.
	type slot struct{ book, chunk int }
	var flat []string
	var slots []slot
	for bi := range batch {
		for ci := range batch[bi].chunks {
			flat = append(flat, batch[bi].chunks[ci])
			slots = append(slots, slot{book: bi, chunk: ci})
		}
	}

	logger.Debug("Generating %d embeddings for %d books", len(flat), len(batch))
	embeddings := s.embedGroup(ctx, flat)

	// Regroup into per-book chunk records.
	records := make([][]domain.Chunk, len(batch))
	for i, emb := range embeddings {
		sl := slots[i]
		records[sl.book] = append(records[sl.book], domain.Chunk{
			ID:        uuid.New().String(),
			BookID:    batch[sl.book].book.ID,
			Index:     sl.chunk,
			Content:   batch[sl.book].chunks[sl.chunk],
			Embedding: emb,
		})
	}

	processed := 0
	for bi := range batch {
		if err := s.store.ReplaceChunks(ctx, batch[bi].book.ID, records[bi]); err != nil {
			logger.Warn("Persisting chunks for book %s failed: %v", batch[bi].book.ID, err)
			continue
		}
		processed++
	}

	return processed
}

// embedGroup embeds texts in bounded-size groups through the provider's
// batch endpoint. A group whose batch call fails is retried with one
// concurrent request per text, so a bad item costs only its own slot.
func (s *EmbedderService) embedGroup(ctx context.Context, texts []string) [][]float32 {
	results := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += s.concurrency {
		end := start + s.concurrency
		if end > len(texts) {
			end = len(texts)
		}

		began := time.Now()
		vecs, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		s.metrics.EmbeddingLatency(time.Since(began))
		if err == nil && len(vecs) == end-start {
			copy(results[start:end], vecs)
			continue
		}
		if err != nil {
			logger.Warn("Batch embedding failed, retrying per chunk: %v", err)
			s.metrics.EmbeddingFailed()
		}

		s.embedSlots(ctx, texts, results, start, end)
	}

	return results
}

// embedSlots requests one embedding per text concurrently. Results are
// written into their pre-assigned slot, not in arrival order. A failed
// request yields a zero vector of the expected dimensionality.
func (s *EmbedderService) embedSlots(ctx context.Context, texts []string, results [][]float32, start, end int) {
	var wg sync.WaitGroup
	for i := start; i < end; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			began := time.Now()
			vec, err := s.embedder.Embed(ctx, texts[i])
			s.metrics.EmbeddingLatency(time.Since(began))
			if err != nil {
				logger.Warn("Embedding chunk %d failed: %v", i, err)
				s.metrics.EmbeddingFailed()
				results[i] = make([]float32, s.embedder.Dimensions())
				return
			}
			results[i] = vec
		}(i)
	}
	wg.Wait()
}

// UpdateMissingEmbeddings scans for books with zero chunks, pages through
// them and feeds each page to the batch pipeline. The offset advances by
// whole pages so a re-invocation mid-run never reprocesses completed
// pages. Returns the number of books processed.
func (s *EmbedderService) UpdateMissingEmbeddings(ctx context.Context, maxBooks int) (int, error) {
	if maxBooks <= 0 {
		maxBooks = DefaultBackfillMaxBooks
	}

	logger.Section("Embedding Backfill")

	processed := 0
	offset := 0
	for {
		books, err := s.store.ListBooksWithoutChunks(ctx, DefaultBackfillPageSize, offset)
		if err != nil {
			return processed, fmt.Errorf("list books without chunks: %w", err)
		}
		if len(books) == 0 {
			break
		}

		if processed+len(books) > maxBooks {
			books = books[:maxBooks-processed]
		}

		logger.Info("Backfilling %d books at offset %d", len(books), offset)
		n, err := s.EmbedBooks(ctx, books)
		processed += n
		if err != nil {
			return processed, err
		}

		offset += DefaultBackfillPageSize
		if processed >= maxBooks {
			break
		}
	}

	logger.Info("Backfill complete: %d books", processed)
	return processed, nil
}

// UpdateEmbeddingsForBooks forces regeneration for explicit book ids:
// existing chunks are deleted first, then recomputed in batch mode.
func (s *EmbedderService) UpdateEmbeddingsForBooks(ctx context.Context, bookIDs []string) (int, error) {
	if len(bookIDs) == 0 {
		return 0, nil
	}

	if err := s.store.DeleteChunks(ctx, bookIDs); err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}

	books, err := s.store.ListBooksByIDs(ctx, bookIDs)
	if err != nil {
		return 0, fmt.Errorf("list books: %w", err)
	}
	if len(books) == 0 {
		return 0, domain.ErrNotFound
	}

	return s.EmbedBooks(ctx, books)
}
