package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/libris/internal/adapters/driven/storage/scoring"
	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// Ensure BookStore implements the interface.
var _ driven.BookStore = (*BookStore)(nil)

// Hybrid score weights, matching the SQLite adapter.
const (
	hybridVectorWeight  = 0.6
	hybridLexicalWeight = 0.4
)

// BookStore is an in-memory implementation of driven.BookStore. Retrieval
// is a brute-force scan over all books and chunks; suitable for tests and
// small catalogs.
type BookStore struct {
	mu     sync.RWMutex
	books  map[string]domain.Book
	chunks map[string][]domain.Chunk
	order  []string
}

// NewBookStore creates a new in-memory book store.
func NewBookStore() *BookStore {
	return &BookStore{
		books:  make(map[string]domain.Book),
		chunks: make(map[string][]domain.Chunk),
	}
}

// SaveBook stores or updates a book.
func (s *BookStore) SaveBook(_ context.Context, book domain.Book) error {
	if book.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.books[book.ID]; !exists {
		s.order = append(s.order, book.ID)
	}
	s.books[book.ID] = book
	return nil
}

// GetBook retrieves a book by ID.
func (s *BookStore) GetBook(_ context.Context, id string) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &book, nil
}

// ListBooksByIDs retrieves books for the given ids, skipping missing ones.
func (s *BookStore) ListBooksByIDs(_ context.Context, ids []string) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var books []domain.Book
	for _, id := range ids {
		if book, ok := s.books[id]; ok {
			books = append(books, book)
		}
	}
	return books, nil
}

// ListBooksWithoutChunks pages through books that own zero chunks.
func (s *BookStore) ListBooksWithoutChunks(_ context.Context, limit, offset int) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []domain.Book
	for _, id := range s.order {
		if len(s.chunks[id]) == 0 {
			missing = append(missing, s.books[id])
		}
	}

	if offset >= len(missing) {
		return nil, nil
	}
	missing = missing[offset:]
	if limit > 0 && len(missing) > limit {
		missing = missing[:limit]
	}
	return missing, nil
}

// ChunksByBook returns a book's chunks ordered by index.
func (s *BookStore) ChunksByBook(_ context.Context, bookID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks[bookID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// ReplaceChunks atomically replaces a book's chunks.
func (s *BookStore) ReplaceChunks(_ context.Context, bookID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[bookID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// DeleteChunks removes all chunks for the given books.
func (s *BookStore) DeleteChunks(_ context.Context, bookIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range bookIDs {
		delete(s.chunks, id)
	}
	return nil
}

// SearchText matches each query word as a case-insensitive substring of
// the book's searchable fields.
func (s *BookStore) SearchText(_ context.Context, text string, q domain.BookQuery) (domain.ResultPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := strings.Fields(strings.ToLower(text))

	var matched []domain.Book
	for _, id := range s.order {
		book := s.books[id]
		if !s.matchesFilters(book, q.Filters) {
			continue
		}
		haystack := strings.ToLower(s.searchableText(book))
		ok := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, book)
		}
	}

	sortBooks(matched, q.Sort)

	items := make([]domain.BookResult, len(matched))
	for i, book := range matched {
		items[i] = domain.BookResult{Book: book}
	}
	total := len(items)
	return domain.ResultPage{Items: pageItems(items, q.Page), Total: total}, nil
}

// SearchVector ranks books by their best chunk similarity to the query
// vector.
func (s *BookStore) SearchVector(_ context.Context, vector []float32, q domain.BookQuery) (domain.ResultPage, error) {
	if len(vector) == 0 {
		return domain.ResultPage{}, domain.ErrMissingQueryVector
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	threshold := -1.0
	if q.SimilarityThreshold != nil {
		threshold = *q.SimilarityThreshold
	}

	var items []domain.BookResult
	for _, id := range s.order {
		book := s.books[id]
		if !s.matchesFilters(book, q.Filters) {
			continue
		}
		sim, ok := s.bestSimilarity(id, vector)
		if !ok || sim < threshold {
			continue
		}
		item := domain.BookResult{Book: book, Score: sim, Similarity: sim}
		if q.ChunkLoadLimit > 0 {
			item.Chunks = s.topChunks(id, vector, q.ChunkLoadLimit)
		}
		items = append(items, item)
	}

	sortByScore(items)
	total := len(items)
	return domain.ResultPage{Items: pageItems(items, q.Page), Total: total}, nil
}

// SearchFuzzy ranks books by the best trigram similarity across the
// searchable fields.
func (s *BookStore) SearchFuzzy(_ context.Context, text string, q domain.BookQuery) (domain.ResultPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []domain.BookResult
	for _, id := range s.order {
		book := s.books[id]
		if !s.matchesFilters(book, q.Filters) {
			continue
		}
		score := s.fuzzyScore(book, text)
		if q.FuzzyThreshold != nil {
			if score < *q.FuzzyThreshold {
				continue
			}
		} else if score <= 0 {
			continue
		}
		items = append(items, domain.BookResult{Book: book, Score: score, FuzzyScore: score})
	}

	sortByScore(items)
	total := len(items)
	return domain.ResultPage{Items: pageItems(items, q.Page), Total: total}, nil
}

// SearchHybrid combines vector and trigram scores per book. The lexical
// side honours q.FuzzyThreshold.
func (s *BookStore) SearchHybrid(_ context.Context, vector []float32, text string, q domain.BookQuery) (domain.ResultPage, error) {
	return s.searchCombined(vector, q, func(book domain.Book) (float64, bool) {
		score := s.fuzzyScore(book, text)
		if q.FuzzyThreshold != nil {
			return score, score >= *q.FuzzyThreshold
		}
		return score, score > 0
	})
}

// SearchHybridFast combines vector scores with the word-hit heuristic.
func (s *BookStore) SearchHybridFast(_ context.Context, vector []float32, text string, q domain.BookQuery) (domain.ResultPage, error) {
	return s.searchCombined(vector, q, func(book domain.Book) (float64, bool) {
		score := scoring.WordHits(book.Title+" "+book.Description, text)
		return score, score > 0
	})
}

// searchCombined pages the union of books surfaced by either sub-strategy.
// A side that misses its threshold contributes zero to the weighted sum
// and does not surface the book on its own.
func (s *BookStore) searchCombined(vector []float32, q domain.BookQuery, lexical func(domain.Book) (float64, bool)) (domain.ResultPage, error) {
	if len(vector) == 0 {
		return domain.ResultPage{}, domain.ErrMissingQueryVector
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	simThreshold := 0.0
	if q.SimilarityThreshold != nil {
		simThreshold = *q.SimilarityThreshold
	}

	var items []domain.BookResult
	for _, id := range s.order {
		book := s.books[id]
		if !s.matchesFilters(book, q.Filters) {
			continue
		}

		sim, hasChunks := s.bestSimilarity(id, vector)
		vectorSide := hasChunks && sim >= simThreshold
		if !vectorSide {
			sim = 0
		}
		lex, lexicalSide := lexical(book)
		if !lexicalSide {
			lex = 0
		}
		if !vectorSide && !lexicalSide {
			continue
		}

		item := domain.BookResult{
			Book:       book,
			Score:      hybridVectorWeight*sim + hybridLexicalWeight*lex,
			Similarity: sim,
			FuzzyScore: lex,
		}
		if q.ChunkLoadLimit > 0 && hasChunks {
			item.Chunks = s.topChunks(id, vector, q.ChunkLoadLimit)
		}
		items = append(items, item)
	}

	sortByScore(items)
	total := len(items)
	return domain.ResultPage{Items: pageItems(items, q.Page), Total: total}, nil
}

// bestSimilarity returns the best chunk similarity for a book and whether
// the book has any embedded chunk at all.
func (s *BookStore) bestSimilarity(bookID string, vector []float32) (float64, bool) {
	best := 0.0
	found := false
	for _, chunk := range s.chunks[bookID] {
		if len(chunk.Embedding) == 0 {
			continue
		}
		sim := scoring.Cosine(chunk.Embedding, vector)
		if !found || sim > best {
			best = sim
			found = true
		}
	}
	return best, found
}

func (s *BookStore) topChunks(bookID string, vector []float32, limit int) []domain.ChunkMatch {
	var matches []domain.ChunkMatch
	for _, chunk := range s.chunks[bookID] {
		if len(chunk.Embedding) == 0 {
			continue
		}
		matches = append(matches, domain.ChunkMatch{
			ID:         chunk.ID,
			Index:      chunk.Index,
			Content:    chunk.Content,
			Similarity: scoring.Cosine(chunk.Embedding, vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (s *BookStore) fuzzyScore(book domain.Book, text string) float64 {
	best := scoring.Trigram(book.Title, text)
	if v := scoring.Trigram(book.Description, text); v > best {
		best = v
	}
	for _, a := range book.Authors {
		if v := scoring.Trigram(a.Name, text); v > best {
			best = v
		}
	}
	for _, c := range book.Categories {
		if v := scoring.Trigram(c.Name, text); v > best {
			best = v
		}
	}
	for _, chunk := range s.chunks[book.ID] {
		if v := scoring.Trigram(chunk.Content, text); v > best {
			best = v
		}
	}
	return best
}

func (s *BookStore) searchableText(book domain.Book) string {
	var sb strings.Builder
	sb.WriteString(book.Title)
	sb.WriteString(" ")
	sb.WriteString(book.Description)
	for _, a := range book.Authors {
		sb.WriteString(" ")
		sb.WriteString(a.Name)
	}
	for _, c := range book.Categories {
		sb.WriteString(" ")
		sb.WriteString(c.Name)
	}
	for _, chunk := range s.chunks[book.ID] {
		sb.WriteString(" ")
		sb.WriteString(chunk.Content)
	}
	return sb.String()
}

func (s *BookStore) matchesFilters(book domain.Book, f domain.Filters) bool {
	if len(f.CategoryIDs) > 0 && !anyIDMatch(f.CategoryIDs, categoryIDs(book)) {
		return false
	}
	if len(f.AuthorIDs) > 0 && !anyIDMatch(f.AuthorIDs, authorIDs(book)) {
		return false
	}
	if len(f.PublisherIDs) > 0 && !anyIDMatch(f.PublisherIDs, []string{book.Publisher.ID}) {
		return false
	}
	if r := f.PublishedRange; r != nil {
		if !r.From.IsZero() && book.PublishedAt.Before(r.From) {
			return false
		}
		if !r.To.IsZero() && book.PublishedAt.After(r.To) {
			return false
		}
	}
	return true
}

func anyIDMatch(wanted, actual []string) bool {
	for _, w := range wanted {
		for _, a := range actual {
			if w == a {
				return true
			}
		}
	}
	return false
}

func categoryIDs(book domain.Book) []string {
	ids := make([]string, len(book.Categories))
	for i, c := range book.Categories {
		ids[i] = c.ID
	}
	return ids
}

func authorIDs(book domain.Book) []string {
	ids := make([]string, len(book.Authors))
	for i, a := range book.Authors {
		ids[i] = a.ID
	}
	return ids
}

// sortByScore orders results by score descending, book id ascending on
// ties for determinism.
func sortByScore(items []domain.BookResult) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Book.ID < items[j].Book.ID
	})
}

func sortBooks(books []domain.Book, specs []domain.SortSpec) {
	if len(specs) == 0 {
		specs = []domain.SortSpec{{Field: domain.SortByTitle, Direction: domain.SortAsc}}
	}

	sort.SliceStable(books, func(i, j int) bool {
		for _, spec := range specs {
			a, b := sortKey(books[i], spec.Field), sortKey(books[j], spec.Field)
			if a == b {
				continue
			}
			if spec.Direction == domain.SortDesc {
				return a > b
			}
			return a < b
		}
		return books[i].ID < books[j].ID
	})
}

func sortKey(book domain.Book, field domain.SortField) string {
	switch field {
	case domain.SortByPublishedAt:
		return book.PublishedAt.UTC().Format("2006-01-02T15:04:05")
	case domain.SortByAuthor:
		if len(book.Authors) == 0 {
			return ""
		}
		name := book.Authors[0].Name
		for _, a := range book.Authors[1:] {
			if a.Name < name {
				name = a.Name
			}
		}
		return strings.ToLower(name)
	case domain.SortByCategory:
		if len(book.Categories) == 0 {
			return ""
		}
		name := book.Categories[0].Name
		for _, c := range book.Categories[1:] {
			if c.Name < name {
				name = c.Name
			}
		}
		return strings.ToLower(name)
	case domain.SortByPublisher:
		return strings.ToLower(book.Publisher.Name)
	default:
		return strings.ToLower(book.Title)
	}
}

func pageItems(items []domain.BookResult, p domain.Page) []domain.BookResult {
	if p.Offset >= len(items) {
		return nil
	}
	items = items[p.Offset:]
	if p.Limit > 0 && len(items) > p.Limit {
		items = items[:p.Limit]
	}
	return items
}
