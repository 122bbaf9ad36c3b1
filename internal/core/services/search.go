package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
	"github.com/custodia-labs/libris/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService dispatches a query to one of the interchangeable retrieval
// strategies and hosts the RAG and personalised recommendation flows on
// top of them.
type SearchService struct {
	books    driven.BookStore
	users    driven.UserStore
	embedder driven.EmbeddingService
	llm      driven.LLMService
	prompts  driven.PromptStore
	metrics  driven.PipelineMetrics
}

// SearchOption configures a SearchService.
type SearchOption func(*SearchService)

// WithUserStore enables personalised recommendation.
func WithUserStore(users driven.UserStore) SearchOption {
	return func(s *SearchService) { s.users = users }
}

// WithLLMService enables RAG recommendation.
func WithLLMService(llm driven.LLMService) SearchOption {
	return func(s *SearchService) { s.llm = llm }
}

// WithPromptStore overrides the embedded recommendation prompt with
// user-editable templates.
func WithPromptStore(prompts driven.PromptStore) SearchOption {
	return func(s *SearchService) { s.prompts = prompts }
}

// WithSearchMetrics injects an observability sink.
func WithSearchMetrics(m driven.PipelineMetrics) SearchOption {
	return func(s *SearchService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewSearchService creates a new search service. The embedder is optional;
// without it, vector-dependent strategies report
// domain.ErrEmbeddingUnavailable.
func NewSearchService(books driven.BookStore, embedder driven.EmbeddingService, opts ...SearchOption) *SearchService {
	s := &SearchService{
		books:    books,
		embedder: embedder,
		metrics:  driven.NopMetrics{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Search executes the strategy selected by q.Type.
func (s *SearchService) Search(ctx context.Context, q domain.BookQuery) (domain.ResultPage, error) {
	logger.Section("Search Execution")
	logger.Debug("Type: %s, query: %q", q.Type, q.Text)

	if !q.Type.Valid() {
		return domain.ResultPage{}, fmt.Errorf("%w: %q: %w",
			domain.ErrUnsupportedSearchType, q.Type, domain.ErrInvalidInput)
	}

	q.Text = strings.TrimSpace(q.Text)
	q.Page = q.Page.Normalise()

	var vector []float32
	if q.Type.NeedsVector() {
		var err error
		if vector, err = s.queryVector(ctx, q.Text); err != nil {
			return domain.ResultPage{}, err
		}
	}

	switch q.Type {
	case domain.SearchTypeText:
		return s.books.SearchText(ctx, q.Text, q)

	case domain.SearchTypeVector:
		return s.books.SearchVector(ctx, vector, q)

	case domain.SearchTypeFuzzy:
		return s.books.SearchFuzzy(ctx, q.Text, q)

	case domain.SearchTypeHybrid:
		return s.books.SearchHybrid(ctx, vector, q.Text, q)

	case domain.SearchTypeHybridFast:
		return s.books.SearchHybridFast(ctx, vector, q.Text, q)

	case domain.SearchTypeRAG:
		res, err := s.Recommend(ctx, q)
		if err != nil {
			return domain.ResultPage{}, err
		}
		return annotatePage(res), nil

	default:
		return domain.ResultPage{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedSearchType, q.Type)
	}
}

// GetBook resolves a book id, with relations loaded.
func (s *SearchService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.books.GetBook(ctx, id)
}

// queryVector embeds the query text. An empty query for a vector-dependent
// strategy is a caller error.
func (s *SearchService) queryVector(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrMissingQueryVector, domain.ErrInvalidInput)
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrProvider, err)
	}
	if len(vector) == 0 {
		return nil, domain.ErrMissingQueryVector
	}

	return vector, nil
}

// annotatePage merges RAG reasons back into the underlying ranked page
// without changing its membership or order.
func annotatePage(res domain.RecommendResult) domain.ResultPage {
	if len(res.Recommended) == 0 {
		return res.Page
	}

	reasons := make(map[string]string, len(res.Recommended))
	for _, rec := range res.Recommended {
		reasons[rec.Book.ID] = rec.Reason
	}

	page := res.Page
	for i := range page.Items {
		if reason, ok := reasons[page.Items[i].Book.ID]; ok {
			page.Items[i].Reason = reason
		}
	}

	return page
}
