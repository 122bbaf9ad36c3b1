package cli

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
)

// mockSearchService implements driving.SearchService for command tests.
type mockSearchService struct {
	page      domain.ResultPage
	recommend domain.RecommendResult
	userPage  domain.ResultPage
	err       error

	lastQuery  domain.BookQuery
	lastUserID string
}

var _ driving.SearchService = (*mockSearchService)(nil)

func (m *mockSearchService) Search(_ context.Context, q domain.BookQuery) (domain.ResultPage, error) {
	m.lastQuery = q
	if m.err != nil {
		return domain.ResultPage{}, m.err
	}
	return m.page, nil
}

func (m *mockSearchService) Recommend(_ context.Context, q domain.BookQuery) (domain.RecommendResult, error) {
	m.lastQuery = q
	if m.err != nil {
		return domain.RecommendResult{}, m.err
	}
	return m.recommend, nil
}

func (m *mockSearchService) RecommendForUser(_ context.Context, userID string, q domain.BookQuery) (domain.ResultPage, error) {
	m.lastUserID = userID
	m.lastQuery = q
	if m.err != nil {
		return domain.ResultPage{}, m.err
	}
	return m.userPage, nil
}

// mockPipeline implements driving.EmbeddingPipeline for command tests.
type mockPipeline struct {
	processed int
	err       error

	lastMaxBooks int
	lastIDs      []string
}

var _ driving.EmbeddingPipeline = (*mockPipeline)(nil)

func (m *mockPipeline) EmbedBook(context.Context, domain.Book) error {
	return m.err
}

func (m *mockPipeline) EmbedBooks(_ context.Context, books []domain.Book) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(books), nil
}

func (m *mockPipeline) UpdateMissingEmbeddings(_ context.Context, maxBooks int) (int, error) {
	m.lastMaxBooks = maxBooks
	if m.err != nil {
		return 0, m.err
	}
	return m.processed, nil
}

func (m *mockPipeline) UpdateEmbeddingsForBooks(_ context.Context, ids []string) (int, error) {
	m.lastIDs = ids
	if m.err != nil {
		return 0, m.err
	}
	return m.processed, nil
}

// mockUsers implements driven.UserStore for command tests. Only LogSearch
// matters to the CLI; the rest are inert.
type mockUsers struct {
	logged []domain.SearchLog
	logErr error
}

var _ driven.UserStore = (*mockUsers)(nil)

func (m *mockUsers) GetUser(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (m *mockUsers) RecentFavorites(context.Context, string, int) ([]domain.Favorite, error) {
	return nil, nil
}

func (m *mockUsers) RecentLastSeen(context.Context, string, int) ([]domain.LastSeen, error) {
	return nil, nil
}

func (m *mockUsers) RecentSearches(context.Context, string, int) ([]domain.SearchLog, error) {
	return nil, nil
}

func (m *mockUsers) LogSearch(_ context.Context, log domain.SearchLog) error {
	if m.logErr != nil {
		return m.logErr
	}
	m.logged = append(m.logged, log)
	return nil
}

func (m *mockUsers) ToggleFavorite(context.Context, string, string) (bool, error) {
	return false, nil
}

func (m *mockUsers) TouchLastSeen(context.Context, string, string) error {
	return nil
}

// resultPageFixture is a small two-book page for output tests.
func resultPageFixture() domain.ResultPage {
	return domain.ResultPage{
		Items: []domain.BookResult{
			{
				Book: domain.Book{
					ID:      "b1",
					Title:   "Dune",
					Authors: []domain.Author{{ID: "a1", Name: "Frank Herbert"}},
				},
				Score: 0.92,
			},
			{
				Book: domain.Book{
					ID:      "b2",
					Title:   "Hyperion",
					Authors: []domain.Author{{ID: "a2", Name: "Dan Simmons"}},
				},
				Score: 0.87,
			},
		},
		Total: 2,
	}
}

// setupTestServices injects mocks and returns them with a cleanup that
// restores the previous services.
func setupTestServices() (*mockSearchService, *mockPipeline, *mockUsers, func()) {
	prevSearch, prevPipeline, prevUsers := searchService, pipeline, userStore

	search := &mockSearchService{page: resultPageFixture()}
	pipe := &mockPipeline{}
	users := &mockUsers{}
	SetServices(Services{Search: search, Pipeline: pipe, Users: users})

	return search, pipe, users, func() {
		searchService = prevSearch
		pipeline = prevPipeline
		userStore = prevUsers
	}
}
