package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// --- Mock implementations of the driven ports ---

// mockBookStore implements driven.BookStore for testing.
type mockBookStore struct {
	mu sync.Mutex

	books        map[string]domain.Book
	chunks       map[string][]domain.Chunk
	withoutPages [][]domain.Book

	textPage   domain.ResultPage
	vectorPage domain.ResultPage
	fuzzyPage  domain.ResultPage
	hybridPage domain.ResultPage
	fastPage   domain.ResultPage

	replaceErr error
	searchErr  error

	lastVector      []float32
	lastQuery       domain.BookQuery
	replacedBooks   []string
	strategiesAsked []domain.SearchType
}

var _ driven.BookStore = (*mockBookStore)(nil)

func newMockBookStore() *mockBookStore {
	return &mockBookStore{
		books:  make(map[string]domain.Book),
		chunks: make(map[string][]domain.Chunk),
	}
}

func (m *mockBookStore) GetBook(_ context.Context, id string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[id]; ok {
		return &b, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockBookStore) ListBooksByIDs(_ context.Context, ids []string) ([]domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Book
	for _, id := range ids {
		if b, ok := m.books[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookStore) ListBooksWithoutChunks(_ context.Context, _, offset int) ([]domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := offset / DefaultBackfillPageSize
	if page >= len(m.withoutPages) {
		return nil, nil
	}
	return m.withoutPages[page], nil
}

func (m *mockBookStore) ChunksByBook(_ context.Context, bookID string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks[bookID], nil
}

func (m *mockBookStore) ReplaceChunks(_ context.Context, bookID string, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.chunks[bookID] = chunks
	m.replacedBooks = append(m.replacedBooks, bookID)
	return nil
}

func (m *mockBookStore) DeleteChunks(_ context.Context, bookIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range bookIDs {
		delete(m.chunks, id)
	}
	return nil
}

func (m *mockBookStore) SearchText(_ context.Context, _ string, q domain.BookQuery) (domain.ResultPage, error) {
	return m.record(domain.SearchTypeText, nil, q, m.textPage)
}

func (m *mockBookStore) SearchVector(_ context.Context, vector []float32, q domain.BookQuery) (domain.ResultPage, error) {
	return m.record(domain.SearchTypeVector, vector, q, m.vectorPage)
}

func (m *mockBookStore) SearchFuzzy(_ context.Context, _ string, q domain.BookQuery) (domain.ResultPage, error) {
	return m.record(domain.SearchTypeFuzzy, nil, q, m.fuzzyPage)
}

func (m *mockBookStore) SearchHybrid(_ context.Context, vector []float32, _ string, q domain.BookQuery) (domain.ResultPage, error) {
	return m.record(domain.SearchTypeHybrid, vector, q, m.hybridPage)
}

func (m *mockBookStore) SearchHybridFast(_ context.Context, vector []float32, _ string, q domain.BookQuery) (domain.ResultPage, error) {
	return m.record(domain.SearchTypeHybridFast, vector, q, m.fastPage)
}

func (m *mockBookStore) record(t domain.SearchType, vector []float32, q domain.BookQuery, page domain.ResultPage) (domain.ResultPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return domain.ResultPage{}, m.searchErr
	}
	m.strategiesAsked = append(m.strategiesAsked, t)
	m.lastVector = vector
	m.lastQuery = q
	return page, nil
}

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	mu sync.Mutex

	dims       int
	embedFn    func(text string) ([]float32, error)
	calls      []string
	batchCalls int
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	fn := m.embedFn
	m.mu.Unlock()

	if fn != nil {
		return fn(text)
	}
	vec := make([]float32, m.dims)
	for i := range vec {
		vec[i] = 1
	}
	return vec, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return m.dims }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	response string
	err      error

	lastSystem string
	lastUser   string
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) Complete(_ context.Context, system, user string) (string, error) {
	m.lastSystem = system
	m.lastUser = user
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

var _ driven.PromptStore = (*mockPromptStore)(nil)

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

// mockUserStore implements driven.UserStore for testing.
type mockUserStore struct {
	users     map[string]domain.User
	favorites []domain.Favorite
	lastSeen  []domain.LastSeen
	searches  []domain.SearchLog

	fetchErr error
	logged   []domain.SearchLog
}

var _ driven.UserStore = (*mockUserStore)(nil)

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]domain.User)}
}

func (m *mockUserStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserStore) RecentFavorites(_ context.Context, _ string, limit int) ([]domain.Favorite, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return capSlice(m.favorites, limit), nil
}

func (m *mockUserStore) RecentLastSeen(_ context.Context, _ string, limit int) ([]domain.LastSeen, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return capSlice(m.lastSeen, limit), nil
}

func (m *mockUserStore) RecentSearches(_ context.Context, _ string, limit int) ([]domain.SearchLog, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return capSlice(m.searches, limit), nil
}

func (m *mockUserStore) LogSearch(_ context.Context, log domain.SearchLog) error {
	m.logged = append(m.logged, log)
	return nil
}

func (m *mockUserStore) ToggleFavorite(context.Context, string, string) (bool, error) {
	return true, nil
}

func (m *mockUserStore) TouchLastSeen(context.Context, string, string) error {
	return nil
}

func capSlice[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
