package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// Ensure UserStore implements the interface.
var _ driven.UserStore = (*UserStore)(nil)

// signal is one recency-ordered entry in a per-user list.
type signal struct {
	bookID    string
	createdAt time.Time
}

// UserStore is an in-memory implementation of driven.UserStore. Book
// references are hydrated from the companion BookStore at read time.
type UserStore struct {
	mu        sync.RWMutex
	books     *BookStore
	users     map[string]domain.User
	favorites map[string][]signal
	lastSeen  map[string][]signal
	searches  map[string][]domain.SearchLog
}

// NewUserStore creates a new in-memory user store backed by books for
// signal hydration.
func NewUserStore(books *BookStore) *UserStore {
	return &UserStore{
		books:     books,
		users:     make(map[string]domain.User),
		favorites: make(map[string][]signal),
		lastSeen:  make(map[string][]signal),
		searches:  make(map[string][]domain.SearchLog),
	}
}

// SaveUser stores or updates a user.
func (s *UserStore) SaveUser(_ context.Context, user domain.User) error {
	if user.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *UserStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

// RecentFavorites returns the user's newest favourites with books loaded.
func (s *UserStore) RecentFavorites(ctx context.Context, userID string, limit int) ([]domain.Favorite, error) {
	s.mu.RLock()
	entries := capSignals(s.favorites[userID], limit)
	s.mu.RUnlock()

	var favorites []domain.Favorite
	for _, e := range entries {
		book, err := s.books.GetBook(ctx, e.bookID)
		if err != nil {
			continue
		}
		favorites = append(favorites, domain.Favorite{
			UserID:    userID,
			Book:      *book,
			CreatedAt: e.createdAt,
		})
	}
	return favorites, nil
}

// RecentLastSeen returns the user's most recently viewed books.
func (s *UserStore) RecentLastSeen(ctx context.Context, userID string, limit int) ([]domain.LastSeen, error) {
	s.mu.RLock()
	entries := capSignals(s.lastSeen[userID], limit)
	s.mu.RUnlock()

	var seen []domain.LastSeen
	for _, e := range entries {
		book, err := s.books.GetBook(ctx, e.bookID)
		if err != nil {
			continue
		}
		seen = append(seen, domain.LastSeen{
			UserID:    userID,
			Book:      *book,
			CreatedAt: e.createdAt,
		})
	}
	return seen, nil
}

// RecentSearches returns the user's newest search-log entries.
func (s *UserStore) RecentSearches(_ context.Context, userID string, limit int) ([]domain.SearchLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := s.searches[userID]
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return append([]domain.SearchLog(nil), logs...), nil
}

// LogSearch upserts a search-log entry keyed by query text and evicts
// entries beyond domain.SearchLogKeep.
func (s *UserStore) LogSearch(_ context.Context, log domain.SearchLog) error {
	if log.UserID == "" || log.QueryText == "" {
		return domain.ErrInvalidInput
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logs := s.searches[log.UserID]
	for i := range logs {
		if logs[i].QueryText == log.QueryText {
			logs = append(logs[:i], logs[i+1:]...)
			break
		}
	}
	logs = append([]domain.SearchLog{log}, logs...)
	sortLogs(logs)
	if len(logs) > domain.SearchLogKeep {
		logs = logs[:domain.SearchLogKeep]
	}
	s.searches[log.UserID] = logs
	return nil
}

// ToggleFavorite flips the favourite state of a book for a user.
func (s *UserStore) ToggleFavorite(_ context.Context, userID, bookID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.favorites[userID]
	for i := range entries {
		if entries[i].bookID == bookID {
			s.favorites[userID] = append(entries[:i], entries[i+1:]...)
			return false, nil
		}
	}
	s.favorites[userID] = append([]signal{{bookID: bookID, createdAt: time.Now().UTC()}}, entries...)
	return true, nil
}

// TouchLastSeen moves a book to the front of the user's last-seen list and
// evicts entries beyond domain.LastSeenKeep.
func (s *UserStore) TouchLastSeen(_ context.Context, userID, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.lastSeen[userID]
	for i := range entries {
		if entries[i].bookID == bookID {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	entries = append([]signal{{bookID: bookID, createdAt: time.Now().UTC()}}, entries...)
	if len(entries) > domain.LastSeenKeep {
		entries = entries[:domain.LastSeenKeep]
	}
	s.lastSeen[userID] = entries
	return nil
}

func capSignals(entries []signal, limit int) []signal {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]signal(nil), entries...)
}

func sortLogs(logs []domain.SearchLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
}
