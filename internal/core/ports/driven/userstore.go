package driven

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// UserStore exposes the behavioural signals the recommendation engine
// reads: recent favourites, recently viewed books and past searches, each
// as a recency-ordered, length-bounded list. Writes go through the
// append/evict operations below; the engine never mutates signal rows
// directly.
type UserStore interface {
	// GetUser resolves a user id. Returns domain.ErrNotFound when absent.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// RecentFavorites returns up to limit most-recent favourites with
	// books loaded, newest first.
	RecentFavorites(ctx context.Context, userID string, limit int) ([]domain.Favorite, error)

	// RecentLastSeen returns up to limit most-recently viewed books,
	// newest first.
	RecentLastSeen(ctx context.Context, userID string, limit int) ([]domain.LastSeen, error)

	// RecentSearches returns up to limit most-recent search-log entries,
	// newest first.
	RecentSearches(ctx context.Context, userID string, limit int) ([]domain.SearchLog, error)

	// LogSearch upserts a search-log entry keyed by user and query text,
	// then evicts entries beyond domain.SearchLogKeep.
	LogSearch(ctx context.Context, log domain.SearchLog) error

	// ToggleFavorite adds the book to the user's favourites, or removes
	// it if already present. Reports whether the book is now favourited.
	ToggleFavorite(ctx context.Context, userID, bookID string) (bool, error)

	// TouchLastSeen moves the book to the front of the user's last-seen
	// list, then evicts entries beyond domain.LastSeenKeep.
	TouchLastSeen(ctx context.Context, userID, bookID string) error
}
