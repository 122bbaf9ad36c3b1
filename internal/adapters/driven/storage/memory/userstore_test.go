package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
)

func setupUserStore(t *testing.T) (*BookStore, *UserStore) {
	t.Helper()
	books := seedStore(t)
	users := NewUserStore(books)
	require.NoError(t, users.SaveUser(context.Background(), domain.User{
		ID:    "u1",
		Email: "reader@example.com",
		Name:  "Reader",
	}))
	return books, users
}

func TestUserStore_GetUser_NotFound(t *testing.T) {
	_, users := setupUserStore(t)

	_, err := users.GetUser(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserStore_ToggleFavorite_FlipsState(t *testing.T) {
	_, users := setupUserStore(t)
	ctx := context.Background()

	on, err := users.ToggleFavorite(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.True(t, on)

	favorites, err := users.RecentFavorites(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "b1", favorites[0].Book.ID)
	assert.Equal(t, "Dune", favorites[0].Book.Title)

	off, err := users.ToggleFavorite(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.False(t, off)

	favorites, err = users.RecentFavorites(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestUserStore_TouchLastSeen_MovesToFront(t *testing.T) {
	_, users := setupUserStore(t)
	ctx := context.Background()

	require.NoError(t, users.TouchLastSeen(ctx, "u1", "b1"))
	require.NoError(t, users.TouchLastSeen(ctx, "u1", "b2"))
	require.NoError(t, users.TouchLastSeen(ctx, "u1", "b1"))

	seen, err := users.RecentLastSeen(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, "b1", seen[0].Book.ID)
	assert.Equal(t, "b2", seen[1].Book.ID)
}

func TestUserStore_TouchLastSeen_EvictsBeyondKeep(t *testing.T) {
	books, users := setupUserStore(t)
	ctx := context.Background()

	for i := 0; i < domain.LastSeenKeep+3; i++ {
		id := fmt.Sprintf("extra-%d", i)
		require.NoError(t, books.SaveBook(ctx, domain.Book{ID: id, Title: id}))
		require.NoError(t, users.TouchLastSeen(ctx, "u1", id))
	}

	seen, err := users.RecentLastSeen(ctx, "u1", domain.LastSeenKeep+3)
	require.NoError(t, err)
	require.Len(t, seen, domain.LastSeenKeep)
	assert.Equal(t, fmt.Sprintf("extra-%d", domain.LastSeenKeep+2), seen[0].Book.ID)
}

func TestUserStore_LogSearch_UpsertsByQueryText(t *testing.T) {
	_, users := setupUserStore(t)
	ctx := context.Background()

	require.NoError(t, users.LogSearch(ctx, domain.SearchLog{
		UserID:       "u1",
		Type:         domain.SearchTypeText,
		QueryText:    "dune",
		ResultsCount: 1,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, users.LogSearch(ctx, domain.SearchLog{
		UserID:       "u1",
		Type:         domain.SearchTypeVector,
		QueryText:    "dune",
		ResultsCount: 2,
		CreatedAt:    time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}))

	logs, err := users.RecentSearches(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.SearchTypeVector, logs[0].Type)
	assert.Equal(t, 2, logs[0].ResultsCount)
}

func TestUserStore_LogSearch_EvictsBeyondKeep(t *testing.T) {
	_, users := setupUserStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < domain.SearchLogKeep+2; i++ {
		require.NoError(t, users.LogSearch(ctx, domain.SearchLog{
			UserID:    "u1",
			Type:      domain.SearchTypeText,
			QueryText: fmt.Sprintf("query %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	logs, err := users.RecentSearches(ctx, "u1", domain.SearchLogKeep+2)
	require.NoError(t, err)
	require.Len(t, logs, domain.SearchLogKeep)
	assert.Equal(t, fmt.Sprintf("query %d", domain.SearchLogKeep+1), logs[0].QueryText)
}

func TestUserStore_LogSearch_RejectsEmptyKey(t *testing.T) {
	_, users := setupUserStore(t)
	ctx := context.Background()

	err := users.LogSearch(ctx, domain.SearchLog{UserID: "", QueryText: "dune"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = users.LogSearch(ctx, domain.SearchLog{UserID: "u1", QueryText: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
