package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// userStore implements driven.UserStore.
type userStore struct {
	store *Store
}

var _ driven.UserStore = (*userStore)(nil)

// GetUser retrieves a user by ID.
func (s *userStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT id, email, name FROM users WHERE id = ?", id)

	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	return &user, nil
}

// RecentFavorites returns the user's most recent favourites with books
// loaded, newest first.
func (s *userStore) RecentFavorites(ctx context.Context, userID string, limit int) ([]domain.Favorite, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT book_id, created_at FROM favorites
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying favorites: %w", err)
	}
	defer rows.Close()

	ids, stamps, err := scanSignalRows(rows)
	if err != nil {
		return nil, err
	}

	books, err := s.booksInOrder(ctx, ids)
	if err != nil {
		return nil, err
	}

	favorites := make([]domain.Favorite, len(books))
	for i, book := range books {
		favorites[i] = domain.Favorite{UserID: userID, Book: book, CreatedAt: stamps[i]}
	}
	return favorites, nil
}

// RecentLastSeen returns the user's most recently viewed books, newest
// first.
func (s *userStore) RecentLastSeen(ctx context.Context, userID string, limit int) ([]domain.LastSeen, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT book_id, created_at FROM last_seen
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying last seen: %w", err)
	}
	defer rows.Close()

	ids, stamps, err := scanSignalRows(rows)
	if err != nil {
		return nil, err
	}

	books, err := s.booksInOrder(ctx, ids)
	if err != nil {
		return nil, err
	}

	seen := make([]domain.LastSeen, len(books))
	for i, book := range books {
		seen[i] = domain.LastSeen{UserID: userID, Book: book, CreatedAt: stamps[i]}
	}
	return seen, nil
}

// RecentSearches returns the user's most recent search-log entries,
// newest first.
func (s *userStore) RecentSearches(ctx context.Context, userID string, limit int) ([]domain.SearchLog, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT user_id, query_text, type, results_count, elapsed_ms, created_at
		FROM search_logs
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying search logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.SearchLog //nolint:prealloc // size unknown from query
	for rows.Next() {
		var log domain.SearchLog
		var searchType string
		if err := rows.Scan(&log.UserID, &log.QueryText, &searchType,
			&log.ResultsCount, &log.ElapsedMS, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning search log: %w", err)
		}
		log.Type = domain.SearchType(searchType)
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search logs: %w", err)
	}

	return logs, nil
}

// LogSearch upserts a search-log entry keyed by user and query text, then
// evicts entries beyond domain.SearchLogKeep.
func (s *userStore) LogSearch(ctx context.Context, log domain.SearchLog) error {
	if log.UserID == "" || log.QueryText == "" {
		return domain.ErrInvalidInput
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO search_logs (user_id, query_text, type, results_count, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, query_text) DO UPDATE SET
			type = excluded.type,
			results_count = excluded.results_count,
			elapsed_ms = excluded.elapsed_ms,
			created_at = excluded.created_at
	`, log.UserID, log.QueryText, string(log.Type),
		log.ResultsCount, log.ElapsedMS, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving search log: %w", err)
	}

	return s.evict(ctx, "search_logs", log.UserID, domain.SearchLogKeep)
}

// ToggleFavorite adds the book to the user's favourites, or removes it if
// already present. Reports whether the book is now favourited.
func (s *userStore) ToggleFavorite(ctx context.Context, userID, bookID string) (bool, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND book_id = ?", userID, bookID)
	if err != nil {
		return false, fmt.Errorf("removing favorite: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking removed favorite: %w", err)
	}
	if removed > 0 {
		return false, nil
	}

	if _, err := s.store.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, book_id, created_at) VALUES (?, ?, ?)
	`, userID, bookID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("adding favorite: %w", err)
	}
	return true, nil
}

// TouchLastSeen moves the book to the front of the user's last-seen list,
// then evicts entries beyond domain.LastSeenKeep.
func (s *userStore) TouchLastSeen(ctx context.Context, userID, bookID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO last_seen (user_id, book_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, book_id) DO UPDATE SET created_at = excluded.created_at
	`, userID, bookID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving last seen: %w", err)
	}

	return s.evict(ctx, "last_seen", userID, domain.LastSeenKeep)
}

// evict deletes a user's signal rows beyond the keep newest entries.
func (s *userStore) evict(ctx context.Context, table, userID string, keep int) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = ? AND rowid NOT IN (
			SELECT rowid FROM %s WHERE user_id = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`, table, table)

	if _, err := s.store.db.ExecContext(ctx, query, userID, userID, keep); err != nil {
		return fmt.Errorf("evicting %s rows: %w", table, err)
	}
	return nil
}

// booksInOrder hydrates books preserving the given id order.
func (s *userStore) booksInOrder(ctx context.Context, ids []string) ([]domain.Book, error) {
	books := &bookStore{store: s.store}
	return books.loadBooks(ctx, ids)
}

func scanSignalRows(rows *sql.Rows) ([]string, []time.Time, error) {
	var ids []string
	var stamps []time.Time
	for rows.Next() {
		var id string
		var createdAt time.Time
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, nil, fmt.Errorf("scanning signal row: %w", err)
		}
		ids = append(ids, id)
		stamps = append(stamps, createdAt)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating signal rows: %w", err)
	}
	return ids, stamps, nil
}

// SaveUser stores or updates a user. Account management is out of the
// engine's scope; this is the seeding entry point for fixtures.
func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	if user.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name
	`, user.ID, user.Email, user.Name)
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}
