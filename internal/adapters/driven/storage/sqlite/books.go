package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// bookStore implements driven.BookStore.
type bookStore struct {
	store *Store
}

var _ driven.BookStore = (*bookStore)(nil)

// GetBook retrieves a book by ID with relations loaded.
func (s *bookStore) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	books, err := s.loadBooks(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, domain.ErrNotFound
	}
	return &books[0], nil
}

// ListBooksByIDs retrieves books for the given ids, skipping missing ones.
func (s *bookStore) ListBooksByIDs(ctx context.Context, ids []string) ([]domain.Book, error) {
	return s.loadBooks(ctx, ids)
}

// ListBooksWithoutChunks pages through books that own zero chunks.
func (s *bookStore) ListBooksWithoutChunks(ctx context.Context, limit, offset int) ([]domain.Book, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT b.id FROM books b
		WHERE NOT EXISTS (SELECT 1 FROM chunks c WHERE c.book_id = b.id)
		ORDER BY b.id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying books without chunks: %w", err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	return s.loadBooks(ctx, ids)
}

// ChunksByBook returns a book's chunks ordered by index.
func (s *bookStore) ChunksByBook(ctx context.Context, bookID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, book_id, idx, content, embedding
		FROM chunks WHERE book_id = ?
		ORDER BY idx
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		if err := rows.Scan(&chunk.ID, &chunk.BookID, &chunk.Index, &chunk.Content, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// ReplaceChunks atomically deletes a book's chunks and inserts the given
// ones in a single transaction.
func (s *bookStore) ReplaceChunks(ctx context.Context, bookID string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE book_id = ?", bookID); err != nil {
		return fmt.Errorf("deleting existing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, book_id, idx, content, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, chunk.ID, bookID, chunk.Index,
			chunk.Content, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteChunks removes all chunks for the given books.
func (s *bookStore) DeleteChunks(ctx context.Context, bookIDs []string) error {
	if len(bookIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM chunks WHERE book_id IN (%s)", placeholders(len(bookIDs)))
	if _, err := s.store.db.ExecContext(ctx, query, toAnySlice(bookIDs)...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// loadBooks hydrates books for the given ids, preserving id order and
// silently skipping missing ids.
func (s *bookStore) loadBooks(ctx context.Context, ids []string) ([]domain.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT b.id, b.title, b.description, b.published_at, b.image_url,
			COALESCE(p.id, ''), COALESCE(p.name, '')
		FROM books b
		LEFT JOIN publishers p ON p.id = b.publisher_id
		WHERE b.id IN (%s)
	`, placeholders(len(ids)))

	rows, err := s.store.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.Book)
	for rows.Next() {
		var book domain.Book
		var publishedAt sql.NullTime
		if err := rows.Scan(&book.ID, &book.Title, &book.Description, &publishedAt,
			&book.ImageURL, &book.Publisher.ID, &book.Publisher.Name); err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		if publishedAt.Valid {
			book.PublishedAt = publishedAt.Time
		}
		byID[book.ID] = &book
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating books: %w", err)
	}
	if len(byID) == 0 {
		return nil, nil
	}

	if err := s.loadAuthors(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.loadCategories(ctx, byID); err != nil {
		return nil, err
	}

	books := make([]domain.Book, 0, len(byID))
	for _, id := range ids {
		if book, ok := byID[id]; ok {
			books = append(books, *book)
			delete(byID, id) // guard against duplicate ids in the input
		}
	}

	return books, nil
}

func (s *bookStore) loadAuthors(ctx context.Context, byID map[string]*domain.Book) error {
	ids := mapKeys(byID)
	query := fmt.Sprintf(`
		SELECT ba.book_id, a.id, a.name
		FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id IN (%s)
		ORDER BY a.name
	`, placeholders(len(ids)))

	rows, err := s.store.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return fmt.Errorf("querying authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID string
		var author domain.Author
		if err := rows.Scan(&bookID, &author.ID, &author.Name); err != nil {
			return fmt.Errorf("scanning author: %w", err)
		}
		if book, ok := byID[bookID]; ok {
			book.Authors = append(book.Authors, author)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating authors: %w", err)
	}
	return nil
}

func (s *bookStore) loadCategories(ctx context.Context, byID map[string]*domain.Book) error {
	ids := mapKeys(byID)
	query := fmt.Sprintf(`
		SELECT bc.book_id, c.id, c.name
		FROM book_categories bc
		JOIN categories c ON c.id = bc.category_id
		WHERE bc.book_id IN (%s)
		ORDER BY c.name
	`, placeholders(len(ids)))

	rows, err := s.store.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID string
		var category domain.Category
		if err := rows.Scan(&bookID, &category.ID, &category.Name); err != nil {
			return fmt.Errorf("scanning category: %w", err)
		}
		if book, ok := byID[bookID]; ok {
			book.Categories = append(book.Categories, category)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating categories: %w", err)
	}
	return nil
}

// SaveBook stores or updates a book with its relations. Catalog ingestion
// is out of the engine's scope; this is the seeding entry point for
// importers and fixtures.
func (s *Store) SaveBook(ctx context.Context, book domain.Book) error {
	if book.ID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var publisherID any
	if book.Publisher.ID != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO publishers (id, name) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name
		`, book.Publisher.ID, book.Publisher.Name); err != nil {
			return fmt.Errorf("saving publisher: %w", err)
		}
		publisherID = book.Publisher.ID
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO books (id, title, description, published_at, image_url, publisher_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			published_at = excluded.published_at,
			image_url = excluded.image_url,
			publisher_id = excluded.publisher_id,
			updated_at = excluded.updated_at
	`, book.ID, book.Title, book.Description, nullTime(book.PublishedAt),
		book.ImageURL, publisherID, now, now); err != nil {
		return fmt.Errorf("saving book: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM book_authors WHERE book_id = ?", book.ID); err != nil {
		return fmt.Errorf("clearing book authors: %w", err)
	}
	for _, author := range book.Authors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO authors (id, name) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name
		`, author.ID, author.Name); err != nil {
			return fmt.Errorf("saving author: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO book_authors (book_id, author_id) VALUES (?, ?)",
			book.ID, author.ID); err != nil {
			return fmt.Errorf("linking author: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM book_categories WHERE book_id = ?", book.ID); err != nil {
		return fmt.Errorf("clearing book categories: %w", err)
	}
	for _, category := range book.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name
		`, category.ID, category.Name); err != nil {
			return fmt.Errorf("saving category: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO book_categories (book_id, category_id) VALUES (?, ?)",
			book.ID, category.ID); err != nil {
			return fmt.Errorf("linking category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}
	return ids, nil
}

func mapKeys(m map[string]*domain.Book) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
