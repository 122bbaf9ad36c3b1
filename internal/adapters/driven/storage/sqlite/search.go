package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// Hybrid score weights: semantic similarity dominates, lexical signal
// breaks the ties.
const (
	hybridVectorWeight  = 0.6
	hybridLexicalWeight = 0.4
)

// scoredBook is one ranked candidate before hydration.
type scoredBook struct {
	id         string
	score      float64
	similarity float64
	fuzzy      float64
}

// SearchText matches each query word as a case-insensitive substring of
// title, description, author and category names or chunk content. All
// words must match; results are ordered by the query's sort spec.
func (s *bookStore) SearchText(ctx context.Context, text string, q domain.BookQuery) (domain.ResultPage, error) {
	conds := buildFilters(q.Filters)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		conds = append(conds, cond{
			expr: `(instr(lower(b.title), ?) > 0
				OR instr(lower(b.description), ?) > 0
				OR EXISTS (SELECT 1 FROM book_authors ba JOIN authors a ON a.id = ba.author_id
					WHERE ba.book_id = b.id AND instr(lower(a.name), ?) > 0)
				OR EXISTS (SELECT 1 FROM book_categories bc JOIN categories cat ON cat.id = bc.category_id
					WHERE bc.book_id = b.id AND instr(lower(cat.name), ?) > 0)
				OR EXISTS (SELECT 1 FROM chunks c WHERE c.book_id = b.id AND instr(lower(c.content), ?) > 0))`,
			args: []any{word, word, word, word, word},
		})
	}

	where, args := andClause(conds)

	var total int
	countQuery := "SELECT COUNT(*) FROM books b WHERE 1=1" + where
	if err := s.store.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return domain.ResultPage{}, fmt.Errorf("counting text matches: %w", err)
	}

	pageQuery := fmt.Sprintf(
		"SELECT b.id FROM books b WHERE 1=1%s ORDER BY %s LIMIT ? OFFSET ?",
		where, sortClause(q.Sort))
	rows, err := s.store.db.QueryContext(ctx, pageQuery,
		append(args, q.Page.Limit, q.Page.Offset)...)
	if err != nil {
		return domain.ResultPage{}, fmt.Errorf("querying text matches: %w", err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	if err != nil {
		return domain.ResultPage{}, err
	}

	scored := make([]scoredBook, len(ids))
	for i, id := range ids {
		scored[i] = scoredBook{id: id}
	}

	items, err := s.hydrate(ctx, scored, nil, 0)
	if err != nil {
		return domain.ResultPage{}, err
	}

	return domain.ResultPage{Items: items, Total: total}, nil
}

// SearchVector ranks books by their best chunk similarity to the query
// vector, most similar first.
func (s *bookStore) SearchVector(ctx context.Context, vector []float32, q domain.BookQuery) (domain.ResultPage, error) {
	if len(vector) == 0 {
		return domain.ResultPage{}, domain.ErrMissingQueryVector
	}

	where, filterArgs := andClause(buildFilters(q.Filters))
	blob := float32SliceToBytes(vector)

	threshold := -1.0 // cosine lower bound: no threshold keeps everything
	if q.SimilarityThreshold != nil {
		threshold = *q.SimilarityThreshold
	}

	base := fmt.Sprintf(`
		SELECT b.id AS id, MAX(vec_cosine(c.embedding, ?)) AS sim
		FROM books b
		JOIN chunks c ON c.book_id = b.id
		WHERE c.embedding IS NOT NULL%s
		GROUP BY b.id
		HAVING MAX(vec_cosine(c.embedding, ?)) >= ?
	`, where)
	baseArgs := append([]any{blob}, filterArgs...)
	baseArgs = append(baseArgs, blob, threshold)

	var total int
	countQuery := "SELECT COUNT(*) FROM (" + base + ")"
	if err := s.store.db.QueryRowContext(ctx, countQuery, baseArgs...).Scan(&total); err != nil {
		return domain.ResultPage{}, fmt.Errorf("counting vector matches: %w", err)
	}

	pageQuery := base + " ORDER BY sim DESC, id LIMIT ? OFFSET ?"
	rows, err := s.store.db.QueryContext(ctx, pageQuery,
		append(baseArgs, q.Page.Limit, q.Page.Offset)...)
	if err != nil {
		return domain.ResultPage{}, fmt.Errorf("querying vector matches: %w", err)
	}
	defer rows.Close()

	var scored []scoredBook //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sb scoredBook
		if err := rows.Scan(&sb.id, &sb.similarity); err != nil {
			return domain.ResultPage{}, fmt.Errorf("scanning vector match: %w", err)
		}
		sb.score = sb.similarity
		scored = append(scored, sb)
	}
	if err := rows.Err(); err != nil {
		return domain.ResultPage{}, fmt.Errorf("iterating vector matches: %w", err)
	}

	items, err := s.hydrate(ctx, scored, vector, q.ChunkLoadLimit)
	if err != nil {
		return domain.ResultPage{}, err
	}

	return domain.ResultPage{Items: items, Total: total}, nil
}

// SearchFuzzy ranks books by the best trigram similarity across title,
// description, author and category names and chunk content.
func (s *bookStore) SearchFuzzy(ctx context.Context, text string, q domain.BookQuery) (domain.ResultPage, error) {
	where, filterArgs := andClause(buildFilters(q.Filters))

	// Without an explicit threshold, any nonzero similarity surfaces.
	threshold := 0.0
	cmp := ">"
	if q.FuzzyThreshold != nil {
		threshold = *q.FuzzyThreshold
		cmp = ">="
	}

	base := fmt.Sprintf(`
		SELECT id, score FROM (%s) WHERE score %s ?
	`, fuzzyScoreQuery(where), cmp)
	baseArgs := append(fuzzyScoreArgs(text), filterArgs...)
	baseArgs = append(baseArgs, threshold)

	var total int
	countQuery := "SELECT COUNT(*) FROM (" + base + ")"
	if err := s.store.db.QueryRowContext(ctx, countQuery, baseArgs...).Scan(&total); err != nil {
		return domain.ResultPage{}, fmt.Errorf("counting fuzzy matches: %w", err)
	}

	pageQuery := base + " ORDER BY score DESC, id LIMIT ? OFFSET ?"
	rows, err := s.store.db.QueryContext(ctx, pageQuery,
		append(baseArgs, q.Page.Limit, q.Page.Offset)...)
	if err != nil {
		return domain.ResultPage{}, fmt.Errorf("querying fuzzy matches: %w", err)
	}
	defer rows.Close()

	var scored []scoredBook //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sb scoredBook
		if err := rows.Scan(&sb.id, &sb.fuzzy); err != nil {
			return domain.ResultPage{}, fmt.Errorf("scanning fuzzy match: %w", err)
		}
		sb.score = sb.fuzzy
		scored = append(scored, sb)
	}
	if err := rows.Err(); err != nil {
		return domain.ResultPage{}, fmt.Errorf("iterating fuzzy matches: %w", err)
	}

	items, err := s.hydrate(ctx, scored, nil, 0)
	if err != nil {
		return domain.ResultPage{}, err
	}

	return domain.ResultPage{Items: items, Total: total}, nil
}

// SearchHybrid combines vector and trigram scores over the union of books
// surfaced by either sub-strategy.
func (s *bookStore) SearchHybrid(ctx context.Context, vector []float32, text string, q domain.BookQuery) (domain.ResultPage, error) {
	lexical, err := s.fuzzyScoresByBook(ctx, text, q)
	if err != nil {
		return domain.ResultPage{}, err
	}
	return s.searchCombined(ctx, vector, lexical, q)
}

// SearchHybridFast is the cheaper hybrid variant: the lexical side is a
// normalised per-word substring hit count over title and description
// instead of true string similarity.
func (s *bookStore) SearchHybridFast(ctx context.Context, vector []float32, text string, q domain.BookQuery) (domain.ResultPage, error) {
	lexical, err := s.wordHitScoresByBook(ctx, text, q)
	if err != nil {
		return domain.ResultPage{}, err
	}
	return s.searchCombined(ctx, vector, lexical, q)
}

// searchCombined merges per-book vector similarities with a lexical score
// map, ranks by the weighted sum and pages the union in memory. The union
// is bounded: only filtered books surface on either side.
func (s *bookStore) searchCombined(ctx context.Context, vector []float32, lexical map[string]float64, q domain.BookQuery) (domain.ResultPage, error) {
	if len(vector) == 0 {
		return domain.ResultPage{}, domain.ErrMissingQueryVector
	}

	similarities, err := s.vectorScoresByBook(ctx, vector, q)
	if err != nil {
		return domain.ResultPage{}, err
	}

	union := make(map[string]scoredBook, len(similarities)+len(lexical))
	for id, sim := range similarities {
		union[id] = scoredBook{id: id, similarity: sim}
	}
	for id, lex := range lexical {
		sb := union[id]
		sb.id = id
		sb.fuzzy = lex
		union[id] = sb
	}

	scored := make([]scoredBook, 0, len(union))
	for _, sb := range union {
		sb.score = hybridVectorWeight*sb.similarity + hybridLexicalWeight*sb.fuzzy
		scored = append(scored, sb)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].id < scored[j].id
	})

	total := len(scored)
	page := q.Page
	if page.Offset >= len(scored) {
		scored = nil
	} else {
		scored = scored[page.Offset:]
		if len(scored) > page.Limit {
			scored = scored[:page.Limit]
		}
	}

	items, err := s.hydrate(ctx, scored, vector, q.ChunkLoadLimit)
	if err != nil {
		return domain.ResultPage{}, err
	}

	return domain.ResultPage{Items: items, Total: total}, nil
}

// vectorScoresByBook returns the best chunk similarity per filtered book,
// honouring the query's similarity threshold.
func (s *bookStore) vectorScoresByBook(ctx context.Context, vector []float32, q domain.BookQuery) (map[string]float64, error) {
	where, filterArgs := andClause(buildFilters(q.Filters))
	blob := float32SliceToBytes(vector)

	threshold := 0.0
	if q.SimilarityThreshold != nil {
		threshold = *q.SimilarityThreshold
	}

	query := fmt.Sprintf(`
		SELECT b.id, MAX(vec_cosine(c.embedding, ?)) AS sim
		FROM books b
		JOIN chunks c ON c.book_id = b.id
		WHERE c.embedding IS NOT NULL%s
		GROUP BY b.id
		HAVING MAX(vec_cosine(c.embedding, ?)) >= ?
	`, where)
	args := append([]any{blob}, filterArgs...)
	args = append(args, blob, threshold)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vector scores: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// fuzzyScoresByBook returns the best trigram similarity per filtered book.
func (s *bookStore) fuzzyScoresByBook(ctx context.Context, text string, q domain.BookQuery) (map[string]float64, error) {
	where, filterArgs := andClause(buildFilters(q.Filters))

	threshold := 0.0
	cmp := ">"
	if q.FuzzyThreshold != nil {
		threshold = *q.FuzzyThreshold
		cmp = ">="
	}

	query := fmt.Sprintf("SELECT id, score FROM (%s) WHERE score %s ?",
		fuzzyScoreQuery(where), cmp)
	args := append(fuzzyScoreArgs(text), filterArgs...)
	args = append(args, threshold)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fuzzy scores: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// wordHitScoresByBook returns the normalised substring hit count per
// filtered book, over title and description only.
func (s *bookStore) wordHitScoresByBook(ctx context.Context, text string, q domain.BookQuery) (map[string]float64, error) {
	where, filterArgs := andClause(buildFilters(q.Filters))

	query := fmt.Sprintf(`
		SELECT id, score FROM (
			SELECT b.id AS id, word_hits(b.title || ' ' || b.description, ?) AS score
			FROM books b
			WHERE 1=1%s
		) WHERE score > 0
	`, where)
	args := append([]any{text}, filterArgs...)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying word hit scores: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// fuzzyScoreQuery renders the per-book trigram score subquery; the caller
// binds fuzzyScoreArgs(text) followed by the filter arguments.
func fuzzyScoreQuery(where string) string {
	return fmt.Sprintf(`
		SELECT b.id AS id, MAX(
			trgm_sim(b.title, ?),
			trgm_sim(b.description, ?),
			COALESCE((SELECT MAX(trgm_sim(a.name, ?)) FROM book_authors ba
				JOIN authors a ON a.id = ba.author_id WHERE ba.book_id = b.id), 0),
			COALESCE((SELECT MAX(trgm_sim(cat.name, ?)) FROM book_categories bc
				JOIN categories cat ON cat.id = bc.category_id WHERE bc.book_id = b.id), 0),
			COALESCE((SELECT MAX(trgm_sim(c.content, ?)) FROM chunks c WHERE c.book_id = b.id), 0)
		) AS score
		FROM books b
		WHERE 1=1%s
	`, where)
}

func fuzzyScoreArgs(text string) []any {
	return []any{text, text, text, text, text}
}

func scanScores(rows *sql.Rows) (map[string]float64, error) {
	scores := make(map[string]float64)
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores[id] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scores: %w", err)
	}
	return scores, nil
}

// hydrate loads full books for the ranked candidates, preserving rank
// order, and attaches each book's top chunks when a query vector and a
// positive chunk limit are given.
func (s *bookStore) hydrate(ctx context.Context, scored []scoredBook, vector []float32, chunkLimit int) ([]domain.BookResult, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	ids := make([]string, len(scored))
	for i, sb := range scored {
		ids[i] = sb.id
	}

	books, err := s.loadBooks(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Book, len(books))
	for _, book := range books {
		byID[book.ID] = book
	}

	var items []domain.BookResult //nolint:prealloc // rows may lag the candidate set
	for _, sb := range scored {
		book, ok := byID[sb.id]
		if !ok {
			continue
		}

		item := domain.BookResult{
			Book:       book,
			Score:      sb.score,
			Similarity: sb.similarity,
			FuzzyScore: sb.fuzzy,
		}

		if len(vector) > 0 && chunkLimit > 0 {
			chunks, err := s.topChunks(ctx, sb.id, vector, chunkLimit)
			if err != nil {
				return nil, err
			}
			item.Chunks = chunks
		}

		items = append(items, item)
	}

	return items, nil
}

// topChunks returns a book's chunkLimit most similar chunks to the query
// vector.
func (s *bookStore) topChunks(ctx context.Context, bookID string, vector []float32, chunkLimit int) ([]domain.ChunkMatch, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.idx, c.content, vec_cosine(c.embedding, ?) AS sim
		FROM chunks c
		WHERE c.book_id = ? AND c.embedding IS NOT NULL
		ORDER BY sim DESC, c.idx
		LIMIT ?
	`, float32SliceToBytes(vector), bookID, chunkLimit)
	if err != nil {
		return nil, fmt.Errorf("querying top chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.ChunkMatch //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.ChunkMatch
		if err := rows.Scan(&chunk.ID, &chunk.Index, &chunk.Content, &chunk.Similarity); err != nil {
			return nil, fmt.Errorf("scanning top chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top chunks: %w", err)
	}

	return chunks, nil
}
