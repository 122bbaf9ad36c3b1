package sqlite

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// cond is a single SQL predicate with its bound arguments. Filter
// conditions compose by appending cond values; argument order follows
// predicate order with no manual placeholder bookkeeping.
type cond struct {
	expr string
	args []any
}

// buildFilters translates a filter spec into predicates on the books
// table (aliased b). An empty spec yields no predicates: no constraint,
// never "exclude all".
func buildFilters(f domain.Filters) []cond {
	var conds []cond

	if len(f.CategoryIDs) > 0 {
		conds = append(conds, cond{
			expr: fmt.Sprintf(
				"b.id IN (SELECT book_id FROM book_categories WHERE category_id IN (%s))",
				placeholders(len(f.CategoryIDs))),
			args: toAnySlice(f.CategoryIDs),
		})
	}

	if len(f.AuthorIDs) > 0 {
		conds = append(conds, cond{
			expr: fmt.Sprintf(
				"b.id IN (SELECT book_id FROM book_authors WHERE author_id IN (%s))",
				placeholders(len(f.AuthorIDs))),
			args: toAnySlice(f.AuthorIDs),
		})
	}

	if len(f.PublisherIDs) > 0 {
		conds = append(conds, cond{
			expr: fmt.Sprintf("b.publisher_id IN (%s)", placeholders(len(f.PublisherIDs))),
			args: toAnySlice(f.PublisherIDs),
		})
	}

	if r := f.PublishedRange; r != nil {
		if !r.From.IsZero() {
			conds = append(conds, cond{expr: "b.published_at >= ?", args: []any{r.From}})
		}
		if !r.To.IsZero() {
			conds = append(conds, cond{expr: "b.published_at <= ?", args: []any{r.To}})
		}
	}

	return conds
}

// andClause renders conditions as an AND-joined fragment prefixed with
// " AND ", suitable for appending to an existing WHERE clause. No
// conditions render as the empty string.
func andClause(conds []cond) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}

	exprs := make([]string, len(conds))
	var args []any
	for i, c := range conds {
		exprs[i] = c.expr
		args = append(args, c.args...)
	}

	return " AND " + strings.Join(exprs, " AND "), args
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// sortClause renders the ORDER BY body for text search. Score-ordered
// strategies ignore sort specs; text search defaults to title ascending.
func sortClause(specs []domain.SortSpec) string {
	if len(specs) == 0 {
		return "b.title COLLATE NOCASE ASC"
	}

	var parts []string
	for _, spec := range specs {
		col, ok := sortColumn(spec.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if spec.Direction == domain.SortDesc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		return "b.title COLLATE NOCASE ASC"
	}

	return strings.Join(parts, ", ")
}

func sortColumn(field domain.SortField) (string, bool) {
	switch field {
	case domain.SortByTitle:
		return "b.title COLLATE NOCASE", true
	case domain.SortByPublishedAt:
		return "b.published_at", true
	case domain.SortByAuthor:
		return "(SELECT MIN(a.name) FROM book_authors ba JOIN authors a ON a.id = ba.author_id WHERE ba.book_id = b.id) COLLATE NOCASE", true
	case domain.SortByCategory:
		return "(SELECT MIN(c.name) FROM book_categories bc JOIN categories c ON c.id = bc.category_id WHERE bc.book_id = b.id) COLLATE NOCASE", true
	case domain.SortByPublisher:
		return "(SELECT p.name FROM publishers p WHERE p.id = b.publisher_id) COLLATE NOCASE", true
	default:
		return "", false
	}
}
