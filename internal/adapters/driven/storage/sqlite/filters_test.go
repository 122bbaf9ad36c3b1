package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
)

func TestBuildFiltersEmptySpec(t *testing.T) {
	conds := buildFilters(domain.Filters{})
	assert.Empty(t, conds, "empty spec means no constraint")

	clause, args := andClause(conds)
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestBuildFiltersArgOrderFollowsPredicateOrder(t *testing.T) {
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	conds := buildFilters(domain.Filters{
		CategoryIDs:    []string{"c1", "c2"},
		AuthorIDs:      []string{"a1"},
		PublisherIDs:   []string{"p1"},
		PublishedRange: &domain.DateRange{From: from, To: to},
	})
	require.Len(t, conds, 5)

	clause, args := andClause(conds)
	assert.Contains(t, clause, "book_categories")
	assert.Contains(t, clause, "book_authors")
	assert.Contains(t, clause, "b.publisher_id IN (?)")
	assert.Equal(t, []any{"c1", "c2", "a1", "p1", from, to}, args)
}

func TestBuildFiltersOpenEndedRange(t *testing.T) {
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	conds := buildFilters(domain.Filters{PublishedRange: &domain.DateRange{From: from}})
	require.Len(t, conds, 1)
	assert.Equal(t, "b.published_at >= ?", conds[0].expr)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestSortClauseDefaultsToTitle(t *testing.T) {
	assert.Equal(t, "b.title COLLATE NOCASE ASC", sortClause(nil))
	assert.Equal(t, "b.title COLLATE NOCASE ASC",
		sortClause([]domain.SortSpec{{Field: "bogus"}}))
}

func TestSortClauseMultipleKeys(t *testing.T) {
	clause := sortClause([]domain.SortSpec{
		{Field: domain.SortByPublishedAt, Direction: domain.SortDesc},
		{Field: domain.SortByTitle, Direction: domain.SortAsc},
	})
	assert.Equal(t, "b.published_at DESC, b.title COLLATE NOCASE ASC", clause)
}
