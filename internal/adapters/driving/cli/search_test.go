package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
)

func resetSearchFlags() {
	searchType = "text"
	searchLimit = domain.DefaultPageLimit
	searchOffset = 0
	searchJSON = false
	searchUser = ""
	searchCategories = nil
	searchAuthors = nil
	searchPublishers = nil
	searchFrom = ""
	searchTo = ""
	searchSorts = nil
	searchChunks = 0
	searchSimThreshold = 0
	searchFuzzThreshold = 0
	for _, name := range []string{"similarity-threshold", "fuzzy-threshold"} {
		if f := searchCmd.Flags().Lookup(name); f != nil {
			f.Changed = false
		}
	}
}

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetSearchFlags()
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execRoot(t, "search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	search, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execRoot(t, "search", "desert planet")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "2 of 2 matching books")
	assert.Equal(t, "desert planet", search.lastQuery.Text)
	assert.Equal(t, domain.SearchTypeText, search.lastQuery.Type)
}

func TestSearchCmd_TypeFlagSelectsStrategy(t *testing.T) {
	search, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execRoot(t, "search", "--type", "hybrid", "desert planet")

	require.NoError(t, err)
	assert.Equal(t, domain.SearchTypeHybrid, search.lastQuery.Type)
}

func TestSearchCmd_RejectsUnknownType(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execRoot(t, "search", "--type", "quantum", "query")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown search type")
}

func TestSearchCmd_FiltersAndPaging(t *testing.T) {
	search, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execRoot(t, "search",
		"--category", "cat-sf", "--category", "cat-fantasy",
		"--author", "a1",
		"--from", "1960-01-01", "--to", "1990-12-31",
		"-n", "5", "--offset", "10",
		"query")

	require.NoError(t, err)
	q := search.lastQuery
	assert.Equal(t, []string{"cat-sf", "cat-fantasy"}, q.Filters.CategoryIDs)
	assert.Equal(t, []string{"a1"}, q.Filters.AuthorIDs)
	require.NotNil(t, q.Filters.PublishedRange)
	assert.Equal(t, time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), q.Filters.PublishedRange.From)
	assert.Equal(t, 5, q.Page.Limit)
	assert.Equal(t, 10, q.Page.Offset)
}

func TestSearchCmd_RejectsBadDate(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execRoot(t, "search", "--from", "not-a-date", "query")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --from date")
}

func TestSearchCmd_ThresholdOnlyWhenSet(t *testing.T) {
	search, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execRoot(t, "search", "query")
	require.NoError(t, err)
	assert.Nil(t, search.lastQuery.SimilarityThreshold)

	_, err = execRoot(t, "search", "--type", "vector", "--similarity-threshold", "0.5", "query")
	require.NoError(t, err)
	require.NotNil(t, search.lastQuery.SimilarityThreshold)
	assert.Equal(t, 0.5, *search.lastQuery.SimilarityThreshold)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execRoot(t, "search", "--json", "query")

	require.NoError(t, err)
	assert.Contains(t, out, "\"Total\": 2")
	assert.Contains(t, out, "\"Title\": \"Dune\"")
}

func TestSearchCmd_LogsSearchForUser(t *testing.T) {
	_, _, users, cleanup := setupTestServices()
	defer cleanup()

	_, err := execRoot(t, "search", "--user", "u1", "--type", "fuzzy", "dunes")

	require.NoError(t, err)
	require.Len(t, users.logged, 1)
	log := users.logged[0]
	assert.Equal(t, "u1", log.UserID)
	assert.Equal(t, domain.SearchTypeFuzzy, log.Type)
	assert.Equal(t, "dunes", log.QueryText)
	assert.Equal(t, 2, log.ResultsCount)
}

func TestSearchCmd_LogFailureDoesNotFailSearch(t *testing.T) {
	_, _, users, cleanup := setupTestServices()
	defer cleanup()
	users.logErr = assert.AnError

	out, err := execRoot(t, "search", "--user", "u1", "query")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()
	searchService = nil

	_, err := execRoot(t, "search", "query")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestParseSortSpecs(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []domain.SortSpec
		wantErr bool
	}{
		{
			name:  "bare field defaults ascending",
			input: []string{"title"},
			want:  []domain.SortSpec{{Field: domain.SortByTitle, Direction: domain.SortAsc}},
		},
		{
			name:  "explicit direction",
			input: []string{"publishedAt:desc"},
			want:  []domain.SortSpec{{Field: domain.SortByPublishedAt, Direction: domain.SortDesc}},
		},
		{
			name:  "multiple keys keep order",
			input: []string{"authors", "title:desc"},
			want: []domain.SortSpec{
				{Field: domain.SortByAuthor, Direction: domain.SortAsc},
				{Field: domain.SortByTitle, Direction: domain.SortDesc},
			},
		},
		{
			name:    "unknown field",
			input:   []string{"isbn"},
			wantErr: true,
		},
		{
			name:    "unknown direction",
			input:   []string{"title:sideways"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSortSpecs(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
