package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/logger"
)

var (
	searchType          string
	searchLimit         int
	searchOffset        int
	searchJSON          bool
	searchUser          string
	searchCategories    []string
	searchAuthors       []string
	searchPublishers    []string
	searchFrom          string
	searchTo            string
	searchSorts         []string
	searchSimThreshold  float64
	searchFuzzThreshold float64
	searchChunks        int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the book catalog",
	Long: `Searches the catalog with the selected retrieval strategy.

Strategies:
  text        substring match across titles, descriptions, authors,
              categories and chunk content, with sorting
  vector      semantic search over chunk embeddings
  fuzzy       trigram string similarity, typo-tolerant
  hybrid      0.6 vector + 0.4 fuzzy, best quality
  hybrid-fast 0.6 vector + 0.4 word-hit heuristic, cheaper
  rag         vector search plus grounded recommendations`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "text", "retrieval strategy")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultPageLimit, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVarP(&searchUser, "user", "u", "", "record this search in the user's history")
	searchCmd.Flags().StringArrayVar(&searchCategories, "category", nil, "filter by category id (repeatable)")
	searchCmd.Flags().StringArrayVar(&searchAuthors, "author", nil, "filter by author id (repeatable)")
	searchCmd.Flags().StringArrayVar(&searchPublishers, "publisher", nil, "filter by publisher id (repeatable)")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "published on or after (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "published on or before (YYYY-MM-DD)")
	searchCmd.Flags().StringArrayVar(&searchSorts, "sort", nil, "sort key as field[:asc|desc], text search only (repeatable)")
	searchCmd.Flags().Float64Var(&searchSimThreshold, "similarity-threshold", 0, "minimum chunk similarity for vector search")
	searchCmd.Flags().Float64Var(&searchFuzzThreshold, "fuzzy-threshold", 0, "minimum string similarity for fuzzy search")
	searchCmd.Flags().IntVar(&searchChunks, "chunks", 0, "attach the top N matching chunks per book")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	q, err := buildSearchQuery(cmd, args[0])
	if err != nil {
		return err
	}

	began := time.Now()
	page, err := searchService.Search(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	elapsed := time.Since(began)

	logSearch(cmd, q, page, elapsed)

	if searchJSON {
		return outputPageJSON(cmd, page)
	}
	return outputPageTable(cmd, page)
}

// buildSearchQuery assembles a BookQuery from the command flags.
func buildSearchQuery(cmd *cobra.Command, text string) (domain.BookQuery, error) {
	q := domain.BookQuery{
		Text: text,
		Type: domain.SearchType(searchType),
		Filters: domain.Filters{
			CategoryIDs:  searchCategories,
			AuthorIDs:    searchAuthors,
			PublisherIDs: searchPublishers,
		},
		Page:           domain.Page{Limit: searchLimit, Offset: searchOffset},
		ChunkLoadLimit: searchChunks,
	}

	if !q.Type.Valid() {
		return q, fmt.Errorf("unknown search type %q", searchType)
	}

	dateRange, err := parseDateRange(searchFrom, searchTo)
	if err != nil {
		return q, err
	}
	q.Filters.PublishedRange = dateRange

	sorts, err := parseSortSpecs(searchSorts)
	if err != nil {
		return q, err
	}
	q.Sort = sorts

	if cmd.Flags().Changed("similarity-threshold") {
		threshold := searchSimThreshold
		q.SimilarityThreshold = &threshold
	}
	if cmd.Flags().Changed("fuzzy-threshold") {
		threshold := searchFuzzThreshold
		q.FuzzyThreshold = &threshold
	}

	return q, nil
}

// logSearch records the executed search in the user's history. Best effort;
// a logging failure never fails the search itself.
func logSearch(cmd *cobra.Command, q domain.BookQuery, page domain.ResultPage, elapsed time.Duration) {
	if searchUser == "" {
		return
	}
	if userStore == nil {
		logger.Warn("User store not configured, search not logged")
		return
	}

	err := userStore.LogSearch(cmd.Context(), domain.SearchLog{
		UserID:       searchUser,
		Type:         q.Type,
		QueryText:    q.Text,
		ResultsCount: page.Total,
		ElapsedMS:    elapsed.Milliseconds(),
	})
	if err != nil {
		logger.Warn("Failed to log search for user %s: %v", searchUser, err)
	}
}

// parseDateRange converts --from/--to into an inclusive range.
func parseDateRange(from, to string) (*domain.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	r := &domain.DateRange{}
	var err error
	if from != "" {
		if r.From, err = time.Parse("2006-01-02", from); err != nil {
			return nil, fmt.Errorf("invalid --from date %q: %w", from, err)
		}
	}
	if to != "" {
		if r.To, err = time.Parse("2006-01-02", to); err != nil {
			return nil, fmt.Errorf("invalid --to date %q: %w", to, err)
		}
	}
	return r, nil
}

// sortFields maps flag names to sortable fields.
var sortFields = map[string]domain.SortField{
	"title":       domain.SortByTitle,
	"publishedAt": domain.SortByPublishedAt,
	"authors":     domain.SortByAuthor,
	"categories":  domain.SortByCategory,
	"publishers":  domain.SortByPublisher,
}

// parseSortSpecs converts --sort values of the form "field" or
// "field:asc|desc" into sort specs.
func parseSortSpecs(specs []string) ([]domain.SortSpec, error) {
	var out []domain.SortSpec
	for _, spec := range specs {
		field, dir, _ := strings.Cut(spec, ":")
		sortField, ok := sortFields[field]
		if !ok {
			return nil, fmt.Errorf("unknown sort field %q", field)
		}

		direction := domain.SortAsc
		switch strings.ToLower(dir) {
		case "", "asc":
		case "desc":
			direction = domain.SortDesc
		default:
			return nil, fmt.Errorf("unknown sort direction %q", dir)
		}

		out = append(out, domain.SortSpec{Field: sortField, Direction: direction})
	}
	return out, nil
}

func outputPageJSON(cmd *cobra.Command, page domain.ResultPage) error {
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputPageTable(cmd *cobra.Command, page domain.ResultPage) error {
	if len(page.Items) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, item := range page.Items {
		cmd.Printf("  [%d] %s (%.2f)\n", searchOffset+i+1, item.Book.Title, item.Score)
		if names := authorNames(item.Book); names != "" {
			cmd.Printf("      By: %s\n", names)
		}
		if item.Reason != "" {
			cmd.Printf("      Why: %s\n", item.Reason)
		}
		for _, chunk := range item.Chunks {
			cmd.Printf("      > %s (%.2f)\n", snippet(chunk.Content, 120), chunk.Similarity)
		}
		cmd.Println()
	}
	cmd.Printf("%d of %d matching books\n", len(page.Items), page.Total)

	return nil
}

func authorNames(book domain.Book) string {
	names := make([]string, len(book.Authors))
	for i, a := range book.Authors {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// snippet truncates s to at most n characters for single-line display.
func snippet(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
