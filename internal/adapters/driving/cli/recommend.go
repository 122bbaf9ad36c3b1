package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/domain"
)

var (
	recommendUser  string
	recommendLimit int
	recommendJSON  bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [query]",
	Short: "Recommend books from the catalog",
	Long: `Recommends books, two ways.

With a query, runs the grounded recommendation pipeline: a relaxed vector
search gathers candidate books, their best chunks form the context for a
completion call, and each recommendation carries a one-sentence reason tied
to the excerpts. When no completion provider is configured the plain
vector results are returned.

With --user and no query, builds an interest profile from the user's recent
favourites, views and searches and returns books semantically close to it.
A user with no recorded activity gets an empty result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().StringVarP(&recommendUser, "user", "u", "", "personalise for this user id")
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", domain.DefaultPageLimit, "maximum number of results")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	q := domain.BookQuery{
		Page: domain.Page{Limit: recommendLimit},
	}

	if len(args) == 0 {
		if recommendUser == "" {
			return errors.New("provide a query, or --user for personalised recommendations")
		}

		page, err := searchService.RecommendForUser(cmd.Context(), recommendUser, q)
		if err != nil {
			return fmt.Errorf("personalised recommendation failed: %w", err)
		}
		if len(page.Items) == 0 {
			cmd.Println("No recorded activity to recommend from yet.")
			return nil
		}
		if recommendJSON {
			return outputPageJSON(cmd, page)
		}
		return outputPageTable(cmd, page)
	}

	q.Text = args[0]
	q.Type = domain.SearchTypeRAG

	res, err := searchService.Recommend(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	if recommendJSON {
		return outputRecommendJSON(cmd, res)
	}
	return outputRecommendTable(cmd, res)
}

func outputRecommendJSON(cmd *cobra.Command, res domain.RecommendResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputRecommendTable(cmd *cobra.Command, res domain.RecommendResult) error {
	if len(res.Recommended) == 0 {
		cmd.Println("No grounded recommendations; showing closest matches.")
		cmd.Println()
		return outputPageTable(cmd, res.Page)
	}

	cmd.Println("Recommended:")
	cmd.Println()
	for i, item := range res.Recommended {
		cmd.Printf("  [%d] %s\n", i+1, item.Book.Title)
		if names := authorNames(item.Book); names != "" {
			cmd.Printf("      By: %s\n", names)
		}
		if item.Reason != "" {
			cmd.Printf("      Why: %s\n", item.Reason)
		}
		cmd.Println()
	}
	cmd.Printf("%d recommendations from %d candidates\n", len(res.Recommended), res.Page.Total)

	return nil
}
