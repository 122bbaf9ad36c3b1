package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/services"
)

var embedMaxBooks int

var embedCmd = &cobra.Command{
	Use:   "embed [book-id...]",
	Short: "Generate chunk embeddings for catalog books",
	Long: `Chunks book text and computes vector embeddings, the input for the
vector, hybrid and rag search strategies.

With no arguments, backfills books that have no chunks yet, up to
--max-books per run. With book ids, forces regeneration for exactly those
books, replacing any existing chunks.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().IntVar(&embedMaxBooks, "max-books", services.DefaultBackfillMaxBooks,
		"maximum number of books to backfill per run")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if pipeline == nil {
		return errors.New("embedding pipeline not configured")
	}

	if len(args) > 0 {
		processed, err := pipeline.UpdateEmbeddingsForBooks(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("regenerate embeddings: %w", err)
		}
		cmd.Printf("Regenerated embeddings for %d of %d books\n", processed, len(args))
		return nil
	}

	processed, err := pipeline.UpdateMissingEmbeddings(cmd.Context(), embedMaxBooks)
	if err != nil {
		return fmt.Errorf("backfill embeddings: %w", err)
	}
	if processed == 0 {
		cmd.Println("All books already embedded.")
		return nil
	}
	cmd.Printf("Embedded %d books\n", processed)
	return nil
}
