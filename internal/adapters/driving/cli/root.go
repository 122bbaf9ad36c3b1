// Package cli provides the cobra command tree for the Libris CLI.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
	"github.com/custodia-labs/libris/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Injected services. Commands check for nil and fail with a clear message
// rather than panicking.
var (
	searchService driving.SearchService
	pipeline      driving.EmbeddingPipeline
	userStore     driven.UserStore
)

// Services holds the dependencies the command tree operates on.
type Services struct {
	// Search executes queries and recommendations.
	Search driving.SearchService

	// Pipeline regenerates chunk embeddings.
	Pipeline driving.EmbeddingPipeline

	// Users records search logs and resolves reader ids. Optional; without
	// it, --user flags are rejected.
	Users driven.UserStore
}

// SetServices injects the services the commands use. Call before Execute.
func SetServices(s Services) {
	searchService = s.Search
	pipeline = s.Pipeline
	userStore = s.Users
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var verboseFlag bool

// rootCmd is the base command for the libris CLI.
var rootCmd = &cobra.Command{
	Use:   "libris",
	Short: "Search and recommendation engine for a book catalog",
	Long: `Libris searches a book catalog with interchangeable retrieval
strategies (text, vector, fuzzy, hybrid, hybrid-fast, rag) and produces
grounded recommendations from chunk embeddings.

Catalog data lives in a local SQLite database; embedding and completion
providers are configured in ~/.libris/config.toml.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"print pipeline debug output to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
