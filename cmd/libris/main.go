// Command libris is the catalog search and recommendation CLI.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/libris/internal/adapters/driven/ai"
	"github.com/custodia-labs/libris/internal/adapters/driven/config/file"
	"github.com/custodia-labs/libris/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/libris/internal/adapters/driving/cli"
	"github.com/custodia-labs/libris/internal/core/services"
	"github.com/custodia-labs/libris/internal/logger"
)

// version is injected at build time via -ldflags "-X main.version=...".
var version = ""

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer store.Close()

	embedder, err := ai.CreateEmbeddingService(cfg)
	if err != nil {
		return err
	}
	if embedder != nil {
		defer embedder.Close()
	} else {
		logger.Info("No embedding provider configured; vector strategies disabled")
	}

	llm, err := ai.CreateLLMService(cfg)
	if err != nil {
		return err
	}
	if llm != nil {
		defer llm.Close()
	} else {
		logger.Info("No completion provider configured; recommendations degrade to vector search")
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	books := store.BookStore()
	users := store.UserStore()

	searchSvc := services.NewSearchService(books, embedder,
		services.WithUserStore(users),
		services.WithLLMService(llm),
		services.WithPromptStore(prompts),
	)

	svcs := cli.Services{
		Search: searchSvc,
		Users:  users,
	}
	// A typed nil pipeline must not reach the interface field.
	if embedder != nil {
		svcs.Pipeline = services.NewEmbedderService(books, embedder)
	}

	cli.SetVersion(version)
	cli.SetServices(svcs)

	return cli.Execute()
}
