// Package ai provides factory functions for creating AI service adapters
// from configuration.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	ollamaembed "github.com/custodia-labs/libris/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/libris/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/libris/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/libris/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/libris/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService builds the embedding provider named by
// "embedding.provider". No provider configured returns (nil, nil): vector
// strategies are simply unavailable, not broken.
func CreateEmbeddingService(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	switch provider := cfg.GetString("embedding.provider"); provider {
	case "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            apiKey(cfg, "embedding.api_key", "OPENAI_API_KEY"),
			BaseURL:           cfg.GetString("embedding.base_url"),
			Model:             cfg.GetString("embedding.model"),
			Dimensions:        cfg.GetInt("embedding.dimensions"),
			RequestsPerMinute: cfg.GetInt("embedding.requests_per_minute"),
		})
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		}), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// CreateLLMService builds the completion provider named by "llm.provider".
// No provider configured returns (nil, nil): recommendation degrades to
// plain vector search.
func CreateLLMService(cfg driven.ConfigStore) (driven.LLMService, error) {
	switch provider := cfg.GetString("llm.provider"); provider {
	case "openai":
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  apiKey(cfg, "llm.api_key", "OPENAI_API_KEY"),
			BaseURL: cfg.GetString("llm.base_url"),
			Model:   cfg.GetString("llm.model"),
		})
	case "anthropic":
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  apiKey(cfg, "llm.api_key", "ANTHROPIC_API_KEY"),
			BaseURL: cfg.GetString("llm.base_url"),
			Model:   cfg.GetString("llm.model"),
		})
	case "ollama":
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: cfg.GetString("llm.base_url"),
			Model:   cfg.GetString("llm.model"),
		}), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// CreateAndValidateEmbeddingService builds the embedding provider and
// validates connectivity with a bounded ping.
func CreateAndValidateEmbeddingService(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(cfg)
	if err != nil || svc == nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable: %w", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService builds the completion provider and validates
// connectivity with a bounded ping.
func CreateAndValidateLLMService(cfg driven.ConfigStore) (driven.LLMService, error) {
	svc, err := CreateLLMService(cfg)
	if err != nil || svc == nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable: %w", domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// apiKey reads a credential from config, falling back to the environment.
func apiKey(cfg driven.ConfigStore, configKey, envVar string) string {
	if key := cfg.GetString(configKey); key != "" {
		return key
	}
	return os.Getenv(envVar)
}
