package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/logger"
)

// Interest vector policy defaults.
const (
	// DefaultSignalLimit bounds each behavioural signal slice.
	DefaultSignalLimit = 5

	// DefaultInterestConcurrency bounds concurrent embedding requests
	// while building the interest vector.
	DefaultInterestConcurrency = 3

	// bookSignalWeight and querySignalWeight weight the two signal
	// groups in the mean. Weights renormalise over present groups.
	bookSignalWeight  = 0.7
	querySignalWeight = 0.3
)

// RecommendForUser resolves the user, builds their interest vector and
// runs a personalised vector search with it. A user without any signals
// yields an empty page: no personalisation available.
func (s *SearchService) RecommendForUser(ctx context.Context, userID string, q domain.BookQuery) (domain.ResultPage, error) {
	if s.users == nil {
		return domain.ResultPage{}, fmt.Errorf("user store unavailable: %w", domain.ErrNotFound)
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.ResultPage{}, fmt.Errorf("resolve user %s: %w", userID, err)
	}

	vector, err := s.buildInterestVector(ctx, user.ID, DefaultSignalLimit)
	if err != nil {
		return domain.ResultPage{}, err
	}
	if len(vector) == 0 {
		logger.Info("No behavioural signals for user %s", user.ID)
		return domain.ResultPage{}, nil
	}

	q.Page = q.Page.Normalise()
	return s.books.SearchVector(ctx, vector, q)
}

// buildInterestVector aggregates the user's recent favourites, last-seen
// books and search history into one weighted mean embedding. Books are
// deduplicated by id across favourites and last-seen, queries by text.
// Individual embedding failures are logged and excluded rather than
// aborting the build.
func (s *SearchService) buildInterestVector(ctx context.Context, userID string, signalLimit int) ([]float32, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if signalLimit <= 0 {
		signalLimit = DefaultSignalLimit
	}

	var (
		wg        sync.WaitGroup
		favorites []domain.Favorite
		lastSeen  []domain.LastSeen
		searches  []domain.SearchLog
		favErr    error
		seenErr   error
		logErr    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		favorites, favErr = s.users.RecentFavorites(ctx, userID, signalLimit)
	}()
	go func() {
		defer wg.Done()
		lastSeen, seenErr = s.users.RecentLastSeen(ctx, userID, signalLimit)
	}()
	go func() {
		defer wg.Done()
		searches, logErr = s.users.RecentSearches(ctx, userID, signalLimit)
	}()
	wg.Wait()

	for _, err := range []error{favErr, seenErr, logErr} {
		if err != nil {
			return nil, fmt.Errorf("load user signals: %w", err)
		}
	}

	// Dedupe books by id, queries by text, preserving recency order.
	seenBooks := make(map[string]bool)
	var bookTexts []string
	for _, f := range favorites {
		if !seenBooks[f.Book.ID] {
			seenBooks[f.Book.ID] = true
			bookTexts = append(bookTexts, f.Book.VectorText())
		}
	}
	for _, l := range lastSeen {
		if !seenBooks[l.Book.ID] {
			seenBooks[l.Book.ID] = true
			bookTexts = append(bookTexts, l.Book.VectorText())
		}
	}

	seenQueries := make(map[string]bool)
	var queryTexts []string
	for _, sl := range searches {
		if sl.QueryText != "" && !seenQueries[sl.QueryText] {
			seenQueries[sl.QueryText] = true
			queryTexts = append(queryTexts, sl.QueryText)
		}
	}

	logger.Debug("Interest signals: %d books, %d queries", len(bookTexts), len(queryTexts))

	bookVectors := s.embedLimited(ctx, bookTexts)
	queryVectors := s.embedLimited(ctx, queryTexts)

	vector := weightedMean([]vectorGroup{
		{vectors: bookVectors, weight: bookSignalWeight},
		{vectors: queryVectors, weight: querySignalWeight},
	})

	return vector, nil
}

// embedLimited embeds texts under a bounded concurrency limiter, dropping
// items whose embedding fails.
func (s *SearchService) embedLimited(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	results := make([][]float32, len(texts))
	sem := make(chan struct{}, DefaultInterestConcurrency)
	var wg sync.WaitGroup

	for i := range texts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			began := time.Now()
			vec, err := s.embedder.Embed(ctx, texts[i])
			s.metrics.EmbeddingLatency(time.Since(began))
			if err != nil {
				logger.Warn("Signal embedding failed: %v", err)
				s.metrics.EmbeddingFailed()
				return
			}
			results[i] = vec
		}(i)
	}
	wg.Wait()

	// Compact out failed slots.
	vectors := results[:0]
	for _, vec := range results {
		if len(vec) > 0 {
			vectors = append(vectors, vec)
		}
	}

	return vectors
}

// vectorGroup is a set of vectors contributing to a weighted mean with a
// single group weight.
type vectorGroup struct {
	vectors [][]float32
	weight  float64
}

// meanVector computes the unweighted element-wise mean. Returns nil for an
// empty input.
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, vec := range vectors {
		for i := 0; i < dim && i < len(vec); i++ {
			sum[i] += float64(vec[i])
		}
	}

	mean := make([]float32, dim)
	for i := range sum {
		mean[i] = float32(sum[i] / float64(len(vectors)))
	}
	return mean
}

// weightedMean combines group means with their weights, renormalising over
// groups that actually contributed vectors. All groups empty yields nil.
func weightedMean(groups []vectorGroup) []float32 {
	dim := 0
	for _, g := range groups {
		if len(g.vectors) > 0 {
			dim = len(g.vectors[0])
			break
		}
	}
	if dim == 0 {
		return nil
	}

	sum := make([]float64, dim)
	totalWeight := 0.0
	for _, g := range groups {
		mean := meanVector(g.vectors)
		if mean == nil {
			continue
		}
		for i := 0; i < dim && i < len(mean); i++ {
			sum[i] += float64(mean[i]) * g.weight
		}
		totalWeight += g.weight
	}
	if totalWeight == 0 {
		return nil
	}

	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / totalWeight)
	}
	return out
}
