package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
)

func TestSearchUnsupportedType(t *testing.T) {
	svc := NewSearchService(newMockBookStore(), newMockEmbedder(4))

	_, err := svc.Search(context.Background(), domain.BookQuery{Type: "nope", Text: "q"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedSearchType)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchDispatchesByType(t *testing.T) {
	tests := []struct {
		name       string
		typ        domain.SearchType
		wantVector bool
	}{
		{"text", domain.SearchTypeText, false},
		{"vector", domain.SearchTypeVector, true},
		{"fuzzy", domain.SearchTypeFuzzy, false},
		{"hybrid", domain.SearchTypeHybrid, true},
		{"hybrid-fast", domain.SearchTypeHybridFast, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockBookStore()
			embedder := newMockEmbedder(4)
			svc := NewSearchService(store, embedder)

			_, err := svc.Search(context.Background(), domain.BookQuery{
				Type: tt.typ,
				Text: "space opera",
			})
			require.NoError(t, err)

			require.Len(t, store.strategiesAsked, 1)
			assert.Equal(t, tt.typ, store.strategiesAsked[0])
			if tt.wantVector {
				assert.Len(t, store.lastVector, 4)
			} else {
				assert.Nil(t, store.lastVector)
			}
		})
	}
}

func TestSearchVectorWithoutEmbedder(t *testing.T) {
	svc := NewSearchService(newMockBookStore(), nil)

	_, err := svc.Search(context.Background(), domain.BookQuery{
		Type: domain.SearchTypeVector,
		Text: "anything",
	})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSearchVectorWithEmptyQueryText(t *testing.T) {
	svc := NewSearchService(newMockBookStore(), newMockEmbedder(4))

	_, err := svc.Search(context.Background(), domain.BookQuery{
		Type: domain.SearchTypeVector,
		Text: "   ",
	})

	assert.ErrorIs(t, err, domain.ErrMissingQueryVector)
}

func TestSearchQueryEmbedFailureIsReported(t *testing.T) {
	embedder := newMockEmbedder(4)
	embedder.embedFn = func(string) ([]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	svc := NewSearchService(newMockBookStore(), embedder)

	_, err := svc.Search(context.Background(), domain.BookQuery{
		Type: domain.SearchTypeVector,
		Text: "dune",
	})

	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestSearchNormalisesPage(t *testing.T) {
	store := newMockBookStore()
	svc := NewSearchService(store, newMockEmbedder(4))

	_, err := svc.Search(context.Background(), domain.BookQuery{
		Type: domain.SearchTypeText,
		Text: "dune",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultPageLimit, store.lastQuery.Page.Limit)
	assert.Equal(t, 0, store.lastQuery.Page.Offset)
}

func TestSearchPassesThroughResults(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = domain.ResultPage{
		Items: []domain.BookResult{{Book: domain.Book{ID: "b1", Title: "Dune"}, Similarity: 0.5}},
		Total: 1,
	}
	svc := NewSearchService(store, newMockEmbedder(4))

	threshold := 0.35
	page, err := svc.Search(context.Background(), domain.BookQuery{
		Type:                domain.SearchTypeVector,
		Text:                "desert planet",
		SimilarityThreshold: &threshold,
	})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, "b1", page.Items[0].Book.ID)
	assert.Equal(t, 1, page.Total)
	require.NotNil(t, store.lastQuery.SimilarityThreshold)
	assert.InDelta(t, 0.35, *store.lastQuery.SimilarityThreshold, 1e-9)
}

func TestGetBookNotFound(t *testing.T) {
	svc := NewSearchService(newMockBookStore(), nil)

	_, err := svc.GetBook(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
