package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchTypeValid(t *testing.T) {
	tests := []struct {
		name  string
		typ   SearchType
		valid bool
	}{
		{"text", SearchTypeText, true},
		{"vector", SearchTypeVector, true},
		{"fuzzy", SearchTypeFuzzy, true},
		{"hybrid", SearchTypeHybrid, true},
		{"hybrid-fast", SearchTypeHybridFast, true},
		{"rag", SearchTypeRAG, true},
		{"empty", SearchType(""), false},
		{"unknown", SearchType("semantic"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.typ.Valid())
		})
	}
}

func TestSearchTypeNeedsVector(t *testing.T) {
	assert.True(t, SearchTypeVector.NeedsVector())
	assert.True(t, SearchTypeHybrid.NeedsVector())
	assert.True(t, SearchTypeHybridFast.NeedsVector())
	assert.True(t, SearchTypeRAG.NeedsVector())
	assert.False(t, SearchTypeText.NeedsVector())
	assert.False(t, SearchTypeFuzzy.NeedsVector())
}

func TestFiltersEmpty(t *testing.T) {
	assert.True(t, Filters{}.Empty())
	assert.False(t, Filters{CategoryIDs: []string{"c1"}}.Empty())
	assert.False(t, Filters{AuthorIDs: []string{"a1"}}.Empty())
	assert.False(t, Filters{PublisherIDs: []string{"p1"}}.Empty())
	assert.False(t, Filters{PublishedRange: &DateRange{
		From: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
	}}.Empty())
}

func TestPageNormalise(t *testing.T) {
	p := Page{}.Normalise()
	assert.Equal(t, DefaultPageLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = Page{Limit: 25, Offset: -3}.Normalise()
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = Page{Limit: 5, Offset: 10}.Normalise()
	assert.Equal(t, Page{Limit: 5, Offset: 10}, p)
}

func TestBookVectorText(t *testing.T) {
	b := Book{Title: "Dune", Description: "A desert planet"}
	assert.Equal(t, "Dune A desert planet", b.VectorText())

	b = Book{Title: "Dune"}
	assert.Equal(t, "Dune", b.VectorText())
}
