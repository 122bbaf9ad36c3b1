package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

func ragCandidatePage() domain.ResultPage {
	return domain.ResultPage{
		Items: []domain.BookResult{
			{
				Book:       domain.Book{ID: "b1", Title: "Dune"},
				Similarity: 0.9,
				Chunks: []domain.ChunkMatch{
					{ID: "c1", Index: 0, Content: "Spice and sandworms.", Similarity: 0.9},
					{ID: "c2", Index: 1, Content: "Desert politics.", Similarity: 0.6},
				},
			},
			{
				Book:       domain.Book{ID: "b2", Title: "Hyperion"},
				Similarity: 0.7,
				Chunks: []domain.ChunkMatch{
					{ID: "c3", Index: 0, Content: "Pilgrims and the Shrike.", Similarity: 0.7},
				},
			},
		},
		Total: 2,
	}
}

func TestRecommendGroundedRecommendations(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()
	llm := &mockLLM{response: `[{"id":"b2","reason":"Epic pilgrimage structure."}]`}

	svc := NewSearchService(store, newMockEmbedder(4), WithLLMService(llm))

	res, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics", Type: domain.SearchTypeRAG})
	require.NoError(t, err)

	assert.Equal(t, ragCandidatePage(), res.Page)
	require.Len(t, res.Recommended, 1)
	assert.Equal(t, "b2", res.Recommended[0].Book.ID)
	assert.Equal(t, "Epic pilgrimage structure.", res.Recommended[0].Reason)

	// The relaxed candidate search carries the RAG defaults.
	require.NotNil(t, store.lastQuery.SimilarityThreshold)
	assert.Equal(t, DefaultRAGSimilarityThreshold, *store.lastQuery.SimilarityThreshold)
	assert.Equal(t, DefaultRAGChunkLoadLimit, store.lastQuery.ChunkLoadLimit)
}

func TestRecommendMalformedOutputYieldsPageOnly(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()
	llm := &mockLLM{response: "I would recommend Hyperion because it is great."}

	svc := NewSearchService(store, newMockEmbedder(4), WithLLMService(llm))

	res, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics"})
	require.NoError(t, err)
	assert.Equal(t, ragCandidatePage(), res.Page)
	assert.Empty(t, res.Recommended)
}

func TestRecommendProviderErrorDegradesToPage(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()
	llm := &mockLLM{err: errors.New("upstream timeout")}

	svc := NewSearchService(store, newMockEmbedder(4), WithLLMService(llm))

	res, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics"})
	require.NoError(t, err)
	assert.Equal(t, ragCandidatePage(), res.Page)
	assert.Empty(t, res.Recommended)
}

func TestRecommendDropsUnknownIDs(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()
	llm := &mockLLM{response: `[{"id":"b1","reason":"Classic."},{"id":"invented","reason":"Hallucinated."}]`}

	svc := NewSearchService(store, newMockEmbedder(4), WithLLMService(llm))

	res, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics"})
	require.NoError(t, err)
	require.Len(t, res.Recommended, 1)
	assert.Equal(t, "b1", res.Recommended[0].Book.ID)
}

func TestRecommendWithoutLLMReturnsPage(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()

	svc := NewSearchService(store, newMockEmbedder(4))

	res, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics"})
	require.NoError(t, err)
	assert.Equal(t, ragCandidatePage(), res.Page)
	assert.Empty(t, res.Recommended)
}

func TestRecommendSkipsLLMWithoutChunks(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = domain.ResultPage{
		Items: []domain.BookResult{{Book: domain.Book{ID: "b1", Title: "Dune"}}},
		Total: 1,
	}
	llm := &mockLLM{response: `[{"id":"b1","reason":"x"}]`}

	svc := NewSearchService(store, newMockEmbedder(4), WithLLMService(llm))

	res, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics"})
	require.NoError(t, err)
	assert.Empty(t, res.Recommended)
	assert.Empty(t, llm.lastUser, "no chunks means no completion call")
}

func TestRecommendContextOrderAndPrompt(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()
	llm := &mockLLM{response: `[]`}

	svc := NewSearchService(store, newMockEmbedder(4), WithLLMService(llm))

	_, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics"})
	require.NoError(t, err)

	assert.Equal(t, ragSystemPrompt, llm.lastSystem)
	assert.Contains(t, llm.lastUser, "Reader query: space epics")

	// Highest-similarity chunk first, regardless of owning book order.
	first := strings.Index(llm.lastUser, "Spice and sandworms.")
	second := strings.Index(llm.lastUser, "Pilgrims and the Shrike.")
	third := strings.Index(llm.lastUser, "Desert politics.")
	require.True(t, first >= 0 && second >= 0 && third >= 0)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestRecommendPromptStoreOverridesSystemPrompt(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()
	llm := &mockLLM{response: `[]`}
	prompts := &mockPromptStore{prompts: map[string]string{
		driven.PromptRecommend: "Recommend cookbooks only.",
	}}

	svc := NewSearchService(store, newMockEmbedder(4),
		WithLLMService(llm), WithPromptStore(prompts))

	_, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics"})
	require.NoError(t, err)

	assert.Equal(t, "Recommend cookbooks only.", llm.lastSystem)
}

func TestRecommendPromptStoreFailureFallsBack(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()
	llm := &mockLLM{response: `[]`}
	prompts := &mockPromptStore{err: errors.New("disk gone")}

	svc := NewSearchService(store, newMockEmbedder(4),
		WithLLMService(llm), WithPromptStore(prompts))

	_, err := svc.Recommend(context.Background(), domain.BookQuery{Text: "space epics"})
	require.NoError(t, err)

	assert.Equal(t, ragSystemPrompt, llm.lastSystem)
}

func TestSearchRAGAnnotatesPage(t *testing.T) {
	store := newMockBookStore()
	store.vectorPage = ragCandidatePage()
	llm := &mockLLM{response: `[{"id":"b2","reason":"Frame narrative."}]`}

	svc := NewSearchService(store, newMockEmbedder(4), WithLLMService(llm))

	page, err := svc.Search(context.Background(), domain.BookQuery{Text: "space epics", Type: domain.SearchTypeRAG})
	require.NoError(t, err)

	// Membership and order are the vector page's; only reasons change.
	require.Len(t, page.Items, 2)
	assert.Equal(t, "b1", page.Items[0].Book.ID)
	assert.Empty(t, page.Items[0].Reason)
	assert.Equal(t, "b2", page.Items[1].Book.ID)
	assert.Equal(t, "Frame narrative.", page.Items[1].Reason)
}

func TestParseRecommendationsStripsFences(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   int
	}{
		{"plain array", `[{"id":"a","reason":"r"}]`, 1},
		{"json fence", "```json\n[{\"id\":\"a\",\"reason\":\"r\"}]\n```", 1},
		{"bare fence", "```\n[{\"id\":\"a\",\"reason\":\"r\"}]\n```", 1},
		{"surrounding whitespace", "  \n[{\"id\":\"a\",\"reason\":\"r\"}]\n  ", 1},
		{"prose", "Sure! Here are my picks.", 0},
		{"object instead of array", `{"id":"a"}`, 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, parseRecommendations(tt.answer), tt.want)
		})
	}
}

func TestBuildRAGContextBounds(t *testing.T) {
	items := []domain.BookResult{{
		Book: domain.Book{ID: "b1", Title: "Big"},
		Chunks: []domain.ChunkMatch{
			{Index: 0, Content: strings.Repeat("a", 9000), Similarity: 0.9},
		},
	}}

	out := buildRAGContext(items, DefaultRAGTotalChunks)
	assert.Len(t, out, MaxRAGContextChars)
}

func TestBuildRAGContextTruncatesOnRuneBoundary(t *testing.T) {
	items := []domain.BookResult{{
		Book: domain.Book{ID: "b1", Title: "Big"},
		Chunks: []domain.ChunkMatch{
			{Index: 0, Content: strings.Repeat("é", 9000), Similarity: 0.9},
		},
	}}

	out := buildRAGContext(items, DefaultRAGTotalChunks)
	assert.LessOrEqual(t, len(out), MaxRAGContextChars)
	assert.True(t, utf8.ValidString(out), "the cut must never split a rune")
}

func TestBuildRAGContextTotalLimit(t *testing.T) {
	var items []domain.BookResult
	for i := 0; i < 5; i++ {
		items = append(items, domain.BookResult{
			Book: domain.Book{ID: "b", Title: "T"},
			Chunks: []domain.ChunkMatch{
				{Index: i, Content: "c", Similarity: float64(i)},
				{Index: i + 100, Content: "c", Similarity: float64(i) / 2},
			},
		})
	}

	out := buildRAGContext(items, 3)
	assert.Equal(t, 3, strings.Count(out, "[book "))
}

func TestBuildRAGContextEmpty(t *testing.T) {
	assert.Empty(t, buildRAGContext(nil, 10))
	assert.Empty(t, buildRAGContext([]domain.BookResult{{Book: domain.Book{ID: "b"}}}, 10))
}
