package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/logger"
)

// RAG policy defaults. Fixed constants carried over from the source
// system; configurable policy, not tuned invariants.
const (
	// DefaultRAGSimilarityThreshold relaxes the candidate vector search.
	DefaultRAGSimilarityThreshold = 0.35

	// DefaultRAGChunkLoadLimit is the number of top chunks attached per
	// candidate book.
	DefaultRAGChunkLoadLimit = 3

	// DefaultRAGTotalChunks bounds the context globally, not per book.
	DefaultRAGTotalChunks = 10

	// MaxRAGContextChars hard-truncates the assembled context to respect
	// provider input limits.
	MaxRAGContextChars = 8000
)

const ragSystemPrompt = `You are a book recommendation engine for a library catalog.
You are given a reader's query and excerpts from candidate books.
Recommend only books that appear in the excerpts.
Respond with ONLY a JSON array of objects of the form {"id": "<book id>", "reason": "<one sentence>"}.
Do not include any other text.`

// recommendation mirrors the JSON objects the provider must return.
type recommendation struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// taggedChunk is a candidate chunk annotated with its owning book.
type taggedChunk struct {
	bookID    string
	bookTitle string
	chunk     domain.ChunkMatch
}

// Recommend runs the RAG pipeline: a relaxed vector search gathers
// candidate books with supporting passages, the globally top-ranked
// chunks form a bounded context, and one constrained completion call
// yields recommendations that are cross-referenced against the candidate
// set. Provider errors and malformed output degrade to the plain vector
// page; the RAG layer never fails the overall request.
func (s *SearchService) Recommend(ctx context.Context, q domain.BookQuery) (domain.RecommendResult, error) {
	logger.Section("RAG Recommendation")

	rq := q
	rq.Type = domain.SearchTypeVector
	if rq.SimilarityThreshold == nil {
		threshold := DefaultRAGSimilarityThreshold
		rq.SimilarityThreshold = &threshold
	}
	if rq.ChunkLoadLimit <= 0 {
		rq.ChunkLoadLimit = DefaultRAGChunkLoadLimit
	}
	rq.Page = rq.Page.Normalise()

	vector, err := s.queryVector(ctx, strings.TrimSpace(q.Text))
	if err != nil {
		return domain.RecommendResult{}, err
	}

	page, err := s.books.SearchVector(ctx, vector, rq)
	if err != nil {
		return domain.RecommendResult{}, err
	}

	result := domain.RecommendResult{Page: page}
	if s.llm == nil {
		logger.Debug("LLM unavailable, returning vector page only")
		return result, nil
	}
	if len(page.Items) == 0 {
		return result, nil
	}

	totalLimit := q.TotalChunksLimit
	if totalLimit <= 0 {
		totalLimit = DefaultRAGTotalChunks
	}

	grounding := buildRAGContext(page.Items, totalLimit)
	if grounding == "" {
		logger.Debug("No chunks available for context, returning vector page only")
		return result, nil
	}

	userPrompt := fmt.Sprintf("Reader query: %s\n\nCandidate book excerpts:\n%s", q.Text, grounding)

	answer, err := s.llm.Complete(ctx, s.recommendPrompt(), userPrompt)
	if err != nil {
		logger.Warn("Completion failed, returning vector page only: %v", err)
		return result, nil
	}

	recs := parseRecommendations(answer)
	logger.Debug("Provider returned %d recommendations", len(recs))

	// Cross-reference against the candidate set; drop invented ids.
	byID := make(map[string]domain.BookResult, len(page.Items))
	for _, item := range page.Items {
		byID[item.Book.ID] = item
	}

	for _, rec := range recs {
		item, ok := byID[rec.ID]
		if !ok {
			logger.Warn("Dropping recommendation for unknown book id %q", rec.ID)
			continue
		}
		item.Reason = rec.Reason
		result.Recommended = append(result.Recommended, item)
	}

	return result, nil
}

// recommendPrompt returns the system prompt for the completion call,
// preferring a user-customised template when a prompt store is configured.
func (s *SearchService) recommendPrompt() string {
	if s.prompts == nil {
		return ragSystemPrompt
	}
	prompt, err := s.prompts.Load(driven.PromptRecommend)
	if err != nil || prompt == "" {
		return ragSystemPrompt
	}
	return prompt
}

// buildRAGContext flattens all chunks across candidate books, tags each
// with its owning book, sorts by similarity descending and concatenates
// the global top totalLimit into one context string, hard-truncated to
// MaxRAGContextChars.
func buildRAGContext(items []domain.BookResult, totalLimit int) string {
	var tagged []taggedChunk
	for _, item := range items {
		for _, chunk := range item.Chunks {
			tagged = append(tagged, taggedChunk{
				bookID:    item.Book.ID,
				bookTitle: item.Book.Title,
				chunk:     chunk,
			})
		}
	}
	if len(tagged) == 0 {
		return ""
	}

	sort.SliceStable(tagged, func(i, j int) bool {
		return tagged[i].chunk.Similarity > tagged[j].chunk.Similarity
	})
	if len(tagged) > totalLimit {
		tagged = tagged[:totalLimit]
	}

	var sb strings.Builder
	for _, tc := range tagged {
		fmt.Fprintf(&sb, "[book %s %q chunk %d] %s\n\n",
			tc.bookID, tc.bookTitle, tc.chunk.Index, tc.chunk.Content)
	}

	out := sb.String()
	if len(out) > MaxRAGContextChars {
		// Back up to a rune boundary so the cut never leaves an invalid
		// trailing sequence in the provider context.
		cut := MaxRAGContextChars
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}

	return out
}

// parseRecommendations defensively parses the provider's response: code
// fences are stripped before JSON parsing, and anything unparseable
// yields an empty list rather than an error.
func parseRecommendations(answer string) []recommendation {
	cleaned := strings.TrimSpace(answer)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var recs []recommendation
	if err := json.Unmarshal([]byte(cleaned), &recs); err != nil {
		logger.Warn("Unparseable recommendation payload: %v", err)
		return nil
	}

	return recs
}
