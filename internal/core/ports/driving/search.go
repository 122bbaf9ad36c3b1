package driving

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// SearchService provides catalog search and recommendation to external
// actors.
type SearchService interface {
	// Search executes the strategy selected by q.Type and returns a
	// ranked page plus the total matching count.
	Search(ctx context.Context, q domain.BookQuery) (domain.ResultPage, error)

	// Recommend runs the retrieval-augmented recommendation flow: a
	// relaxed vector search whose top chunks ground a completion call.
	// Provider failures degrade to the plain vector page with no
	// recommendations.
	Recommend(ctx context.Context, q domain.BookQuery) (domain.RecommendResult, error)

	// RecommendForUser builds the user's interest vector from their
	// behavioural signals and runs a personalised vector search. A user
	// with no signals yields an empty page.
	RecommendForUser(ctx context.Context, userID string, q domain.BookQuery) (domain.ResultPage, error)
}
