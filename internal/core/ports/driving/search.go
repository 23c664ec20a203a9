package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// SearchService answers semantic queries over the chunk collection.
// Read-only and safe for unlimited concurrent callers.
type SearchService interface {
	// Search embeds queryText and returns up to maxResults chunks
	// ordered by descending similarity. A non-empty documentID
	// restricts results to chunks of that document. No results is not
	// an error.
	Search(ctx context.Context, queryText, documentID string, maxResults int) ([]*domain.ScoredChunk, error)
}
