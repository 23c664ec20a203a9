package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// DefaultMaxResults caps a search when the caller does not say how
// many results it wants.
const DefaultMaxResults = 10

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// searchService implements the SearchService interface. It has no
// side effects and needs no locking; any number of callers may search
// concurrently with an ingestion pass.
type searchService struct {
	chunkStore driven.ChunkStore
	embedding  driven.EmbeddingService
	logger     *slog.Logger
}

// NewSearchService creates a new SearchService.
func NewSearchService(
	chunkStore driven.ChunkStore,
	embedding driven.EmbeddingService,
	logger *slog.Logger,
) driving.SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &searchService{
		chunkStore: chunkStore,
		embedding:  embedding,
		logger:     logger,
	}
}

// Search embeds queryText and returns the most similar chunks,
// optionally restricted to one document. No matches returns an empty
// slice, never an error.
func (s *searchService) Search(ctx context.Context, queryText, documentID string, maxResults int) ([]*domain.ScoredChunk, error) {
	if queryText == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	vector, err := s.embedding.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter *driven.FieldFilter
	if documentID != "" {
		filter = &driven.FieldFilter{Field: driven.FieldDocumentID, Value: documentID}
	}

	results, err := s.chunkStore.NearestNeighbors(ctx, vector, maxResults, filter)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}

	s.logger.Debug("search completed",
		"document_id", documentID,
		"max_results", maxResults,
		"results", len(results),
	)
	return results, nil
}
