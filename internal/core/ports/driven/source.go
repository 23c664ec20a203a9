package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DocumentSource provides documents plus change detection for one
// corpus, e.g. a directory of PDFs.
type DocumentSource interface {
	// SourceID returns the stable identity of this source instance,
	// in the form "<kind>:<location>".
	SourceID() string

	// DeletedDocuments returns the subset of known whose backing
	// content no longer exists.
	DeletedDocuments(ctx context.Context, known []*domain.Document) ([]*domain.Document, error)

	// NewOrModifiedDocuments returns freshly-discovered documents and
	// documents whose version differs from every known record. Returned
	// records carry new keys; superseded records are removed by the
	// orchestrator.
	NewOrModifiedDocuments(ctx context.Context, known []*domain.Document) ([]*domain.Document, error)

	// ChunksForDocument extracts text, splits it into chunks, embeds
	// each chunk and returns fully-populated records. A failure here is
	// a per-document failure: it must not poison other documents in the
	// same pass.
	ChunksForDocument(ctx context.Context, doc *domain.Document) ([]*domain.Chunk, error)
}
