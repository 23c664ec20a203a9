package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// IngestOrchestrator reconciles the vector store against a document
// source. At most one ingestion pass runs at a time, system-wide; a
// concurrent call blocks until the running pass completes.
type IngestOrchestrator interface {
	// Ingest runs one reconciliation pass for the given source.
	Ingest(ctx context.Context, source driven.DocumentSource) (*domain.IngestResult, error)
}
