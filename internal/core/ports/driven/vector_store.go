package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Field names accepted in store filters. Stores reject anything else
// with domain.ErrInvalidFilter.
const (
	FieldKey        = "key"
	FieldDocumentID = "document_id"
	FieldSourceID   = "source_id"
)

// FieldFilter is a single-field equality predicate. It is the only
// filter form the stores support: no composite predicates and no
// "always true" predicate. Bulk operations that would need a universal
// filter iterate known field values instead.
type FieldFilter struct {
	Field string
	Value string
}

// ChunkStore is the searchable collection of embedded chunks.
type ChunkStore interface {
	// EnsureCollection creates the backing collection if absent.
	// Idempotent.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or replaces chunks by key.
	Upsert(ctx context.Context, chunks []*domain.Chunk) error

	// DeleteByKeys removes chunks by key. Missing keys are ignored.
	DeleteByKeys(ctx context.Context, keys []string) error

	// Query returns chunks matching the filter. limit <= 0 means no
	// limit. Vectors are not required to be populated on results.
	Query(ctx context.Context, filter FieldFilter, limit int) ([]*domain.Chunk, error)

	// NearestNeighbors returns up to k chunks ordered by descending
	// similarity to vector, optionally restricted by filter.
	NearestNeighbors(ctx context.Context, vector []float32, k int, filter *FieldFilter) ([]*domain.ScoredChunk, error)
}

// DocumentStore is the bookkeeping collection of document records.
type DocumentStore interface {
	// EnsureCollection creates the backing collection if absent.
	// Idempotent.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or replaces document records by key.
	Upsert(ctx context.Context, docs []*domain.Document) error

	// DeleteByKeys removes document records by key. Missing keys are
	// ignored.
	DeleteByKeys(ctx context.Context, keys []string) error

	// Query returns document records matching the filter. limit <= 0
	// means no limit.
	Query(ctx context.Context, filter FieldFilter, limit int) ([]*domain.Document, error)

	// ListSourceIDs returns the distinct source IDs present in the
	// collection. Used by maintenance in place of a universal filter.
	ListSourceIDs(ctx context.Context) ([]string, error)
}
