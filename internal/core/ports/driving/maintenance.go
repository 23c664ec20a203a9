package driving

import "context"

// MaintenanceService repairs vector-store state. All operations are
// idempotent and best-effort: partial deletions already applied are
// not rolled back on error. Each returns the number of records
// affected.
type MaintenanceService interface {
	// ClearAll deletes all documents and chunks for the given source
	// IDs. With an empty list it clears every source the store knows
	// about.
	ClearAll(ctx context.Context, sourceIDs []string) (int, error)

	// ClearDocument deletes all chunks and all document records
	// matching documentID, regardless of source. A missing document is
	// a no-op success.
	ClearDocument(ctx context.Context, documentID string) (int, error)

	// CleanupDuplicates resolves duplicate document records. For each
	// documentID with more than one record, the record with the
	// greatest DocumentVersion survives and the rest are removed.
	// Chunks stay: they are joined by documentID and the surviving
	// record still owns them. An empty sourceID cleans every known
	// source.
	CleanupDuplicates(ctx context.Context, sourceID string) (int, error)
}
