package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.MaintenanceService = (*MaintenanceService)(nil)

// MaintenanceService implements the idempotent repair operations. It
// shares the orchestrator's IngestLock so cleanup never races an
// ingestion pass. Operations are best-effort: deletions already
// applied when an error occurs are not rolled back.
type MaintenanceService struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	lock          *IngestLock
	logger        *slog.Logger
}

// NewMaintenanceService creates a new MaintenanceService. lock must be
// the same IngestLock the orchestrator uses.
func NewMaintenanceService(
	documentStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	lock *IngestLock,
	logger *slog.Logger,
) *MaintenanceService {
	if logger == nil {
		logger = slog.Default()
	}
	if lock == nil {
		lock = NewIngestLock(nil)
	}
	return &MaintenanceService{
		documentStore: documentStore,
		chunkStore:    chunkStore,
		lock:          lock,
		logger:        logger,
	}
}

// ClearAll deletes all document records and their chunks for the given
// source IDs. The store has no universal predicate, so with an empty
// list the distinct source IDs recorded in the documents collection
// are used; sources that never wrote a record cannot be cleared.
func (m *MaintenanceService) ClearAll(ctx context.Context, sourceIDs []string) (int, error) {
	release, err := m.lock.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	if len(sourceIDs) == 0 {
		sourceIDs, err = m.documentStore.ListSourceIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("list source ids: %w", err)
		}
	}

	affected := 0
	for _, sourceID := range sourceIDs {
		n, err := m.clearSource(ctx, sourceID)
		affected += n
		if err != nil {
			m.logger.Error("clear all failed", "source_id", sourceID, "error", err)
			return affected, err
		}
	}

	m.logger.Info("cleared all data", "sources", len(sourceIDs), "affected", affected)
	return affected, nil
}

// clearSource removes one source's records and chunks.
func (m *MaintenanceService) clearSource(ctx context.Context, sourceID string) (int, error) {
	docs, err := m.documentStore.Query(ctx, driven.FieldFilter{Field: driven.FieldSourceID, Value: sourceID}, 0)
	if err != nil {
		return 0, fmt.Errorf("load documents for source %s: %w", sourceID, err)
	}

	affected := 0
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if _, ok := seen[doc.DocumentID]; ok {
			continue
		}
		seen[doc.DocumentID] = struct{}{}

		n, err := m.deleteChunks(ctx, doc.DocumentID)
		affected += n
		if err != nil {
			return affected, err
		}
	}

	keys := make([]string, len(docs))
	for i, doc := range docs {
		keys[i] = doc.Key
	}
	if err := m.documentStore.DeleteByKeys(ctx, keys); err != nil {
		return affected, fmt.Errorf("delete documents for source %s: %w", sourceID, err)
	}
	return affected + len(keys), nil
}

// ClearDocument deletes all chunks and all document records matching
// documentID, regardless of source. A missing document is a no-op
// success with zero affected records.
func (m *MaintenanceService) ClearDocument(ctx context.Context, documentID string) (int, error) {
	release, err := m.lock.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	affected, err := m.deleteChunks(ctx, documentID)
	if err != nil {
		m.logger.Error("clear document failed", "document_id", documentID, "error", err)
		return affected, err
	}

	docs, err := m.documentStore.Query(ctx, driven.FieldFilter{Field: driven.FieldDocumentID, Value: documentID}, 0)
	if err != nil {
		return affected, fmt.Errorf("load records for %s: %w", documentID, err)
	}
	keys := make([]string, len(docs))
	for i, doc := range docs {
		keys[i] = doc.Key
	}
	if err := m.documentStore.DeleteByKeys(ctx, keys); err != nil {
		return affected, fmt.Errorf("delete records for %s: %w", documentID, err)
	}
	affected += len(keys)

	m.logger.Info("cleared document", "document_id", documentID, "affected", affected)
	return affected, nil
}

// CleanupDuplicates resolves duplicate document records within one
// source, or every known source when sourceID is empty. For each
// document ID with multiple records the greatest DocumentVersion
// survives. Chunks are left in place: they are joined by document ID,
// so the surviving record still owns them.
func (m *MaintenanceService) CleanupDuplicates(ctx context.Context, sourceID string) (int, error) {
	release, err := m.lock.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	sourceIDs := []string{sourceID}
	if sourceID == "" {
		sourceIDs, err = m.documentStore.ListSourceIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("list source ids: %w", err)
		}
	}

	affected := 0
	for _, id := range sourceIDs {
		n, err := m.dedupeSource(ctx, id)
		affected += n
		if err != nil {
			m.logger.Error("cleanup duplicates failed", "source_id", id, "error", err)
			return affected, err
		}
	}
	return affected, nil
}

// dedupeSource removes all but the newest record per document ID.
func (m *MaintenanceService) dedupeSource(ctx context.Context, sourceID string) (int, error) {
	docs, err := m.documentStore.Query(ctx, driven.FieldFilter{Field: driven.FieldSourceID, Value: sourceID}, 0)
	if err != nil {
		return 0, fmt.Errorf("load documents for source %s: %w", sourceID, err)
	}

	groups := make(map[string][]*domain.Document)
	for _, doc := range docs {
		groups[doc.DocumentID] = append(groups[doc.DocumentID], doc)
	}

	affected := 0
	for documentID, group := range groups {
		if len(group) < 2 {
			continue
		}

		// Newest version first; key breaks ties deterministically.
		sort.Slice(group, func(i, j int) bool {
			if group[i].DocumentVersion != group[j].DocumentVersion {
				return group[i].DocumentVersion > group[j].DocumentVersion
			}
			return group[i].Key > group[j].Key
		})

		keys := make([]string, 0, len(group)-1)
		for _, doc := range group[1:] {
			keys = append(keys, doc.Key)
		}
		if err := m.documentStore.DeleteByKeys(ctx, keys); err != nil {
			return affected, fmt.Errorf("delete duplicates for %s: %w", documentID, err)
		}
		affected += len(keys)

		m.logger.Info("removed duplicate records",
			"source_id", sourceID,
			"document_id", documentID,
			"removed", len(keys),
			"kept_version", group[0].DocumentVersion,
		)
	}
	return affected, nil
}

// deleteChunks removes all chunks joined to documentID and returns how
// many were deleted.
func (m *MaintenanceService) deleteChunks(ctx context.Context, documentID string) (int, error) {
	chunks, err := m.chunkStore.Query(ctx, driven.FieldFilter{Field: driven.FieldDocumentID, Value: documentID}, 0)
	if err != nil {
		return 0, fmt.Errorf("list chunks for %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	keys := make([]string, len(chunks))
	for i, chunk := range chunks {
		keys[i] = chunk.Key
	}
	if err := m.chunkStore.DeleteByKeys(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", documentID, err)
	}
	return len(keys), nil
}
