package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.IngestOrchestrator = (*IngestOrchestrator)(nil)

// IngestOrchestrator reconciles document-source state against the
// vector store:
//  1. Ensure both collections exist
//  2. Load the document records for the source
//  3. Report duplicate document IDs (repaired by maintenance, not here)
//  4. Apply deletions: chunks first, then every record sharing the
//     document ID
//  5. Process new/modified documents: extract and embed replacement
//     chunks, remove every record sharing the document ID, upsert the
//     new record and its chunks
//
// Failures while extracting or embedding one document are isolated:
// they are logged, counted in the result, and the pass continues with
// the next document.
type IngestOrchestrator struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	lock          *IngestLock
	logger        *slog.Logger
}

// IngestOrchestratorConfig holds dependencies for IngestOrchestrator.
type IngestOrchestratorConfig struct {
	DocumentStore driven.DocumentStore
	ChunkStore    driven.ChunkStore
	Lock          *IngestLock
	Logger        *slog.Logger
}

// NewIngestOrchestrator creates a new ingest orchestrator.
func NewIngestOrchestrator(cfg IngestOrchestratorConfig) *IngestOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lock := cfg.Lock
	if lock == nil {
		lock = NewIngestLock(nil)
	}

	return &IngestOrchestrator{
		documentStore: cfg.DocumentStore,
		chunkStore:    cfg.ChunkStore,
		lock:          lock,
		logger:        logger,
	}
}

// Lock returns the exclusion lock so the maintenance service can share
// it.
func (o *IngestOrchestrator) Lock() *IngestLock {
	return o.lock
}

// Ingest runs one reconciliation pass for the given source. At most
// one pass executes at a time; concurrent callers block.
func (o *IngestOrchestrator) Ingest(ctx context.Context, source driven.DocumentSource) (*domain.IngestResult, error) {
	release, err := o.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	sourceID := source.SourceID()

	o.logger.Info("starting ingestion", "source_id", sourceID)

	if err := o.documentStore.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents collection: %w", err)
	}
	if err := o.chunkStore.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure chunks collection: %w", err)
	}

	known, err := o.documentStore.Query(ctx, driven.FieldFilter{Field: driven.FieldSourceID, Value: sourceID}, 0)
	if err != nil {
		return nil, fmt.Errorf("load documents for source %s: %w", sourceID, err)
	}

	o.reportDuplicates(sourceID, known)

	result := &domain.IngestResult{SourceID: sourceID}

	known, err = o.applyDeletions(ctx, source, known, &result.Stats)
	if err != nil {
		o.logger.Error("ingestion failed", "source_id", sourceID, "error", err)
		return nil, err
	}

	if err := o.applyChanges(ctx, source, known, result); err != nil {
		o.logger.Error("ingestion failed", "source_id", sourceID, "error", err)
		return nil, err
	}

	result.Duration = time.Since(start)

	o.logger.Info("ingestion completed",
		"source_id", sourceID,
		"duration", result.Duration,
		"documents_added", result.Stats.DocumentsAdded,
		"documents_updated", result.Stats.DocumentsUpdated,
		"documents_deleted", result.Stats.DocumentsDeleted,
		"chunks_indexed", result.Stats.ChunksIndexed,
		"errors", result.Stats.Errors,
	)

	return result, nil
}

// reportDuplicates logs document IDs with more than one record. The
// pass still makes forward progress; maintenance resolves duplicates
// explicitly.
func (o *IngestOrchestrator) reportDuplicates(sourceID string, known []*domain.Document) {
	counts := make(map[string]int, len(known))
	for _, doc := range known {
		counts[doc.DocumentID]++
	}
	for id, n := range counts {
		if n > 1 {
			o.logger.Warn("duplicate document records",
				"source_id", sourceID,
				"document_id", id,
				"count", n,
			)
		}
	}
}

// applyDeletions removes documents the source no longer has, chunks
// first so no orphaned chunks survive a mid-pass failure. Returns the
// known set minus the removed records.
func (o *IngestOrchestrator) applyDeletions(
	ctx context.Context,
	source driven.DocumentSource,
	known []*domain.Document,
	stats *domain.IngestStats,
) ([]*domain.Document, error) {
	deleted, err := source.DeletedDocuments(ctx, known)
	if err != nil {
		return known, fmt.Errorf("detect deletions: %w", err)
	}
	if len(deleted) == 0 {
		return known, nil
	}

	removedIDs := make(map[string]struct{}, len(deleted))
	for _, doc := range deleted {
		removedIDs[doc.DocumentID] = struct{}{}
	}

	// Every record sharing a removed document ID goes, duplicates
	// included, mirroring the all-duplicates delete on update.
	keysByID := make(map[string][]string, len(removedIDs))
	for _, doc := range known {
		if _, ok := removedIDs[doc.DocumentID]; ok {
			keysByID[doc.DocumentID] = append(keysByID[doc.DocumentID], doc.Key)
		}
	}

	for _, doc := range deleted {
		keys, ok := keysByID[doc.DocumentID]
		if !ok {
			continue
		}
		delete(keysByID, doc.DocumentID)

		if err := o.deleteChunksForDocument(ctx, doc.DocumentID); err != nil {
			return known, err
		}
		if err := o.documentStore.DeleteByKeys(ctx, keys); err != nil {
			return known, fmt.Errorf("delete document records for %s: %w", doc.DocumentID, err)
		}

		o.logger.Info("document removed",
			"source_id", doc.SourceID,
			"document_id", doc.DocumentID,
			"records", len(keys),
		)
		stats.DocumentsDeleted++
	}

	remaining := known[:0]
	for _, doc := range known {
		if _, ok := removedIDs[doc.DocumentID]; !ok {
			remaining = append(remaining, doc)
		}
	}
	return remaining, nil
}

// applyChanges processes new and modified documents in source order.
func (o *IngestOrchestrator) applyChanges(
	ctx context.Context,
	source driven.DocumentSource,
	known []*domain.Document,
	result *domain.IngestResult,
) error {
	changed, err := source.NewOrModifiedDocuments(ctx, known)
	if err != nil {
		return fmt.Errorf("detect changes: %w", err)
	}

	byID := make(map[string][]*domain.Document, len(known))
	for _, doc := range known {
		byID[doc.DocumentID] = append(byID[doc.DocumentID], doc)
	}

	for _, doc := range changed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		existing := byID[doc.DocumentID]

		// Extract and embed before touching stored state, so a
		// per-document failure leaves the previous version intact.
		chunks, err := source.ChunksForDocument(ctx, doc)
		if err != nil {
			o.logger.Warn("failed to process document",
				"source_id", doc.SourceID,
				"document_id", doc.DocumentID,
				"error", err,
			)
			result.Stats.Errors++
			result.FailedDocuments = append(result.FailedDocuments, domain.DocumentError{
				DocumentID: doc.DocumentID,
				Err:        err.Error(),
			})
			continue
		}

		// Remove every record sharing this document ID, not just one,
		// so stale duplicates cannot resurrect.
		if len(existing) > 0 {
			if err := o.deleteChunksForDocument(ctx, doc.DocumentID); err != nil {
				return err
			}
			keys := make([]string, len(existing))
			for i, old := range existing {
				keys[i] = old.Key
			}
			if err := o.documentStore.DeleteByKeys(ctx, keys); err != nil {
				return fmt.Errorf("delete superseded records for %s: %w", doc.DocumentID, err)
			}
		}

		if err := o.documentStore.Upsert(ctx, []*domain.Document{doc}); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.DocumentID, err)
		}
		if err := o.chunkStore.Upsert(ctx, chunks); err != nil {
			return fmt.Errorf("upsert chunks for %s: %w", doc.DocumentID, err)
		}

		byID[doc.DocumentID] = []*domain.Document{doc}

		if len(existing) > 0 {
			result.Stats.DocumentsUpdated++
		} else {
			result.Stats.DocumentsAdded++
		}
		result.Stats.ChunksIndexed += len(chunks)
	}

	return nil
}

// deleteChunksForDocument removes all chunks joined to documentID.
// The store has no bulk delete-by-filter, so keys are collected by a
// filtered scan first.
func (o *IngestOrchestrator) deleteChunksForDocument(ctx context.Context, documentID string) error {
	chunks, err := o.chunkStore.Query(ctx, driven.FieldFilter{Field: driven.FieldDocumentID, Value: documentID}, 0)
	if err != nil {
		return fmt.Errorf("list chunks for %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	keys := make([]string, len(chunks))
	for i, chunk := range chunks {
		keys[i] = chunk.Key
	}
	if err := o.chunkStore.DeleteByKeys(ctx, keys); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", documentID, err)
	}
	return nil
}
