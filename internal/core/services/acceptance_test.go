package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/docrag/internal/adapters/driven/memory"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// ingestionWorld carries scenario state between steps.
type ingestionWorld struct {
	embedding     *mocks.MockEmbeddingService
	source        *mocks.MockDocumentSource
	documentStore *memory.DocumentStore
	chunkStore    *memory.ChunkStore
	orchestrator  *IngestOrchestrator
	maintenance   *MaintenanceService
	search        driving.SearchService

	lastResult  *domain.IngestResult
	lastMatches []*domain.ScoredChunk
}

func (w *ingestionWorld) reset() {
	w.embedding = mocks.NewMockEmbeddingService()
	w.source = mocks.NewMockDocumentSource("acceptance-source", w.embedding)
	w.documentStore = memory.NewDocumentStore()
	w.chunkStore = memory.NewChunkStore(w.embedding.Dimensions())

	lock := NewIngestLock(nil)
	w.orchestrator = NewIngestOrchestrator(IngestOrchestratorConfig{
		DocumentStore: w.documentStore,
		ChunkStore:    w.chunkStore,
		Lock:          lock,
	})
	w.maintenance = NewMaintenanceService(w.documentStore, w.chunkStore, lock, nil)
	w.search = NewSearchService(w.chunkStore, w.embedding, nil)
	w.lastResult = nil
	w.lastMatches = nil
}

func (w *ingestionWorld) anEmptyIndex() error {
	w.reset()
	return nil
}

func (w *ingestionWorld) sourceHasDocument(documentID, version, text string) error {
	w.source.SetDocument(documentID, version, text)
	return nil
}

func (w *ingestionWorld) documentCannotBeProcessed(documentID, version string) error {
	w.source.SetDocumentError(documentID, version, errors.New("unprocessable"))
	return nil
}

func (w *ingestionWorld) documentIsRemoved(documentID string) error {
	w.source.RemoveDocument(documentID)
	return nil
}

func (w *ingestionWorld) runIngestionPass() error {
	result, err := w.orchestrator.Ingest(context.Background(), w.source)
	if err != nil {
		return err
	}
	w.lastResult = result
	return nil
}

func (w *ingestionWorld) passReports(added, updated, deleted int) error {
	if w.lastResult == nil {
		return errors.New("no pass has run")
	}
	stats := w.lastResult.Stats
	if stats.DocumentsAdded != added || stats.DocumentsUpdated != updated || stats.DocumentsDeleted != deleted {
		return fmt.Errorf("expected %d/%d/%d added/updated/deleted, got %d/%d/%d",
			added, updated, deleted,
			stats.DocumentsAdded, stats.DocumentsUpdated, stats.DocumentsDeleted)
	}
	return nil
}

func (w *ingestionWorld) passReportsFailures(failed int) error {
	if w.lastResult == nil {
		return errors.New("no pass has run")
	}
	if len(w.lastResult.FailedDocuments) != failed {
		return fmt.Errorf("expected %d failed documents, got %d", failed, len(w.lastResult.FailedDocuments))
	}
	return nil
}

func (w *ingestionWorld) indexContainsDocuments(count int) error {
	if got := w.documentStore.Count(); got != count {
		return fmt.Errorf("expected %d document records, got %d", count, got)
	}
	return nil
}

func (w *ingestionWorld) indexContainsChunks(count int) error {
	if got := w.chunkStore.Count(); got != count {
		return fmt.Errorf("expected %d chunks, got %d", count, got)
	}
	return nil
}

func (w *ingestionWorld) indexHasNoChunksFor(documentID string) error {
	chunks, err := w.chunkStore.Query(context.Background(),
		driven.FieldFilter{Field: driven.FieldDocumentID, Value: documentID}, 0)
	if err != nil {
		return err
	}
	if len(chunks) != 0 {
		return fmt.Errorf("expected no chunks for %s, got %d", documentID, len(chunks))
	}
	return nil
}

func (w *ingestionWorld) indexHasDuplicates(documentID, v1, v2 string) error {
	return w.documentStore.Upsert(context.Background(), []*domain.Document{
		{Key: "dup-1", SourceID: "acceptance-source", DocumentID: documentID, DocumentVersion: v1},
		{Key: "dup-2", SourceID: "acceptance-source", DocumentID: documentID, DocumentVersion: v2},
	})
}

func (w *ingestionWorld) runDuplicateCleanup() error {
	_, err := w.maintenance.CleanupDuplicates(context.Background(), "")
	return err
}

func (w *ingestionWorld) survivingRecordHasVersion(documentID, version string) error {
	docs, err := w.documentStore.Query(context.Background(),
		driven.FieldFilter{Field: driven.FieldDocumentID, Value: documentID}, 0)
	if err != nil {
		return err
	}
	if len(docs) != 1 {
		return fmt.Errorf("expected 1 record for %s, got %d", documentID, len(docs))
	}
	if docs[0].DocumentVersion != version {
		return fmt.Errorf("expected surviving version %s, got %s", version, docs[0].DocumentVersion)
	}
	return nil
}

func (w *ingestionWorld) searchFor(query string) error {
	matches, err := w.search.Search(context.Background(), query, "", 10)
	if err != nil {
		return err
	}
	w.lastMatches = matches
	return nil
}

func (w *ingestionWorld) searchForInDocument(query, documentID string) error {
	matches, err := w.search.Search(context.Background(), query, documentID, 10)
	if err != nil {
		return err
	}
	w.lastMatches = matches
	return nil
}

func (w *ingestionWorld) topResultFromDocument(query, documentID string) error {
	if err := w.searchFor(query); err != nil {
		return err
	}
	if len(w.lastMatches) == 0 {
		return errors.New("no results")
	}
	if w.lastMatches[0].Chunk.DocumentID != documentID {
		return fmt.Errorf("expected top result from %s, got %s", documentID, w.lastMatches[0].Chunk.DocumentID)
	}
	return nil
}

func (w *ingestionWorld) everyResultFromDocument(documentID string) error {
	if len(w.lastMatches) == 0 {
		return errors.New("no results")
	}
	for _, match := range w.lastMatches {
		if match.Chunk.DocumentID != documentID {
			return fmt.Errorf("expected only %s results, got %s", documentID, match.Chunk.DocumentID)
		}
	}
	return nil
}

func InitializeIngestionScenario(sc *godog.ScenarioContext) {
	w := &ingestionWorld{}

	sc.Step(`^an empty index$`, w.anEmptyIndex)
	sc.Step(`^the source has document "([^"]*)" at version "([^"]*)" with text "([^"]*)"$`, w.sourceHasDocument)
	sc.Step(`^document "([^"]*)" at version "([^"]*)" cannot be processed$`, w.documentCannotBeProcessed)
	sc.Step(`^document "([^"]*)" is removed from the source$`, w.documentIsRemoved)
	sc.Step(`^I run an ingestion pass$`, w.runIngestionPass)
	sc.Step(`^the pass reports (\d+) added, (\d+) updated, (\d+) deleted$`, w.passReports)
	sc.Step(`^the pass reports (\d+) failed documents$`, w.passReportsFailures)
	sc.Step(`^the index contains (\d+) document records$`, w.indexContainsDocuments)
	sc.Step(`^the index contains (\d+) chunks$`, w.indexContainsChunks)
	sc.Step(`^the index has no chunks for document "([^"]*)"$`, w.indexHasNoChunksFor)
	sc.Step(`^the index has duplicate records for document "([^"]*)" at versions "([^"]*)" and "([^"]*)"$`, w.indexHasDuplicates)
	sc.Step(`^I run duplicate cleanup$`, w.runDuplicateCleanup)
	sc.Step(`^the surviving record for "([^"]*)" has version "([^"]*)"$`, w.survivingRecordHasVersion)
	sc.Step(`^I search for "([^"]*)" in document "([^"]*)"$`, w.searchForInDocument)
	sc.Step(`^searching for "([^"]*)" ranks document "([^"]*)" first$`, w.topResultFromDocument)
	sc.Step(`^every result comes from document "([^"]*)"$`, w.everyResultFromDocument)
}

func TestIngestionFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeIngestionScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../../features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("acceptance scenarios failed")
	}
}
