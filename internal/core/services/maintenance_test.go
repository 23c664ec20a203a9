package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/custodia-labs/docrag/internal/adapters/driven/memory"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driven/mocks"
)

// Test helper to create a maintenance service over in-memory stores.
func createTestMaintenance(t *testing.T) (
	*MaintenanceService,
	*memory.DocumentStore,
	*memory.ChunkStore,
) {
	t.Helper()

	documentStore := memory.NewDocumentStore()
	chunkStore := memory.NewChunkStore(mocks.NewMockEmbeddingService().Dimensions())
	service := NewMaintenanceService(documentStore, chunkStore, nil, nil)
	return service, documentStore, chunkStore
}

// seedDocument stores one record and n chunks for it.
func seedDocument(
	t *testing.T,
	documentStore *memory.DocumentStore,
	chunkStore *memory.ChunkStore,
	key, sourceID, documentID, version string,
	chunks int,
) {
	t.Helper()

	err := documentStore.Upsert(context.Background(), []*domain.Document{{
		Key:             key,
		SourceID:        sourceID,
		DocumentID:      documentID,
		DocumentVersion: version,
	}})
	if err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}

	embedding := mocks.NewMockEmbeddingService()
	for i := 0; i < chunks; i++ {
		text := fmt.Sprintf("%s page %d", documentID, i)
		vec, err := embedding.EmbedQuery(context.Background(), text)
		if err != nil {
			t.Fatalf("failed to embed seed chunk: %v", err)
		}
		err = chunkStore.Upsert(context.Background(), []*domain.Chunk{{
			Key:        fmt.Sprintf("%s-chunk-%d", key, i),
			DocumentID: documentID,
			PageNumber: i + 1,
			Text:       text,
			ChunkIndex: i,
			Vector:     vec,
		}})
		if err != nil {
			t.Fatalf("failed to seed chunk: %v", err)
		}
	}
}

func TestClearAll_EverySource(t *testing.T) {
	service, documentStore, chunkStore := createTestMaintenance(t)
	seedDocument(t, documentStore, chunkStore, "k1", "source-a", "a.pdf", "v1", 2)
	seedDocument(t, documentStore, chunkStore, "k2", "source-b", "b.pdf", "v1", 3)

	affected, err := service.ClearAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if affected != 7 {
		t.Errorf("expected 7 affected records (2 documents + 5 chunks), got %d", affected)
	}
	if documentStore.Count() != 0 || chunkStore.Count() != 0 {
		t.Errorf("expected empty stores, got %d documents / %d chunks",
			documentStore.Count(), chunkStore.Count())
	}
}

func TestClearAll_SpecificSource(t *testing.T) {
	service, documentStore, chunkStore := createTestMaintenance(t)
	seedDocument(t, documentStore, chunkStore, "k1", "source-a", "a.pdf", "v1", 2)
	seedDocument(t, documentStore, chunkStore, "k2", "source-b", "b.pdf", "v1", 3)

	affected, err := service.ClearAll(context.Background(), []string{"source-a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if affected != 3 {
		t.Errorf("expected 3 affected records, got %d", affected)
	}
	if documentStore.Count() != 1 {
		t.Errorf("expected source-b record to survive, got %d records", documentStore.Count())
	}
	if chunkStore.Count() != 3 {
		t.Errorf("expected source-b chunks to survive, got %d chunks", chunkStore.Count())
	}
}

func TestClearAll_EmptyStore(t *testing.T) {
	service, _, _ := createTestMaintenance(t)

	affected, err := service.ClearAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 0 {
		t.Errorf("expected 0 affected records, got %d", affected)
	}
}

func TestClearDocument_AcrossSources(t *testing.T) {
	service, documentStore, chunkStore := createTestMaintenance(t)
	seedDocument(t, documentStore, chunkStore, "k1", "source-a", "shared.pdf", "v1", 2)
	seedDocument(t, documentStore, chunkStore, "k2", "source-b", "shared.pdf", "v2", 1)
	seedDocument(t, documentStore, chunkStore, "k3", "source-a", "other.pdf", "v1", 1)

	affected, err := service.ClearDocument(context.Background(), "shared.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if affected != 5 {
		t.Errorf("expected 5 affected records (2 documents + 3 chunks), got %d", affected)
	}
	if documentStore.Count() != 1 {
		t.Errorf("expected other.pdf record to survive, got %d", documentStore.Count())
	}

	remaining, err := chunkStore.Query(context.Background(),
		driven.FieldFilter{Field: driven.FieldDocumentID, Value: "shared.pdf"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no shared.pdf chunks, got %d", len(remaining))
	}
}

func TestClearDocument_MissingIsNoop(t *testing.T) {
	service, _, _ := createTestMaintenance(t)

	affected, err := service.ClearDocument(context.Background(), "missing.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 0 {
		t.Errorf("expected 0 affected records, got %d", affected)
	}
}

func TestCleanupDuplicates_KeepsNewestVersion(t *testing.T) {
	service, documentStore, chunkStore := createTestMaintenance(t)
	seedDocument(t, documentStore, chunkStore, "k-old", "source-a", "a.pdf", "2024-01-01T00:00:00.000000000Z", 0)
	seedDocument(t, documentStore, chunkStore, "k-new", "source-a", "a.pdf", "2024-06-01T00:00:00.000000000Z", 2)
	seedDocument(t, documentStore, chunkStore, "k-other", "source-a", "b.pdf", "2024-01-01T00:00:00.000000000Z", 1)

	affected, err := service.CleanupDuplicates(context.Background(), "source-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if affected != 1 {
		t.Errorf("expected 1 duplicate removed, got %d", affected)
	}

	docs, err := documentStore.Query(context.Background(),
		driven.FieldFilter{Field: driven.FieldDocumentID, Value: "a.pdf"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 surviving record, got %d", len(docs))
	}
	if docs[0].Key != "k-new" {
		t.Errorf("expected newest record to survive, got %s", docs[0].Key)
	}

	// Chunks are joined by document ID and belong to the survivor.
	chunks, err := chunkStore.Query(context.Background(),
		driven.FieldFilter{Field: driven.FieldDocumentID, Value: "a.pdf"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("expected chunks kept for the survivor, got %d", len(chunks))
	}
}

func TestCleanupDuplicates_AllSources(t *testing.T) {
	service, documentStore, chunkStore := createTestMaintenance(t)
	seedDocument(t, documentStore, chunkStore, "a1", "source-a", "a.pdf", "v1", 0)
	seedDocument(t, documentStore, chunkStore, "a2", "source-a", "a.pdf", "v2", 0)
	seedDocument(t, documentStore, chunkStore, "b1", "source-b", "b.pdf", "v1", 0)
	seedDocument(t, documentStore, chunkStore, "b2", "source-b", "b.pdf", "v2", 0)

	affected, err := service.CleanupDuplicates(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 2 {
		t.Errorf("expected 2 duplicates removed, got %d", affected)
	}
	if documentStore.Count() != 2 {
		t.Errorf("expected 2 surviving records, got %d", documentStore.Count())
	}
}

func TestCleanupDuplicates_NoDuplicates(t *testing.T) {
	service, documentStore, chunkStore := createTestMaintenance(t)
	seedDocument(t, documentStore, chunkStore, "k1", "source-a", "a.pdf", "v1", 1)

	affected, err := service.CleanupDuplicates(context.Background(), "source-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 0 {
		t.Errorf("expected 0 affected records, got %d", affected)
	}
	if documentStore.Count() != 1 || chunkStore.Count() != 1 {
		t.Errorf("expected store untouched, got %d documents / %d chunks",
			documentStore.Count(), chunkStore.Count())
	}
}
