package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/custodia-labs/docrag/internal/adapters/driven/memory"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Test helper to create a search service with indexed chunks. Each
// entry maps a document ID to its chunk texts.
func createTestSearchService(t *testing.T, corpus map[string][]string) driving.SearchService {
	t.Helper()

	embedding := mocks.NewMockEmbeddingService()
	chunkStore := memory.NewChunkStore(embedding.Dimensions())

	keySeq := 0
	for documentID, texts := range corpus {
		vectors, err := embedding.Embed(context.Background(), texts)
		if err != nil {
			t.Fatalf("failed to embed corpus: %v", err)
		}
		chunks := make([]*domain.Chunk, len(texts))
		for i, text := range texts {
			keySeq++
			chunks[i] = &domain.Chunk{
				Key:        fmt.Sprintf("chunk-%s-%d", documentID, keySeq),
				DocumentID: documentID,
				PageNumber: i + 1,
				Text:       text,
				ChunkIndex: i,
				Vector:     vectors[i],
			}
		}
		if err := chunkStore.Upsert(context.Background(), chunks); err != nil {
			t.Fatalf("failed to index corpus: %v", err)
		}
	}

	return NewSearchService(chunkStore, embedding, nil)
}

func TestSearch_EmptyQuery(t *testing.T) {
	service := createTestSearchService(t, nil)

	_, err := service.Search(context.Background(), "", "", 10)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got: %v", err)
	}
}

func TestSearch_ReturnsMostSimilarFirst(t *testing.T) {
	service := createTestSearchService(t, map[string][]string{
		"a.pdf": {"the quick brown fox", "lorem ipsum dolor"},
		"b.pdf": {"completely unrelated text"},
	})

	// The mock embedding maps identical text to identical vectors, so
	// an exact-text query must rank its chunk first with score 1.
	results, err := service.Search(context.Background(), "the quick brown fox", "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Chunk.Text != "the quick brown fox" {
		t.Errorf("expected exact match first, got %q", results[0].Chunk.Text)
	}
	if results[0].Score < 0.999 {
		t.Errorf("expected score ~1 for exact match, got %f", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not in descending score order at %d", i)
		}
	}
}

func TestSearch_DocumentFilter(t *testing.T) {
	service := createTestSearchService(t, map[string][]string{
		"a.pdf": {"shared phrasing about foxes"},
		"b.pdf": {"shared phrasing about foxes"},
	})

	results, err := service.Search(context.Background(), "foxes", "b.pdf", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Chunk.DocumentID != "b.pdf" {
		t.Errorf("expected only b.pdf chunks, got %s", results[0].Chunk.DocumentID)
	}
}

func TestSearch_NoMatchesIsNotAnError(t *testing.T) {
	service := createTestSearchService(t, map[string][]string{
		"a.pdf": {"some page"},
	})

	results, err := service.Search(context.Background(), "anything", "missing.pdf", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearch_LimitApplied(t *testing.T) {
	corpus := map[string][]string{"a.pdf": nil}
	for i := 0; i < 20; i++ {
		corpus["a.pdf"] = append(corpus["a.pdf"], fmt.Sprintf("page number %d", i))
	}
	service := createTestSearchService(t, corpus)

	results, err := service.Search(context.Background(), "page", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("expected 5 results, got %d", len(results))
	}

	// Non-positive limits fall back to the default.
	results, err = service.Search(context.Background(), "page", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != DefaultMaxResults {
		t.Errorf("expected %d results for default limit, got %d", DefaultMaxResults, len(results))
	}
}
