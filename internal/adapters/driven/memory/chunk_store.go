// Package memory provides in-memory vector store adapters using
// brute-force cosine similarity. It is the default backend and backs
// the core service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/vectors"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore in memory.
type ChunkStore struct {
	mu        sync.RWMutex
	dimension int
	chunks    map[string]*domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store. dimension is the
// required vector length for upserted chunks.
func NewChunkStore(dimension int) *ChunkStore {
	return &ChunkStore{
		dimension: dimension,
		chunks:    make(map[string]*domain.Chunk),
	}
}

// EnsureCollection is a no-op for the in-memory store.
func (s *ChunkStore) EnsureCollection(ctx context.Context) error {
	return nil
}

// Upsert inserts or replaces chunks by key.
func (s *ChunkStore) Upsert(ctx context.Context, chunks []*domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		if len(chunk.Vector) != s.dimension {
			return domain.ErrDimensionMismatch
		}
	}
	for _, chunk := range chunks {
		c := *chunk
		s.chunks[c.Key] = &c
	}
	return nil
}

// DeleteByKeys removes chunks by key. Missing keys are ignored.
func (s *ChunkStore) DeleteByKeys(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.chunks, key)
	}
	return nil
}

// Query returns chunks matching the filter.
func (s *ChunkStore) Query(ctx context.Context, filter driven.FieldFilter, limit int) ([]*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Chunk
	for _, chunk := range s.chunks {
		match, err := chunkMatches(chunk, filter)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}
		c := *chunk
		result = append(result, &c)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// NearestNeighbors returns up to k chunks ordered by descending cosine
// similarity to vector.
func (s *ChunkStore) NearestNeighbors(ctx context.Context, vector []float32, k int, filter *driven.FieldFilter) ([]*domain.ScoredChunk, error) {
	if len(vector) != s.dimension {
		return nil, domain.ErrDimensionMismatch
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []*domain.ScoredChunk
	for _, chunk := range s.chunks {
		if filter != nil {
			match, err := chunkMatches(chunk, *filter)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		c := *chunk
		scored = append(scored, &domain.ScoredChunk{
			Chunk: &c,
			Score: vectors.Cosine(vector, chunk.Vector),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func chunkMatches(chunk *domain.Chunk, filter driven.FieldFilter) (bool, error) {
	switch filter.Field {
	case driven.FieldKey:
		return chunk.Key == filter.Value, nil
	case driven.FieldDocumentID:
		return chunk.DocumentID == filter.Value, nil
	default:
		return false, domain.ErrInvalidFilter
	}
}
