package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore in memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*domain.Document)}
}

// EnsureCollection is a no-op for the in-memory store.
func (s *DocumentStore) EnsureCollection(ctx context.Context) error {
	return nil
}

// Upsert inserts or replaces document records by key.
func (s *DocumentStore) Upsert(ctx context.Context, docs []*domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		d := *doc
		s.docs[d.Key] = &d
	}
	return nil
}

// DeleteByKeys removes document records by key. Missing keys are
// ignored.
func (s *DocumentStore) DeleteByKeys(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.docs, key)
	}
	return nil
}

// Query returns document records matching the filter.
func (s *DocumentStore) Query(ctx context.Context, filter driven.FieldFilter, limit int) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Document
	for _, doc := range s.docs {
		match, err := documentMatches(doc, filter)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}
		d := *doc
		result = append(result, &d)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// ListSourceIDs returns the distinct source IDs present in the store.
func (s *DocumentStore) ListSourceIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, doc := range s.docs {
		if _, ok := seen[doc.SourceID]; ok {
			continue
		}
		seen[doc.SourceID] = struct{}{}
		ids = append(ids, doc.SourceID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of stored document records.
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func documentMatches(doc *domain.Document, filter driven.FieldFilter) (bool, error) {
	switch filter.Field {
	case driven.FieldKey:
		return doc.Key == filter.Value, nil
	case driven.FieldDocumentID:
		return doc.DocumentID == filter.Value, nil
	case driven.FieldSourceID:
		return doc.SourceID == filter.Value, nil
	default:
		return false, domain.ErrInvalidFilter
	}
}
