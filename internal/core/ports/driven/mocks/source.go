package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// mockDoc is the scripted state of one document in the fake corpus.
type mockDoc struct {
	version string
	pages   []string // one chunk per page
	err     error    // returned by ChunksForDocument when set
}

// MockDocumentSource is a scriptable DocumentSource for testing the
// orchestrator. Tests mutate the corpus between passes with SetDocument
// and RemoveDocument.
type MockDocumentSource struct {
	mu        sync.Mutex
	sourceID  string
	docs      map[string]*mockDoc
	embedding driven.EmbeddingService
	keySeq    int

	// ChunksHook, when set, runs at the start of every
	// ChunksForDocument call. Used to observe or stall a pass.
	ChunksHook func(doc *domain.Document)
}

// NewMockDocumentSource creates a new MockDocumentSource. The
// embedding service populates chunk vectors; pass a
// MockEmbeddingService in tests.
func NewMockDocumentSource(sourceID string, embedding driven.EmbeddingService) *MockDocumentSource {
	return &MockDocumentSource{
		sourceID:  sourceID,
		docs:      make(map[string]*mockDoc),
		embedding: embedding,
	}
}

func (m *MockDocumentSource) SourceID() string {
	return m.sourceID
}

// SetDocument adds or replaces a document in the fake corpus.
func (m *MockDocumentSource) SetDocument(documentID, version string, pages ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[documentID] = &mockDoc{version: version, pages: pages}
}

// SetDocumentError makes ChunksForDocument fail for the given document.
func (m *MockDocumentSource) SetDocumentError(documentID, version string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[documentID] = &mockDoc{version: version, err: err}
}

// RemoveDocument deletes a document from the fake corpus.
func (m *MockDocumentSource) RemoveDocument(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, documentID)
}

func (m *MockDocumentSource) DeletedDocuments(ctx context.Context, known []*domain.Document) ([]*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted []*domain.Document
	for _, doc := range known {
		if _, ok := m.docs[doc.DocumentID]; !ok {
			deleted = append(deleted, doc)
		}
	}
	return deleted, nil
}

func (m *MockDocumentSource) NewOrModifiedDocuments(ctx context.Context, known []*domain.Document) ([]*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[string]string, len(known))
	for _, doc := range known {
		current[doc.DocumentID] = doc.DocumentVersion
	}

	var changed []*domain.Document
	for id, doc := range m.docs {
		if version, ok := current[id]; ok && version == doc.version {
			continue
		}
		m.keySeq++
		changed = append(changed, &domain.Document{
			Key:             fmt.Sprintf("mockdoc-%s-%d", m.sourceID, m.keySeq),
			SourceID:        m.sourceID,
			DocumentID:      id,
			DocumentVersion: doc.version,
		})
	}
	return changed, nil
}

func (m *MockDocumentSource) ChunksForDocument(ctx context.Context, doc *domain.Document) ([]*domain.Chunk, error) {
	if m.ChunksHook != nil {
		m.ChunksHook(doc)
	}

	m.mu.Lock()
	state, ok := m.docs[doc.DocumentID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	if state.err != nil {
		return nil, state.err
	}

	vectors, err := m.embedding.Embed(ctx, state.pages)
	if err != nil {
		return nil, err
	}

	chunks := make([]*domain.Chunk, len(state.pages))
	for i, text := range state.pages {
		m.mu.Lock()
		m.keySeq++
		key := fmt.Sprintf("mockchunk-%s-%d", m.sourceID, m.keySeq)
		m.mu.Unlock()
		chunks[i] = &domain.Chunk{
			Key:        key,
			DocumentID: doc.DocumentID,
			PageNumber: i + 1,
			Text:       text,
			ChunkIndex: i,
			Vector:     vectors[i],
		}
	}
	return chunks, nil
}
