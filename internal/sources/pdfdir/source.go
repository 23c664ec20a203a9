// Package pdfdir implements a DocumentSource over a directory of PDF
// files. Document identity is the filename including extension; the
// version marker is the file modification time serialized as a
// sortable timestamp.
package pdfdir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/chunker"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// SourceKind prefixes the source identity string.
const SourceKind = "FileSystem"

// Verify interface compliance
var _ driven.DocumentSource = (*Source)(nil)

// Source reads PDFs from a single directory (non-recursive).
type Source struct {
	root      string
	embedding driven.EmbeddingService
	splitter  *chunker.Chunker
	logger    *slog.Logger
}

// New creates a Source rooted at dir. The directory must exist.
func New(dir string, embedding driven.EmbeddingService, splitter *chunker.Chunker, logger *slog.Logger) (*Source, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat source path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s: %w", root, domain.ErrInvalidInput)
	}

	if splitter == nil {
		splitter = chunker.New(0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		root:      root,
		embedding: embedding,
		splitter:  splitter,
		logger:    logger,
	}, nil
}

// SourceID returns "FileSystem:<normalized absolute path>".
func (s *Source) SourceID() string {
	return SourceKind + ":" + s.root
}

// Root returns the resolved absolute directory this source reads from.
func (s *Source) Root() string {
	return s.root
}

// DeletedDocuments returns known records whose backing file is gone.
func (s *Source) DeletedDocuments(ctx context.Context, known []*domain.Document) ([]*domain.Document, error) {
	var deleted []*domain.Document
	for _, doc := range known {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		_, err := os.Stat(filepath.Join(s.root, doc.DocumentID))
		if os.IsNotExist(err) {
			deleted = append(deleted, doc)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", doc.DocumentID, err)
		}
	}
	return deleted, nil
}

// NewOrModifiedDocuments enumerates the directory's PDFs and returns a
// fresh record for every file whose modification time is not already
// reflected by a known record.
func (s *Source) NewOrModifiedDocuments(ctx context.Context, known []*domain.Document) ([]*domain.Document, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	versions := make(map[string]map[string]struct{}, len(known))
	for _, doc := range known {
		if versions[doc.DocumentID] == nil {
			versions[doc.DocumentID] = make(map[string]struct{})
		}
		versions[doc.DocumentID][doc.DocumentVersion] = struct{}{}
	}

	sourceID := s.SourceID()
	var changed []*domain.Document
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}

		version := domain.FormatVersion(info.ModTime())
		if seen, ok := versions[entry.Name()]; ok {
			if _, same := seen[version]; same {
				continue
			}
		}

		changed = append(changed, &domain.Document{
			Key:             uuid.NewString(),
			SourceID:        sourceID,
			DocumentID:      entry.Name(),
			DocumentVersion: version,
		})
	}
	return changed, nil
}

// ChunksForDocument extracts the document's text page by page, splits
// each page into bounded chunks and embeds them in one batch.
func (s *Source) ChunksForDocument(ctx context.Context, doc *domain.Document) ([]*domain.Chunk, error) {
	pages, err := extractPages(filepath.Join(s.root, doc.DocumentID))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", doc.DocumentID, err)
	}

	var texts []string
	var pageNumbers []int
	for pageNumber, pageText := range pages {
		for _, text := range s.splitter.Split(pageText) {
			texts = append(texts, text)
			pageNumbers = append(pageNumbers, pageNumber+1)
		}
	}
	if len(texts) == 0 {
		s.logger.Warn("document has no extractable text", "document_id", doc.DocumentID)
		return nil, nil
	}

	vectors, err := s.embedding.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", doc.DocumentID, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks", doc.DocumentID, len(vectors), len(texts))
	}

	chunks := make([]*domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &domain.Chunk{
			Key:        uuid.NewString(),
			DocumentID: doc.DocumentID,
			PageNumber: pageNumbers[i],
			Text:       text,
			ChunkIndex: i,
			Vector:     vectors[i],
		}
	}

	s.logger.Debug("document chunked",
		"document_id", doc.DocumentID,
		"pages", len(pages),
		"chunks", len(chunks),
	)
	return chunks, nil
}
