package pdfdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driven/mocks"
)

func newTestSource(t *testing.T) (*Source, string) {
	t.Helper()

	dir := t.TempDir()
	source, err := New(dir, mocks.NewMockEmbeddingService(), nil, nil)
	require.NoError(t, err)
	return source, dir
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("not a real pdf"), 0o644))
}

func TestNew(t *testing.T) {
	t.Run("requires an existing directory", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "missing"), mocks.NewMockEmbeddingService(), nil, nil)
		require.Error(t, err)
	})

	t.Run("rejects a file path", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.pdf")

		_, err := New(filepath.Join(dir, "a.pdf"), mocks.NewMockEmbeddingService(), nil, nil)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("implements DocumentSource", func(t *testing.T) {
		source, _ := newTestSource(t)
		var _ driven.DocumentSource = source
	})
}

func TestSourceID(t *testing.T) {
	source, dir := newTestSource(t)

	id := source.SourceID()
	assert.Contains(t, id, "FileSystem:")

	// The same directory referenced through a relative segment yields
	// the same source ID.
	indirect, err := New(filepath.Join(dir, "..", filepath.Base(dir)), mocks.NewMockEmbeddingService(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, id, indirect.SourceID())
}

func TestNewOrModifiedDocuments(t *testing.T) {
	t.Run("enumerates pdf files only", func(t *testing.T) {
		source, dir := newTestSource(t)
		writeFile(t, dir, "a.pdf")
		writeFile(t, dir, "b.PDF")
		writeFile(t, dir, "notes.txt")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

		changed, err := source.NewOrModifiedDocuments(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, changed, 2)

		ids := []string{changed[0].DocumentID, changed[1].DocumentID}
		assert.ElementsMatch(t, []string{"a.pdf", "b.PDF"}, ids)
		for _, doc := range changed {
			assert.NotEmpty(t, doc.Key)
			assert.NotEmpty(t, doc.DocumentVersion)
			assert.Equal(t, source.SourceID(), doc.SourceID)
		}
	})

	t.Run("skips files whose version is already known", func(t *testing.T) {
		source, dir := newTestSource(t)
		writeFile(t, dir, "a.pdf")

		first, err := source.NewOrModifiedDocuments(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, first, 1)

		second, err := source.NewOrModifiedDocuments(context.Background(), first)
		require.NoError(t, err)
		assert.Empty(t, second)
	})

	t.Run("reports a modified file with a fresh key", func(t *testing.T) {
		source, dir := newTestSource(t)
		writeFile(t, dir, "a.pdf")

		first, err := source.NewOrModifiedDocuments(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, first, 1)

		// Push the mtime forward so the version string changes.
		later := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(dir, "a.pdf"), later, later))

		second, err := source.NewOrModifiedDocuments(context.Background(), first)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.NotEqual(t, first[0].Key, second[0].Key)
		assert.Greater(t, second[0].DocumentVersion, first[0].DocumentVersion)
	})
}

func TestDeletedDocuments(t *testing.T) {
	source, dir := newTestSource(t)
	writeFile(t, dir, "kept.pdf")

	known := []*domain.Document{
		{Key: "k1", SourceID: source.SourceID(), DocumentID: "kept.pdf", DocumentVersion: "v1"},
		{Key: "k2", SourceID: source.SourceID(), DocumentID: "gone.pdf", DocumentVersion: "v1"},
	}

	deleted, err := source.DeletedDocuments(context.Background(), known)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "gone.pdf", deleted[0].DocumentID)
}

func TestChunksForDocument_InvalidPDF(t *testing.T) {
	source, dir := newTestSource(t)
	writeFile(t, dir, "broken.pdf")

	doc := &domain.Document{
		Key:        "k1",
		SourceID:   source.SourceID(),
		DocumentID: "broken.pdf",
	}

	_, err := source.ChunksForDocument(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestVersionOrdering(t *testing.T) {
	// Version strings must sort lexicographically in time order.
	earlier := domain.FormatVersion(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	later := domain.FormatVersion(time.Date(2024, 3, 1, 10, 0, 0, 1, time.UTC))
	assert.Less(t, earlier, later)
}
