// Package sqlite implements the vector store collections on an
// embedded SQLite database. Embeddings are stored as little-endian
// float32 blobs and similarity is computed in-process, which is fine
// at the corpus sizes a single directory of PDFs produces.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    key              TEXT PRIMARY KEY,
    source_id        TEXT NOT NULL,
    document_id      TEXT NOT NULL,
    document_version TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_source_id ON documents (source_id);
CREATE INDEX IF NOT EXISTS idx_documents_document_id ON documents (document_id);

CREATE TABLE IF NOT EXISTS chunks (
    key         TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    page_number INTEGER NOT NULL,
    text        TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    embedding   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks (document_id);
`

// Store owns the database handle shared by both collection adapters.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int
}

// NewStore opens (creating if needed) the database at dataDir.
// dimensions is the required vector length for upserted chunks.
func NewStore(dataDir string, dimensions int) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "docrag.db")

	// WAL mode keeps searches readable during an ingestion pass.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &Store{db: db, path: dbPath, dimensions: dimensions}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns the chunks collection backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// DocumentStore returns the documents collection backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}
