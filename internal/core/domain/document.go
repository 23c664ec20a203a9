package domain

import "time"

// VersionLayout is the fixed-width time layout used for document
// versions. Lexicographic order on the serialized string matches
// chronological order, which CleanupDuplicates relies on.
const VersionLayout = "2006-01-02T15:04:05.000000000Z"

// Document is the bookkeeping record for one ingested source document.
// DocumentID is intended to be unique within a source but the store
// does not enforce it; duplicates are a recognized runtime state that
// maintenance repairs.
type Document struct {
	Key             string `json:"key"`
	SourceID        string `json:"source_id"`
	DocumentID      string `json:"document_id"` // human identity, e.g. filename
	DocumentVersion string `json:"document_version"`
}

// Chunk is a bounded span of document text plus its embedding vector.
// Chunks reference their owning document by DocumentID, not by the
// document's Key. Duplicate document records share the same chunk set,
// so re-ingestion must clear chunks for every record with a matching
// DocumentID.
type Chunk struct {
	Key        string    `json:"key"`
	DocumentID string    `json:"document_id"`
	PageNumber int       `json:"page_number"` // 1-based source page
	Text       string    `json:"text"`
	ChunkIndex int       `json:"chunk_index"` // 0-based order within the document
	Vector     []float32 `json:"vector,omitempty"`
}

// ScoredChunk is a search result with its similarity score.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// FormatVersion serializes a modification time as a sortable version
// string.
func FormatVersion(t time.Time) string {
	return t.UTC().Format(VersionLayout)
}
