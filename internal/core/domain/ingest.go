package domain

import "time"

// IngestStats counts the work performed by one ingestion pass. The
// document counters count logical documents (distinct document IDs),
// not store records: removing a document that had accumulated
// duplicate records still counts as one deletion.
type IngestStats struct {
	DocumentsAdded   int `json:"documents_added"`
	DocumentsUpdated int `json:"documents_updated"`
	DocumentsDeleted int `json:"documents_deleted"`
	ChunksIndexed    int `json:"chunks_indexed"`
	Errors           int `json:"errors"`
}

// DocumentError records a per-document failure inside a pass.
// Failures are isolated: one document's extraction or embedding error
// does not abort the remaining documents.
type DocumentError struct {
	DocumentID string `json:"document_id"`
	Err        string `json:"error"`
}

// IngestResult is the outcome of one ingestion pass over a source.
type IngestResult struct {
	SourceID        string          `json:"source_id"`
	Stats           IngestStats     `json:"stats"`
	FailedDocuments []DocumentError `json:"failed_documents,omitempty"`
	Duration        time.Duration   `json:"duration"`
}
