package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore on PostgreSQL.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func documentColumn(field string) (string, error) {
	switch field {
	case driven.FieldKey:
		return "key", nil
	case driven.FieldDocumentID:
		return "document_id", nil
	case driven.FieldSourceID:
		return "source_id", nil
	default:
		return "", fmt.Errorf("document filter %q: %w", field, domain.ErrInvalidFilter)
	}
}

// EnsureCollection creates the documents table if absent.
func (s *DocumentStore) EnsureCollection(ctx context.Context) error {
	return s.db.InitSchema(ctx)
}

// Upsert inserts or replaces document records by key.
func (s *DocumentStore) Upsert(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO documents (key, source_id, document_id, document_version)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (key) DO UPDATE SET
				source_id = EXCLUDED.source_id,
				document_id = EXCLUDED.document_id,
				document_version = EXCLUDED.document_version
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, doc := range docs {
			_, err = stmt.ExecContext(ctx,
				doc.Key,
				doc.SourceID,
				doc.DocumentID,
				doc.DocumentVersion,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteByKeys removes document records by key. Missing keys are
// ignored.
func (s *DocumentStore) DeleteByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = key
	}

	query := `DELETE FROM documents WHERE key IN (` + strings.Join(placeholders, ",") + `)`
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Query returns document records matching the filter.
func (s *DocumentStore) Query(ctx context.Context, filter driven.FieldFilter, limit int) ([]*domain.Document, error) {
	column, err := documentColumn(filter.Field)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT key, source_id, document_id, document_version
		FROM documents
		WHERE %s = $1
		ORDER BY document_id
	`, column)
	args := []any{filter.Value}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		err := rows.Scan(
			&doc.Key,
			&doc.SourceID,
			&doc.DocumentID,
			&doc.DocumentVersion,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// ListSourceIDs returns the distinct source IDs recorded in the
// collection.
func (s *DocumentStore) ListSourceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source_id FROM documents ORDER BY source_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
