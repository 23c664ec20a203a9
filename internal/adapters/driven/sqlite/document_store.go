package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*documentStore)(nil)

type documentStore struct {
	store *Store
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

func (s *documentStore) EnsureCollection(ctx context.Context) error {
	return s.store.initSchema()
}

func (s *documentStore) Upsert(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (key, source_id, document_id, document_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			source_id = excluded.source_id,
			document_id = excluded.document_id,
			document_version = excluded.document_version
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, doc := range docs {
		_, err = stmt.ExecContext(ctx, doc.Key, doc.SourceID, doc.DocumentID, doc.DocumentVersion)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *documentStore) DeleteByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	_, err := s.store.db.ExecContext(ctx, `DELETE FROM documents WHERE key IN (`+placeholders+`)`, args...)
	return err
}

func (s *documentStore) Query(ctx context.Context, filter driven.FieldFilter, limit int) ([]*domain.Document, error) {
	column, err := documentColumn(filter.Field)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT key, source_id, document_id, document_version
		FROM documents
		WHERE %s = ?
		ORDER BY document_id
	`, column)
	args := []any{filter.Value}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.Key, &doc.SourceID, &doc.DocumentID, &doc.DocumentVersion); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (s *documentStore) ListSourceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT DISTINCT source_id FROM documents ORDER BY source_id`)
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
