package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore on PostgreSQL/pgvector.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore.
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// chunkColumn maps a filter field to its column. Only the closed field
// set is accepted.
func chunkColumn(field string) (string, error) {
	switch field {
	case driven.FieldKey:
		return "key", nil
	case driven.FieldDocumentID:
		return "document_id", nil
	default:
		return "", fmt.Errorf("chunk filter %q: %w", field, domain.ErrInvalidFilter)
	}
}

// EnsureCollection creates the chunks table if absent.
func (s *ChunkStore) EnsureCollection(ctx context.Context) error {
	return s.db.InitSchema(ctx)
}

// Upsert inserts or replaces chunks by key in one transaction.
func (s *ChunkStore) Upsert(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, chunk := range chunks {
		if len(chunk.Vector) != s.db.Dimensions() {
			return fmt.Errorf("chunk %s: %w", chunk.Key, domain.ErrDimensionMismatch)
		}
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO chunks (key, document_id, page_number, text, chunk_index, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (key) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				page_number = EXCLUDED.page_number,
				text = EXCLUDED.text,
				chunk_index = EXCLUDED.chunk_index,
				embedding = EXCLUDED.embedding
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			_, err = stmt.ExecContext(ctx,
				chunk.Key,
				chunk.DocumentID,
				chunk.PageNumber,
				chunk.Text,
				chunk.ChunkIndex,
				pgvector.NewVector(chunk.Vector),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteByKeys removes chunks by key. Missing keys are ignored.
func (s *ChunkStore) DeleteByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = key
	}

	query := `DELETE FROM chunks WHERE key IN (` + strings.Join(placeholders, ",") + `)`
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Query returns chunks matching the filter, in chunk order. Vectors
// are not loaded.
func (s *ChunkStore) Query(ctx context.Context, filter driven.FieldFilter, limit int) ([]*domain.Chunk, error) {
	column, err := chunkColumn(filter.Field)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT key, document_id, page_number, text, chunk_index
		FROM chunks
		WHERE %s = $1
		ORDER BY document_id, chunk_index
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

	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		err := rows.Scan(
			&chunk.Key,
			&chunk.DocumentID,
			&chunk.PageNumber,
			&chunk.Text,
			&chunk.ChunkIndex,
		)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// NearestNeighbors returns up to k chunks by descending cosine
// similarity, computed by pgvector's <=> operator.
func (s *ChunkStore) NearestNeighbors(ctx context.Context, vector []float32, k int, filter *driven.FieldFilter) ([]*domain.ScoredChunk, error) {
	if len(vector) != s.db.Dimensions() {
		return nil, domain.ErrDimensionMismatch
	}
	if k <= 0 {
		k = 10
	}

	query := `
		SELECT key, document_id, page_number, text, chunk_index,
		       1 - (embedding <=> $1) AS score
		FROM chunks
	`
	args := []any{pgvector.NewVector(vector)}
	if filter != nil {
		column, err := chunkColumn(filter.Field)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" WHERE %s = $2", column)
		args = append(args, filter.Value)
	}
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT %d", k)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scored []*domain.ScoredChunk
	for rows.Next() {
		var chunk domain.Chunk
		var score float64
		err := rows.Scan(
			&chunk.Key,
			&chunk.DocumentID,
			&chunk.PageNumber,
			&chunk.Text,
			&chunk.ChunkIndex,
			&score,
		)
		if err != nil {
			return nil, err
		}
		scored = append(scored, &domain.ScoredChunk{Chunk: &chunk, Score: score})
	}
	return scored, rows.Err()
}
