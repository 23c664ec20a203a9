package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/vectors"
)

// Verify interface compliance
var _ driven.ChunkStore = (*chunkStore)(nil)

type chunkStore struct {
	store *Store
}

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

func (s *chunkStore) EnsureCollection(ctx context.Context) error {
	return s.store.initSchema()
}

func (s *chunkStore) Upsert(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, chunk := range chunks {
		if len(chunk.Vector) != s.store.dimensions {
			return fmt.Errorf("chunk %s: %w", chunk.Key, domain.ErrDimensionMismatch)
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (key, document_id, page_number, text, chunk_index, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			document_id = excluded.document_id,
			page_number = excluded.page_number,
			text = excluded.text,
			chunk_index = excluded.chunk_index,
			embedding = excluded.embedding
	`)
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
			vectors.Encode(chunk.Vector),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *chunkStore) DeleteByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	_, err := s.store.db.ExecContext(ctx, `DELETE FROM chunks WHERE key IN (`+placeholders+`)`, args...)
	return err
}

func (s *chunkStore) Query(ctx context.Context, filter driven.FieldFilter, limit int) ([]*domain.Chunk, error) {
	column, err := chunkColumn(filter.Field)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT key, document_id, page_number, text, chunk_index
		FROM chunks
		WHERE %s = ?
		ORDER BY document_id, chunk_index
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

// NearestNeighbors scans candidate rows and ranks them in-process by
// cosine similarity.
func (s *chunkStore) NearestNeighbors(ctx context.Context, vector []float32, k int, filter *driven.FieldFilter) ([]*domain.ScoredChunk, error) {
	if len(vector) != s.store.dimensions {
		return nil, domain.ErrDimensionMismatch
	}
	if k <= 0 {
		k = 10
	}

	query := `SELECT key, document_id, page_number, text, chunk_index, embedding FROM chunks`
	var args []any
	if filter != nil {
		column, err := chunkColumn(filter.Field)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" WHERE %s = ?", column)
		args = append(args, filter.Value)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scored []*domain.ScoredChunk
	for rows.Next() {
		var chunk domain.Chunk
		var blob []byte
		err := rows.Scan(
			&chunk.Key,
			&chunk.DocumentID,
			&chunk.PageNumber,
			&chunk.Text,
			&chunk.ChunkIndex,
			&blob,
		)
		if err != nil {
			return nil, err
		}
		embedding, err := vectors.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunk.Key, err)
		}
		scored = append(scored, &domain.ScoredChunk{
			Chunk: &chunk,
			Score: vectors.Cosine(vector, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
