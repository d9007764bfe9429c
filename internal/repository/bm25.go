package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenlabs/insight-engine/internal/model"
)

// BM25Repository implements the retrieval package's LexicalSearcher using
// PostgreSQL ts_vector (C3). Relies on a GIN index on chunks.content_tsv.
type BM25Repository struct {
	pool *pgxpool.Pool
}

// NewBM25Repository creates a BM25Repository.
func NewBM25Repository(pool *pgxpool.Pool) *BM25Repository {
	return &BM25Repository{pool: pool}
}

// FullTextSearch finds chunks matching query via PostgreSQL full-text
// search (C3), restricted to indexed documents. The rank produced by
// ts_rank_cd has no fixed upper bound; fusion treats it only as an
// ordering, never comparing it against the dense similarity score.
// Visibility matches SimilaritySearch: caller's own documents union public
// documents, or public-only for an empty callerID or when publicOnly is set.
func (r *BM25Repository) FullTextSearch(ctx context.Context, query string, topK int, callerID string, publicOnly bool) ([]model.ChunkHit, error) {
	sqlQuery := `
		SELECT c.id, c.document_id, c.chunk_order, c.content, c.metadata,
		       ts_rank_cd(c.content_tsv, plainto_tsquery('english', $1)) AS rank,
		       d.title, d.type, d.total_chunks
		FROM chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.status = 'indexed'
		  AND c.content_tsv @@ plainto_tsquery('english', $1)`

	args := []interface{}{query}

	if publicOnly || callerID == "" {
		sqlQuery += ` AND d.is_public = true`
	} else {
		args = append(args, callerID)
		sqlQuery += fmt.Sprintf(` AND (d.owner_id = $%d OR d.is_public = true)`, len(args))
	}

	args = append(args, topK)
	sqlQuery += fmt.Sprintf(`
		ORDER BY rank DESC
		LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.FullTextSearch: %w", err)
	}
	defer rows.Close()

	var results []model.ChunkHit
	for rows.Next() {
		var hit model.ChunkHit
		err := rows.Scan(
			&hit.ChunkID, &hit.DocumentID, &hit.Order, &hit.ChunkText, &hit.Metadata,
			&hit.Score, &hit.DocumentTitle, &hit.DocumentType, &hit.TotalChunksInDocument,
		)
		if err != nil {
			return nil, fmt.Errorf("repository.FullTextSearch: scan: %w", err)
		}
		results = append(results, hit)
	}

	slog.Debug("[RETRIEVAL] lexical full-text search complete", "results_count", len(results), "top_k", topK)

	return results, nil
}
