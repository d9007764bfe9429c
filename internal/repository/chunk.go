package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/lumenlabs/insight-engine/internal/model"
)

// ChunkRepo implements the retrieval package's DenseSearcher using pgvector
// cosine similarity (C2).
type ChunkRepo struct {
	pool *pgxpool.Pool
}

// NewChunkRepo creates a ChunkRepo.
func NewChunkRepo(pool *pgxpool.Pool) *ChunkRepo {
	return &ChunkRepo{pool: pool}
}

// SeedChunk is a fixture row for BulkInsert, used by integration tests to
// populate the chunks table. The ingestion pipeline that produces this data
// in production is out of scope for this service.
type SeedChunk struct {
	DocumentID string
	Order      int
	Text       string
	Embedding  []float32
	Metadata   json.RawMessage
}

// BulkInsert stores chunks with their embedding vectors using pgx batching.
// Exercised by repository integration tests to seed fixture data; the
// production ingestion pipeline owns this table otherwise.
func (r *ChunkRepo) BulkInsert(ctx context.Context, chunks []SeedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()

	for _, c := range chunks {
		id := uuid.New().String()
		embedding := pgvector.NewVector(c.Embedding)
		meta := c.Metadata
		if meta == nil {
			meta = json.RawMessage("{}")
		}

		batch.Queue(`
			INSERT INTO chunks (id, document_id, chunk_order, content, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, c.DocumentID, c.Order, c.Text, embedding, meta, now,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("repository.BulkInsert: chunk %d: %w", i, err)
		}
	}

	return nil
}

// SimilaritySearch finds the top-K chunks most similar to queryVec using
// cosine distance (C2), restricted to indexed documents. Visibility follows
// spec §4.2/§4.3: a caller sees their own documents (d.owner_id = callerID)
// union public documents; an empty callerID (internal/anonymous caller, per
// spec §6's identity hook) sees only public documents, same as publicOnly.
func (r *ChunkRepo) SimilaritySearch(ctx context.Context, queryVec []float32, topK int, threshold float64, callerID string, publicOnly bool) ([]model.ChunkHit, error) {
	embedding := pgvector.NewVector(queryVec)

	query := `
		SELECT
			c.id, c.document_id, c.chunk_order, c.content, c.metadata,
			1 - (c.embedding <=> $1::vector) AS similarity,
			d.title, d.type, d.total_chunks
		FROM chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.status = 'indexed'
			AND (1 - (c.embedding <=> $1::vector)) > $2`

	args := []interface{}{embedding, threshold}

	if publicOnly || callerID == "" {
		query += ` AND d.is_public = true`
	} else {
		args = append(args, callerID)
		query += fmt.Sprintf(` AND (d.owner_id = $%d OR d.is_public = true)`, len(args))
	}

	args = append(args, topK)
	query += fmt.Sprintf(`
		ORDER BY c.embedding <=> $1::vector
		LIMIT $%d`, len(args))

	slog.Debug("[RETRIEVAL] executing dense similarity search",
		"top_k", topK,
		"threshold", threshold,
		"public_only", publicOnly,
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		slog.Error("[RETRIEVAL] dense similarity search failed", "error", err)
		return nil, fmt.Errorf("repository.SimilaritySearch: %w", err)
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
			return nil, fmt.Errorf("repository.SimilaritySearch: scan: %w", err)
		}
		results = append(results, hit)
	}

	slog.Debug("[RETRIEVAL] dense similarity search complete", "results_count", len(results))

	return results, nil
}

// CountByDocumentID returns the number of chunks stored for a document. The
// document grouper (C7) does not call it; it computes relevance density from
// the total_chunks value carried on each search hit.
func (r *ChunkRepo) CountByDocumentID(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository.CountByDocumentID: %w", err)
	}
	return count, nil
}
