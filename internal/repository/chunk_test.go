package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupChunkRepo(t *testing.T) (*ChunkRepo, *pgxpool.Pool, func()) {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO documents (id, title, type, owner_id, is_public, status, total_chunks)
		VALUES ('doc-test-chunk', 'Test Document', 'report', 'caller-owner', true, 'indexed', 2)
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		pool.Close()
		t.Fatalf("seed document: %v", err)
	}

	return NewChunkRepo(pool), pool, func() { pool.Close() }
}

func TestChunkRepo_SimilaritySearch_ReturnsAboveThreshold(t *testing.T) {
	repo, _, teardown := setupChunkRepo(t)
	defer teardown()

	ctx := context.Background()
	vec := make([]float32, 384)
	vec[0] = 1.0

	err := repo.BulkInsert(ctx, []SeedChunk{
		{DocumentID: "doc-test-chunk", Order: 0, Text: "quarterly revenue grew", Embedding: vec, Metadata: json.RawMessage(`{}`)},
	})
	if err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	hits, err := repo.SimilaritySearch(ctx, vec, 10, 0.5, "", false)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].Score < 0.99 {
		t.Errorf("Score = %f, want near 1.0 for identical vector", hits[0].Score)
	}
}

func TestChunkRepo_SimilaritySearch_PublicOnlyExcludesPrivate(t *testing.T) {
	repo, pool, teardown := setupChunkRepo(t)
	defer teardown()

	ctx := context.Background()
	if _, err := pool.Exec(ctx, `
		INSERT INTO documents (id, title, type, owner_id, is_public, status, total_chunks)
		VALUES ('doc-test-private', 'Private Document', 'report', 'caller-a', false, 'indexed', 1)
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		t.Fatalf("seed private document: %v", err)
	}

	vec := make([]float32, 384)
	vec[1] = 1.0
	if err := repo.BulkInsert(ctx, []SeedChunk{
		{DocumentID: "doc-test-private", Order: 0, Text: "confidential figures", Embedding: vec},
	}); err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	hits, err := repo.SimilaritySearch(ctx, vec, 10, 0.5, "", true)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	for _, h := range hits {
		if h.DocumentID == "doc-test-private" {
			t.Error("public_only search returned a private document's chunk")
		}
	}
}

func TestChunkRepo_SimilaritySearch_OwnerSeesOwnPrivateDocument(t *testing.T) {
	repo, pool, teardown := setupChunkRepo(t)
	defer teardown()

	ctx := context.Background()
	if _, err := pool.Exec(ctx, `
		INSERT INTO documents (id, title, type, owner_id, is_public, status, total_chunks)
		VALUES ('doc-test-owned', 'Owner Document', 'report', 'caller-a', false, 'indexed', 1)
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		t.Fatalf("seed owned document: %v", err)
	}

	vec := make([]float32, 384)
	vec[2] = 1.0
	if err := repo.BulkInsert(ctx, []SeedChunk{
		{DocumentID: "doc-test-owned", Order: 0, Text: "owner-only figures", Embedding: vec},
	}); err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	hits, err := repo.SimilaritySearch(ctx, vec, 10, 0.5, "caller-a", false)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	found := false
	for _, h := range hits {
		if h.DocumentID == "doc-test-owned" {
			found = true
		}
	}
	if !found {
		t.Error("caller-a should see their own private document")
	}
}

func TestChunkRepo_SimilaritySearch_ExcludesOtherCallersPrivateDocument(t *testing.T) {
	repo, pool, teardown := setupChunkRepo(t)
	defer teardown()

	ctx := context.Background()
	if _, err := pool.Exec(ctx, `
		INSERT INTO documents (id, title, type, owner_id, is_public, status, total_chunks)
		VALUES ('doc-test-other-owner', 'Other Owner Document', 'report', 'caller-a', false, 'indexed', 1)
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		t.Fatalf("seed other-owner document: %v", err)
	}

	vec := make([]float32, 384)
	vec[3] = 1.0
	if err := repo.BulkInsert(ctx, []SeedChunk{
		{DocumentID: "doc-test-other-owner", Order: 0, Text: "caller-a's private figures", Embedding: vec},
	}); err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	hits, err := repo.SimilaritySearch(ctx, vec, 10, 0.5, "caller-b", false)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	for _, h := range hits {
		if h.DocumentID == "doc-test-other-owner" {
			t.Error("cross-tenant leak: caller-b saw caller-a's private document")
		}
	}
}

func TestChunkRepo_SimilaritySearch_EmptyCallerIDSeesOnlyPublic(t *testing.T) {
	repo, pool, teardown := setupChunkRepo(t)
	defer teardown()

	ctx := context.Background()
	if _, err := pool.Exec(ctx, `
		INSERT INTO documents (id, title, type, owner_id, is_public, status, total_chunks)
		VALUES ('doc-test-anon-private', 'Anon-Excluded Document', 'report', 'caller-a', false, 'indexed', 1)
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		t.Fatalf("seed document: %v", err)
	}

	vec := make([]float32, 384)
	vec[4] = 1.0
	if err := repo.BulkInsert(ctx, []SeedChunk{
		{DocumentID: "doc-test-anon-private", Order: 0, Text: "private to caller-a", Embedding: vec},
	}); err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	hits, err := repo.SimilaritySearch(ctx, vec, 10, 0.5, "", false)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	for _, h := range hits {
		if h.DocumentID == "doc-test-anon-private" {
			t.Error("empty callerID (internal/anonymous) should not see private documents")
		}
	}
}
