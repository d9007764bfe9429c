package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumenlabs/insight-engine/internal/apperr"
	"github.com/lumenlabs/insight-engine/internal/model"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	delay time.Duration
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.vec, f.err
}

type fakeDense struct {
	primary  []model.ChunkHit
	fallback []model.ChunkHit
	calls    int
	err      error
	lastTopK int
	delay    time.Duration
}

func (f *fakeDense) SimilaritySearch(ctx context.Context, queryVec []float32, topK int, threshold float64, callerID string, publicOnly bool) ([]model.ChunkHit, error) {
	f.calls++
	f.lastTopK = topK
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.calls == 1 {
		return f.primary, f.err
	}
	return f.fallback, f.err
}

type fakeLexical struct {
	lastTopK int
	delay    time.Duration
}

func (f *fakeLexical) FullTextSearch(ctx context.Context, query string, topK int, callerID string, publicOnly bool) ([]model.ChunkHit, error) {
	f.lastTopK = topK
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return nil, nil
}

func TestRetrieve_EmptyQueryIsInvalidArgument(t *testing.T) {
	r := New(&fakeEmbedder{vec: []float32{1}}, &fakeDense{}, &fakeLexical{}, 10, 3, 0, 0)
	_, err := r.Retrieve(context.Background(), Params{Query: ""})
	if apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatalf("err kind = %v, want InvalidArgument", apperr.KindOf(err))
	}
}

func TestRetrieve_EmbeddingFailureIsFatal(t *testing.T) {
	r := New(&fakeEmbedder{err: errors.New("boom")}, &fakeDense{}, &fakeLexical{}, 10, 3, 0, 0)
	_, err := r.Retrieve(context.Background(), Params{Query: "hello"})
	if apperr.KindOf(err) != apperr.KindEmbeddingFailure {
		t.Fatalf("err kind = %v, want EmbeddingFailure", apperr.KindOf(err))
	}
}

func TestRetrieve_FallbackTriggersOnSparseResults(t *testing.T) {
	primary := []model.ChunkHit{
		{ChunkID: "c1", DocumentID: "d1", Score: 0.9, TotalChunksInDocument: 1},
	}
	fallback := make([]model.ChunkHit, 0, 8)
	for i := 0; i < 8; i++ {
		fallback = append(fallback, model.ChunkHit{
			ChunkID:               "fb-" + string(rune('a'+i)),
			DocumentID:            "d" + string(rune('2'+(i%3))),
			Score:                 0.5,
			TotalChunksInDocument: 10,
		})
	}

	dense := &fakeDense{primary: primary, fallback: fallback}
	r := New(&fakeEmbedder{vec: []float32{1, 0}}, dense, &fakeLexical{}, 10, 3, 0, 0)

	result, err := r.Retrieve(context.Background(), Params{
		Query:          "revenue",
		Limit:          50,
		EnableFallback: true,
	})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if !result.FallbackInfo.Used {
		t.Fatal("expected fallback_info.used = true")
	}
	if result.FallbackInfo.PrecisionResults != 1 {
		t.Errorf("PrecisionResults = %d, want 1", result.FallbackInfo.PrecisionResults)
	}
	if result.FallbackInfo.FallbackResults != 8 {
		t.Errorf("FallbackResults = %d, want 8", result.FallbackInfo.FallbackResults)
	}
	if len(result.Documents) != 4 {
		t.Errorf("len(Documents) = %d, want 4", len(result.Documents))
	}
}

func TestRetrieve_NoFallbackWhenDisabled(t *testing.T) {
	primary := []model.ChunkHit{{ChunkID: "c1", DocumentID: "d1"}}
	dense := &fakeDense{primary: primary}
	r := New(&fakeEmbedder{vec: []float32{1}}, dense, &fakeLexical{}, 10, 3, 0, 0)

	result, err := r.Retrieve(context.Background(), Params{Query: "q", EnableFallback: false})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if result.FallbackInfo.Used {
		t.Error("expected fallback_info.used = false when disabled")
	}
	if dense.calls != 1 {
		t.Errorf("dense.calls = %d, want 1 (no fallback call)", dense.calls)
	}
}

func TestRetrieve_RequestLimitIsThreadedToSearchers(t *testing.T) {
	dense := &fakeDense{}
	lexical := &fakeLexical{}
	r := New(&fakeEmbedder{vec: []float32{1}}, dense, lexical, 10, 3, 0, 0)

	_, err := r.Retrieve(context.Background(), Params{Query: "q", Limit: 7})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if dense.lastTopK != 7 {
		t.Errorf("dense topK = %d, want 7 (request limit)", dense.lastTopK)
	}
	if lexical.lastTopK != 7 {
		t.Errorf("lexical topK = %d, want 7 (request limit)", lexical.lastTopK)
	}
}

func TestRetrieve_MissingLimitFallsBackToConfiguredDefault(t *testing.T) {
	dense := &fakeDense{}
	lexical := &fakeLexical{}
	r := New(&fakeEmbedder{vec: []float32{1}}, dense, lexical, 10, 3, 0, 25)

	_, err := r.Retrieve(context.Background(), Params{Query: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if dense.lastTopK != 25 {
		t.Errorf("dense topK = %d, want 25 (configured default limit)", dense.lastTopK)
	}
}

func TestRetrieve_SemanticAndKeywordDurationsMeasuredIndependently(t *testing.T) {
	dense := &fakeDense{delay: 20 * time.Millisecond}
	lexical := &fakeLexical{delay: 40 * time.Millisecond}
	r := New(&fakeEmbedder{vec: []float32{1}}, dense, lexical, 10, 3, 0, 0)

	result, err := r.Retrieve(context.Background(), Params{Query: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if result.Metrics.SemanticSearchMs == 0 {
		t.Error("SemanticSearchMs should be measured, got 0")
	}
	if result.Metrics.KeywordSearchMs == 0 {
		t.Error("KeywordSearchMs should be measured, got 0")
	}
	if result.Metrics.SemanticSearchMs == result.Metrics.KeywordSearchMs {
		t.Error("dense (20ms) and lexical (40ms) delays should not produce identical durations")
	}
	// The two searches run concurrently, so the combined wall-clock should be
	// far less than the sum of both delays (serialized would be ~60ms+).
	if result.Metrics.ParallelRetrievalMs > 55 {
		t.Errorf("ParallelRetrievalMs = %d, searches should overlap, not serialize", result.Metrics.ParallelRetrievalMs)
	}
}

func TestRetrieve_EmbedTimeoutIsEnforced(t *testing.T) {
	r := New(&fakeEmbedder{vec: []float32{1}, delay: 50 * time.Millisecond}, &fakeDense{}, &fakeLexical{}, 10, 3, 10*time.Millisecond, 0)

	_, err := r.Retrieve(context.Background(), Params{Query: "q"})
	if apperr.KindOf(err) != apperr.KindEmbeddingFailure {
		t.Fatalf("err kind = %v, want EmbeddingFailure (embed call should time out)", apperr.KindOf(err))
	}
}
