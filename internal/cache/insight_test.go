package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lumenlabs/insight-engine/internal/model"
)

func newTestCache(t *testing.T) *InsightCache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, time.Hour)
}

func TestKey_SortsDocumentIDsDeterministically(t *testing.T) {
	a := Key(model.InsightDirectAnswer, "what is RAG", []string{"doc-2", "doc-1"})
	b := Key(model.InsightDirectAnswer, "what is RAG", []string{"doc-1", "doc-2"})
	if a != b {
		t.Errorf("Key() not order-independent: %q != %q", a, b)
	}
}

func TestKey_DifferentQueriesProduceDifferentKeys(t *testing.T) {
	a := Key(model.InsightDirectAnswer, "query one", []string{"doc-1"})
	b := Key(model.InsightDirectAnswer, "query two", []string{"doc-1"})
	if a == b {
		t.Error("Key() produced the same key for different queries")
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := Key(model.InsightAll, "what is RAG", []string{"doc-1"})

	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("expected miss before Put")
	}

	bundle := &model.InsightBundle{
		DirectAnswer: &model.DirectAnswer{AnswerMarkdown: "RAG combines retrieval and generation."},
	}
	c.Put(ctx, key, bundle)

	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.DirectAnswer == nil || got.DirectAnswer.AnswerMarkdown != bundle.DirectAnswer.AnswerMarkdown {
		t.Errorf("Get() = %+v, want round-tripped bundle", got)
	}
}

func TestCache_MissAfterTTLExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := New(client, time.Second)
	ctx := context.Background()
	key := Key(model.InsightAll, "q", nil)
	c.Put(ctx, key, &model.InsightBundle{})

	mr.FastForward(2 * time.Second)

	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected miss after TTL expiry")
	}
}
