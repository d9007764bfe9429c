// Package retrieval implements the hybrid dense+lexical retrieval and
// fusion pipeline (C1-C7): embed, search in parallel, fuse by Reciprocal
// Rank Fusion, filter, broaden on sparse results, and group by document.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumenlabs/insight-engine/internal/apperr"
	"github.com/lumenlabs/insight-engine/internal/model"
)

const (
	defaultTopK              = 20
	defaultSimilarityThreshold = 0.6
	defaultMinResultsThreshold = 3
	defaultRRFK              = 10.0
	fallbackThresholdFloor   = 0.3
	fallbackThresholdDrop    = 0.2
	defaultEmbeddingTimeout  = 5 * time.Second
	defaultMaxChunks         = 50
)

// QueryEmbedder turns a query string into a fixed-dimensional vector (C1).
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// DenseSearcher is the dense_search storage primitive (C2).
type DenseSearcher interface {
	SimilaritySearch(ctx context.Context, queryVec []float32, topK int, threshold float64, callerID string, publicOnly bool) ([]model.ChunkHit, error)
}

// LexicalSearcher is the lexical_search storage primitive (C3).
type LexicalSearcher interface {
	FullTextSearch(ctx context.Context, query string, topK int, callerID string, publicOnly bool) ([]model.ChunkHit, error)
}

// Params configures one retrieval request, mapping directly onto the
// retrieve() operation's request fields (spec §6).
type Params struct {
	CallerID          string
	Query             string
	Filters           *model.Filters
	Limit             int
	MinSimilarity     float64
	PublicOnly        bool
	EnableFallback    bool
	EnableDensityCalc bool
	Debug             bool
}

// Result is the composed output of the retrieval pipeline, ready to be
// wrapped into a RetrieveResponse by the request/response boundary (C13).
type Result struct {
	Documents    []model.DocumentResult
	TotalChunks  int
	FallbackInfo model.FallbackInfo
	Metrics      model.PerformanceMetrics
}

// Retriever wires the embedder and searchers into the full C1-C7 pipeline.
type Retriever struct {
	embedder QueryEmbedder
	dense    DenseSearcher
	lexical  LexicalSearcher
	rrfK     float64
	minResultsThreshold int
	embeddingTimeout    time.Duration
	defaultLimit        int
}

// New creates a Retriever. rrfK and minResultsThreshold default to the
// spec's recommended values (10 and 3) when zero; embeddingTimeout defaults
// to 5s (spec §4.1) when zero or negative, bounding the C1 embed call.
// defaultLimit (config.MaxChunks, MAX_CHUNKS) is the per-retriever topK used
// when a request omits limit; it defaults to 50 when zero or negative.
func New(embedder QueryEmbedder, dense DenseSearcher, lexical LexicalSearcher, rrfK float64, minResultsThreshold int, embeddingTimeout time.Duration, defaultLimit int) *Retriever {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}
	if minResultsThreshold <= 0 {
		minResultsThreshold = defaultMinResultsThreshold
	}
	if embeddingTimeout <= 0 {
		embeddingTimeout = defaultEmbeddingTimeout
	}
	if defaultLimit <= 0 {
		defaultLimit = defaultMaxChunks
	}
	return &Retriever{
		embedder:            embedder,
		dense:                dense,
		lexical:              lexical,
		rrfK:                 rrfK,
		minResultsThreshold:  minResultsThreshold,
		embeddingTimeout:     embeddingTimeout,
		defaultLimit:         defaultLimit,
	}
}

// Retrieve runs the full START -> EMBED -> RETRIEVE_PARALLEL -> FUSE ->
// FILTER -> (FALLBACK?) -> GROUP -> DONE state machine (§4.13).
func (r *Retriever) Retrieve(ctx context.Context, p Params) (*Result, error) {
	start := time.Now()
	if p.Query == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "user_query is required")
	}

	limit := p.Limit
	if limit <= 0 {
		limit = r.defaultLimit
	}
	threshold := p.MinSimilarity
	if threshold <= 0 {
		threshold = defaultSimilarityThreshold
	}

	embedStart := time.Now()
	embedCtx, embedCancel := context.WithTimeout(ctx, r.embeddingTimeout)
	queryVec, err := r.embedder.EmbedQuery(embedCtx, p.Query)
	embedCancel()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEmbeddingFailure, "embed query", err)
	}
	if len(queryVec) == 0 {
		return nil, apperr.New(apperr.KindEmbeddingFailure, "embedder returned an empty vector")
	}
	embeddingMs := time.Since(embedStart).Milliseconds()

	parallelStart := time.Now()
	denseHits, lexicalHits, semanticMs, keywordMs, partial, err := r.searchBoth(ctx, queryVec, p.Query, limit, threshold, p.CallerID, p.PublicOnly)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRetrievalFailure, "both retrievers failed", err)
	}
	parallelMs := time.Since(parallelStart).Milliseconds()

	fuseStart := time.Now()
	fused := Fuse(denseHits, lexicalHits, r.rrfK)
	fuseMs := time.Since(fuseStart).Milliseconds()

	filtered := ApplyFilters(fused, p.Filters)

	fallbackInfo := model.FallbackInfo{Used: false}
	if len(filtered) < r.minResultsThreshold && p.EnableFallback {
		fallbackHits, ferr := r.runFallback(ctx, queryVec, p.Query, threshold, p.CallerID, p.PublicOnly)
		if ferr != nil {
			slog.Warn("[RETRIEVAL] fallback failed, returning primary results", "error", ferr)
		} else {
			combined := unionByChunkID(filtered, fallbackHits)
			fallbackInfo = model.FallbackInfo{
				Used:             true,
				PrecisionResults: len(filtered),
				FallbackResults:  len(fallbackHits),
				TotalCombined:    len(combined),
				Threshold:        floatPtr(float64(r.minResultsThreshold)),
			}
			filtered = combined
		}
	}

	groupStart := time.Now()
	documents := Group(filtered, p.EnableDensityCalc)
	groupMs := time.Since(groupStart).Milliseconds()

	metrics := model.PerformanceMetrics{
		EmbeddingGenerationMs: embeddingMs,
		SemanticSearchMs:      semanticMs,
		KeywordSearchMs:       keywordMs,
		ParallelRetrievalMs:   parallelMs,
		RRFFusionMs:           fuseMs,
		DocumentGroupingMs:    groupMs,
		Partial:               partial,
	}
	metrics.TotalSearchMs = metrics.EmbeddingGenerationMs + metrics.ParallelRetrievalMs + metrics.RRFFusionMs + metrics.DocumentGroupingMs
	metrics.WallClockMs = time.Since(start).Milliseconds()

	totalChunks := 0
	for _, d := range documents {
		totalChunks += len(d.Chunks)
	}

	return &Result{
		Documents:    documents,
		TotalChunks:  totalChunks,
		FallbackInfo: fallbackInfo,
		Metrics:      metrics,
	}, nil
}

// searchBoth runs C2 and C3 concurrently via errgroup.WithContext, the same
// fan-out primitive the insight orchestrator uses. A single retriever
// failure must downgrade to the other side's list with partial=true (§7)
// rather than abort the whole request, so each g.Go func captures its error
// into an outer-scope variable and always returns nil — errgroup's own
// first-error cancellation never fires, but gCtx still carries cancellation
// from the caller down into both searches. Each branch is timed
// independently (§5: "measured independently and must not be serialized").
func (r *Retriever) searchBoth(ctx context.Context, queryVec []float32, query string, topK int, threshold float64, callerID string, publicOnly bool) (dense, lexical []model.ChunkHit, semanticMs, keywordMs int64, partial bool, err error) {
	var denseErr, lexicalErr error
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		denseStart := time.Now()
		dense, denseErr = r.dense.SimilaritySearch(gCtx, queryVec, topK, threshold, callerID, publicOnly)
		semanticMs = time.Since(denseStart).Milliseconds()
		return nil
	})
	g.Go(func() error {
		lexicalStart := time.Now()
		lexical, lexicalErr = r.lexical.FullTextSearch(gCtx, query, topK, callerID, publicOnly)
		keywordMs = time.Since(lexicalStart).Milliseconds()
		return nil
	})
	_ = g.Wait()

	if denseErr != nil && lexicalErr != nil {
		return nil, nil, semanticMs, keywordMs, false, fmt.Errorf("dense: %v; lexical: %v", denseErr, lexicalErr)
	}
	if denseErr != nil {
		slog.Warn("[RETRIEVAL] dense retriever failed, continuing with lexical only", "error", denseErr)
		return nil, lexical, semanticMs, keywordMs, true, nil
	}
	if lexicalErr != nil {
		slog.Warn("[RETRIEVAL] lexical retriever failed, continuing with dense only", "error", lexicalErr)
		return dense, nil, semanticMs, keywordMs, true, nil
	}
	return dense, lexical, semanticMs, keywordMs, false, nil
}

// runFallback re-runs C2+C3 with relaxed parameters (§4.6) and fuses,
// tagging every hit's source as a *_fallback variant.
func (r *Retriever) runFallback(ctx context.Context, queryVec []float32, query string, threshold float64, callerID string, publicOnly bool) ([]model.FusedHit, error) {
	relaxedThreshold := threshold - fallbackThresholdDrop
	if relaxedThreshold < fallbackThresholdFloor {
		relaxedThreshold = fallbackThresholdFloor
	}

	dense, lexical, _, _, _, err := r.searchBoth(ctx, queryVec, query, defaultTopK*2, relaxedThreshold, callerID, publicOnly)
	if err != nil {
		return nil, err
	}

	fused := Fuse(dense, lexical, r.rrfK)
	for i := range fused {
		switch fused[i].SourceTag {
		case model.SourceDense:
			fused[i].SourceTag = model.SourceDenseFallback
		case model.SourceLexical:
			fused[i].SourceTag = model.SourceLexicalFallback
		default:
			fused[i].SourceTag = model.SourceHybridFallback
		}
	}
	return fused, nil
}

// unionByChunkID merges fallback hits into the primary set, keyed by
// chunk_id, with primary entries kept on conflict (§4.6).
func unionByChunkID(primary, fallback []model.FusedHit) []model.FusedHit {
	seen := make(map[string]struct{}, len(primary))
	out := make([]model.FusedHit, 0, len(primary)+len(fallback))
	for _, h := range primary {
		seen[h.ChunkID] = struct{}{}
		out = append(out, h)
	}
	for _, h := range fallback {
		if _, ok := seen[h.ChunkID]; ok {
			continue
		}
		seen[h.ChunkID] = struct{}{}
		out = append(out, h)
	}
	return out
}

func floatPtr(f float64) *float64 { return &f }
