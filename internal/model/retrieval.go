package model

import (
	"encoding/json"
	"time"
)

// SourceTag identifies which retriever(s) contributed a FusedHit.
type SourceTag string

const (
	SourceDense          SourceTag = "dense"
	SourceLexical        SourceTag = "lexical"
	SourceHybrid         SourceTag = "hybrid"
	SourceDenseFallback  SourceTag = "dense_fallback"
	SourceLexicalFallback SourceTag = "lexical_fallback"
	SourceHybridFallback SourceTag = "hybrid_fallback"
)

// ChunkHit is a single retriever's result for one chunk. Dense hits carry a
// cosine similarity in [0,1]; lexical hits carry a nonnegative lexical rank.
type ChunkHit struct {
	ChunkID               string          `json:"chunkId"`
	DocumentID            string          `json:"documentId"`
	DocumentTitle         string          `json:"documentTitle"`
	DocumentType          string          `json:"documentType"`
	ChunkText             string          `json:"chunkText"`
	Order                 int             `json:"order"`
	Metadata              json.RawMessage `json:"metadata,omitempty"`
	Score                 float64         `json:"score"`
	TotalChunksInDocument int             `json:"totalChunksInDocument"`
}

// FusedHit is a ChunkHit enriched with fusion-stage bookkeeping.
type FusedHit struct {
	ChunkHit
	RRFScore         float64   `json:"rrfScore"`
	SemanticRank     *int      `json:"semanticRank,omitempty"`
	LexicalRank      *int      `json:"lexicalRank,omitempty"`
	RawSemanticScore *float64  `json:"rawSemanticScore,omitempty"`
	SourceTag        SourceTag `json:"sourceTag"`
}

// DocumentResult groups FusedHits under their parent document.
type DocumentResult struct {
	DocumentID       string     `json:"documentId"`
	DocumentTitle    string     `json:"documentTitle"`
	DocumentType     string     `json:"documentType"`
	Chunks           []FusedHit `json:"chunks"`
	BestRRFScore     float64    `json:"bestRrfScore"`
	BestRawSimilarity float64   `json:"bestRawSimilarity"`
	RelevanceDensity float64    `json:"relevanceDensity"`
}

// DateRange bounds a chunk-metadata date filter. Both ends are inclusive
// and optional.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Filters narrows a retrieval request by document identity, type, and date.
type Filters struct {
	DocumentIDs   []string   `json:"documentId,omitempty"`
	DocumentTypes []string   `json:"documentType,omitempty"`
	DateRange     *DateRange `json:"dateRange,omitempty"`
}

// Empty reports whether no filter criteria are set.
func (f *Filters) Empty() bool {
	if f == nil {
		return true
	}
	return len(f.DocumentIDs) == 0 && len(f.DocumentTypes) == 0 && f.DateRange == nil
}

// FallbackInfo describes whether and how the fallback controller broadened
// a retrieval request.
type FallbackInfo struct {
	Used             bool     `json:"used"`
	PrecisionResults int      `json:"precisionResults,omitempty"`
	FallbackResults  int      `json:"fallbackResults,omitempty"`
	TotalCombined    int      `json:"totalCombined,omitempty"`
	Threshold        *float64 `json:"threshold,omitempty"`
}

// PerformanceMetrics reports per-stage timing for a retrieval request.
// TotalSearchMs is the sum of the embedding, parallel-retrieval, fusion and
// grouping timings (back-compat; filtering and fallback time are not
// included); WallClockMs is the true elapsed time.
type PerformanceMetrics struct {
	EmbeddingGenerationMs int64 `json:"embeddingGenerationMs"`
	SemanticSearchMs      int64 `json:"semanticSearchMs"`
	KeywordSearchMs       int64 `json:"keywordSearchMs"`
	ParallelRetrievalMs   int64 `json:"parallelRetrievalMs"`
	RRFFusionMs           int64 `json:"rrfFusionMs"`
	DocumentGroupingMs    int64 `json:"documentGroupingMs"`
	TotalSearchMs         int64 `json:"totalSearchMs"`
	WallClockMs           int64 `json:"wallClockMs"`
	Partial               bool  `json:"partial,omitempty"`
}

// RetrieveRequest is the inbound shape for the retrieve operation (§6).
type RetrieveRequest struct {
	UserQuery          string    `json:"user_query"`
	Filters            *Filters  `json:"filters,omitempty"`
	Limit              *int      `json:"limit,omitempty"`
	MinSimilarity      *float64  `json:"min_similarity,omitempty"`
	IncludePublicOnly  *bool     `json:"include_public_only,omitempty"`
	EnableFallback     *bool     `json:"enable_fallback,omitempty"`
	EnableDensityCalc  *bool     `json:"enable_density_calc,omitempty"`
	Debug              *bool     `json:"debug,omitempty"`
}

// RetrieveResponse is the outbound shape for the retrieve operation (§6).
type RetrieveResponse struct {
	Results            []DocumentResult    `json:"results"`
	TotalDocuments     int                 `json:"total_documents"`
	TotalChunks        int                 `json:"total_chunks"`
	Query              string              `json:"query"`
	PerformanceMetrics PerformanceMetrics  `json:"performance_metrics"`
	FallbackInfo       FallbackInfo        `json:"fallback_info"`
}
