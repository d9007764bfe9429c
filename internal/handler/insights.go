package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lumenlabs/insight-engine/internal/apperr"
	"github.com/lumenlabs/insight-engine/internal/cache"
	"github.com/lumenlabs/insight-engine/internal/insight"
	"github.com/lumenlabs/insight-engine/internal/middleware"
	"github.com/lumenlabs/insight-engine/internal/model"
)

// HistoryAppender persists the history_append storage primitive (§6). A nil
// appender disables history recording entirely.
type HistoryAppender interface {
	Append(ctx context.Context, callerID, query string, documentIDs []string, bundle json.RawMessage)
}

// Insights returns the handler for POST /api/insights (C13): resolves the
// cache key (C12), dispatches the C8-C11 generation pipeline on a miss, and
// writes an InsightsResponse.
func Insights(orchestrator *insight.Orchestrator, insightCache *cache.InsightCache, history HistoryAppender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, apperr.New(apperr.KindMethodNotAllowed, "method not allowed"))
			return
		}

		var req model.InsightsRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		if req.UserQuery == "" {
			respondError(w, apperr.New(apperr.KindInvalidArgument, "user_query is required"))
			return
		}

		insightType := req.InsightType
		if insightType == "" {
			insightType = model.InsightAll
		}

		key := req.CacheKey
		cacheKey := ""
		if key != nil && *key != "" {
			cacheKey = *key
		} else {
			cacheKey = cache.Key(insightType, req.UserQuery, documentIDs(req.Documents))
		}

		if insightCache != nil {
			if bundle, ok := insightCache.Get(r.Context(), cacheKey); ok {
				bundle.CacheKey = cacheKey
				respondJSON(w, http.StatusOK, model.InsightsResponse{InsightBundle: *bundle, Cached: true})
				return
			}
		}

		bundle, breakdown, err := orchestrator.Generate(r.Context(), req.UserQuery, req.Documents, insightType)
		if err != nil {
			respondError(w, err)
			return
		}
		bundle.CacheKey = cacheKey

		if insightCache != nil {
			insightCache.Put(r.Context(), cacheKey, bundle)
		}

		resp := model.InsightsResponse{InsightBundle: *bundle, Cached: false}
		resp.PerformanceMetrics.Breakdown = breakdown

		if history != nil {
			if raw, err := json.Marshal(bundle); err == nil {
				callerID := middleware.UserIDFromContext(r.Context())
				go history.Append(context.Background(), callerID, req.UserQuery, documentIDs(req.Documents), raw)
			}
		}

		respondJSON(w, http.StatusOK, resp)
	}
}

func documentIDs(docs []model.DocumentResult) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocumentID
	}
	return ids
}
