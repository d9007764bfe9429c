package handler

import (
	"net/http"

	"github.com/lumenlabs/insight-engine/internal/apperr"
	"github.com/lumenlabs/insight-engine/internal/middleware"
	"github.com/lumenlabs/insight-engine/internal/model"
	"github.com/lumenlabs/insight-engine/internal/retrieval"
)

// Retrieve returns the handler for POST /api/retrieve (C13): decodes a
// RetrieveRequest, runs the C1-C7 pipeline, and writes a RetrieveResponse.
// metrics may be nil (e.g. in tests); when set, a fallback (C6) increments
// FallbackTriggers.
func Retrieve(retriever *retrieval.Retriever, metrics *middleware.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, apperr.New(apperr.KindMethodNotAllowed, "method not allowed"))
			return
		}

		var req model.RetrieveRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}

		params := retrieval.Params{
			CallerID:          middleware.UserIDFromContext(r.Context()),
			Query:             req.UserQuery,
			Filters:           req.Filters,
			EnableFallback:    true,
			EnableDensityCalc: boolOr(req.EnableDensityCalc, true),
			Debug:             boolOr(req.Debug, false),
		}
		if req.EnableFallback != nil {
			params.EnableFallback = *req.EnableFallback
		}
		if req.Limit != nil {
			params.Limit = *req.Limit
		}
		if req.MinSimilarity != nil {
			params.MinSimilarity = *req.MinSimilarity
		}
		if req.IncludePublicOnly != nil {
			params.PublicOnly = *req.IncludePublicOnly
		}

		result, err := retriever.Retrieve(r.Context(), params)
		if err != nil {
			respondError(w, err)
			return
		}

		if metrics != nil && result.FallbackInfo.Used {
			metrics.IncrementFallbackTrigger()
		}

		resp := model.RetrieveResponse{
			Results:            result.Documents,
			TotalDocuments:     len(result.Documents),
			TotalChunks:        result.TotalChunks,
			Query:              req.UserQuery,
			PerformanceMetrics: result.Metrics,
			FallbackInfo:       result.FallbackInfo,
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
