package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lumenlabs/insight-engine/internal/apperr"
)

// respondJSON writes v as the JSON response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the flat error shape used by retrieve/insights (§6) — no
// envelope wrapper, unlike the {success,error} bodies the auth, rate-limit
// and timeout middleware write.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondError maps err to its HTTP status via apperr.StatusFor and writes
// the flat error body. Errors without an apperr.Kind are treated as internal.
func respondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.StatusFor(kind)

	body := errorBody{Error: err.Error()}
	var appErr *apperr.Error
	if e, ok := err.(*apperr.Error); ok {
		appErr = e
	}
	if appErr != nil {
		body.Error = appErr.Message
		body.Details = appErr.Details
	}
	respondJSON(w, status, body)
}
