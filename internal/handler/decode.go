package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/lumenlabs/insight-engine/internal/apperr"
)

// decodeJSON strictly decodes r's body into dst. Unknown fields and
// type-mismatched values (e.g. a string where include_public_only expects a
// bool) are rejected as InvalidArgument rather than silently coerced —
// resolves spec.md's Open Question on include_public_only's *bool parsing.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return apperr.New(apperr.KindInvalidArgument, "request body is required")
		}
		return apperr.Wrap(apperr.KindInvalidArgument, "invalid request body", err)
	}
	if dec.More() {
		return apperr.New(apperr.KindInvalidArgument, "request body must contain a single JSON object")
	}
	return nil
}
