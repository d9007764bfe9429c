package middleware

import (
	"net/http"
	"time"
)

// Timeout wraps a handler with an http.TimeoutHandler, bounding how long a
// request may run before the server gives up and returns a timeout error.
// /api/retrieve and /api/insights each get their own duration (C13) since
// insights calls an LLM and runs considerably longer than a retrieve-only
// request.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"success":false,"error":"request timeout"}`)
	}
}
