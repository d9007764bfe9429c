// Package apperr defines the error kinds the core can return and the HTTP
// status mapping for the request/response boundary (C13).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is an error category. Handlers map it to a status code via
// KindOf and StatusFor; the package defines Kind constants, not sentinel
// error values.
type Kind string

const (
	KindInvalidArgument  Kind = "InvalidArgument"
	KindUnauthorized     Kind = "Unauthorized"
	KindMethodNotAllowed Kind = "MethodNotAllowed"
	KindEmbeddingFailure Kind = "EmbeddingFailure"
	KindRetrievalFailure Kind = "RetrievalFailure"
	KindPartialRetrieval Kind = "PartialRetrieval"
	KindFilterError      Kind = "FilterError"
	KindLLMTimeout       Kind = "LLMTimeout"
	KindLLMError         Kind = "LLMError"
	KindCacheError       Kind = "CacheError"
)

// Error wraps an underlying cause with a Kind and optional details.
type Error struct {
	Kind    Kind
	Message string
	Details string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches a details string surfaced to the caller verbatim.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// KindOf extracts the Kind from err, defaulting to "" (treated as an
// unexpected/internal error) when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusFor maps a Kind to the HTTP status code per §6's Error status mapping.
func StatusFor(kind Kind) int {
	switch kind {
	case KindInvalidArgument, KindFilterError:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindEmbeddingFailure, KindRetrievalFailure, KindLLMError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
