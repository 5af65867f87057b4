// Package errs defines the error kinds shared by the retrieval core and the HTTP layer.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Callers wrap these with fmt.Errorf("...: %w", ...) and classify with errors.Is.
var (
	// ErrEmbeddingFailure means the embedding backend failed or rejected its input.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrDimensionMismatch means a vector does not match the established dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNotFound means a document id is out of range (index/store desynchronization).
	ErrNotFound = errors.New("not found")
	// ErrModelUnavailable means the language-model backend is unreachable or misconfigured.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrExtractionFailure means text could not be extracted from an uploaded document.
	ErrExtractionFailure = errors.New("extraction failure")
	// ErrTimeout means a backend call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrInvalidInput means the request itself is malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// Wrap tags err with kind. A context deadline is reported as ErrTimeout instead of kind,
// so callers can tell a slow backend from a failing one.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Retryable reports whether err may succeed on a later attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrDimensionMismatch), errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}
