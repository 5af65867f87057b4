package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(ErrEmbeddingFailure, nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	err := Wrap(ErrEmbeddingFailure, errors.New("bad utf-8"))
	if !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("expected ErrEmbeddingFailure, got %v", err)
	}
	err = Wrap(ErrModelUnavailable, fmt.Errorf("call: %w", context.DeadlineExceeded))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if errors.Is(err, ErrModelUnavailable) {
		t.Error("deadline should not be reported as ErrModelUnavailable")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dimension mismatch", fmt.Errorf("ingest: %w", ErrDimensionMismatch), false},
		{"not found", fmt.Errorf("get: %w", ErrNotFound), false},
		{"canceled", context.Canceled, false},
		{"embedding", Wrap(ErrEmbeddingFailure, errors.New("503")), true},
		{"timeout", Wrap(ErrEmbeddingFailure, context.DeadlineExceeded), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
