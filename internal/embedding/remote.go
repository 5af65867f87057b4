package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoembed "github.com/cloudwego/eino/components/embedding"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/pkg/utils"
	"golang.org/x/time/rate"
)

// RemoteConfig configures an embedder backed by an OpenAI-compatible embeddings API.
type RemoteConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds each request. Zero disables the per-request bound.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
	// RetryBaseDelay is doubled per attempt and capped at 5s. Defaults to 200ms.
	RetryBaseDelay time.Duration
	// BatchSize caps the number of texts per request. Defaults to 64.
	BatchSize int
	// RequestsPerSecond limits outgoing requests. Zero means unlimited.
	RequestsPerSecond float64
}

// RemoteEmbedder calls an eino embedding component with a per-request timeout,
// bounded retries and a client-side rate limit. Returned vectors are L2-normalized.
type RemoteEmbedder struct {
	client     einoembed.Embedder
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	batchSize  int

	mu         sync.Mutex
	dimensions int
}

// NewOpenAIEmbedder creates a RemoteEmbedder over the eino OpenAI embedding component.
func NewOpenAIEmbedder(ctx context.Context, cfg RemoteConfig) (*RemoteEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	client, err := openaiembed.NewEmbedder(ctx, &openaiembed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	return NewRemoteEmbedder(client, cfg), nil
}

// NewRemoteEmbedder wraps any eino embedding component.
func NewRemoteEmbedder(client einoembed.Embedder, cfg RemoteConfig) *RemoteEmbedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &RemoteEmbedder{
		client:     client,
		limiter:    rate.NewLimiter(limit, 1),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		batchSize:  cfg.BatchSize,
	}
}

// Embed returns the embedding for a single text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most BatchSize texts, preserving order.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", errs.ErrEmbeddingFailure, i)
		}
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		raw, err := e.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(raw) != end-start {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", errs.ErrEmbeddingFailure, end-start, len(raw))
		}
		for _, r := range raw {
			v := utils.ToFloat32(r)
			if err := e.checkDimensions(len(v)); err != nil {
				return nil, err
			}
			utils.NormalizeL2(v)
			out = append(out, v)
		}
	}
	return out, nil
}

func (e *RemoteEmbedder) checkDimensions(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n == 0 {
		return fmt.Errorf("%w: empty embedding returned", errs.ErrEmbeddingFailure)
	}
	if e.dimensions == 0 {
		e.dimensions = n
		return nil
	}
	if e.dimensions != n {
		return fmt.Errorf("%w: model returned %d dimensions, expected %d", errs.ErrDimensionMismatch, n, e.dimensions)
	}
	return nil
}

func (e *RemoteEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, errs.Wrap(errs.ErrEmbeddingFailure, err)
		}
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if e.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		}
		vecs, err := e.client.EmbedStrings(callCtx, texts)
		cancel()
		if err == nil {
			return vecs, nil
		}
		lastErr = errs.Wrap(errs.ErrEmbeddingFailure, err)
		if ctx.Err() != nil || !errs.Retryable(lastErr) || attempt == e.maxRetries {
			break
		}
		select {
		case <-time.After(retryDelay(e.baseDelay, attempt)):
		case <-ctx.Done():
			return nil, errs.Wrap(errs.ErrEmbeddingFailure, ctx.Err())
		}
	}
	return nil, lastErr
}

// retryDelay doubles base per attempt, capped at 5s.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}

// Dimensions returns the dimension observed on the first successful call, 0 before that.
func (e *RemoteEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (e *RemoteEmbedder) Close() error {
	return nil
}
