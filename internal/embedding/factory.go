package embedding

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/docqa/internal/config"
	"go.uber.org/zap"
)

// Provider names accepted in embedding.provider.
const (
	ProviderHash   = "hash"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
)

// ONNXConfig configures NewONNXEmbedder.
type ONNXConfig struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
	// OutputName is the graph output holding the pooled sentence embedding. Defaults to "output".
	OutputName string
}

// New builds the configured embedder wrapped in an LRU cache. An ONNX model that
// cannot be loaded falls back to the hash embedder so the service still starts;
// a remote provider without credentials is an error.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		emb Embedder
		err error
	)
	switch cfg.Provider {
	case "", ProviderHash:
		emb = NewHashEmbedder(cfg.Dimensions)
	case ProviderONNX:
		emb, err = NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			OutputName: cfg.OutputName,
		})
		if err != nil {
			logger.Warn("ONNX embedder unavailable, falling back to hash embedder",
				zap.String("model", cfg.ModelPath), zap.Error(err))
			emb, err = NewHashEmbedder(cfg.Dimensions), nil
		}
	case ProviderOpenAI:
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("embedding provider %q requires %s to be set", cfg.Provider, cfg.APIKeyEnv)
		}
		emb, err = NewOpenAIEmbedder(ctx, RemoteConfig{
			APIKey:            apiKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries:        cfg.MaxRetries,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	logger.Info("Embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", emb.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))
	return NewCachedEmbedder(emb, cfg.CacheSize), nil
}
