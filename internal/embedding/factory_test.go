package embedding

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docqa/internal/config"
	"go.uber.org/zap"
)

func TestNew_Hash(t *testing.T) {
	cfg := config.Default().Embedding
	e, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected a cached embedder, got %T", e)
	}
	if e.Dimensions() != cfg.Dimensions {
		t.Errorf("Dimensions=%d, want %d", e.Dimensions(), cfg.Dimensions)
	}
}

func TestNew_ONNXFallsBackToHash(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = ProviderONNX
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	cfg.CacheSize = -1
	e, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*HashEmbedder); !ok {
		t.Errorf("expected hash fallback, got %T", e)
	}
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = ProviderOpenAI
	cfg.APIKeyEnv = "DOCQA_TEST_MISSING_EMBEDDING_KEY"
	t.Setenv(cfg.APIKeyEnv, "")
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected error without API key")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = "word2vec"
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unknown provider")
	}
}
