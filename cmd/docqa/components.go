package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/docqa/internal/answer"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/retrieval"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Engine   *retrieval.Engine
	Indexer  *indexer.Indexer
	Asker    *answer.Asker
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func forestConfig(cfg config.IndexConfig) vector.ForestConfig {
	return vector.ForestConfig{
		Trees:    cfg.Trees,
		LeafSize: cfg.LeafSize,
		SearchK:  cfg.SearchK,
		Seed:     cfg.Seed,
	}
}

// initializeComponents wires storage, embedder, engine, indexer and, when withLLM is
// set, the chat model behind the Asker.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withLLM bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store}

	embedder, err := embedding.New(ctx, cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	builder, err := vector.NewBuilder(cfg.Index.Type, forestConfig(cfg.Index))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	logger.Info("vector index configured",
		zap.String("type", builder.Type()),
		zap.Int("trees", cfg.Index.Trees),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Int("dimensions", embedder.Dimensions()))

	c.Engine = retrieval.New(embedder, builder, retrieval.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(c.Engine, extract.NewExtractor(), cfg.Ingest,
		indexer.WithLogger(logger),
		indexer.WithStorage(store))

	if withLLM {
		chat, err := answer.NewChatModel(ctx, cfg.LLM)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize chat model: %w", err)
		}
		composer := answer.NewComposer(chat,
			answer.WithTimeout(cfg.LLM.Timeout()),
			answer.WithMaxConcurrent(cfg.LLM.MaxConcurrent),
			answer.WithLogger(logger))
		c.Asker = answer.NewAsker(c.Engine, composer, cfg.Search.DefaultK)
	}
	return c, nil
}
