// Package retrieval owns the embed-index-lookup pipeline. Each ingestion produces a
// new immutable generation (vectors, documents, index) that is published with a single
// atomic pointer swap, so queries never observe an index and a document store that
// disagree about ids.
package retrieval

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/docqa/internal/docstore"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/vector"
	"go.uber.org/zap"
)

// generation is immutable once published. vectors[i], store id i and index id i all
// describe the same document.
type generation struct {
	seq     uint64
	dim     int
	vectors [][]float32
	store   *docstore.Store
	index   vector.Index
	builtAt time.Time
}

// Engine embeds documents, builds vector indexes and answers similarity queries.
// Queries are lock-free; ingestions are serialized.
type Engine struct {
	embedder embedding.Embedder
	builder  vector.Builder
	logger   *zap.Logger

	current atomic.Pointer[generation]
	mu      sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New returns an engine with an empty generation.
func New(embedder embedding.Embedder, builder vector.Builder, opts ...Option) *Engine {
	e := &Engine{
		embedder: embedder,
		builder:  builder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(&generation{store: docstore.New(nil)})
	return e
}

// Ingest embeds docs and publishes a generation over every document ingested so far.
// It returns the new generation sequence number.
func (e *Engine) Ingest(ctx context.Context, docs []models.Document) (uint64, error) {
	return e.IngestBatches(ctx, [][]models.Document{docs})
}

// IngestBatches embeds each batch in order and then builds and publishes one generation.
// On any failure nothing is published and the previous generation stays current.
// Vectors of earlier generations are reused; only the new documents are embedded.
func (e *Engine) IngestBatches(ctx context.Context, batches [][]models.Document) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.current.Load()
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	if total == 0 {
		return cur.seq, nil
	}

	start := time.Now()
	dim := cur.dim
	vectors := make([][]float32, len(cur.vectors), len(cur.vectors)+total)
	copy(vectors, cur.vectors)
	added := make([]models.Document, 0, total)

	for i, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		texts := make([]string, len(batch))
		for j, d := range batch {
			texts[j] = d.Content
		}
		vecs, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return cur.seq, fmt.Errorf("embed batch %d: %w", i, err)
		}
		if len(vecs) != len(batch) {
			return cur.seq, fmt.Errorf("%w: batch %d: got %d vectors for %d documents",
				errs.ErrEmbeddingFailure, i, len(vecs), len(batch))
		}
		for j, v := range vecs {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) != dim {
				return cur.seq, fmt.Errorf("%w: batch %d document %d has %d dimensions, index has %d",
					errs.ErrDimensionMismatch, i, j, len(v), dim)
			}
		}
		vectors = append(vectors, vecs...)
		added = append(added, batch...)
	}

	index, err := e.builder.Build(ctx, vectors)
	if err != nil {
		return cur.seq, fmt.Errorf("build index: %w", err)
	}
	next := &generation{
		seq:     cur.seq + 1,
		dim:     dim,
		vectors: vectors,
		store:   cur.store.Append(added),
		index:   index,
		builtAt: time.Now(),
	}
	e.current.Store(next)

	e.logger.Info("Published index generation",
		zap.Uint64("generation", next.seq),
		zap.Int("added", len(added)),
		zap.Int("documents", next.store.Size()),
		zap.Int("batches", len(batches)),
		zap.Duration("elapsed", time.Since(start)))
	return next.seq, nil
}

// Query returns up to k documents most similar to text, best first. k <= 0 means
// models.DefaultK. An empty engine returns an empty slice without embedding the query.
func (e *Engine) Query(ctx context.Context, text string, k int) ([]models.Document, error) {
	hits, err := e.Search(ctx, text, k)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, len(hits))
	for i, h := range hits {
		docs[i] = h.Document
	}
	return docs, nil
}

// Hit is a retrieved document with its angular distance to the query.
type Hit struct {
	ID       int
	Document models.Document
	Distance float64
}

// Search is Query with ids and distances.
func (e *Engine) Search(ctx context.Context, text string, k int) ([]Hit, error) {
	gen := e.current.Load()
	if k <= 0 {
		k = models.DefaultK
	}
	if gen.store.Size() == 0 || gen.index == nil {
		return []Hit{}, nil
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := gen.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search generation %d: %w", gen.seq, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		doc, err := gen.store.Get(r.ID)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen.seq, err)
		}
		hits = append(hits, Hit{ID: r.ID, Document: doc, Distance: r.Distance})
	}
	e.logger.Debug("Query served",
		zap.Uint64("generation", gen.seq),
		zap.Int("k", k),
		zap.Int("results", len(hits)))
	return hits, nil
}

// Stats describes the current generation.
type Stats struct {
	Generation uint64    `json:"generation"`
	Documents  int       `json:"documents"`
	Dimensions int       `json:"dimensions"`
	IndexType  string    `json:"index_type"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
}

// Stats returns a snapshot of the current generation.
func (e *Engine) Stats() Stats {
	gen := e.current.Load()
	return Stats{
		Generation: gen.seq,
		Documents:  gen.store.Size(),
		Dimensions: gen.dim,
		IndexType:  e.builder.Type(),
		BuiltAt:    gen.builtAt,
	}
}

// Documents returns the documents of the current generation in id order.
func (e *Engine) Documents() []models.Document {
	return e.current.Load().store.All()
}
