package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/fileid"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/storage"
	"go.uber.org/zap"
)

// Ingester is the part of the retrieval engine the indexer drives.
type Ingester interface {
	Ingest(ctx context.Context, docs []models.Document) (uint64, error)
	IngestBatches(ctx context.Context, batches [][]models.Document) (uint64, error)
}

// Indexer extracts uploads, chunks them into line documents and ingests them in batches.
type Indexer struct {
	engine    Ingester
	extractor *extract.Extractor
	storage   storage.Storage
	chunker   *Chunker
	batchSize int
	rebuild   string
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the indexer logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithStorage records every successful upload in store.
func WithStorage(store storage.Storage) IndexerOption {
	return func(idx *Indexer) { idx.storage = store }
}

// NewIndexer creates an indexer feeding engine. cfg.BatchSize bounds the number of
// documents embedded per request; cfg.Rebuild selects whether the index is rebuilt
// after every batch (config.RebuildPerBatch) or once per upload (config.RebuildOnce).
func NewIndexer(engine Ingester, extractor *extract.Extractor, cfg config.IngestConfig, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		engine:    engine,
		extractor: extractor,
		chunker:   NewChunker(),
		batchSize: cfg.BatchSize,
		rebuild:   cfg.Rebuild,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IngestResult summarizes one IngestDocuments call.
type IngestResult struct {
	Documents  int
	Batches    int
	Generation uint64
}

// IngestDocuments splits docs into batches and ingests them under the configured rebuild
// policy. Both policies yield the same final documents in the same order. In per-batch
// mode a failure leaves the batches before it published.
func (idx *Indexer) IngestDocuments(ctx context.Context, docs []models.Document) (IngestResult, error) {
	batches := Batches(docs, idx.batchSize)
	res := IngestResult{Documents: len(docs), Batches: len(batches)}
	if len(batches) == 0 {
		return res, nil
	}

	if idx.rebuild == config.RebuildPerBatch {
		for i, b := range batches {
			gen, err := idx.engine.Ingest(ctx, b)
			if err != nil {
				return res, fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
			}
			res.Generation = gen
			idx.logger.Debug("Batch ingested",
				zap.Int("batch", i+1),
				zap.Int("size", len(b)),
				zap.Uint64("generation", gen))
		}
		return res, nil
	}

	gen, err := idx.engine.IngestBatches(ctx, batches)
	if err != nil {
		return res, err
	}
	res.Generation = gen
	return res, nil
}

// IndexUpload extracts, chunks and ingests an uploaded file and records it in the
// registry. filename decides the format and becomes the source of every document.
func (idx *Indexer) IndexUpload(ctx context.Context, filename string, content []byte) (*models.UploadRecord, error) {
	start := time.Now()
	name := fileid.SourceName(filename)
	if name == "" {
		return nil, fmt.Errorf("%w: missing file name", errs.ErrInvalidInput)
	}
	idx.logger.Info("Processing upload", zap.String("filename", name), zap.Int("bytes", len(content)))

	pages, err := idx.extractor.ExtractPages(content, filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	docs := idx.chunker.Chunk(name, pages)
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no text found in %s", errs.ErrExtractionFailure, name)
	}
	idx.logger.Debug("Upload chunked",
		zap.String("filename", name),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(docs)))

	hash := fileid.ContentHash(content)
	if idx.storage != nil {
		if prev, err := idx.storage.FindByHash(ctx, hash); err == nil && len(prev) > 0 {
			idx.logger.Warn("File was uploaded before; its passages will appear again",
				zap.String("filename", name),
				zap.String("previous_upload", prev[0].ID))
		}
	}

	res, err := idx.IngestDocuments(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", name, err)
	}

	rec := &models.UploadRecord{
		ID:          uuid.New().String(),
		Filename:    name,
		ContentHash: hash,
		Chunks:      res.Documents,
		Batches:     res.Batches,
		Generation:  res.Generation,
		CreatedAt:   time.Now().UTC(),
	}
	if idx.storage != nil {
		// The documents are already searchable; a registry failure only loses the audit row.
		if err := idx.storage.CreateUpload(ctx, rec); err != nil {
			idx.logger.Error("Failed to record upload", zap.String("filename", name), zap.Error(err))
		}
	}
	idx.logger.Info("Upload indexed",
		zap.String("upload_id", rec.ID),
		zap.String("filename", name),
		zap.Int("chunks", rec.Chunks),
		zap.Int("batches", rec.Batches),
		zap.Uint64("generation", rec.Generation),
		zap.String("rebuild", idx.rebuild),
		zap.Duration("elapsed", time.Since(start)))
	return rec, nil
}
