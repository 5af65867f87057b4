// Package storage defines the persistence interface for the upload registry.
package storage

import (
	"context"

	"github.com/hyperjump/docqa/internal/models"
)

// Storage records processed uploads. It is an audit log only: the searchable index
// lives in memory and is not rebuilt from it.
type Storage interface {
	CreateUpload(ctx context.Context, rec *models.UploadRecord) error
	// GetUpload returns errs.ErrNotFound for an unknown id.
	GetUpload(ctx context.Context, id string) (*models.UploadRecord, error)
	// ListUploads returns uploads newest first.
	ListUploads(ctx context.Context, offset, limit int) ([]*models.UploadRecord, error)
	// FindByHash returns earlier uploads with the same content hash, oldest first.
	FindByHash(ctx context.Context, contentHash string) ([]*models.UploadRecord, error)
	CountUploads(ctx context.Context) (int64, error)

	Close() error
}
