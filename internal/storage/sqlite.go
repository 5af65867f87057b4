package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
)

// MemoryPath keeps the database in process memory.
const MemoryPath = ":memory:"

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. MemoryPath opens a private
// in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	inMemory := dbPath == MemoryPath
	if !inMemory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		chunks INTEGER NOT NULL,
		batches INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);
	CREATE INDEX IF NOT EXISTS idx_uploads_content_hash ON uploads(content_hash);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateUpload inserts rec. CreatedAt is set when zero.
func (s *SQLiteStorage) CreateUpload(ctx context.Context, rec *models.UploadRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: upload id is required", errs.ErrInvalidInput)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, filename, content_hash, chunks, batches, generation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.ContentHash, rec.Chunks, rec.Batches, int64(rec.Generation), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

const uploadColumns = `id, filename, content_hash, chunks, batches, generation, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*models.UploadRecord, error) {
	var rec models.UploadRecord
	var generation int64
	if err := row.Scan(&rec.ID, &rec.Filename, &rec.ContentHash, &rec.Chunks, &rec.Batches, &generation, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Generation = uint64(generation)
	return &rec, nil
}

// GetUpload returns an upload by ID.
func (s *SQLiteStorage) GetUpload(ctx context.Context, id string) (*models.UploadRecord, error) {
	rec, err := scanUpload(s.db.QueryRowContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListUploads returns uploads newest first.
func (s *SQLiteStorage) ListUploads(ctx context.Context, offset, limit int) ([]*models.UploadRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	return collectUploads(rows)
}

// FindByHash returns uploads with the given content hash, oldest first.
func (s *SQLiteStorage) FindByHash(ctx context.Context, contentHash string) ([]*models.UploadRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE content_hash = ? ORDER BY created_at, id`,
		contentHash)
	if err != nil {
		return nil, err
	}
	return collectUploads(rows)
}

func collectUploads(rows *sql.Rows) ([]*models.UploadRecord, error) {
	defer rows.Close()
	var out []*models.UploadRecord
	for rows.Next() {
		rec, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountUploads returns the number of recorded uploads.
func (s *SQLiteStorage) CountUploads(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM uploads`).Scan(&n)
	return n, err
}

// DiskUsageBytes returns the size of the database file and its WAL side files.
// An in-memory database reports 0.
func (s *SQLiteStorage) DiskUsageBytes() (int64, error) {
	if s.path == MemoryPath {
		return 0, nil
	}
	var total int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
