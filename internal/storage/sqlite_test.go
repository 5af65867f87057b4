package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
)

func TestSQLiteStorage_CreateGet(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "db", "uploads.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	rec := &models.UploadRecord{
		ID:          "u1",
		Filename:    "lease.pdf",
		ContentHash: "abc",
		Chunks:      25,
		Batches:     3,
		Generation:  7,
	}
	if err := store.CreateUpload(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetUpload(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "lease.pdf" || got.Chunks != 25 || got.Batches != 3 || got.Generation != 7 {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}

	if _, err := store.GetUpload(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.CreateUpload(ctx, &models.UploadRecord{Filename: "x"}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}
	if err := store.CreateUpload(ctx, rec); err == nil {
		t.Error("expected error for duplicate id")
	}

	size, err := store.DiskUsageBytes()
	if err != nil {
		t.Fatal(err)
	}
	if size <= 0 {
		t.Errorf("DiskUsageBytes = %d, want > 0", size)
	}
}

func TestSQLiteStorage_ListAndCount(t *testing.T) {
	store, err := NewSQLiteStorage(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		rec := &models.UploadRecord{
			ID:          name,
			Filename:    name,
			ContentHash: "h" + name,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if name == "c.pdf" {
			rec.ContentHash = "ha.pdf"
		}
		if err := store.CreateUpload(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.CountUploads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("CountUploads = %d, want 3", n)
	}

	list, err := store.ListUploads(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "c.pdf" || list[1].ID != "b.pdf" {
		t.Errorf("ListUploads(0,2) = %v", ids(list))
	}
	all, err := store.ListUploads(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "b.pdf" {
		t.Errorf("ListUploads(1,0) = %v", ids(all))
	}

	dups, err := store.FindByHash(ctx, "ha.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(dups) != 2 || dups[0].ID != "a.pdf" || dups[1].ID != "c.pdf" {
		t.Errorf("FindByHash = %v", ids(dups))
	}

	size, err := store.DiskUsageBytes()
	if err != nil || size != 0 {
		t.Errorf("in-memory DiskUsageBytes = %d, %v", size, err)
	}
}

func ids(recs []*models.UploadRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
