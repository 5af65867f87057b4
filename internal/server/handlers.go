package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/retrieval"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if mb := s.config.Server.MaxUploadMB; mb > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(mb)<<20)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, err)
			return
		}
		s.respondError(w, fmt.Errorf("%w: multipart field \"file\" is required", errs.ErrInvalidInput))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))
	if _, err := s.indexer.IndexUpload(r.Context(), header.Filename, content); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.UploadResponse{Message: "File processed successfully"})
}

func (s *Server) decodeQuery(r *http.Request) (models.Query, error) {
	var q models.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		return q, fmt.Errorf("%w: invalid request body", errs.ErrInvalidInput)
	}
	if err := q.Validate(s.config.Search.MaxK); err != nil {
		return q, err
	}
	return q, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := s.decodeQuery(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Debug("search request", zap.String("text", q.Text), zap.Int("k", q.K))
	docs, err := s.engine.Query(r.Context(), q.Text, q.K)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	q, err := s.decodeQuery(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if s.asker == nil {
		s.respondError(w, fmt.Errorf("%w: no language model configured", errs.ErrModelUnavailable))
		return
	}
	s.logger.Debug("ask request", zap.String("text", q.Text))
	resp, err := s.asker.Ask(r.Context(), q.Text)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.respondError(w, err)
		return
	}
	limit, err := intParam(r, "limit", defaultListLimit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	limit = min(limit, maxListLimit)
	uploads, err := s.storage.ListUploads(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if uploads == nil {
		uploads = []*models.UploadRecord{}
	}
	s.respondJSON(w, http.StatusOK, uploads)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	rec, err := s.storage.GetUpload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Index          retrieval.Stats `json:"index"`
	Uploads        int64           `json:"uploads"`
	DiskUsageBytes *int64          `json:"disk_usage_bytes,omitempty"`
	Embedding      string          `json:"embedding_provider"`
	Rebuild        string          `json:"rebuild"`
	BatchSize      int             `json:"batch_size"`
}

type diskUser interface {
	DiskUsageBytes() (int64, error)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.storage.CountUploads(r.Context())
	if err != nil {
		s.logger.Error("status: count uploads failed", zap.Error(err))
		s.respondError(w, err)
		return
	}
	resp := statusResponse{
		Index:     s.engine.Stats(),
		Uploads:   uploads,
		Embedding: s.config.Embedding.Provider,
		Rebuild:   s.config.Ingest.Rebuild,
		BatchSize: s.config.Ingest.BatchSize,
	}
	if du, ok := s.storage.(diskUser); ok {
		if n, err := du.DiskUsageBytes(); err == nil && n > 0 {
			resp.DiskUsageBytes = &n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errs.ErrInvalidInput, name)
	}
	return n, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes {"detail": ...} with the status of err's kind.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondJSON(w, status, models.ErrorResponse{Detail: err.Error()})
}
