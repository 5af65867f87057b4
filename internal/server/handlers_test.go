package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/hyperjump/docqa/internal/answer"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/retrieval"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/vector"
	"go.uber.org/zap"
)

type mockChat struct {
	mu     sync.Mutex
	prompt string
	reply  string
	err    error
}

func (m *mockChat) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(input) > 0 {
		m.prompt = input[len(input)-1].Content
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *mockChat) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	engine  *retrieval.Engine
	store   *storage.SQLiteStorage
	chat    *mockChat
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	store, err := storage.NewSQLiteStorage(t.TempDir() + "/uploads.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	builder, err := vector.NewBuilder(cfg.Index.Type, vector.ForestConfig{Trees: cfg.Index.Trees, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	engine := retrieval.New(embedding.NewHashEmbedder(cfg.Embedding.Dimensions), builder)
	idx := indexer.NewIndexer(engine, nil, cfg.Ingest, indexer.WithStorage(store))
	chat := &mockChat{reply: "The tenant pays rent [Page 1, Line 3]."}
	asker := answer.NewAsker(engine, answer.NewComposer(chat), cfg.Search.DefaultK)

	srv := NewServer(engine, idx, asker, store, cfg, zap.NewNop())
	return &testEnv{srv: srv, handler: srv.Handler(), engine: engine, store: store, chat: chat}
}

func (e *testEnv) do(method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func (e *testEnv) upload(t *testing.T, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return e.do(http.MethodPost, "/upload", buf.Bytes(), mw.FormDataContentType())
}

func (e *testEnv) postJSON(path string, v any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(v)
	return e.do(http.MethodPost, path, body, "application/json")
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if out.Detail == "" {
		t.Error("expected a non-empty detail")
	}
	return out.Detail
}

const leaseText = "Residential lease\n\nTenant shall pay rent.\nThe landlord maintains the roof.\n"

func TestUploadSearchAsk(t *testing.T) {
	env := newTestEnv(t)

	w := env.upload(t, "lease.txt", leaseText)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status: got %d, body: %s", w.Code, w.Body.String())
	}
	var up models.UploadResponse
	if err := json.NewDecoder(w.Body).Decode(&up); err != nil {
		t.Fatal(err)
	}
	if up.Message != "File processed successfully" {
		t.Errorf("message: got %q", up.Message)
	}

	w = env.postJSON("/search", models.Query{Text: "pay rent", K: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("search status: got %d, body: %s", w.Code, w.Body.String())
	}
	var docs []models.Document
	if err := json.NewDecoder(w.Body).Decode(&docs); err != nil {
		t.Fatal(err)
	}
	want := models.Document{Content: "Tenant shall pay rent.", Metadata: models.Metadata{Page: 1, Line: 3, Source: "lease.txt"}}
	if len(docs) != 1 || docs[0] != want {
		t.Errorf("search: got %+v, want [%+v]", docs, want)
	}

	w = env.postJSON("/ask", models.Query{Text: "Who pays rent?"})
	if w.Code != http.StatusOK {
		t.Fatalf("ask status: got %d, body: %s", w.Code, w.Body.String())
	}
	var ans models.AskResponse
	if err := json.NewDecoder(w.Body).Decode(&ans); err != nil {
		t.Fatal(err)
	}
	if ans.Answer != env.chat.reply {
		t.Errorf("answer: got %q", ans.Answer)
	}
	if len(ans.Sources) != 3 {
		t.Errorf("sources: got %d, want all 3 indexed lines", len(ans.Sources))
	}
	if !strings.Contains(env.chat.prompt, "[Page 1, Line 3]: Tenant shall pay rent.") {
		t.Errorf("prompt is missing the citation line:\n%s", env.chat.prompt)
	}
	if !strings.Contains(env.chat.prompt, "Question: Who pays rent?") {
		t.Errorf("prompt is missing the question:\n%s", env.chat.prompt)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	env := newTestEnv(t)
	w := env.postJSON("/search", models.Query{Text: "anything"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body: got %s, want []", got)
	}
}

func TestSearch_KLargerThanCorpus(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "lease.txt", leaseText)
	w := env.postJSON("/search", models.Query{Text: "rent", K: 100})
	var docs []models.Document
	if err := json.NewDecoder(w.Body).Decode(&docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Errorf("got %d documents, want 3", len(docs))
	}
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		do   func() *httptest.ResponseRecorder
		want int
	}{
		{"search empty text", func() *httptest.ResponseRecorder {
			return env.postJSON("/search", models.Query{Text: "  "})
		}, http.StatusBadRequest},
		{"search bad body", func() *httptest.ResponseRecorder {
			return env.do(http.MethodPost, "/search", []byte("{"), "application/json")
		}, http.StatusBadRequest},
		{"ask empty text", func() *httptest.ResponseRecorder {
			return env.postJSON("/ask", models.Query{})
		}, http.StatusBadRequest},
		{"upload without file", func() *httptest.ResponseRecorder {
			return env.do(http.MethodPost, "/upload", nil, "")
		}, http.StatusBadRequest},
		{"upload unsupported type", func() *httptest.ResponseRecorder {
			return env.upload(t, "scan.png", "\x89PNG")
		}, http.StatusUnprocessableEntity},
		{"upload without text", func() *httptest.ResponseRecorder {
			return env.upload(t, "blank.txt", "\n \n")
		}, http.StatusUnprocessableEntity},
		{"unknown upload id", func() *httptest.ResponseRecorder {
			return env.do(http.MethodGet, "/uploads/missing", nil, "")
		}, http.StatusNotFound},
		{"bad limit", func() *httptest.ResponseRecorder {
			return env.do(http.MethodGet, "/uploads?limit=-1", nil, "")
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.do()
			if w.Code != tt.want {
				t.Fatalf("status: got %d, want %d, body: %s", w.Code, tt.want, w.Body.String())
			}
			detail(t, w)
		})
	}
}

func TestAsk_ModelFailure(t *testing.T) {
	env := newTestEnv(t)
	env.chat.err = errors.New("connection refused")
	w := env.postJSON("/ask", models.Query{Text: "Who pays rent?"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", w.Code)
	}
	if d := detail(t, w); !strings.Contains(d, "connection refused") {
		t.Errorf("detail: got %q", d)
	}
}

func TestAsk_NoModel(t *testing.T) {
	env := newTestEnv(t)
	srv := NewServer(env.engine, nil, nil, env.store, config.Default(), nil)
	r := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"text":"hi"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
}

func TestUploads(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "a.txt", "first document")
	env.upload(t, "b.txt", "second document")

	w := env.do(http.MethodGet, "/uploads", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var list []models.UploadRecord
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("uploads: got %d, want 2", len(list))
	}

	w = env.do(http.MethodGet, "/uploads/"+list[0].ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status: got %d", w.Code)
	}
	var rec models.UploadRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != list[0].ID || rec.Chunks != 1 {
		t.Errorf("record: got %+v", rec)
	}
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "lease.txt", leaseText)

	w := env.do(http.MethodGet, "/status", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Index struct {
			Generation uint64 `json:"generation"`
			Documents  int    `json:"documents"`
			Dimensions int    `json:"dimensions"`
			IndexType  string `json:"index_type"`
		} `json:"index"`
		Uploads        int64  `json:"uploads"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes"`
		Rebuild        string `json:"rebuild"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Index.Generation != 1 || out.Index.Documents != 3 || out.Index.Dimensions != 384 {
		t.Errorf("index stats: got %+v", out.Index)
	}
	if out.Index.IndexType != "annoy" {
		t.Errorf("index type: got %q", out.Index.IndexType)
	}
	if out.Uploads != 1 {
		t.Errorf("uploads: got %d, want 1", out.Uploads)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Error("expected disk_usage_bytes for a file-backed registry")
	}
	if out.Rebuild != config.RebuildOnce {
		t.Errorf("rebuild: got %q", out.Rebuild)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	r := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	r.Header.Set("Origin", "http://localhost:8501")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status: got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8501" {
		t.Errorf("allow origin: got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow credentials: got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin for foreign site: %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.ErrInvalidInput, http.StatusBadRequest},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrExtractionFailure, http.StatusUnprocessableEntity},
		{errs.ErrEmbeddingFailure, http.StatusBadGateway},
		{errs.ErrModelUnavailable, http.StatusServiceUnavailable},
		{errs.Wrap(errs.ErrEmbeddingFailure, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errs.ErrDimensionMismatch, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.err), func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			if got := statusFor(wrapped); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
