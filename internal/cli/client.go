package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/docqa/internal/models"
)

// Status mirrors the server's /status response.
type Status struct {
	Index struct {
		Generation uint64    `json:"generation"`
		Documents  int       `json:"documents"`
		Dimensions int       `json:"dimensions"`
		IndexType  string    `json:"index_type"`
		BuiltAt    time.Time `json:"built_at"`
	} `json:"index"`
	Uploads        int64  `json:"uploads"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
	Embedding      string `json:"embedding_provider"`
	Rebuild        string `json:"rebuild"`
	BatchSize      int    `json:"batch_size"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to a running docqa server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// UploadFile uploads the file at path.
func (c *Client) UploadFile(ctx context.Context, path string) (*models.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out models.UploadResponse
	if err := c.do(ctx, http.MethodPost, "/upload", mw.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns up to k passages similar to text.
func (c *Client) Search(ctx context.Context, text string, k int) ([]models.Document, error) {
	var out []models.Document
	if err := c.postJSON(ctx, "/search", models.Query{Text: text, K: k}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ask returns the server's answer to question.
func (c *Client) Ask(ctx context.Context, question string) (*models.AskResponse, error) {
	var out models.AskResponse
	if err := c.postJSON(ctx, "/ask", models.Query{Text: question}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status returns index and registry statistics.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.do(ctx, http.MethodGet, "/status", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Uploads lists recorded uploads, newest first.
func (c *Client) Uploads(ctx context.Context, offset, limit int) ([]models.UploadRecord, error) {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(limit))
	var out []models.UploadRecord
	if err := c.do(ctx, http.MethodGet, "/uploads?"+q.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		var e models.ErrorResponse
		if json.Unmarshal(b, &e) == nil && e.Detail != "" {
			return &APIError{StatusCode: resp.StatusCode, Detail: e.Detail}
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
