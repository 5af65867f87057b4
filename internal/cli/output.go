// Package cli provides the HTTP client and output formatting used by the docqa command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteDocuments writes search results to w in the given format.
func WriteDocuments(w io.Writer, docs []models.Document, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []models.Document{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No matching passages.")
		return nil
	}
	for i, d := range docs {
		fmt.Fprintf(w, "%2d. %s [Page %d, Line %d]\n    %s\n",
			i+1, d.Metadata.Source, d.Metadata.Page, d.Metadata.Line, utils.Truncate(d.Content, 200))
	}
	return nil
}

// WriteAnswer writes an answer and its sources to w in the given format.
func WriteAnswer(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintln(w, strings.TrimSpace(resp.Answer))
	if len(resp.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, d := range resp.Sources {
			fmt.Fprintf(w, "  %s [Page %d, Line %d]: %s\n",
				d.Metadata.Source, d.Metadata.Page, d.Metadata.Line, utils.Truncate(d.Content, 120))
		}
	}
	return nil
}

// WriteUploads writes upload records to w in the given format.
func WriteUploads(w io.Writer, uploads []models.UploadRecord, format OutputFormat) error {
	if format == OutputJSON {
		if uploads == nil {
			uploads = []models.UploadRecord{}
		}
		return writeJSON(w, uploads)
	}
	for _, u := range uploads {
		fmt.Fprintf(w, "%s  %s  %-30s %5d chunks  gen %d\n",
			u.ID, u.CreatedAt.Format("2006-01-02 15:04:05"), u.Filename, u.Chunks, u.Generation)
	}
	return nil
}

// WriteStatus writes a server status report to w in the given format.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "generation:         %d   # index generations published\n", s.Index.Generation)
	fmt.Fprintf(w, "documents:          %d   # indexed lines\n", s.Index.Documents)
	fmt.Fprintf(w, "dimensions:         %d\n", s.Index.Dimensions)
	fmt.Fprintf(w, "index_type:         %s\n", s.Index.IndexType)
	fmt.Fprintf(w, "uploads:            %d\n", s.Uploads)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # upload registry on disk\n", *s.DiskUsageBytes)
	}
	if s.Embedding != "" {
		fmt.Fprintf(w, "embedding_provider: %s\n", s.Embedding)
	}
	if s.Rebuild != "" {
		fmt.Fprintf(w, "rebuild:            %s (batch size %d)\n", s.Rebuild, s.BatchSize)
	}
	return nil
}
