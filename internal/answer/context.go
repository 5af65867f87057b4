// Package answer builds grounded answers from retrieved passages with a chat model.
package answer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/models"
)

// Citation returns the "[Page p, Line l]: content" line for doc.
func Citation(doc models.Document) string {
	return fmt.Sprintf("[Page %d, Line %d]: %s", doc.Metadata.Page, doc.Metadata.Line, doc.Content)
}

// BuildContext renders docs as citation lines in the order given.
func BuildContext(docs []models.Document) string {
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = Citation(d)
	}
	return strings.Join(lines, "\n")
}
