package models

import (
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/errs"
)

// DefaultK is the number of passages returned when a query does not ask for a count.
const DefaultK = 5

// Query is a search or ask request.
type Query struct {
	Text string `json:"text"`
	K    int    `json:"k,omitempty"`
}

// Validate ensures the query has text and normalizes K into [1, maxK].
func (q *Query) Validate(maxK int) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: text cannot be empty", errs.ErrInvalidInput)
	}
	if q.K <= 0 {
		q.K = DefaultK
	}
	if maxK > 0 && q.K > maxK {
		q.K = maxK
	}
	return nil
}
