package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is returned when a query request fails validation.
var ErrInvalidQuery = errors.New("invalid query")

// SearchMode selects how retrieval candidates are ranked.
type SearchMode string

const (
	// SearchModeVector ranks candidates by exact vector similarity only.
	SearchModeVector SearchMode = "vector"
	// SearchModeHybrid fuses vector similarity with keyword hits via
	// reciprocal rank fusion. Confidence is still derived from the top
	// vector similarity (RRF scores are not in [-1, 1]).
	SearchModeHybrid SearchMode = "hybrid"
)

// DefaultTopK is the number of passages retrieved when the caller does not set top_k.
const DefaultTopK = 5

// QueryRequest is a retrieval/answer request.
type QueryRequest struct {
	Query string     `json:"query"`
	TopK  int        `json:"top_k,omitempty"`
	Mode  SearchMode `json:"mode,omitempty"`
}

// Validate trims the query, rejects empty or whitespace-only input and negative
// top_k, and applies defaults (top_k = 5, mode = vector).
func (q *QueryRequest) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidQuery, q.TopK)
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	if q.Mode == "" {
		q.Mode = SearchModeVector
	}
	return nil
}
