// Package vector provides vector indexes and exact similarity search.
package vector

import (
	"context"
	"errors"
)

// ErrCorruptIndex indicates a persisted index file that cannot be read back.
var ErrCorruptIndex = errors.New("corrupt vector index file")

// Index stores embedding vectors under sequential integer handles and answers
// top-k similarity searches. Handles are assigned in insertion order starting
// at zero and are never reused, so they can be stored as stable foreign keys.
type Index interface {
	// Add appends vectors and returns their newly assigned handles,
	// contiguous and in input order. The batch is atomic: on any error
	// no vectors are added.
	Add(ctx context.Context, vectors [][]float32) ([]int64, error)
	// Search returns up to k results ordered by descending inner product.
	// Scores tie on ascending handle. An empty index returns an empty
	// result, not an error.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Save(path string) error
	Load(path string) error
	Size() int
	// NextID returns the handle the next added vector will receive.
	NextID() int64
	Close() error
}

// Result is a single similarity search hit.
type Result struct {
	ID    int64
	Score float64 // Inner product; equals cosine similarity for unit vectors.
}
