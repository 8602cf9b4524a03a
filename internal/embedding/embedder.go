// Package embedding provides text embedding with asymmetric query handling.
package embedding

import (
	"context"
	"errors"
)

// QueryPrefix is the instruction prefix prepended to queries before encoding.
// The embedding model was trained with this convention for retrieval; it must
// be preserved bit-for-bit, since omitting or altering it measurably degrades
// retrieval quality. Documents are encoded without a prefix.
const QueryPrefix = "Represent this sentence for searching: "

// DefaultBatchSize is how many documents are sent to the model per invocation.
// Purely a throughput knob; outputs are independent of batch boundaries.
const DefaultBatchSize = 32

var (
	// ErrEmptyInput is returned when an embedding call receives no texts.
	ErrEmptyInput = errors.New("embedding: empty input")
	// ErrModelUnavailable is returned when the embedding backend cannot be
	// loaded or reached. Safe to retry with backoff; embedding is stateless.
	ErrModelUnavailable = errors.New("embedding: model unavailable")
)

// Embedder produces unit-length vector embeddings for text. Queries and
// documents are encoded asymmetrically: EmbedQuery prepends QueryPrefix.
type Embedder interface {
	// EmbedDocuments encodes texts in batches and returns one unit vector per
	// text, in input order. Fails with ErrEmptyInput when texts is empty.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery encodes a single query with QueryPrefix prepended.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the embedding dimension D.
	Dimensions() int
	Close() error
}
