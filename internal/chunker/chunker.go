// Package chunker splits document text into fixed-size overlapping token windows.
package chunker

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/tokenize"
)

// Piece is one decoded token window of a document.
type Piece struct {
	// Text is the decoded window text.
	Text string
	// Ordinal is the 0-based position of the window within the document.
	Ordinal int
	// TokenCount is the number of tokens in the window.
	TokenCount int
	// Start is the token offset of the window within the document.
	Start int
}

// Chunker slides a window of chunkSize tokens forward by chunkSize - overlap
// tokens per step, decoding each window back to text. It is a pure function of
// its input; the tokenizer supplies the token boundaries.
type Chunker struct {
	tokenizer tokenize.Tokenizer
	chunkSize int
	overlap   int
}

// New creates a chunker. overlap must satisfy 0 <= overlap < chunkSize; a
// non-positive step would loop forever, so invalid parameters are rejected
// here rather than silently adjusted.
func New(tokenizer tokenize.Tokenizer, chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &Chunker{tokenizer: tokenizer, chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into overlapping token windows. A document shorter than
// the chunk size yields exactly one piece containing the whole document.
// Empty text yields nil; ingestion trims whitespace-only documents before
// chunking.
func (c *Chunker) Chunk(text string) []Piece {
	ids := c.tokenizer.Encode(text)
	total := len(ids)
	if total == 0 {
		return nil
	}
	step := c.chunkSize - c.overlap

	var pieces []Piece
	for start, ordinal := 0, 0; start < total; start, ordinal = start+step, ordinal+1 {
		end := start + c.chunkSize
		if end > total {
			end = total
		}
		window := ids[start:end]
		pieces = append(pieces, Piece{
			Text:       c.tokenizer.Decode(window),
			Ordinal:    ordinal,
			TokenCount: len(window),
			Start:      start,
		})
		if end == total {
			break
		}
	}
	return pieces
}

// Count returns the number of pieces Chunk would emit for a document of
// tokenCount tokens, without materializing them.
func (c *Chunker) Count(tokenCount int) int {
	if tokenCount <= 0 {
		return 0
	}
	if tokenCount <= c.chunkSize {
		return 1
	}
	step := c.chunkSize - c.overlap
	return (tokenCount - c.overlap + step - 1) / step
}
