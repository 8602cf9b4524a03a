// Package generation produces grounded answers from retrieved passages via an
// OpenAI-compatible chat completion API.
package generation

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrGeneration indicates the language model call failed after retries.
// Callers degrade to a citations-only response rather than failing the query.
var ErrGeneration = errors.New("answer generation failed")

// Result is the model's answer text plus token accounting.
type Result struct {
	Text       string
	TokensUsed int
}

// Generator turns a question and its supporting passages into an answer.
type Generator interface {
	Generate(ctx context.Context, question string, passages []*models.Passage) (*Result, error)
}
