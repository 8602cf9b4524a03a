//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"fmt"
)

// ONNXEmbedder is unavailable without CGO. All operations fail with
// ErrModelUnavailable; use NewMockEmbedder for development builds.
type ONNXEmbedder struct {
	dimensions int
}

func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) (*ONNXEmbedder, error) {
	return nil, fmt.Errorf("%w: ONNX runtime requires CGO (build with CGO_ENABLED=1)", ErrModelUnavailable)
}

func (e *ONNXEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrModelUnavailable
}

func (e *ONNXEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrModelUnavailable
}

func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *ONNXEmbedder) Close() error {
	return nil
}
