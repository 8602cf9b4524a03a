// Package retrieval orchestrates query embedding, similarity search, handle
// resolution, and confidence scoring.
package retrieval

import (
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// Scorer maps a top similarity score to a confidence label. Boundaries are
// exclusive: a score exactly at a threshold falls to the lower band.
type Scorer struct {
	high   float64
	medium float64
}

// NewScorer creates a scorer from the configured thresholds.
func NewScorer(cfg config.RetrievalConfig) *Scorer {
	return &Scorer{high: cfg.HighThreshold, medium: cfg.MediumThreshold}
}

// Confidence labels topScore. No results always score low.
func (s *Scorer) Confidence(topScore float64, numResults int) models.Confidence {
	if numResults == 0 {
		return models.ConfidenceLow
	}
	switch {
	case topScore > s.high:
		return models.ConfidenceHigh
	case topScore > s.medium:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
