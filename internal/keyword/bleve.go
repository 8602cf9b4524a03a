// Package keyword provides a Bleve index over chunk text for hybrid search.
package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// Result is a single keyword search hit. ID is the chunk's vector handle.
type Result struct {
	ID    int64
	Score float64
}

// BleveIndex indexes chunk text keyed by the decimal vector handle, so vector
// and keyword hits share an ID space and can be fused rank-wise.
type BleveIndex struct {
	index bleve.Index
}

type chunkDoc struct {
	Text string `json:"text"`
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused; remove the directory to force a rebuild after a mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) keeps exact
	// technical terms searchable; English stemming mangles identifiers.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds a chunk's text under its vector handle.
func (b *BleveIndex) Index(ctx context.Context, vectorID int64, text string) error {
	return b.index.Index(strconv.FormatInt(vectorID, 10), chunkDoc{Text: text})
}

// Search runs a match query over chunk text and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			// Not a handle-keyed entry; skip rather than fail the search.
			continue
		}
		out = append(out, Result{ID: id, Score: hit.Score})
	}
	return out, nil
}

// Delete removes a chunk by its vector handle.
func (b *BleveIndex) Delete(ctx context.Context, vectorID int64) error {
	return b.index.Delete(strconv.FormatInt(vectorID, 10))
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
