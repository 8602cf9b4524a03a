// Package models defines core data structures for documents, chunks, and query outcomes.
package models

import "time"

// Document represents an ingested source document. Documents are immutable once
// ingested; re-ingesting with the same ID replaces the document and its chunks.
type Document struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	SourceURL  string    `json:"source_url,omitempty" db:"source_url"`
	Text       string    `json:"text,omitempty" db:"text"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
}

// DocumentInput is the input for ingesting a document.
type DocumentInput struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url,omitempty"`
	Text      string `json:"text"`
}

// ChunkWithDocument is a chunk joined with its document's citation metadata.
type ChunkWithDocument struct {
	Chunk
	Title     string `json:"title"`
	SourceURL string `json:"source_url,omitempty"`
}

// DocumentStats is a document with aggregate chunk statistics, as returned by listings.
type DocumentStats struct {
	Document
	ChunkCount  int64 `json:"chunk_count"`
	TotalTokens int64 `json:"total_tokens"`
}

// Chunk is a bounded, token-measured slice of a document's text, the unit of
// embedding and retrieval. VectorID is the handle assigned by the vector index;
// it is unique across the corpus and never reused.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	VectorID   int64     `json:"vector_id" db:"vector_id"`
	Ordinal    int       `json:"ordinal" db:"ordinal"`
	Text       string    `json:"text" db:"text"`
	TokenCount int       `json:"token_count" db:"token_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
