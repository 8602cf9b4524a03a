// Package storage defines persistence for documents, chunks, and query logs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage persists documents, their chunks, and query telemetry. Chunks are
// addressed by the vector handle assigned at ingestion; GetChunksByVectorIDs
// is the bridge from vector search hits back to text and document metadata.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.DocumentStats, error)

	// Chunk operations
	PutChunks(ctx context.Context, chunks []*models.Chunk) error
	// GetChunksByVectorIDs resolves vector handles to chunks joined with
	// their document's title and source URL. Handles with no metadata row
	// are simply absent from the returned map.
	GetChunksByVectorIDs(ctx context.Context, vectorIDs []int64) (map[int64]*models.ChunkWithDocument, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	// Telemetry
	InsertQueryLog(ctx context.Context, log *models.QueryLog) error
	LatencyMetrics(ctx context.Context) (*models.LatencyMetrics, error)

	Close() error
}
