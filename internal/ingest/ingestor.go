// Package ingest turns source documents into indexed, retrievable chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// ErrEmptyDocument is returned when a document has no text after cleaning.
var ErrEmptyDocument = errors.New("document text is empty")

// Ingestor runs the ingestion pipeline: clean text, chunk, embed, assign
// vector handles, persist metadata, then checkpoint the vector index. The
// ordering matters: metadata becomes durable before the vector snapshot, so a
// crash can leave orphaned metadata rows but never handles without metadata.
type Ingestor struct {
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	index     vector.Index
	store     storage.Storage
	keywords  *keyword.BleveIndex // nil disables keyword indexing
	extractor *extract.Extractor
	indexPath string
	batchSize int
	logger    *zap.Logger
}

// NewIngestor wires the ingestion pipeline. indexPath is where the vector
// index is checkpointed after each ingestion; keywords may be nil.
func NewIngestor(
	ch *chunker.Chunker,
	embedder embedding.Embedder,
	index vector.Index,
	store storage.Storage,
	keywords *keyword.BleveIndex,
	indexPath string,
	batchSize int,
	logger *zap.Logger,
) *Ingestor {
	if batchSize <= 0 {
		batchSize = embedding.DefaultBatchSize
	}
	return &Ingestor{
		chunker:   ch,
		embedder:  embedder,
		index:     index,
		store:     store,
		keywords:  keywords,
		extractor: extract.NewExtractor(),
		indexPath: indexPath,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IngestDocument ingests one document and returns it with its chunk count.
// An existing document with the same ID is replaced; its superseded vectors
// stay in the index but become unresolvable and are dropped at query time.
func (in *Ingestor) IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, int, error) {
	text := Preprocess(input.Text)
	if text == "" {
		return nil, 0, ErrEmptyDocument
	}

	docID := input.ID
	if docID == "" {
		docID = uuid.New().String()
	}

	pieces := in.chunker.Chunk(text)
	if len(pieces) == 0 {
		return nil, 0, ErrEmptyDocument
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}
	vectors, err := in.embedBatches(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("embed chunks: %w", err)
	}

	handles, err := in.index.Add(ctx, vectors)
	if err != nil {
		return nil, 0, fmt.Errorf("add vectors: %w", err)
	}

	// Replace-by-id: drop prior metadata before writing the new rows.
	if err := in.store.DeleteDocument(ctx, docID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, 0, fmt.Errorf("replace document %s: %w", docID, err)
	}

	doc := &models.Document{
		ID:        docID,
		Title:     input.Title,
		SourceURL: input.SourceURL,
		Text:      text,
	}
	if err := in.store.CreateDocument(ctx, doc); err != nil {
		return nil, 0, fmt.Errorf("create document: %w", err)
	}

	chunks := make([]*models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = &models.Chunk{
			ID:         uuid.New().String(),
			DocumentID: docID,
			VectorID:   handles[i],
			Ordinal:    p.Ordinal,
			Text:       p.Text,
			TokenCount: p.TokenCount,
		}
	}
	if err := in.store.PutChunks(ctx, chunks); err != nil {
		return nil, 0, fmt.Errorf("store chunks: %w", err)
	}

	if in.keywords != nil {
		for _, c := range chunks {
			if err := in.keywords.Index(ctx, c.VectorID, c.Text); err != nil {
				return nil, 0, fmt.Errorf("keyword index chunk %d: %w", c.VectorID, err)
			}
		}
	}

	// Metadata is durable; checkpoint the vector index last.
	if err := in.index.Save(in.indexPath); err != nil {
		return nil, 0, fmt.Errorf("checkpoint vector index: %w", err)
	}

	in.logger.Info("ingested document",
		zap.String("document_id", docID),
		zap.String("title", doc.Title),
		zap.Int("chunks", len(chunks)),
		zap.Int64("first_handle", handles[0]))
	return doc, len(chunks), nil
}

// embedBatches embeds texts in fixed-size batches and concatenates the
// results in order.
func (in *Ingestor) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += in.batchSize {
		end := start + in.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := in.embedder.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// IngestFile extracts text from the file at path and ingests it. The document
// ID is derived from the absolute path so re-ingesting a changed file replaces
// the old version. The title is the base name without extension.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (*models.Document, int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve path: %w", err)
	}
	text, err := in.extractor.Extract(abs)
	if err != nil {
		return nil, 0, fmt.Errorf("extract %s: %w", abs, err)
	}

	base := filepath.Base(abs)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	return in.IngestDocument(ctx, &models.DocumentInput{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String(),
		Title:     title,
		SourceURL: "file://" + abs,
		Text:      text,
	})
}

// IngestDirectory walks dir and ingests every file whose extension is in
// extensions (with leading dots). Files that fail are logged and skipped.
// Returns the number of documents ingested.
func (in *Ingestor) IngestDirectory(ctx context.Context, dir string, extensions []string) (int, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	ingested := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, _, err := in.IngestFile(ctx, path); err != nil {
			in.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
			return nil
		}
		ingested++
		return nil
	})
	if err != nil {
		return ingested, fmt.Errorf("walk %s: %w", dir, err)
	}
	return ingested, nil
}
