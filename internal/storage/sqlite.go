// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStorage implements Storage using SQLite with WAL journaling.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_url TEXT,
		text TEXT NOT NULL,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_ingested_at ON documents(ingested_at);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		vector_id INTEGER NOT NULL UNIQUE,
		ordinal INTEGER NOT NULL,
		text TEXT NOT NULL,
		token_count INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_ordinal ON chunks(document_id, ordinal);

	CREATE TABLE IF NOT EXISTS query_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		confidence TEXT NOT NULL,
		top_score REAL NOT NULL,
		num_passages INTEGER NOT NULL,
		embed_ms INTEGER NOT NULL,
		retrieval_ms INTEGER NOT NULL,
		llm_ms INTEGER NOT NULL,
		total_ms INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_query_logs_created_at ON query_logs(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document, stamping IngestedAt.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	doc.IngestedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, source_url, text, ingested_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.SourceURL, doc.Text, doc.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a document by ID, or ErrNotFound.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, source_url, text, ingested_at FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &doc.SourceURL, &doc.Text, &doc.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &doc, nil
}

// DeleteDocument removes a document and, via cascade, its chunks.
// Returns ErrNotFound when no document has the given ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListDocuments returns documents ordered by ingestion time descending, with
// chunk and token totals. Document text is omitted from listings.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.DocumentStats, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.title, d.source_url, d.ingested_at,
		        COUNT(c.id), COALESCE(SUM(c.token_count), 0)
		 FROM documents d
		 LEFT JOIN chunks c ON c.document_id = d.id
		 GROUP BY d.id
		 ORDER BY d.ingested_at DESC
		 LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.DocumentStats, 0)
	for rows.Next() {
		var d models.DocumentStats
		if err := rows.Scan(&d.ID, &d.Title, &d.SourceURL, &d.IngestedAt, &d.ChunkCount, &d.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// PutChunks inserts chunks in a single transaction.
func (s *SQLiteStorage) PutChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, vector_id, ordinal, text, token_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		c.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.VectorID, c.Ordinal, c.Text, c.TokenCount, c.CreatedAt); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetChunksByVectorIDs resolves vector handles to chunks joined with document
// title and source URL. Handles with no row are absent from the map.
func (s *SQLiteStorage) GetChunksByVectorIDs(ctx context.Context, vectorIDs []int64) (map[int64]*models.ChunkWithDocument, error) {
	result := make(map[int64]*models.ChunkWithDocument, len(vectorIDs))
	if len(vectorIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(vectorIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(vectorIDs))
	for i, id := range vectorIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.vector_id, c.ordinal, c.text, c.token_count, c.created_at,
		        d.title, d.source_url
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.vector_id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get chunks by vector ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.ChunkWithDocument
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.VectorID, &c.Ordinal, &c.Text, &c.TokenCount, &c.CreatedAt,
			&c.Title, &c.SourceURL); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		result[c.VectorID] = &c
	}
	return result, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// InsertQueryLog records one answered query.
func (s *SQLiteStorage) InsertQueryLog(ctx context.Context, log *models.QueryLog) error {
	log.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO query_logs (query, confidence, top_score, num_passages, embed_ms, retrieval_ms, llm_ms, total_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.Query, log.Confidence, log.TopScore, log.NumPassages,
		log.EmbedMillis, log.RetrievalMillis, log.LLMMillis, log.TotalMillis, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		log.ID = id
	}
	return nil
}

// LatencyMetrics returns count, average, and p50/p95 of total query latency.
func (s *SQLiteStorage) LatencyMetrics(ctx context.Context) (*models.LatencyMetrics, error) {
	m := &models.LatencyMetrics{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(total_ms), 0) FROM query_logs`,
	).Scan(&m.Count, &m.AvgMillis)
	if err != nil {
		return nil, fmt.Errorf("latency metrics: %w", err)
	}
	if m.Count == 0 {
		return m, nil
	}

	percentile := func(p float64) (int64, error) {
		offset := int64(p * float64(m.Count-1))
		var v int64
		err := s.db.QueryRowContext(ctx,
			`SELECT total_ms FROM query_logs ORDER BY total_ms LIMIT 1 OFFSET ?`, offset,
		).Scan(&v)
		return v, err
	}
	if m.P50Millis, err = percentile(0.50); err != nil {
		return nil, fmt.Errorf("latency p50: %w", err)
	}
	if m.P95Millis, err = percentile(0.95); err != nil {
		return nil, fmt.Errorf("latency p95: %w", err)
	}
	return m, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
