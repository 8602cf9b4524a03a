package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/service"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/tokenize"
	"github.com/hyperjump/kotae/internal/vector"
)

type staticGenerator struct{}

func (staticGenerator) Generate(ctx context.Context, question string, passages []*models.Passage) (*generation.Result, error) {
	return &generation.Result{Text: "Generated answer. [1]", TokensUsed: 10}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	ch, err := chunker.New(tokenize.NewSegmentTokenizer(), 384, 64)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewMockEmbedder(64)
	idx, err := vector.NewFlatIndex(64)
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	indexPath := filepath.Join(dir, "vectors.bin")
	ingestor := ingest.NewIngestor(ch, emb, idx, store, nil, indexPath, 32, logger)

	retCfg := config.RetrievalConfig{TopK: 5, HighThreshold: 0.80, MediumThreshold: 0.60, RRFConstant: 60}
	retriever := retrieval.NewRetriever(emb, idx, store, nil, retCfg,
		config.EmbeddingConfig{Dimensions: 64, TimeoutSeconds: 5}, logger)
	queries := service.NewQueryService(retriever, staticGenerator{}, store, logger)

	return NewServer(queries, ingestor, store, idx, indexPath,
		&config.ServerConfig{Host: "127.0.0.1", Port: 0}, logger)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status  string `json:"status"`
		Vectors int    `json:"vectors"`
	}
	decode(t, rec, &body)
	if body.Status != "ok" || body.Vectors != 0 {
		t.Errorf("health = %+v", body)
	}
}

func TestQueryInvalidRequests(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader("{not json"))
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/query", map[string]string{"query": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank query status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/query", map[string]interface{}{"query": "x", "top_k": -2})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative top_k status = %d, want 400", rec.Code)
	}
}

func TestQueryEmptyCorpus(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/query", map[string]string{"query": "anything at all"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (empty corpus is an in-body condition)", rec.Code)
	}
	var answer models.Answer
	decode(t, rec, &answer)
	if answer.Confidence != models.ConfidenceLow {
		t.Errorf("Confidence = %s, want low", answer.Confidence)
	}
	if !strings.Contains(answer.Answer, "No documents") {
		t.Errorf("Answer = %q, want the no-documents message", answer.Answer)
	}
}

func TestIngestQueryDeleteLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Ingest
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/documents", models.DocumentInput{
		ID:    "doc-1",
		Title: "Release Process",
		Text:  "tag the commit, push the tag, and the pipeline builds the release artifacts",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		Chunks int    `json:"chunks"`
	}
	decode(t, rec, &created)
	if created.ID != "doc-1" || created.Chunks != 1 {
		t.Errorf("ingest response = %+v", created)
	}

	// List
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Documents []models.DocumentStats `json:"documents"`
	}
	decode(t, rec, &listed)
	if len(listed.Documents) != 1 || listed.Documents[0].ID != "doc-1" || listed.Documents[0].ChunkCount != 1 {
		t.Errorf("listed = %+v", listed.Documents)
	}

	// Query
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/query", map[string]string{"query": "how are releases built?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d, body %s", rec.Code, rec.Body.String())
	}
	var answer models.Answer
	decode(t, rec, &answer)
	if answer.Answer != "Generated answer. [1]" {
		t.Errorf("Answer = %q", answer.Answer)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].Title != "Release Process" {
		t.Errorf("Citations = %+v", answer.Citations)
	}

	// Metrics reflect the logged query.
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	var metrics struct {
		Latency   models.LatencyMetrics `json:"latency"`
		Documents int64                 `json:"documents"`
		Chunks    int64                 `json:"chunks"`
		Vectors   int                   `json:"vectors"`
	}
	decode(t, rec, &metrics)
	if metrics.Documents != 1 || metrics.Chunks != 1 || metrics.Vectors != 1 {
		t.Errorf("metrics = %+v", metrics)
	}
	if metrics.Latency.Count < 1 {
		t.Errorf("latency count = %d, want >= 1", metrics.Latency.Count)
	}

	// Delete
	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/documents/doc-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/documents/doc-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("re-delete status = %d, want 404", rec.Code)
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/documents", models.DocumentInput{
		Title: "Empty",
		Text:  "   \n  ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty document status = %d, want 400", rec.Code)
	}
}
