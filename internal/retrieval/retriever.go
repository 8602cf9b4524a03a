package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Retriever runs the query side of the pipeline: embed the question, search
// the vector index (optionally fused with keyword hits), resolve handles to
// chunk metadata, and label the outcome with a confidence.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.Index
	store    storage.Storage
	keywords *keyword.BleveIndex // nil disables hybrid mode
	scorer   *Scorer
	cfg      config.RetrievalConfig
	embedCfg config.EmbeddingConfig
	logger   *zap.Logger
}

// NewRetriever wires the retrieval pipeline. keywords may be nil; hybrid
// requests then fall back to pure vector search.
func NewRetriever(
	embedder embedding.Embedder,
	index vector.Index,
	store storage.Storage,
	keywords *keyword.BleveIndex,
	cfg config.RetrievalConfig,
	embedCfg config.EmbeddingConfig,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		keywords: keywords,
		scorer:   NewScorer(cfg),
		cfg:      cfg,
		embedCfg: embedCfg,
		logger:   logger,
	}
}

// Retrieve answers req with an ordered set of passages. An empty index
// short-circuits with IndexEmpty set; the metadata store is never touched in
// that case. Handles the vector index returns but the store cannot resolve
// are logged and dropped, never an error.
func (r *Retriever) Retrieve(ctx context.Context, req *models.QueryRequest) (*models.QueryOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	outcome := &models.QueryOutcome{Query: req.Query, Passages: []*models.Passage{}}

	embedStart := time.Now()
	embedCtx, cancel := context.WithTimeout(ctx, r.embedCfg.Timeout())
	queryVec, err := r.embedder.EmbedQuery(embedCtx, req.Query)
	cancel()
	outcome.EmbedMillis = time.Since(embedStart).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if r.index.Size() == 0 {
		outcome.IndexEmpty = true
		outcome.Confidence = models.ConfidenceLow
		return outcome, nil
	}

	hybrid := req.Mode == models.SearchModeHybrid && r.keywords != nil
	fetchK := req.TopK
	if hybrid {
		// Fusion needs a candidate pool deeper than the final cut, or it
		// could never surface a passage ranked below top_k in one list.
		fetchK = req.TopK * hybridPoolFactor
	}

	searchStart := time.Now()
	vectorHits, err := r.index.Search(ctx, queryVec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	ordered := vectorHits
	if hybrid {
		ordered = r.fuseWithKeywords(ctx, req, vectorHits)
	}
	outcome.SearchMillis = time.Since(searchStart).Milliseconds()

	handles := make([]int64, len(ordered))
	for i, hit := range ordered {
		handles[i] = hit.ID
	}
	resolved, err := r.store.GetChunksByVectorIDs(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("resolve chunks: %w", err)
	}

	for _, hit := range ordered {
		chunk, ok := resolved[hit.ID]
		if !ok {
			outcome.Dropped++
			r.logger.Warn("dropping unresolvable vector handle",
				zap.Int64("vector_id", hit.ID),
				zap.String("query", req.Query))
			continue
		}
		outcome.Passages = append(outcome.Passages, &models.Passage{
			Chunk:     &chunk.Chunk,
			Title:     chunk.Title,
			SourceURL: chunk.SourceURL,
			Score:     hit.Score,
		})
	}

	// Confidence always derives from the top vector similarity, even under
	// hybrid fusion; RRF scores are rank aggregates, not similarities.
	topVector := 0.0
	if len(vectorHits) > 0 {
		topVector = vectorHits[0].Score
	}
	outcome.Confidence = r.scorer.Confidence(topVector, len(outcome.Passages))
	return outcome, nil
}

// fuseWithKeywords merges the vector hits with keyword hits by reciprocal
// rank fusion, keeping the vector similarity as each passage's score where
// one exists. Keyword search failure degrades to the vector ranking alone.
func (r *Retriever) fuseWithKeywords(ctx context.Context, req *models.QueryRequest, vectorHits []vector.Result) []vector.Result {
	keywordHits, err := r.keywords.Search(ctx, req.Query, req.TopK*hybridPoolFactor)
	if err != nil {
		r.logger.Warn("keyword search failed, using vector ranking only", zap.Error(err))
		if len(vectorHits) > req.TopK {
			vectorHits = vectorHits[:req.TopK]
		}
		return vectorHits
	}

	similarity := make(map[int64]float64, len(vectorHits))
	for _, hit := range vectorHits {
		similarity[hit.ID] = hit.Score
	}

	fused := fuseRRF(vectorHits, keywordHits, r.cfg.RRFConstant)
	if len(fused) > req.TopK {
		fused = fused[:req.TopK]
	}
	out := make([]vector.Result, len(fused))
	for i, hit := range fused {
		out[i] = vector.Result{ID: hit.ID, Score: similarity[hit.ID]}
	}
	return out
}
