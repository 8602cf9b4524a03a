// Package service assembles retrieval and generation into answered queries.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	noDocumentsAnswer  = "No documents have been indexed yet. Ingest some documentation first."
	noPassagesAnswer   = "I could not find relevant information for that question in the indexed documents."
	degradedAnswer     = "Answer generation is currently unavailable. The most relevant passages are cited below."
	citationPreviewLen = 200
)

// QueryService answers questions over the indexed corpus. Retrieval failures
// fail the request; generation failures degrade it to citations only.
type QueryService struct {
	retriever *retrieval.Retriever
	generator generation.Generator // nil disables generation entirely
	store     storage.Storage
	logger    *zap.Logger
}

// NewQueryService wires the answering pipeline. generator may be nil, in
// which case every response carries passages without generated prose.
func NewQueryService(retriever *retrieval.Retriever, generator generation.Generator, store storage.Storage, logger *zap.Logger) *QueryService {
	return &QueryService{
		retriever: retriever,
		generator: generator,
		store:     store,
		logger:    logger,
	}
}

// Answer runs retrieval and generation for req and logs the outcome.
func (s *QueryService) Answer(ctx context.Context, req *models.QueryRequest) (*models.Answer, error) {
	start := time.Now()

	outcome, err := s.retriever.Retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	answer := &models.Answer{
		Confidence:      outcome.Confidence,
		EmbedMillis:     outcome.EmbedMillis,
		RetrievalMillis: outcome.SearchMillis,
		Citations:       []models.Citation{},
	}

	switch {
	case outcome.IndexEmpty:
		answer.Answer = noDocumentsAnswer
	case len(outcome.Passages) == 0:
		answer.Answer = noPassagesAnswer
	default:
		answer.Citations = buildCitations(outcome.Passages)
		s.generate(ctx, req.Query, outcome, answer)
	}

	answer.LatencyMillis = time.Since(start).Milliseconds()
	s.logQuery(ctx, req, outcome, answer)
	return answer, nil
}

// generate fills in the model's answer, degrading to a fixed marker when the
// call fails. Citations and confidence survive degradation.
func (s *QueryService) generate(ctx context.Context, question string, outcome *models.QueryOutcome, answer *models.Answer) {
	if s.generator == nil {
		answer.Answer = degradedAnswer
		answer.Degraded = true
		return
	}

	llmStart := time.Now()
	result, err := s.generator.Generate(ctx, question, outcome.Passages)
	answer.LLMMillis = time.Since(llmStart).Milliseconds()
	if err != nil {
		s.logger.Error("answer generation failed, degrading to citations",
			zap.String("query", question),
			zap.Error(err))
		answer.Answer = degradedAnswer
		answer.Degraded = true
		return
	}
	answer.Answer = result.Text
	answer.TokensUsed = result.TokensUsed
}

func buildCitations(passages []*models.Passage) []models.Citation {
	citations := make([]models.Citation, len(passages))
	for i, p := range passages {
		citations[i] = models.Citation{
			Title:       p.Title,
			SourceURL:   p.SourceURL,
			TextPreview: utils.Preview(p.Chunk.Text, citationPreviewLen),
			Score:       p.Score,
		}
	}
	return citations
}

// logQuery appends the outcome to query_logs. Logging failures are reported
// but never fail the request.
func (s *QueryService) logQuery(ctx context.Context, req *models.QueryRequest, outcome *models.QueryOutcome, answer *models.Answer) {
	log := &models.QueryLog{
		Query:           req.Query,
		Confidence:      answer.Confidence,
		TopScore:        outcome.TopScore(),
		NumPassages:     len(outcome.Passages),
		EmbedMillis:     answer.EmbedMillis,
		RetrievalMillis: answer.RetrievalMillis,
		LLMMillis:       answer.LLMMillis,
		TotalMillis:     answer.LatencyMillis,
	}
	if err := s.store.InsertQueryLog(ctx, log); err != nil {
		s.logger.Warn("failed to record query log", zap.Error(err))
	}
}
