package models

// Confidence is a coarse, threshold-derived quality label on a query's best match score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Passage is one retrieved chunk resolved with its document metadata.
// Score is the exact inner-product similarity in [-1, 1].
type Passage struct {
	Chunk     *Chunk  `json:"chunk"`
	Title     string  `json:"title"`
	SourceURL string  `json:"source_url,omitempty"`
	Score     float64 `json:"score"`
}

// QueryOutcome is the result of the retrieval pipeline for one query:
// passages ordered by descending relevance plus the derived confidence.
type QueryOutcome struct {
	Query      string     `json:"query"`
	Passages   []*Passage `json:"passages"`
	Confidence Confidence `json:"confidence"`
	// IndexEmpty is true when the vector index held no vectors and retrieval
	// short-circuited without touching the metadata store.
	IndexEmpty bool `json:"index_empty,omitempty"`
	// Dropped counts handles returned by the vector index that had no
	// metadata row and were removed from the result set.
	Dropped int `json:"dropped,omitempty"`
	// EmbedMillis and SearchMillis are stage latencies for telemetry.
	EmbedMillis  int64 `json:"embed_ms"`
	SearchMillis int64 `json:"search_ms"`
}

// TopScore returns the highest passage score, or 0 when there are no passages.
func (o *QueryOutcome) TopScore() float64 {
	if len(o.Passages) == 0 {
		return 0
	}
	return o.Passages[0].Score
}

// Citation is a source reference included in an answer.
type Citation struct {
	Title       string `json:"title"`
	SourceURL   string `json:"source_url,omitempty"`
	TextPreview string `json:"text_preview"`
	Score       float64 `json:"score"`
}

// Answer is the final response assembled from retrieval and generation.
type Answer struct {
	Answer          string     `json:"answer"`
	Citations       []Citation `json:"citations"`
	Confidence      Confidence `json:"confidence"`
	Degraded        bool       `json:"degraded,omitempty"`
	LatencyMillis   int64      `json:"latency_ms"`
	EmbedMillis     int64      `json:"embed_ms"`
	RetrievalMillis int64      `json:"retrieval_ms"`
	LLMMillis       int64      `json:"llm_ms"`
	TokensUsed      int        `json:"tokens_used"`
}
