package models

import "time"

// QueryLog is one answered query recorded for telemetry.
type QueryLog struct {
	ID              int64      `json:"id" db:"id"`
	Query           string     `json:"query" db:"query"`
	Confidence      Confidence `json:"confidence" db:"confidence"`
	TopScore        float64    `json:"top_score" db:"top_score"`
	NumPassages     int        `json:"num_passages" db:"num_passages"`
	EmbedMillis     int64      `json:"embed_ms" db:"embed_ms"`
	RetrievalMillis int64      `json:"retrieval_ms" db:"retrieval_ms"`
	LLMMillis       int64      `json:"llm_ms" db:"llm_ms"`
	TotalMillis     int64      `json:"total_ms" db:"total_ms"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// LatencyMetrics summarizes end-to-end query latency over logged queries.
type LatencyMetrics struct {
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms"`
	P50Millis int64   `json:"p50_ms"`
	P95Millis int64   `json:"p95_ms"`
}
