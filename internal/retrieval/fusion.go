package retrieval

import (
	"sort"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/vector"
)

// hybridPoolFactor widens the per-list candidate fetch before fusion, so a
// passage ranked below top_k in one list can still reach the final cut.
const hybridPoolFactor = 3

// fusedHit is a handle with its reciprocal-rank-fusion score.
type fusedHit struct {
	ID    int64
	Score float64
}

// fuseRRF merges vector and keyword rankings with reciprocal rank fusion:
// each hit contributes 1/(k + rank) per list it appears in. Ties order by
// ascending handle so the fused ranking is deterministic.
func fuseRRF(vectorHits []vector.Result, keywordHits []keyword.Result, k int) []fusedHit {
	if k <= 0 {
		k = 60
	}
	scores := make(map[int64]float64)
	for rank, hit := range vectorHits {
		scores[hit.ID] += 1.0 / float64(k+rank+1)
	}
	for rank, hit := range keywordHits {
		scores[hit.ID] += 1.0 / float64(k+rank+1)
	}

	fused := make([]fusedHit, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, fusedHit{ID: id, Score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})
	return fused
}
