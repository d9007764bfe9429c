package retrieval

import (
	"sort"

	"github.com/lumenlabs/insight-engine/internal/model"
)

// Fuse merges dense and lexical hit lists via additive Reciprocal Rank
// Fusion (C4). For a hit at 0-based rank i, its contribution is 1/(k+i).
// A chunk appearing in both lists sums its two contributions and is tagged
// "hybrid"; otherwise it keeps the single source's tag. Results are sorted
// by descending rrf_score.
func Fuse(dense, lexical []model.ChunkHit, k float64) []model.FusedHit {
	byID := make(map[string]*model.FusedHit)
	order := make([]string, 0, len(dense)+len(lexical))

	for rank, hit := range dense {
		fh, ok := byID[hit.ChunkID]
		if !ok {
			fh = newFusedHit(hit, model.SourceDense)
			byID[hit.ChunkID] = fh
			order = append(order, hit.ChunkID)
		}
		r := rank
		fh.SemanticRank = &r
		sim := hit.Score
		fh.RawSemanticScore = &sim
		fh.RRFScore += 1.0 / (k + float64(rank))
	}

	for rank, hit := range lexical {
		fh, ok := byID[hit.ChunkID]
		if !ok {
			fh = newFusedHit(hit, model.SourceLexical)
			byID[hit.ChunkID] = fh
			order = append(order, hit.ChunkID)
		} else {
			fh.SourceTag = model.SourceHybrid
		}
		r := rank
		fh.LexicalRank = &r
		fh.RRFScore += 1.0 / (k + float64(rank))
	}

	results := make([]model.FusedHit, 0, len(order))
	for _, id := range order {
		results = append(results, *byID[id])
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		return results[i].Order < results[j].Order
	})

	return results
}

func newFusedHit(hit model.ChunkHit, tag model.SourceTag) *model.FusedHit {
	return &model.FusedHit{
		ChunkHit:  hit,
		SourceTag: tag,
	}
}
