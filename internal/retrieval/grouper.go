package retrieval

import (
	"sort"

	"github.com/lumenlabs/insight-engine/internal/model"
)

// Group collapses a fused hit list into per-document DocumentResults (C7):
// appends each hit to its document's chunk list, tracks the running best
// rrf_score and best raw similarity, and computes relevance density when
// enabled and the document's total chunk count is known.
func Group(hits []model.FusedHit, enableDensity bool) []model.DocumentResult {
	byDoc := make(map[string]*model.DocumentResult)
	order := make([]string, 0)

	for _, h := range hits {
		dr, ok := byDoc[h.DocumentID]
		if !ok {
			dr = &model.DocumentResult{
				DocumentID:    h.DocumentID,
				DocumentTitle: h.DocumentTitle,
				DocumentType:  h.DocumentType,
			}
			byDoc[h.DocumentID] = dr
			order = append(order, h.DocumentID)
		}

		dr.Chunks = append(dr.Chunks, h)
		if h.RRFScore > dr.BestRRFScore {
			dr.BestRRFScore = h.RRFScore
		}
		if h.RawSemanticScore != nil && *h.RawSemanticScore > dr.BestRawSimilarity {
			dr.BestRawSimilarity = *h.RawSemanticScore
		}
	}

	results := make([]model.DocumentResult, 0, len(order))
	for _, id := range order {
		dr := byDoc[id]

		sort.SliceStable(dr.Chunks, func(i, j int) bool {
			if dr.Chunks[i].RRFScore != dr.Chunks[j].RRFScore {
				return dr.Chunks[i].RRFScore > dr.Chunks[j].RRFScore
			}
			return dr.Chunks[i].Order < dr.Chunks[j].Order
		})

		if enableDensity && len(dr.Chunks) > 0 {
			total := dr.Chunks[0].TotalChunksInDocument
			if total > 0 {
				density := float64(len(dr.Chunks)) / float64(total)
				if density > 1 {
					density = 1
				}
				dr.RelevanceDensity = density
			}
		}

		results = append(results, *dr)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].BestRRFScore != results[j].BestRRFScore {
			return results[i].BestRRFScore > results[j].BestRRFScore
		}
		if results[i].BestRawSimilarity != results[j].BestRawSimilarity {
			return results[i].BestRawSimilarity > results[j].BestRawSimilarity
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	return results
}
