package retrieval

import (
	"strconv"
	"testing"

	"github.com/lumenlabs/insight-engine/internal/model"
)

func TestGroup_DensityDistinction(t *testing.T) {
	hits := make([]model.FusedHit, 0, 75)
	for i := 0; i < 73; i++ {
		hits = append(hits, model.FusedHit{
			ChunkHit: model.ChunkHit{
				ChunkID:               "d-chunk-" + strconv.Itoa(i),
				DocumentID:            "D",
				Order:                 i,
				TotalChunksInDocument: 100,
			},
			RRFScore: 0.5,
		})
	}
	for i := 0; i < 2; i++ {
		hits = append(hits, model.FusedHit{
			ChunkHit: model.ChunkHit{
				ChunkID:               "e-chunk-" + strconv.Itoa(i),
				DocumentID:            "E",
				Order:                 i,
				TotalChunksInDocument: 100,
			},
			RRFScore: 0.9,
		})
	}

	results := Group(hits, true)

	var docD, docE *model.DocumentResult
	for i := range results {
		switch results[i].DocumentID {
		case "D":
			docD = &results[i]
		case "E":
			docE = &results[i]
		}
	}
	if docD == nil || docE == nil {
		t.Fatal("expected both documents in result")
	}
	if diff := docD.RelevanceDensity - 0.73; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("D density = %f, want 0.73", docD.RelevanceDensity)
	}
	if diff := docE.RelevanceDensity - 0.02; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("E density = %f, want 0.02", docE.RelevanceDensity)
	}
	// Ordering is by best_rrf_score, not density: E (0.9) before D (0.5).
	if results[0].DocumentID != "E" {
		t.Errorf("first document = %s, want E (ordered by best_rrf_score)", results[0].DocumentID)
	}
}

func TestGroup_DensityZeroWhenDisabled(t *testing.T) {
	hits := []model.FusedHit{
		{ChunkHit: model.ChunkHit{ChunkID: "c1", DocumentID: "D", TotalChunksInDocument: 10}, RRFScore: 0.5},
	}
	results := Group(hits, false)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].RelevanceDensity != 0 {
		t.Errorf("RelevanceDensity = %f, want 0 when density calc disabled", results[0].RelevanceDensity)
	}
}

func TestGroup_ChunksOrderedByDescendingRRFThenAscendingOrder(t *testing.T) {
	hits := []model.FusedHit{
		{ChunkHit: model.ChunkHit{ChunkID: "c1", DocumentID: "D", Order: 2}, RRFScore: 0.5},
		{ChunkHit: model.ChunkHit{ChunkID: "c2", DocumentID: "D", Order: 0}, RRFScore: 0.9},
		{ChunkHit: model.ChunkHit{ChunkID: "c3", DocumentID: "D", Order: 1}, RRFScore: 0.5},
	}
	results := Group(hits, false)
	chunks := results[0].Chunks
	if chunks[0].ChunkID != "c2" {
		t.Fatalf("chunks[0] = %s, want c2 (highest rrf)", chunks[0].ChunkID)
	}
	if chunks[1].ChunkID != "c3" || chunks[2].ChunkID != "c1" {
		t.Fatalf("tie order = [%s, %s], want [c3, c1] (ascending order)", chunks[1].ChunkID, chunks[2].ChunkID)
	}
}

