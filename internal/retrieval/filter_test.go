package retrieval

import (
	"testing"

	"github.com/lumenlabs/insight-engine/internal/model"
)

func hitsByID(ids ...string) []model.FusedHit {
	out := make([]model.FusedHit, len(ids))
	for i, id := range ids {
		out[i] = model.FusedHit{ChunkHit: model.ChunkHit{ChunkID: id, DocumentID: id, DocumentType: "report"}}
	}
	return out
}

func TestApplyFilters_NilFiltersPassThrough(t *testing.T) {
	hits := hitsByID("a", "b")
	out := ApplyFilters(hits, nil)
	if len(out) != 2 {
		t.Errorf("len(out) = %d, want 2", len(out))
	}
}

func TestApplyFilters_DocumentIDs(t *testing.T) {
	hits := hitsByID("a", "b", "c")
	out := ApplyFilters(hits, &model.Filters{DocumentIDs: []string{"a", "c"}})
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].ChunkID != "a" || out[1].ChunkID != "c" {
		t.Errorf("filter did not preserve order: got %v", out)
	}
}

func TestApplyFilters_DocumentTypesKeepsUntyped(t *testing.T) {
	hits := []model.FusedHit{
		{ChunkHit: model.ChunkHit{ChunkID: "a", DocumentType: "report"}},
		{ChunkHit: model.ChunkHit{ChunkID: "b", DocumentType: "memo"}},
		{ChunkHit: model.ChunkHit{ChunkID: "c", DocumentType: ""}},
	}
	out := ApplyFilters(hits, &model.Filters{DocumentTypes: []string{"report"}})
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (report + untyped)", len(out))
	}
}
