package insight

import (
	"strconv"
	"strings"
	"testing"

	"github.com/lumenlabs/insight-engine/internal/model"
)

func chunkHit(id, title string, order int, rrf float64) model.FusedHit {
	return model.FusedHit{
		ChunkHit: model.ChunkHit{
			ChunkID:       id,
			DocumentTitle: title,
			ChunkText:     "text-" + id,
			Order:         order,
		},
		RRFScore: rrf,
	}
}

func TestSummaryContext_CapsAtSix(t *testing.T) {
	chunks := make([]model.FusedHit, 0, 10)
	for i := 0; i < 10; i++ {
		chunks = append(chunks, chunkHit("c"+strconv.Itoa(i), "Doc", i, float64(10-i)))
	}
	doc := model.DocumentResult{Chunks: chunks}

	got := summaryContext(doc)
	if n := strings.Count(got, "text-"); n != 6 {
		t.Errorf("summaryContext included %d chunks, want 6", n)
	}
}

func TestGlobalContext_CapsPerDocAndTotal(t *testing.T) {
	docs := make([]model.DocumentResult, 0, 5)
	for d := 0; d < 5; d++ {
		chunks := make([]model.FusedHit, 0, 6)
		for i := 0; i < 6; i++ {
			chunks = append(chunks, chunkHit("d"+strconv.Itoa(d)+"-c"+strconv.Itoa(i), "Doc"+strconv.Itoa(d), i, float64(d*10+i)))
		}
		docs = append(docs, model.DocumentResult{DocumentID: "doc" + strconv.Itoa(d), Chunks: chunks})
	}

	got := globalContext(docs)
	if len(got) != 16 {
		t.Fatalf("len(globalContext) = %d, want 16 (5 docs x 4 capped at 16)", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].RRFScore > got[i-1].RRFScore {
			t.Fatalf("globalContext not sorted by descending rrf_score at index %d", i)
		}
	}
}

func TestRenderGlobalContext_EmbedsSourceMarkers(t *testing.T) {
	hits := []model.FusedHit{chunkHit("c1", "My Title", 0, 1.0)}
	rendered := renderGlobalContext(hits)
	if !strings.Contains(rendered, "[Source: My Title]") {
		t.Errorf("rendered context missing source marker: %q", rendered)
	}
}
