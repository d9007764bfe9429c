// Package insight implements the insight generation pipeline (C8-C11):
// a three-way concurrent LLM fan-out over retrieved documents, deterministic
// prompt assembly, and citation resolution against the requesting documents.
package insight

import (
	"sort"
	"strings"

	"github.com/lumenlabs/insight-engine/internal/model"
)

const (
	maxChunksPerDocSummary = 6
	maxChunksPerDocAnswer  = 4
	maxGlobalContextChunks = 16
	relatedQuestionCount   = 3
)

// summaryContext concatenates up to maxChunksPerDocSummary top chunks of a
// single document (already ordered by descending rrf_score by C7) with a
// blank-line separator.
func summaryContext(doc model.DocumentResult) string {
	n := len(doc.Chunks)
	if n > maxChunksPerDocSummary {
		n = maxChunksPerDocSummary
	}
	texts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		texts = append(texts, doc.Chunks[i].ChunkText)
	}
	return strings.Join(texts, "\n\n")
}

// globalContext builds the up-to-16-chunk cross-document context shared by
// direct_answer and related_questions (§4.8): up to maxChunksPerDocAnswer
// chunks per document, globally re-sorted by descending rrf_score, truncated
// to maxGlobalContextChunks.
func globalContext(docs []model.DocumentResult) []model.FusedHit {
	pooled := make([]model.FusedHit, 0, maxGlobalContextChunks)
	for _, doc := range docs {
		n := len(doc.Chunks)
		if n > maxChunksPerDocAnswer {
			n = maxChunksPerDocAnswer
		}
		for i := 0; i < n; i++ {
			hit := doc.Chunks[i]
			if hit.DocumentTitle == "" {
				hit.DocumentTitle = doc.DocumentTitle
			}
			pooled = append(pooled, hit)
		}
	}

	sort.SliceStable(pooled, func(i, j int) bool {
		return pooled[i].RRFScore > pooled[j].RRFScore
	})

	if len(pooled) > maxGlobalContextChunks {
		pooled = pooled[:maxGlobalContextChunks]
	}
	return pooled
}

// renderGlobalContext formats the global context with inline [Source: TITLE]
// markers so the model can echo them back verbatim in its answer (C9/C11).
func renderGlobalContext(hits []model.FusedHit) string {
	var sb strings.Builder
	for _, h := range hits {
		sb.WriteString("[Source: ")
		sb.WriteString(h.DocumentTitle)
		sb.WriteString("]\n")
		sb.WriteString(h.ChunkText)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func buildSummarySystemPrompt() string {
	return `You produce a single impactful sentence describing why a document is relevant to a user's query.
Respond as JSON: {"relevance_summary": "...", "confidence_score": 0.0-1.0}.
Base the sentence only on the provided excerpts. Do not invent facts.`
}

func buildSummaryUserPrompt(query string, doc model.DocumentResult) string {
	var sb strings.Builder
	sb.WriteString("=== QUERY ===\n")
	sb.WriteString(query)
	sb.WriteString("\n\n=== DOCUMENT: ")
	sb.WriteString(doc.DocumentTitle)
	sb.WriteString(" ===\n")
	sb.WriteString(summaryContext(doc))
	sb.WriteString("\n\nRespond with JSON: {\"relevance_summary\": \"...\", \"confidence_score\": 0.0-1.0}")
	return sb.String()
}

func buildAnswerSystemPrompt() string {
	return `You answer a user's query using only the provided excerpts.
Every factual claim must be immediately followed by a citation marker of the
exact form [Source: <document title>], copying the title verbatim from the
excerpt headers. Never fabricate a title. If the excerpts are insufficient,
say so explicitly rather than speculate.
Respond as JSON: {"answer_markdown": "...", "confidence": 0.0-1.0, "source_titles": ["..."]}.`
}

func buildAnswerUserPrompt(query string, context []model.FusedHit) string {
	var sb strings.Builder
	sb.WriteString("=== CONTEXT ===\n")
	sb.WriteString(renderGlobalContext(context))
	sb.WriteString("=== QUERY ===\n")
	sb.WriteString(query)
	sb.WriteString("\n\nRespond with JSON: {\"answer_markdown\": \"...\", \"confidence\": 0.0-1.0, \"source_titles\": [\"...\"]}")
	return sb.String()
}

func buildQuestionsSystemPrompt() string {
	return `You suggest exactly three follow-up questions a reader might ask next,
given the context and the original query. Each question is tagged with a
category of Strategic, Technical, or Adoption, and a relevance score in
[0.5, 0.95]. Avoid round numbers (0.7, 0.8, 0.9) for relevance; prefer
realistic values like 0.73 or 0.86.
Respond as JSON: {"questions": [{"question": "...", "category": "Strategic|Technical|Adoption", "relevance": 0.0-1.0}]}.`
}

func buildQuestionsUserPrompt(query string, context []model.FusedHit) string {
	var sb strings.Builder
	sb.WriteString("=== CONTEXT ===\n")
	sb.WriteString(renderGlobalContext(context))
	sb.WriteString("=== ORIGINAL QUERY ===\n")
	sb.WriteString(query)
	sb.WriteString("\n\nRespond with JSON: {\"questions\": [{\"question\": \"...\", \"category\": \"Strategic|Technical|Adoption\", \"relevance\": 0.0-1.0}]} (exactly 3 questions)")
	return sb.String()
}
