package insight

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumenlabs/insight-engine/internal/model"
)

// JSONGenerator is the chat_json storage primitive (C10): produces raw JSON
// text from a system/user prompt pair, honoring JSON response mode.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Orchestrator runs the three insight kinds concurrently (C8), each with its
// own deadline, and assembles the results into a single InsightBundle.
type Orchestrator struct {
	client     JSONGenerator
	taskTimeout time.Duration
}

// New creates an Orchestrator. taskTimeout defaults to 15s when zero.
func New(client JSONGenerator, taskTimeout time.Duration) *Orchestrator {
	if taskTimeout <= 0 {
		taskTimeout = 15 * time.Second
	}
	return &Orchestrator{client: client, taskTimeout: taskTimeout}
}

// Generate dispatches the kinds selected by insightType and returns the
// assembled bundle plus per-kind timings. Each task runs under its own
// context.WithTimeout derived from ctx; cancelling or timing out one task
// never cancels the others, only the surrounding request deadline does (§5).
func (o *Orchestrator) Generate(ctx context.Context, query string, docs []model.DocumentResult, insightType model.InsightType) (*model.InsightBundle, model.InsightBreakdown, error) {
	wantSummaries := insightType == model.InsightDocumentSummaries || insightType == model.InsightAll
	wantAnswer := insightType == model.InsightDirectAnswer || insightType == model.InsightAll
	wantQuestions := insightType == model.InsightRelatedQuestions || insightType == model.InsightAll

	bundle := &model.InsightBundle{GeneratedAt: time.Now().UTC()}
	var breakdown model.InsightBreakdown

	g, gCtx := errgroup.WithContext(ctx)

	if wantSummaries {
		g.Go(func() error {
			start := time.Now()
			bundle.DocumentSummaries = o.runSummaries(gCtx, query, docs)
			breakdown.DocumentSummariesMs = time.Since(start).Milliseconds()
			return nil
		})
	}

	context16 := globalContext(docs)

	if wantAnswer {
		g.Go(func() error {
			start := time.Now()
			bundle.DirectAnswer = o.runDirectAnswer(gCtx, query, docs, context16)
			breakdown.DirectAnswerMs = time.Since(start).Milliseconds()
			return nil
		})
	}

	if wantQuestions {
		g.Go(func() error {
			start := time.Now()
			bundle.RelatedQuestions = o.runRelatedQuestions(gCtx, query, context16)
			breakdown.RelatedQuestionsMs = time.Since(start).Milliseconds()
			return nil
		})
	}

	totalStart := time.Now()
	_ = g.Wait()
	breakdown.TotalMs = time.Since(totalStart).Milliseconds()

	return bundle, breakdown, nil
}

func (o *Orchestrator) taskContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, o.taskTimeout)
}

// runSummaries produces one DocumentSummary per document, independently.
// A per-document failure degrades to the documented fallback value and
// never fails the batch (§4.8).
func (o *Orchestrator) runSummaries(ctx context.Context, query string, docs []model.DocumentResult) []model.DocumentSummary {
	out := make([]model.DocumentSummary, len(docs))
	for i, doc := range docs {
		out[i] = o.summarizeOne(ctx, query, doc)
	}
	return out
}

func (o *Orchestrator) summarizeOne(ctx context.Context, query string, doc model.DocumentResult) model.DocumentSummary {
	taskCtx, cancel := o.taskContext(ctx)
	defer cancel()

	raw, err := o.client.GenerateJSON(taskCtx, buildSummarySystemPrompt(), buildSummaryUserPrompt(query, doc))
	fallback := model.DocumentSummary{
		DocumentID:       doc.DocumentID,
		DocumentTitle:    doc.DocumentTitle,
		DocumentType:     doc.DocumentType,
		RelevanceSummary: "Summary unavailable.",
		ConfidenceScore:  0.0,
	}
	if err != nil {
		slog.Warn("[INSIGHT] document summary failed", "document_id", doc.DocumentID, "error", err)
		return fallback
	}

	var parsed struct {
		RelevanceSummary string  `json:"relevance_summary"`
		ConfidenceScore  float64 `json:"confidence_score"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || parsed.RelevanceSummary == "" {
		slog.Warn("[INSIGHT] document summary parse failed", "document_id", doc.DocumentID, "error", err)
		return fallback
	}

	return model.DocumentSummary{
		DocumentID:       doc.DocumentID,
		DocumentTitle:    doc.DocumentTitle,
		DocumentType:     doc.DocumentType,
		RelevanceSummary: parsed.RelevanceSummary,
		ConfidenceScore:  parsed.ConfidenceScore,
	}
}

// runDirectAnswer produces the cited markdown answer over the shared global
// context, then resolves its citations against docs (C11). A task failure
// degrades to an empty-confidence, citation-free answer.
func (o *Orchestrator) runDirectAnswer(ctx context.Context, query string, docs []model.DocumentResult, context16 []model.FusedHit) *model.DirectAnswer {
	taskCtx, cancel := o.taskContext(ctx)
	defer cancel()

	raw, err := o.client.GenerateJSON(taskCtx, buildAnswerSystemPrompt(), buildAnswerUserPrompt(query, context16))
	if err != nil {
		slog.Warn("[INSIGHT] direct answer failed", "error", err)
		return &model.DirectAnswer{
			AnswerMarkdown:       "An answer could not be generated for this query.",
			Confidence:           0.0,
			SourceDocumentTitles: nil,
			SourceDocumentIDs:    contributingDocumentIDs(docs),
		}
	}

	var parsed struct {
		AnswerMarkdown string   `json:"answer_markdown"`
		Confidence     float64  `json:"confidence"`
		SourceTitles   []string `json:"source_titles"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		slog.Warn("[INSIGHT] direct answer parse failed", "error", err)
		return &model.DirectAnswer{
			AnswerMarkdown:       raw,
			Confidence:           0.0,
			SourceDocumentIDs:    contributingDocumentIDs(docs),
		}
	}

	return &model.DirectAnswer{
		AnswerMarkdown:       parsed.AnswerMarkdown,
		Confidence:           parsed.Confidence,
		SourceDocumentTitles: parsed.SourceTitles,
		SourceDocumentIDs:    ResolveCitations(parsed.AnswerMarkdown, docs),
	}
}

// runRelatedQuestions asks for exactly three follow-up questions over the
// shared global context. Failure degrades to an empty list.
func (o *Orchestrator) runRelatedQuestions(ctx context.Context, query string, context16 []model.FusedHit) []model.RelatedQuestion {
	taskCtx, cancel := o.taskContext(ctx)
	defer cancel()

	raw, err := o.client.GenerateJSON(taskCtx, buildQuestionsSystemPrompt(), buildQuestionsUserPrompt(query, context16))
	if err != nil {
		slog.Warn("[INSIGHT] related questions failed", "error", err)
		return nil
	}

	var parsed struct {
		Questions []struct {
			Question  string  `json:"question"`
			Category  string  `json:"category"`
			Relevance float64 `json:"relevance"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		slog.Warn("[INSIGHT] related questions parse failed", "error", err)
		return nil
	}

	out := make([]model.RelatedQuestion, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		out = append(out, model.RelatedQuestion{
			Question:  q.Question,
			Relevance: q.Relevance,
			Category:  model.QuestionCategory(q.Category),
		})
	}
	return out
}

func contributingDocumentIDs(docs []model.DocumentResult) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if len(d.Chunks) > 0 {
			ids = append(ids, d.DocumentID)
		}
	}
	return ids
}

// stripFences removes a surrounding markdown code fence, matching the
// teacher's JSON-response cleanup for models that wrap JSON in ```json.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	lines := strings.Split(cleaned, "\n")
	if len(lines) < 3 {
		return cleaned
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
