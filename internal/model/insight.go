package model

import "time"

// InsightType selects which insight kind(s) an insights() call should
// produce.
type InsightType string

const (
	InsightDocumentSummaries InsightType = "document_summaries"
	InsightDirectAnswer      InsightType = "direct_answer"
	InsightRelatedQuestions  InsightType = "related_questions"
	InsightAll               InsightType = "all"
)

// QuestionCategory classifies a RelatedQuestion.
type QuestionCategory string

const (
	CategoryStrategic QuestionCategory = "Strategic"
	CategoryTechnical QuestionCategory = "Technical"
	CategoryAdoption  QuestionCategory = "Adoption"
)

// DirectAnswer is a cited, markdown-formatted answer synthesized from the
// top-ranked context chunks across documents.
type DirectAnswer struct {
	AnswerMarkdown       string   `json:"answerMarkdown"`
	Confidence           float64  `json:"confidence"`
	SourceDocumentTitles []string `json:"sourceDocumentTitles"`
	SourceDocumentIDs    []string `json:"sourceDocumentIds"`
}

// DocumentSummary is a per-document relevance summary relative to the query.
type DocumentSummary struct {
	DocumentID       string  `json:"documentId"`
	DocumentTitle    string  `json:"documentTitle"`
	DocumentType     string  `json:"documentType"`
	RelevanceSummary string  `json:"relevanceSummary"`
	ConfidenceScore  float64 `json:"confidenceScore"`
}

// RelatedQuestion is a follow-up question suggested alongside a query's answer.
type RelatedQuestion struct {
	Question  string           `json:"question"`
	Relevance float64          `json:"relevance"`
	Category  QuestionCategory `json:"category"`
}

// InsightBundle is the assembled output of one or more insight kinds.
type InsightBundle struct {
	DocumentSummaries []DocumentSummary  `json:"documentSummaries,omitempty"`
	DirectAnswer      *DirectAnswer      `json:"directAnswer,omitempty"`
	RelatedQuestions  []RelatedQuestion  `json:"relatedQuestions,omitempty"`
	CacheKey          string             `json:"cacheKey"`
	GeneratedAt       time.Time          `json:"generatedAt"`
}

// InsightBreakdown reports per-kind timing for an insights() call.
type InsightBreakdown struct {
	DocumentSummariesMs int64 `json:"documentSummariesMs,omitempty"`
	DirectAnswerMs      int64 `json:"directAnswerMs,omitempty"`
	RelatedQuestionsMs  int64 `json:"relatedQuestionsMs,omitempty"`
	TotalMs             int64 `json:"totalMs"`
}

// InsightsRequest is the inbound shape for the insights operation (§6).
type InsightsRequest struct {
	UserQuery    string           `json:"user_query"`
	Documents    []DocumentResult `json:"documents"`
	InsightType  InsightType      `json:"insight_type"`
	CacheKey     *string          `json:"cache_key,omitempty"`
	Priority     *bool            `json:"priority,omitempty"`
	SearchTimeMs *int             `json:"search_time_ms,omitempty"`
}

// InsightsResponse is the outbound shape for the insights operation (§6).
type InsightsResponse struct {
	InsightBundle
	PerformanceMetrics struct {
		Breakdown InsightBreakdown `json:"breakdown"`
	} `json:"performance_metrics"`
	Cached bool `json:"cached"`
}
