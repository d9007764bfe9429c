package model

import (
	"encoding/json"
	"time"
)

// IndexStatus is the lifecycle state of a Document, owned by the external
// ingestion pipeline. Only IndexIndexed documents are visible to retrieval.
type IndexStatus string

const (
	IndexPending    IndexStatus = "pending"
	IndexProcessing IndexStatus = "processing"
	IndexIndexed    IndexStatus = "indexed"
	IndexFailed     IndexStatus = "failed"
)

// Document is immutable from this service's perspective; its lifecycle is
// managed entirely by the external ingestion pipeline (out of scope).
type Document struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Type     string          `json:"type"`
	IsPublic bool            `json:"isPublic"`
	Status   IndexStatus     `json:"status"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Chunk is a contiguous text fragment from a Document, pre-embedded and
// lexically indexed by the ingestion pipeline. Order is unique per document.
type Chunk struct {
	ID               string          `json:"id"`
	DocumentID       string          `json:"documentId"`
	Order            int             `json:"order"`
	Text             string          `json:"text"`
	Embedding        []float32       `json:"-"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	TotalChunksInDoc int             `json:"totalChunksInDocument"`
	CreatedAt        time.Time       `json:"-"`
}
