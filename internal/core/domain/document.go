package domain

import "time"

type DocumentStatus string

const (
	StatusParsed     DocumentStatus = "parsed"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is owned by the ingestion collaborator; the retrieval core only
// reads it and updates processing status.
type Document struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Filename  string         `json:"filename"`
	PageCount int            `json:"page_count"`
	Status    DocumentStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// BoundingBox locates a region on a page in normalized [0,1] coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TableRegion marks a span of a page's text holding one detected table.
// Offsets are rune indices into PageContent.Text.
type TableRegion struct {
	StartOffset int          `json:"start_offset"`
	EndOffset   int          `json:"end_offset"`
	Region      *BoundingBox `json:"region,omitempty"`
}

// PageContent is one page of parsed document text with detected tables,
// produced by the external parsing collaborator.
type PageContent struct {
	PageNumber int           `json:"page_number"`
	Text       string        `json:"text"`
	Tables     []TableRegion `json:"tables,omitempty"`
}

type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeTable ChunkType = "table"
)

// Chunk is one retrieval unit of a document. A table is always a single
// chunk; Summary is set only for table chunks and is what gets embedded,
// while Text keeps the raw content for answer generation.
type Chunk struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	Ordinal    int          `json:"ordinal"`
	PageNumber int          `json:"page_number"`
	Type       ChunkType    `json:"type"`
	Text       string       `json:"text"`
	Summary    string       `json:"summary,omitempty"`
	Region     *BoundingBox `json:"region,omitempty"`
}

// EmbeddingText returns the string that represents the chunk in vector
// space: the generated summary for tables, the raw text otherwise.
func (c Chunk) EmbeddingText() string {
	if c.Type == ChunkTypeTable && c.Summary != "" {
		return c.Summary
	}
	return c.Text
}
