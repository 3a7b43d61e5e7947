package domain

import "time"

// Conversation scopes a message history to one document and one requester.
// Created lazily on the first query; a reset creates a new conversation
// rather than deleting this one.
type Conversation struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	RequesterID string    `json:"requester_id"`
	TenantID    string    `json:"tenant_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// SourceCitation points an answer back at the chunk it came from.
type SourceCitation struct {
	DocumentID string       `json:"document_id"`
	ChunkID    string       `json:"chunk_id"`
	PageNumber int          `json:"page_number"`
	Text       string       `json:"text"`
	Region     *BoundingBox `json:"bounding_box,omitempty"`
}

// Message is immutable once persisted. Sources and Confidence are set only
// on assistant messages; this shape is the durable contract consumed by
// history replay and audit.
type Message struct {
	ID             string                `json:"id"`
	ConversationID string                `json:"conversation_id"`
	Role           MessageRole           `json:"role"`
	Content        string                `json:"content"`
	Sources        []SourceCitation      `json:"sources,omitempty"`
	Confidence     *ConfidenceAssessment `json:"confidence,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}
