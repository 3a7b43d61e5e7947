package ports

import (
	"context"

	"github.com/coverly/docqa/internal/core/domain"
)

// AskRequest describes one query against one document. RequesterID and
// TenantID arrive from the trusted identity boundary.
type AskRequest struct {
	TenantID       string
	RequesterID    string
	DocumentID     string
	ConversationID string
	Query          string
}

// QueryStreamer is the inbound contract for streamed Q&A. The returned
// channel carries text, confidence, source, and exactly one terminal event;
// it closes after the terminal event. Validation failures are returned as an
// error before any event is produced.
type QueryStreamer interface {
	Ask(ctx context.Context, req AskRequest) (<-chan domain.StreamEvent, error)
}

// HistoryReader replays a conversation's persisted messages.
type HistoryReader interface {
	History(ctx context.Context, tenantID, requesterID, documentID string, limit int) ([]domain.Message, error)
}

// DocumentProcessor is the inbound contract for asynchronous chunking and
// indexing of a parsed document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, tenantID, documentID string) error
}
