package ports

import (
	"context"

	"github.com/coverly/docqa/internal/core/domain"
)

// DocumentStore reads ingested document state. The parsing collaborator
// writes pages; this core writes chunks and status transitions.
type DocumentStore interface {
	GetDocument(ctx context.Context, tenantID, documentID string) (*domain.Document, error)
	GetPages(ctx context.Context, documentID string) ([]domain.PageContent, error)
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	UpdateStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error
}

// ConversationStore persists conversation history. Append-only from this
// core's perspective; concurrent queries may race on last-message ordering.
type ConversationStore interface {
	GetConversation(ctx context.Context, documentID, requesterID string) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, conv domain.Conversation) error
	AppendMessage(ctx context.Context, msg domain.Message) error
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs cosine nearest-neighbor search scoped to one document.
type VectorIndex interface {
	IndexChunks(ctx context.Context, tenantID string, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, tenantID, documentID string, queryVector []float32, limit int) ([]domain.RetrievalCandidate, error)
}

// LexicalIndex performs ranked keyword search scoped to one document.
type LexicalIndex interface {
	SearchLexical(ctx context.Context, tenantID, documentID, queryText string, limit int) ([]domain.RetrievalCandidate, error)
}

// Reranker reorders a shortlist by true relevance using a cross-encoder
// service. On error callers fall back to fusion ordering.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.RetrievalCandidate, topN int) ([]domain.RerankedResult, error)
}

// ChatModel drives the external language model. StreamAnswer returns a
// channel of text deltas that closes when generation ends; the error channel
// yields at most one error. Cancellation of ctx tears down the upstream call.
type ChatModel interface {
	StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error)
}

// TableSummarizer produces the short summary embedded in place of raw table
// content.
type TableSummarizer interface {
	SummarizeTable(ctx context.Context, tableText string) (string, error)
}

// ChunkBuilder splits parsed pages into ordered retrieval chunks, keeping
// each detected table in a single chunk.
type ChunkBuilder interface {
	Build(documentID string, pages []domain.PageContent) []domain.Chunk
}

// ParsedPublisher enqueues one parsed-document event, re-running ingestion
// for a document whose pages are already in the store.
type ParsedPublisher interface {
	PublishDocumentParsed(ctx context.Context, tenantID, documentID string) error
}

// ParsedQueue delivers parsed-document events to the ingestion worker.
type ParsedQueue interface {
	ParsedPublisher
	SubscribeDocumentParsed(ctx context.Context, handler func(ctx context.Context, tenantID, documentID string) error) error
}
