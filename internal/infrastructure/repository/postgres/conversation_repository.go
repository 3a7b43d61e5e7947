package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coverly/docqa/internal/core/domain"
)

// ConversationRepository persists conversations and their append-only
// message log. One active conversation exists per (document, requester).
type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	requester_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (document_id, requester_id)
);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	sources JSONB,
	confidence JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON conversation_messages(conversation_id, created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// GetConversation returns nil without error when no conversation exists yet;
// the caller creates one lazily.
func (r *ConversationRepository) GetConversation(ctx context.Context, documentID, requesterID string) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, requester_id, tenant_id, created_at, updated_at
FROM conversations
WHERE document_id = $1 AND requester_id = $2
`, documentID, requesterID)

	var conv domain.Conversation
	err := row.Scan(&conv.ID, &conv.DocumentID, &conv.RequesterID, &conv.TenantID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	// Concurrent first queries may race on creation; the unique constraint
	// plus DO NOTHING keeps one winner and the loser reuses it on re-read.
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversations (id, document_id, requester_id, tenant_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (document_id, requester_id) DO NOTHING
`, conv.ID, conv.DocumentID, conv.RequesterID, conv.TenantID, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, msg domain.Message) error {
	var sourcesJSON any
	if len(msg.Sources) > 0 {
		encoded, err := json.Marshal(msg.Sources)
		if err != nil {
			return fmt.Errorf("marshal message sources: %w", err)
		}
		sourcesJSON = encoded
	}
	var confidenceJSON any
	if msg.Confidence != nil {
		encoded, err := json.Marshal(msg.Confidence)
		if err != nil {
			return fmt.Errorf("marshal message confidence: %w", err)
		}
		confidenceJSON = encoded
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO conversation_messages (id, conversation_id, role, content, sources, confidence, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, msg.ID, msg.ConversationID, string(msg.Role), msg.Content, sourcesJSON, confidenceJSON, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, msg.ConversationID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message tx: %w", err)
	}
	return nil
}

// ListRecentMessages returns the newest messages in chronological order.
func (r *ConversationRepository) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, conversation_id, role, content, sources, confidence, created_at
FROM conversation_messages
WHERE conversation_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Message, 0, limit)
	for rows.Next() {
		var msg domain.Message
		var role string
		var sourcesRaw, confidenceRaw []byte
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &sourcesRaw, &confidenceRaw, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = domain.MessageRole(role)
		if len(sourcesRaw) > 0 {
			if err := json.Unmarshal(sourcesRaw, &msg.Sources); err != nil {
				return nil, fmt.Errorf("decode message sources: %w", err)
			}
		}
		if len(confidenceRaw) > 0 {
			var assessment domain.ConfidenceAssessment
			if err := json.Unmarshal(confidenceRaw, &assessment); err != nil {
				return nil, fmt.Errorf("decode message confidence: %w", err)
			}
			msg.Confidence = &assessment
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Query ran newest-first to apply the limit; flip to oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
