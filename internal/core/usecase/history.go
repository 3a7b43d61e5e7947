package usecase

import (
	"context"
	"fmt"

	"github.com/coverly/docqa/internal/core/domain"
	"github.com/coverly/docqa/internal/core/ports"
)

// HistoryUseCase replays persisted conversation messages for one document
// and requester.
type HistoryUseCase struct {
	conversations ports.ConversationStore
}

func NewHistoryUseCase(conversations ports.ConversationStore) *HistoryUseCase {
	return &HistoryUseCase{conversations: conversations}
}

func (uc *HistoryUseCase) History(ctx context.Context, tenantID, requesterID, documentID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	conv, err := uc.conversations.GetConversation(ctx, documentID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return nil, nil
	}
	if conv.TenantID != "" && conv.TenantID != tenantID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "history", fmt.Errorf("conversation belongs to another tenant"))
	}
	messages, err := uc.conversations.ListRecentMessages(ctx, conv.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
