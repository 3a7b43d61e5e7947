package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/coverly/docqa/internal/core/domain"
	"github.com/coverly/docqa/internal/core/ports"
)

const notFoundAnswer = "I couldn't find anything about that in this document."

// AskOptions bounds one query end to end.
type AskOptions struct {
	RetrievalTimeout time.Duration
	QueryTimeout     time.Duration
	MaxQueryChars    int
}

func (o AskOptions) normalize() AskOptions {
	if o.RetrievalTimeout <= 0 {
		o.RetrievalTimeout = 2 * time.Second
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 30 * time.Second
	}
	if o.MaxQueryChars <= 0 {
		o.MaxQueryChars = 2000
	}
	return o
}

// AskUseCase runs one query through retrieval, rerank, confidence scoring,
// context assembly, and answer generation, emitting a typed event stream.
// State machine: pending -> retrieving -> generating -> completed|failed.
type AskUseCase struct {
	retriever     *HybridRetriever
	rerankStage   *RerankStage
	scorer        *ConfidenceScorer
	assembler     *ContextAssembler
	chat          ports.ChatModel
	documents     ports.DocumentStore
	conversations ports.ConversationStore
	opts          AskOptions
}

func NewAskUseCase(
	retriever *HybridRetriever,
	rerankStage *RerankStage,
	scorer *ConfidenceScorer,
	assembler *ContextAssembler,
	chat ports.ChatModel,
	documents ports.DocumentStore,
	conversations ports.ConversationStore,
	opts AskOptions,
) *AskUseCase {
	return &AskUseCase{
		retriever:     retriever,
		rerankStage:   rerankStage,
		scorer:        scorer,
		assembler:     assembler,
		chat:          chat,
		documents:     documents,
		conversations: conversations,
		opts:          opts.normalize(),
	}
}

// Ask validates the request, resolves the conversation, and returns the
// event channel. The channel closes after exactly one terminal event; only
// cancellation by the caller closes it without one. The overall deadline
// resolves the turn with a retryable error event.
func (uc *AskUseCase) Ask(ctx context.Context, req ports.AskRequest) (<-chan domain.StreamEvent, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("query is empty"))
	}
	if utf8.RuneCountInString(query) > uc.opts.MaxQueryChars {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask",
			fmt.Errorf("query exceeds %d characters", uc.opts.MaxQueryChars))
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("document_id is required"))
	}

	doc, err := uc.documents.GetDocument(ctx, req.TenantID, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc.Status != domain.StatusReady {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask",
			fmt.Errorf("document %s is not ready (status %s)", doc.ID, doc.Status))
	}

	conv, err := uc.resolveConversation(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	events := make(chan domain.StreamEvent)
	go uc.run(ctx, req, query, conv, events)
	return events, nil
}

type turn struct {
	query      string
	answer     strings.Builder
	confidence domain.ConfidenceAssessment
	sources    []domain.SourceCitation
	state      domain.QueryState
}

func (uc *AskUseCase) run(parent context.Context, req ports.AskRequest, query string, conv *domain.Conversation, events chan<- domain.StreamEvent) {
	defer close(events)

	// The deadline bounds the work; the parent context tracks the caller.
	// Only a caller abort silences the stream. When the deadline fires the
	// terminal error event still goes out to a listening caller.
	ctx, cancel := context.WithTimeout(parent, uc.opts.QueryTimeout)
	defer cancel()

	t := &turn{query: query, state: domain.QueryPending}

	emit := func(event domain.StreamEvent) bool {
		select {
		case <-parent.Done():
			return false
		case events <- event:
			return true
		}
	}

	intent := ClassifyIntent(query)
	history, err := uc.conversations.ListRecentMessages(ctx, conv.ID, uc.assembler.historyWindow)
	if err != nil {
		uc.fail(emit, t, conv, fmt.Errorf("load history: %w", err))
		return
	}

	var shortlist domain.Shortlist
	if intent != domain.IntentGreeting && intent != domain.IntentConversational {
		t.state = domain.QueryRetrieving
		shortlist, err = uc.retrieveShortlist(ctx, req, query)
		if err != nil {
			uc.fail(emit, t, conv, err)
			return
		}
	}

	t.confidence = uc.scorer.Assess(shortlist, intent)

	if t.confidence.Level == domain.ConfidenceNotFound {
		uc.finishCanned(emit, t, conv, notFoundAnswer)
		return
	}

	t.state = domain.QueryGenerating
	prompt := uc.assembler.BuildPrompt(query, shortlist, history)

	deltas, errs := uc.chat.StreamAnswer(ctx, prompt)
	for deltas != nil || errs != nil {
		select {
		case <-ctx.Done():
			if parent.Err() != nil {
				return
			}
			uc.fail(emit, t, conv, fmt.Errorf("generate answer: %w", ctx.Err()))
			return
		case delta, ok := <-deltas:
			if !ok {
				deltas = nil
				continue
			}
			t.answer.WriteString(delta)
			if !emit(domain.StreamEvent{Type: domain.EventText, Text: delta}) {
				return
			}
		case streamErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if streamErr != nil {
				uc.fail(emit, t, conv, fmt.Errorf("generate answer: %w", streamErr))
				return
			}
			errs = nil
		}
	}

	// The deadline can race the model closing its channels.
	if ctx.Err() != nil {
		if parent.Err() != nil {
			return
		}
		uc.fail(emit, t, conv, fmt.Errorf("generate answer: %w", ctx.Err()))
		return
	}

	if t.confidence.Level != domain.ConfidenceConversational {
		t.sources = citations(shortlist)
	}
	uc.finish(emit, t, conv)
}

func (uc *AskUseCase) retrieveShortlist(ctx context.Context, req ports.AskRequest, query string) (domain.Shortlist, error) {
	retrievalCtx, cancel := context.WithTimeout(ctx, uc.opts.RetrievalTimeout)
	defer cancel()

	candidates, err := uc.retriever.Retrieve(retrievalCtx, req.TenantID, req.DocumentID, query)
	if err != nil {
		return domain.Shortlist{}, fmt.Errorf("retrieve: %w", err)
	}
	return uc.rerankStage.Shortlist(ctx, query, candidates), nil
}

// finishCanned resolves a turn with a fixed answer and no generation call.
func (uc *AskUseCase) finishCanned(emit func(domain.StreamEvent) bool, t *turn, conv *domain.Conversation, answer string) {
	t.answer.WriteString(answer)
	if !emit(domain.StreamEvent{Type: domain.EventText, Text: answer}) {
		return
	}
	uc.finish(emit, t, conv)
}

func (uc *AskUseCase) finish(emit func(domain.StreamEvent) bool, t *turn, conv *domain.Conversation) {
	confidence := t.confidence
	if !emit(domain.StreamEvent{Type: domain.EventConfidence, Confidence: &confidence}) {
		return
	}
	for i := range t.sources {
		if !emit(domain.StreamEvent{Type: domain.EventSource, Source: &t.sources[i]}) {
			return
		}
	}
	if !emit(domain.StreamEvent{Type: domain.EventDone}) {
		return
	}
	t.state = domain.QueryCompleted
	slog.Info("query_completed",
		"conversation_id", conv.ID,
		"confidence", string(t.confidence.Level),
		"rerank_skipped", t.confidence.RerankSkipped,
		"sources", len(t.sources),
	)
	uc.persistTurn(conv, t, true)
}

func (uc *AskUseCase) fail(emit func(domain.StreamEvent) bool, t *turn, conv *domain.Conversation, err error) {
	failedStage := t.state
	t.state = domain.QueryFailed
	kind := domain.KindName(err)
	retryable := domain.Retryable(err)
	if errors.Is(err, context.DeadlineExceeded) {
		kind = "temporary"
		retryable = true
	}
	slog.Error("query_failed", "conversation_id", conv.ID, "kind", kind, "stage", string(failedStage), "error", err)

	emitted := emit(domain.StreamEvent{
		Type: domain.EventError,
		Error: &domain.StreamError{
			Kind:      kind,
			Message:   userFacingError(kind),
			Retryable: retryable,
		},
	})
	if emitted {
		uc.persistTurn(conv, t, false)
	}
}

// persistTurn appends the turn's messages only once it has fully resolved.
// The user message is stored on any clean terminal; the assistant message
// only on success.
func (uc *AskUseCase) persistTurn(conv *domain.Conversation, t *turn, success bool) {
	// Persistence must survive the (possibly cancelled) request context.
	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	userMsg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        t.query,
		CreatedAt:      now,
	}
	if err := uc.conversations.AppendMessage(persistCtx, userMsg); err != nil {
		slog.Error("persist_user_message", "conversation_id", conv.ID, "error", err)
		return
	}
	if !success {
		return
	}

	confidence := t.confidence
	assistantMsg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           domain.RoleAssistant,
		Content:        t.answer.String(),
		Sources:        t.sources,
		Confidence:     &confidence,
		CreatedAt:      now,
	}
	if err := uc.conversations.AppendMessage(persistCtx, assistantMsg); err != nil {
		slog.Error("persist_assistant_message", "conversation_id", conv.ID, "error", err)
	}
}

func (uc *AskUseCase) resolveConversation(ctx context.Context, req ports.AskRequest) (*domain.Conversation, error) {
	conv, err := uc.conversations.GetConversation(ctx, req.DocumentID, req.RequesterID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	created := domain.Conversation{
		ID:          uuid.NewString(),
		DocumentID:  req.DocumentID,
		RequesterID: req.RequesterID,
		TenantID:    req.TenantID,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := uc.conversations.CreateConversation(ctx, created); err != nil {
		return nil, err
	}
	return &created, nil
}

func citations(shortlist domain.Shortlist) []domain.SourceCitation {
	out := make([]domain.SourceCitation, 0, len(shortlist.Results))
	for _, result := range shortlist.Results {
		chunk := result.Candidate.Chunk
		out = append(out, domain.SourceCitation{
			DocumentID: chunk.DocumentID,
			ChunkID:    chunk.ID,
			PageNumber: chunk.PageNumber,
			Text:       excerpt(chunk.Text, 280),
			Region:     chunk.Region,
		})
	}
	return out
}

func excerpt(text string, maxRunes int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return string(runes[:maxRunes])
}

func userFacingError(kind string) string {
	switch kind {
	case "invalid_input":
		return "The question could not be processed. Please rephrase and try again."
	case "rate_limited":
		return "The service is briefly over capacity. Please retry in a moment."
	case "temporary":
		return "Answering took too long or an upstream service is unavailable. Please retry."
	default:
		return "Something went wrong while answering. Please try again."
	}
}
