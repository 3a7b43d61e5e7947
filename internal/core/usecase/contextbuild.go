package usecase

import (
	"fmt"
	"strings"

	"github.com/coverly/docqa/internal/core/domain"
)

// ContextAssembler builds the bounded prompt: system instructions, the
// shortlist's raw chunk text, and a token-budgeted slice of the
// conversation history.
type ContextAssembler struct {
	systemInstructions string
	historyWindow      int
	historyTokenBudget int
}

func NewContextAssembler(systemInstructions string, historyWindow, historyTokenBudget int) *ContextAssembler {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	if historyTokenBudget <= 0 {
		historyTokenBudget = 6000
	}
	if strings.TrimSpace(systemInstructions) == "" {
		systemInstructions = defaultSystemInstructions
	}
	return &ContextAssembler{
		systemInstructions: systemInstructions,
		historyWindow:      historyWindow,
		historyTokenBudget: historyTokenBudget,
	}
}

const defaultSystemInstructions = `You answer questions about one insurance document using only the provided excerpts.
Quote coverage names, limits and amounts exactly as written.
If the excerpts do not contain the answer, say so directly instead of guessing.`

// BuildPrompt assembles the full generation prompt. Table chunks contribute
// their raw content here, not the embedded summary.
func (a *ContextAssembler) BuildPrompt(question string, shortlist domain.Shortlist, history []domain.Message) string {
	var b strings.Builder
	b.WriteString(a.systemInstructions)
	b.WriteString("\n\n")

	if len(shortlist.Results) > 0 {
		b.WriteString("Document excerpts:\n")
		for idx, result := range shortlist.Results {
			chunk := result.Candidate.Chunk
			fmt.Fprintf(&b, "[%d] page=%d\n%s\n\n", idx+1, chunk.PageNumber, chunk.Text)
		}
	}

	trimmed := a.TrimHistory(history)
	if len(trimmed) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range trimmed {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

// TrimHistory keeps at most the window's most recent messages and drops
// whole messages oldest-first until the remainder fits the token budget.
// The most recent user message is never dropped, even when it alone exceeds
// the budget.
func (a *ContextAssembler) TrimHistory(history []domain.Message) []domain.Message {
	if len(history) == 0 {
		return nil
	}
	if len(history) > a.historyWindow {
		history = history[len(history)-a.historyWindow:]
	}

	total := 0
	for _, msg := range history {
		total += domain.EstimateTokens(msg.Content)
	}

	// The most recent user message must survive truncation.
	lastUser := len(history) - 1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			lastUser = i
			break
		}
	}

	start := 0
	for total > a.historyTokenBudget && start < lastUser {
		total -= domain.EstimateTokens(history[start].Content)
		start++
	}

	// Keep the remainder even if it still exceeds the budget: truncating
	// mid-message is worse than running long by one message.
	return history[start:]
}
