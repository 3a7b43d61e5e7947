package usecase

import (
	"strings"
	"unicode"

	"github.com/coverly/docqa/internal/core/domain"
)

var greetingTokens = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {}, "howdy": {},
	"morning": {}, "afternoon": {}, "evening": {}, "greetings": {},
}

var conversationalTokens = map[string]struct{}{
	"thanks": {}, "thank": {}, "ok": {}, "okay": {}, "bye": {},
	"goodbye": {}, "cool": {}, "great": {}, "nice": {}, "perfect": {}, "good": {},
}

var analysisTokens = map[string]struct{}{
	"why": {}, "how": {}, "compare": {}, "difference": {}, "differences": {},
	"explain": {}, "analyze": {}, "analyse": {}, "summarize": {}, "summarise": {},
	"implications": {}, "better": {}, "worse": {}, "versus": {}, "vs": {},
}

// ClassifyIntent is a deterministic heuristic over query tokens. It never
// calls a model: intent only gates whether a confidence claim is being made
// and which prompt framing to use.
func ClassifyIntent(query string) domain.QueryIntent {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return domain.IntentConversational
	}

	greeting := 0
	conversational := 0
	analysis := 0
	for _, token := range tokens {
		if _, ok := greetingTokens[token]; ok {
			greeting++
		}
		if _, ok := conversationalTokens[token]; ok {
			conversational++
		}
		if _, ok := analysisTokens[token]; ok {
			analysis++
		}
	}

	// Short queries made up entirely of greeting or small-talk tokens carry
	// no information claim.
	if len(tokens) <= 4 {
		if greeting == len(tokens) || (greeting > 0 && greeting+conversational == len(tokens)) {
			return domain.IntentGreeting
		}
		if conversational == len(tokens) {
			return domain.IntentConversational
		}
	}

	if analysis > 0 {
		return domain.IntentAnalysis
	}
	return domain.IntentLookup
}

func queryTokens(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
