package usecase

import (
	"testing"

	"github.com/coverly/docqa/internal/core/domain"
)

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		query string
		want  domain.QueryIntent
	}{
		{"hi", domain.IntentGreeting},
		{"Hello!", domain.IntentGreeting},
		{"hey there... hi", domain.IntentLookup}, // "there" is not a greeting token
		{"good morning", domain.IntentGreeting},
		{"hi thanks", domain.IntentGreeting},
		{"thanks", domain.IntentConversational},
		{"ok cool", domain.IntentConversational},
		{"", domain.IntentConversational},
		{"what is the deductible?", domain.IntentLookup},
		{"policy number", domain.IntentLookup},
		{"why is the premium higher this year", domain.IntentAnalysis},
		{"compare plan A and plan B", domain.IntentAnalysis},
		{"explain the exclusions", domain.IntentAnalysis},
		{"hello, what does section 4 cover?", domain.IntentLookup},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			if got := ClassifyIntent(tc.query); got != tc.want {
				t.Fatalf("ClassifyIntent(%q) = %s, want %s", tc.query, got, tc.want)
			}
		})
	}
}
