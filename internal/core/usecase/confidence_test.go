package usecase

import (
	"testing"

	"github.com/coverly/docqa/internal/core/domain"
)

func testThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{
		RerankHigh: 0.7,
		RerankLow:  0.4,
		VectorHigh: 0.85,
		VectorLow:  0.6,
	}
}

func shortlistWithRerank(score float64) domain.Shortlist {
	return domain.Shortlist{Results: []domain.RerankedResult{{
		Candidate:   domain.RetrievalCandidate{Chunk: domain.Chunk{ID: "c-1"}},
		RerankScore: scorePtr(score),
	}}}
}

func shortlistWithVector(score float64) domain.Shortlist {
	return domain.Shortlist{Results: []domain.RerankedResult{{
		Candidate: domain.RetrievalCandidate{
			Chunk:       domain.Chunk{ID: "c-1"},
			VectorScore: scorePtr(score),
		},
	}}}
}

func TestAssessBands(t *testing.T) {
	scorer := NewConfidenceScorer(testThresholds())

	cases := []struct {
		name      string
		shortlist domain.Shortlist
		wantLevel domain.ConfidenceLevel
		wantType  domain.ScoreType
	}{
		{"rerank above high", shortlistWithRerank(0.9), domain.ConfidenceHigh, domain.ScoreTypeRerank},
		{"rerank exactly high", shortlistWithRerank(0.7), domain.ConfidenceHigh, domain.ScoreTypeRerank},
		{"rerank mid band", shortlistWithRerank(0.55), domain.ConfidenceNeedsReview, domain.ScoreTypeRerank},
		{"rerank exactly low", shortlistWithRerank(0.4), domain.ConfidenceNeedsReview, domain.ScoreTypeRerank},
		{"rerank below low", shortlistWithRerank(0.39), domain.ConfidenceNotFound, domain.ScoreTypeRerank},
		{"vector above high", shortlistWithVector(0.92), domain.ConfidenceHigh, domain.ScoreTypeVector},
		{"vector exactly high", shortlistWithVector(0.85), domain.ConfidenceHigh, domain.ScoreTypeVector},
		{"vector mid band", shortlistWithVector(0.7), domain.ConfidenceNeedsReview, domain.ScoreTypeVector},
		{"vector exactly low", shortlistWithVector(0.6), domain.ConfidenceNeedsReview, domain.ScoreTypeVector},
		{"vector below low", shortlistWithVector(0.5), domain.ConfidenceNotFound, domain.ScoreTypeVector},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scorer.Assess(tc.shortlist, domain.IntentLookup)
			if got.Level != tc.wantLevel {
				t.Fatalf("level = %s, want %s", got.Level, tc.wantLevel)
			}
			if got.ScoreType != tc.wantType {
				t.Fatalf("score type = %s, want %s", got.ScoreType, tc.wantType)
			}
			if got.Score == nil {
				t.Fatalf("score must be carried on the assessment")
			}
		})
	}
}

func TestAssessEmptyShortlistIsNotFound(t *testing.T) {
	scorer := NewConfidenceScorer(testThresholds())

	got := scorer.Assess(domain.Shortlist{}, domain.IntentLookup)

	if got.Level != domain.ConfidenceNotFound {
		t.Fatalf("level = %s, want not_found", got.Level)
	}
	if got.ScoreType != domain.ScoreTypeNone || got.Score != nil {
		t.Fatalf("empty shortlist must carry no score, got type=%s score=%v", got.ScoreType, got.Score)
	}
}

func TestAssessConversationalIntentOverridesRetrieval(t *testing.T) {
	scorer := NewConfidenceScorer(testThresholds())

	for _, intent := range []domain.QueryIntent{domain.IntentGreeting, domain.IntentConversational} {
		got := scorer.Assess(shortlistWithRerank(0.99), intent)
		if got.Level != domain.ConfidenceConversational {
			t.Fatalf("intent %s: level = %s, want conversational", intent, got.Level)
		}
		if got.Score != nil {
			t.Fatalf("conversational assessments make no score claim")
		}
	}
}

func TestAssessFallbackUsesVectorCalibration(t *testing.T) {
	scorer := NewConfidenceScorer(testThresholds())

	// 0.75 would be high on the rerank scale but only needs_review on the
	// vector scale; after a rerank fallback the vector pair must apply.
	shortlist := shortlistWithVector(0.75)
	shortlist.RerankSkipped = true

	got := scorer.Assess(shortlist, domain.IntentLookup)

	if got.Level != domain.ConfidenceNeedsReview {
		t.Fatalf("level = %s, want needs_review on the vector scale", got.Level)
	}
	if !got.RerankSkipped {
		t.Fatalf("rerank_skipped must propagate to the assessment")
	}
}
