package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coverly/docqa/internal/core/domain"
)

func fusionCandidates(n int) []domain.RetrievalCandidate {
	out := make([]domain.RetrievalCandidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.RetrievalCandidate{
			Chunk:       domain.Chunk{ID: string(rune('a' + i)), Ordinal: i},
			FusionScore: float64(n-i) / float64(n),
		})
	}
	return out
}

func TestShortlistFallsBackWhenRerankerFails(t *testing.T) {
	reranker := &fakeReranker{err: errors.New("boom")}
	stage := NewRerankStage(reranker, domain.RetrievalHybridWithRerank, 5, time.Second)

	shortlist := stage.Shortlist(context.Background(), "q", fusionCandidates(7))

	if !shortlist.RerankSkipped {
		t.Fatalf("expected rerank_skipped on reranker failure")
	}
	if len(shortlist.Results) != 5 {
		t.Fatalf("expected 5 fallback results, got %d", len(shortlist.Results))
	}
	if shortlist.Results[0].Candidate.Chunk.ID != "a" {
		t.Fatalf("fallback must keep fusion order, got %s first", shortlist.Results[0].Candidate.Chunk.ID)
	}
	if shortlist.Results[0].RerankScore != nil {
		t.Fatalf("fallback results must not carry rerank scores")
	}
}

func TestShortlistFallsBackOnRerankTimeout(t *testing.T) {
	reranker := &fakeReranker{block: true}
	stage := NewRerankStage(reranker, domain.RetrievalHybridWithRerank, 5, 20*time.Millisecond)

	shortlist := stage.Shortlist(context.Background(), "q", fusionCandidates(3))

	if !shortlist.RerankSkipped {
		t.Fatalf("expected rerank_skipped on timeout")
	}
	if len(shortlist.Results) != 3 {
		t.Fatalf("expected 3 fallback results, got %d", len(shortlist.Results))
	}
}

func TestShortlistWithoutRerankerIsNotSkipped(t *testing.T) {
	stage := NewRerankStage(nil, domain.RetrievalHybridWithRerank, 5, time.Second)

	shortlist := stage.Shortlist(context.Background(), "q", fusionCandidates(2))

	if shortlist.RerankSkipped {
		t.Fatalf("an unconfigured reranker is not a degradation")
	}
	if len(shortlist.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(shortlist.Results))
	}
}

func TestShortlistHybridModeBypassesReranker(t *testing.T) {
	reranker := &fakeReranker{}
	stage := NewRerankStage(reranker, domain.RetrievalHybrid, 5, time.Second)

	stage.Shortlist(context.Background(), "q", fusionCandidates(2))

	if reranker.called {
		t.Fatalf("reranker must not run outside hybrid_rerank mode")
	}
}

func TestShortlistUsesRerankerOrder(t *testing.T) {
	candidates := fusionCandidates(3)
	reranker := &fakeReranker{results: []domain.RerankedResult{
		{Candidate: candidates[2], RerankScore: scorePtr(0.95)},
		{Candidate: candidates[0], RerankScore: scorePtr(0.41)},
	}}
	stage := NewRerankStage(reranker, domain.RetrievalHybridWithRerank, 5, time.Second)

	shortlist := stage.Shortlist(context.Background(), "q", candidates)

	if shortlist.RerankSkipped {
		t.Fatalf("successful rerank must not be flagged skipped")
	}
	if shortlist.Results[0].Candidate.Chunk.ID != "c" {
		t.Fatalf("expected reranker's top pick first, got %s", shortlist.Results[0].Candidate.Chunk.ID)
	}
	if shortlist.Results[0].RerankScore == nil || *shortlist.Results[0].RerankScore != 0.95 {
		t.Fatalf("expected rerank score 0.95, got %v", shortlist.Results[0].RerankScore)
	}
}

func TestShortlistEmptyCandidates(t *testing.T) {
	reranker := &fakeReranker{}
	stage := NewRerankStage(reranker, domain.RetrievalHybridWithRerank, 5, time.Second)

	shortlist := stage.Shortlist(context.Background(), "q", nil)

	if len(shortlist.Results) != 0 || shortlist.RerankSkipped {
		t.Fatalf("empty candidates must yield an empty, unflagged shortlist")
	}
	if reranker.called {
		t.Fatalf("reranker must not be called with no candidates")
	}
}
