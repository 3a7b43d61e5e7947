package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/coverly/docqa/internal/core/domain"
	"github.com/coverly/docqa/internal/core/ports"
)

// RerankStage narrows the fused shortlist to the final top-N. When the
// reranker is unavailable or times out, it falls back to fusion ordering and
// marks the shortlist as rerank-skipped instead of failing the query.
type RerankStage struct {
	reranker ports.Reranker
	mode     domain.RetrievalMode
	width    int
	timeout  time.Duration
}

func NewRerankStage(reranker ports.Reranker, mode domain.RetrievalMode, width int, timeout time.Duration) *RerankStage {
	if width <= 0 {
		width = 5
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RerankStage{
		reranker: reranker,
		mode:     mode,
		width:    width,
		timeout:  timeout,
	}
}

func (s *RerankStage) Shortlist(ctx context.Context, query string, candidates []domain.RetrievalCandidate) domain.Shortlist {
	if len(candidates) == 0 {
		return domain.Shortlist{}
	}
	if s.mode != domain.RetrievalHybridWithRerank || s.reranker == nil {
		return domain.Shortlist{Results: fusionShortlist(candidates, s.width)}
	}

	rerankCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := s.reranker.Rerank(rerankCtx, query, candidates, s.width)
	if err != nil || len(results) == 0 {
		if err != nil {
			slog.Warn("rerank_skipped", "error", err, "candidates", len(candidates))
		}
		return domain.Shortlist{
			Results:       fusionShortlist(candidates, s.width),
			RerankSkipped: true,
		}
	}
	if len(results) > s.width {
		results = results[:s.width]
	}
	return domain.Shortlist{Results: results}
}

// fusionShortlist wraps the fusion-ordered head without inventing rerank
// scores; the two scales must never be conflated.
func fusionShortlist(candidates []domain.RetrievalCandidate, width int) []domain.RerankedResult {
	if width > len(candidates) {
		width = len(candidates)
	}
	out := make([]domain.RerankedResult, 0, width)
	for _, candidate := range candidates[:width] {
		out = append(out, domain.RerankedResult{Candidate: candidate})
	}
	return out
}
