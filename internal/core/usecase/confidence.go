package usecase

import "github.com/coverly/docqa/internal/core/domain"

// ConfidenceThresholds holds the calibrated band boundaries per score type.
// Rerank and vector scores live on different scales, so each gets its own
// pair. Values come from configuration and are recalibrated empirically per
// embedding/reranker pairing.
type ConfidenceThresholds struct {
	RerankHigh float64
	RerankLow  float64
	VectorHigh float64
	VectorLow  float64
}

// ConfidenceScorer maps the top result and the query intent to a discrete
// confidence band. Assess is a pure function of its inputs.
type ConfidenceScorer struct {
	thresholds ConfidenceThresholds
}

func NewConfidenceScorer(thresholds ConfidenceThresholds) *ConfidenceScorer {
	return &ConfidenceScorer{thresholds: thresholds}
}

// Assess picks the threshold pair matching the score that is present: the
// rerank pair when a rerank score exists, the vector-calibrated pair
// otherwise. A score exactly at a threshold resolves to the higher band.
// Greeting and conversational intents make no information claim and always
// assess as conversational.
func (s *ConfidenceScorer) Assess(shortlist domain.Shortlist, intent domain.QueryIntent) domain.ConfidenceAssessment {
	if intent == domain.IntentGreeting || intent == domain.IntentConversational {
		return domain.ConfidenceAssessment{
			Level:     domain.ConfidenceConversational,
			ScoreType: domain.ScoreTypeNone,
			Intent:    intent,
		}
	}

	top, ok := shortlist.Top()
	if !ok {
		return domain.ConfidenceAssessment{
			Level:         domain.ConfidenceNotFound,
			ScoreType:     domain.ScoreTypeNone,
			Intent:        intent,
			RerankSkipped: shortlist.RerankSkipped,
		}
	}

	scoreType, score := s.selectScore(top)
	high, low := s.thresholdPair(scoreType)

	level := domain.ConfidenceNotFound
	switch {
	case score >= high:
		level = domain.ConfidenceHigh
	case score >= low:
		level = domain.ConfidenceNeedsReview
	}

	return domain.ConfidenceAssessment{
		Level:         level,
		ScoreType:     scoreType,
		Score:         &score,
		Intent:        intent,
		RerankSkipped: shortlist.RerankSkipped,
	}
}

func (s *ConfidenceScorer) selectScore(top domain.RerankedResult) (domain.ScoreType, float64) {
	if top.RerankScore != nil {
		return domain.ScoreTypeRerank, *top.RerankScore
	}
	if top.Candidate.VectorScore != nil {
		return domain.ScoreTypeVector, *top.Candidate.VectorScore
	}
	return domain.ScoreTypeVector, top.Candidate.FusionScore
}

func (s *ConfidenceScorer) thresholdPair(scoreType domain.ScoreType) (high, low float64) {
	if scoreType == domain.ScoreTypeRerank {
		return s.thresholds.RerankHigh, s.thresholds.RerankLow
	}
	return s.thresholds.VectorHigh, s.thresholds.VectorLow
}
