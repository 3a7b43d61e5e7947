package config

import "testing"

func TestLoadRetrievalAndConfidenceDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_MODE", "")
	t.Setenv("FUSION_VECTOR_WEIGHT", "")
	t.Setenv("SHORTLIST_WIDTH", "")
	t.Setenv("RERANK_WIDTH", "")
	t.Setenv("CONFIDENCE_RERANK_HIGH", "")
	t.Setenv("CONFIDENCE_VECTOR_HIGH", "")
	t.Setenv("HISTORY_WINDOW", "")
	t.Setenv("HISTORY_TOKEN_BUDGET", "")

	cfg := Load()
	if cfg.RetrievalMode != "hybrid_rerank" {
		t.Fatalf("expected default retrieval mode hybrid_rerank, got %q", cfg.RetrievalMode)
	}
	if cfg.FusionVectorWeight != 0.7 {
		t.Fatalf("expected default fusion vector weight 0.7, got %v", cfg.FusionVectorWeight)
	}
	if cfg.ShortlistWidth != 20 {
		t.Fatalf("expected default shortlist width 20, got %d", cfg.ShortlistWidth)
	}
	if cfg.RerankWidth != 5 {
		t.Fatalf("expected default rerank width 5, got %d", cfg.RerankWidth)
	}
	if cfg.ConfidenceRerankHigh != 0.7 {
		t.Fatalf("expected default rerank high threshold 0.7, got %v", cfg.ConfidenceRerankHigh)
	}
	if cfg.ConfidenceVectorHigh != 0.85 {
		t.Fatalf("expected default vector high threshold 0.85, got %v", cfg.ConfidenceVectorHigh)
	}
	if cfg.HistoryWindow != 10 {
		t.Fatalf("expected default history window 10, got %d", cfg.HistoryWindow)
	}
	if cfg.HistoryTokenBudget != 6000 {
		t.Fatalf("expected default history token budget 6000, got %d", cfg.HistoryTokenBudget)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_MODE", "vector")
	t.Setenv("FUSION_VECTOR_WEIGHT", "0.55")
	t.Setenv("SHORTLIST_WIDTH", "40")
	t.Setenv("CONFIDENCE_VECTOR_LOW", "0.5")
	t.Setenv("RERANKER_TIMEOUT_MS", "1500")

	cfg := Load()
	if cfg.RetrievalMode != "vector" {
		t.Fatalf("expected retrieval mode override, got %q", cfg.RetrievalMode)
	}
	if cfg.FusionVectorWeight != 0.55 {
		t.Fatalf("expected fusion vector weight 0.55, got %v", cfg.FusionVectorWeight)
	}
	if cfg.ShortlistWidth != 40 {
		t.Fatalf("expected shortlist width 40, got %d", cfg.ShortlistWidth)
	}
	if cfg.ConfidenceVectorLow != 0.5 {
		t.Fatalf("expected vector low threshold 0.5, got %v", cfg.ConfidenceVectorLow)
	}
	if cfg.RerankerTimeoutMS != 1500 {
		t.Fatalf("expected reranker timeout 1500, got %d", cfg.RerankerTimeoutMS)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("FUSION_VECTOR_WEIGHT", "not-a-float")
	t.Setenv("SHORTLIST_WIDTH", "not-an-int")

	cfg := Load()
	if cfg.FusionVectorWeight != 0.7 {
		t.Fatalf("expected fallback fusion weight 0.7, got %v", cfg.FusionVectorWeight)
	}
	if cfg.ShortlistWidth != 20 {
		t.Fatalf("expected fallback shortlist width 20, got %d", cfg.ShortlistWidth)
	}
}
