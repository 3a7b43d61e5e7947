package domain

// RetrievalMode selects how the shortlist is built for a query.
type RetrievalMode string

const (
	RetrievalVectorOnly       RetrievalMode = "vector"
	RetrievalHybrid           RetrievalMode = "hybrid"
	RetrievalHybridWithRerank RetrievalMode = "hybrid_rerank"
)

// RetrievalCandidate is a transient per-query candidate. Lexical and vector
// scores stay nullable and separate; FusionScore combines them. The reranker
// score lives on RerankedResult, never here.
type RetrievalCandidate struct {
	Chunk        Chunk    `json:"chunk"`
	LexicalScore *float64 `json:"lexical_score,omitempty"`
	VectorScore  *float64 `json:"vector_score,omitempty"`
	FusionScore  float64  `json:"fusion_score"`
}

// RerankedResult wraps a candidate with the cross-encoder relevance score.
// The fusion score is preserved alongside; the two live on different scales.
type RerankedResult struct {
	Candidate   RetrievalCandidate `json:"candidate"`
	RerankScore *float64           `json:"rerank_score,omitempty"`
}

// Shortlist is the final ranked context for one query, with the flag that
// records whether the rerank stage was skipped by its fallback.
type Shortlist struct {
	Results       []RerankedResult `json:"results"`
	RerankSkipped bool             `json:"rerank_skipped"`
}

// Top returns the best result, if any.
func (s Shortlist) Top() (RerankedResult, bool) {
	if len(s.Results) == 0 {
		return RerankedResult{}, false
	}
	return s.Results[0], true
}
