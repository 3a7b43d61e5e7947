package domain

// ConfidenceLevel is the discrete trust band shown to the end user.
type ConfidenceLevel string

const (
	ConfidenceHigh           ConfidenceLevel = "high"
	ConfidenceNeedsReview    ConfidenceLevel = "needs_review"
	ConfidenceNotFound       ConfidenceLevel = "not_found"
	ConfidenceConversational ConfidenceLevel = "conversational"
)

// ScoreType names which numeric scale produced an assessment. The rerank and
// vector scales are calibrated independently.
type ScoreType string

const (
	ScoreTypeRerank ScoreType = "rerank"
	ScoreTypeVector ScoreType = "vector"
	ScoreTypeNone   ScoreType = "none"
)

// QueryIntent classifies what kind of claim a query makes.
type QueryIntent string

const (
	IntentGreeting       QueryIntent = "greeting"
	IntentLookup         QueryIntent = "lookup"
	IntentAnalysis       QueryIntent = "analysis"
	IntentConversational QueryIntent = "conversational"
)

// ConfidenceAssessment carries the band plus the raw signal that produced it.
type ConfidenceAssessment struct {
	Level         ConfidenceLevel `json:"level"`
	ScoreType     ScoreType       `json:"score_type"`
	Score         *float64        `json:"score,omitempty"`
	Intent        QueryIntent     `json:"intent"`
	RerankSkipped bool            `json:"rerank_skipped,omitempty"`
}
