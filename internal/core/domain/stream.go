package domain

// QueryState tracks one query through the answer pipeline.
type QueryState string

const (
	QueryPending    QueryState = "pending"
	QueryRetrieving QueryState = "retrieving"
	QueryGenerating QueryState = "generating"
	QueryCompleted  QueryState = "completed"
	QueryFailed     QueryState = "failed"
)

type StreamEventType string

const (
	EventText       StreamEventType = "text"
	EventConfidence StreamEventType = "confidence"
	EventSource     StreamEventType = "source"
	EventDone       StreamEventType = "done"
	EventError      StreamEventType = "error"
)

// StreamEvent is one element of the answer stream. Exactly one of the
// payload fields is set, matching Type. Per query the order is: zero or more
// text events, one confidence event, zero or more source events, then
// exactly one terminal done or error event.
type StreamEvent struct {
	Type       StreamEventType       `json:"type"`
	Text       string                `json:"text,omitempty"`
	Confidence *ConfidenceAssessment `json:"confidence,omitempty"`
	Source     *SourceCitation       `json:"source,omitempty"`
	Error      *StreamError          `json:"error,omitempty"`
}

// StreamError is the typed error payload of a terminal error event.
type StreamError struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
