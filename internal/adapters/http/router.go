package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/coverly/docqa/internal/core/domain"
	"github.com/coverly/docqa/internal/core/ports"
	"github.com/coverly/docqa/internal/observability/metrics"
)

const (
	tenantIDHeader    = "X-Tenant-Id"
	requesterIDHeader = "X-Requester-Id"
)

// Router exposes the query and history surface. Identity arrives from the
// gateway on trusted headers; this service performs no authentication itself.
type Router struct {
	streamer  ports.QueryStreamer
	history   ports.HistoryReader
	docs      ports.DocumentStore
	publisher ports.ParsedPublisher
	metrics   *metrics.HTTPServerMetrics
	service   string
}

func NewRouter(
	streamer ports.QueryStreamer,
	history ports.HistoryReader,
	docs ports.DocumentStore,
	publisher ports.ParsedPublisher,
	m *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		streamer:  streamer,
		history:   history,
		docs:      docs,
		publisher: publisher,
		metrics:   m,
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/documents/", rt.documentRoutes)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	DocumentID     string `json:"document_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Query          string `json:"query"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	identity, ok := rt.requireIdentity(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	events, err := rt.streamer.Ask(r.Context(), ports.AskRequest{
		TenantID:       identity.tenantID,
		RequesterID:    identity.requesterID,
		DocumentID:     req.DocumentID,
		ConversationID: req.ConversationID,
		Query:          req.Query,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	stream, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	for event := range events {
		if err := stream.WriteEvent(event); err != nil {
			// Client went away; the use case observes ctx cancellation
			// and stops on its own.
			slog.Warn("sse write failed",
				"request_id", requestIDFromContext(r.Context()), "error", err)
			return
		}
		if event.Type == domain.EventConfidence && event.Confidence != nil && rt.metrics != nil {
			c := event.Confidence
			rt.metrics.RecordConfidence(rt.service, string(c.Level), string(c.ScoreType), c.RerankSkipped)
		}
		if event.Terminal() {
			rt.recordTerminal(event)
		}
	}
}

func (rt *Router) recordTerminal(event domain.StreamEvent) {
	if rt.metrics == nil {
		return
	}
	if event.Type == domain.EventError {
		kind := "internal"
		if event.Error != nil {
			kind = event.Error.Kind
		}
		rt.metrics.RecordQueryOutcome(rt.service, "failed")
		rt.metrics.RecordQueryFailure(rt.service, kind)
		return
	}
	rt.metrics.RecordQueryOutcome(rt.service, "answered")
}

// documentRoutes handles /v1/documents/{document_id},
// /v1/documents/{document_id}/history and
// /v1/documents/{document_id}/reingest.
func (rt *Router) documentRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	documentID, sub, _ := strings.Cut(rest, "/")
	if documentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch sub {
	case "":
		rt.withMethod(w, r, http.MethodGet, documentID, rt.getDocument)
	case "history":
		rt.withMethod(w, r, http.MethodGet, documentID, rt.getHistory)
	case "reingest":
		rt.withMethod(w, r, http.MethodPost, documentID, rt.reingest)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) withMethod(w http.ResponseWriter, r *http.Request, method, documentID string, handler func(http.ResponseWriter, *http.Request, string)) {
	if r.Method != method {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	handler(w, r, documentID)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	identity, ok := rt.requireIdentity(w, r)
	if !ok {
		return
	}

	doc, err := rt.docs.GetDocument(r.Context(), identity.tenantID, documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getHistory(w http.ResponseWriter, r *http.Request, documentID string) {
	identity, ok := rt.requireIdentity(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	msgs, err := rt.history.History(r.Context(), identity.tenantID, identity.requesterID, documentID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// reingest re-queues an already parsed document through the ingestion
// pipeline. Useful after chunking or embedding configuration changes.
func (rt *Router) reingest(w http.ResponseWriter, r *http.Request, documentID string) {
	identity, ok := rt.requireIdentity(w, r)
	if !ok {
		return
	}

	// Tenant-scoped existence check before queueing.
	if _, err := rt.docs.GetDocument(r.Context(), identity.tenantID, documentID); err != nil {
		writeError(w, err)
		return
	}

	if err := rt.publisher.PublishDocumentParsed(r.Context(), identity.tenantID, documentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type requestIdentity struct {
	tenantID    string
	requesterID string
}

func (rt *Router) requireIdentity(w http.ResponseWriter, r *http.Request) (requestIdentity, bool) {
	identity := requestIdentity{
		tenantID:    strings.TrimSpace(r.Header.Get(tenantIDHeader)),
		requesterID: strings.TrimSpace(r.Header.Get(requesterIDHeader)),
	}
	if identity.tenantID == "" || identity.requesterID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "tenant and requester identity headers are required"})
		return requestIdentity{}, false
	}
	return identity, true
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	body := map[string]string{
		"error": err.Error(),
		"kind":  domain.KindName(err),
	}
	// Internal detail stays out of 5xx responses.
	if status >= http.StatusInternalServerError && !errors.Is(err, domain.ErrTemporary) {
		body["error"] = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
