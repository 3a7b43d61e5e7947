package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/coverly/docqa/internal/infrastructure/resilience"
)

// Queue carries parsed-document notifications between the parsing
// collaborator and the ingestion worker.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type parsedEvent struct {
	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
}

func New(url, subject string, logger *slog.Logger) (*Queue, error) {
	return NewWithOptions(url, subject, logger, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, subject string, logger *slog.Logger, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docqa"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// PublishDocumentParsed announces that a document's pages are readable from
// storage. The API's re-ingest trigger publishes here; first-pass events
// arrive from the parsing collaborator on the same subject.
func (q *Queue) PublishDocumentParsed(ctx context.Context, tenantID, documentID string) error {
	payload, err := json.Marshal(parsedEvent{TenantID: tenantID, DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("encode parsed event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeDocumentParsed blocks until ctx is cancelled, dispatching each
// parsed-document event to handler. Events with malformed payloads are
// logged and dropped; handler errors do not stop the subscription.
func (q *Queue) SubscribeDocumentParsed(ctx context.Context, handler func(ctx context.Context, tenantID, documentID string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, "ingestion-workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var event parsedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			q.logger.Error("drop malformed parsed event", "error", err)
			return
		}
		if event.TenantID == "" || event.DocumentID == "" {
			q.logger.Error("drop parsed event with missing identifiers",
				"tenant_id", event.TenantID, "document_id", event.DocumentID)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event.TenantID, event.DocumentID); err != nil {
			q.logger.Error("ingestion handler failed",
				"tenant_id", event.TenantID, "document_id", event.DocumentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
