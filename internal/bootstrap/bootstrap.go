package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coverly/docqa/internal/config"
	"github.com/coverly/docqa/internal/core/domain"
	"github.com/coverly/docqa/internal/core/ports"
	"github.com/coverly/docqa/internal/core/usecase"
	"github.com/coverly/docqa/internal/infrastructure/chunking"
	"github.com/coverly/docqa/internal/infrastructure/llm/ollama"
	"github.com/coverly/docqa/internal/infrastructure/queue/nats"
	"github.com/coverly/docqa/internal/infrastructure/rerank/httprerank"
	"github.com/coverly/docqa/internal/infrastructure/repository/postgres"
	"github.com/coverly/docqa/internal/infrastructure/resilience"
	"github.com/coverly/docqa/internal/infrastructure/summarize"
	"github.com/coverly/docqa/internal/infrastructure/vector/qdrant"
)

// App wires configuration, adapters and use cases for both binaries. The api
// process uses Streamer/History; the worker uses Queue/Ingest.
type App struct {
	Config config.Config

	Queue     *nats.Queue
	Documents ports.DocumentStore
	Streamer  ports.QueryStreamer
	History   ports.HistoryReader
	Ingest    ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}
	conversations := postgres.NewConversationRepository(db)
	if err := conversations.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure conversation schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, logger, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbedRateLimitRPS)
	chat := ollama.NewChat(ollamaClient)
	summarizer := ollama.NewSummarizer(ollamaClient, summarize.NewFrequencySummarizer(6))

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	mode := domain.RetrievalMode(cfg.RetrievalMode)
	retriever := usecase.NewHybridRetriever(
		embedder, vectorIndex, documents, mode, cfg.FusionVectorWeight, cfg.ShortlistWidth)

	var reranker ports.Reranker
	if cfg.RerankerURL != "" {
		reranker = httprerank.New(cfg.RerankerURL, time.Duration(cfg.RerankerTimeoutMS)*time.Millisecond)
	}
	rerankStage := usecase.NewRerankStage(
		reranker, mode, cfg.RerankWidth, time.Duration(cfg.RerankerTimeoutMS)*time.Millisecond)

	scorer := usecase.NewConfidenceScorer(usecase.ConfidenceThresholds{
		RerankHigh: cfg.ConfidenceRerankHigh,
		RerankLow:  cfg.ConfidenceRerankLow,
		VectorHigh: cfg.ConfidenceVectorHigh,
		VectorLow:  cfg.ConfidenceVectorLow,
	})
	assembler := usecase.NewContextAssembler("", cfg.HistoryWindow, cfg.HistoryTokenBudget)

	askUC := usecase.NewAskUseCase(
		retriever, rerankStage, scorer, assembler,
		chat, documents, conversations,
		usecase.AskOptions{
			RetrievalTimeout: time.Duration(cfg.RetrievalTimeoutMS) * time.Millisecond,
			QueryTimeout:     time.Duration(cfg.QueryTimeoutMS) * time.Millisecond,
			MaxQueryChars:    cfg.MaxQueryChars,
		})
	historyUC := usecase.NewHistoryUseCase(conversations)

	builder := chunking.NewBuilder(cfg.ChunkTokenSize, cfg.ChunkTokenOverlap)
	ingestUC := usecase.NewIngestUseCase(documents, builder, summarizer, embedder, vectorIndex)

	return &App{
		Config: cfg,

		Queue:     queue,
		Documents: documents,
		Streamer:  askUC,
		History:   historyUC,
		Ingest:    ingestUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
