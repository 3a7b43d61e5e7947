package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coverly/docqa/internal/core/domain"
	"github.com/coverly/docqa/internal/core/ports"
)

// IngestUseCase turns a parsed document into indexed retrieval chunks:
// chunk build, table summaries, embeddings, vector upsert, chunk rows.
type IngestUseCase struct {
	documents  ports.DocumentStore
	builder    ports.ChunkBuilder
	summarizer ports.TableSummarizer
	embedder   ports.Embedder
	vector     ports.VectorIndex
}

func NewIngestUseCase(
	documents ports.DocumentStore,
	builder ports.ChunkBuilder,
	summarizer ports.TableSummarizer,
	embedder ports.Embedder,
	vector ports.VectorIndex,
) *IngestUseCase {
	return &IngestUseCase{
		documents:  documents,
		builder:    builder,
		summarizer: summarizer,
		embedder:   embedder,
		vector:     vector,
	}
}

func (uc *IngestUseCase) ProcessByID(ctx context.Context, tenantID, documentID string) error {
	if err := uc.documents.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.pipeline(ctx, tenantID, documentID); err != nil {
		if failErr := uc.documents.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.documents.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *IngestUseCase) pipeline(ctx context.Context, tenantID, documentID string) error {
	doc, err := uc.documents.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}

	pages, err := uc.documents.GetPages(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("fetch parsed pages: %w", err)
	}
	if len(pages) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "ingest document", errors.New("document has no parsed pages"))
	}

	chunks := uc.builder.Build(doc.ID, pages)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "ingest document", errors.New("chunking produced zero chunks"))
	}

	uc.summarizeTables(ctx, chunks)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.EmbeddingText()
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.documents.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	if err := uc.vector.IndexChunks(ctx, tenantID, chunks, vectors); err != nil {
		return fmt.Errorf("index chunks in vector db: %w", err)
	}
	return nil
}

// summarizeTables fills in summaries for table chunks. Summary failures
// degrade to embedding the raw table text; ingestion never fails over
// table handling.
func (uc *IngestUseCase) summarizeTables(ctx context.Context, chunks []domain.Chunk) {
	if uc.summarizer == nil {
		return
	}
	for i := range chunks {
		if chunks[i].Type != domain.ChunkTypeTable {
			continue
		}
		summary, err := uc.summarizer.SummarizeTable(ctx, chunks[i].Text)
		if err != nil {
			slog.Warn("table_summary_skipped", "document_id", chunks[i].DocumentID, "ordinal", chunks[i].Ordinal, "error", err)
			continue
		}
		chunks[i].Summary = summary
	}
}
