package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/coverly/docqa/internal/core/domain"
)

func TestDocumentRepositoryGetDocumentScopesByTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "filename", "page_count", "status", "error_message", "created_at", "updated_at"}).
		AddRow("d-1", "t-1", "policy.pdf", 12, string(domain.StatusReady), "", time.Now(), time.Now())

	mock.ExpectQuery("FROM documents").
		WithArgs("d-1", "t-1").
		WillReturnRows(rows)

	doc, err := repo.GetDocument(context.Background(), "t-1", "d-1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if doc.Status != domain.StatusReady {
		t.Fatalf("expected ready status, got %s", doc.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepositoryGetDocumentMissingReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)
	mock.ExpectQuery("FROM documents").
		WithArgs("missing", "t-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "filename", "page_count", "status", "error_message", "created_at", "updated_at"}))

	_, err = repo.GetDocument(context.Background(), "t-1", "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepositorySaveChunksReplacesExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM document_chunks").
		WithArgs("d-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO document_chunks").
		WithArgs("c-1", "d-1", 0, 1, string(domain.ChunkTypeText), "first chunk", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO document_chunks").
		WithArgs("c-2", "d-1", 1, 2, string(domain.ChunkTypeTable), "| a | b |", "table of a and b", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	chunks := []domain.Chunk{
		{ID: "c-1", DocumentID: "d-1", Ordinal: 0, PageNumber: 1, Type: domain.ChunkTypeText, Text: "first chunk"},
		{ID: "c-2", DocumentID: "d-1", Ordinal: 1, PageNumber: 2, Type: domain.ChunkTypeTable, Text: "| a | b |", Summary: "table of a and b",
			Region: &domain.BoundingBox{X: 0.1, Y: 0.2, Width: 0.5, Height: 0.3}},
	}
	if err := repo.SaveChunks(context.Background(), "d-1", chunks); err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepositorySearchLexicalSetsLexicalScore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "document_id", "ordinal", "page_number", "chunk_type", "content", "summary", "region", "rank"}).
		AddRow("c-1", "d-1", 0, 1, string(domain.ChunkTypeText), "deductible is $500", "", nil, 0.42).
		AddRow("c-2", "d-1", 3, 2, string(domain.ChunkTypeText), "deductible waived", "", nil, 0.17)

	mock.ExpectQuery("websearch_to_tsquery").
		WithArgs("d-1", "t-1", "what is the deductible", 20).
		WillReturnRows(rows)

	cands, err := repo.SearchLexical(context.Background(), "t-1", "d-1", "what is the deductible", 20)
	if err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].LexicalScore == nil || *cands[0].LexicalScore != 0.42 {
		t.Fatalf("expected lexical score 0.42, got %v", cands[0].LexicalScore)
	}
	if cands[0].VectorScore != nil {
		t.Fatalf("lexical results must not carry a vector score")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
