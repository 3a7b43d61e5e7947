package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/coverly/docqa/internal/core/domain"
)

// DocumentRepository reads ingested documents and parsed pages, and owns
// the chunk rows written during ingestion. The chunk text column doubles as
// the lexical full-text index.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	page_count INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS document_pages (
	document_id TEXT NOT NULL REFERENCES documents(id),
	page_number INT NOT NULL,
	content TEXT NOT NULL,
	tables JSONB NOT NULL DEFAULT '[]'::jsonb,
	PRIMARY KEY (document_id, page_number)
);

CREATE TABLE IF NOT EXISTS document_chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	ordinal INT NOT NULL,
	page_number INT NOT NULL,
	chunk_type TEXT NOT NULL,
	content TEXT NOT NULL,
	summary TEXT,
	region JSONB,
	content_tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
	UNIQUE (document_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON document_chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_tsv ON document_chunks USING GIN (content_tsv);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetDocument(ctx context.Context, tenantID, documentID string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, filename, page_count, status, COALESCE(error_message, ''), created_at, updated_at
FROM documents
WHERE id = $1 AND tenant_id = $2
`, documentID, tenantID)

	var doc domain.Document
	var status string
	err := row.Scan(&doc.ID, &doc.TenantID, &doc.Filename, &doc.PageCount, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", documentID))
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) GetPages(ctx context.Context, documentID string) ([]domain.PageContent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT page_number, content, tables
FROM document_pages
WHERE document_id = $1
ORDER BY page_number ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PageContent, 0)
	for rows.Next() {
		var page domain.PageContent
		var tablesRaw []byte
		if err := rows.Scan(&page.PageNumber, &page.Text, &tablesRaw); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		if len(tablesRaw) > 0 {
			if err := json.Unmarshal(tablesRaw, &page.Tables); err != nil {
				return nil, fmt.Errorf("decode page tables: %w", err)
			}
		}
		out = append(out, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, ordinal, page_number, chunk_type, content, COALESCE(summary, ''), region
FROM document_chunks
WHERE document_id = $1
ORDER BY ordinal ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0)
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Re-ingestion replaces the document's chunk set wholesale.
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for _, chunk := range chunks {
		var regionJSON any
		if chunk.Region != nil {
			encoded, err := json.Marshal(chunk.Region)
			if err != nil {
				return fmt.Errorf("marshal chunk region: %w", err)
			}
			regionJSON = encoded
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO document_chunks (id, document_id, ordinal, page_number, chunk_type, content, summary, region)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, chunk.ID, documentID, chunk.Ordinal, chunk.PageNumber, string(chunk.Type), chunk.Text, nullableString(chunk.Summary), regionJSON)
		if err != nil {
			return fmt.Errorf("insert chunk ordinal=%d: %w", chunk.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, documentID, string(status), nullableString(errMessage), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (domain.Chunk, error) {
	var chunk domain.Chunk
	var chunkType string
	var regionRaw []byte
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Ordinal, &chunk.PageNumber, &chunkType, &chunk.Text, &chunk.Summary, &regionRaw); err != nil {
		return domain.Chunk{}, fmt.Errorf("scan chunk: %w", err)
	}
	chunk.Type = domain.ChunkType(chunkType)
	if len(regionRaw) > 0 {
		region, err := decodeRegion(regionRaw)
		if err != nil {
			return domain.Chunk{}, err
		}
		chunk.Region = region
	}
	return chunk, nil
}

func decodeRegion(raw []byte) (*domain.BoundingBox, error) {
	var region domain.BoundingBox
	if err := json.Unmarshal(raw, &region); err != nil {
		return nil, fmt.Errorf("decode chunk region: %w", err)
	}
	return &region, nil
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
