package postgres

import (
	"context"
	"fmt"

	"github.com/coverly/docqa/internal/core/domain"
)

// SearchLexical ranks the document's chunks against the query with Postgres
// full-text search. websearch_to_tsquery tolerates free-form user input, so
// no query sanitizing happens here. Chunks that match no term are excluded;
// the fusion stage treats them as zero-score.
func (r *DocumentRepository) SearchLexical(ctx context.Context, tenantID, documentID, queryText string, limit int) ([]domain.RetrievalCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.document_id, c.ordinal, c.page_number, c.chunk_type, c.content, COALESCE(c.summary, ''), c.region,
       ts_rank(c.content_tsv, websearch_to_tsquery('english', $3)) AS rank
FROM document_chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.document_id = $1
  AND d.tenant_id = $2
  AND c.content_tsv @@ websearch_to_tsquery('english', $3)
ORDER BY rank DESC, c.ordinal ASC
LIMIT $4
`, documentID, tenantID, queryText, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RetrievalCandidate, 0, limit)
	for rows.Next() {
		var cand domain.RetrievalCandidate
		var chunkType string
		var regionRaw []byte
		var rank float64
		err := rows.Scan(&cand.Chunk.ID, &cand.Chunk.DocumentID, &cand.Chunk.Ordinal, &cand.Chunk.PageNumber,
			&chunkType, &cand.Chunk.Text, &cand.Chunk.Summary, &regionRaw, &rank)
		if err != nil {
			return nil, fmt.Errorf("scan lexical candidate: %w", err)
		}
		cand.Chunk.Type = domain.ChunkType(chunkType)
		if len(regionRaw) > 0 {
			region, err := decodeRegion(regionRaw)
			if err != nil {
				return nil, err
			}
			cand.Chunk.Region = region
		}
		score := rank
		cand.LexicalScore = &score
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical candidates: %w", err)
	}
	return out, nil
}
