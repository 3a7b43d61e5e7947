package usecase

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/coverly/docqa/internal/core/domain"
	"github.com/coverly/docqa/internal/core/ports"
)

// HybridRetriever issues the lexical and vector legs of a query
// concurrently and fuses them into one ranked shortlist. Insurance queries
// mix exact-term lookups with semantic questions, so neither leg alone is
// enough.
type HybridRetriever struct {
	embedder ports.Embedder
	vector   ports.VectorIndex
	lexical  ports.LexicalIndex

	mode         domain.RetrievalMode
	vectorWeight float64
	width        int
}

func NewHybridRetriever(
	embedder ports.Embedder,
	vector ports.VectorIndex,
	lexical ports.LexicalIndex,
	mode domain.RetrievalMode,
	vectorWeight float64,
	width int,
) *HybridRetriever {
	if vectorWeight < 0 || vectorWeight > 1 {
		vectorWeight = 0.7
	}
	if width <= 0 {
		width = 20
	}
	switch mode {
	case domain.RetrievalVectorOnly, domain.RetrievalHybrid, domain.RetrievalHybridWithRerank:
	default:
		mode = domain.RetrievalHybridWithRerank
	}
	return &HybridRetriever{
		embedder:     embedder,
		vector:       vector,
		lexical:      lexical,
		mode:         mode,
		vectorWeight: vectorWeight,
		width:        width,
	}
}

func (r *HybridRetriever) Mode() domain.RetrievalMode {
	return r.mode
}

// Retrieve returns up to the configured width of candidates ordered by
// fusion score, scoped to one document within one tenant.
func (r *HybridRetriever) Retrieve(ctx context.Context, tenantID, documentID, query string) ([]domain.RetrievalCandidate, error) {
	var (
		vectorHits  []domain.RetrievalCandidate
		lexicalHits []domain.RetrievalCandidate
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		queryVector, err := r.embedder.EmbedQuery(groupCtx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		hits, err := r.vector.Search(groupCtx, tenantID, documentID, queryVector, r.width)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		vectorHits = hits
		return nil
	})
	if r.mode != domain.RetrievalVectorOnly {
		group.Go(func() error {
			hits, err := r.lexical.SearchLexical(groupCtx, tenantID, documentID, query, r.width)
			if err != nil {
				return fmt.Errorf("lexical search: %w", err)
			}
			lexicalHits = hits
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	fused := fuseWeighted(vectorHits, lexicalHits, r.vectorWeight)
	if len(fused) > r.width {
		fused = fused[:r.width]
	}
	return fused, nil
}

// fuseWeighted merges the two candidate sets keyed by chunk id. Scores are
// normalized per source by the source's maximum, then combined as
// w*vector + (1-w)*lexical. A chunk seen by only one source contributes 0
// from the missing source rather than being excluded. The raw per-source
// scores are kept untouched for confidence calibration.
func fuseWeighted(vectorHits, lexicalHits []domain.RetrievalCandidate, vectorWeight float64) []domain.RetrievalCandidate {
	maxVector := maxScore(vectorHits, func(c domain.RetrievalCandidate) *float64 { return c.VectorScore })
	maxLexical := maxScore(lexicalHits, func(c domain.RetrievalCandidate) *float64 { return c.LexicalScore })

	acc := make(map[string]domain.RetrievalCandidate, len(vectorHits)+len(lexicalHits))
	for _, hit := range vectorHits {
		acc[hit.Chunk.ID] = hit
	}
	for _, hit := range lexicalHits {
		current, ok := acc[hit.Chunk.ID]
		if !ok {
			acc[hit.Chunk.ID] = hit
			continue
		}
		current.LexicalScore = hit.LexicalScore
		acc[hit.Chunk.ID] = current
	}

	out := make([]domain.RetrievalCandidate, 0, len(acc))
	for _, candidate := range acc {
		vectorPart := normalizeScore(candidate.VectorScore, maxVector)
		lexicalPart := normalizeScore(candidate.LexicalScore, maxLexical)
		candidate.FusionScore = vectorWeight*vectorPart + (1-vectorWeight)*lexicalPart
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusionScore != out[j].FusionScore {
			return out[i].FusionScore > out[j].FusionScore
		}
		vi := scoreOrZero(out[i].VectorScore)
		vj := scoreOrZero(out[j].VectorScore)
		if vi != vj {
			return vi > vj
		}
		return out[i].Chunk.Ordinal < out[j].Chunk.Ordinal
	})
	return out
}

func maxScore(hits []domain.RetrievalCandidate, pick func(domain.RetrievalCandidate) *float64) float64 {
	max := 0.0
	for _, hit := range hits {
		if v := pick(hit); v != nil && *v > max {
			max = *v
		}
	}
	return max
}

func normalizeScore(score *float64, max float64) float64 {
	if score == nil || max <= 0 {
		return 0
	}
	v := *score / max
	if v < 0 {
		return 0
	}
	return v
}

func scoreOrZero(score *float64) float64 {
	if score == nil {
		return 0
	}
	return *score
}
