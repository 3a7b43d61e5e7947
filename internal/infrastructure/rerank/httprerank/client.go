// Package httprerank calls an external cross-encoder reranking service.
// The wire shape follows the common rerank API convention: the request
// carries the query and candidate passages, the response scores them by
// index.
package httprerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/coverly/docqa/internal/core/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores candidates against the query and returns the top-N ordered
// by relevance. The candidates' fusion scores are preserved untouched.
func (c *Client) Rerank(ctx context.Context, query string, candidates []domain.RetrievalCandidate, topN int) ([]domain.RerankedResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}

	documents := make([]string, len(candidates))
	for i, candidate := range candidates {
		documents[i] = candidate.Chunk.Text
	}

	body, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("rerank status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	out := make([]domain.RerankedResult, 0, topN)
	for _, result := range parsed.Results {
		if result.Index < 0 || result.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank result index %d out of range", result.Index)
		}
		score := result.RelevanceScore
		out = append(out, domain.RerankedResult{
			Candidate:   candidates[result.Index],
			RerankScore: &score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].RerankScore > *out[j].RerankScore
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}
