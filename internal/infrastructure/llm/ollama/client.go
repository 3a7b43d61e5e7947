package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/coverly/docqa/internal/core/ports"
	"github.com/coverly/docqa/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, genModel, embedModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Embedder builds vectors for chunks and query text. Calls are rate
// limited so bulk ingestion cannot starve interactive queries.
type Embedder struct {
	client  *Client
	limiter *rate.Limiter
}

func NewEmbedder(client *Client, requestsPerSecond float64) *Embedder {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &Embedder{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.execute(ctx, "embed", func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, wrapUpstreamError("embed", err)
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Summarizer produces table summaries with the generation model, degrading
// to the provided fallback when the model is unavailable.
type Summarizer struct {
	client   *Client
	fallback ports.TableSummarizer
}

func NewSummarizer(client *Client, fallback ports.TableSummarizer) *Summarizer {
	return &Summarizer{client: client, fallback: fallback}
}

func (s *Summarizer) SummarizeTable(ctx context.Context, tableText string) (string, error) {
	summary, err := s.client.generateText(ctx, buildTableSummaryPrompt(tableText))
	if err == nil && strings.TrimSpace(summary) != "" {
		return summary, nil
	}
	if s.fallback != nil {
		return s.fallback.SummarizeTable(ctx, tableText)
	}
	if err != nil {
		return "", wrapUpstreamError("summarize table", err)
	}
	return "", fmt.Errorf("empty table summary")
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.execute(ctx, "generate", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
}

func buildTableSummaryPrompt(tableText string) string {
	const maxSnippet = 6000
	snippet := tableText
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	return `Summarize the following table from an insurance document in two or three plain sentences.
Name what the table lists and the most important values (limits, deductibles, amounts).
Return only the summary text.

Table:
` + snippet
}
