package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Chat drives the generation model in streaming mode. It implements
// ports.ChatModel.
type Chat struct {
	client *Client
}

func NewChat(client *Client) *Chat {
	return &Chat{client: client}
}

// StreamAnswer issues a streaming generate call and forwards text deltas.
// The delta channel closes when generation ends; the error channel yields
// at most one error. Cancelling ctx aborts the upstream request.
func (c *Chat) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	deltas := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errs)

		if err := c.stream(ctx, prompt, deltas); err != nil {
			errs <- wrapUpstreamError("generate stream", err)
		}
	}()

	return deltas, errs
}

func (c *Chat) stream(ctx context.Context, prompt string, deltas chan<- string) error {
	reqBody := map[string]any{
		"model":  c.client.genModel,
		"prompt": prompt,
		"stream": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.client.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// The shared client enforces a whole-call timeout; streaming relies on
	// ctx for cancellation instead.
	streamClient := &http.Client{Transport: c.client.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newHTTPStatusError("generate", resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var part struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
		}
		if err := json.Unmarshal(line, &part); err != nil {
			return fmt.Errorf("decode stream line: %w", err)
		}

		if part.Response != "" {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case deltas <- part.Response:
			}
		}
		if part.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
