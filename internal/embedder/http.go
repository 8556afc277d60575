package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"ragcore/internal/errs"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// HTTPClient calls an OpenAI-compatible embeddings endpoint, retrying
// transient failures with exponential backoff.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	path       string
	apiKey     string
	apiHeader  string
	model      string
	dimension  int
	timeout    time.Duration
	maxRetries uint
}

// NewHTTPClient constructs an HTTPClient. httpClient should already be
// instrumented (see internal/obs.NewHTTPClient) by the caller.
func NewHTTPClient(httpClient *http.Client, baseURL, path, apiKey, apiHeader, model string, dimension int, timeout time.Duration) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if apiHeader == "" {
		apiHeader = "Authorization"
	}
	return &HTTPClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		path:       path,
		apiKey:     apiKey,
		apiHeader:  apiHeader,
		model:      model,
		dimension:  dimension,
		timeout:    timeout,
		maxRetries: 3,
	}
}

func (c *HTTPClient) Dimension() int { return c.dimension }

// Embed returns one embedding per text, preserving input order. Texts are
// sent in sub-batches of at most 100. Transient HTTP failures (5xx, 429 rate
// limiting, network errors) are retried with exponential backoff; other 4xx
// failures are returned immediately as non-retryable.
func (c *HTTPClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errs.New(errs.ConfigInvalid, "embed called with no input texts")
	}

	const maxBatch = 100
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		op := func() ([][]float32, error) {
			return c.doEmbed(ctx, batch)
		}

		result, err := backoff.Retry(ctx, op,
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(c.maxRetries),
		)
		if err != nil {
			return nil, errs.Wrap(errs.EmbedderFailed, "embed request failed after retries", err)
		}
		out = append(out, result...)
	}
	return out, nil
}

func (c *HTTPClient) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal embed request: %w", err))
	}

	timeout := c.timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build embed request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		if c.apiHeader == "Authorization" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		} else {
			req.Header.Set(c.apiHeader, c.apiKey)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err) // retryable: network error
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("embed endpoint returned %s: %s", resp.Status, truncate(respBody, 200))
	}
	if resp.StatusCode/100 != 2 {
		return nil, backoff.Permanent(fmt.Errorf("embed endpoint returned %s: %s", resp.Status, truncate(respBody, 200)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse embed response: %w", err))
	}
	if len(parsed.Data) != len(texts) {
		return nil, backoff.Permanent(fmt.Errorf("unexpected embedding count: got %d, want %d", len(parsed.Data), len(texts)))
	}

	out := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		out[i] = parsed.Data[i].Embedding
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
