// Package schemedex is a small HTTP client for the schemedex API.
package schemedex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey string
	httpc  *http.Client
}

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpc = httpc
	})
}

// Client is the schemedex SDK entry point.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("schemedex: base URL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("schemedex: invalid base URL: %w", err)
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpc == nil {
		cfg.httpc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.apiKey,
		httpc:   cfg.httpc,
	}, nil
}

// Ingest builds (or rebuilds) the index from the server's dataset.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (IngestResponse, error) {
	var resp IngestResponse
	header, err := c.do(ctx, http.MethodPost, "/ingest", req, &resp)
	if err != nil {
		return IngestResponse{}, err
	}
	resp.EmbeddingTokens = embeddingTokens(header)
	return resp, nil
}

// Query runs a top-k semantic search.
func (c *Client) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	var resp QueryResponse
	header, err := c.do(ctx, http.MethodPost, "/query", req, &resp)
	if err != nil {
		return QueryResponse{}, err
	}
	resp.EmbeddingTokens = embeddingTokens(header)
	return resp, nil
}

// Explain answers a question about the best-matching scheme.
func (c *Client) Explain(ctx context.Context, req ExplainRequest) (ExplainResponse, error) {
	var resp ExplainResponse
	if _, err := c.do(ctx, http.MethodPost, "/explain", req, &resp); err != nil {
		return ExplainResponse{}, err
	}
	return resp, nil
}

// ResolveURL finds the official application URL for a scheme.
func (c *Client) ResolveURL(ctx context.Context, schemeQuery string) (ResolveURLResponse, error) {
	var resp ResolveURLResponse
	body := map[string]string{"scheme_query": schemeQuery}
	if _, err := c.do(ctx, http.MethodPost, "/resolve_url", body, &resp); err != nil {
		return ResolveURLResponse{}, err
	}
	return resp, nil
}

// Enrich produces short descriptions and apply URLs for the named schemes.
func (c *Client) Enrich(ctx context.Context, items []EnrichItem) ([]EnrichedScheme, error) {
	var resp struct {
		Schemes []EnrichedScheme `json:"schemes"`
	}
	body := map[string]any{"schemes": items}
	if _, err := c.do(ctx, http.MethodPost, "/enrich", body, &resp); err != nil {
		return nil, err
	}
	return resp.Schemes, nil
}

// Chat runs a conversational scheme-discovery turn.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var resp ChatResponse
	if _, err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return ChatResponse{}, err
	}
	return resp, nil
}

// Stats fetches the current index statistics.
func (c *Client) Stats(ctx context.Context) (IndexStats, error) {
	var resp IndexStats
	if _, err := c.do(ctx, http.MethodGet, "/stats", nil, &resp); err != nil {
		return IndexStats{}, err
	}
	return resp, nil
}

// Usage fetches the token budget report. period is "day", "month" or "total";
// empty defaults to month.
func (c *Client) Usage(ctx context.Context, period string) (UsageReport, error) {
	path := "/usage"
	if period != "" {
		path += "?period=" + url.QueryEscape(period)
	}
	var resp UsageReport
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return UsageReport{}, err
	}
	return resp, nil
}

// Health fetches the aggregated health report. Degraded servers answer
// with a 503 but a valid report body, so that status is not an error.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("schemedex: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("schemedex: GET /health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthResponse{}, parseAPIError(resp)
	}

	var out HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return HealthResponse{}, fmt.Errorf("schemedex: decode response: %w", err)
	}
	return out, nil
}

// do sends one request and decodes the response into out (when non-nil).
// Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("schemedex: marshal request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("schemedex: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schemedex: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, parseAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("schemedex: decode response: %w", err)
		}
	}
	return resp.Header, nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Code = "internal_error"
		apiErr.Message = resp.Status
	}
	return apiErr
}

func embeddingTokens(header http.Header) int {
	n, _ := strconv.Atoi(header.Get("X-Embedding-Tokens"))
	return n
}
