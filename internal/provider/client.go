package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
	"github.com/tjfontaine/llm-stream-gateway/internal/tools"
)

const maxErrorBodyBytes = 64 * 1024

// DefaultUserAgent identifies the gateway to upstream providers.
const DefaultUserAgent = "llm-stream-gateway/1.0"

// Client issues streaming requests to upstream providers.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent sent upstream. Empty keeps DefaultUserAgent.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// NewClient creates a new upstream client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open sends req to the adapter's provider and returns the streaming response.
// A nil error means the status was 2xx and the caller owns resp.Body.
// Failures are reported before any bytes reach the client:
// transport errors as upstream_unreachable, non-2xx statuses as upstream_error.
func (c *Client) Open(ctx context.Context, a Adapter, req *domain.ChatRequest, specs []tools.ToolSpec) (*http.Response, error) {
	apiKey := a.APIKey()
	if apiKey == "" {
		return nil, domain.ErrConfiguration(fmt.Sprintf("%s API key not set", a.Name())).WithProvider(a.Name())
	}

	body, err := a.BuildRequestBody(req, specs)
	if err != nil {
		return nil, domain.ErrServer(fmt.Sprintf("build %s request: %v", a.Name(), err)).WithCause(err)
	}

	c.logger.Debug("sending upstream request",
		slog.String("provider", a.Name()),
		slog.String("endpoint", a.Endpoint()),
		slog.String("body", string(body)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrServer(fmt.Sprintf("failed to create request: %v", err)).WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("User-Agent", c.userAgent)
	for k, vs := range a.AuthHeaders(apiKey) {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("failed to call upstream API",
			slog.String("provider", a.Name()),
			slog.String("error", err.Error()))
		return nil, domain.ErrUpstreamUnreachable(a.Name(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Error("upstream API error",
			slog.String("provider", a.Name()),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(errBody)))
		return nil, domain.ErrUpstreamError(a.Name(), resp.StatusCode)
	}

	return resp, nil
}
