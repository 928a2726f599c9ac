// Package anthropic builds requests for the Anthropic messages API.
package anthropic

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
	"github.com/tjfontaine/llm-stream-gateway/internal/provider"
	"github.com/tjfontaine/llm-stream-gateway/internal/stream"
	"github.com/tjfontaine/llm-stream-gateway/internal/tools"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	DefaultVersion = "2023-06-01"

	defaultMaxTokens = 4096
	// tokensPerStep is a coarse budget per agent step, not a token count.
	tokensPerStep = 1000
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithVersion sets the anthropic-version header value.
func WithVersion(version string) ProviderOption {
	return func(p *Provider) {
		if version != "" {
			p.version = version
		}
	}
}

// Provider is the Anthropic adapter.
type Provider struct {
	apiKey  string
	baseURL string
	version string
}

// New creates a new Anthropic adapter.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type messagesRequest struct {
	Model     string           `json:"model"`
	Messages  []domain.Message `json:"messages"`
	Stream    bool             `json:"stream"`
	MaxTokens int              `json:"max_tokens"`
	Tools     []tools.ToolSpec `json:"tools,omitempty"`
}

func (p *Provider) Name() string { return "Anthropic" }

func (p *Provider) Kind() provider.Kind { return provider.KindAnthropic }

func (p *Provider) APIKey() string { return p.apiKey }

func (p *Provider) Endpoint() string { return p.baseURL + "/messages" }

// BuildRequestBody returns the messages request. Temperature is never sent.
// When tools are attached and maxSteps is positive, max_tokens becomes maxSteps*1000.
func (p *Provider) BuildRequestBody(req *domain.ChatRequest, specs []tools.ToolSpec) ([]byte, error) {
	body := messagesRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		Stream:    true,
		MaxTokens: defaultMaxTokens,
	}

	if provider.CapabilitiesFor(provider.KindAnthropic, req.Model).SupportsTools && len(specs) > 0 {
		body.Tools = specs
		if req.MaxSteps != nil && *req.MaxSteps > 0 {
			body.MaxTokens = *req.MaxSteps * tokensPerStep
		}
	}

	return json.Marshal(body)
}

// AuthHeaders returns a bearer Authorization header plus the API version header.
// x-api-key carries the same key for endpoints that only accept that form.
func (p *Provider) AuthHeaders(apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", p.version)
	return h
}

func (p *Provider) NewNormalizer(logger *slog.Logger) stream.Normalizer {
	return stream.NewAnthropic(logger)
}

var _ provider.Adapter = (*Provider)(nil)
