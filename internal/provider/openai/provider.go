// Package openai builds requests for the OpenAI chat-completions API.
package openai

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

const DefaultBaseURL = "https://api.openai.com/v1"

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

// Provider is the OpenAI adapter.
type Provider struct {
	apiKey  string
	baseURL string
}

// New creates a new OpenAI adapter.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Stream      bool             `json:"stream"`
	Temperature *float64         `json:"temperature,omitempty"`
	Tools       []tool           `json:"tools,omitempty"`
}

type tool struct {
	Type     string       `json:"type"`
	Function functionTool `json:"function"`
}

type functionTool struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  tools.InputSchema `json:"parameters"`
}

func (p *Provider) Name() string { return "OpenAI" }

func (p *Provider) Kind() provider.Kind { return provider.KindOpenAI }

func (p *Provider) APIKey() string { return p.apiKey }

func (p *Provider) Endpoint() string { return p.baseURL + "/chat/completions" }

// BuildRequestBody returns the chat-completions request.
// Temperature is sent only when non-zero and accepted by the model family;
// tools are translated to function tools unless the model rejects them.
func (p *Provider) BuildRequestBody(req *domain.ChatRequest, specs []tools.ToolSpec) ([]byte, error) {
	caps := provider.CapabilitiesFor(provider.KindOpenAI, req.Model)

	body := chatCompletionRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   true,
	}

	if caps.SupportsTemperature && req.Temperature != 0 {
		temperature := req.Temperature
		body.Temperature = &temperature
	}

	if caps.SupportsTools && len(specs) > 0 {
		body.Tools = make([]tool, 0, len(specs))
		for _, s := range specs {
			body.Tools = append(body.Tools, tool{
				Type: "function",
				Function: functionTool{
					Name:        s.Name,
					Description: s.Description,
					Parameters:  s.InputSchema,
				},
			})
		}
	}

	return json.Marshal(body)
}

func (p *Provider) AuthHeaders(apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+apiKey)
	return h
}

func (p *Provider) NewNormalizer(logger *slog.Logger) stream.Normalizer {
	return stream.NewOpenAI(logger)
}

var _ provider.Adapter = (*Provider)(nil)
