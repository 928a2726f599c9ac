package provider

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
	"github.com/tjfontaine/llm-stream-gateway/internal/stream"
	"github.com/tjfontaine/llm-stream-gateway/internal/tools"
)

// Adapter translates a ChatRequest into one provider's wire format and knows how to
// address and authenticate against that provider.
type Adapter interface {
	// Name is the display name used in logs and error messages.
	Name() string
	Kind() Kind
	// APIKey returns the configured credential; empty when unset.
	APIKey() string
	BuildRequestBody(req *domain.ChatRequest, specs []tools.ToolSpec) ([]byte, error)
	Endpoint() string
	AuthHeaders(apiKey string) http.Header
	// NewNormalizer returns a fresh normalizer for one response stream.
	NewNormalizer(logger *slog.Logger) stream.Normalizer
}

// Registry holds one adapter per provider kind.
type Registry struct {
	adapters map[Kind]Adapter
}

// NewRegistry creates a registry from the given adapters.
// Registering two adapters of the same kind is an error.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[Kind]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Kind()]; exists {
			return nil, fmt.Errorf("adapter for %s already registered", a.Kind())
		}
		r.adapters[a.Kind()] = a
	}
	return r, nil
}

// Select returns the adapter for model according to Classify.
func (r *Registry) Select(model string) (Adapter, error) {
	kind := Classify(model)
	a, ok := r.adapters[kind]
	if !ok {
		return nil, domain.ErrConfiguration(fmt.Sprintf("no adapter registered for provider %s", kind))
	}
	return a, nil
}
