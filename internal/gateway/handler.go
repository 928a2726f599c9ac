// Package gateway implements the streaming chat endpoint: it selects a
// provider by model name, opens the upstream stream, and re-emits it as
// unified text and tool-call frames.
package gateway

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/llm-stream-gateway/internal/codec"
	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
	"github.com/tjfontaine/llm-stream-gateway/internal/provider"
	"github.com/tjfontaine/llm-stream-gateway/internal/server"
	"github.com/tjfontaine/llm-stream-gateway/internal/stream"
	"github.com/tjfontaine/llm-stream-gateway/internal/telemetry"
	"github.com/tjfontaine/llm-stream-gateway/internal/tokens"
	"github.com/tjfontaine/llm-stream-gateway/internal/tools"
)

// MaxBodyBytes caps the size of an inbound chat request.
const MaxBodyBytes = 1 << 20

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTools replaces the tool catalog attached to upstream requests.
func WithTools(specs []tools.ToolSpec) Option {
	return func(h *Handler) {
		h.specs = specs
	}
}

// WithDefaultModel sets the model used when a request omits one.
func WithDefaultModel(model string) Option {
	return func(h *Handler) {
		h.defaultModel = model
	}
}

// WithTokenCounter sets the prompt token estimator. A nil counter disables
// estimation.
func WithTokenCounter(c *tokens.Counter) Option {
	return func(h *Handler) {
		h.counter = c
	}
}

// WithTracer overrides the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Handler) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// Handler is the Gateway Dispatcher.
type Handler struct {
	registry     *provider.Registry
	client       *provider.Client
	specs        []tools.ToolSpec
	defaultModel string
	counter      *tokens.Counter
	logger       *slog.Logger
	tracer       trace.Tracer
}

// NewHandler creates a dispatcher over the given adapters and upstream client.
// The built-in tool catalog is attached unless WithTools says otherwise.
func NewHandler(registry *provider.Registry, client *provider.Client, opts ...Option) *Handler {
	h := &Handler{
		registry:     registry,
		client:       client,
		specs:        tools.Builtin(),
		defaultModel: domain.DefaultModel,
		counter:      tokens.NewCounter(),
		logger:       slog.Default(),
		tracer:       telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "gateway.dispatch")
	defer span.End()
	r = r.WithContext(ctx)

	fail := func(err error) {
		apiErr := domain.ToAPIError(err)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, string(apiErr.Type))
		server.AddError(ctx, apiErr)
		codec.WriteError(w, apiErr)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(domain.ErrInvalidRequest("request body too large").WithCause(err))
			return
		}
		fail(domain.ErrInvalidRequest("failed to read request body").WithCause(err))
		return
	}

	req, err := domain.DecodeChatRequest(body, h.defaultModel)
	if err != nil {
		fail(err)
		return
	}

	adapter, err := h.registry.Select(req.Model)
	if err != nil {
		fail(err)
		return
	}

	span.SetAttributes(
		attribute.String("gateway.model", req.Model),
		attribute.String("gateway.provider", string(adapter.Kind())),
		attribute.Int("gateway.messages", len(req.Messages)),
		attribute.StringSlice("gateway.tools", tools.Names(h.specs)),
	)
	server.AddLogField(ctx, "model", req.Model)
	server.AddLogField(ctx, "provider", string(adapter.Kind()))

	if h.counter != nil {
		if n, err := h.counter.CountMessages(req.Model, req.Messages); err == nil {
			span.SetAttributes(attribute.Int("gateway.prompt_tokens", n))
			server.AddLogField(ctx, "prompt_tokens", strconv.Itoa(n))
		} else {
			h.logger.Debug("token estimate failed", slog.String("error", err.Error()))
		}
	}

	resp, err := h.client.Open(ctx, adapter, req, h.specs)
	if err != nil {
		fail(err)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	flush := func() {
		// Writers without flush support still receive every frame.
		_ = rc.Flush()
	}
	flush()

	start := time.Now()
	stats, err := stream.Relay(ctx, resp.Body, adapter.NewNormalizer(h.logger), w, flush)

	span.SetAttributes(
		attribute.Int("gateway.chunks", stats.Chunks),
		attribute.Int("gateway.text_frames", stats.TextFrames),
		attribute.Int("gateway.tool_calls", stats.ToolCalls),
	)
	attrs := []any{
		slog.String("request_id", server.GetRequestID(ctx)),
		slog.String("provider", adapter.Name()),
		slog.String("model", req.Model),
		slog.Int("chunks", stats.Chunks),
		slog.Int("text_frames", stats.TextFrames),
		slog.Int("tool_calls", stats.ToolCalls),
		slog.Duration("stream_duration", time.Since(start)),
	}

	switch {
	case err == nil:
		h.logger.Info("stream completed", attrs...)
	case ctx.Err() != nil:
		h.logger.Info("client disconnected", attrs...)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream failed")
		server.AddError(ctx, err)
		h.logger.Warn("stream failed", append(attrs, slog.String("error", err.Error()))...)
	}
}
