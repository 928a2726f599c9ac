// Package proxy implements the forwarding proxy. Requests whose JSON body
// has an "id" field go to the local gateway; everything else goes straight
// to the upstream chat-completions endpoint. Response bytes are relayed
// without parsing.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/llm-stream-gateway/internal/codec"
	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
	"github.com/tjfontaine/llm-stream-gateway/internal/server"
	"github.com/tjfontaine/llm-stream-gateway/internal/stream"
)

const (
	// DefaultTimeout bounds one forwarded round trip, including the relayed body.
	DefaultTimeout = 90 * time.Second

	// MaxBodyBytes caps the size of a forwarded request body.
	MaxBodyBytes = 8 << 20
)

// Route is the forwarding decision for one request.
type Route string

const (
	RouteGateway  Route = "gateway"
	RouteUpstream Route = "upstream"
)

// forwardedHeaders are the only inbound headers copied to the target.
var forwardedHeaders = []string{"Authorization", "OpenAI-Organization"}

// droppedResponseHeaders would misdescribe a body that is relayed as-is.
var droppedResponseHeaders = map[string]bool{
	"Content-Encoding":  true,
	"Transfer-Encoding": true,
	"Content-Length":    true,
}

// Option configures a Handler.
type Option func(*Handler)

// WithHTTPClient sets the client used for forwarded requests.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithIdentityEncoding requests uncompressed responses from the target so
// nothing is ever decoded locally.
func WithIdentityEncoding(enabled bool) Option {
	return func(h *Handler) {
		h.identityEncoding = enabled
	}
}

// Handler is the forwarding proxy.
type Handler struct {
	gatewayURL       string
	upstreamURL      string
	timeout          time.Duration
	identityEncoding bool
	httpClient       *http.Client
	logger           *slog.Logger
}

// New creates a proxy that forwards to gatewayURL or upstreamURL.
func New(gatewayURL, upstreamURL string, opts ...Option) *Handler {
	h := &Handler{
		gatewayURL:  gatewayURL,
		upstreamURL: upstreamURL,
		timeout:     DefaultTimeout,
		httpClient:  http.DefaultClient,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Decide returns RouteGateway when body is a JSON object with an "id" key.
func Decide(body any) Route {
	if obj, ok := body.(map[string]any); ok {
		if _, ok := obj["id"]; ok {
			return RouteGateway
		}
	}
	return RouteUpstream
}

// parseBody decodes raw as a single JSON value and re-encodes it compactly.
// Numbers are kept as written.
func parseBody(raw []byte) (any, []byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, errors.New("unexpected data after JSON value")
	}

	out, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	return body, out, nil
}

func (h *Handler) target(route Route) (url, name string) {
	if route == RouteGateway {
		return h.gatewayURL, "Gateway"
	}
	return h.upstreamURL, "Upstream"
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		server.AddError(r.Context(), err)
		codec.WriteError(w, domain.ErrInvalidRequest("failed to read request body").WithCause(err))
		return
	}

	parsed, body, err := parseBody(raw)
	if err != nil {
		server.AddError(r.Context(), err)
		codec.WriteError(w, domain.ErrInvalidRequest(fmt.Sprintf("Invalid JSON: %v", err)).WithCause(err))
		return
	}

	route := Decide(parsed)
	targetURL, targetName := h.target(route)
	server.AddLogField(r.Context(), "route", string(route))
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("proxy.route", string(route)),
		attribute.String("proxy.target", targetURL),
	)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	outReq, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		codec.WriteError(w, domain.ErrServer(fmt.Sprintf("failed to create request: %v", err)).WithCause(err))
		return
	}
	outReq.Header.Set("Content-Type", "application/json")
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			outReq.Header.Set(name, v)
		}
	}
	if h.identityEncoding {
		outReq.Header.Set("Accept-Encoding", "identity")
	}

	resp, err := h.httpClient.Do(outReq)
	if err != nil {
		h.logger.Error("proxy request failed",
			slog.String("route", string(route)),
			slog.String("target", targetURL),
			slog.String("error", err.Error()))
		apiErr := domain.ErrUpstreamUnreachable(targetName, err)
		server.AddError(r.Context(), apiErr)
		codec.WriteError(w, apiErr)
		return
	}
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		if droppedResponseHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	h.relay(ctx, w, resp.Body, route)
}

// relay copies body to w one buffer at a time. A read failure aborts the
// client connection so the truncation is visible to the caller.
func (h *Handler) relay(ctx context.Context, w http.ResponseWriter, body io.Reader, route Route) {
	rc := http.NewResponseController(w)

	var written int64
	for chunk := range stream.ReadChunks(ctx, body, stream.ChunkSize) {
		if chunk.Err != nil {
			h.logger.Warn("proxy stream failed",
				slog.String("route", string(route)),
				slog.Int64("bytes", written),
				slog.String("error", chunk.Err.Error()))
			server.AddError(ctx, domain.ErrStreamTransport(chunk.Err))
			panic(http.ErrAbortHandler)
		}

		n, err := w.Write(chunk.Data)
		written += int64(n)
		if err != nil {
			h.logger.Info("proxy client went away",
				slog.String("route", string(route)),
				slog.Int64("bytes", written))
			return
		}
		_ = rc.Flush()
	}

	if err := ctx.Err(); err != nil {
		h.logger.Warn("proxy stream interrupted",
			slog.String("route", string(route)),
			slog.Int64("bytes", written),
			slog.String("error", err.Error()))
		panic(http.ErrAbortHandler)
	}

	h.logger.Debug("proxy stream completed",
		slog.String("route", string(route)),
		slog.Int64("bytes", written))
}
