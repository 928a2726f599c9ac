// Package runtime wires configuration, providers, the dispatcher and the
// forwarding proxy into a single embeddable Gateway with a start/shutdown
// lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/llm-stream-gateway/internal/config"
	"github.com/tjfontaine/llm-stream-gateway/internal/gateway"
	"github.com/tjfontaine/llm-stream-gateway/internal/provider"
	"github.com/tjfontaine/llm-stream-gateway/internal/provider/anthropic"
	"github.com/tjfontaine/llm-stream-gateway/internal/provider/openai"
	"github.com/tjfontaine/llm-stream-gateway/internal/proxy"
	"github.com/tjfontaine/llm-stream-gateway/internal/server"
)

var errAlreadyStarted = errors.New("gateway already started")

// Gateway is the main entry point for running the stream gateway.
// It can be embedded in larger applications through Handler or run
// standalone with Start.
type Gateway struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
	listener   net.Listener

	server *server.Server

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan error
}

// New creates a Gateway. Without WithConfig or WithConfigFile the
// configuration is loaded from config.yaml and the environment.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.cfg == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		gw.cfg = cfg
	}
	if err := gw.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if gw.httpClient == nil {
		gw.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	if err := gw.build(); err != nil {
		return nil, err
	}
	return gw, nil
}

func (g *Gateway) build() error {
	cfg := g.cfg

	registry, err := provider.NewRegistry(
		anthropic.New(cfg.Providers.Anthropic.APIKey,
			anthropic.WithBaseURL(cfg.Providers.Anthropic.BaseURL),
			anthropic.WithVersion(cfg.Providers.Anthropic.Version)),
		openai.New(cfg.Providers.OpenAI.APIKey,
			openai.WithBaseURL(cfg.Providers.OpenAI.BaseURL)),
	)
	if err != nil {
		return fmt.Errorf("init providers: %w", err)
	}
	for _, p := range []struct {
		name string
		key  string
	}{
		{"Anthropic", cfg.Providers.Anthropic.APIKey},
		{"OpenAI", cfg.Providers.OpenAI.APIKey},
	} {
		if p.key == "" {
			g.logger.Warn("provider API key not set; requests routed to it will fail", slog.String("provider", p.name))
		}
	}

	client := provider.NewClient(
		provider.WithHTTPClient(g.httpClient),
		provider.WithLogger(g.logger),
		provider.WithUserAgent(cfg.Gateway.UserAgent),
	)
	dispatcher := gateway.NewHandler(registry, client,
		gateway.WithLogger(g.logger),
		gateway.WithDefaultModel(cfg.Gateway.DefaultModel),
	)
	forwarder := proxy.New(cfg.Proxy.GatewayURL, cfg.Proxy.UpstreamURL,
		proxy.WithHTTPClient(g.httpClient),
		proxy.WithLogger(g.logger),
		proxy.WithTimeout(cfg.Proxy.Timeout),
		proxy.WithIdentityEncoding(cfg.Proxy.ForceIdentityEncoding),
	)

	g.server = server.New(cfg.Server.Port, g.logger,
		server.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
		server.WithOperationName(cfg.Telemetry.ServiceName),
	)
	g.server.Router.Method(http.MethodPost, cfg.Gateway.Path, dispatcher)
	g.server.Router.Method(http.MethodPost, cfg.Proxy.Path, forwarder)

	g.logger.Info("registered handler", slog.String("method", http.MethodPost), slog.String("path", cfg.Gateway.Path))
	g.logger.Info("registered handler", slog.String("method", http.MethodPost), slog.String("path", cfg.Proxy.Path),
		slog.String("gateway_url", cfg.Proxy.GatewayURL),
		slog.String("upstream_url", cfg.Proxy.UpstreamURL))
	return nil
}

// Handler returns the fully wired router, including middleware.
func (g *Gateway) Handler() http.Handler {
	return g.server.Router
}

// Config returns the effective configuration.
func (g *Gateway) Config() *config.Config {
	return g.cfg
}

// Start begins serving in the background. It returns once the listener is
// bound; serve errors after that are logged and reported by Wait. A Gateway
// can be started once.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return errAlreadyStarted
	}

	ln := g.listener
	if ln == nil {
		var err error
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", g.cfg.Server.Port))
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		g.listener = ln
	}

	g.started = true
	g.done = make(chan error, 1)

	go func() {
		err := g.server.Serve(ln)
		if err != nil {
			g.logger.Error("server error", slog.String("error", err.Error()))
		}
		g.done <- err
		close(g.done)
	}()

	g.logger.Info("gateway started",
		slog.String("addr", ln.Addr().String()),
		slog.String("gateway_path", g.cfg.Gateway.Path),
		slog.String("proxy_path", g.cfg.Proxy.Path))
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Wait blocks until the server stops and returns its terminal error.
func (g *Gateway) Wait() error {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()
	if done == nil {
		return nil
	}
	return <-done
}

// Shutdown gracefully stops the gateway.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started || g.stopped {
		return nil
	}

	g.logger.Info("shutting down gateway")

	if err := g.server.Shutdown(ctx); err != nil {
		g.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
		return err
	}
	g.stopped = true

	g.logger.Info("gateway shutdown complete")
	return nil
}
