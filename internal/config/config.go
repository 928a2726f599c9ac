// Package config loads gateway configuration from an optional YAML file and
// GATEWAY_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
)

// DefaultPath is the config file read when no explicit path is given.
const DefaultPath = "config.yaml"

const envPrefix = "GATEWAY_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Providers ProvidersConfig `koanf:"providers"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Proxy     ProxyConfig     `koanf:"proxy"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

type ProvidersConfig struct {
	Anthropic AnthropicConfig `koanf:"anthropic"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
}

type AnthropicConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Version string `koanf:"version"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type GatewayConfig struct {
	DefaultModel string `koanf:"default_model"`
	Path         string `koanf:"path"`
	UserAgent    string `koanf:"user_agent"`
}

// ProxyConfig configures the forwarding proxy. Empty URLs are derived from
// the server port and the OpenAI base URL.
type ProxyConfig struct {
	Path                  string        `koanf:"path"`
	GatewayURL            string        `koanf:"gateway_url"`
	UpstreamURL           string        `koanf:"upstream_url"`
	Timeout               time.Duration `koanf:"timeout"`
	ForceIdentityEncoding bool          `koanf:"force_identity_encoding"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"server.port":                   3010,
	"server.read_header_timeout":    "10s",
	"providers.anthropic.api_key":   "${ANTHROPIC_API_KEY}",
	"providers.anthropic.base_url":  "https://api.anthropic.com/v1",
	"providers.anthropic.version":   "2023-06-01",
	"providers.openai.api_key":      "${OPENAI_API_KEY}",
	"providers.openai.base_url":     "https://api.openai.com/v1",
	"gateway.default_model":         domain.DefaultModel,
	"gateway.path":                  "/sdk-chat",
	"gateway.user_agent":            "llm-stream-gateway/1.0",
	"proxy.path":                    "/v1/chat/completions",
	"proxy.timeout":                 "90s",
	"proxy.force_identity_encoding": false,
	"telemetry.enabled":             false,
	"telemetry.service_name":        "llm-stream-gateway",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from path (DefaultPath when empty), then the
// environment, then defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = DefaultPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Environment variables override the file. GATEWAY_PROXY__GATEWAY_URL -> proxy.gateway_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Providers.Anthropic.APIKey = substituteEnvVars(cfg.Providers.Anthropic.APIKey)
	cfg.Providers.OpenAI.APIKey = substituteEnvVars(cfg.Providers.OpenAI.APIKey)
	cfg.applyDerived()

	return &cfg, nil
}

func (c *Config) applyDerived() {
	if strings.TrimSpace(c.Gateway.DefaultModel) == "" {
		c.Gateway.DefaultModel = domain.DefaultModel
	}
	if c.Proxy.GatewayURL == "" {
		c.Proxy.GatewayURL = fmt.Sprintf("http://127.0.0.1:%d%s", c.Server.Port, c.Gateway.Path)
	}
	if c.Proxy.UpstreamURL == "" {
		c.Proxy.UpstreamURL = strings.TrimSuffix(c.Providers.OpenAI.BaseURL, "/") + "/chat/completions"
	}
}

// SetPort overrides the listen port and re-derives the local gateway URL
// when it was not set explicitly.
func (c *Config) SetPort(port int) {
	derived := fmt.Sprintf("http://127.0.0.1:%d%s", c.Server.Port, c.Gateway.Path)
	c.Server.Port = port
	if c.Proxy.GatewayURL == derived {
		c.Proxy.GatewayURL = ""
	}
	c.applyDerived()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Proxy.Timeout <= 0 {
		return fmt.Errorf("proxy.timeout must be positive, got %s", c.Proxy.Timeout)
	}
	for _, p := range []struct{ name, path string }{
		{"gateway.path", c.Gateway.Path},
		{"proxy.path", c.Proxy.Path},
	} {
		if !strings.HasPrefix(p.path, "/") {
			return fmt.Errorf("%s must start with /, got %q", p.name, p.path)
		}
	}
	if c.Gateway.Path == c.Proxy.Path {
		return fmt.Errorf("gateway.path and proxy.path must differ, both are %q", c.Gateway.Path)
	}
	for _, u := range []struct{ name, value string }{
		{"providers.anthropic.base_url", c.Providers.Anthropic.BaseURL},
		{"providers.openai.base_url", c.Providers.OpenAI.BaseURL},
		{"proxy.gateway_url", c.Proxy.GatewayURL},
		{"proxy.upstream_url", c.Proxy.UpstreamURL},
	} {
		if err := validateURL(u.value); err != nil {
			return fmt.Errorf("invalid %s: %w", u.name, err)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
