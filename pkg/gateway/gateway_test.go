package gateway_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/tjfontaine/llm-stream-gateway/pkg/gateway"
)

func TestEmbeddedHandler(t *testing.T) {
	gw, err := gateway.New(
		gateway.WithConfigFile(filepath.Join(t.TempDir(), "config.yaml")),
		gateway.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
