package codec

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantType       string
		wantUpstream   float64
		wantMessageSet bool
	}{
		{
			name:           "invalid request",
			err:            domain.ErrInvalidRequest("messages is required"),
			wantStatus:     http.StatusBadRequest,
			wantType:       "invalid_request",
			wantMessageSet: true,
		},
		{
			name:           "upstream error carries status",
			err:            domain.ErrUpstreamError("OpenAI", http.StatusUnauthorized),
			wantStatus:     http.StatusBadGateway,
			wantType:       "upstream_error",
			wantUpstream:   401,
			wantMessageSet: true,
		},
		{
			name:           "configuration",
			err:            domain.ErrConfiguration("Anthropic API key not set"),
			wantStatus:     http.StatusInternalServerError,
			wantType:       "configuration",
			wantMessageSet: true,
		},
		{
			name:           "plain error becomes server error",
			err:            errors.New("boom"),
			wantStatus:     http.StatusInternalServerError,
			wantType:       "server",
			wantMessageSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := FormatError(tt.err)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body struct {
				Error map[string]any `json:"error"`
			}
			if err := json.Unmarshal(resp.Body, &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if body.Error["type"] != tt.wantType {
				t.Errorf("type = %v, want %s", body.Error["type"], tt.wantType)
			}
			if msg, _ := body.Error["message"].(string); (msg != "") != tt.wantMessageSet {
				t.Errorf("message = %q", msg)
			}
			if tt.wantUpstream != 0 {
				if body.Error["upstream_status"] != tt.wantUpstream {
					t.Errorf("upstream_status = %v, want %v", body.Error["upstream_status"], tt.wantUpstream)
				}
			} else if _, ok := body.Error["upstream_status"]; ok {
				t.Error("upstream_status must be omitted when unset")
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, domain.ErrInvalidRequest("bad JSON"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}
