package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestDecodeChatRequest_Defaults(t *testing.T) {
	req, err := DecodeChatRequest([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), "")
	if err != nil {
		t.Fatalf("DecodeChatRequest() error = %v", err)
	}

	if req.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", req.Model, DefaultModel)
	}
	if req.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", req.Temperature, DefaultTemperature)
	}
	if req.MaxSteps != nil {
		t.Errorf("MaxSteps = %v, want nil", *req.MaxSteps)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "hi" {
		t.Errorf("Messages = %+v", req.Messages)
	}
}

func TestDecodeChatRequest_ExplicitFields(t *testing.T) {
	body := `{
		"id": "chat-1",
		"model": "gpt-4o",
		"temperature": 0,
		"maxSteps": 5,
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hello"}
		]
	}`

	req, err := DecodeChatRequest([]byte(body), "claude-3-haiku")
	if err != nil {
		t.Fatalf("DecodeChatRequest() error = %v", err)
	}

	if req.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", req.Model)
	}
	if req.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", req.Temperature)
	}
	if req.MaxSteps == nil || *req.MaxSteps != 5 {
		t.Errorf("MaxSteps = %v, want 5", req.MaxSteps)
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Content != "hello" {
		t.Errorf("message order not preserved: %+v", req.Messages)
	}
}

func TestDecodeChatRequest_ConfiguredDefaultModel(t *testing.T) {
	req, err := DecodeChatRequest([]byte(`{"messages":[],"model":"  "}`), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("DecodeChatRequest() error = %v", err)
	}
	if req.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", req.Model)
	}
}

func TestDecodeChatRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "not json", body: "hello"},
		{name: "missing messages", body: `{"model":"gpt-4o"}`},
		{name: "messages wrong type", body: `{"messages":"hi"}`},
		{name: "missing role", body: `{"messages":[{"content":"hi"}]}`},
		{name: "missing content", body: `{"messages":[{"role":"user"}]}`},
		{name: "content wrong type", body: `{"messages":[{"role":"user","content":42}]}`},
		{name: "temperature wrong type", body: `{"messages":[],"temperature":"hot"}`},
		{name: "negative maxSteps", body: `{"messages":[],"maxSteps":-1}`},
		{name: "maxSteps above limit", body: `{"messages":[],"maxSteps":10001}`},
		{name: "maxSteps overflowing token budget", body: `{"messages":[],"maxSteps":9223372036854776}`},
		{name: "trailing data", body: `{"messages":[]} {"messages":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeChatRequest([]byte(tt.body), "")
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Type != ErrorTypeInvalidRequest {
				t.Errorf("Type = %q, want %q", apiErr.Type, ErrorTypeInvalidRequest)
			}
			if apiErr.HTTPStatusCode() != http.StatusBadRequest {
				t.Errorf("HTTPStatusCode() = %d, want 400", apiErr.HTTPStatusCode())
			}
		})
	}
}
