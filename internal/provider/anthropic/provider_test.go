package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
	"github.com/tjfontaine/llm-stream-gateway/internal/tools"
)

func decodeBody(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	return body
}

func steps(n int) *int { return &n }

func TestBuildRequestBody(t *testing.T) {
	p := New("key")

	tests := []struct {
		name          string
		maxSteps      *int
		specs         []tools.ToolSpec
		wantMaxTokens float64
		wantTools     bool
	}{
		{name: "defaults without tools", wantMaxTokens: 4096},
		{name: "maxSteps ignored without tools", maxSteps: steps(3), wantMaxTokens: 4096},
		{name: "tools without maxSteps", specs: tools.Builtin(), wantMaxTokens: 4096, wantTools: true},
		{name: "tools with maxSteps", maxSteps: steps(5), specs: tools.Builtin(), wantMaxTokens: 5000, wantTools: true},
		{name: "zero maxSteps keeps default", maxSteps: steps(0), specs: tools.Builtin(), wantMaxTokens: 4096, wantTools: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &domain.ChatRequest{
				Model:       "claude-3-5-sonnet-20241022",
				Messages:    []domain.Message{{Role: "user", Content: "hello"}, {Role: "assistant", Content: "hi"}},
				Temperature: 0.7,
				MaxSteps:    tt.maxSteps,
			}

			data, err := p.BuildRequestBody(req, tt.specs)
			if err != nil {
				t.Fatalf("BuildRequestBody() error = %v", err)
			}
			body := decodeBody(t, data)

			if body["model"] != "claude-3-5-sonnet-20241022" {
				t.Errorf("model = %v", body["model"])
			}
			if body["stream"] != true {
				t.Errorf("stream = %v, want true", body["stream"])
			}
			if body["max_tokens"] != tt.wantMaxTokens {
				t.Errorf("max_tokens = %v, want %v", body["max_tokens"], tt.wantMaxTokens)
			}
			if _, ok := body["temperature"]; ok {
				t.Error("temperature must not be sent to Anthropic")
			}

			messages, _ := body["messages"].([]any)
			if len(messages) != 2 {
				t.Fatalf("messages = %v", body["messages"])
			}
			first, _ := messages[0].(map[string]any)
			if len(first) != 2 || first["role"] != "user" || first["content"] != "hello" {
				t.Errorf("messages[0] = %v, want role+content only", first)
			}

			toolList, hasTools := body["tools"].([]any)
			if hasTools != tt.wantTools {
				t.Fatalf("tools present = %v, want %v", hasTools, tt.wantTools)
			}
			if hasTools {
				firstTool, _ := toolList[0].(map[string]any)
				if firstTool["name"] != "executeSQL" || firstTool["input_schema"] == nil {
					t.Errorf("tools[0] = %v", firstTool)
				}
			}
		})
	}
}

func TestEndpointAndAuth(t *testing.T) {
	p := New("sk-ant", WithBaseURL("https://proxy.example.com/v1/"), WithVersion("2024-10-22"))

	if got := p.Endpoint(); got != "https://proxy.example.com/v1/messages" {
		t.Errorf("Endpoint() = %q", got)
	}

	h := p.AuthHeaders(p.APIKey())
	if got := h.Get("Authorization"); got != "Bearer sk-ant" {
		t.Errorf("Authorization = %q", got)
	}
	if got := h.Get("Anthropic-Version"); got != "2024-10-22" {
		t.Errorf("anthropic-version = %q", got)
	}
}

func TestDefaults(t *testing.T) {
	p := New("k")
	if p.Endpoint() != DefaultBaseURL+"/messages" {
		t.Errorf("Endpoint() = %q", p.Endpoint())
	}
	if got := p.AuthHeaders("k").Get("anthropic-version"); got != DefaultVersion {
		t.Errorf("anthropic-version = %q, want %q", got, DefaultVersion)
	}
}
