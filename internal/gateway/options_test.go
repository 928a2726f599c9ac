package gateway_test

import (
	"encoding/json"
	"net/http"
	"slices"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tjfontaine/llm-stream-gateway/internal/gateway"
	"github.com/tjfontaine/llm-stream-gateway/internal/tokens"
)

func recordingTracer(t *testing.T) (*tracetest.SpanRecorder, gateway.Option) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return sr, gateway.WithTracer(tp.Tracer("gateway-test"))
}

func dispatchAttrs(t *testing.T, sr *tracetest.SpanRecorder) map[attribute.Key]attribute.Value {
	t.Helper()
	spans := sr.Ended()
	if len(spans) != 1 || spans[0].Name() != "gateway.dispatch" {
		t.Fatalf("ended spans = %d, want one gateway.dispatch", len(spans))
	}
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestDispatch_SpanAttributes(t *testing.T) {
	oai := newUpstream(t, sse(openAIToolCall))
	sr, withTracer := recordingTracer(t)
	h := newHandler(t, oai.server.URL, oai.server.URL, withTracer, gateway.WithTokenCounter(tokens.NewCounter()))

	rec := post(h, `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	attrs := dispatchAttrs(t, sr)
	if got := attrs["gateway.provider"].AsString(); got != "openai" {
		t.Errorf("gateway.provider = %q", got)
	}
	if got := attrs["gateway.tools"].AsStringSlice(); !slices.Equal(got, []string{"executeSQL", "addTransformation"}) {
		t.Errorf("gateway.tools = %v", got)
	}
	if _, ok := attrs["gateway.prompt_tokens"]; !ok {
		t.Error("gateway.prompt_tokens missing with a token counter")
	}
	if got := attrs["gateway.tool_calls"].AsInt64(); got != 1 {
		t.Errorf("gateway.tool_calls = %d, want 1", got)
	}
}

func TestDispatch_WithoutToolsOrCounter(t *testing.T) {
	oai := newUpstream(t, sse("data: [DONE]\n\n"))
	sr, withTracer := recordingTracer(t)
	h := newHandler(t, oai.server.URL, oai.server.URL,
		withTracer,
		gateway.WithTools(nil),
		gateway.WithTokenCounter(nil),
	)

	rec := post(h, `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	_, raw := oai.request()
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("upstream body is not JSON: %v", err)
	}
	if _, ok := body["tools"]; ok {
		t.Errorf("upstream body has tools with an empty catalog: %s", raw)
	}

	attrs := dispatchAttrs(t, sr)
	if _, ok := attrs["gateway.prompt_tokens"]; ok {
		t.Error("gateway.prompt_tokens set without a token counter")
	}
	if got := attrs["gateway.tools"].AsStringSlice(); len(got) != 0 {
		t.Errorf("gateway.tools = %v, want empty", got)
	}
}
