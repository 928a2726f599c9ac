package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
)

// failingReader returns its data and then err.
type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestRelay_WritesFramesAndFlushes(t *testing.T) {
	var out bytes.Buffer
	flushes := 0

	stats, err := Relay(context.Background(), strings.NewReader(anthropicHelloWorld), NewAnthropic(discardLogger), &out, func() { flushes++ })
	if err != nil {
		t.Fatalf("Relay() error = %v", err)
	}

	if got := out.String(); got != "0:\"Hello\"\n0:\" world\"\n" {
		t.Errorf("output = %q", got)
	}
	if stats.TextFrames != 2 || stats.ToolCalls != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if flushes == 0 {
		t.Error("expected at least one flush")
	}
}

func TestRelay_TransportErrorBecomesInlineFrame(t *testing.T) {
	body := &failingReader{
		data: []byte(`data: {"choices":[{"delta":{"content":"partial"}}]}` + "\n\n" +
			`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"executeSQL","arguments":"{}"}}]}}]}` + "\n\n"),
		err: errors.New("connection reset by peer"),
	}

	var out bytes.Buffer
	stats, err := Relay(context.Background(), body, NewOpenAI(discardLogger), &out, nil)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeStreamTransport {
		t.Fatalf("Relay() error = %v, want stream_transport", err)
	}

	want := "0:\"partial\"\n" +
		`data: {"type":"error","error":"Stream error: connection reset by peer"}` + "\n\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if stats.ToolCalls != 0 {
		t.Errorf("open tool calls must not be finalized after a transport error, got %d", stats.ToolCalls)
	}
}

func TestRelay_ClientGoneWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := Relay(ctx, &failingReader{err: errors.New("context canceled")}, NewOpenAI(discardLogger), &out, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Relay() error = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestRelay_WriteFailureStops(t *testing.T) {
	_, err := Relay(context.Background(), strings.NewReader(anthropicHelloWorld), NewAnthropic(discardLogger), failingWriter{}, nil)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Relay() error = %v, want io.ErrClosedPipe", err)
	}
}

func TestReadChunks_CopiesBuffers(t *testing.T) {
	payload := strings.Repeat("a", ChunkSize) + strings.Repeat("b", 10)

	var got []byte
	for chunk := range ReadChunks(context.Background(), strings.NewReader(payload), ChunkSize) {
		if chunk.Err != nil {
			t.Fatalf("unexpected error: %v", chunk.Err)
		}
		got = append(got, chunk.Data...)
	}
	if string(got) != payload {
		t.Errorf("reassembled %d bytes, want %d", len(got), len(payload))
	}
}

func TestFrame_Bytes(t *testing.T) {
	if got := TextFrame(`say "hi"`).String(); got != `0:"say \"hi\""`+"\n" {
		t.Errorf("TextFrame = %q", got)
	}
	if got := ToolCallFrame("id", "name", []byte(`{"a":1}`)).String(); got != `9:{"toolCallId":"id","toolName":"name","args":{"a":1}}`+"\n" {
		t.Errorf("ToolCallFrame = %q", got)
	}
}
