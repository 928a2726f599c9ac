package stream

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestAccumulator_EmptyArgumentsAreNotMalformed(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	acc := NewAccumulator(logger)
	acc.Start(0, "toolu_1", "executeSQL", "")

	frames := acc.Drain()
	if len(frames) != 1 {
		t.Fatalf("Drain() returned %d frames, want 1", len(frames))
	}
	want := `9:{"toolCallId":"toolu_1","toolName":"executeSQL","args":{}}` + "\n"
	if got := frames[0].String(); got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
	if strings.Contains(logs.String(), "malformed") {
		t.Errorf("empty arguments logged as malformed: %s", logs.String())
	}
}

func TestAccumulator_MalformedArgumentsWarn(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	acc := NewAccumulator(logger)
	acc.Start(0, "call_1", "executeSQL", `{"sql":`)

	frames := acc.Drain()
	if len(frames) != 1 || !strings.HasSuffix(frames[0].String(), `"args":{}}`+"\n") {
		t.Fatalf("frames = %v", frames)
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
}

func TestAccumulator_AppendUnknownIndex(t *testing.T) {
	acc := NewAccumulator(discardLogger)
	if acc.Append(2, "{}") {
		t.Error("Append() to an unopened index reported true")
	}
	if acc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", acc.Len())
	}
}
