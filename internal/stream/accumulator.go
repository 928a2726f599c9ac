package stream

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

var emptyArgs = json.RawMessage("{}")

type pendingCall struct {
	id        string
	name      string
	arguments strings.Builder
}

// Accumulator reassembles tool calls whose arguments arrive as fragments.
// Calls are keyed by the provider's per-call index. An Accumulator belongs to exactly one
// stream and is not safe for concurrent use.
type Accumulator struct {
	calls  map[int]*pendingCall
	order  []int
	logger *slog.Logger
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator(logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{
		calls:  make(map[int]*pendingCall),
		logger: logger,
	}
}

// Start opens (or replaces) the call at index with its first argument fragment.
// A replaced call keeps its original position in the finalize order.
func (a *Accumulator) Start(index int, id, name, arguments string) {
	call := &pendingCall{id: id, name: name}
	call.arguments.WriteString(arguments)

	if _, exists := a.calls[index]; !exists {
		a.order = append(a.order, index)
	}
	a.calls[index] = call

	a.logger.Debug("tool call init",
		slog.Int("index", index),
		slog.String("id", id),
		slog.String("name", name),
		slog.String("args_start", arguments))
}

// Append adds an argument fragment to the call at index.
// It reports false, and drops the fragment, when no call was started at that index.
func (a *Accumulator) Append(index int, fragment string) bool {
	call, ok := a.calls[index]
	if !ok {
		a.logger.Debug("dropping tool call fragment for unknown index", slog.Int("index", index))
		return false
	}
	call.arguments.WriteString(fragment)
	return true
}

// Len returns the number of open calls.
func (a *Accumulator) Len() int {
	return len(a.calls)
}

// Drain finalizes every open call in registration order and empties the accumulator.
// Arguments that are not valid JSON are replaced by an empty object.
func (a *Accumulator) Drain() []Frame {
	if len(a.order) == 0 {
		return nil
	}

	frames := make([]Frame, 0, len(a.order))
	for _, index := range a.order {
		call := a.calls[index]
		frames = append(frames, ToolCallFrame(call.id, call.name, a.parseArguments(call)))
	}

	a.calls = make(map[int]*pendingCall)
	a.order = a.order[:0]
	return frames
}

func (a *Accumulator) parseArguments(call *pendingCall) json.RawMessage {
	raw := call.arguments.String()
	if strings.TrimSpace(raw) == "" {
		return emptyArgs
	}

	var compacted bytes.Buffer
	if err := json.Compact(&compacted, []byte(raw)); err != nil {
		a.logger.Warn("malformed tool call arguments, substituting empty object",
			slog.String("id", call.id),
			slog.String("name", call.name),
			slog.String("arguments", raw),
			slog.String("error", err.Error()))
		return emptyArgs
	}

	a.logger.Info("sending tool call",
		slog.String("id", call.id),
		slog.String("name", call.name),
		slog.String("args", raw))
	return compacted.Bytes()
}
