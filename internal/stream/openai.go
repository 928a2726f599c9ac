package stream

import (
	"encoding/json"
	"log/slog"
)

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content   *string               `json:"content"`
			ToolCalls []openAIToolCallDelta `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

type openAIToolCallDelta struct {
	Index    int     `json:"index"`
	ID       *string `json:"id"`
	Function *struct {
		Name      *string `json:"name"`
		Arguments *string `json:"arguments"`
	} `json:"function"`
}

type openAIHandler struct {
	calls  *Accumulator
	logger *slog.Logger
}

// NewOpenAI returns a normalizer for the OpenAI chat-completions stream.
// Text deltas become "0" frames. Tool-call fragments are accumulated per index and
// emitted as "9" frames when the [DONE] sentinel arrives.
func NewOpenAI(logger *slog.Logger) Normalizer {
	logger = defaultLogger(logger)
	return &sseNormalizer{
		handler: &openAIHandler{calls: NewAccumulator(logger), logger: logger},
		logger:  logger,
	}
}

func (h *openAIHandler) handleData(payload []byte, emit func(Frame)) {
	var chunk openAIChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		h.logger.Debug("ignoring unparseable OpenAI event", slog.String("error", err.Error()))
		return
	}
	if len(chunk.Choices) == 0 {
		return
	}

	delta := chunk.Choices[0].Delta
	if delta.Content != nil && *delta.Content != "" {
		emit(TextFrame(*delta.Content))
	}

	for _, tc := range delta.ToolCalls {
		switch {
		case tc.ID != nil && tc.Function != nil && tc.Function.Name != nil:
			var args string
			if tc.Function.Arguments != nil {
				args = *tc.Function.Arguments
			}
			h.calls.Start(tc.Index, *tc.ID, *tc.Function.Name, args)
		case tc.ID == nil && tc.Function != nil && tc.Function.Arguments != nil:
			h.calls.Append(tc.Index, *tc.Function.Arguments)
		}
	}
}

func (h *openAIHandler) handleDone(emit func(Frame)) {
	for _, f := range h.calls.Drain() {
		emit(f)
	}
}

// finish drains calls from a stream that ended without the [DONE] sentinel.
func (h *openAIHandler) finish(emit func(Frame)) {
	if h.calls.Len() > 0 {
		h.logger.Warn("OpenAI stream ended without [DONE], finalizing open tool calls",
			slog.Int("tool_calls", h.calls.Len()))
	}
	h.handleDone(emit)
}
