package stream

import (
	"encoding/json"
	"log/slog"
)

type anthropicEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta struct {
		Type        string  `json:"type"`
		Text        *string `json:"text"`
		PartialJSON string  `json:"partial_json"`
	} `json:"delta"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
}

type anthropicHandler struct {
	calls  *Accumulator
	logger *slog.Logger
}

// NewAnthropic returns a normalizer for the Anthropic messages stream.
// content_block_delta text becomes "0" frames. tool_use blocks are accumulated from
// their input_json_delta fragments and emitted as "9" frames on message_stop.
// Any other event type is ignored.
func NewAnthropic(logger *slog.Logger) Normalizer {
	logger = defaultLogger(logger)
	return &sseNormalizer{
		handler: &anthropicHandler{calls: NewAccumulator(logger), logger: logger},
		logger:  logger,
	}
}

func (h *anthropicHandler) handleData(payload []byte, emit func(Frame)) {
	var event anthropicEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Debug("ignoring unparseable Anthropic event", slog.String("error", err.Error()))
		return
	}

	switch event.Type {
	case "content_block_start":
		if event.ContentBlock.Type == "tool_use" {
			h.calls.Start(event.Index, event.ContentBlock.ID, event.ContentBlock.Name, "")
		}
	case "content_block_delta":
		if event.Delta.Text != nil {
			if *event.Delta.Text != "" {
				emit(TextFrame(*event.Delta.Text))
			}
			return
		}
		if event.Delta.Type == "input_json_delta" {
			h.calls.Append(event.Index, event.Delta.PartialJSON)
		}
	case "message_stop":
		h.drain(emit)
	}
}

// handleDone is a no-op; Anthropic ends streams with message_stop.
func (h *anthropicHandler) handleDone(func(Frame)) {}

func (h *anthropicHandler) finish(emit func(Frame)) {
	h.drain(emit)
}

func (h *anthropicHandler) drain(emit func(Frame)) {
	for _, f := range h.calls.Drain() {
		emit(f)
	}
}
