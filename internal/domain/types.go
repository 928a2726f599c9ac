package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultModel is used when a request does not name a model.
const DefaultModel = "claude-3-5-sonnet-20241022"

// DefaultTemperature is used when a request does not carry a temperature.
const DefaultTemperature = 0.2

// MaxSteps bounds the maxSteps field so derived token budgets stay in range.
const MaxSteps = 10000

// Message represents a chat message. Order within a request is conversation order.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider-agnostic request accepted by the gateway.
// It is not mutated after DecodeChatRequest returns.
type ChatRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	// MaxSteps is an advisory cap used to derive an upstream token budget. Nil when absent.
	MaxSteps *int
}

type chatRequestWire struct {
	Messages    *[]messageWire `json:"messages"`
	Model       *string        `json:"model"`
	Temperature *float64       `json:"temperature"`
	MaxSteps    *int           `json:"maxSteps"`
}

type messageWire struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

// DecodeChatRequest parses a raw request body. Unknown fields are ignored so clients may
// send extra metadata (such as an "id"). Any other deviation yields an invalid_request error.
// An empty defaultModel falls back to DefaultModel.
func DecodeChatRequest(body []byte, defaultModel string) (*ChatRequest, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrInvalidRequest("request body is required")
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	var wire chatRequestWire
	if err := decoder.Decode(&wire); err != nil {
		return nil, ErrInvalidRequest(fmt.Sprintf("Invalid JSON: %v", err)).WithCause(err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrInvalidRequest("request body must contain a single JSON object")
	}

	if wire.Messages == nil {
		return nil, ErrInvalidRequest("Invalid JSON: missing field `messages`")
	}

	req := &ChatRequest{
		Messages:    make([]Message, 0, len(*wire.Messages)),
		Model:       defaultModel,
		Temperature: DefaultTemperature,
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}

	for i, m := range *wire.Messages {
		if m.Role == nil {
			return nil, ErrInvalidRequest(fmt.Sprintf("Invalid JSON: messages[%d] is missing field `role`", i))
		}
		if m.Content == nil {
			return nil, ErrInvalidRequest(fmt.Sprintf("Invalid JSON: messages[%d] is missing field `content`", i))
		}
		req.Messages = append(req.Messages, Message{Role: *m.Role, Content: *m.Content})
	}

	if wire.Model != nil && strings.TrimSpace(*wire.Model) != "" {
		req.Model = *wire.Model
	}
	if wire.Temperature != nil {
		req.Temperature = *wire.Temperature
	}
	if wire.MaxSteps != nil {
		if *wire.MaxSteps < 0 {
			return nil, ErrInvalidRequest("Invalid JSON: maxSteps must not be negative")
		}
		if *wire.MaxSteps > MaxSteps {
			return nil, ErrInvalidRequest(fmt.Sprintf("Invalid JSON: maxSteps must not exceed %d", MaxSteps))
		}
		steps := *wire.MaxSteps
		req.MaxSteps = &steps
	}

	return req, nil
}
