// Package stream converts provider SSE byte streams into the gateway's unified,
// line-oriented frame protocol.
//
// Each frame is written as "<tag>:<json>\n". Tag "0" carries a text delta as a JSON
// string; tag "9" carries a finalized tool call. Clients concatenate "0" frames in
// arrival order and treat every "9" frame as an independent invocation.
package stream

import (
	"bytes"
	"encoding/json"
)

// Tag identifies the kind of a unified frame.
type Tag string

const (
	TagText     Tag = "0"
	TagToolCall Tag = "9"
)

// Frame is one unit of the unified protocol.
type Frame struct {
	Tag     Tag
	Payload json.RawMessage
}

// Bytes returns the wire form of the frame, including the trailing newline.
func (f Frame) Bytes() []byte {
	out := make([]byte, 0, len(f.Tag)+len(f.Payload)+2)
	out = append(out, f.Tag...)
	out = append(out, ':')
	out = append(out, f.Payload...)
	return append(out, '\n')
}

// String returns the wire form of the frame.
func (f Frame) String() string {
	return string(f.Bytes())
}

// ToolCall is the payload of a "9" frame.
type ToolCall struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
}

// TextFrame builds a "0" frame for a text delta.
func TextFrame(text string) Frame {
	return Frame{Tag: TagText, Payload: marshal(text)}
}

// ToolCallFrame builds a "9" frame. args must already be valid JSON.
func ToolCallFrame(id, name string, args json.RawMessage) Frame {
	return Frame{Tag: TagToolCall, Payload: marshal(ToolCall{ToolCallID: id, ToolName: name, Args: args})}
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ErrorFrame returns the inline, best-effort error event written into a stream whose
// headers are already committed.
func ErrorFrame(err error) []byte {
	payload := marshal(errorFrame{Type: "error", Error: "Stream error: " + err.Error()})
	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	return append(out, '\n', '\n')
}

// marshal encodes v without HTML escaping so SQL such as "a < b" survives verbatim.
// Encoding a string or one of the structs above cannot fail.
func marshal(v any) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return json.RawMessage("null")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
