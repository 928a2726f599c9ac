package stream

import "bytes"

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// lineSplitter turns arbitrarily split chunks into complete lines.
// A line cut by a chunk boundary is held until the rest of it arrives.
type lineSplitter struct {
	partial []byte
}

// push splits chunk into lines and calls fn for every complete one.
func (s *lineSplitter) push(chunk []byte, fn func(line []byte)) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			s.partial = append(s.partial, chunk...)
			return
		}

		line := chunk[:i]
		if len(s.partial) > 0 {
			line = append(s.partial, line...)
			s.partial = s.partial[:0]
		}
		fn(bytes.TrimSuffix(line, []byte("\r")))
		chunk = chunk[i+1:]
	}
}

// flush emits a trailing line that never received its newline.
func (s *lineSplitter) flush(fn func(line []byte)) {
	if len(s.partial) == 0 {
		return
	}
	line := bytes.TrimSuffix(s.partial, []byte("\r"))
	s.partial = nil
	fn(line)
}

// dataPayload extracts the payload of an SSE data line.
// ok is false for any other line (event names, comments, blanks).
func dataPayload(line []byte) (payload []byte, ok bool) {
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return nil, false
	}
	payload = line[len(dataPrefix):]
	// The SSE format allows a single optional space after the colon.
	payload = bytes.TrimPrefix(payload, []byte(" "))
	return payload, true
}

func isDone(payload []byte) bool {
	return string(bytes.TrimSpace(payload)) == doneSentinel
}
