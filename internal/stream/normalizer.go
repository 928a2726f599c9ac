package stream

import (
	"log/slog"
)

// Normalizer consumes the raw byte chunks of one upstream SSE stream and produces
// unified frames. Chunks may split or merge event boundaries arbitrarily.
// A Normalizer holds per-stream state and must not be shared between streams.
type Normalizer interface {
	// Feed processes one raw chunk and returns the frames it completed, in order.
	Feed(chunk []byte) []Frame
	// Finish is called once when the upstream body ends cleanly.
	Finish() []Frame
}

// lineHandler interprets a single SSE data payload.
type lineHandler interface {
	handleData(payload []byte, emit func(Frame))
	handleDone(emit func(Frame))
	finish(emit func(Frame))
}

// sseNormalizer adapts a lineHandler to the chunk-oriented Normalizer contract.
type sseNormalizer struct {
	lines   lineSplitter
	handler lineHandler
	logger  *slog.Logger
}

func (n *sseNormalizer) Feed(chunk []byte) []Frame {
	n.logger.Debug("upstream raw chunk", slog.Int("bytes", len(chunk)), slog.String("chunk", string(chunk)))

	var frames []Frame
	emit := func(f Frame) { frames = append(frames, f) }
	n.lines.push(chunk, func(line []byte) { n.dispatch(line, emit) })
	return frames
}

func (n *sseNormalizer) Finish() []Frame {
	var frames []Frame
	emit := func(f Frame) { frames = append(frames, f) }
	n.lines.flush(func(line []byte) { n.dispatch(line, emit) })
	n.handler.finish(emit)
	return frames
}

func (n *sseNormalizer) dispatch(line []byte, emit func(Frame)) {
	payload, ok := dataPayload(line)
	if !ok {
		return
	}
	if isDone(payload) {
		n.handler.handleDone(emit)
		return
	}
	n.handler.handleData(payload, emit)
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
