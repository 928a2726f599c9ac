package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tjfontaine/llm-stream-gateway/internal/domain"
)

// ChunkSize is the read buffer used for upstream bodies.
const ChunkSize = 4096

// Chunk is one read from an upstream body. Err is set on the final chunk of a failed read.
type Chunk struct {
	Data []byte
	Err  error
}

// ReadChunks reads body on its own goroutine and delivers each buffer on the returned
// channel. The channel is closed after io.EOF, after a read error (delivered as the last
// Chunk), or when ctx is done. Callers must close body to unblock a pending Read.
func ReadChunks(ctx context.Context, body io.Reader, size int) <-chan Chunk {
	if size <= 0 {
		size = ChunkSize
	}
	out := make(chan Chunk)

	go func() {
		defer close(out)
		buf := make([]byte, size)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case out <- Chunk{Data: data}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				select {
				case out <- Chunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	return out
}

// Stats summarizes a relayed stream.
type Stats struct {
	Chunks     int
	TextFrames int
	ToolCalls  int
}

// Relay pipes body through n and writes the resulting frames to w in parse order.
// flush, if non-nil, is called after every chunk that produced output.
//
// A read failure while ctx is still live is reported inside the stream with ErrorFrame and
// returned as a stream_transport error; the caller must not change the response status.
// If ctx is done (the client went away) Relay returns ctx.Err() without writing anything.
func Relay(ctx context.Context, body io.Reader, n Normalizer, w io.Writer, flush func()) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stats Stats
	write := func(frames []Frame) error {
		for _, f := range frames {
			if _, err := w.Write(f.Bytes()); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			switch f.Tag {
			case TagText:
				stats.TextFrames++
			case TagToolCall:
				stats.ToolCalls++
			}
		}
		if len(frames) > 0 && flush != nil {
			flush()
		}
		return nil
	}

	for chunk := range ReadChunks(ctx, body, ChunkSize) {
		if chunk.Err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			if _, err := w.Write(ErrorFrame(chunk.Err)); err != nil {
				return stats, fmt.Errorf("write error frame: %w", err)
			}
			if flush != nil {
				flush()
			}
			return stats, domain.ErrStreamTransport(chunk.Err)
		}

		stats.Chunks++
		if err := write(n.Feed(chunk.Data)); err != nil {
			return stats, err
		}
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, write(n.Finish())
}
