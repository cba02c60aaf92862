package stream

import (
	"bytes"
	"fmt"
	"io"

	"github.com/skylightai/skylight/core"
)

// Decoder reconstructs the event sequence from a framed transport stream.
// Partial frames arriving split across transport boundaries are buffered
// until a complete frame is parsable. Not safe for concurrent use.
type Decoder struct {
	r   io.Reader
	buf []byte
	err error
}

// NewDecoder constructs a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next decoded event. It returns io.EOF when the stream
// ends cleanly on a frame boundary and io.ErrUnexpectedEOF when it ends mid
// frame. A *ProtocolError is returned for malformed or unknown frames; the
// decoder stays usable and skips to the following frame.
func (d *Decoder) Next() (core.Event, error) {
	for {
		if frame, ok := d.takeFrame(); ok {
			return parseFrame(frame)
		}
		if d.err != nil {
			if len(bytes.TrimSpace(d.buf)) == 0 {
				return nil, io.EOF
			}
			if d.err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, d.err
		}
		d.fill()
	}
}

// takeFrame extracts one complete frame from the buffer, if present.
func (d *Decoder) takeFrame() ([]byte, bool) {
	// Skip leading separators left over from previous frames.
	d.buf = bytes.TrimLeft(d.buf, "\n")
	idx := bytes.Index(d.buf, []byte("\n\n"))
	if idx < 0 {
		return nil, false
	}
	frame := d.buf[:idx]
	d.buf = d.buf[idx+2:]
	return frame, true
}

// fill reads more bytes from the underlying reader into the buffer.
func (d *Decoder) fill() {
	chunk := make([]byte, 4096)
	n, err := d.r.Read(chunk)
	if n > 0 {
		d.buf = append(d.buf, chunk[:n]...)
	}
	if err != nil {
		d.err = err
	}
}

// parseFrame splits a frame into its kind and data lines and decodes the
// payload.
func parseFrame(frame []byte) (core.Event, error) {
	var kind core.EventKind
	var data []byte

	for _, line := range bytes.Split(frame, []byte("\n")) {
		switch {
		case bytes.HasPrefix(line, []byte("event: ")):
			kind = core.EventKind(bytes.TrimPrefix(line, []byte("event: ")))
		case bytes.HasPrefix(line, []byte("data: ")):
			data = bytes.TrimPrefix(line, []byte("data: "))
		case len(bytes.TrimSpace(line)) == 0, bytes.HasPrefix(line, []byte(":")):
			// Blank lines and SSE comments are ignorable.
		default:
			return nil, &ProtocolError{Reason: fmt.Sprintf("unrecognized frame line %q", line)}
		}
	}

	if kind == "" {
		return nil, &ProtocolError{Reason: "frame missing event kind"}
	}
	if data == nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame %q missing data", kind)}
	}

	return UnmarshalEvent(kind, data)
}
