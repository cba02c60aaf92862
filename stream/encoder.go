package stream

import (
	"io"

	"github.com/skylightai/skylight/core"
)

// flusher is implemented by writers that can push buffered bytes to the
// client immediately (e.g. http.ResponseWriter behind http.Flusher).
type flusher interface{ Flush() }

// Encoder writes events as transport frames in emission order. Not safe for
// concurrent use; a turn has exactly one encoding goroutine.
type Encoder struct {
	w io.Writer
	f flusher
}

// NewEncoder constructs an Encoder over w. If w supports flushing, every
// frame is flushed after writing so partial responses reach the client as
// they are produced.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(flusher); ok {
		enc.f = f
	}
	return enc
}

// Encode writes one event frame.
func (e *Encoder) Encode(ev core.Event) error {
	frame, err := MarshalFrame(ev)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(frame); err != nil {
		return err
	}
	if e.f != nil {
		e.f.Flush()
	}
	return nil
}
