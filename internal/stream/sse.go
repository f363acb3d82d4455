package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SSE event names used by the relay.
const (
	EventStart = "start"
	EventError = "error"
	EventDone  = "done"
)

// Emitter writes server-sent events: blank-line-terminated blocks of
// `field: value` lines with JSON data payloads, flushed per event so tokens
// reach the client as they arrive.
type Emitter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEmitter wraps a response writer. Returns an error when the writer
// cannot stream.
func NewEmitter(w http.ResponseWriter) (*Emitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("stream: response writer does not support flushing")
	}
	return &Emitter{w: w, flusher: flusher}, nil
}

// NewEmitterTo wraps a plain writer without flushing, for tests.
func NewEmitterTo(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Event writes one SSE event with a JSON payload. An empty name omits the
// `event:` line, producing a default (token) event.
func (e *Emitter) Event(name string, payload any) error {
	data, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return fmt.Errorf("stream: marshal event: %w", errMarshal)
	}

	if name != "" {
		if _, errWrite := fmt.Fprintf(e.w, "event: %s\n", name); errWrite != nil {
			return errWrite
		}
	}
	if _, errWrite := fmt.Fprintf(e.w, "data: %s\n\n", data); errWrite != nil {
		return errWrite
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// SetHeaders applies the response headers for an SSE stream. Must be called
// before the first event.
func SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}
