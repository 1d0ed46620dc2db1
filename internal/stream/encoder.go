// Package stream frames JSON payloads as Server-Sent Events.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
)

// Encoder writes SSE frames to a single client connection. It is not
// safe for concurrent use; the enrichment drain loop is the only writer.
type Encoder struct {
	w       io.Writer
	flusher func()
}

// NewEncoder wraps w. flush is called after every frame when non-nil so
// partial batches reach the client immediately.
func NewEncoder(w io.Writer, flush func()) *Encoder {
	return &Encoder{w: w, flusher: flush}
}

// Event serializes payload as compact JSON and writes one data frame:
// "data: <json>\n\n".
func (e *Encoder) Event(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode stream event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write stream event: %w", err)
	}
	e.flush()
	return nil
}

// Comment writes a comment frame (": <text>\n\n"). Clients ignore it;
// it exists to keep idle connections alive through proxies.
func (e *Encoder) Comment(text string) error {
	if _, err := fmt.Fprintf(e.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("write stream comment: %w", err)
	}
	e.flush()
	return nil
}

func (e *Encoder) flush() {
	if e.flusher != nil {
		e.flusher()
	}
}
