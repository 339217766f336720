package tracelog

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Format selects how a stream writes events.
type Format uint8

const (
	FormatText Format = iota
	FormatNDJSON
)

// FormatForPath picks NDJSON for .ndjson and .json files, text otherwise.
func FormatForPath(path string) Format {
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".json") {
		return FormatNDJSON
	}
	return FormatText
}

// appendText renders ev on one line. Nested events are indented by the
// spans open around them. inline adds the shell line to command spans.
func appendText(b []byte, ev *Event, inline bool) []byte {
	b = fmt.Appendf(b, "[%6d] %-7s ", ev.Seq, ev.Level)
	for range ev.depth {
		b = append(b, "  "...)
	}
	b = append(b, ev.Kind.arrow()...)
	b = append(b, ev.Name...)
	if inline && ev.Kind == KindBegin && ev.Span != 0 && ev.Name == "command" {
		b = append(b, ' ')
		b = strconv.AppendQuote(b, ev.Command)
	}
	if ev.Detail != "" {
		b = append(b, " ("...)
		b = append(b, ev.Detail...)
		b = append(b, ')')
	}
	if ev.Cursor != nil {
		b = append(b, " @ "...)
		b = append(b, ev.Cursor.String()...)
	}
	return append(b, '\n')
}

// Stream writes every event as soon as it is recorded.
type Stream struct {
	w      io.Writer
	closer io.Closer
	format Format
	buf    []byte
}

// NewStream creates a stream writing to w. The stream never closes w.
func NewStream(w io.Writer, format Format) *Stream {
	return &Stream{w: w, format: format}
}

// Write implements Sink. Write errors are dropped: a broken log must not
// end the session.
func (s *Stream) Write(ev *Event) {
	s.buf = s.buf[:0]
	if s.format == FormatNDJSON {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		s.buf = append(append(s.buf, data...), '\n')
	} else {
		s.buf = appendText(s.buf, ev, true)
	}
	_, _ = s.w.Write(s.buf) //nolint:errcheck
}

// Close closes the output when the stream opened it.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Ring keeps the last events in memory for a dump after a failure.
type Ring struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewRing creates a ring holding up to size events.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{events: make([]Event, size)}
}

// Write implements Sink.
func (r *Ring) Write(ev *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = *ev
	r.next++
	if r.next == len(r.events) {
		r.next, r.full = 0, true
	}
}

// Close implements Sink.
func (r *Ring) Close() error { return nil }

// Snapshot returns the stored events, oldest first.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Event(nil), r.events[:r.next]...)
	}
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	return append(out, r.events[:r.next]...)
}

// Dump writes the stored events as text, grouped under the shell line
// that produced them.
func (r *Ring) Dump(w io.Writer) error {
	var (
		b    []byte
		prev string
	)
	for i, ev := range r.Snapshot() {
		if i == 0 || ev.Command != prev {
			prev = ev.Command
			if ev.Command == "" {
				b = append(b, "(between commands)\n"...)
			} else {
				b = append(b, "mdb> "...)
				b = append(b, ev.Command...)
				b = append(b, '\n')
			}
		}
		b = append(b, "  "...)
		b = appendText(b, &ev, false)
	}
	_, err := w.Write(b)
	return err
}
