package tracelog

import (
	"strconv"
	"time"
)

// Kind tells span boundaries from instant events.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k Kind) arrow() string {
	switch k {
	case KindBegin:
		return "→ "
	case KindEnd:
		return "← "
	}
	return "• "
}

// Cursor is the debugger position an event was recorded at. Pos follows
// the engine: 0 is the start, Total+1 the finished state.
type Cursor struct {
	Pos   int    `json:"pos"`
	Total int    `json:"total"`
	Frame string `json:"frame,omitempty"`
}

func (c Cursor) String() string {
	var s string
	switch {
	case c.Pos == 0:
		s = "start"
	case c.Pos > c.Total:
		s = "finished"
	default:
		s = strconv.Itoa(c.Pos) + "/" + strconv.Itoa(c.Total)
	}
	if c.Frame != "" {
		s += " " + c.Frame
	}
	return s
}

// Event is one record of the debugger's activity.
type Event struct {
	Time    time.Time     `json:"time"`
	Seq     uint64        `json:"seq"`
	Kind    Kind          `json:"kind"`
	Level   Level         `json:"level"`
	Span    uint64        `json:"span,omitempty"`
	Parent  uint64        `json:"parent,omitempty"`
	Command string        `json:"command,omitempty"` // shell line being executed
	Name    string        `json:"name"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns,omitempty"` // end events only
	Cursor  *Cursor       `json:"cursor,omitempty"`

	depth int // spans open around the event
}
