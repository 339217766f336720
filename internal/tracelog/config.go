package tracelog

import (
	"fmt"
	"os"
	"strings"
)

// DefaultRingSize is the number of events a ring keeps by default.
const DefaultRingSize = 4096

// Mode selects the sinks New attaches.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // write each event to the log output
	ModeRing                   // keep events for a dump on failure
	ModeBoth                   // stream and ring
	ModeZap                    // structured zap logger on stderr
)

var modeNames = map[string]Mode{"stream": ModeStream, "ring": ModeRing, "both": ModeBoth, "zap": ModeZap}

// ParseMode converts a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("invalid trace mode %q (expected stream|ring|both|zap)", s)
}

// Config describes the recorder of a session.
type Config struct {
	Level    Level
	Mode     Mode
	Path     string // stream output; "" or "-" is stderr
	RingSize int
}

// New builds the recorder cfg describes. It returns nil when the level
// is off.
func New(cfg Config) (*Recorder, error) {
	if cfg.Level == LevelOff {
		return nil, nil
	}
	var sinks []Sink
	if cfg.Mode == ModeStream || cfg.Mode == ModeBoth {
		s, err := openStream(cfg.Path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	switch cfg.Mode {
	case ModeStream:
	case ModeRing, ModeBoth:
		sinks = append(sinks, NewRing(cfg.RingSize))
	case ModeZap:
		z, err := NewZapDevelopment()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, z)
	default:
		return nil, fmt.Errorf("unknown trace mode %d", cfg.Mode)
	}
	return NewRecorder(cfg.Level, sinks...), nil
}

func openStream(path string) (*Stream, error) {
	if path == "" || path == "-" {
		return NewStream(os.Stderr, FormatText), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace log: %w", err)
	}
	s := NewStream(f, FormatForPath(path))
	s.closer = f
	return s, nil
}
