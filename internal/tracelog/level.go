package tracelog

import (
	"fmt"
	"strings"
)

// Level is both the verbosity of a recorder and the granularity of an
// event. A recorder keeps the events whose level does not exceed its own.
type Level uint8

const (
	LevelOff     Level = iota
	LevelCommand       // sessions and shell lines
	LevelPhase         // evaluation phases, compiler runs, cache lookups
	LevelStep          // every cursor move
)

var levelNames = [...]string{"off", "command", "phase", "step"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// ParseLevel converts a flag value to a Level. "debug" is accepted as an
// alias of "step".
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "debug" {
		return LevelStep, nil
	}
	for i, name := range levelNames {
		if s == name {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected off|command|phase|step)", s)
}

// Includes reports whether an event at level ev is kept at level l.
func (l Level) Includes(ev Level) bool {
	return l != LevelOff && ev != LevelOff && ev <= l
}
