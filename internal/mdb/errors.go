package mdb

import (
	"errors"
	"fmt"
)

var (
	// ErrNotEvaluated is returned by operations that need an evaluated metaprogram.
	ErrNotEvaluated = errors.New("metaprogram not evaluated yet")
	// ErrNothingEvaluated is returned when re-evaluation is asked for before any evaluation.
	ErrNothingEvaluated = errors.New("nothing has been evaluated yet")
	// ErrFinished is returned by operations that need a running metaprogram.
	ErrFinished = errors.New("metaprogram finished")
	// ErrNoEvaluator is returned by Evaluate on an engine that can only Load.
	ErrNoEvaluator = errors.New("no evaluator configured")
	// ErrEmptyPattern is returned when a breakpoint is requested without a pattern.
	ErrEmptyPattern = errors.New("argument expected")
)

// PatternError reports a breakpoint pattern that is not a valid regular expression.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%q is not a valid regex", e.Pattern)
}

func (e *PatternError) Unwrap() error { return e.Err }
