// Package source obtains the trace events of one evaluation.
//
// An Evaluator turns an expression into an Evaluation: the ordered events a
// compiler front end emitted while elaborating it, plus the location at which
// the expression was injected into the translation unit. Implementations
// replay recorded trace files, drive an external compiler, or cache either.
package source

import (
	"context"
	"errors"

	"mdb/internal/event"
	"mdb/internal/graph"
)

// ErrUnknownExpression is returned by replaying sources asked for an
// expression they have no trace for.
var ErrUnknownExpression = errors.New("no trace recorded for expression")

// Evaluation is the raw outcome of running the compiler on one expression.
type Evaluation struct {
	Expr      string             `json:"expr" msgpack:"expr"`
	Injection graph.FileLocation `json:"injection" msgpack:"injection"`
	Events    []event.Event      `json:"events" msgpack:"events"`
}

// Evaluator produces evaluations on demand.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string) (*Evaluation, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, expr string) (*Evaluation, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, expr string) (*Evaluation, error) {
	return f(ctx, expr)
}

// Result returns the evaluation result carried by the final event, if any.
func (e *Evaluation) Result() (graph.Result, bool) {
	if e == nil || len(e.Events) == 0 {
		return graph.Result{}, false
	}
	last := e.Events[len(e.Events)-1]
	if last.Kind != event.KindEvaluationEnd {
		return graph.Result{}, false
	}
	res, err := last.Outcome()
	if err != nil {
		return graph.Result{}, false
	}
	return res, true
}
