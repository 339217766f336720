package graph

import "fmt"

// ResultKind tells how an evaluation ended.
type ResultKind uint8

const (
	// ResultType means the expression evaluated to a type.
	ResultType ResultKind = iota
	// ResultCode means the expression evaluated to preprocessed code.
	ResultCode
	// ResultError means the compiler reported an error.
	ResultError
)

// String returns the string representation of ResultKind.
func (k ResultKind) String() string {
	switch k {
	case ResultType:
		return "type"
	case ResultCode:
		return "code"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome recorded by the evaluation end event.
type Result struct {
	Kind ResultKind
	Text string
}

// IsError reports whether the evaluation failed.
func (r Result) IsError() bool { return r.Kind == ResultError }

func (r Result) String() string { return r.Text }

// ParseResultKind converts "type", "code" or "error" into a ResultKind.
func ParseResultKind(s string) (ResultKind, error) {
	switch s {
	case "type":
		return ResultType, nil
	case "code":
		return ResultCode, nil
	case "error":
		return ResultError, nil
	default:
		return ResultType, fmt.Errorf("invalid result kind: %q (expected: type|code|error)", s)
	}
}
