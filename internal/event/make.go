package event

import "mdb/internal/graph"

// TemplateBegin builds a template instantiation (or memoization) begin event.
func TemplateBegin(typ string, memoized bool, poe, src graph.FileLocation, ts float64) Event {
	return Event{Kind: KindTemplateBegin, Name: typ, Memoization: memoized, PointOfEvent: poe, SourceLocation: src, Timestamp: ts}
}

// TemplateEnd builds a template end event.
func TemplateEnd(ts float64) Event { return Event{Kind: KindTemplateEnd, Timestamp: ts} }

// MacroExpansionBegin builds a macro expansion begin event. A nil args slice
// describes an object-like macro.
func MacroExpansionBegin(name string, args []string, poe, src graph.FileLocation, ts float64) Event {
	return Event{Kind: KindMacroExpansionBegin, Name: name, Args: args, FunctionLike: args != nil, PointOfEvent: poe, SourceLocation: src, Timestamp: ts}
}

// Rescanning builds a rescanning event.
func Rescanning(code string, ts float64) Event {
	return Event{Kind: KindRescanning, Code: code, Timestamp: ts}
}

// ExpandedCode builds an expanded code event.
func ExpandedCode(code string, poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindExpandedCode, Code: code, PointOfEvent: poe, Timestamp: ts}
}

// MacroExpansionEnd builds a macro expansion end event.
func MacroExpansionEnd(ts float64) Event { return Event{Kind: KindMacroExpansionEnd, Timestamp: ts} }

// IncludeBegin builds an include begin event.
func IncludeBegin(path string, system bool, poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindIncludeBegin, Name: path, System: system, PointOfEvent: poe, Timestamp: ts}
}

// IncludeEnd builds an include end event.
func IncludeEnd(ts float64) Event { return Event{Kind: KindIncludeEnd, Timestamp: ts} }

// Define builds a macro definition event.
func Define(name string, args []string, body string, poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindDefine, Name: name, Args: args, FunctionLike: args != nil, Code: body, PointOfEvent: poe, Timestamp: ts}
}

// Undefine builds a macro deletion event.
func Undefine(name string, poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindUndefine, Name: name, PointOfEvent: poe, Timestamp: ts}
}

// PPConditionBegin builds a preprocessing condition begin event.
func PPConditionBegin(expr string, poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindPPConditionBegin, Code: expr, PointOfEvent: poe, Timestamp: ts}
}

// PPConditionEnd builds a preprocessing condition end event.
func PPConditionEnd(result bool, ts float64) Event {
	return Event{Kind: KindPPConditionEnd, Result: result, Timestamp: ts}
}

// PPElse builds an #else event.
func PPElse(poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindPPElse, PointOfEvent: poe, Timestamp: ts}
}

// PPEndif builds an #endif event.
func PPEndif(poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindPPEndif, PointOfEvent: poe, Timestamp: ts}
}

// ErrorDirective builds an #error event.
func ErrorDirective(msg string, poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindErrorDirective, Code: msg, PointOfEvent: poe, Timestamp: ts}
}

// LineDirective builds a #line event.
func LineDirective(arg string, poe, src graph.FileLocation, ts float64) Event {
	return Event{Kind: KindLineDirective, Code: arg, PointOfEvent: poe, SourceLocation: src, Timestamp: ts}
}

// TokenSkipping builds a skipped token event.
func TokenSkipping(tok string, poe graph.FileLocation, ts float64) Event {
	return Event{Kind: KindTokenSkipping, Code: tok, PointOfEvent: poe, Timestamp: ts}
}

// TokenGeneration builds a generated token event.
func TokenGeneration(tok string, poe, src graph.FileLocation, ts float64) Event {
	return Event{Kind: KindTokenGeneration, Code: tok, PointOfEvent: poe, SourceLocation: src, Timestamp: ts}
}

// EvaluationEnd builds the terminating event.
func EvaluationEnd(result graph.Result) Event {
	return Event{Kind: KindEvaluationEnd, ResultKind: result.Kind.String(), Code: result.Text}
}

// Outcome decodes the result carried by an evaluation end event.
func (e Event) Outcome() (graph.Result, error) {
	kind := graph.ResultType
	if e.ResultKind != "" {
		k, err := graph.ParseResultKind(e.ResultKind)
		if err != nil {
			return graph.Result{}, err
		}
		kind = k
	}
	return graph.Result{Kind: kind, Text: e.Code}, nil
}
