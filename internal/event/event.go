// Package event defines the typed trace events a compiler front end emits
// while it elaborates a program.
package event

import (
	"fmt"

	"mdb/internal/graph"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindTemplateBegin Kind = iota + 1
	KindTemplateEnd
	KindMacroExpansionBegin
	KindRescanning
	KindExpandedCode
	KindMacroExpansionEnd
	KindIncludeBegin
	KindIncludeEnd
	KindDefine
	KindUndefine
	KindPPConditionBegin
	KindPPConditionEnd
	KindPPElse
	KindPPEndif
	KindErrorDirective
	KindLineDirective
	KindTokenSkipping
	KindTokenGeneration
	KindEvaluationEnd
)

var kindNames = map[Kind]string{
	KindTemplateBegin:       "template_begin",
	KindTemplateEnd:         "template_end",
	KindMacroExpansionBegin: "macro_expansion_begin",
	KindRescanning:          "rescanning",
	KindExpandedCode:        "expanded_code",
	KindMacroExpansionEnd:   "macro_expansion_end",
	KindIncludeBegin:        "include_begin",
	KindIncludeEnd:          "include_end",
	KindDefine:              "define",
	KindUndefine:            "undefine",
	KindPPConditionBegin:    "pp_condition_begin",
	KindPPConditionEnd:      "pp_condition_end",
	KindPPElse:              "pp_else",
	KindPPEndif:             "pp_endif",
	KindErrorDirective:      "error_directive",
	KindLineDirective:       "line_directive",
	KindTokenSkipping:       "token_skipping",
	KindTokenGeneration:     "token_generation",
	KindEvaluationEnd:       "evaluation_end",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind converts a wire name to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind: %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %d", k)
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is one trace record. Which payload fields are meaningful depends on Kind:
//
//	template_begin         Name (type), Memoization, PointOfEvent, SourceLocation
//	macro_expansion_begin  Name, Args/FunctionLike, PointOfEvent, SourceLocation
//	rescanning             Code
//	expanded_code          Code, PointOfEvent
//	include_begin          Name (path), System, PointOfEvent
//	define                 Name, Args/FunctionLike, Code (body), PointOfEvent
//	undefine               Name, PointOfEvent
//	pp_condition_begin     Code (expression), PointOfEvent
//	pp_condition_end       Result
//	pp_else, pp_endif      PointOfEvent
//	error_directive        Code (message), PointOfEvent
//	line_directive         Code (argument), PointOfEvent, SourceLocation
//	token_skipping         Code (token), PointOfEvent
//	token_generation       Code (token), PointOfEvent, SourceLocation
//	evaluation_end         ResultKind, Code (result text)
//
// The *_end kinds other than evaluation_end carry only the timestamp.
type Event struct {
	Kind           Kind               `json:"kind" msgpack:"kind"`
	Timestamp      float64            `json:"ts" msgpack:"ts"`
	Name           string             `json:"name,omitempty" msgpack:"name,omitempty"`
	Args           []string           `json:"args,omitempty" msgpack:"args,omitempty"`
	FunctionLike   bool               `json:"function_like,omitempty" msgpack:"function_like,omitempty"`
	Code           string             `json:"code,omitempty" msgpack:"code,omitempty"`
	Memoization    bool               `json:"memoization,omitempty" msgpack:"memoization,omitempty"`
	System         bool               `json:"system,omitempty" msgpack:"system,omitempty"`
	Result         bool               `json:"result,omitempty" msgpack:"result,omitempty"`
	ResultKind     string             `json:"result_kind,omitempty" msgpack:"result_kind,omitempty"`
	PointOfEvent   graph.FileLocation `json:"point_of_event" msgpack:"point_of_event"`
	SourceLocation graph.FileLocation `json:"source_location" msgpack:"source_location"`
}

func (e Event) String() string {
	switch {
	case e.Name != "":
		return fmt.Sprintf("%s %q @%.6f", e.Kind, e.Name, e.Timestamp)
	case e.Code != "":
		return fmt.Sprintf("%s %q @%.6f", e.Kind, e.Code, e.Timestamp)
	default:
		return fmt.Sprintf("%s @%.6f", e.Kind, e.Timestamp)
	}
}
