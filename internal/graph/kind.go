package graph

import "fmt"

// EventKind classifies an edge by the compiler event that created it.
type EventKind uint8

const (
	TemplateInstantiation EventKind = iota
	Memoization
	MacroExpansion
	Rescanning
	ExpandedCode
	SystemInclude
	QuotedInclude
	MacroDefinition
	MacroDeletion
	PreprocessingCondition
	PreprocessingConditionResult
	PreprocessingElse
	PreprocessingEndif
	ErrorDirective
	LineDirective
	SkippedToken
	GeneratedToken
	// NonTemplateType is never recorded; filtering assigns it to edges that
	// reach an unwrapped expression which is not a template instance.
	NonTemplateType
)

var eventKindNames = [...]string{
	TemplateInstantiation:        "TemplateInstantiation",
	Memoization:                  "Memoization",
	MacroExpansion:               "MacroExpansion",
	Rescanning:                   "Rescanning",
	ExpandedCode:                 "ExpandedCode",
	SystemInclude:                "SystemInclude",
	QuotedInclude:                "QuotedInclude",
	MacroDefinition:              "MacroDefinition",
	MacroDeletion:                "MacroDeletion",
	PreprocessingCondition:       "PreprocessingCondition",
	PreprocessingConditionResult: "PreprocessingConditionResult",
	PreprocessingElse:            "PreprocessingElse",
	PreprocessingEndif:           "PreprocessingEndif",
	ErrorDirective:               "ErrorDirective",
	LineDirective:                "LineDirective",
	SkippedToken:                 "SkippedToken",
	GeneratedToken:               "GeneratedToken",
	NonTemplateType:              "NonTemplateType",
}

// String returns the name shown next to a frame, e.g. "TemplateInstantiation".
func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// IsTemplate reports whether the kind belongs to template instantiation.
func (k EventKind) IsTemplate() bool {
	return k == TemplateInstantiation || k == Memoization
}

// IsInclude reports whether the kind is one of the include kinds.
func (k EventKind) IsInclude() bool {
	return k == SystemInclude || k == QuotedInclude
}

// ParseEventKind converts a name produced by String back into an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	for i, name := range eventKindNames {
		if name == s {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("invalid event kind: %q", s)
}
