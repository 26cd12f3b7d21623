// Package gdserr defines the typed error and warning taxonomy shared by
// every stage of the toolchain, so callers can distinguish error kinds
// with errors.As instead of matching on message text.
package gdserr

import "fmt"

// FormatError reports a malformed binary stream: an invalid tag, a
// premature fileend inside a condition or target, a token type
// mismatched against its declared parameter type, or an inconsistent
// length header.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Msg)
}

// SyntaxError reports a malformed GDA textual program.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error on line %d: %s", e.Line, e.Msg)
}

// DefinitionError reports a malformed command-definition registry:
// duplicate ids/names, a missing mandatory field, an out-of-range id, or
// an unparsable type descriptor.
type DefinitionError struct {
	Msg string
}

func (e *DefinitionError) Error() string { return "definition error: " + e.Msg }

// UnresolvedLabelError reports a GDA program referencing a label name
// that is never defined.
type UnresolvedLabelError struct {
	Label string
}

func (e *UnresolvedLabelError) Error() string {
	return fmt.Sprintf("unresolved label %q", e.Label)
}

// WarningKind distinguishes the two non-fatal diagnostics the core can
// raise; both are reported, never abort a translation.
type WarningKind int

const (
	PatchWarning WarningKind = iota
	RangeWarning
)

func (k WarningKind) String() string {
	switch k {
	case PatchWarning:
		return "PatchWarning"
	case RangeWarning:
		return "RangeWarning"
	default:
		return "Warning"
	}
}

// Warning is a non-fatal diagnostic surfaced through a Diagnostics sink
// rather than returned as an error.
type Warning struct {
	Kind WarningKind
	Msg  string
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Kind, w.Msg) }

// Diagnostics receives warnings produced during a translation. A nil
// Diagnostics is equivalent to discarding every warning.
type Diagnostics func(Warning)

// Emit calls sink if it is non-nil; safe to call with a nil sink.
func Emit(sink Diagnostics, w Warning) {
	if sink != nil {
		sink(w)
	}
}
