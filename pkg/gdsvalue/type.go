// Package gdsvalue implements the value-type registry: parsing type
// descriptors, lifting decoded binary tokens into typed model values,
// and rendering values back to their canonical textual form.
//
// Modeled on the original decompiler's value.py, which tries a fixed
// list of type kinds in order against a descriptor string (GDSIntType,
// GDSFloatType, GDSStringType, GDSBoolType and their parse_type/from_token
// dunder-format methods).
package gdsvalue

import (
	"fmt"

	"gdsc/pkg/gdsmodel"
)

// TokenVariant is the binary token payload kind that produced a value,
// used to check type compatibility per the table in §4.A.
type TokenVariant int

const (
	TokenInt TokenVariant = iota
	TokenFloat
	TokenStr
	TokenLongStr
)

// Type is satisfied by every registered value kind.
type Type interface {
	// Descriptor is the canonical descriptor string, e.g. "short" or
	// "str(32)".
	Descriptor() string

	// ParseLiteral parses a textual literal fragment into a Value.
	ParseLiteral(lit string) (gdsmodel.Value, error)

	// FromToken lifts a decoded binary token's variant/payload into a
	// Value of this kind. ok is false on a variant mismatch; the caller
	// decides whether that is fatal (required parameter) or a signal to
	// rewind (optional parameter).
	FromToken(variant TokenVariant, payload any) (v gdsmodel.Value, ok bool)

	// Format renders v in canonical textual form.
	Format(v gdsmodel.Value) string
}

// RangeChecker is implemented by the types that can hold an
// out-of-range value (int widths, string buffer limits): the value is
// stored verbatim regardless, but the caller should surface a
// RangeWarning. Types with no such limit (float, bool) do not
// implement it.
type RangeChecker interface {
	// CheckRange reports whether v exceeds this type's declared limit,
	// and if so a message describing how.
	CheckRange(v gdsmodel.Value) (msg string, exceeds bool)
}

// CheckRange applies t's RangeChecker check if it implements one,
// otherwise reports no violation.
func CheckRange(t Type, v gdsmodel.Value) (msg string, exceeds bool) {
	rc, ok := t.(RangeChecker)
	if !ok {
		return "", false
	}
	return rc.CheckRange(v)
}

// registry is the ordered list of parseable kinds, tried in turn by
// ParseDescriptor exactly as the original's parse_type dispatch does.
var registry []func(descriptor string) (Type, bool)

func register(f func(descriptor string) (Type, bool)) {
	registry = append(registry, f)
}

func init() {
	register(parseIntDescriptor)
	register(parseFloatDescriptor)
	register(parseStringDescriptor)
	register(parseLongStrDescriptor)
	register(parseBoolDescriptor)
}

// ParseDescriptor resolves a type descriptor string (as found in a
// command-definition parameter) into a concrete Type.
func ParseDescriptor(descriptor string) (Type, error) {
	for _, try := range registry {
		if t, ok := try(descriptor); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unparsable type descriptor %q", descriptor)
}
