package gdsvalue

import (
	"fmt"
	"strconv"
	"strings"

	"gdsc/pkg/gdsmodel"
)

// boolForce restricts which backing representation a "bool|int" or
// "bool|string" descriptor accepts; boolForceEither leaves it to the
// literal's own spelling.
type boolForce int

const (
	boolForceEither boolForce = iota
	boolForceInt
	boolForceString
)

type boolType struct {
	force boolForce
}

func parseBoolDescriptor(descriptor string) (Type, bool) {
	switch descriptor {
	case "bool":
		return &boolType{force: boolForceEither}, true
	case "bool|int":
		return &boolType{force: boolForceInt}, true
	case "bool|string":
		return &boolType{force: boolForceString}, true
	default:
		return nil, false
	}
}

func (t *boolType) Descriptor() string {
	switch t.force {
	case boolForceInt:
		return "bool|int"
	case boolForceString:
		return "bool|string"
	default:
		return "bool"
	}
}

func (t *boolType) ParseLiteral(lit string) (gdsmodel.Value, error) {
	trimmed := strings.TrimSpace(lit)
	if strings.HasPrefix(trimmed, `"`) {
		if t.force == boolForceInt {
			return nil, fmt.Errorf("string-backed bool literal %q not accepted for bool|int", lit)
		}
		unquoted := strings.TrimSuffix(strings.TrimPrefix(trimmed, `"`), `"`)
		raw := unquoted == "true"
		if unquoted != "true" && unquoted != "false" {
			return nil, fmt.Errorf("invalid string-backed bool literal %q", lit)
		}
		return gdsmodel.BoolValue{Raw: raw, Backing: gdsmodel.BoolBackingString}, nil
	}
	raw, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid bool literal %q: %w", lit, err)
	}
	if t.force == boolForceString {
		return gdsmodel.BoolValue{Raw: raw, Backing: gdsmodel.BoolBackingString}, nil
	}
	return gdsmodel.BoolValue{Raw: raw, Backing: gdsmodel.BoolBackingInt}, nil
}

func (t *boolType) FromToken(variant TokenVariant, payload any) (gdsmodel.Value, bool) {
	switch variant {
	case TokenInt:
		if t.force == boolForceString {
			return nil, false
		}
		n, ok := payload.(int64)
		if !ok {
			return nil, false
		}
		return gdsmodel.BoolValue{Raw: n != 0, Backing: gdsmodel.BoolBackingInt}, true
	case TokenStr:
		if t.force == boolForceInt {
			return nil, false
		}
		s, ok := payload.(string)
		if !ok {
			return nil, false
		}
		return gdsmodel.BoolValue{Raw: s == "true", Backing: gdsmodel.BoolBackingString}, true
	default:
		return nil, false
	}
}

func (t *boolType) Format(v gdsmodel.Value) string {
	bv, ok := v.(gdsmodel.BoolValue)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	if bv.Backing == gdsmodel.BoolBackingString {
		return strconv.Quote(strconv.FormatBool(bv.Raw))
	}
	return strconv.FormatBool(bv.Raw)
}
