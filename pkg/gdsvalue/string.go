package gdsvalue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gdsc/pkg/gdsmodel"
)

const defaultStringBufferSize = 63

var stringDescriptorRE = regexp.MustCompile(`^(?:str|string)(?:\((\d+)\))?$`)
var longStrDescriptorRE = regexp.MustCompile(`^longstr(?:\((\d+)\))?$`)

type stringType struct {
	maxLen int
	kind   gdsmodel.StringKind
}

func parseStringDescriptor(descriptor string) (Type, bool) {
	m := stringDescriptorRE.FindStringSubmatch(descriptor)
	if m == nil {
		return nil, false
	}
	maxLen := defaultStringBufferSize
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			maxLen = n
		}
	}
	return &stringType{maxLen: maxLen, kind: gdsmodel.StringRegular}, true
}

func parseLongStrDescriptor(descriptor string) (Type, bool) {
	m := longStrDescriptorRE.FindStringSubmatch(descriptor)
	if m == nil {
		return nil, false
	}
	maxLen := defaultStringBufferSize
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			maxLen = n
		}
	}
	return &stringType{maxLen: maxLen, kind: gdsmodel.StringLong}, true
}

func (t *stringType) Descriptor() string {
	base := "str"
	if t.kind == gdsmodel.StringLong {
		base = "longstr"
	}
	if t.maxLen != defaultStringBufferSize {
		return fmt.Sprintf("%s(%d)", base, t.maxLen)
	}
	return base
}

func (t *stringType) ParseLiteral(lit string) (gdsmodel.Value, error) {
	unquoted, err := strconv.Unquote(lit)
	if err != nil {
		unquoted = strings.TrimSuffix(strings.TrimPrefix(lit, `"`), `"`)
	}
	return gdsmodel.StringValue{Raw: unquoted, Kind: t.kind}, nil
}

func (t *stringType) FromToken(variant TokenVariant, payload any) (gdsmodel.Value, bool) {
	want := TokenStr
	if t.kind == gdsmodel.StringLong {
		want = TokenLongStr
	}
	if variant != want {
		return nil, false
	}
	s, ok := payload.(string)
	if !ok {
		return nil, false
	}
	return gdsmodel.StringValue{Raw: s, Kind: t.kind}, true
}

func (t *stringType) Format(v gdsmodel.Value) string {
	sv, ok := v.(gdsmodel.StringValue)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return strconv.Quote(sv.Raw)
}

// ExceedsBuffer reports whether sv's length exceeds the type's declared
// buffer limit; callers emit a RangeWarning rather than failing.
func (t *stringType) ExceedsBuffer(sv gdsmodel.StringValue) bool {
	return len(sv.Raw)+1 > t.maxLen
}

// CheckRange implements RangeChecker: a string longer than the
// declared buffer limit is stored verbatim but flagged.
func (t *stringType) CheckRange(v gdsmodel.Value) (string, bool) {
	sv, ok := v.(gdsmodel.StringValue)
	if !ok || !t.ExceedsBuffer(sv) {
		return "", false
	}
	return fmt.Sprintf("string %q exceeds %d-char buffer limit for %s", sv.Raw, t.maxLen, t.Descriptor()), true
}
