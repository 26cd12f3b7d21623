package gdsvalue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gdsc/pkg/gdsmodel"
)

var intDescriptorRE = regexp.MustCompile(`^(u?)(int|short|byte)(?:\((\d)\))?$`)

// intType implements int, uint, int(N), uint(N), short, ushort, byte,
// ubyte.
type intType struct {
	width    int
	unsigned bool
}

func parseIntDescriptor(descriptor string) (Type, bool) {
	m := intDescriptorRE.FindStringSubmatch(descriptor)
	if m == nil {
		return nil, false
	}
	unsigned := m[1] == "u"
	width := 4
	switch m[2] {
	case "short":
		width = 2
	case "byte":
		width = 1
	}
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil || (n != 1 && n != 2 && n != 4) {
			return nil, false
		}
		width = n
	}
	return &intType{width: width, unsigned: unsigned}, true
}

func (t *intType) Descriptor() string {
	base := "int"
	switch t.width {
	case 2:
		base = "short"
	case 1:
		base = "byte"
	}
	prefix := ""
	if t.unsigned {
		prefix = "u"
	}
	return prefix + base
}

func (t *intType) ParseLiteral(lit string) (gdsmodel.Value, error) {
	lit = strings.TrimSpace(lit)
	n, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		u, uerr := strconv.ParseUint(lit, 0, 64)
		if uerr != nil {
			return nil, fmt.Errorf("invalid integer literal %q: %w", lit, err)
		}
		n = int64(u)
	}
	return gdsmodel.IntValue{Raw: n, Width: t.width, Unsigned: t.unsigned}, nil
}

func (t *intType) FromToken(variant TokenVariant, payload any) (gdsmodel.Value, bool) {
	if variant != TokenInt {
		return nil, false
	}
	raw, ok := payload.(int64)
	if !ok {
		return nil, false
	}
	return gdsmodel.IntValue{Raw: raw, Width: t.width, Unsigned: t.unsigned}, true
}

func (t *intType) Format(v gdsmodel.Value) string {
	iv, ok := v.(gdsmodel.IntValue)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	if iv.Unsigned {
		return strconv.FormatUint(uint64(uint32(iv.Raw)), 10)
	}
	return strconv.FormatInt(iv.Raw, 10)
}

// CheckRange implements RangeChecker: an integer literal or decoded
// token value outside the declared width's range is kept verbatim but
// flagged.
func (t *intType) CheckRange(v gdsmodel.Value) (string, bool) {
	iv, ok := v.(gdsmodel.IntValue)
	if !ok || InRange(iv) {
		return "", false
	}
	return fmt.Sprintf("value %d out of range for %s", iv.Raw, t.Descriptor()), true
}

// InRange reports whether iv.Raw fits in the declared width, used by
// the reader/parser to emit a RangeWarning rather than fail.
func InRange(iv gdsmodel.IntValue) bool {
	switch iv.Width {
	case 1:
		if iv.Unsigned {
			return iv.Raw >= 0 && iv.Raw <= 0xFF
		}
		return iv.Raw >= -0x80 && iv.Raw <= 0x7F
	case 2:
		if iv.Unsigned {
			return iv.Raw >= 0 && iv.Raw <= 0xFFFF
		}
		return iv.Raw >= -0x8000 && iv.Raw <= 0x7FFF
	default:
		if iv.Unsigned {
			return iv.Raw >= 0 && iv.Raw <= 0xFFFFFFFF
		}
		return iv.Raw >= -0x80000000 && iv.Raw <= 0x7FFFFFFF
	}
}
