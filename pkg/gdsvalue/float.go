package gdsvalue

import (
	"fmt"
	"strconv"

	"gdsc/pkg/gdsmodel"
)

type floatType struct{}

func parseFloatDescriptor(descriptor string) (Type, bool) {
	if descriptor != "float" {
		return nil, false
	}
	return floatType{}, true
}

func (floatType) Descriptor() string { return "float" }

func (floatType) ParseLiteral(lit string) (gdsmodel.Value, error) {
	f, err := strconv.ParseFloat(lit, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid float literal %q: %w", lit, err)
	}
	return gdsmodel.FloatValue{Raw: float32(f)}, nil
}

func (floatType) FromToken(variant TokenVariant, payload any) (gdsmodel.Value, bool) {
	if variant != TokenFloat {
		return nil, false
	}
	f, ok := payload.(float32)
	if !ok {
		return nil, false
	}
	return gdsmodel.FloatValue{Raw: f}, true
}

func (floatType) Format(v gdsmodel.Value) string {
	fv, ok := v.(gdsmodel.FloatValue)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return FormatShortestRoundTrip(fv.Raw)
}

// FormatShortestRoundTrip renders x as the shortest decimal string that
// re-parses and re-encodes to the bit-identical float32. There is no
// equivalent helper in the captured original source (its value.py only
// imports a `round_perfect` it never defines in this snapshot), so this
// implements the algorithm described directly: try an increasing number
// of decimal places and accept the first one that round-trips, falling
// back to full precision.
func FormatShortestRoundTrip(x float32) string {
	for k := 0; k <= 9; k++ {
		s := strconv.FormatFloat(float64(x), 'f', k, 32)
		if roundTrips(s, x) {
			return s
		}
	}
	return strconv.FormatFloat(float64(x), 'g', -1, 32)
}

func roundTrips(s string, want float32) bool {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return false
	}
	return float32(f) == want
}
