package patch

import (
	"testing"

	"gdsc/pkg/gdserr"
)

func TestApplyUnknownPathIsNoop(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	out := Apply(Default, "data/script/event/e999.gds", data, nil)
	if string(out) != string(data) {
		t.Fatalf("expected unchanged data for unknown path")
	}
}

func TestApplyAndUnapplyRoundTrip(t *testing.T) {
	const path = "data/script/event/e126.gds"
	data := make([]byte, 0x399)
	data[0x398] = 0x01

	patched := Apply(Default, path, data, nil)
	if patched[0x398] != 0x02 {
		t.Fatalf("expected byte at 0x398 to become 0x02, got 0x%X", patched[0x398])
	}

	restored := Unapply(Default, path, patched, nil)
	if restored[0x398] != 0x01 {
		t.Fatalf("expected unapply to restore 0x01, got 0x%X", restored[0x398])
	}
}

func TestApplyMismatchWarnsAndSkips(t *testing.T) {
	const path = "data/script/event/e126.gds"
	data := make([]byte, 0x399)
	data[0x398] = 0x7F // doesn't match expected 0x01

	var warnings []string
	out := Apply(Default, path, data, func(w gdserr.Warning) { warnings = append(warnings, w.Msg) })
	if out[0x398] != 0x7F {
		t.Fatalf("mismatched patch should leave bytes untouched, got 0x%X", out[0x398])
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(warnings))
	}
}
