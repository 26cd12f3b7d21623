package doctemplate

import (
	"testing"

	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdsmodel"
)

func TestExpandLiteralDollar(t *testing.T) {
	e := &Expander{}
	out, err := e.Expand("costs $$5", &gdscmd.Command{Name: "x"}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if out != "costs $5" {
		t.Fatalf("got %q", out)
	}
}

func TestExpandLangDefault(t *testing.T) {
	e := &Expander{}
	out, err := e.Expand("lang=${lang}", &gdscmd.Command{Name: "x"}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if out != "lang=en" {
		t.Fatalf("got %q", out)
	}
}

func TestExpandPositionalArg(t *testing.T) {
	e := &Expander{}
	args := []gdsmodel.Value{gdsmodel.IntValue{Raw: 42}}
	out, err := e.Expand("value=${1}", &gdscmd.Command{Name: "x"}, args, "en")
	if err != nil {
		t.Fatal(err)
	}
	if out != "value=42" {
		t.Fatalf("got %q", out)
	}
}

func TestExpandPositionalOutOfRange(t *testing.T) {
	e := &Expander{}
	out, err := e.Expand("${2}", &gdscmd.Command{Name: "x"}, nil, "en")
	if err != nil {
		t.Fatal(err)
	}
	if out != "?" {
		t.Fatalf("got %q", out)
	}
}

func TestExpandEventID(t *testing.T) {
	e := &Expander{CurrentPath: "data/script/event/e0042.gds"}
	out, err := e.Expand("${eventid}", &gdscmd.Command{Name: "x"}, nil, "en")
	if err != nil {
		t.Fatal(err)
	}
	if out != "0042" {
		t.Fatalf("got %q", out)
	}
}

func TestExpandSnapModifier(t *testing.T) {
	e := &Expander{}
	args := []gdsmodel.Value{gdsmodel.IntValue{Raw: 157}}
	out, err := e.Expand("${1:r10<=100}", &gdscmd.Command{Name: "x"}, args, "en")
	if err != nil {
		t.Fatal(err)
	}
	if out != "100" {
		t.Fatalf("got %q, want capped at 100", out)
	}
}

func TestExpandZeroPadModifier(t *testing.T) {
	e := &Expander{}
	args := []gdsmodel.Value{gdsmodel.IntValue{Raw: 7}}
	out, err := e.Expand("${1:04}", &gdscmd.Command{Name: "x"}, args, "en")
	if err != nil {
		t.Fatal(err)
	}
	if out != "0007" {
		t.Fatalf("got %q", out)
	}
}

func TestExpandFileSpliceMissing(t *testing.T) {
	e := &Expander{WorkDir: t.TempDir()}
	out, err := e.Expand("$(nope.txt)", &gdscmd.Command{Name: "x"}, nil, "en")
	if err != nil {
		t.Fatal(err)
	}
	if out != "<FILE NOT FOUND>" {
		t.Fatalf("got %q", out)
	}
}

func TestExpandUnknownVariable(t *testing.T) {
	e := &Expander{}
	if _, err := e.Expand("${bogus}", &gdscmd.Command{Name: "x"}, nil, "en"); err == nil {
		t.Fatal("want error for unknown variable")
	}
}
