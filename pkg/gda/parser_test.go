package gda

import (
	"testing"

	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdsmodel"
	"gdsc/pkg/gdsvalue"
)

func testRegistry(t *testing.T) *gdscmd.Registry {
	t.Helper()
	intType, err := gdsvalue.ParseDescriptor("int")
	if err != nil {
		t.Fatal(err)
	}
	defs := &gdscmd.Definitions{
		Root: &gdscmd.Group{
			Commands: []*gdscmd.Command{
				{ID: 0x42, Name: "do_thing", Params: []gdscmd.Param{{Type: intType, Name: "n"}}},
				{ID: 0x43, Name: "noop"},
				{ID: 0x14, Name: "if", Complex: true},
				{ID: 0x16, Name: "else", Complex: true},
				{ID: 0x17, Name: "while", Complex: true},
				{ID: 0x18, Name: "repeatN", Complex: true},
				{ID: 0x30, Name: "cond_thing"},
			},
		},
	}
	reg, err := gdscmd.BuildRegistry(defs, nil)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestParseSimpleCommand(t *testing.T) {
	reg := testRegistry(t)
	prog, err := Parse("#!version 1.0\ndo_thing(7)\n", reg, "test.gda")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Elements) != 1 {
		t.Fatalf("elements = %v, want 1", prog.Elements)
	}
	inv, ok := prog.Elements[0].(*gdsmodel.Invocation)
	if !ok {
		t.Fatalf("element = %T, want *Invocation", prog.Elements[0])
	}
	iv, ok := inv.Args[0].(gdsmodel.IntValue)
	if !ok || iv.Raw != 7 {
		t.Fatalf("arg = %+v, want IntValue{Raw:7}", inv.Args[0])
	}
}

func TestParseCommandNoArgsNoParens(t *testing.T) {
	reg := testRegistry(t)
	prog, err := Parse("noop\n", reg, "test.gda")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Elements) != 1 {
		t.Fatalf("elements = %v, want 1", prog.Elements)
	}
}

func TestParseLabelAndBreak(t *testing.T) {
	reg := testRegistry(t)
	prog, err := Parse("@top\nbreak\n@!synthetic(12)\n", reg, "test.gda")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Elements) != 3 {
		t.Fatalf("elements = %v, want 3", prog.Elements)
	}
	lbl, ok := prog.Elements[0].(*gdsmodel.Label)
	if !ok || lbl.Name != "top" || !lbl.Present {
		t.Fatalf("label = %+v", prog.Elements[0])
	}
	if _, ok := prog.Elements[1].(*gdsmodel.Break); !ok {
		t.Fatalf("element 1 = %T, want Break", prog.Elements[1])
	}
	synth, ok := prog.Elements[2].(*gdsmodel.Label)
	if !ok || synth.Present || synth.BackPointer == nil || *synth.BackPointer != 12 {
		t.Fatalf("synthetic label = %+v", prog.Elements[2])
	}
}

func TestParseIfWithBlock(t *testing.T) {
	reg := testRegistry(t)
	prog, err := Parse("if cond_thing: {\n  do_thing(1)\n}\n", reg, "test.gda")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Elements) != 1 {
		t.Fatalf("elements = %v, want 1", prog.Elements)
	}
	inv, ok := prog.Elements[0].(*gdsmodel.Invocation)
	if !ok || inv.Kind != gdsmodel.KindIf {
		t.Fatalf("element = %+v, want if invocation", prog.Elements[0])
	}
	if len(inv.Condition) != 1 {
		t.Fatalf("condition = %v, want 1 token", inv.Condition)
	}
	if len(inv.Block) != 1 {
		t.Fatalf("block = %v, want 1 element", inv.Block)
	}
}

func TestParseIfWithTarget(t *testing.T) {
	reg := testRegistry(t)
	prog, err := Parse("if cond_thing: @skip\n@skip\n", reg, "test.gda")
	if err != nil {
		t.Fatal(err)
	}
	inv, ok := prog.Elements[0].(*gdsmodel.Invocation)
	if !ok || inv.Target == nil || *inv.Target != "skip" {
		t.Fatalf("element = %+v, want target skip", prog.Elements[0])
	}
	info, ok := prog.Labels["skip"]
	if !ok || len(info.JumpAddrs) != 1 || !info.JumpAddrs[0].Primary {
		t.Fatalf("labels[skip] = %+v", info)
	}
}

func TestParseRepeatNAndWhile(t *testing.T) {
	reg := testRegistry(t)
	prog, err := Parse("repeatN 3: { noop }\nwhile cond_thing: { noop }\n", reg, "test.gda")
	if err != nil {
		t.Fatal(err)
	}
	rep, ok := prog.Elements[0].(*gdsmodel.Invocation)
	if !ok || rep.Kind != gdsmodel.KindRepeatN || rep.RepeatCount != 3 {
		t.Fatalf("element 0 = %+v", prog.Elements[0])
	}
	wh, ok := prog.Elements[1].(*gdsmodel.Invocation)
	if !ok || wh.Kind != gdsmodel.KindWhile {
		t.Fatalf("element 1 = %+v", prog.Elements[1])
	}
}

func TestParseUnknownCommandErrors(t *testing.T) {
	reg := testRegistry(t)
	if _, err := Parse("bogus_command(1)\n", reg, "test.gda"); err == nil {
		t.Fatal("want error for unknown command")
	}
}

func TestParseDuplicatePresentLabelErrors(t *testing.T) {
	reg := testRegistry(t)
	if _, err := Parse("@dup\n@dup\n", reg, "test.gda"); err == nil {
		t.Fatal("want error for duplicate present label")
	}
}
