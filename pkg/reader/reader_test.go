package reader

import (
	"bytes"
	"testing"

	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdsmodel"
	"gdsc/pkg/gdsvalue"
	"gdsc/pkg/token"
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
				{ID: 0x14, Name: "if", Complex: true},
				{ID: 0x15, Name: "elif", Complex: true},
				{ID: 0x16, Name: "else", Complex: true},
				{ID: 0x17, Name: "while", Complex: true},
				{ID: 0x18, Name: "repeatN", Complex: true},
				{ID: 0x30, Name: "cond_thing"},
				{ID: 0x55, Name: "body_thing"},
				{ID: 0x99, Name: "noop"},
			},
		},
	}
	reg, err := gdscmd.BuildRegistry(defs, nil)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func buildFile(payload []byte) []byte {
	return token.WriteHeader(payload)
}

func TestReadEmptyProgram(t *testing.T) {
	reg := testRegistry(t)
	var payload bytes.Buffer
	token.Encode(&payload, token.Token{Tag: token.TagFileEnd})

	prog, err := Read(buildFile(payload.Bytes()), reg, "test.gds", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Elements) != 0 {
		t.Fatalf("elements = %v, want empty", prog.Elements)
	}
}

func TestReadSimpleInvocation(t *testing.T) {
	reg := testRegistry(t)
	var payload bytes.Buffer
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x42})
	token.Encode(&payload, token.Token{Tag: token.TagInt, Int: 7})
	token.Encode(&payload, token.Token{Tag: token.TagFileEnd})

	prog, err := Read(buildFile(payload.Bytes()), reg, "test.gds", nil)
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
	if inv.Command.CommandID() != 0x42 {
		t.Fatalf("command id = %d, want 0x42", inv.Command.CommandID())
	}
	if len(inv.Args) != 1 {
		t.Fatalf("args = %v, want 1", inv.Args)
	}
	iv, ok := inv.Args[0].(gdsmodel.IntValue)
	if !ok || iv.Raw != 7 {
		t.Fatalf("arg = %+v, want IntValue{Raw: 7}", inv.Args[0])
	}
}

// buildIfBlock encodes: if 0x30: { 0x55 } — an if command with a single
// embedded condition invocation (0x30), branching past one body
// instruction (0x55) to a label immediately after it.
func buildIfBlock(t *testing.T) []byte {
	t.Helper()
	var payload bytes.Buffer
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x14}) // if
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x30}) // cond_thing

	// saddr payload must equal (taddr tag offset + 2); compute it by
	// encoding in two passes since the address depends on later offsets.
	header := token.HeaderSize
	afterIfCond := header + 4 + 4 // if and cond_thing: two command tokens, 4 bytes each (tag+id)
	_ = afterIfCond

	// Build with placeholder, then patch, mirroring the real writer's
	// backpatch approach rather than hand-computing offsets twice.
	saddrPos := payload.Len()
	token.Encode(&payload, token.Token{Tag: token.TagSAddr, Addr: 0})
	bodyPos := payload.Len()
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x55})
	taddrPos := payload.Len()
	labelTarget := header + taddrPos + 2
	token.Encode(&payload, token.Token{Tag: token.TagTAddr, Addr: header + saddrPos + 2})

	buf := payload.Bytes()
	// Patch the saddr payload (4 bytes right after its 2-byte tag) to
	// point at labelTarget.
	patchUint32(buf, saddrPos+2, uint32(labelTarget))
	_ = bodyPos

	var final bytes.Buffer
	final.Write(buf)
	token.Encode(&final, token.Token{Tag: token.TagFileEnd})

	return buildFile(final.Bytes())
}

func patchUint32(buf []byte, at int, v uint32) {
	buf[at] = byte(v)
	buf[at+1] = byte(v >> 8)
	buf[at+2] = byte(v >> 16)
	buf[at+3] = byte(v >> 24)
}

func TestReadIfBlockFoldsIntoBlock(t *testing.T) {
	reg := testRegistry(t)
	data := buildIfBlock(t)

	prog, err := Read(data, reg, "test.gds", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Elements) != 1 {
		t.Fatalf("elements = %v, want 1 top-level element (folded)", prog.Elements)
	}
	inv, ok := prog.Elements[0].(*gdsmodel.Invocation)
	if !ok || inv.Kind != gdsmodel.KindIf {
		t.Fatalf("element = %+v, want if invocation", prog.Elements[0])
	}
	if inv.Target != nil {
		t.Fatalf("Target = %v, want nil (folded into Block)", *inv.Target)
	}
	if len(inv.Block) != 1 {
		t.Fatalf("Block = %v, want 1 element", inv.Block)
	}
	body, ok := inv.Block[0].(*gdsmodel.Invocation)
	if !ok || body.Command.CommandID() != 0x55 {
		t.Fatalf("block body = %+v, want 0x55 invocation", inv.Block[0])
	}
	if len(inv.Condition) != 1 {
		t.Fatalf("condition = %v, want 1 token", inv.Condition)
	}
}

func TestLabelWellFormedness(t *testing.T) {
	reg := testRegistry(t)
	data := buildIfBlock(t)
	prog, err := Read(data, reg, "test.gds", nil)
	if err != nil {
		t.Fatal(err)
	}
	for name, info := range prog.Labels {
		primaryCount := 0
		for _, ja := range info.JumpAddrs {
			if ja.Primary {
				primaryCount++
			}
		}
		if len(info.JumpAddrs) > 0 && primaryCount != 1 {
			t.Fatalf("label %q has %d primary references, want 1", name, primaryCount)
		}
	}
}
