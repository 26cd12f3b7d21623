package writer

import (
	"bytes"
	"testing"

	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdsvalue"
	"gdsc/pkg/reader"
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

// roundTrip reads original through the decoder and writes the result
// back out, failing the test unless the two byte strings are identical.
func roundTrip(t *testing.T, reg *gdscmd.Registry, original []byte) {
	t.Helper()
	prog, err := reader.Read(original, reg, "test.gds", nil)
	if err != nil {
		t.Fatalf("reader.Read: %v", err)
	}
	out, err := Write(prog, reg)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(out, original) {
		t.Fatalf("round trip mismatch:\n got  % x\n want % x", out, original)
	}
}

// S1: an empty program round-trips to just the fileend token.
func TestWriteRoundTripEmptyProgram(t *testing.T) {
	reg := testRegistry(t)
	var payload bytes.Buffer
	token.Encode(&payload, token.Token{Tag: token.TagFileEnd})
	roundTrip(t, reg, buildFile(payload.Bytes()))
}

// S2: a single simple invocation with one int argument.
func TestWriteRoundTripSimpleInvocation(t *testing.T) {
	reg := testRegistry(t)
	var payload bytes.Buffer
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x42})
	token.Encode(&payload, token.Token{Tag: token.TagInt, Int: 7})
	token.Encode(&payload, token.Token{Tag: token.TagFileEnd})
	roundTrip(t, reg, buildFile(payload.Bytes()))
}

// buildIfBlock encodes: if 0x30: { 0x55 } — a forward, singly-referenced
// branch that the reader folds into a Block, and the writer must lower
// back to the exact same saddr/body/taddr byte layout.
func buildIfBlock(t *testing.T) []byte {
	t.Helper()
	var payload bytes.Buffer
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x14}) // if
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x30}) // cond_thing

	header := token.HeaderSize
	saddrPos := payload.Len()
	token.Encode(&payload, token.Token{Tag: token.TagSAddr, Addr: 0})
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x55})
	taddrPos := payload.Len()
	labelTarget := header + taddrPos + 2
	token.Encode(&payload, token.Token{Tag: token.TagTAddr, Addr: header + saddrPos + 2})

	buf := payload.Bytes()
	patchUint32(buf, saddrPos+2, uint32(labelTarget))

	var final bytes.Buffer
	final.Write(buf)
	token.Encode(&final, token.Token{Tag: token.TagFileEnd})
	return buildFile(final.Bytes())
}

// S3: an if-block with a forward branch folds into a Block on read and
// must lower back to byte-identical saddr/taddr placement on write.
func TestWriteRoundTripIfBlock(t *testing.T) {
	reg := testRegistry(t)
	roundTrip(t, reg, buildIfBlock(t))
}

// buildRepeatN encodes: repeatN 3: { 0x55 } — a forward, singly
// referenced repeatN loop body, mirroring buildIfBlock's shape.
func buildRepeatN(t *testing.T) []byte {
	t.Helper()
	var payload bytes.Buffer
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x18}) // repeatN
	token.Encode(&payload, token.Token{Tag: token.TagInt, Int: 3})

	header := token.HeaderSize
	saddrPos := payload.Len()
	token.Encode(&payload, token.Token{Tag: token.TagSAddr, Addr: 0})
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x55})
	taddrPos := payload.Len()
	labelTarget := header + taddrPos + 2
	token.Encode(&payload, token.Token{Tag: token.TagTAddr, Addr: header + saddrPos + 2})

	buf := payload.Bytes()
	patchUint32(buf, saddrPos+2, uint32(labelTarget))

	var final bytes.Buffer
	final.Write(buf)
	token.Encode(&final, token.Token{Tag: token.TagFileEnd})
	return buildFile(final.Bytes())
}

// S4: a repeatN 3 loop with a body folds and re-lowers byte-identically.
func TestWriteRoundTripRepeatN(t *testing.T) {
	reg := testRegistry(t)
	roundTrip(t, reg, buildRepeatN(t))
}

// A while loop whose label is its own backward jump target is the
// common single-reference case bug reports warned could spuriously
// gain a back-pointer annotation; it must still round-trip exactly,
// and the label it produces must carry no back-pointer once named.
func TestWriteRoundTripWhileBackwardJump(t *testing.T) {
	reg := testRegistry(t)

	header := token.HeaderSize
	var payload bytes.Buffer
	taddrPos := payload.Len()
	labelLoc := header + taddrPos + 2
	token.Encode(&payload, token.Token{Tag: token.TagTAddr, Addr: 0})
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x17}) // while
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x30}) // cond_thing
	saddrPos := payload.Len()
	token.Encode(&payload, token.Token{Tag: token.TagSAddr, Addr: labelLoc})
	token.Encode(&payload, token.Token{Tag: token.TagFileEnd})

	// A real compiler patches the label's own back-pointer word to the
	// location of its sole (and therefore primary) backward reference.
	backptr := header + saddrPos + 2
	buf := payload.Bytes()
	patchUint32(buf, taddrPos+2, uint32(backptr))

	original := buildFile(buf)

	prog, err := reader.Read(original, reg, "test.gds", nil)
	if err != nil {
		t.Fatalf("reader.Read: %v", err)
	}
	for name, info := range prog.Labels {
		for _, d := range info.Definitions {
			if d.BackPointer != nil {
				t.Fatalf("label %q kept a back-pointer for its only reference: %d", name, *d.BackPointer)
			}
		}
	}

	out, err := Write(prog, reg)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(out, original) {
		t.Fatalf("round trip mismatch:\n got  % x\n want % x", out, original)
	}
}

// Two while loops sharing one label by address: the binary's stored
// back-pointer picks out the second jump as primary, and that choice
// must survive a full write even though it isn't the first-declared
// reference in flattening order.
func TestWriteRoundTripSharedLabelSecondReferencePrimary(t *testing.T) {
	reg := testRegistry(t)
	header := token.HeaderSize

	var payload bytes.Buffer
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x17}) // while #1
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x30})
	firstSaddrPos := payload.Len()
	token.Encode(&payload, token.Token{Tag: token.TagSAddr, Addr: 0})

	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x17}) // while #2
	token.Encode(&payload, token.Token{Tag: token.TagCommand, CommandID: 0x30})
	secondSaddrPos := payload.Len()
	token.Encode(&payload, token.Token{Tag: token.TagSAddr, Addr: 0})

	taddrPos := payload.Len()
	secondUseLoc := header + secondSaddrPos + 2
	token.Encode(&payload, token.Token{Tag: token.TagTAddr, Addr: secondUseLoc})
	token.Encode(&payload, token.Token{Tag: token.TagFileEnd})

	labelTarget := header + taddrPos + 2
	buf := payload.Bytes()
	patchUint32(buf, firstSaddrPos+2, uint32(labelTarget))
	patchUint32(buf, secondSaddrPos+2, uint32(labelTarget))

	original := buildFile(buf)

	roundTrip(t, reg, original)
}
