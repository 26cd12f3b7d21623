package token

import (
	"bytes"
	"reflect"
	"testing"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tok  Token
	}{
		{"command", Token{Tag: TagCommand, CommandID: 0x42}},
		{"int positive", Token{Tag: TagInt, Int: 7}},
		{"int negative", Token{Tag: TagInt, Int: -1}},
		{"float", Token{Tag: TagFloat, Float: 3.14}},
		{"string", Token{Tag: TagString, Str: "hello"}},
		{"longstr", Token{Tag: TagLongStr, Str: "a longer string"}},
		{"saddr", Token{Tag: TagSAddr, Addr: 100}},
		{"taddr", Token{Tag: TagTAddr, Addr: 200}},
		{"not", Token{Tag: TagNot}},
		{"and", Token{Tag: TagAnd}},
		{"or", Token{Tag: TagOr}},
		{"break", Token{Tag: TagBreak}},
		{"fileend", Token{Tag: TagFileEnd}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Encode(&buf, tt.tok)

			cursor := 0
			got, err := Decode(buf.Bytes(), &cursor)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			want := tt.tok
			want.Loc = 0
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Decode(Encode(%+v)) = %+v, want %+v", tt.tok, got, want)
			}
			if cursor != buf.Len() {
				t.Fatalf("cursor = %d after decode, want %d (consume exactly the encoded bytes)", cursor, buf.Len())
			}
		})
	}
}

func TestDecodeTracksAbsoluteLocation(t *testing.T) {
	var buf bytes.Buffer
	Encode(&buf, Token{Tag: TagBreak})
	Encode(&buf, Token{Tag: TagCommand, CommandID: 5})

	data := buf.Bytes()
	cursor := 4 // simulate starting past the 4-byte file header
	full := append(make([]byte, 4), data...)

	first, err := Decode(full, &cursor)
	if err != nil {
		t.Fatal(err)
	}
	if first.Loc != 4 {
		t.Fatalf("first.Loc = %d, want 4", first.Loc)
	}

	second, err := Decode(full, &cursor)
	if err != nil {
		t.Fatal(err)
	}
	if second.Loc != 6 {
		t.Fatalf("second.Loc = %d, want 6 (BREAK token is 2 bytes)", second.Loc)
	}
}

func TestWriteHeader(t *testing.T) {
	payload := []byte{0x0C, 0x00}
	got := WriteHeader(payload)
	want := []byte{0x02, 0x00, 0x00, 0x00, 0x0C, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("WriteHeader = % X, want % X", got, want)
	}
}

func TestDecodeInvalidTag(t *testing.T) {
	data := []byte{0xFF, 0xFF}
	cursor := 0
	if _, err := Decode(data, &cursor); err == nil {
		t.Fatal("expected error for invalid tag")
	}
}
