package gda

import "testing"

func TestLexBasicTokens(t *testing.T) {
	toks, err := Lex(`@label foo.bar(1, -2.5, "hi\n") @!other(12) : { } , 0x1F`)
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenType{
		AT, IDENT, DOTTED_IDENT, LPAREN, INT, COMMA, FLOAT, COMMA, STRING, RPAREN,
		AT, BANG, IDENT, LPAREN, INT, RPAREN, COLON, LBRACE, RBRACE, COMMA, HEX_ID, EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Fatalf("token %d: got %s, want %s (%v)", i, toks[i].Type, tt, toks[i])
		}
	}
}

func TestLexVersionHeader(t *testing.T) {
	toks, err := Lex("#!version 1.0\nfoo\n")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != VERSION_HEADER {
		t.Fatalf("got %v, want VERSION_HEADER", toks[0])
	}
	if toks[1].Type != IDENT || toks[1].Lexeme != "foo" {
		t.Fatalf("got %v, want IDENT foo", toks[1])
	}
}

func TestLexLineComment(t *testing.T) {
	toks, err := Lex("foo # trailing comment\nbar")
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 3 || toks[0].Lexeme != "foo" || toks[1].Lexeme != "bar" {
		t.Fatalf("got %v", toks)
	}
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	if _, err := Lex(`"unterminated`); err == nil {
		t.Fatal("want error")
	}
}

func TestParseHexID(t *testing.T) {
	n, err := ParseHexID("0x2A")
	if err != nil {
		t.Fatal(err)
	}
	if n != 42 {
		t.Fatalf("got %d, want 42", n)
	}
}
