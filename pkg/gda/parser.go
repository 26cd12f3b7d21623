package gda

import (
	"fmt"
	"strconv"
	"strings"

	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdserr"
	"gdsc/pkg/gdsmodel"
	"gdsc/pkg/gdsvalue"
)

// Parser is a hand-written recursive-descent parser over a GDA token
// stream, one method per production in §4.F's grammar — the same shape
// as the teacher repo's own Parser (a token slice + position, with
// expect/match/peek helpers), retargeted to GDA's grammar.
type Parser struct {
	tokens   []Token
	pos      int
	registry *gdscmd.Registry
	diag     gdserr.Diagnostics
}

// Parse parses a complete GDA source file into a Program. diag is an
// optional Diagnostics sink for RangeWarning; omit it (or pass nil) to
// discard warnings.
func Parse(src string, registry *gdscmd.Registry, path string, diag ...gdserr.Diagnostics) (*gdsmodel.Program, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, &gdserr.SyntaxError{Msg: err.Error()}
	}
	p := &Parser{tokens: tokens, registry: registry}
	if len(diag) > 0 {
		p.diag = diag[0]
	}
	return p.parseProgram(path)
}

func (p *Parser) peek() Token  { return p.tokens[p.pos] }
func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tt TokenType) bool { return p.peek().Type == tt }

func (p *Parser) match(tt TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if !p.check(tt) {
		tok := p.peek()
		return Token{}, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("expected %s, got %s %q", tt, tok.Type, tok.Lexeme)}
	}
	return p.advance(), nil
}

func (p *Parser) parseProgram(path string) (*gdsmodel.Program, error) {
	if p.check(VERSION_HEADER) {
		p.advance()
	}
	var elements []gdsmodel.Element
	for !p.check(EOF) {
		el, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	labels, err := collectLabels(elements)
	if err != nil {
		return nil, err
	}
	ctx := gdsmodel.BuildContext(elements, "")
	return &gdsmodel.Program{SourcePath: path, Elements: elements, Context: ctx, Labels: labels}, nil
}

func (p *Parser) parseElement() (gdsmodel.Element, error) {
	tok := p.peek()
	if tok.Type == IDENT && tok.Lexeme == "break" {
		p.advance()
		return &gdsmodel.Break{}, nil
	}
	if tok.Type == AT {
		return p.parseLabel()
	}
	return p.parseCommand()
}

func (p *Parser) parseLabel() (gdsmodel.Element, error) {
	p.advance() // '@'
	present := true
	if p.match(BANG) {
		present = false
	}
	nameTok, err := p.expectName()
	if err != nil {
		return nil, err
	}
	lbl := &gdsmodel.Label{Name: nameTok.Lexeme, Present: present}
	if p.match(LPAREN) {
		addrTok := p.advance()
		n, err := strconv.ParseInt(addrTok.Lexeme, 0, 64)
		if err != nil {
			return nil, &gdserr.SyntaxError{Line: addrTok.Line, Msg: fmt.Sprintf("malformed back-pointer literal %q", addrTok.Lexeme)}
		}
		v := int(n)
		lbl.BackPointer = &v
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}
	return lbl, nil
}

func (p *Parser) expectName() (Token, error) {
	tok := p.peek()
	if tok.Type != IDENT && tok.Type != DOTTED_IDENT {
		return Token{}, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("expected a name, got %s %q", tok.Type, tok.Lexeme)}
	}
	return p.advance(), nil
}

func (p *Parser) parseAddrRef() (string, error) {
	if _, err := p.expect(AT); err != nil {
		return "", err
	}
	p.match(BANG)
	nameTok, err := p.expectName()
	if err != nil {
		return "", err
	}
	return nameTok.Lexeme, nil
}

func (p *Parser) resolveCommand() (*gdscmd.Command, error) {
	tok := p.peek()
	switch tok.Type {
	case IDENT, DOTTED_IDENT:
		p.advance()
		cmd, ok := p.registry.ByName(tok.Lexeme)
		if !ok {
			return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("unknown command %q", tok.Lexeme)}
		}
		return cmd, nil
	case HEX_ID:
		p.advance()
		id, err := ParseHexID(tok.Lexeme)
		if err != nil {
			return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("malformed command id %q", tok.Lexeme)}
		}
		cmd, ok := p.registry.ByID(id)
		if !ok {
			return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("unknown command id 0x%02X", id)}
		}
		return cmd, nil
	default:
		return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("expected a command, got %s %q", tok.Type, tok.Lexeme)}
	}
}

func (p *Parser) parseCommand() (gdsmodel.Element, error) {
	cmd, err := p.resolveCommand()
	if err != nil {
		return nil, err
	}
	if cmd.Complex {
		return p.parseComplex(cmd)
	}
	return p.parseSimple(cmd)
}

func (p *Parser) parseSimple(cmd *gdscmd.Command) (*gdsmodel.Invocation, error) {
	inv := &gdsmodel.Invocation{Command: cmd, Kind: gdsmodel.KindSimple, RepeatCount: -1}

	if !p.match(LPAREN) {
		for _, param := range cmd.Params {
			if !param.Optional {
				tok := p.peek()
				return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("command %q requires arguments", cmd.Name)}
			}
		}
		return inv, nil
	}

	if !p.check(RPAREN) {
		for idx := 0; ; idx++ {
			if idx >= len(cmd.Params) {
				tok := p.peek()
				return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("too many arguments to %q", cmd.Name)}
			}
			v, err := p.parseValue(cmd.Params[idx])
			if err != nil {
				return nil, err
			}
			inv.Args = append(inv.Args, v)
			if !p.match(COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *Parser) parseValue(param gdscmd.Param) (gdsmodel.Value, error) {
	tok := p.peek()
	var text string
	switch tok.Type {
	case INT, FLOAT, HEX_ID:
		text = tok.Lexeme
		p.advance()
	case STRING:
		text = strconv.Quote(tok.Lexeme)
		p.advance()
	case IDENT:
		text = tok.Lexeme
		p.advance()
	default:
		return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("unexpected token %s %q in argument position", tok.Type, tok.Lexeme)}
	}
	v, err := param.Type.ParseLiteral(text)
	if err != nil {
		return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: err.Error()}
	}
	if msg, exceeds := gdsvalue.CheckRange(param.Type, v); exceeds {
		gdserr.Emit(p.diag, gdserr.Warning{Kind: gdserr.RangeWarning, Msg: msg})
	}
	return v, nil
}

func (p *Parser) parseComplex(cmd *gdscmd.Command) (*gdsmodel.Invocation, error) {
	switch cmd.Name {
	case "if":
		return p.parseIfLike(cmd, gdsmodel.KindIf)
	case "elif":
		return p.parseIfLike(cmd, gdsmodel.KindElif)
	case "while":
		return p.parseIfLike(cmd, gdsmodel.KindWhile)
	case "else":
		return p.parseElse(cmd)
	case "repeatN":
		return p.parseRepeatN(cmd)
	default:
		tok := p.peek()
		return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("complex command %q has no parser handler", cmd.Name)}
	}
}

func (p *Parser) parseIfLike(cmd *gdscmd.Command, kind gdsmodel.InvocationKind) (*gdsmodel.Invocation, error) {
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	inv := &gdsmodel.Invocation{Command: cmd, Kind: kind, Condition: cond, RepeatCount: -1}
	if err := p.parseTargetOrBlock(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *Parser) parseElse(cmd *gdscmd.Command) (*gdsmodel.Invocation, error) {
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	inv := &gdsmodel.Invocation{Command: cmd, Kind: gdsmodel.KindElse, RepeatCount: -1}
	if err := p.parseTargetOrBlock(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *Parser) parseRepeatN(cmd *gdscmd.Command) (*gdsmodel.Invocation, error) {
	tok, err := p.expect(INT)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(tok.Lexeme)
	if err != nil || n < 0 {
		return nil, &gdserr.SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("malformed repeatN count %q", tok.Lexeme)}
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	inv := &gdsmodel.Invocation{Command: cmd, Kind: gdsmodel.KindRepeatN, RepeatCount: n}
	if err := p.parseTargetOrBlock(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *Parser) parseTargetOrBlock(inv *gdsmodel.Invocation) error {
	if p.check(AT) {
		name, err := p.parseAddrRef()
		if err != nil {
			return err
		}
		inv.Target = &name
		return nil
	}
	block, err := p.parseBlock()
	if err != nil {
		return err
	}
	inv.Block = block
	return nil
}

func (p *Parser) parseBlock() ([]gdsmodel.Element, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var elements []gdsmodel.Element
	for !p.check(RBRACE) {
		if p.check(EOF) {
			return nil, &gdserr.SyntaxError{Line: p.peek().Line, Msg: "unclosed block"}
		}
		el, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return elements, nil
}

func (p *Parser) parseCondition() ([]gdsmodel.ConditionToken, error) {
	var tokens []gdsmodel.ConditionToken
	for !p.check(COLON) {
		if p.check(EOF) {
			return nil, &gdserr.SyntaxError{Line: p.peek().Line, Msg: "unterminated condition"}
		}
		tok := p.peek()
		if tok.Type == IDENT {
			switch strings.ToLower(tok.Lexeme) {
			case "not":
				p.advance()
				tokens = append(tokens, gdsmodel.CondNot{})
				continue
			case "and":
				p.advance()
				tokens = append(tokens, gdsmodel.CondAnd{})
				continue
			case "or":
				p.advance()
				tokens = append(tokens, gdsmodel.CondOr{})
				continue
			}
		}
		cmd, err := p.resolveCommand()
		if err != nil {
			return nil, err
		}
		var inv *gdsmodel.Invocation
		if cmd.Complex {
			embedded, err := p.parseComplex(cmd)
			if err != nil {
				return nil, err
			}
			inv = embedded
		} else {
			embedded, err := p.parseSimple(cmd)
			if err != nil {
				return nil, err
			}
			inv = embedded
		}
		tokens = append(tokens, gdsmodel.CondInvocation{Invocation: inv})
	}
	return tokens, nil
}
