// Package writer implements the binary writer and backpatcher (§4.H):
// flattening a gdsmodel.Program back into a GDS token stream, lowering
// nested blocks into saddr/taddr pairs with freshly synthesized label
// names, and backpatching every jump address once its target's
// location is known.
//
// Grounded on the original compiler's CompilerState (write_label/
// write_addr: a use-location map and a label-location map, each
// definition patching every recorded use for its name) and on the
// teacher's pkg/asm/asm.go two-pass assembler (pass1 sizes/labels,
// pass2 emits and patches) — the same forward-reference-now,
// patch-later shape, including asm.go's fresh-label-synthesis pattern
// for lowering a structured block to a flat jump pair.
package writer

import (
	"bytes"
	"fmt"

	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdserr"
	"gdsc/pkg/gdsmodel"
	"gdsc/pkg/token"
)

// useSite is one saddr occurrence recorded during the flatten pass,
// pending resolution once its target label's location is known.
type useSite struct {
	name         string
	addrPatchPos int // payload-relative offset of the saddr's 4-byte Addr field
	selfKeyAbs   int // absolute file offset this use's Addr field key, i.e. loc+2
}

type flattener struct {
	buf bytes.Buffer

	labelLoc         map[string]int // name -> absolute address a saddr pointing here must carry
	taddrAddrPos     map[string]int // name -> payload-relative offset of a present taddr's own Addr field
	labelBackPointer map[string]int // name -> explicit back-pointer recorded on the label itself, if any
	uses             []useSite
	blockCounter     int
	labels           map[string]*gdsmodel.LabelInfo
}

// Write flattens prog into a complete GDS binary file, including the
// leading length header.
func Write(prog *gdsmodel.Program, registry *gdscmd.Registry) ([]byte, error) {
	f := &flattener{
		labelLoc:         make(map[string]int),
		taddrAddrPos:     make(map[string]int),
		labelBackPointer: make(map[string]int),
		labels:           prog.Labels,
	}
	if err := f.flattenElements(prog.Elements); err != nil {
		return nil, err
	}
	token.Encode(&f.buf, token.Token{Tag: token.TagFileEnd})

	payload := f.buf.Bytes()
	if err := f.finalize(payload); err != nil {
		return nil, err
	}
	return token.WriteHeader(payload), nil
}

func (f *flattener) pos() int { return token.HeaderSize + f.buf.Len() }

func (f *flattener) flattenElements(elements []gdsmodel.Element) error {
	for _, el := range elements {
		if err := f.flattenElement(el); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) flattenElement(el gdsmodel.Element) error {
	switch v := el.(type) {
	case *gdsmodel.Break:
		token.Encode(&f.buf, token.Token{Tag: token.TagBreak})
		return nil
	case *gdsmodel.Label:
		return f.flattenLabel(v)
	case *gdsmodel.Invocation:
		return f.flattenInvocation(v)
	default:
		return fmt.Errorf("writer: unknown element type %T", el)
	}
}

// flattenLabel emits a physical taddr for a present label, or records a
// bookkeeping address with no token at all for a synthetic one — the
// synthetic case exists purely because some earlier decode produced a
// jump target that never corresponded to a label word; recompiling it
// must reproduce that same absence.
func (f *flattener) flattenLabel(lbl *gdsmodel.Label) error {
	if !lbl.Present {
		f.labelLoc[lbl.Name] = f.pos()
		return nil
	}
	tagPayloadOffset := f.buf.Len()
	token.Encode(&f.buf, token.Token{Tag: token.TagTAddr, Addr: 0})
	addrPayloadOffset := tagPayloadOffset + 2
	f.labelLoc[lbl.Name] = token.HeaderSize + addrPayloadOffset
	f.taddrAddrPos[lbl.Name] = addrPayloadOffset
	if lbl.BackPointer != nil {
		f.labelBackPointer[lbl.Name] = *lbl.BackPointer
	}
	return nil
}

func (f *flattener) emitUse(name string) {
	tagPayloadOffset := f.buf.Len()
	token.Encode(&f.buf, token.Token{Tag: token.TagSAddr, Addr: 0})
	addrPayloadOffset := tagPayloadOffset + 2
	f.uses = append(f.uses, useSite{
		name:         name,
		addrPatchPos: addrPayloadOffset,
		selfKeyAbs:   token.HeaderSize + addrPayloadOffset,
	})
}

func (f *flattener) flattenInvocation(inv *gdsmodel.Invocation) error {
	switch inv.Kind {
	case gdsmodel.KindSimple:
		return f.flattenSimple(inv)
	case gdsmodel.KindIf, gdsmodel.KindElif, gdsmodel.KindWhile:
		return f.flattenConditional(inv)
	case gdsmodel.KindElse:
		token.Encode(&f.buf, token.Token{Tag: token.TagCommand, CommandID: inv.Command.CommandID()})
		return f.flattenTargetOrBlock(inv)
	case gdsmodel.KindRepeatN:
		return f.flattenRepeatN(inv)
	default:
		return fmt.Errorf("writer: unknown invocation kind %v", inv.Kind)
	}
}

func (f *flattener) flattenSimple(inv *gdsmodel.Invocation) error {
	token.Encode(&f.buf, token.Token{Tag: token.TagCommand, CommandID: inv.Command.CommandID()})
	for _, arg := range inv.Args {
		tok, err := valueToToken(arg)
		if err != nil {
			return err
		}
		token.Encode(&f.buf, tok)
	}
	return nil
}

func (f *flattener) flattenConditional(inv *gdsmodel.Invocation) error {
	token.Encode(&f.buf, token.Token{Tag: token.TagCommand, CommandID: inv.Command.CommandID()})
	for _, ct := range inv.Condition {
		switch v := ct.(type) {
		case gdsmodel.CondNot:
			token.Encode(&f.buf, token.Token{Tag: token.TagNot})
		case gdsmodel.CondAnd:
			token.Encode(&f.buf, token.Token{Tag: token.TagAnd})
		case gdsmodel.CondOr:
			token.Encode(&f.buf, token.Token{Tag: token.TagOr})
		case gdsmodel.CondInvocation:
			if err := f.flattenInvocation(v.Invocation); err != nil {
				return err
			}
		}
	}
	return f.flattenTargetOrBlock(inv)
}

func (f *flattener) flattenRepeatN(inv *gdsmodel.Invocation) error {
	token.Encode(&f.buf, token.Token{Tag: token.TagCommand, CommandID: inv.Command.CommandID()})
	token.Encode(&f.buf, token.Token{Tag: token.TagInt, Int: int64(inv.RepeatCount)})
	return f.flattenTargetOrBlock(inv)
}

// flattenTargetOrBlock emits the saddr for a style-1 (flat) invocation,
// or lowers a style-2 (structured) block by synthesizing a fresh
// globally-unique label, emitting the saddr/body/taddr triple around
// it — producing byte-identical output to the equivalent flat form.
func (f *flattener) flattenTargetOrBlock(inv *gdsmodel.Invocation) error {
	switch {
	case inv.Target != nil:
		f.emitUse(*inv.Target)
		return nil
	case inv.Block != nil:
		f.blockCounter++
		name := fmt.Sprintf("block_%d", f.blockCounter)
		f.emitUse(name)
		if err := f.flattenElements(inv.Block); err != nil {
			return err
		}
		return f.flattenLabel(&gdsmodel.Label{Name: name, Present: true})
	default:
		return fmt.Errorf("writer: invocation %q has neither target nor block", inv.Command.CommandName())
	}
}

// finalize backpatches every recorded use once every label's location
// is known, then stamps each present label's own back-pointer field.
// An explicit back-pointer recorded on the label itself is stamped
// as-is -- matching a source that never found a primary use on read, or
// carrying a multi-reference label's primary through a
// decompile/recompile via GDA text, where a JumpAddress's own Primary
// flag has no per-use textual representation. A label without one gets
// the location of whichever of its uses is flagged primary, or of its
// first use when none is (as for the block_N labels lowered here).
func (f *flattener) finalize(payload []byte) error {
	for _, u := range f.uses {
		target, ok := f.labelLoc[u.name]
		if !ok {
			return &gdserr.UnresolvedLabelError{Label: u.name}
		}
		patchUint32(payload, u.addrPatchPos, uint32(target))
	}

	order := make([]string, 0)
	byName := make(map[string][]useSite)
	for _, u := range f.uses {
		if _, ok := byName[u.name]; !ok {
			order = append(order, u.name)
		}
		byName[u.name] = append(byName[u.name], u)
	}

	for _, name := range order {
		addrPos, hasTaddr := f.taddrAddrPos[name]
		if !hasTaddr {
			continue
		}
		list := byName[name]
		backptr, hasBackPtr := f.labelBackPointer[name]
		if !hasBackPtr {
			backptr = list[0].selfKeyAbs
			if info, ok := f.labels[name]; ok {
				for i, ja := range info.JumpAddrs {
					if ja.Primary && i < len(list) {
						backptr = list[i].selfKeyAbs
						break
					}
				}
			}
		}
		patchUint32(payload, addrPos, uint32(backptr))
	}
	return nil
}

func patchUint32(buf []byte, at int, v uint32) {
	buf[at] = byte(v)
	buf[at+1] = byte(v >> 8)
	buf[at+2] = byte(v >> 16)
	buf[at+3] = byte(v >> 24)
}

func valueToToken(v gdsmodel.Value) (token.Token, error) {
	switch val := v.(type) {
	case gdsmodel.IntValue:
		return token.Token{Tag: token.TagInt, Int: val.Raw}, nil
	case gdsmodel.FloatValue:
		return token.Token{Tag: token.TagFloat, Float: val.Raw}, nil
	case gdsmodel.StringValue:
		tag := token.TagString
		if val.Kind == gdsmodel.StringLong {
			tag = token.TagLongStr
		}
		return token.Token{Tag: tag, Str: val.Raw}, nil
	case gdsmodel.BoolValue:
		if val.Backing == gdsmodel.BoolBackingString {
			s := "false"
			if val.Raw {
				s = "true"
			}
			return token.Token{Tag: token.TagString, Str: s}, nil
		}
		n := int64(0)
		if val.Raw {
			n = 1
		}
		return token.Token{Tag: token.TagInt, Int: n}, nil
	default:
		return token.Token{}, fmt.Errorf("writer: unsupported value type %T", v)
	}
}
