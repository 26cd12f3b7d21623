package gda

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gdsc/pkg/doctemplate"
	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdsmodel"
)

// WriteOptions controls optional output features of Write.
type WriteOptions struct {
	// Version is rendered into the "#!version X.Y" header.
	Version string
	// ExpandDocs, when true, emits a block comment above every simple
	// invocation whose command carries a doc template, by expanding it
	// through pkg/doctemplate.
	ExpandDocs bool
	// Lang is the doc-template language variable, passed through to
	// pkg/doctemplate unchanged.
	Lang string
	// Expander performs the actual template expansion. Required when
	// ExpandDocs is true.
	Expander *doctemplate.Expander
}

// lineWriter is a tiny line emitter mirroring the teacher's CodeGen:
// an explicit depth counter plus a buffered writer, one line at a time,
// rather than building the whole program in memory as one string.
type lineWriter struct {
	w     *bufio.Writer
	depth int
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: bufio.NewWriter(w)}
}

func (lw *lineWriter) indent() string { return strings.Repeat("  ", lw.depth) }

func (lw *lineWriter) emit(format string, args ...any) {
	fmt.Fprintf(lw.w, "%s%s\n", lw.indent(), fmt.Sprintf(format, args...))
}

func (lw *lineWriter) emitRaw(s string) {
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		fmt.Fprintf(lw.w, "%s# %s\n", lw.indent(), line)
	}
}

// Write renders prog as GDA source text.
func Write(w io.Writer, prog *gdsmodel.Program, opts WriteOptions) error {
	lw := newLineWriter(w)

	version := opts.Version
	if version == "" {
		version = "1.0"
	}
	fmt.Fprintf(lw.w, "#!version %s\n", version)
	if prog.SourcePath != "" {
		lw.emit("# %s", prog.SourcePath)
	}

	if err := writeElements(lw, prog.Elements, opts); err != nil {
		return err
	}
	return lw.w.Flush()
}

func writeElements(lw *lineWriter, elements []gdsmodel.Element, opts WriteOptions) error {
	for _, el := range elements {
		if err := writeElement(lw, el, opts); err != nil {
			return err
		}
	}
	return nil
}

func writeElement(lw *lineWriter, el gdsmodel.Element, opts WriteOptions) error {
	switch v := el.(type) {
	case *gdsmodel.Break:
		lw.emit("break")
		return nil
	case *gdsmodel.Label:
		lw.emit("%s", formatLabel(v))
		return nil
	case *gdsmodel.Invocation:
		return writeInvocation(lw, v, opts)
	default:
		return fmt.Errorf("gda: unknown element type %T", el)
	}
}

func formatLabel(lbl *gdsmodel.Label) string {
	var sb strings.Builder
	sb.WriteString("@")
	if !lbl.Present {
		sb.WriteString("!")
	}
	sb.WriteString(lbl.Name)
	if lbl.BackPointer != nil {
		fmt.Fprintf(&sb, "(%d)", *lbl.BackPointer)
	}
	return sb.String()
}

func formatAddr(name string, present bool) string {
	if present {
		return "@" + name
	}
	return "@!" + name
}

func writeInvocation(lw *lineWriter, inv *gdsmodel.Invocation, opts WriteOptions) error {
	cmd, _ := inv.Command.(*gdscmd.Command)

	switch inv.Kind {
	case gdsmodel.KindSimple:
		return writeSimple(lw, inv, cmd, opts)
	case gdsmodel.KindIf, gdsmodel.KindElif, gdsmodel.KindWhile:
		return writeConditional(lw, inv, opts)
	case gdsmodel.KindElse:
		return writeTargetOrBlock(lw, "else:", inv, opts)
	case gdsmodel.KindRepeatN:
		return writeTargetOrBlock(lw, fmt.Sprintf("repeatN %d:", inv.RepeatCount), inv, opts)
	default:
		return fmt.Errorf("gda: unknown invocation kind %v", inv.Kind)
	}
}

func writeSimple(lw *lineWriter, inv *gdsmodel.Invocation, cmd *gdscmd.Command, opts WriteOptions) error {
	if opts.ExpandDocs && cmd != nil && cmd.DocTmpl != "" && opts.Expander != nil {
		text, err := opts.Expander.Expand(cmd.DocTmpl, cmd, inv.Args, opts.Lang)
		if err != nil {
			return fmt.Errorf("gda: expanding doc template for %q: %w", inv.Command.CommandName(), err)
		}
		lw.emitRaw(text)
	}
	lw.emit("%s", formatCall(inv))
	return nil
}

func formatCall(inv *gdsmodel.Invocation) string {
	name := inv.Command.CommandName()
	if name == "" {
		name = fmt.Sprintf("0x%02X", inv.Command.CommandID())
	}
	if len(inv.Args) == 0 {
		cmd, ok := inv.Command.(*gdscmd.Command)
		if ok && len(cmd.Params) == 0 {
			return name
		}
	}
	parts := make([]string, len(inv.Args))
	cmd, _ := inv.Command.(*gdscmd.Command)
	for i, arg := range inv.Args {
		if cmd != nil && i < len(cmd.Params) {
			parts[i] = cmd.Params[i].Type.Format(arg)
		} else {
			parts[i] = fmt.Sprintf("%v", arg)
		}
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func formatCondition(tokens []gdsmodel.ConditionToken) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		switch v := tok.(type) {
		case gdsmodel.CondNot:
			parts = append(parts, "not")
		case gdsmodel.CondAnd:
			parts = append(parts, "and")
		case gdsmodel.CondOr:
			parts = append(parts, "or")
		case gdsmodel.CondInvocation:
			parts = append(parts, formatCall(v.Invocation))
		}
	}
	return strings.Join(parts, " ")
}

func writeConditional(lw *lineWriter, inv *gdsmodel.Invocation, opts WriteOptions) error {
	head := fmt.Sprintf("%s %s:", inv.Kind, formatCondition(inv.Condition))
	return writeTargetOrBlock(lw, head, inv, opts)
}

func writeTargetOrBlock(lw *lineWriter, head string, inv *gdsmodel.Invocation, opts WriteOptions) error {
	switch {
	case inv.Target != nil:
		lw.emit("%s %s", head, formatAddr(*inv.Target, true))
		return nil
	case inv.Block != nil:
		lw.emit("%s {", head)
		lw.depth++
		if err := writeElements(lw, inv.Block, opts); err != nil {
			return err
		}
		lw.depth--
		lw.emit("}")
		return nil
	default:
		return fmt.Errorf("gda: invocation %q has neither target nor block", inv.Command.CommandName())
	}
}
