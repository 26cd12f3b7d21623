package gdsmodel

import "strings"

// Context tracks the execution context a program's commands are
// compatible with (event/room/puzzle/all, with dotted subcontexts such
// as "event.cutscene"). It narrows as commands are read or parsed; it
// never fails the translation, it only records conflicts for the caller
// to inspect.
//
// Ported from the original decompiler's GDSContext, which performs the
// same narrow/intersection bookkeeping while walking a program's
// commands.
type Context struct {
	// ManualName records a context name the caller already knows
	// (e.g. from the source file's path). Narrow does not read it.
	ManualName string

	// Candidates holds the set of context names still consistent with
	// every command seen so far. A nil Candidates means "unconstrained".
	Candidates map[string]bool

	// Conflicts records every command context set that, when
	// intersected with Candidates, would have emptied it; narrowing
	// skips the intersection in that case instead of failing.
	Conflicts []string
}

// NewContext returns an unconstrained context, optionally pinned to a
// manually known name.
func NewContext(manualName string) *Context {
	return &Context{ManualName: manualName}
}

// compatible reports whether a and b are the same context or one is a
// dotted subcontext of the other (e.g. "event.cutscene" vs "event").
func compatible(a, b string) bool {
	if a == b || a == "all" || b == "all" {
		return true
	}
	return strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

// Narrow intersects the context's candidate set with cmdContexts (the
// context list declared on a command definition). If the intersection
// would be empty, the candidate set is left unchanged and cmdContexts is
// recorded as a conflict instead.
func (c *Context) Narrow(cmdContexts []string) {
	if len(cmdContexts) == 0 {
		return
	}
	if c.Candidates == nil {
		c.Candidates = make(map[string]bool, len(cmdContexts))
		for _, name := range cmdContexts {
			c.Candidates[name] = true
		}
		return
	}

	next := make(map[string]bool)
	for have := range c.Candidates {
		for _, want := range cmdContexts {
			if compatible(have, want) {
				next[have] = true
			}
		}
	}
	if len(next) == 0 {
		c.Conflicts = append(c.Conflicts, strings.Join(cmdContexts, ","))
		return
	}
	c.Candidates = next
}

// Names returns the current candidate set as a slice in map iteration
// order, which is not stable; callers needing a stable order should sort
// it themselves.
func (c *Context) Names() []string {
	if c.Candidates == nil {
		return nil
	}
	out := make([]string, 0, len(c.Candidates))
	for name := range c.Candidates {
		out = append(out, name)
	}
	return out
}

// BuildContext walks a complete element tree (including nested blocks
// and embedded condition invocations) and narrows a fresh Context by
// every invocation's declared command context set. manualName is stored
// as the result's ManualName and takes no part in the narrowing.
func BuildContext(elements []Element, manualName string) *Context {
	ctx := NewContext(manualName)
	walkContext(elements, ctx)
	return ctx
}

func walkContext(elements []Element, ctx *Context) {
	for _, el := range elements {
		inv, ok := el.(*Invocation)
		if !ok {
			continue
		}
		if inv.Command != nil {
			ctx.Narrow(inv.Command.CommandContext())
		}
		for _, ct := range inv.Condition {
			if ci, ok := ct.(CondInvocation); ok && ci.Invocation != nil {
				walkContext([]Element{ci.Invocation}, ctx)
			}
		}
		if len(inv.Block) > 0 {
			walkContext(inv.Block, ctx)
		}
	}
}
