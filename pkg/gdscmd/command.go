// Package gdscmd loads the declarative command-definition directory
// tree into an in-memory registry, building the id and name/alias maps
// the reader, writer, parser, and doc-template expander all consult.
//
// Grounded on the original loader's cmddef.py (GDSCommandParam,
// GDSCommand, load_group/load_file/load_cmdrepo, build_maps, and the
// 0x00-0xFF missing-id warning in init_commands), with YAML in place of
// the original's own declarative file format since gopkg.in/yaml.v3 is
// the serialization library the rest of the retrieved corpus already
// depends on for exactly this kind of config tree.
package gdscmd

import (
	"fmt"
	"sort"
	"strings"

	"gdsc/pkg/gdserr"
	"gdsc/pkg/gdsvalue"
)

// Param is one declared parameter of a command definition.
type Param struct {
	Type      gdsvalue.Type
	Name      string
	Desc      string
	Optional  bool
	Uncertain bool
}

// Command is a fully resolved command definition.
type Command struct {
	ID        int
	Name      string
	Aliases   []string
	Desc      string
	Context   []string
	Uncertain bool
	Complex   bool
	// Condition marks a command that sets the interpreter's condition
	// flag as a side effect (e.g. an inventory/state check consumed by
	// a following if/elif), purely descriptive metadata surfaced
	// through the registry for the commands introspection subcommand.
	Condition bool
	Params    []Param
	DocTmpl   string
}

func (c *Command) CommandID() int           { return c.ID }
func (c *Command) CommandName() string      { return c.Name }
func (c *Command) IsComplex() bool          { return c.Complex }
func (c *Command) SetsCondition() bool      { return c.Condition }
func (c *Command) CommandContext() []string { return c.Context }

// Registry is the flattened, queryable set of all loaded commands.
type Registry struct {
	byID   map[int]*Command
	byName map[string]*Command
}

// ByID looks up a command by its numeric opcode.
func (r *Registry) ByID(id int) (*Command, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// ByName looks up a command by its canonical name or any alias.
func (r *Registry) ByName(name string) (*Command, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// CommandsForContext returns every command whose declared context set
// is compatible with ctx (including "all"-context commands).
func (r *Registry) CommandsForContext(ctx string) []*Command {
	var out []*Command
	for _, c := range r.byID {
		for _, cc := range c.Context {
			if cc == "all" || cc == ctx || strings.HasPrefix(cc, ctx+".") || strings.HasPrefix(ctx, cc+".") {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Describe returns a short human-readable description of the command
// with the given id, or "" if unknown.
func (r *Registry) Describe(id int) string {
	c, ok := r.byID[id]
	if !ok {
		return ""
	}
	if c.Desc != "" {
		return c.Desc
	}
	return c.Name
}

// All returns every loaded command ordered by id.
func (r *Registry) All() []*Command {
	out := make([]*Command, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BuildRegistry flattens a parsed definition tree into a Registry,
// applying the collision rules from the original's build_maps: duplicate
// ids or canonical names are a DefinitionError; an alias that collides
// with another command's canonical name is shadowed (canonical wins); an
// alias shared by two commands is dropped from both, with a warning.
// Ids in 0x00-0xFF that have no definition produce a warning, not an
// error, since structural completeness is a decompile-time concern.
func BuildRegistry(defs *Definitions, diag gdserr.Diagnostics) (*Registry, error) {
	r := &Registry{byID: make(map[int]*Command), byName: make(map[string]*Command)}

	var walk func(g *Group, prefix string)
	var firstErr error
	sharedAliases := make(map[string]bool)
	walk = func(g *Group, prefix string) {
		if firstErr != nil {
			return
		}
		effPrefix := prefix
		if g.Prefix != "" {
			if effPrefix != "" {
				effPrefix += "."
			}
			effPrefix += g.Prefix
		}
		for _, cmd := range g.Commands {
			name := cmd.Name
			if name != "" && effPrefix != "" {
				name = effPrefix + "." + name
			}
			cmd.Name = name
			if len(cmd.Context) == 0 && g.Context != "" {
				cmd.Context = []string{g.Context}
			}
			if _, dup := r.byID[cmd.ID]; dup {
				firstErr = &gdserr.DefinitionError{Msg: fmt.Sprintf("command id %d defined twice", cmd.ID)}
				return
			}
			if cmd.Name != "" {
				if existing, dup := r.byName[cmd.Name]; dup {
					if existing.Name == cmd.Name {
						firstErr = &gdserr.DefinitionError{Msg: fmt.Sprintf("command name %q defined twice", cmd.Name)}
						return
					}
					gdserr.Emit(diag, gdserr.Warning{Kind: gdserr.RangeWarning, Msg: fmt.Sprintf("alias %q shadowed by canonical name, dropped", cmd.Name)})
				}
			}
			r.byID[cmd.ID] = cmd
			if cmd.Name != "" {
				r.byName[cmd.Name] = cmd
			}
			for _, alias := range cmd.Aliases {
				if sharedAliases[alias] {
					continue
				}
				if existing, ok := r.byName[alias]; ok {
					if existing != cmd && existing.Name != alias {
						delete(r.byName, alias)
						sharedAliases[alias] = true
						gdserr.Emit(diag, gdserr.Warning{Kind: gdserr.RangeWarning, Msg: fmt.Sprintf("alias %q shared by several commands, dropped", alias)})
					} else if existing != cmd {
						gdserr.Emit(diag, gdserr.Warning{Kind: gdserr.RangeWarning, Msg: fmt.Sprintf("alias %q shadowed by canonical name, dropped", alias)})
					}
					continue
				}
				r.byName[alias] = cmd
			}
		}
		for _, sub := range g.Subgroups {
			walk(sub, effPrefix)
		}
	}
	walk(defs.Root, "")
	if firstErr != nil {
		return nil, firstErr
	}

	for id := 0; id <= 0xFF; id++ {
		if _, ok := r.byID[id]; !ok {
			gdserr.Emit(diag, gdserr.Warning{Kind: gdserr.RangeWarning, Msg: fmt.Sprintf("command id 0x%02X has no definition", id)})
		}
	}

	return r, nil
}
