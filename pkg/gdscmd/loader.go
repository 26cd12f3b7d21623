package gdscmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"gdsc/pkg/gdserr"
	"gdsc/pkg/gdsvalue"
)

// Group is one node of the parsed definition tree: a directory or a
// single YAML file's top-level group, carrying its own commands plus
// any nested subgroups.
type Group struct {
	Prefix    string
	Context   string
	Commands  []*Command
	Subgroups []*Group
}

// Definitions is the full parsed tree handed to BuildRegistry.
type Definitions struct {
	Root *Group
}

// rawFile mirrors the on-disk YAML shape: a group with optional prefix
// and context, plus commands as a mapping whose key serves as the name
// when a command has no name field. A sequence of commands is not
// accepted.
type rawFile struct {
	Prefix   string                     `yaml:"prefix"`
	Context  yamlStringOrList           `yaml:"context"`
	Commands map[string]rawCommand     `yaml:"commands"`
}

type rawCommand struct {
	ID        int              `yaml:"id"`
	Name      string           `yaml:"name"`
	Aliases   []string         `yaml:"aliases"`
	Desc      string           `yaml:"desc"`
	Context   yamlStringOrList `yaml:"context"`
	Uncertain bool             `yaml:"uncertain"`
	Complex   bool             `yaml:"complex"`
	Condition bool             `yaml:"condition"`
	Doc       string           `yaml:"doc"`
	Params    orderedParams    `yaml:"params"`
}

type rawParam struct {
	Type      string `yaml:"type"`
	Name      string `yaml:"name"`
	Desc      string `yaml:"desc"`
	Optional  bool   `yaml:"optional"`
	Uncertain bool   `yaml:"uncertain"`
	bare      string // set when the YAML node was a bare scalar string
}

// paramEntry pairs a parameter's declaration key (its map key, or its
// own "name" field when given as a list item) with its parsed body.
type paramEntry struct {
	key string
	rawParam
}

// orderedParams decodes the "params" field as either a YAML mapping or
// a sequence, preserving declaration order either way — order is
// semantically load-bearing here (it is the order tokens are read off
// the wire), unlike a plain map[string]rawParam which would silently
// scramble it.
type orderedParams []paramEntry

func (o *orderedParams) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		out := make(orderedParams, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			var rp rawParam
			if err := value.Content[i+1].Decode(&rp); err != nil {
				return err
			}
			out = append(out, paramEntry{key: value.Content[i].Value, rawParam: rp})
		}
		*o = out
		return nil
	case yaml.SequenceNode:
		out := make(orderedParams, 0, len(value.Content))
		for _, item := range value.Content {
			var rp rawParam
			if err := item.Decode(&rp); err != nil {
				return err
			}
			out = append(out, paramEntry{key: rp.Name, rawParam: rp})
		}
		*o = out
		return nil
	case 0:
		*o = nil
		return nil
	default:
		return fmt.Errorf("params: expected a mapping or sequence, got %v", value.Kind)
	}
}

// yamlStringOrList decodes either a scalar string or a sequence of
// strings into a []string, matching the definition format's "context"
// field (scalar or list from {all, event, room, puzzle}).
type yamlStringOrList []string

func (l *yamlStringOrList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = []string{value.Value}
		return nil
	}
	var out []string
	if err := value.Decode(&out); err != nil {
		return err
	}
	*l = out
	return nil
}

func (p *rawParam) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.bare = value.Value
		return nil
	}
	type alias rawParam
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*p = rawParam(a)
	return nil
}

// LoadDirectory walks dir recursively, parsing every *.yaml/*.yml file
// into the definition tree. Directory path components contribute to the
// effective prefix the same way the original's load_cmdrepo walks the
// filesystem tree.
func LoadDirectory(dir string) (*Definitions, error) {
	root := &Group{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading command definition directory %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := loadGroupDir(full)
			if err != nil {
				return nil, err
			}
			sub.Prefix = entry.Name()
			root.Subgroups = append(root.Subgroups, sub)
			continue
		}
		if !isYAMLFile(entry.Name()) {
			continue
		}
		g, err := loadGroupFile(full)
		if err != nil {
			return nil, err
		}
		root.Subgroups = append(root.Subgroups, g)
	}
	return &Definitions{Root: root}, nil
}

func loadGroupDir(dir string) (*Group, error) {
	g := &Group{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading command definition directory %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := loadGroupDir(full)
			if err != nil {
				return nil, err
			}
			sub.Prefix = entry.Name()
			g.Subgroups = append(g.Subgroups, sub)
			continue
		}
		if !isYAMLFile(entry.Name()) {
			continue
		}
		sub, err := loadGroupFile(full)
		if err != nil {
			return nil, err
		}
		g.Subgroups = append(g.Subgroups, sub)
	}
	return g, nil
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func loadGroupFile(path string) (*Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading command definition file %q: %w", path, err)
	}
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing command definition file %q: %w", path, err)
	}

	g := &Group{Prefix: raw.Prefix}
	if len(raw.Context) > 0 {
		g.Context = raw.Context[0]
	}

	names := make([]string, 0, len(raw.Commands))
	for key := range raw.Commands {
		names = append(names, key)
	}
	sort.Strings(names)

	for _, key := range names {
		rc := raw.Commands[key]
		cmd, err := resolveCommand(key, rc)
		if err != nil {
			return nil, fmt.Errorf("in %q: %w", path, err)
		}
		g.Commands = append(g.Commands, cmd)
	}
	return g, nil
}

func resolveCommand(key string, rc rawCommand) (*Command, error) {
	name := rc.Name
	if name == "" {
		name = key
	}
	cmd := &Command{
		ID:        rc.ID,
		Name:      name,
		Aliases:   rc.Aliases,
		Desc:      rc.Desc,
		Context:   []string(rc.Context),
		Uncertain: rc.Uncertain,
		Complex:   rc.Complex,
		Condition: rc.Condition,
		DocTmpl:   rc.Doc,
	}
	if cmd.ID < 0 || cmd.ID > 0xFF {
		return nil, &gdserr.DefinitionError{Msg: fmt.Sprintf("command %q id %d out of range 0..255", name, cmd.ID)}
	}

	for _, entry := range rc.Params {
		pname, rp := entry.key, entry.rawParam
		descriptor := rp.Type
		pName := rp.Name
		if rp.bare != "" {
			descriptor = rp.bare
			pName = pname
		}
		if pName == "" {
			pName = pname
		}
		ty, err := gdsvalue.ParseDescriptor(descriptor)
		if err != nil {
			return nil, &gdserr.DefinitionError{Msg: fmt.Sprintf("command %q param %q: %v", name, pname, err)}
		}
		cmd.Params = append(cmd.Params, Param{
			Type:      ty,
			Name:      pName,
			Desc:      rp.Desc,
			Optional:  rp.Optional,
			Uncertain: rp.Uncertain,
		})
	}
	return cmd, nil
}
