// Package doctemplate expands the free-form doc-comment templates
// attached to command definitions (§4.G): variable substitution,
// file splicing, and numeric formatting modifiers.
//
// Grounded stylistically on the teacher repo's preprocessor.go macro
// scanner (a rune-by-rune pass recognizing a directive character
// followed by a delimiter, with an explicit "splice file contents"
// path), retargeted from C preprocessor directives (#define, #include)
// to GDA's much smaller template language.
package doctemplate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdsmodel"
)

var eventIDPattern = regexp.MustCompile(`data[/\\]script[/\\]event[/\\]e(\d+)\.gd[as]$`)

// Expander holds the configuration a template expansion needs beyond
// the template text itself: where relative $(path) splices resolve
// against, and which source file's path feeds the eventid variable.
type Expander struct {
	// WorkDir is the base directory $(path) splices are resolved
	// against. Empty disables file splicing entirely.
	WorkDir string
	// OmitFileContents, when true, suppresses $(path) splicing even
	// with a WorkDir configured.
	OmitFileContents bool
	// CurrentPath is the source file currently being expanded, used to
	// derive the "eventid" predefined variable. The caller sets it once
	// per file before expanding that file's doc comments.
	CurrentPath string
	// Lang is the default language code used when a caller's Expand
	// call passes an empty lang.
	Lang string
}

// Expand renders tmpl for one invocation of cmd with the given
// argument values and language code.
func (e *Expander) Expand(tmpl string, cmd *gdscmd.Command, args []gdsmodel.Value, lang string) (string, error) {
	if lang == "" {
		lang = e.Lang
	}
	var out strings.Builder
	r := []rune(tmpl)
	i := 0
	for i < len(r) {
		ch := r[i]
		if ch != '$' {
			out.WriteRune(ch)
			i++
			continue
		}
		if i+1 >= len(r) {
			out.WriteRune('$')
			i++
			continue
		}
		switch r[i+1] {
		case '$':
			out.WriteByte('$')
			i += 2
		case '{':
			end := indexRune(r, i+2, '}')
			if end < 0 {
				return "", fmt.Errorf("doctemplate: unterminated ${...} starting at offset %d", i)
			}
			val, err := e.expandVar(string(r[i+2:end]), cmd, args, lang)
			if err != nil {
				return "", err
			}
			out.WriteString(val)
			i = end + 1
		case '(':
			end := indexRune(r, i+2, ')')
			if end < 0 {
				return "", fmt.Errorf("doctemplate: unterminated $(...) starting at offset %d", i)
			}
			out.WriteString(e.spliceFile(string(r[i+2 : end])))
			i = end + 1
		default:
			out.WriteRune('$')
			i++
		}
	}
	return out.String(), nil
}

func indexRune(r []rune, from int, target rune) int {
	for j := from; j < len(r); j++ {
		if r[j] == target {
			return j
		}
	}
	return -1
}

func (e *Expander) spliceFile(path string) string {
	if e.WorkDir == "" || e.OmitFileContents {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(e.WorkDir, path))
	if err != nil {
		return "<FILE NOT FOUND>"
	}
	return string(data)
}

func (e *Expander) expandVar(expr string, cmd *gdscmd.Command, args []gdsmodel.Value, lang string) (string, error) {
	parts := strings.Split(expr, ":")
	raw, err := e.resolveVar(parts[0], cmd, args, lang)
	if err != nil {
		return "", err
	}
	for _, mod := range parts[1:] {
		raw, err = applyModifier(mod, raw)
		if err != nil {
			return "", err
		}
	}
	return raw, nil
}

func (e *Expander) resolveVar(name string, cmd *gdscmd.Command, args []gdsmodel.Value, lang string) (string, error) {
	switch {
	case name == "lang":
		if lang == "" {
			return "en", nil
		}
		return lang, nil
	case name == "eventid":
		m := eventIDPattern.FindStringSubmatch(e.CurrentPath)
		if m == nil {
			return "?", nil
		}
		return m[1], nil
	case isAllDigits(name):
		idx, _ := strconv.Atoi(name)
		if idx < 1 || idx > len(args) {
			return "?", nil
		}
		return formatValue(args[idx-1]), nil
	default:
		return "", fmt.Errorf("doctemplate: unknown variable %q in template for %q", name, cmd.Name)
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func formatValue(v gdsmodel.Value) string {
	switch val := v.(type) {
	case gdsmodel.IntValue:
		return strconv.FormatInt(val.Raw, 10)
	case gdsmodel.FloatValue:
		return strconv.FormatFloat(float64(val.Raw), 'g', -1, 32)
	case gdsmodel.StringValue:
		return val.Raw
	case gdsmodel.BoolValue:
		return strconv.FormatBool(val.Raw)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// applyModifier applies one modifier token ("rS", "rS<=M", "0W") to a
// textual value, left-to-right, per §4.G.
func applyModifier(mod string, value string) (string, error) {
	switch {
	case strings.HasPrefix(mod, "r"):
		return applySnap(mod[1:], value)
	case strings.HasPrefix(mod, "0"):
		width, err := strconv.Atoi(mod[1:])
		if err != nil {
			return "", fmt.Errorf("doctemplate: malformed zero-pad modifier %q", mod)
		}
		return zeroPad(value, width), nil
	default:
		return "", fmt.Errorf("doctemplate: unknown modifier %q", mod)
	}
}

func applySnap(rest string, value string) (string, error) {
	step, capVal, hasCap, err := parseSnapSpec(rest)
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return value, nil
	}
	n = (n / step) * step
	if hasCap && n > capVal {
		n = capVal
	}
	return strconv.Itoa(n), nil
}

func parseSnapSpec(rest string) (step, capVal int, hasCap bool, err error) {
	if idx := strings.Index(rest, "<="); idx >= 0 {
		step, err = strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, 0, false, fmt.Errorf("doctemplate: malformed snap step %q", rest)
		}
		capVal, err = strconv.Atoi(rest[idx+2:])
		if err != nil {
			return 0, 0, false, fmt.Errorf("doctemplate: malformed snap cap %q", rest)
		}
		hasCap = true
	} else {
		step, err = strconv.Atoi(rest)
		if err != nil {
			return 0, 0, false, fmt.Errorf("doctemplate: malformed snap modifier %q", rest)
		}
	}
	if step <= 0 {
		return 0, 0, false, fmt.Errorf("doctemplate: snap step must be positive, got %d", step)
	}
	return step, capVal, hasCap, nil
}

func zeroPad(value string, width int) string {
	neg := strings.HasPrefix(value, "-")
	digits := value
	if neg {
		digits = value[1:]
	}
	for len(digits) < width {
		digits = "0" + digits
	}
	if neg {
		return "-" + digits
	}
	return digits
}
