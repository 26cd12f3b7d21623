package reader

import (
	"sort"
	"strconv"

	"gdsc/pkg/gdsmodel"
)

// nameLabels implements §4.D.2: for every address bucket, synthesize a
// non-present label when no physical taddr was found, assign a unique
// name, and pick exactly one primary reference.
func (d *decoder) nameLabels(elements []gdsmodel.Element, locs []int) ([]gdsmodel.Element, map[string]*gdsmodel.LabelInfo, error) {
	keys := make([]int, 0, len(d.buckets))
	for k := range d.buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	counters := make(map[string]int)
	labels := make(map[string]*gdsmodel.LabelInfo)

	type insertion struct {
		key int
		lbl *gdsmodel.Label
	}
	var synthetic []insertion

	for _, key := range keys {
		bucket := d.buckets[key]
		prefix := classifyPrefix(bucket.uses)
		name := prefix + strconv.Itoa(counters[prefix])
		counters[prefix]++

		var lbl *gdsmodel.Label
		if bucket.def != nil {
			lbl = bucket.def
			lbl.Name = name
		} else {
			lbl = &gdsmodel.Label{Name: name, Present: false, Loc: key - 2}
			synthetic = append(synthetic, insertion{key: key, lbl: lbl})
		}

		var primary *useRef
		if bucket.def != nil && bucket.def.BackPointer != nil {
			for _, u := range bucket.uses {
				if u.loc+2 == *bucket.def.BackPointer {
					primary = u
					break
				}
			}
		}
		// A single reference is unambiguously primary, so the stored
		// back-pointer carries no information worth keeping around --
		// drop it rather than printing a spurious "(loc)" later. With
		// more than one reference, keep it even after a match: it's the
		// only channel that carries which use is primary through a
		// decompile/recompile via GDA text, where a JumpAddress's own
		// Primary flag isn't serialized per-use.
		if len(bucket.uses) <= 1 {
			lbl.BackPointer = nil
			if primary == nil && len(bucket.uses) == 1 {
				primary = bucket.uses[0]
			}
		}

		info := &gdsmodel.LabelInfo{Name: name, Definitions: []*gdsmodel.Label{lbl}}
		for _, u := range bucket.uses {
			ja := &gdsmodel.JumpAddress{Name: name, Loc: u.loc, Primary: u == primary}
			info.JumpAddrs = append(info.JumpAddrs, ja)
			nameCopy := name
			u.inv.Target = &nameCopy
		}
		labels[name] = info
	}

	for _, ins := range synthetic {
		target := ins.key + 4
		idx := len(elements)
		for i, loc := range locs {
			if loc >= target {
				idx = i
				break
			}
		}
		elements = insertElement(elements, idx, ins.lbl)
		locs = insertInt(locs, idx, ins.lbl.Loc)
	}

	return elements, labels, nil
}

func insertElement(elements []gdsmodel.Element, idx int, el gdsmodel.Element) []gdsmodel.Element {
	out := make([]gdsmodel.Element, 0, len(elements)+1)
	out = append(out, elements[:idx]...)
	out = append(out, el)
	out = append(out, elements[idx:]...)
	return out
}

func insertInt(locs []int, idx int, v int) []int {
	out := make([]int, 0, len(locs)+1)
	out = append(out, locs[:idx]...)
	out = append(out, v)
	out = append(out, locs[idx:]...)
	return out
}

func classifyPrefix(uses []*useRef) string {
	if len(uses) == 0 {
		return ""
	}
	first := classifyKind(uses[0].inv.Kind)
	for _, u := range uses[1:] {
		if classifyKind(u.inv.Kind) != first {
			return ""
		}
	}
	return first
}

func classifyKind(k gdsmodel.InvocationKind) string {
	switch k {
	case gdsmodel.KindIf:
		return "if_"
	case gdsmodel.KindElif:
		return "elif_"
	case gdsmodel.KindElse:
		return "else_"
	case gdsmodel.KindWhile, gdsmodel.KindRepeatN:
		return "loop_"
	default:
		return ""
	}
}
