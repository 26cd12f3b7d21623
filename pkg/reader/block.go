package reader

import "gdsc/pkg/gdsmodel"

// foldBlocks implements §4.D.3: for every if/elif/else/while/repeatN
// invocation whose Target names a forward-only, singly-referenced
// label, the elements strictly between the invocation and the label
// move into the invocation's Block, and the label is removed. Backward
// jumps and multi-source labels are left as explicit Target+Label
// pairs, which is an exact representation of whatever the original
// jump graph actually did.
func foldBlocks(elements []gdsmodel.Element, labels map[string]*gdsmodel.LabelInfo) []gdsmodel.Element {
	result := make([]gdsmodel.Element, 0, len(elements))
	i := 0
	for i < len(elements) {
		el := elements[i]
		inv, ok := el.(*gdsmodel.Invocation)
		if !ok || inv.Target == nil {
			result = append(result, el)
			i++
			continue
		}

		info := labels[*inv.Target]
		if info == nil || len(info.JumpAddrs) != 1 || len(info.Definitions) != 1 {
			result = append(result, el)
			i++
			continue
		}
		ja := info.JumpAddrs[0]
		lbl := info.Definitions[0]
		if ja.Loc >= lbl.Loc {
			// Backward jump: the label already precedes the invocation
			// physically, so it cannot be folded forward.
			result = append(result, el)
			i++
			continue
		}

		labelIdx := -1
		for j := i + 1; j < len(elements); j++ {
			if l, ok := elements[j].(*gdsmodel.Label); ok && l == lbl {
				labelIdx = j
				break
			}
		}
		if labelIdx == -1 {
			result = append(result, el)
			i++
			continue
		}

		inner := append([]gdsmodel.Element{}, elements[i+1:labelIdx]...)
		inv.Block = foldBlocks(inner, labels)
		inv.Target = nil
		result = append(result, inv)
		i = labelIdx + 1
	}
	return result
}
