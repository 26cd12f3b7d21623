package gda

import (
	"fmt"

	"gdsc/pkg/gdserr"
	"gdsc/pkg/gdsmodel"
)

// collectLabels walks a freshly parsed element tree (including nested
// blocks and embedded condition invocations) and builds the same
// name -> LabelInfo shape the binary reader produces, so downstream
// code (the binary writer, well-formedness checks) never has to care
// whether a Program came from GDS or GDA. Every JumpAddress's Loc is
// left at -1 here — physical offsets don't exist until the binary writer
// assigns them.
func collectLabels(elements []gdsmodel.Element) (map[string]*gdsmodel.LabelInfo, error) {
	labels := make(map[string]*gdsmodel.LabelInfo)
	if err := walkLabels(elements, labels); err != nil {
		return nil, err
	}
	for name, info := range labels {
		present := 0
		for _, d := range info.Definitions {
			if d.Present {
				present++
			}
		}
		if present > 1 {
			return nil, &gdserr.DefinitionError{Msg: fmt.Sprintf("label %q is physically present more than once", name)}
		}
	}
	return labels, nil
}

func walkLabels(elements []gdsmodel.Element, labels map[string]*gdsmodel.LabelInfo) error {
	for _, el := range elements {
		switch v := el.(type) {
		case *gdsmodel.Label:
			info := bucket(labels, v.Name)
			info.Definitions = append(info.Definitions, v)
		case *gdsmodel.Invocation:
			if v.Target != nil {
				info := bucket(labels, *v.Target)
				// First-declared-wins is only a placeholder guess: when a
				// label carries an explicit back-pointer, the binary writer
				// resolves the true primary from that value instead of this
				// flag.
				ja := &gdsmodel.JumpAddress{Name: *v.Target, Loc: -1, Primary: len(info.JumpAddrs) == 0}
				info.JumpAddrs = append(info.JumpAddrs, ja)
			}
			for _, ct := range v.Condition {
				if ci, ok := ct.(gdsmodel.CondInvocation); ok && ci.Invocation != nil {
					if err := walkLabels([]gdsmodel.Element{ci.Invocation}, labels); err != nil {
						return err
					}
				}
			}
			if len(v.Block) > 0 {
				if err := walkLabels(v.Block, labels); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func bucket(labels map[string]*gdsmodel.LabelInfo, name string) *gdsmodel.LabelInfo {
	info, ok := labels[name]
	if !ok {
		info = &gdsmodel.LabelInfo{Name: name}
		labels[name] = info
	}
	return info
}
