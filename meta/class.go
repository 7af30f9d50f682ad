package meta

import "github.com/frappy-project/frappy-core/secoperr"

// ClassDecl is one module class's own declarations (its Go type's
// contribution to the metamodel), analogous to one class body in the
// reference implementation. Parent, if non-nil, is the immediate
// ancestor; the full chain is walked root-first at Build time so a
// subclass's declarations are applied last (and therefore win,
// merging rather than replacing — spec.md §4.B).
type ClassDecl struct {
	Name       string
	Parent     *ClassDecl
	Properties []PropertyDecl
	Parameters []ParamDecl
	Commands   []CmdDecl

	// InterfaceClasses names the SECoP interface classes this class
	// implements (e.g. "Readable", "Drivable"), exported verbatim in
	// the descriptive JSON (spec.md §6).
	InterfaceClasses []string
}

// ClassDescriptor is the merged, build-time-ParamState metamodel for a
// module class: ordered parameters/commands/properties ready to bind
// to instances.
type ClassDescriptor struct {
	Name             string
	InterfaceClasses []string
	Properties       []PropertyDecl
	ParamOrder       []string
	Params           map[string]ParamState
	CmdOrder         []string
	Commands         map[string]CmdState
}

// chain returns the ancestor chain root-first.
func (c *ClassDecl) chain() []*ClassDecl {
	var rev []*ClassDecl
	for cur := c; cur != nil; cur = cur.Parent {
		rev = append(rev, cur)
	}
	out := make([]*ClassDecl, len(rev))
	for i, d := range rev {
		out[len(rev)-1-i] = d
	}
	return out
}

// Build merges the full ancestor chain into a ClassDescriptor.
// Declaration order is preserved across the chain; a re-declaration of
// an existing name keeps its original position unless its Order field
// is non-zero, which moves it to the end (spec.md §4.B paramOrder
// hint).
func (c *ClassDecl) Build() (*ClassDescriptor, error) {
	desc := &ClassDescriptor{
		Name:   c.Name,
		Params: map[string]ParamState{},
		Commands: map[string]CmdState{},
	}

	var props []PropertyDecl
	propSeen := map[string]int{}

	for _, cls := range c.chain() {
		desc.InterfaceClasses = append(desc.InterfaceClasses, cls.InterfaceClasses...)

		for _, p := range cls.Properties {
			if idx, ok := propSeen[p.Name]; ok {
				props[idx] = p
				continue
			}
			propSeen[p.Name] = len(props)
			props = append(props, p)
		}

		for _, pd := range cls.Parameters {
			if err := validateAccessorName(pd.Name, "read_"+pd.Name, "write_"+pd.Name, cls.Name); err != nil {
				return nil, err
			}
			base, existed := desc.Params[pd.Name]
			if !existed {
				base = defaultParamState(pd.Name)
			}
			desc.Params[pd.Name] = mergeParam(base, pd)
			desc.ParamOrder = reorder(desc.ParamOrder, pd.Name, pd.Order, existed)
		}

		for _, cd := range cls.Commands {
			base, existed := desc.Commands[cd.Name]
			if !existed {
				base = defaultCmdState(cd.Name)
			}
			desc.Commands[cd.Name] = mergeCmd(base, cd)
			desc.CmdOrder = reorder(desc.CmdOrder, cd.Name, cd.Order, existed)
		}
	}

	desc.Properties = props
	return desc, nil
}

// reorder inserts name into order (if new) or moves it to the end when
// moveToEnd is requested via a non-zero Order hint on a re-declaration.
func reorder(order []string, name string, hint int, existed bool) []string {
	if !existed {
		return append(order, name)
	}
	if hint == 0 {
		return order // keep inherited position
	}
	out := make([]string, 0, len(order))
	for _, n := range order {
		if n != name {
			out = append(out, n)
		}
	}
	return append(out, name)
}

// validateAccessorName rejects a parameter declared with an empty name.
// Accessors for unknown parameter or command names are rejected when
// they are bound, by module.Module's BindRead, BindWrite and
// BindCommand.
func validateAccessorName(paramName, readName, writeName, className string) error {
	if paramName == "" {
		return secoperr.ProgrammingError("class %s: parameter declared with empty name", className)
	}
	return nil
}
