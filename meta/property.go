package meta

import "github.com/frappy-project/frappy-core/datatype"

// PropertyDecl is class-level metadata on a module or datatype
// (spec.md §3): "typed, mandatory, default, settable, export_name?".
type PropertyDecl struct {
	Name       string
	Datatype   datatype.Datatype
	Mandatory  bool
	HasDefault bool
	Default    any
	Settable   bool
	ExportName string // wire name, defaults to Name if empty
}

func (p PropertyDecl) wireName() string {
	if p.ExportName != "" {
		return p.ExportName
	}
	return p.Name
}

// ResolveProperties resolves the configured or default value for each
// declared property, applying validation through the property's
// datatype. Used at module-construction time (spec.md §4.C
// "Properties are applied first").
func ResolveProperties(decls []PropertyDecl, configured map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(decls))
	for _, p := range decls {
		if v, ok := configured[p.Name]; ok {
			vv, err := p.Datatype.Validate(v)
			if err != nil {
				return nil, propErr(p.Name, err)
			}
			out[p.Name] = vv
			continue
		}
		if p.Mandatory {
			return nil, propErr(p.Name, errMissingMandatory)
		}
		if p.HasDefault {
			out[p.Name] = p.Default
			continue
		}
		out[p.Name] = p.Datatype.Default()
	}
	return out, nil
}

type propError struct {
	name string
	err  error
}

func (e *propError) Error() string { return e.name + ": " + e.err.Error() }
func (e *propError) Unwrap() error { return e.err }

func propErr(name string, err error) error { return &propError{name: name, err: err} }

var errMissingMandatory = errMissing{}

type errMissing struct{}

func (errMissing) Error() string { return "mandatory property not configured" }
