// Package handler implements "group handlers" (spec.md §4.H): binding
// one read or write implementation to a set of parameter names instead
// of one read_<x>/write_<x> method per parameter.
package handler

import "github.com/frappy-project/frappy-core/secoperr"

// Accessor is the narrow view of a module a handler function needs:
// reading another parameter's current/pending value and writing one
// through the normal validate-cache-announce path. Package module's
// *module.Module satisfies this interface; handler does not import
// module to avoid a cycle.
type Accessor interface {
	// Get returns the current cached value of a module parameter.
	Get(pname string) (any, bool)
	// Set validates value for pname, caches and announces it, without
	// calling a write handler — this is how a "common" handler performs
	// "attribute assignment" (spec.md §4.H).
	Set(pname string, value any) error
}

// ReadFunc is a per-parameter read handler: (module, pname) -> value.
type ReadFunc func(mod Accessor, pname string) (any, error)

// CommonReadFunc is a "common" read handler: (module) -> error; it is
// expected to call mod.Set for every parameter in the owning Group.
type CommonReadFunc func(mod Accessor) error

// WriteFunc is a per-parameter write handler:
// (module, pname, value) -> value_written.
type WriteFunc func(mod Accessor, pname string, value any) (any, error)

// CommonWriteFunc is a "common" write handler: (module, values) -> error.
type CommonWriteFunc func(mod Accessor, values ValueMap) error

// ValueMap is passed to a common write handler. Indexing by the
// parameter(s) actually being written returns the new value; indexing
// by any other group member falls back to that parameter's current
// cached value (mod.Get). Values queued for a later write are not
// consulted.
type ValueMap struct {
	target map[string]any
	mod    Accessor
}

// NewValueMap builds a ValueMap for a write touching target, falling
// back to mod.Get for every other group member.
func NewValueMap(target map[string]any, mod Accessor) ValueMap {
	return ValueMap{target: target, mod: mod}
}

// Get returns the value for name: the new value if it is a write
// target, else the module's current cached value.
func (v ValueMap) Get(name string) (any, bool) {
	if val, ok := v.target[name]; ok {
		return val, true
	}
	return v.mod.Get(name)
}

// Tuple projects the map into a positional slice in the given order —
// spec.md §4.H: "it can also produce a tuple in a given order".
func (v ValueMap) Tuple(order []string) []any {
	out := make([]any, len(order))
	for i, name := range order {
		val, _ := v.Get(name)
		out[i] = val
	}
	return out
}

// Group binds one handler implementation (read, write, or both) to a
// fixed set of parameter names.
type Group struct {
	Name   string
	Params []string

	Read       ReadFunc
	ReadAll    CommonReadFunc
	Write      WriteFunc
	WriteAll   CommonWriteFunc
}

// Contains reports whether pname is one of the group's members.
func (g *Group) Contains(pname string) bool {
	for _, p := range g.Params {
		if p == pname {
			return true
		}
	}
	return false
}

// Registry looks up Groups by name at module-construction time; each
// module class registers its groups once, at package-init time,
// mirroring how the reference implementation resolves handler
// decorators at class-build time.
type Registry struct {
	groups map[string]*Group
}

func NewRegistry() *Registry { return &Registry{groups: map[string]*Group{}} }

// Register adds a group, rejecting a duplicate name (spec.md §4.H
// treats a handler/concrete-method clash as a build error; a
// duplicate group name is the same class of mistake).
func (r *Registry) Register(g *Group) error {
	if r.groups == nil {
		r.groups = map[string]*Group{}
	}
	if _, exists := r.groups[g.Name]; exists {
		return secoperr.ProgrammingError("handler group %q already registered", g.Name)
	}
	r.groups[g.Name] = g
	return nil
}

func (r *Registry) Lookup(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}
