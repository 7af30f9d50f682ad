// Package meta implements the declarative properties/parameters/commands
// metamodel (spec.md §4.B): class-build-time merging of descriptors
// across a module class's ancestor chain, with override-by-merge
// semantics rather than override-by-replace.
package meta

import "github.com/frappy-project/frappy-core/datatype"

// Visibility mirrors the SECoP wire "visibility" field: 1=user,
// 2=advanced, 3=expert.
type Visibility int

const (
	VisibilityUser     Visibility = 1
	VisibilityAdvanced Visibility = 2
	VisibilityExpert   Visibility = 3
)

// ParamDecl is a parameter descriptor as declared on a module class.
// A subclass re-declaring the same Name *merges* into the inherited
// descriptor: only fields explicitly marked "set" (via the Has*/non-nil
// pointer fields) override the parent's value; everything else is
// carried forward unchanged (spec.md §4.B).
type ParamDecl struct {
	Name string

	// Description, when non-empty, overrides the inherited description.
	Description string

	// Datatype, when non-nil, overrides the inherited datatype.
	Datatype datatype.Datatype

	// Readonly, when non-nil, overrides the inherited readonly flag.
	Readonly *bool

	// HasDefault/Default: when HasDefault is true, overrides the
	// inherited default. A bare value assignment to an inherited
	// parameter (spec.md: "replaces its default only") is expressed
	// as ParamDecl{Name: x, HasDefault: true, Default: v} with every
	// other field left zero.
	HasDefault bool
	Default    any

	Unit string

	// Group, when non-empty, overrides the inherited group.
	Group string

	// Visibility, when non-zero, overrides the inherited visibility.
	Visibility Visibility

	// HasConstant/Constant: merged into ParamState.IsConstant/Constant;
	// the module runtime and the poller do not read these fields.
	HasConstant bool
	Constant    any

	// Export, when non-nil, overrides whether the parameter is shown
	// on the wire. Defaults to true (names starting with "_" default
	// to false, applied at Build time).
	Export *bool

	// Influences lists parameter names whose value may change as a
	// side effect of this one changing.
	Influences []string

	// NeedsConfig requires an explicit configured value (no built-in
	// default is acceptable) at construction time.
	NeedsConfig bool

	// InitWrite, when non-nil, overrides whether a configured value
	// for a writable parameter is queued into writeDict at start.
	// Default true.
	InitWrite *bool

	// Poll, when non-nil, overrides ParamState.Poll. The poller does not
	// read ParamState.Poll: it polls status, value and the slowParams
	// list passed to poller.New.
	Poll *bool

	// Handler, when non-nil, marks this parameter as driven by a group
	// read/write handler rather than (or in addition to) a concrete
	// read_<x>/write_<x> method (spec.md §4.H).
	Handler *HandlerBinding

	// Order, when non-zero, is the paramOrder hint (spec.md §4.B):
	// moves this entry to the end of the declaration order.
	Order int
}

// HandlerBinding names the handler group a parameter belongs to; the
// actual handler implementation lives in package handler and is looked
// up by GroupName at module-construction time.
type HandlerBinding struct {
	GroupName string
	IsWrite   bool
}

func boolPtr(b bool) *bool { return &b }

// ParamState is the fully-merged, concrete state of one parameter after
// Build(); every field is populated (no "unset" sentinels remain).
type ParamState struct {
	Name         string
	Description  string
	Datatype     datatype.Datatype
	Readonly     bool
	HasDefault   bool
	Default      any
	Unit         string
	Group        string
	Visibility   Visibility
	IsConstant   bool
	Constant     any
	Export       bool
	Influences   []string
	NeedsConfig  bool
	InitWrite    bool
	Poll         bool
	Handler      *HandlerBinding
}

// mergeParam folds override on top of base, honoring the "set fields
// only" rule; base may be the zero value for a brand-new declaration.
func mergeParam(base ParamState, override ParamDecl) ParamState {
	out := base
	out.Name = override.Name
	if override.Description != "" {
		out.Description = override.Description
	}
	if override.Datatype != nil {
		out.Datatype = override.Datatype
	}
	if override.Readonly != nil {
		out.Readonly = *override.Readonly
	}
	if override.HasDefault {
		out.HasDefault = true
		out.Default = override.Default
	}
	if override.Unit != "" {
		out.Unit = override.Unit
	}
	if override.Group != "" {
		out.Group = override.Group
	}
	if override.Visibility != 0 {
		out.Visibility = override.Visibility
	}
	if override.HasConstant {
		out.IsConstant = true
		out.Constant = override.Constant
	}
	if override.Export != nil {
		out.Export = *override.Export
	}
	if override.Influences != nil {
		out.Influences = override.Influences
	}
	if override.NeedsConfig {
		out.NeedsConfig = true
	}
	if override.InitWrite != nil {
		out.InitWrite = *override.InitWrite
	}
	if override.Poll != nil {
		out.Poll = *override.Poll
	}
	if override.Handler != nil {
		out.Handler = override.Handler
	}
	return out
}

func defaultParamState(name string) ParamState {
	return ParamState{
		Name:       name,
		Export:     len(name) == 0 || name[0] != '_',
		Visibility: VisibilityUser,
		InitWrite:  true,
		Poll:       true,
	}
}
