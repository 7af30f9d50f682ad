// Package modules provides the generic SECoP interface-class
// building blocks (Readable, Writable, Drivable) and a stream-driven
// device implementation on top of them, wiring module, meta, stream,
// statemachine and poller together the way a real node's hardware
// driver would (spec.md §4.B-F).
package modules

import (
	"github.com/frappy-project/frappy-core/datatype"
	"github.com/frappy-project/frappy-core/meta"
)

// Readable is the base class every measurable module descends from:
// a read-only value plus a status tuple.
var Readable = &meta.ClassDecl{
	Name:             "Readable",
	InterfaceClasses: []string{"Readable"},
	Properties: []meta.PropertyDecl{
		{Name: "description", Datatype: datatype.String{}, HasDefault: true, Default: ""},
	},
	Parameters: []meta.ParamDecl{
		{
			Name:       "value",
			Description: "main value of this module",
			Datatype:   datatype.Float{},
			Readonly:   boolPtr(true),
		},
		{
			Name:       "status",
			Description: "current module state",
			Datatype:   datatype.NewStatus(),
			Readonly:   boolPtr(true),
		},
	},
}

// Writable adds a settable target on top of Readable.
var Writable = &meta.ClassDecl{
	Name:             "Writable",
	Parent:           Readable,
	InterfaceClasses: []string{"Writable"},
	Parameters: []meta.ParamDecl{
		{
			Name:       "target",
			Description: "setpoint for value",
			Datatype:   datatype.Float{},
			Readonly:   boolPtr(false),
		},
	},
}

// Drivable adds a stop command on top of Writable, for modules whose
// target is reached asynchronously via a driving state machine.
var Drivable = &meta.ClassDecl{
	Name:             "Drivable",
	Parent:           Writable,
	InterfaceClasses: []string{"Drivable"},
	Commands: []meta.CmdDecl{
		{
			Name:        "stop",
			Description: "cease driving, go to the nearest safe state",
			HasArgument: true,
			Argument:    nil,
			HasResult:   true,
			Result:      nil,
		},
	},
}

func boolPtr(b bool) *bool { return &b }
