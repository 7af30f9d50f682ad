package meta

import "github.com/frappy-project/frappy-core/datatype"

// CmdDecl is a command descriptor as declared on a module class.
// Commands merge the same way parameters do: a subclass re-declaring
// the same Name only overrides the fields it sets.
type CmdDecl struct {
	Name        string
	Description string
	Argument    datatype.Datatype // nil if the command takes no argument
	HasArgument bool
	Result      datatype.Datatype
	HasResult   bool
	Group       string
	Visibility  Visibility
	Export      *bool
	Order       int
}

type CmdState struct {
	Name        string
	Description string
	Argument    datatype.Datatype
	Result      datatype.Datatype
	Group       string
	Visibility  Visibility
	Export      bool
}

func mergeCmd(base CmdState, override CmdDecl) CmdState {
	out := base
	out.Name = override.Name
	if override.Description != "" {
		out.Description = override.Description
	}
	if override.HasArgument {
		out.Argument = override.Argument
	}
	if override.HasResult {
		out.Result = override.Result
	}
	if override.Group != "" {
		out.Group = override.Group
	}
	if override.Visibility != 0 {
		out.Visibility = override.Visibility
	}
	if override.Export != nil {
		out.Export = *override.Export
	}
	return out
}

func defaultCmdState(name string) CmdState {
	return CmdState{Name: name, Export: len(name) == 0 || name[0] != '_', Visibility: VisibilityUser}
}

// AsDatatype builds the datatype.Command descriptor for this CmdState
// command, used when exporting "accessibles" (spec.md §6).
func (c CmdState) AsDatatype() datatype.Command {
	return datatype.Command{Argument: c.Argument, Result: c.Result}
}
