package datatype

import "github.com/frappy-project/frappy-core/secoperr"

// Command is the SECoP "command" datatype: describes a command's
// argument and result types. It is not itself a value datatype — it
// has no Validate-able "value" of its own beyond describing the call
// signature, but implements Datatype so it can sit in the same
// descriptor tables as value datatypes (spec.md §3).
type Command struct {
	Argument Datatype // nil if the command takes no argument
	Result   Datatype // nil if the command returns nothing
}

func (c Command) Validate(v any) (any, error) {
	return nil, secoperr.ProgrammingError("Command is not a value datatype")
}

func (c Command) Import(wire any) (any, error) { return c.Validate(wire) }
func (c Command) Export(v any) (any, error)    { return c.Validate(v) }

func (c Command) Describe() map[string]any {
	d := map[string]any{"type": tagCmd}
	if c.Argument != nil {
		d["argument"] = c.Argument.Describe()
	}
	if c.Result != nil {
		d["result"] = c.Result.Describe()
	}
	return d
}

func (c Command) Default() any { return nil }

func (c Command) CompatibleWith(other Datatype) bool {
	oc, ok := other.(Command)
	if !ok {
		return false
	}
	if (c.Argument == nil) != (oc.Argument == nil) {
		return false
	}
	if c.Argument != nil && !c.Argument.CompatibleWith(oc.Argument) {
		return false
	}
	if (c.Result == nil) != (oc.Result == nil) {
		return false
	}
	if c.Result != nil && !c.Result.CompatibleWith(oc.Result) {
		return false
	}
	return true
}

func (c Command) FromString(s string) (any, error) {
	return nil, secoperr.ProgrammingError("Command has no textual literal form")
}

// ValidateArgument validates a command-call argument against c.Argument,
// accepting nil only when the command takes no argument.
func (c Command) ValidateArgument(v any) (any, error) {
	if c.Argument == nil {
		if v != nil {
			return nil, secoperr.BadValue("command takes no argument")
		}
		return nil, nil
	}
	return c.Argument.Validate(v)
}

// ValidateResult validates a command's return value against c.Result.
func (c Command) ValidateResult(v any) (any, error) {
	if c.Result == nil {
		return nil, nil
	}
	return c.Result.Validate(v)
}
