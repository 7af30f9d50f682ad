package module

import (
	"github.com/frappy-project/frappy-core/datatype"
	"github.com/frappy-project/frappy-core/secoperr"
)

// updateReceiver is the narrow surface registerCallbacks needs on the
// "other" module: optional update_<p>/error_update_<p> hooks, or a
// generic announce fallback for autoupdate members (spec.md §4.C).
type updateReceiver interface {
	announceValue(pname string, v any)
	announceError(pname string, err error)
}

// RegisterCallbacks wires value/error callbacks from every one of m's
// parameters into other: if other provides onValue/onError for a
// given parameter name, those fire; otherwise, only for names listed
// in autoupdate, other's own announce path is driven directly
// (spec.md §4.C "registerCallbacks(other, autoupdate=[...])").
func (m *Module) RegisterCallbacks(other *Module, onValue map[string]func(any), onError map[string]func(error), autoupdate []string) {
	auto := map[string]bool{}
	for _, p := range autoupdate {
		auto[p] = true
	}
	m.accessLock.Lock()
	defer m.accessLock.Unlock()
	for pname, cell := range m.cells {
		if fn, ok := onValue[pname]; ok {
			cell.valueCallbacks = append(cell.valueCallbacks, fn)
		} else if auto[pname] {
			cell.valueCallbacks = append(cell.valueCallbacks, func(v any) { other.announceValue(pname, v) })
		}
		if fn, ok := onError[pname]; ok {
			cell.errorCallbacks = append(cell.errorCallbacks, fn)
		} else if auto[pname] {
			cell.errorCallbacks = append(cell.errorCallbacks, func(err error) { other.announceError(pname, err) })
		}
	}
}

// OnValue registers a raw value callback for pname, independent of
// RegisterCallbacks' cross-module wiring (used by the poller and
// stream self-healing logic).
func (m *Module) OnValue(pname string, fn func(any)) {
	m.accessLock.Lock()
	defer m.accessLock.Unlock()
	if cell, ok := m.cells[pname]; ok {
		cell.valueCallbacks = append(cell.valueCallbacks, fn)
	}
}

// OnError registers a raw error callback for pname.
func (m *Module) OnError(pname string, fn func(error)) {
	m.accessLock.Lock()
	defer m.accessLock.Unlock()
	if cell, ok := m.cells[pname]; ok {
		cell.errorCallbacks = append(cell.errorCallbacks, fn)
	}
}

// IsBusy reports whether a status value (code, text) falls in the
// busy range (spec.md §4.A, §4.C).
func IsBusy(status any) bool {
	code, err := datatype.Code(status)
	return err == nil && datatype.IsBusyCode(code)
}

// PollOneParam calls the wrapped read for pname, logging (via the
// announced read error) rather than propagating (spec.md §4.C
// "pollOneParam(p) calls read_p and logs exceptions without
// propagating").
func (m *Module) PollOneParam(pname string) {
	_, _ = m.ReadParam(pname)
}

// DoCommand invokes cname with arg, validating both argument and
// result through the command's descriptor (spec.md §4.G "do").
func (m *Module) DoCommand(cname string, arg any) (any, error) {
	cmd, ok := m.Class.Commands[cname]
	if !ok {
		return nil, secoperr.NoSuchCommand(m.Name, cname)
	}
	fn, ok := m.commands[cname]
	if !ok {
		return nil, secoperr.ProgrammingError("module %s: command %s has no implementation bound", m.Name, cname)
	}
	var validatedArg any
	var err error
	if cmd.Argument != nil {
		validatedArg, err = cmd.Argument.Validate(arg)
		if err != nil {
			return nil, err
		}
	}
	result, err := fn(m, validatedArg)
	if err != nil {
		return nil, err
	}
	if cmd.Result == nil {
		return nil, nil
	}
	return cmd.Result.Validate(result)
}

// CommandFunc is a concrete do_<c> implementation.
type CommandFunc func(mod *Module, arg any) (any, error)

// BindCommand registers a concrete command implementation.
func (m *Module) BindCommand(cname string, fn CommandFunc) error {
	if _, ok := m.Class.Commands[cname]; !ok {
		return secoperr.ProgrammingError("module %s: do_%s: no such command", m.Name, cname)
	}
	if m.commands == nil {
		m.commands = map[string]CommandFunc{}
	}
	m.commands[cname] = fn
	return nil
}
