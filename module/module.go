// Package module implements the per-instance module runtime (spec.md
// §4.C): parameter cells, construction from a configuration dict,
// read/write wrapping, announce/callback fan-out and the writeDict
// deferred-initial-write queue.
package module

import (
	"sync"
	"time"

	"github.com/frappy-project/frappy-core/handler"
	"github.com/frappy-project/frappy-core/meta"
	"github.com/frappy-project/frappy-core/secoperr"
)

// Unchanged is the sentinel a ReadOneFunc/WriteOneFunc returns to mean
// "the cache already reflects the new value" (spec.md §4.B "if it
// returns a sentinel meaning already set"): the wrapper falls back to
// the current cached value instead of re-validating a return value.
var Unchanged = &struct{ unchanged byte }{}

// ReadOneFunc is a concrete read_<p> implementation: (module) -> value.
type ReadOneFunc func(mod *Module) (any, error)

// WriteOneFunc is a concrete write_<p> implementation:
// (module, value) -> value_written.
type WriteOneFunc func(mod *Module, value any) (any, error)

// Announcer is the dispatcher-side sink for parameter updates
// (spec.md §4.C announceUpdate step 1 "notifies the dispatcher").
type Announcer interface {
	AnnounceUpdate(moduleName, paramName string, value any, readErr error, ts time.Time)
}

// ParamCell is the per-instance runtime state of one parameter
// (spec.md §3 "per-instance parameter state", named ParamCell per
// SPEC_FULL.md §3): value, timestamp, last read error and the
// callbacks registered against it.
type ParamCell struct {
	Value        any
	Timestamp    time.Time
	ReadErr      error
	Initialised  bool

	valueCallbacks []func(any)
	errorCallbacks []func(error)
}

// Module is one instance of a module class: the built ClassDescriptor
// plus per-instance cells, properties, the deferred writeDict and the
// accessLock guarding hardware-plus-cache consistency (spec.md §5).
type Module struct {
	Name  string
	Class *meta.ClassDescriptor

	accessLock sync.Mutex

	properties map[string]any
	cells      map[string]*ParamCell

	reads    map[string]ReadOneFunc
	writes   map[string]WriteOneFunc
	commands map[string]CommandFunc

	handlers *handler.Registry

	// writeDict holds (pname, value) pairs queued for write-at-start
	// (spec.md §4.C, §4.I); only Construct fills it.
	writeDict map[string]any

	announcer Announcer

	persistent map[string]string // pname -> "off"|"on"|"auto"
	saveHook   func(moduleName, pname string)
}

// SetSaveHook wires the persistence store's save trigger (spec.md
// §4.I "on auto, an updated value triggers an immediate save").
func (m *Module) SetSaveHook(fn func(moduleName, pname string)) { m.saveHook = fn }

// New builds a Module instance skeleton for desc. Call Construct next
// to apply a configuration dict (spec.md §4.C).
func New(name string, desc *meta.ClassDescriptor, announcer Announcer) *Module {
	m := &Module{
		Name:       name,
		Class:      desc,
		properties: map[string]any{},
		cells:      map[string]*ParamCell{},
		reads:      map[string]ReadOneFunc{},
		writes:     map[string]WriteOneFunc{},
		commands:   map[string]CommandFunc{},
		writeDict:  map[string]any{},
		persistent: map[string]string{},
		announcer:  announcer,
	}
	for name := range desc.Params {
		m.cells[name] = &ParamCell{}
	}
	return m
}

// BindHandlers attaches the handler registry used to resolve
// meta.HandlerBinding references on parameters (spec.md §4.H).
func (m *Module) BindHandlers(r *handler.Registry) { m.handlers = r }

// BindRead registers a concrete read_<p> implementation. Rejecting an
// unknown parameter name mirrors the class-build check spec.md §4.B
// requires for read_<x>/write_<x> methods.
func (m *Module) BindRead(pname string, fn ReadOneFunc) error {
	if _, ok := m.Class.Params[pname]; !ok {
		return secoperr.ProgrammingError("module %s: read_%s: no such parameter", m.Name, pname)
	}
	m.reads[pname] = fn
	return nil
}

// BindWrite registers a concrete write_<p> implementation.
func (m *Module) BindWrite(pname string, fn WriteOneFunc) error {
	p, ok := m.Class.Params[pname]
	if !ok {
		return secoperr.ProgrammingError("module %s: write_%s: no such parameter", m.Name, pname)
	}
	if p.Readonly {
		return secoperr.ProgrammingError("module %s: write_%s: parameter is readonly", m.Name, pname)
	}
	m.writes[pname] = fn
	return nil
}

// SetPersistence marks pname with a persistence mode ("off", "on" or
// "auto" — spec.md §4.I).
func (m *Module) SetPersistence(pname, mode string) { m.persistent[pname] = mode }

// Construct applies a configuration dict: properties first, then
// parameters, queuing initial writes into writeDict (spec.md §4.C).
// Unknown parameter keys fail construction; property keys the class
// does not declare are ignored.
func (m *Module) Construct(propConfig map[string]any, paramConfig map[string]any) error {
	props, err := meta.ResolveProperties(m.Class.Properties, propConfig)
	if err != nil {
		return err
	}
	m.properties = props

	known := map[string]bool{}
	for name := range m.Class.Params {
		known[name] = true
	}
	for key := range paramConfig {
		if !known[key] {
			return secoperr.ConfigError("module %s: unknown parameter %q in configuration", m.Name, key)
		}
	}

	for name, p := range m.Class.Params {
		cell := m.cells[name]
		if configured, ok := paramConfig[name]; ok {
			v, err := p.Datatype.Validate(configured)
			if err != nil {
				return secoperr.ConfigError("module %s: parameter %s: %v", m.Name, name, err)
			}
			cell.Value = v
			cell.Timestamp = time.Time{}
			cell.Initialised = true
			if _, writable := m.writes[name]; writable && initWriteEnabled(p) {
				m.writeDict[name] = v
			}
			continue
		}
		if p.NeedsConfig {
			return secoperr.ConfigError("module %s: parameter %s requires a configured value", m.Name, name)
		}
		if p.HasDefault {
			cell.Value = p.Default
			cell.Initialised = true
			continue
		}
		// Not initialised: reading returns ConfigError until a first
		// successful read or write (spec.md §4.C).
	}
	return nil
}

func initWriteEnabled(p meta.ParamState) bool { return p.InitWrite }

// Get implements handler.Accessor: the current cached value.
func (m *Module) Get(pname string) (any, bool) {
	m.accessLock.Lock()
	defer m.accessLock.Unlock()
	cell, ok := m.cells[pname]
	if !ok || !cell.Initialised {
		return nil, false
	}
	return cell.Value, true
}

// Set implements handler.Accessor: validate value and store and
// announce it as pname's cached value, without calling a bound
// write_<p> or write handler.
func (m *Module) Set(pname string, value any) error {
	p, ok := m.Class.Params[pname]
	if !ok {
		return secoperr.NoSuchParameter(m.Name, pname)
	}
	v, err := p.Datatype.Validate(value)
	if err != nil {
		return err
	}
	m.announceValue(pname, v)
	return nil
}

// ReadParam performs a wrapped read of pname (spec.md §4.B): invoke
// user code if bound, validate its result (unless Unchanged), update
// the cache and announce; with no bound read_<p> it returns the
// cached value as-is.
func (m *Module) ReadParam(pname string) (any, error) {
	p, ok := m.Class.Params[pname]
	if !ok {
		return nil, secoperr.NoSuchParameter(m.Name, pname)
	}

	if g, ok := m.handlerFor(p, false); ok && g.Read != nil {
		return m.wrapRead(pname, p, func() (any, error) { return g.Read(m, pname) })
	}
	if g, ok := m.handlerFor(p, false); ok && g.ReadAll != nil {
		if err := g.ReadAll(m); err != nil {
			m.announceError(pname, err)
			return nil, err
		}
		m.accessLock.Lock()
		defer m.accessLock.Unlock()
		return m.cells[pname].Value, m.cells[pname].ReadErr
	}

	fn, hasFn := m.reads[pname]
	if !hasFn {
		m.accessLock.Lock()
		defer m.accessLock.Unlock()
		cell := m.cells[pname]
		if !cell.Initialised {
			return nil, secoperr.ConfigError("module %s: parameter %s not initialised", m.Name, pname)
		}
		return cell.Value, cell.ReadErr
	}
	return m.wrapRead(pname, p, func() (any, error) { return fn(m) })
}

func (m *Module) wrapRead(pname string, p meta.ParamState, call func() (any, error)) (any, error) {
	v, err := call()
	if err != nil {
		m.announceError(pname, err)
		return nil, err
	}
	if v == Unchanged {
		m.accessLock.Lock()
		cached := m.cells[pname].Value
		m.accessLock.Unlock()
		return cached, nil
	}
	vv, err := p.Datatype.Validate(v)
	if err != nil {
		m.announceError(pname, err)
		return nil, err
	}
	m.announceValue(pname, vv)
	return vv, nil
}

// WriteParam performs a wrapped write of pname (spec.md §4.B):
// validate the input, call user code, then cache and announce the
// result (or the input, if the user code returned Unchanged).
func (m *Module) WriteParam(pname string, value any) (any, error) {
	p, ok := m.Class.Params[pname]
	if !ok {
		return nil, secoperr.NoSuchParameter(m.Name, pname)
	}
	if p.Readonly {
		return nil, secoperr.ReadOnly(m.Name, pname)
	}
	validated, err := p.Datatype.Validate(value)
	if err != nil {
		return nil, err
	}

	if g, ok := m.handlerFor(p, true); ok && g.Write != nil {
		result, err := g.Write(m, pname, validated)
		if err != nil {
			m.announceError(pname, err)
			return nil, err
		}
		if result == Unchanged {
			result = validated
		}
		m.announceValue(pname, result)
		return result, nil
	}
	if g, ok := m.handlerFor(p, true); ok && g.WriteAll != nil {
		vm := handler.NewValueMap(map[string]any{pname: validated}, m)
		if err := g.WriteAll(m, vm); err != nil {
			m.announceError(pname, err)
			return nil, err
		}
		m.accessLock.Lock()
		defer m.accessLock.Unlock()
		return m.cells[pname].Value, nil
	}

	fn, hasFn := m.writes[pname]
	if !hasFn {
		m.announceValue(pname, validated)
		return validated, nil
	}
	result, err := fn(m, validated)
	if err != nil {
		m.announceError(pname, err)
		return nil, err
	}
	if result == Unchanged {
		result = validated
	}
	vv, err := p.Datatype.Validate(result)
	if err != nil {
		m.announceError(pname, err)
		return nil, err
	}
	m.announceValue(pname, vv)
	return vv, nil
}

func (m *Module) handlerFor(p meta.ParamState, isWrite bool) (*handler.Group, bool) {
	if p.Handler == nil || m.handlers == nil || p.Handler.IsWrite != isWrite {
		return nil, false
	}
	return m.handlers.Lookup(p.Handler.GroupName)
}

// announceValue stores a successful value, timestamps it, clears any
// prior read error, runs callbacks and notifies the announcer
// (spec.md §4.C announceUpdate).
func (m *Module) announceValue(pname string, v any) {
	m.accessLock.Lock()
	cell := m.cells[pname]
	cell.Value = v
	cell.Timestamp = time.Now()
	cell.ReadErr = nil
	cell.Initialised = true
	cbs := append([]func(any){}, cell.valueCallbacks...)
	mode := m.persistent[pname]
	m.accessLock.Unlock()

	for _, cb := range cbs {
		cb(v)
	}
	if m.announcer != nil {
		m.announcer.AnnounceUpdate(m.Name, pname, v, nil, cell.Timestamp)
	}
	if mode == "auto" {
		m.requestSave(pname)
	}
}

// announceError stores a read error, still updating the timestamp
// (spec.md §4.C "stores the new value/timestamp even on error").
func (m *Module) announceError(pname string, err error) {
	m.accessLock.Lock()
	cell := m.cells[pname]
	cell.ReadErr = err
	cell.Timestamp = time.Now()
	cbs := append([]func(error){}, cell.errorCallbacks...)
	m.accessLock.Unlock()

	for _, cb := range cbs {
		cb(err)
	}
	if m.announcer != nil {
		m.announcer.AnnounceUpdate(m.Name, pname, nil, err, cell.Timestamp)
	}
}

// DrainWriteDict empties and returns the deferred initial-write queue
// (spec.md §4.E "each cycle also drains writeDict").
func (m *Module) DrainWriteDict() map[string]any {
	m.accessLock.Lock()
	defer m.accessLock.Unlock()
	out := m.writeDict
	m.writeDict = map[string]any{}
	return out
}

// requestSave is overridden by persist.Store via SetSaveHook; it is a
// no-op until bound (spec.md §4.I auto-save on update).
func (m *Module) requestSave(pname string) {
	if m.saveHook != nil {
		m.saveHook(m.Name, pname)
	}
}
