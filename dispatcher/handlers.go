package dispatcher

import (
	"encoding/json"
	"time"

	"github.com/frappy-project/frappy-core/observability"
	"github.com/frappy-project/frappy-core/secoperr"
	"github.com/frappy-project/frappy-core/wire"
)

func errKind(err error) string { return string(secoperr.KindOf(err)) }

func marshalJSON(v any) ([]byte, error)      { return json.Marshal(v) }
func unmarshalJSON(data []byte, v any) error { return json.Unmarshal(data, v) }

func (d *Dispatcher) lookup(name string) (*ModuleEntry, bool) {
	e, ok := d.modules[name]
	return e, ok
}

// handleActivate subscribes conn to one module (or all, if Specifier
// is empty), flooding the current value/error of every subscribed
// parameter before the "active" reply (spec.md §4.G).
func (d *Dispatcher) handleActivate(conn *Connection, msg wire.Message) string {
	target := msg.Specifier

	if target == "" {
		conn.mu.Lock()
		conn.allModules = true
		conn.mu.Unlock()
		for _, name := range d.order {
			d.floodModule(conn, name)
		}
		d.updateSubscriptionMetrics()
		return render("active", "", nil)
	}

	if _, ok := d.lookup(target); !ok {
		return render(wire.ErrorAction("activate"), target, wire.ErrorPayload("NoSuchModule", "no such module "+target, nowSeconds(), nil))
	}
	conn.mu.Lock()
	conn.subscribed[target] = true
	conn.mu.Unlock()
	d.floodModule(conn, target)
	d.updateSubscriptionMetrics()
	return render("active", target, nil)
}

func (d *Dispatcher) handleDeactivate(conn *Connection, msg wire.Message) string {
	conn.mu.Lock()
	if msg.Specifier == "" {
		conn.allModules = false
		conn.subscribed = map[string]bool{}
	} else {
		delete(conn.subscribed, msg.Specifier)
	}
	conn.mu.Unlock()
	d.updateSubscriptionMetrics()
	if msg.Specifier == "" {
		return render("inactive", "", nil)
	}
	return render("inactive", msg.Specifier, nil)
}

// updateSubscriptionMetrics recomputes the frappy_subscriptions_active
// gauge for every registered module (SPEC_FULL.md §4.J).
func (d *Dispatcher) updateSubscriptionMetrics() {
	d.connMu.RLock()
	conns := make([]*Connection, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	d.connMu.RUnlock()

	for _, name := range d.order {
		count := 0
		for _, c := range conns {
			c.mu.Lock()
			if c.allModules || c.subscribed[name] {
				count++
			}
			c.mu.Unlock()
		}
		observability.SetSubscriptionCount(name, count)
	}
}

// floodModule sends an update with the cached value of every exported,
// initialised parameter of modName. A parameter's stored read error is
// not sent, and uninitialised parameters are skipped; an error_update
// goes out only when exporting the cached value fails.
func (d *Dispatcher) floodModule(conn *Connection, modName string) {
	entry, ok := d.lookup(modName)
	if !ok {
		return
	}
	for _, pname := range entry.Class.ParamOrder {
		p := entry.Class.Params[pname]
		if !p.Export {
			continue
		}
		v, ok := entry.Inst.Get(pname)
		if !ok {
			continue
		}
		key := modName + ":" + pname
		exported, err := p.Datatype.Export(v)
		if err != nil {
			conn.Sender.Send(render("error_update", key, wire.ErrorPayload(errKind(err), err.Error(), nowSeconds(), nil)))
			continue
		}
		conn.Sender.Send(render("update", key, wire.ReplyPayload(exported, nowSeconds())))
		conn.lastSent[key] = sentUpdate{value: v, ts: time.Now()}
	}
}

func (d *Dispatcher) handleRead(conn *Connection, msg wire.Message) string {
	modName, pname, ok := splitModParam(msg.Specifier)
	if !ok {
		return render(wire.ErrorAction("read"), msg.Specifier, wire.ErrorPayload("ProtocolError", "expected module:parameter", nowSeconds(), nil))
	}
	entry, ok := d.lookup(modName)
	if !ok {
		return render(wire.ErrorAction("read"), msg.Specifier, wire.ErrorPayload("NoSuchModule", "no such module "+modName, nowSeconds(), nil))
	}
	p, ok := entry.Class.Params[pname]
	if !ok {
		return render(wire.ErrorAction("read"), msg.Specifier, wire.ErrorPayload("NoSuchParameter", "no such parameter "+pname, nowSeconds(), nil))
	}
	v, err := entry.Inst.ReadParam(pname)
	if err != nil {
		return render(wire.ErrorAction("read"), msg.Specifier, wire.ErrorPayload(errKind(err), err.Error(), nowSeconds(), nil))
	}
	exported, err := p.Datatype.Export(v)
	if err != nil {
		return render(wire.ErrorAction("read"), msg.Specifier, wire.ErrorPayload(errKind(err), err.Error(), nowSeconds(), nil))
	}
	return render("reply", msg.Specifier, wire.ReplyPayload(exported, nowSeconds()))
}

func (d *Dispatcher) handleChange(conn *Connection, msg wire.Message) string {
	modName, pname, ok := splitModParam(msg.Specifier)
	if !ok {
		return render(wire.ErrorAction("change"), msg.Specifier, wire.ErrorPayload("ProtocolError", "expected module:parameter", nowSeconds(), nil))
	}
	entry, ok := d.lookup(modName)
	if !ok {
		return render(wire.ErrorAction("change"), msg.Specifier, wire.ErrorPayload("NoSuchModule", "no such module "+modName, nowSeconds(), nil))
	}
	p, ok := entry.Class.Params[pname]
	if !ok {
		return render(wire.ErrorAction("change"), msg.Specifier, wire.ErrorPayload("NoSuchParameter", "no such parameter "+pname, nowSeconds(), nil))
	}
	if p.Readonly {
		return render(wire.ErrorAction("change"), msg.Specifier, wire.ErrorPayload("ReadOnly", "parameter is readonly", nowSeconds(), nil))
	}
	var arg any
	if len(msg.Data) > 0 {
		if err := unmarshalJSON(msg.Data, &arg); err != nil {
			return render(wire.ErrorAction("change"), msg.Specifier, wire.ErrorPayload("BadValue", "invalid JSON argument", nowSeconds(), nil))
		}
	}
	v, err := entry.Inst.WriteParam(pname, arg)
	if err != nil {
		return render(wire.ErrorAction("change"), msg.Specifier, wire.ErrorPayload(errKind(err), err.Error(), nowSeconds(), nil))
	}
	exported, err := p.Datatype.Export(v)
	if err != nil {
		return render(wire.ErrorAction("change"), msg.Specifier, wire.ErrorPayload(errKind(err), err.Error(), nowSeconds(), nil))
	}
	return render("changed", msg.Specifier, wire.ReplyPayload(exported, nowSeconds()))
}

func (d *Dispatcher) handleDo(conn *Connection, msg wire.Message) string {
	modName, cname, ok := splitModParam(msg.Specifier)
	if !ok {
		return render(wire.ErrorAction("do"), msg.Specifier, wire.ErrorPayload("ProtocolError", "expected module:command", nowSeconds(), nil))
	}
	entry, ok := d.lookup(modName)
	if !ok {
		return render(wire.ErrorAction("do"), msg.Specifier, wire.ErrorPayload("NoSuchModule", "no such module "+modName, nowSeconds(), nil))
	}
	if _, ok := entry.Class.Commands[cname]; !ok {
		return render(wire.ErrorAction("do"), msg.Specifier, wire.ErrorPayload("NoSuchCommand", "no such command "+cname, nowSeconds(), nil))
	}
	var arg any
	if len(msg.Data) > 0 {
		if err := unmarshalJSON(msg.Data, &arg); err != nil {
			return render(wire.ErrorAction("do"), msg.Specifier, wire.ErrorPayload("BadValue", "invalid JSON argument", nowSeconds(), nil))
		}
	}
	result, err := entry.Inst.DoCommand(cname, arg)
	if err != nil {
		return render("error_command", msg.Specifier, wire.ErrorPayload(errKind(err), err.Error(), nowSeconds(), nil))
	}
	return render("done", msg.Specifier, wire.ReplyPayload(result, nowSeconds()))
}

// AnnounceUpdate implements module.Announcer: fan the update out to
// every subscribed connection, suppressing duplicate values arriving
// within omit_unchanged_within unless the value changed or the
// timestamp gap exceeds that window (spec.md §4.G).
func (d *Dispatcher) AnnounceUpdate(moduleName, paramName string, value any, readErr error, ts time.Time) {
	key := moduleName + ":" + paramName

	var exported any
	if readErr == nil {
		entry, ok := d.lookup(moduleName)
		if !ok {
			return
		}
		p, ok := entry.Class.Params[paramName]
		if !ok {
			return
		}
		v, err := p.Datatype.Export(value)
		if err != nil {
			readErr = err
		} else {
			exported = v
		}
	}

	d.connMu.RLock()
	conns := make([]*Connection, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	d.connMu.RUnlock()

	for _, conn := range conns {
		conn.mu.Lock()
		subscribed := conn.allModules || conn.subscribed[moduleName]
		if !subscribed {
			conn.mu.Unlock()
			continue
		}
		prev, seen := conn.lastSent[key]
		suppress := seen && readErr == nil && valuesEqual(prev.value, value) && ts.Sub(prev.ts) < conn.omitUnchangedWithin
		if !suppress {
			conn.lastSent[key] = sentUpdate{value: value, ts: ts}
		}
		conn.mu.Unlock()

		if suppress {
			continue
		}
		if readErr != nil {
			conn.Sender.Send(render("error_update", key, wire.ErrorPayload(errKind(readErr), readErr.Error(), toSeconds(ts), nil)))
			continue
		}
		conn.Sender.Send(render("update", key, wire.ReplyPayload(exported, toSeconds(ts))))
	}
}

func toSeconds(ts time.Time) float64 { return float64(ts.UnixNano()) / 1e9 }

func valuesEqual(a, b any) bool {
	return formatForCompare(a) == formatForCompare(b)
}

func formatForCompare(v any) string {
	data, err := marshalJSON(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func splitModParam(specifier string) (mod, param string, ok bool) {
	for i := 0; i < len(specifier); i++ {
		if specifier[i] == ':' {
			return specifier[:i], specifier[i+1:], true
		}
	}
	return "", "", false
}
