// Package dispatcher implements the SECoP message dispatcher (spec.md
// §4.G): the module registry, the once-built descriptive JSON, per-
// connection subscriptions and the read/change/do/activate/ping
// request handlers.
package dispatcher

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/frappy-project/frappy-core/logging"
	"github.com/frappy-project/frappy-core/meta"
	"github.com/frappy-project/frappy-core/module"
	"github.com/frappy-project/frappy-core/observability"
	"github.com/frappy-project/frappy-core/secoperr"
	"github.com/frappy-project/frappy-core/wire"
)

// ModuleEntry is one registered module: its runtime instance plus the
// built class descriptor used for validation and description.
type ModuleEntry struct {
	Name  string
	Class *meta.ClassDescriptor
	Inst  *module.Module
}

// Sender is the per-connection outbound sink: one line at a time, in
// the order submitted. Send is called synchronously; a slow client
// blocks the goroutine that calls it.
type Sender interface {
	Send(line string)
}

// Connection tracks one client's subscription state (spec.md §4.G
// per-connection protocol state machine: connected -> identified ->
// subscribed* -> closed).
type Connection struct {
	ID     string
	Sender Sender

	mu             sync.Mutex
	identified     bool
	allModules     bool
	subscribed     map[string]bool // moduleName -> active (activate <module>)
	lastSent       map[string]sentUpdate
	omitUnchangedWithin time.Duration
}

type sentUpdate struct {
	value any
	ts    time.Time
}

// NewConnection builds per-connection subscription state.
func NewConnection(id string, sender Sender, omitUnchangedWithin time.Duration) *Connection {
	return &Connection{
		ID:                  id,
		Sender:              sender,
		subscribed:          map[string]bool{},
		lastSent:            map[string]sentUpdate{},
		omitUnchangedWithin: omitUnchangedWithin,
	}
}

// Dispatcher owns the module registry, built once at start and
// read-only thereafter (spec.md §5).
type Dispatcher struct {
	logger  logging.Logger
	modules map[string]*ModuleEntry
	order   []string

	descJSON json.RawMessage

	connMu sync.RWMutex
	conns  map[string]*Connection
}

// New builds an empty Dispatcher.
func New(logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		logger:  logger,
		modules: map[string]*ModuleEntry{},
		conns:   map[string]*Connection{},
	}
}

// Register adds a module to the registry. Call Finalize once every
// module has been registered to build the descriptive JSON.
func (d *Dispatcher) Register(entry *ModuleEntry) {
	d.modules[entry.Name] = entry
	d.order = append(d.order, entry.Name)
}

// Finalize builds the descriptive JSON once (spec.md §4.G "built once
// at start").
func (d *Dispatcher) Finalize(equipmentID string) error {
	desc := map[string]any{
		"equipment_id": equipmentID,
		"modules":      map[string]any{},
	}
	mods := desc["modules"].(map[string]any)
	for _, name := range d.order {
		entry := d.modules[name]
		mods[name] = describeModule(entry.Class)
	}
	data, err := json.Marshal(desc)
	if err != nil {
		return secoperr.Internal("build descriptive JSON: %v", err)
	}
	d.descJSON = data
	return nil
}

func describeModule(class *meta.ClassDescriptor) map[string]any {
	accessibles := map[string]any{}
	for _, name := range class.ParamOrder {
		p := class.Params[name]
		if !p.Export {
			continue
		}
		accessibles[name] = map[string]any{
			"datainfo":   p.Datatype.Describe(),
			"readonly":   p.Readonly,
			"visibility": p.Visibility,
			"group":      p.Group,
		}
	}
	for _, name := range class.CmdOrder {
		c := class.Commands[name]
		if !c.Export {
			continue
		}
		accessibles[name] = map[string]any{
			"datainfo":   c.AsDatatype().Describe(),
			"visibility": c.Visibility,
			"group":      c.Group,
		}
	}
	return map[string]any{
		"interface_classes": class.InterfaceClasses,
		"accessibles":       accessibles,
	}
}

// DescriptiveJSON returns the node's descriptive JSON built by
// Finalize, for the admin gRPC introspection surface.
func (d *Dispatcher) DescriptiveJSON() []byte {
	return []byte(d.descJSON)
}

// Health reports liveness and the current connection count, for the
// admin gRPC health surface.
func (d *Dispatcher) Health() (bool, map[string]any) {
	d.connMu.RLock()
	defer d.connMu.RUnlock()
	return true, map[string]any{"connections": float64(len(d.conns))}
}

// Connect registers a new connection.
func (d *Dispatcher) Connect(conn *Connection) {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	d.conns[conn.ID] = conn
}

// Disconnect removes a connection's subscriptions.
func (d *Dispatcher) Disconnect(connID string) {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	delete(d.conns, connID)
}

// Handle processes one parsed request from conn and returns the line
// to send back (the caller's framer appends the newline), or "" if no
// immediate reply is owed. Every call is timed and counted for the
// frappy_dispatcher_requests_total/frappy_dispatcher_request_duration_seconds
// metrics and wrapped in a trace span (SPEC_FULL.md §4.J).
func (d *Dispatcher) Handle(conn *Connection, msg wire.Message) string {
	_, span := observability.StartSpan(context.Background(), "dispatcher.handle."+msg.Action)
	defer span.End()

	start := time.Now()
	reply := d.dispatch(conn, msg)
	status := "ok"
	if strings.HasPrefix(reply, "error_") {
		status = "error"
	}
	observability.RecordDispatcherRequest(msg.Action, status, time.Since(start).Seconds())
	return reply
}

func (d *Dispatcher) dispatch(conn *Connection, msg wire.Message) string {
	switch msg.Action {
	case "*IDN?":
		conn.mu.Lock()
		conn.identified = true
		conn.mu.Unlock()
		return "ISSE&SINE2020,SECoP,V2019-09-16,v1.0"
	case "describe":
		return "describing . " + string(d.descJSON)
	case "ping":
		return renderPing(msg.Specifier)
	case "activate":
		return d.handleActivate(conn, msg)
	case "deactivate":
		return d.handleDeactivate(conn, msg)
	case "read":
		return d.handleRead(conn, msg)
	case "change":
		return d.handleChange(conn, msg)
	case "do":
		return d.handleDo(conn, msg)
	default:
		return render(wire.ErrorAction(msg.Action), "", wire.ErrorPayload(
			"ProtocolError", "unknown action "+msg.Action, nowSeconds(), nil))
	}
}

func renderPing(token string) string {
	line, _ := wire.Render("pong", token, nil)
	return line
}

func render(action, specifier string, payload any) string {
	line, err := wire.Render(action, specifier, payload)
	if err != nil {
		return action
	}
	return line
}

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / 1e9 }
