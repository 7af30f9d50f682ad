package modules

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/frappy-project/frappy-core/datatype"
	"github.com/frappy-project/frappy-core/module"
	"github.com/frappy-project/frappy-core/secoperr"
	"github.com/frappy-project/frappy-core/statemachine"
	"github.com/frappy-project/frappy-core/stream"
)

// rampStep is the per-cycle approach rate toward target, in value
// units. A real driver would derive this from a configured ramp rate
// property; fixed here to keep the demo driver self-contained.
const rampStep = 1.0

// StreamDrivable is a Drivable backed by a line-oriented hardware
// connection: writing target starts a ramp state machine that drives
// the module's value toward the setpoint one rampStep per poll cycle,
// pushing each step to the hardware and announcing the SECoP
// BUSY/IDLE status transitions along the way (spec.md §4.D "state
// machine", §4.E "status precedes value").
type StreamDrivable struct {
	*module.Module
	Conn *stream.Connection

	WriteCmd string // printf-style command sent on every ramp step, e.g. "W %v"

	mu      sync.Mutex
	machine *statemachine.Machine
	value   float64
	code    int64
	text    string
}

// NewStreamDrivable builds a StreamDrivable bound to conn.
func NewStreamDrivable(mod *module.Module, conn *stream.Connection, writeCmd string) (*StreamDrivable, error) {
	d := &StreamDrivable{
		Conn:     conn,
		Module:   mod,
		WriteCmd: writeCmd,
		code:     datatype.StatusIdle,
	}
	d.machine = statemachine.New(d)

	if err := mod.BindRead("value", d.readValue); err != nil {
		return nil, err
	}
	if err := mod.BindRead("status", d.readStatus); err != nil {
		return nil, err
	}
	if err := mod.BindWrite("target", d.writeTarget); err != nil {
		return nil, err
	}
	if err := mod.BindCommand("stop", d.doStop); err != nil {
		return nil, err
	}
	return d, nil
}

// SetDriveStatus implements statemachine.StatusSetter.
func (d *StreamDrivable) SetDriveStatus(code int64, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.code, d.text = code, text
}

// readValue reports the ramp's current position. The state machine,
// not a hardware query, is authoritative for value while a drive is
// in progress (spec.md §4.D state functions "run one step per poll
// cycle instead of blocking the poller").
func (d *StreamDrivable) readValue(mod *module.Module) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, nil
}

// readStatus advances the drive state machine by one cycle (driven by
// the poller's status-first read ordering) and reports the resulting
// status tuple.
func (d *StreamDrivable) readStatus(mod *module.Module) (any, error) {
	d.machine.Cycle(time.Now(), d.onCleanup, d.onError)

	d.mu.Lock()
	code, text := d.code, d.text
	d.mu.Unlock()

	label, ok := datatype.StatusCodeEnum.Label(code)
	if !ok {
		label = "IDLE"
	}
	return datatype.MakeStatus(label, text), nil
}

func (d *StreamDrivable) writeTarget(mod *module.Module, value any) (any, error) {
	target, ok := value.(float64)
	if !ok {
		return nil, secoperr.WrongType("target must be a number, got %T", value)
	}
	d.machine.Start(d.rampState(target))
	return target, nil
}

func (d *StreamDrivable) doStop(mod *module.Module, arg any) (any, error) {
	if !d.machine.Running() {
		return nil, secoperr.Impossible("stop requested but no drive is active")
	}
	d.machine.Stop()
	return nil, nil
}

// rampState drives the value one rampStep per cycle toward target,
// transitioning to Finish once within rampStep of it.
func (d *StreamDrivable) rampState(target float64) statemachine.StateFunc {
	return func(m *statemachine.Machine) statemachine.Result {
		d.mu.Lock()
		cur := d.value
		d.mu.Unlock()

		delta := target - cur
		if delta > -rampStep && delta < rampStep {
			d.mu.Lock()
			d.value = target
			d.mu.Unlock()
			m.SetStatus(datatype.StatusIdle, "")
			d.writeBack(target)
			return statemachine.Finish()
		}

		next := cur + rampStep
		if delta < 0 {
			next = cur - rampStep
		}
		d.mu.Lock()
		d.value = next
		d.mu.Unlock()
		m.SetStatus(datatype.StatusRamping, "ramping")
		d.writeBack(next)
		return statemachine.Retry()
	}
}

// writeBack pushes the current ramp step to the hardware. Best-effort:
// a communication error doesn't abort the drive, it is left for the
// next value read to surface (spec.md §4.F "the poller treats this as
// a recoverable error and continues the next cycle").
func (d *StreamDrivable) writeBack(value float64) {
	if d.WriteCmd == "" {
		return
	}
	_, _ = d.Conn.Communicate(fmt.Sprintf(d.WriteCmd, strconv.FormatFloat(value, 'f', -1, 64)))
}

// onCleanup is consulted when the machine takes up a Start or Stop
// request and when a cascade of transitions exceeds the statemachine's
// loop bound (ReasonException): only Stop and an internal exception need an actual
// cleanup step, so every other reason returns nil and the new state
// runs on the following cycle undisturbed.
func (d *StreamDrivable) onCleanup(reason statemachine.CleanupReason) statemachine.StateFunc {
	switch reason {
	case statemachine.ReasonStop:
		return func(m *statemachine.Machine) statemachine.Result {
			m.SetStatus(datatype.StatusIdle, "stopped")
			return statemachine.Finish()
		}
	case statemachine.ReasonException:
		return func(m *statemachine.Machine) statemachine.Result {
			m.SetStatus(datatype.StatusError, "exception during drive")
			return statemachine.Finish()
		}
	default:
		return nil
	}
}

func (d *StreamDrivable) onError() statemachine.CleanupReason {
	return statemachine.ReasonException
}
