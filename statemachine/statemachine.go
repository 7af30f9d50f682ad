// Package statemachine implements multi-step drive operations (spec.md
// §4.D) as plain functions that run one step per poll cycle instead of
// blocking the poller: ramps, polarity switches, wait-for-stabilise
// sequences.
package statemachine

import (
	"sync"
	"time"
)

// StateFunc is one step of a state machine: given the machine, it
// returns the next step (Transition), Retry to stay, or Finish to
// terminate. It cannot return a cleanup; cleanups come from the
// onCleanup callback passed to Cycle.
type StateFunc func(m *Machine) Result

// Result is the outcome of one StateFunc call: exactly one of Retry,
// Finish or a transition to another StateFunc.
type Result struct {
	kind resultKind
	next StateFunc
}

type resultKind int

const (
	kindRetry resultKind = iota
	kindFinish
	kindTransition
)

// Retry keeps the current state; it is called again next cycle.
func Retry() Result { return Result{kind: kindRetry} }

// Finish terminates the machine normally.
func Finish() Result { return Result{kind: kindFinish} }

// Transition moves to next, cascading up to maxloops times per tick
// if next itself transitions immediately (spec.md §4.D step 5).
func Transition(next StateFunc) Result { return Result{kind: kindTransition, next: next} }

// CleanupReason names why a cleanup function is running.
type CleanupReason int

const (
	ReasonNone CleanupReason = iota
	ReasonException
	ReasonStart
	ReasonStop
)

// taskKind distinguishes a pending Start from a pending Stop request.
type taskKind int

const (
	taskNone taskKind = iota
	taskStart
	taskStop
)

type pendingTask struct {
	kind  taskKind
	state StateFunc
}

// maxLoops bounds cascading immediate transitions within one tick
// (spec.md §4.D "loop up to maxloops times... default 10").
const maxLoops = 10

// StatusSetter receives the status a state function reports through
// Machine.SetStatus. The machine does not set or derive a status on
// transitions by itself.
type StatusSetter interface {
	SetDriveStatus(code int64, text string)
}

// Machine runs one module's state-function sequence. It holds no
// reference to the owning module beyond the StatusSetter callback, so
// it can be embedded or held as a field by any Drivable implementation.
type Machine struct {
	mu sync.Mutex

	statefunc StateFunc
	cleanup   StateFunc
	reason    CleanupReason
	init      bool
	lastReset time.Time
	now       time.Time

	task   pendingTask
	status StatusSetter

	errFunc func() error // not set anywhere; safeCall records a panic in reason
}

// New builds a Machine reporting status transitions to status (may be
// nil if the caller doesn't need status derivation).
func New(status StatusSetter) *Machine {
	return &Machine{status: status, lastReset: time.Now()}
}

// Start requests a transition to statefunc on the next cycle; it does
// not execute immediately (spec.md §4.D).
func (m *Machine) Start(statefunc StateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cleanup != nil {
		return // cleanup not interruptible (spec.md §4.D step 6)
	}
	m.task = pendingTask{kind: taskStart, state: statefunc}
}

// Stop requests the running state machine abort via its cleanup path.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cleanup != nil {
		return
	}
	m.task = pendingTask{kind: taskStop}
}

// Running reports whether a state function is currently active.
func (m *Machine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statefunc != nil || m.cleanup != nil
}

// Init reports whether this is the first call after a transition.
func (m *Machine) Init() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.init
}

// Now returns the timestamp of the current cycle.
func (m *Machine) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Delta returns the time since the last reset, or zero-false if less
// than minDt (spec.md §4.D "used for rate-limited control
// calculations").
func (m *Machine) Delta(minDt time.Duration) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.now.Sub(m.lastReset)
	if d < minDt {
		return 0, false
	}
	return d, true
}

// ResetDelta resets the Delta origin to now.
func (m *Machine) ResetDelta() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReset = m.now
}

// Cycle runs one tick (spec.md §4.D "cycle() semantics").
func (m *Machine) Cycle(now time.Time, onCleanup func(reason CleanupReason) StateFunc, onError func() CleanupReason) {
	m.mu.Lock()
	m.now = now

	if m.cleanup == nil && m.task.kind != taskNone {
		switch m.task.kind {
		case taskStart:
			m.beginCleanupLocked(ReasonStart, onCleanup)
			m.statefunc = m.task.state
		case taskStop:
			m.beginCleanupLocked(ReasonStop, onCleanup)
		}
		m.task = pendingTask{}
		m.mu.Unlock()
		return
	}

	var current StateFunc
	if m.cleanup != nil {
		current = m.cleanup
	} else {
		current = m.statefunc
	}
	init := m.init
	m.init = false
	m.mu.Unlock()

	if current == nil {
		return
	}
	_ = init

	loops := 0
	for current != nil {
		result := m.safeCall(current, onError)

		m.mu.Lock()
		switch result.kind {
		case kindRetry:
			m.mu.Unlock()
			return
		case kindFinish:
			if m.cleanup != nil {
				m.cleanup = nil
				m.statefunc = nil
				m.reason = ReasonNone
			} else {
				m.statefunc = nil
			}
			m.mu.Unlock()
			return
		case kindTransition:
			loops++
			if loops >= maxLoops {
				// Infinite-chain guard: force an internal error cleanup
				// (spec.md §4.D step 5 "breaks infinite chains").
				m.reason = ReasonException
				if onCleanup != nil {
					m.cleanup = onCleanup(ReasonException)
				}
				m.statefunc = nil
				m.init = true
				m.mu.Unlock()
				return
			}
			next := result.next
			if m.cleanup != nil {
				m.cleanup = next
			} else {
				m.statefunc = next
			}
			m.init = true
			m.mu.Unlock()
			current = next
		}
	}
}

func (m *Machine) beginCleanupLocked(reason CleanupReason, onCleanup func(CleanupReason) StateFunc) {
	m.reason = reason
	if onCleanup != nil {
		m.cleanup = onCleanup(reason)
	}
	m.init = true
}

// safeCall invokes fn, converting a panic into an exception cleanup
// reason (spec.md §4.D step 2 "exceptions become cleanup reasons").
func (m *Machine) safeCall(fn StateFunc, onError func() CleanupReason) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			m.mu.Lock()
			m.reason = ReasonException
			m.mu.Unlock()
			if onError != nil {
				onError()
			}
			result = Finish()
		}
	}()
	return fn(m)
}

// SetStatus forwards a status derivation to the bound StatusSetter, if
// any (spec.md §4.D "states may be annotated with a status").
func (m *Machine) SetStatus(code int64, text string) {
	if m.status != nil {
		m.status.SetDriveStatus(code, text)
	}
}
