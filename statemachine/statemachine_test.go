package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCycleRetryStaysInState(t *testing.T) {
	calls := 0
	retryState := func(m *Machine) Result {
		calls++
		return Retry()
	}
	m := New(nil)
	m.Start(retryState)
	m.Cycle(time.Now(), nil, nil) // taskStart: schedules retryState, doesn't run it yet
	m.Cycle(time.Now(), nil, nil)
	m.Cycle(time.Now(), nil, nil)
	assert.Equal(t, 2, calls)
	assert.True(t, m.Running())
}

func TestCycleTransitionCascadesWithinMaxLoops(t *testing.T) {
	reached := false
	final := func(m *Machine) Result {
		reached = true
		return Finish()
	}
	second := func(m *Machine) Result { return Transition(final) }
	first := func(m *Machine) Result { return Transition(second) }

	m := New(nil)
	m.Start(first)
	m.Cycle(time.Now(), nil, nil) // taskStart: schedules first, doesn't run it yet
	m.Cycle(time.Now(), nil, nil) // cascades first -> second -> final -> Finish, all in one tick
	assert.True(t, reached, "cascading transitions should reach final within one Cycle call")
	assert.False(t, m.Running(), "machine finishes once the cascade reaches Finish")
}

func TestCycleTransitionExceedingMaxLoopsForcesCleanup(t *testing.T) {
	var loop StateFunc
	loop = func(m *Machine) Result { return Transition(loop) }
	cleanupCalled := false
	var cleanupReason CleanupReason

	m := New(nil)
	m.Start(loop)
	m.Cycle(time.Now(), nil, nil) // taskStart: schedules loop, doesn't run it yet
	m.Cycle(time.Now(), func(reason CleanupReason) StateFunc {
		cleanupCalled = true
		cleanupReason = reason
		return nil
	}, nil)

	assert.True(t, cleanupCalled, "a chain longer than maxLoops must force cleanup")
	assert.Equal(t, ReasonException, cleanupReason)
}

func TestCyclePanicBecomesCleanup(t *testing.T) {
	panicky := func(m *Machine) Result { panic("boom") }
	cleanupCalled := false
	m := New(nil)
	m.Start(panicky)
	m.Cycle(time.Now(), nil, nil) // taskStart: schedules panicky, doesn't run it yet
	m.Cycle(time.Now(), func(reason CleanupReason) StateFunc {
		return nil
	}, func() CleanupReason {
		cleanupCalled = true
		return ReasonException
	})
	assert.True(t, cleanupCalled)
}

func TestDeltaRespectsMinimum(t *testing.T) {
	m := New(nil)
	now := time.Now()
	m.Cycle(now, nil, nil)
	_, ok := m.Delta(time.Hour)
	assert.False(t, ok)
}
