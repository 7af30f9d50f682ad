// Package frappytest provides shared test fakes mirroring the
// teacher's coreengine/testutil package: a fake hardware connection,
// a fake clock, a recording dispatcher sender, and a recording logger.
package frappytest

import (
	"bytes"
	"sync"
	"time"

	"github.com/frappy-project/frappy-core/logging"
)

// =============================================================================
// FAKE COMM
// =============================================================================

// FakeComm implements stream.Conn over an in-memory byte buffer pair,
// for tests of stream.Connection and module read/write handlers that
// need a hardware-shaped link without a real socket.
type FakeComm struct {
	// Scripted maps a request line to the reply line to hand back on
	// the next Read call following a Write of that line.
	Scripted map[string]string

	// Writes records every line written by the caller.
	Writes []string

	// CloseErr causes Close to return this error.
	CloseErr error

	// Closed reports whether Close has been called.
	Closed bool

	mu      sync.Mutex
	pending bytes.Buffer
}

// NewFakeComm creates a FakeComm with no scripted responses.
func NewFakeComm() *FakeComm {
	return &FakeComm{Scripted: make(map[string]string)}
}

// WithReply scripts reply (with trailing \n appended) for request.
func (f *FakeComm) WithReply(request, reply string) *FakeComm {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scripted[request] = reply
	return f
}

func (f *FakeComm) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := string(bytes.TrimRight(p, "\n"))
	f.Writes = append(f.Writes, line)
	if reply, ok := f.Scripted[line]; ok {
		f.pending.WriteString(reply)
		f.pending.WriteByte('\n')
	}
	return len(p), nil
}

func (f *FakeComm) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending.Len() == 0 {
		return 0, nil
	}
	return f.pending.Read(p)
}

func (f *FakeComm) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return f.CloseErr
}

func (f *FakeComm) SetDeadline(t time.Time) error { return nil }

// WriteCount reports how many lines were written (thread-safe).
func (f *FakeComm) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}

// =============================================================================
// FAKE CLOCK
// =============================================================================

// FakeClock hands out a caller-controlled sequence of timestamps, for
// tests of the poller and statemachine packages that key behaviour off
// elapsed time without sleeping.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// =============================================================================
// RECORDING CONN (dispatcher.Sender)
// =============================================================================

// RecordingConn implements dispatcher.Sender, capturing every line
// sent to a simulated SECoP client for assertion.
type RecordingConn struct {
	mu    sync.Mutex
	Lines []string
}

// NewRecordingConn creates an empty RecordingConn.
func NewRecordingConn() *RecordingConn {
	return &RecordingConn{}
}

// Send implements dispatcher.Sender.
func (r *RecordingConn) Send(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lines = append(r.Lines, line)
}

// All returns a copy of every line sent so far (thread-safe).
func (r *RecordingConn) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Lines))
	copy(out, r.Lines)
	return out
}

// Last returns the most recently sent line, or "" if none were sent.
func (r *RecordingConn) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Lines) == 0 {
		return ""
	}
	return r.Lines[len(r.Lines)-1]
}

// =============================================================================
// RECORDING LOGGER
// =============================================================================

// LogEntry is one captured log line.
type LogEntry struct {
	Level  string
	Msg    string
	Fields []any
}

// RecordingLogger implements logging.Logger, capturing entries for
// assertion instead of writing them anywhere. Bind shares the
// underlying entry log with its parent, the way textLogger.Bind
// shares one writer across sub-loggers.
type RecordingLogger struct {
	shared *recordingState
	static []any
}

type recordingState struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewRecordingLogger creates an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{shared: &recordingState{}}
}

func (l *RecordingLogger) Debug(msg string, kv ...any) { l.log("debug", msg, kv) }
func (l *RecordingLogger) Info(msg string, kv ...any)  { l.log("info", msg, kv) }
func (l *RecordingLogger) Warn(msg string, kv ...any)  { l.log("warn", msg, kv) }
func (l *RecordingLogger) Error(msg string, kv ...any) { l.log("error", msg, kv) }

func (l *RecordingLogger) Bind(kv ...any) logging.Logger {
	return &RecordingLogger{shared: l.shared, static: append(append([]any{}, l.static...), kv...)}
}

func (l *RecordingLogger) log(level, msg string, kv []any) {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	all := append(append([]any{}, l.static...), kv...)
	l.shared.entries = append(l.shared.entries, LogEntry{Level: level, Msg: msg, Fields: all})
}

// Entries returns a copy of every captured entry (thread-safe).
func (l *RecordingLogger) Entries() []LogEntry {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	out := make([]LogEntry, len(l.shared.entries))
	copy(out, l.shared.entries)
	return out
}

// HasMessage reports whether any entry at level carries msg.
func (l *RecordingLogger) HasMessage(level, msg string) bool {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	for _, e := range l.shared.entries {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}
