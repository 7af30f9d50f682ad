package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memConn is an in-memory Conn: writes go into outbox, and each write
// releases the next pre-scripted reply into the inbox, the way a device
// answers only after it is asked. Good enough to drive Connection's
// protocol without a real socket.
type memConn struct {
	mu      sync.Mutex
	replies []string
	inbox   *bytes.Buffer
	outbox  *bytes.Buffer
	closed  bool
}

func newMemConn(scripted ...string) *memConn {
	return &memConn{replies: scripted, inbox: &bytes.Buffer{}, outbox: &bytes.Buffer{}}
}

func (m *memConn) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.EOF
	}
	return m.inbox.Read(p)
}

func (m *memConn) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("closed")
	}
	if len(m.replies) > 0 {
		m.inbox.WriteString(m.replies[0])
		m.replies = m.replies[1:]
	}
	return m.outbox.Write(p)
}

func (m *memConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memConn) SetDeadline(t time.Time) error { return nil }

func TestCommunicateSendsAndReadsOneLine(t *testing.T) {
	mc := newMemConn("42.0\n")
	conn := New(Options{Timeout: time.Second}, func(ctx context.Context) (Conn, error) {
		return mc, nil
	}, nil)
	require.NoError(t, conn.Connect(context.Background()))

	reply, err := conn.Communicate("READ?")
	require.NoError(t, err)
	assert.Equal(t, "42.0", reply)
	assert.Equal(t, "READ?\n", mc.outbox.String())
}

func TestConnectRunsIdentificationAndFiresReconnectCallback(t *testing.T) {
	mc := newMemConn("IDN,ok\n")
	fired := 0
	conn := New(Options{
		Identification: []IdentExchange{
			{Request: "*IDN?", Match: func(reply string) bool { return reply == "IDN,ok" }},
		},
	}, func(ctx context.Context) (Conn, error) { return mc, nil }, nil)
	conn.OnReconnect(func() bool {
		fired++
		return true
	})

	require.NoError(t, conn.Connect(context.Background()))
	assert.True(t, conn.IsConnected())
	assert.Equal(t, 1, fired)
}

func TestConnectFailsOnBadIdentification(t *testing.T) {
	mc := newMemConn("GARBAGE\n")
	conn := New(Options{
		Identification: []IdentExchange{
			{Request: "*IDN?", Match: func(reply string) bool { return reply == "expected" }},
		},
	}, func(ctx context.Context) (Conn, error) { return mc, nil }, nil)

	err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, conn.IsConnected())
}

func TestMulticommSendsAllRequestsUnderOneLock(t *testing.T) {
	mc := newMemConn("a\n", "b\n")
	conn := New(Options{}, func(ctx context.Context) (Conn, error) { return mc, nil }, nil)
	require.NoError(t, conn.Connect(context.Background()))

	replies, err := conn.Multicomm([]string{"req1", "req2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, replies)
}
