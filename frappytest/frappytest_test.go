package frappytest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeCommEchoesScriptedReply(t *testing.T) {
	comm := NewFakeComm().WithReply("read value", "reply value 42")

	n, err := comm.Write([]byte("read value\n"))
	require.NoError(t, err)
	assert.Equal(t, len("read value\n"), n)

	buf := make([]byte, 64)
	n, err = comm.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "reply value 42\n", string(buf[:n]))
	assert.Equal(t, 1, comm.WriteCount())
}

func TestFakeClockAdvances(t *testing.T) {
	start := time.Unix(1000, 0)
	clk := NewFakeClock(start)
	assert.Equal(t, start, clk.Now())

	next := clk.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), next)
	assert.Equal(t, next, clk.Now())
}

func TestRecordingConnCapturesLines(t *testing.T) {
	conn := NewRecordingConn()
	conn.Send("update sensor1:value [1.0, {}]")
	conn.Send("active")

	assert.Equal(t, []string{"update sensor1:value [1.0, {}]", "active"}, conn.All())
	assert.Equal(t, "active", conn.Last())
}

func TestRecordingLoggerCapturesEntriesAndBindFields(t *testing.T) {
	logger := NewRecordingLogger()
	bound := logger.Bind("module", "sensor1")
	bound.Info("read ok", "param", "value")

	assert.True(t, logger.HasMessage("info", "read ok"))
	entries := logger.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Fields, "module")
}
