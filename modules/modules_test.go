package modules

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frappy-project/frappy-core/datatype"
	"github.com/frappy-project/frappy-core/frappytest"
	"github.com/frappy-project/frappy-core/module"
	"github.com/frappy-project/frappy-core/stream"
)

type nopAnnouncer struct{}

func (nopAnnouncer) AnnounceUpdate(string, string, any, error, time.Time) {}

func dialerFor(comm *frappytest.FakeComm) stream.Dialer {
	return func(ctx context.Context) (stream.Conn, error) { return comm, nil }
}

func TestStreamSensorReadsValueFromQuery(t *testing.T) {
	comm := frappytest.NewFakeComm().WithReply("R?", "23.5")
	conn := stream.New(stream.Options{EndOfLineWrite: '\n', EndOfLineRead: '\n'}, dialerFor(comm), nil)
	require.NoError(t, conn.Connect(context.Background()))

	desc, err := Readable.Build()
	require.NoError(t, err)
	mod := module.New("sensor1", desc, nopAnnouncer{})

	sensor, err := NewStreamSensor(mod, conn, "R?")
	require.NoError(t, err)
	require.NotNil(t, sensor)

	v, err := mod.ReadParam("value")
	require.NoError(t, err)
	assert.InDelta(t, 23.5, v.(float64), 1e-9)
}

func TestStreamDrivableRampsThenStopsWithStoppedStatus(t *testing.T) {
	comm := frappytest.NewFakeComm()
	conn := stream.New(stream.Options{EndOfLineWrite: '\n', EndOfLineRead: '\n'}, dialerFor(comm), nil)

	desc, err := Drivable.Build()
	require.NoError(t, err)
	mod := module.New("motor1", desc, nopAnnouncer{})

	// Empty writeCmd: the demo ramp drives the cached value directly and
	// never turns writeBack into a real hardware round trip.
	drv, err := NewStreamDrivable(mod, conn, "")
	require.NoError(t, err)

	_, err = mod.WriteParam("target", 3.0)
	require.NoError(t, err)

	// Cycle 1 arms the Start transition; cycle 2 actually runs the ramp
	// step (statemachine.Cycle consumes one tick per pending task).
	_, err = mod.ReadParam("status")
	require.NoError(t, err)
	st, err := mod.ReadParam("status")
	require.NoError(t, err)
	code, err := datatype.Code(st)
	require.NoError(t, err)
	assert.True(t, datatype.IsDrivingCode(code), "expected a driving status while ramping")

	_, err = drv.doStop(mod, nil)
	require.NoError(t, err)

	// Symmetrically: one cycle arms the Stop transition, the next runs
	// the cleanup state that reports "stopped" and finishes.
	_, err = mod.ReadParam("status")
	require.NoError(t, err)
	st, err = mod.ReadParam("status")
	require.NoError(t, err)
	text, err := datatype.Text(st)
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "stopped"))
}

func TestStreamDrivableStopWithoutDriveIsImpossible(t *testing.T) {
	comm := frappytest.NewFakeComm()
	conn := stream.New(stream.Options{EndOfLineWrite: '\n', EndOfLineRead: '\n'}, dialerFor(comm), nil)

	desc, err := Drivable.Build()
	require.NoError(t, err)
	mod := module.New("motor2", desc, nopAnnouncer{})

	drv, err := NewStreamDrivable(mod, conn, "")
	require.NoError(t, err)

	_, err = drv.doStop(mod, nil)
	assert.Error(t, err)
}
