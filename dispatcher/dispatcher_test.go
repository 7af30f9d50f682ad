package dispatcher

import (
	"strings"
	"testing"
	"time"

	"github.com/frappy-project/frappy-core/datatype"
	"github.com/frappy-project/frappy-core/meta"
	"github.com/frappy-project/frappy-core/module"
	"github.com/frappy-project/frappy-core/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	lines []string
}

func (r *recordingSender) Send(line string) { r.lines = append(r.lines, line) }

func buildEntry(t *testing.T, d *Dispatcher) *ModuleEntry {
	decl := &meta.ClassDecl{
		Name:             "Sensor",
		InterfaceClasses: []string{"Readable"},
		Parameters: []meta.ParamDecl{
			{Name: "value", Datatype: datatype.Float{}, Readonly: boolPtr(true), HasDefault: true, Default: 1.5},
			{Name: "status", Datatype: datatype.NewStatus(), Readonly: boolPtr(true), HasDefault: true, Default: []any{"IDLE", ""}},
		},
	}
	desc, err := decl.Build()
	require.NoError(t, err)
	inst := module.New("sensor1", desc, d)
	require.NoError(t, inst.Construct(nil, nil))
	entry := &ModuleEntry{Name: "sensor1", Class: desc, Inst: inst}
	d.Register(entry)
	require.NoError(t, d.Finalize("eq-1"))
	return entry
}

func boolPtr(b bool) *bool { return &b }

func TestHandleReadReturnsCachedValue(t *testing.T) {
	d := New(nil)
	buildEntry(t, d)

	reply := d.Handle(NewConnection("c1", &recordingSender{}, time.Second), wire.Message{
		Action: "read", Specifier: "sensor1:value",
	})
	assert.True(t, strings.HasPrefix(reply, "reply sensor1:value"))
	assert.Contains(t, reply, "1.5")
}

func TestHandleReadUnknownModuleErrors(t *testing.T) {
	d := New(nil)
	buildEntry(t, d)
	reply := d.Handle(NewConnection("c1", &recordingSender{}, time.Second), wire.Message{
		Action: "read", Specifier: "nope:value",
	})
	assert.Contains(t, reply, "error_read")
	assert.Contains(t, reply, "NoSuchModule")
}

func TestHandleChangeRejectsReadonly(t *testing.T) {
	d := New(nil)
	buildEntry(t, d)
	reply := d.Handle(NewConnection("c1", &recordingSender{}, time.Second), wire.Message{
		Action: "change", Specifier: "sensor1:value", Data: []byte("2.0"),
	})
	assert.Contains(t, reply, "error_change")
	assert.Contains(t, reply, "ReadOnly")
}

func TestActivateFloodsThenRepliesActive(t *testing.T) {
	d := New(nil)
	buildEntry(t, d)
	sender := &recordingSender{}
	conn := NewConnection("c1", sender, time.Second)
	d.Connect(conn)

	reply := d.Handle(conn, wire.Message{Action: "activate", Specifier: "sensor1"})
	assert.Equal(t, "active sensor1", reply)
	assert.NotEmpty(t, sender.lines, "flood must emit at least one update before active reply")
}

func TestAnnounceUpdateSuppressesDuplicateWithinWindow(t *testing.T) {
	d := New(nil)
	buildEntry(t, d)
	sender := &recordingSender{}
	conn := NewConnection("c1", sender, time.Hour)
	conn.allModules = true
	d.Connect(conn)

	now := time.Now()
	d.AnnounceUpdate("sensor1", "value", 1.5, nil, now)
	d.AnnounceUpdate("sensor1", "value", 1.5, nil, now.Add(time.Millisecond))
	assert.Len(t, sender.lines, 1, "identical value within window must be suppressed")

	d.AnnounceUpdate("sensor1", "value", 2.0, nil, now.Add(2*time.Millisecond))
	assert.Len(t, sender.lines, 2, "changed value must always be announced")
}

func TestDescribeReturnsBuiltJSON(t *testing.T) {
	d := New(nil)
	buildEntry(t, d)
	reply := d.Handle(NewConnection("c1", &recordingSender{}, time.Second), wire.Message{Action: "describe"})
	assert.True(t, strings.HasPrefix(reply, "describing . "))
	assert.Contains(t, reply, "sensor1")
}
