package module

import (
	"testing"
	"time"

	"github.com/frappy-project/frappy-core/datatype"
	"github.com/frappy-project/frappy-core/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAnnouncer struct {
	updates []string
}

func (r *recordingAnnouncer) AnnounceUpdate(moduleName, paramName string, value any, readErr error, ts time.Time) {
	r.updates = append(r.updates, moduleName+":"+paramName)
}

func testClass() *meta.ClassDescriptor {
	decl := &meta.ClassDecl{
		Name: "Sensor",
		Parameters: []meta.ParamDecl{
			{Name: "value", Datatype: datatype.Float{}, Readonly: boolPtrFor(true), HasDefault: true, Default: 0.0},
			{Name: "target", Datatype: datatype.Float{}, HasDefault: true, Default: 0.0},
		},
		Commands: []meta.CmdDecl{
			{Name: "stop", HasResult: false},
		},
	}
	desc, err := decl.Build()
	if err != nil {
		panic(err)
	}
	return desc
}

func boolPtrFor(b bool) *bool { return &b }

func TestConstructAppliesDefaultsAndRejectsUnknownKeys(t *testing.T) {
	desc := testClass()
	m := New("sensor1", desc, nil)
	err := m.Construct(nil, map[string]any{"bogus": 1})
	require.Error(t, err)

	m2 := New("sensor1", desc, nil)
	require.NoError(t, m2.Construct(nil, map[string]any{"target": 5.0}))
	v, ok := m2.Get("target")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestReadWithoutBoundFuncReturnsCache(t *testing.T) {
	desc := testClass()
	m := New("sensor1", desc, nil)
	require.NoError(t, m.Construct(nil, nil))
	v, err := m.ReadParam("value")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestWriteReadonlyParamFails(t *testing.T) {
	desc := testClass()
	m := New("sensor1", desc, nil)
	require.NoError(t, m.Construct(nil, nil))
	_, err := m.WriteParam("value", 1.0)
	require.Error(t, err)
}

func TestBoundReadValidatesAndAnnounces(t *testing.T) {
	desc := testClass()
	ann := &recordingAnnouncer{}
	m := New("sensor1", desc, ann)
	require.NoError(t, m.Construct(nil, nil))
	require.NoError(t, m.BindRead("value", func(mod *Module) (any, error) {
		return 3.5, nil
	}))
	v, err := m.ReadParam("value")
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
	cached, ok := m.Get("value")
	require.True(t, ok)
	assert.Equal(t, 3.5, cached)
	assert.Equal(t, []string{"sensor1:value"}, ann.updates)
}

func TestBoundWriteUnchangedSentinelKeepsValidatedInput(t *testing.T) {
	desc := testClass()
	m := New("sensor1", desc, nil)
	require.NoError(t, m.Construct(nil, nil))
	require.NoError(t, m.BindWrite("target", func(mod *Module, v any) (any, error) {
		return Unchanged, nil
	}))
	result, err := m.WriteParam("target", 9.0)
	require.NoError(t, err)
	assert.Equal(t, 9.0, result)
}

func TestRegisterCallbacksAutoupdateForwardsToOther(t *testing.T) {
	descA := testClass()
	a := New("a", descA, nil)
	require.NoError(t, a.Construct(nil, nil))
	b := New("b", descA, nil)
	require.NoError(t, b.Construct(nil, nil))

	a.RegisterCallbacks(b, nil, nil, []string{"target"})
	require.NoError(t, a.BindWrite("target", func(mod *Module, v any) (any, error) { return v, nil }))
	_, err := a.WriteParam("target", 2.0)
	require.NoError(t, err)

	got, ok := b.Get("target")
	require.True(t, ok)
	assert.Equal(t, 2.0, got)
}

func TestDoCommandValidatesArgumentAndResult(t *testing.T) {
	decl := &meta.ClassDecl{
		Name: "WithCmd",
		Commands: []meta.CmdDecl{
			{Name: "move", HasArgument: true, Argument: datatype.Float{}, HasResult: true, Result: datatype.Bool{}},
		},
	}
	desc, err := decl.Build()
	require.NoError(t, err)
	m := New("mover", desc, nil)
	require.NoError(t, m.Construct(nil, nil))
	require.NoError(t, m.BindCommand("move", func(mod *Module, arg any) (any, error) {
		return arg.(float64) > 0, nil
	}))

	result, err := m.DoCommand("move", 1.0)
	require.NoError(t, err)
	assert.Equal(t, true, result)
}
