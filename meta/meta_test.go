package meta

import (
	"testing"

	"github.com/frappy-project/frappy-core/datatype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMergesParentAndChildByOverride(t *testing.T) {
	parent := &ClassDecl{
		Name:             "Readable",
		InterfaceClasses: []string{"Readable"},
		Parameters: []ParamDecl{
			{Name: "value", Description: "the main value", Datatype: datatype.Float{}, HasDefault: true, Default: 0.0},
			{Name: "status", Description: "status", Datatype: datatype.NewStatus()},
		},
	}
	child := &ClassDecl{
		Name:             "Cryostat",
		Parent:           parent,
		InterfaceClasses: []string{"Drivable"},
		Parameters: []ParamDecl{
			// Bare default override: only Default should change.
			{Name: "value", HasDefault: true, Default: 4.2},
		},
	}

	desc, err := child.Build()
	require.NoError(t, err)

	v := desc.Params["value"]
	assert.Equal(t, "the main value", v.Description, "description must survive a default-only override")
	assert.Equal(t, 4.2, v.Default)
	assert.Equal(t, []string{"value", "status"}, desc.ParamOrder)
	assert.Equal(t, []string{"Readable", "Drivable"}, desc.InterfaceClasses)
}

func TestParamOrderHintMovesToEnd(t *testing.T) {
	parent := &ClassDecl{
		Name: "Base",
		Parameters: []ParamDecl{
			{Name: "a", Datatype: datatype.Int{}},
			{Name: "b", Datatype: datatype.Int{}},
		},
	}
	child := &ClassDecl{
		Name:   "Child",
		Parent: parent,
		Parameters: []ParamDecl{
			{Name: "a", Order: 1, HasDefault: true, Default: int64(1)},
		},
	}
	desc, err := child.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, desc.ParamOrder)
}

func TestCommandMergeOverridesOnlySetFields(t *testing.T) {
	parent := &ClassDecl{
		Name: "Base",
		Commands: []CmdDecl{
			{Name: "stop", Description: "stop now", HasArgument: false, HasResult: false},
		},
	}
	child := &ClassDecl{
		Name:   "Child",
		Parent: parent,
		Commands: []CmdDecl{
			{Name: "stop", HasResult: true, Result: datatype.Bool{}},
		},
	}
	desc, err := child.Build()
	require.NoError(t, err)
	cmd := desc.Commands["stop"]
	assert.Equal(t, "stop now", cmd.Description)
	assert.Equal(t, datatype.Bool{}, cmd.Result)
}

func TestResolvePropertiesAppliesMandatoryAndDefaults(t *testing.T) {
	decls := []PropertyDecl{
		{Name: "description", Datatype: datatype.String{}, Mandatory: true},
		{Name: "group", Datatype: datatype.String{}, HasDefault: true, Default: "default-group"},
	}
	_, err := ResolveProperties(decls, map[string]any{})
	require.Error(t, err, "mandatory property must fail when unconfigured")

	out, err := ResolveProperties(decls, map[string]any{"description": "a sensor"})
	require.NoError(t, err)
	assert.Equal(t, "a sensor", out["description"])
	assert.Equal(t, "default-group", out["group"])
}
