package modules

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frappy-project/frappy-core/config"
	"github.com/frappy-project/frappy-core/persist"
)

func TestBuildStreamSensorWiresConnectionFromURI(t *testing.T) {
	cfg := config.ModuleConfig{
		Class:      "StreamSensor",
		Properties: map[string]any{"uri": "127.0.0.1:0", "query_cmd": "R?"},
	}
	mod, err := Build("StreamSensor", "sensor1", cfg, nopAnnouncer{}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, mod)
	assert.Equal(t, "sensor1", mod.Name)
}

func TestBuildStreamDrivableWiresConnectionFromURI(t *testing.T) {
	cfg := config.ModuleConfig{
		Class:      "StreamDrivable",
		Properties: map[string]any{"uri": "127.0.0.1:0", "write_cmd": "W %v"},
	}
	mod, err := Build("StreamDrivable", "motor1", cfg, nopAnnouncer{}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, mod)
	assert.Equal(t, "motor1", mod.Name)
}

func TestBuildRejectsUnknownClass(t *testing.T) {
	_, err := Build("NoSuchClass", "x", config.ModuleConfig{}, nopAnnouncer{}, nil, nil)
	assert.Error(t, err)
}

func TestBuildRejectsMissingURI(t *testing.T) {
	_, err := Build("StreamSensor", "sensor1", config.ModuleConfig{Class: "StreamSensor"}, nopAnnouncer{}, nil, nil)
	assert.Error(t, err)
}

func TestBuildStreamDrivableLoadsPersistedTarget(t *testing.T) {
	store, err := persist.Open(filepath.Join(t.TempDir(), "state.json"), "eq-1")
	require.NoError(t, err)
	store.Set("motor1", "target", 7.5)

	cfg := config.ModuleConfig{
		Class:      "StreamDrivable",
		Properties: map[string]any{"uri": "127.0.0.1:0"},
	}
	mod, err := Build("StreamDrivable", "motor1", cfg, nopAnnouncer{}, nil, store)
	require.NoError(t, err)

	v, ok := mod.Get("target")
	require.True(t, ok)
	assert.Equal(t, 7.5, v)
}
