package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
equipment_id: node1
description: test node
bind: "0.0.0.0:10767"
admin_bind: "0.0.0.0:50051"
persist_path: /var/lib/frappy/node1.json
modules:
  sensor1:
    class: Sensor
    properties:
      description: "a sensor"
    parameters:
      value:
        unit: K
`

func TestParseDecodesNodeDescriptor(t *testing.T) {
	n, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "node1", n.EquipmentID)
	assert.Equal(t, "0.0.0.0:10767", n.Bind)
	require.Contains(t, n.Modules, "sensor1")
	assert.Equal(t, "Sensor", n.Modules["sensor1"].Class)
}

func TestParseRejectsMissingEquipmentID(t *testing.T) {
	_, err := Parse([]byte("modules:\n  sensor1:\n    class: Sensor\n"))
	assert.Error(t, err)
}

func TestParseRejectsModuleWithoutClass(t *testing.T) {
	_, err := Parse([]byte("equipment_id: node1\nmodules:\n  sensor1: {}\n"))
	assert.Error(t, err)
}

func TestLoadReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	n, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "node1", n.EquipmentID)
}
