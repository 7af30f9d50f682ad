// Package config loads a node descriptor (YAML) into the plain Go
// maps module.Construct already consumes (SPEC_FULL.md §1.1
// "Configuration"). It is glue, not a general config engine: no
// schema validation beyond basic shape, no templating, no includes.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModuleConfig is one module entry of a node descriptor: the Go class
// it instantiates plus its property and parameter configuration maps,
// both handed verbatim to module.Construct.
type ModuleConfig struct {
	Class      string         `yaml:"class"`
	Properties map[string]any `yaml:"properties"`
	Parameters map[string]any `yaml:"parameters"`
}

// NodeConfig is the top-level node descriptor: equipment identity,
// the listening address, and the module registry.
type NodeConfig struct {
	EquipmentID string                  `yaml:"equipment_id"`
	Description string                  `yaml:"description"`
	Bind        string                  `yaml:"bind"`
	AdminBind   string                  `yaml:"admin_bind"`
	PersistPath string                  `yaml:"persist_path"`
	Modules     map[string]ModuleConfig `yaml:"modules"`
}

// Load reads and parses a node descriptor from path.
func Load(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a node descriptor from raw YAML bytes.
func Parse(data []byte) (*NodeConfig, error) {
	var n NodeConfig
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse node descriptor: %w", err)
	}
	if n.EquipmentID == "" {
		return nil, fmt.Errorf("node descriptor missing equipment_id")
	}
	if len(n.Modules) == 0 {
		return nil, fmt.Errorf("node descriptor declares no modules")
	}
	for name, mc := range n.Modules {
		if mc.Class == "" {
			return nil, fmt.Errorf("module %s: missing class", name)
		}
	}
	return &n, nil
}
