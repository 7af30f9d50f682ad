// Package persist implements parameter persistence (spec.md §4.I): a
// per-node JSON file, keyed by equipment id + module name, loaded at
// start and saved atomically on demand.
package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/frappy-project/frappy-core/secoperr"
)

// Store owns one node's persistence file.
type Store struct {
	path        string
	equipmentID string

	mu   sync.Mutex
	data map[string]map[string]any // moduleName -> paramName -> value
}

// Open loads path if it exists, starting empty otherwise.
func Open(path, equipmentID string) (*Store, error) {
	s := &Store{path: path, equipmentID: equipmentID, data: map[string]map[string]any{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, secoperr.ConfigError("persist: read %s: %v", path, err)
	}
	var onDisk struct {
		EquipmentID string                     `json:"equipment_id"`
		Modules     map[string]map[string]any `json:"modules"`
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return nil, secoperr.ConfigError("persist: parse %s: %v", path, err)
	}
	if onDisk.EquipmentID != "" && onDisk.EquipmentID != equipmentID {
		return nil, secoperr.ConfigError("persist: %s belongs to equipment %q, not %q", path, onDisk.EquipmentID, equipmentID)
	}
	if onDisk.Modules != nil {
		s.data = onDisk.Modules
	}
	return s, nil
}

// Loaded returns the persisted value for (moduleName, pname), if any
// (spec.md §4.I "configured values override loaded values; loaded
// values override defaults").
func (s *Store) Loaded(moduleName, pname string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mod, ok := s.data[moduleName]
	if !ok {
		return nil, false
	}
	v, ok := mod[pname]
	return v, ok
}

// Set stages a value for (moduleName, pname) in memory without saving.
func (s *Store) Set(moduleName, pname string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[moduleName] == nil {
		s.data[moduleName] = map[string]any{}
	}
	s.data[moduleName][pname] = value
}

// Save writes the current state atomically: write to a temp file in
// the same directory, then rename (spec.md §4.I "saving is atomic").
func (s *Store) Save() error {
	s.mu.Lock()
	payload := struct {
		EquipmentID string                     `json:"equipment_id"`
		Modules     map[string]map[string]any `json:"modules"`
	}{EquipmentID: s.equipmentID, Modules: s.data}
	s.mu.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return secoperr.Internal("persist: marshal: %v", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".persist-*.tmp")
	if err != nil {
		return secoperr.Internal("persist: create temp: %v", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return secoperr.Internal("persist: write temp: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return secoperr.Internal("persist: close temp: %v", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return secoperr.Internal("persist: rename: %v", err)
	}
	return nil
}

// SetAndSave stages then immediately saves — the "auto" persistence
// mode's hook (spec.md §4.I "on auto, an updated value triggers an
// immediate save"). Intended to be bound via module.Module.SetSaveHook
// together with a Get callback supplying the current value.
func (s *Store) SetAndSave(moduleName, pname string, value any) error {
	s.Set(moduleName, pname, value)
	return s.Save()
}
