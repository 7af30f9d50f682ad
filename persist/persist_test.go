package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nope.json"), "eq-1")
	require.NoError(t, err)
	_, ok := s.Loaded("mod", "value")
	assert.False(t, ok)
}

func TestSaveThenOpenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path, "eq-1")
	require.NoError(t, err)
	s.Set("sensor1", "target", 12.5)
	require.NoError(t, s.Save())

	reopened, err := Open(path, "eq-1")
	require.NoError(t, err)
	v, ok := reopened.Loaded("sensor1", "target")
	require.True(t, ok)
	assert.Equal(t, 12.5, v)
}

func TestOpenRejectsMismatchedEquipmentID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path, "eq-1")
	require.NoError(t, err)
	s.Set("sensor1", "target", 1.0)
	require.NoError(t, s.Save())

	_, err = Open(path, "eq-2")
	assert.Error(t, err)
}
