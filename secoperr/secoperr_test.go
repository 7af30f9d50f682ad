package secoperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrapped(t *testing.T) {
	base := ReadOnly("cryo", "value")
	wrapped := fmt.Errorf("dispatcher: %w", base)

	assert.Equal(t, KindReadOnly, KindOf(wrapped))

	se, ok := As(wrapped)
	require.True(t, ok)
	assert.Contains(t, se.Message, "readonly")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternalError, KindOf(fmt.Errorf("boom")))
}

func TestErrorStringIncludesKind(t *testing.T) {
	err := NoSuchModule("cryo")
	assert.Contains(t, err.Error(), "NoSuchModule")
	assert.Contains(t, err.Error(), "cryo")
}

func TestWrapPreservesKindAndUnwraps(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := CommFailed("read failed").Wrap(cause)
	assert.Equal(t, KindCommFailed, err.Kind)
	assert.ErrorIs(t, err, cause)
}
