package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debug("should not appear")
	l.Info("also not appear")
	l.Warn("appears", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.NotContains(t, out, "also not appear")
	assert.Contains(t, out, "appears")
	assert.Contains(t, out, "k=v")
}

func TestBindAttachesStaticFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug).Bind("module", "cryo")
	l.Info("hello")
	assert.True(t, strings.Contains(buf.String(), "module=cryo"))
}

func TestNopLoggerDiscardsAndBindsSafely(t *testing.T) {
	l := Nop()
	l.Info("ignored")
	bound := l.Bind("a", 1)
	bound.Error("also ignored")
}
