package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionOnly(t *testing.T) {
	msg, err := Parse("describe")
	require.NoError(t, err)
	assert.Equal(t, "describe", msg.Action)
	assert.Empty(t, msg.Specifier)
}

func TestParseActionSpecifierData(t *testing.T) {
	msg, err := Parse("change mod:param 4.2")
	require.NoError(t, err)
	assert.Equal(t, "change", msg.Action)
	assert.Equal(t, "mod:param", msg.Specifier)
	assert.Equal(t, "4.2", string(msg.Data))
}

func TestMessageModuleAndQualifier(t *testing.T) {
	msg, err := Parse("read mod:value")
	require.NoError(t, err)
	assert.Equal(t, "mod", msg.Module())
	q, ok := msg.Qualifier()
	assert.True(t, ok)
	assert.Equal(t, "value", q)
}

func TestRenderIncludesSpecifierAndValue(t *testing.T) {
	line, err := Render("reply", "mod:value", ReplyPayload(1.5, 100.0))
	require.NoError(t, err)
	assert.Contains(t, line, "reply mod:value")
	assert.Contains(t, line, "1.5")
}

func TestErrorActionPrefixesRequest(t *testing.T) {
	assert.Equal(t, "error_read", ErrorAction("read"))
	assert.Equal(t, "error_change", ErrorAction("change"))
}
