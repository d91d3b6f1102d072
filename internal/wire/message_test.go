package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCommand(t *testing.T) {
	ref := NewCommand("alice!alice@host", "PRIVMSG", "#ops").WithTrailingf("hello there")
	line, err := ref.Render()
	require.NoError(t, err)
	assert.Equal(t, ":alice!alice@host PRIVMSG #ops :hello there\r\n", line)
}

func TestRenderNumeric(t *testing.T) {
	ref := NewNumeric("irc.example.net", 1, "alice").WithTrailingf("Welcome to the network")
	line, err := ref.Render()
	require.NoError(t, err)
	assert.Equal(t, ":irc.example.net 001 alice :Welcome to the network\r\n", line)
}

func TestRenderTooLong(t *testing.T) {
	ref := NewCommand("alice!alice@host", "PRIVMSG", "#ops").WithTrailingf("%s", strings.Repeat("x", 600))
	_, err := ref.Render()
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestParseRoundTrip(t *testing.T) {
	ref, err := Parse("JOIN #ops")
	require.NoError(t, err)
	assert.Equal(t, "JOIN", ref.Msg.Command)
	assert.Equal(t, []string{"#ops"}, ref.Msg.Params)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
}
