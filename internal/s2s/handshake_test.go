package s2s

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeHappyPath(t *testing.T) {
	h := NewHandshake("secret", time.Now())
	require.NoError(t, h.OnPass("secret", TS6Version, "002"))
	require.NoError(t, h.OnCapab([]string{"QS", "EX", "CHW"}))
	require.NoError(t, h.OnServer("leaf.example", 1, "a leaf server"))
	require.NoError(t, h.OnSvinfo(TS6Version, TS6Version, 0, time.Now().Unix()))
	assert.Equal(t, Complete, h.State())
	assert.Equal(t, "002", h.Peer().SID)
	assert.Equal(t, "leaf.example", h.Peer().Name)
}

func TestHandshakeRejectsBadPassword(t *testing.T) {
	h := NewHandshake("secret", time.Now())
	err := h.OnPass("wrong", TS6Version, "002")
	assert.Error(t, err)
	assert.Equal(t, Failed, h.State())
}

func TestHandshakeRejectsOutOfOrderMessages(t *testing.T) {
	h := NewHandshake("secret", time.Now())
	err := h.OnCapab([]string{"QS"})
	assert.Error(t, err)
	assert.Equal(t, Failed, h.State())
}

func TestHandshakeRejectsWrongTSVersion(t *testing.T) {
	h := NewHandshake("secret", time.Now())
	err := h.OnPass("secret", 5, "002")
	assert.Error(t, err)
}

func TestHandshakeExpiresAfterTimeout(t *testing.T) {
	start := time.Now()
	h := NewHandshake("secret", start)
	assert.False(t, h.Expired(start.Add(10*time.Second)))
	assert.True(t, h.Expired(start.Add(31*time.Second)))
}

func TestHandshakeDoesNotExpireOnceComplete(t *testing.T) {
	start := time.Now()
	h := NewHandshake("secret", start)
	require.NoError(t, h.OnPass("secret", TS6Version, "002"))
	require.NoError(t, h.OnCapab(nil))
	require.NoError(t, h.OnServer("leaf.example", 1, ""))
	require.NoError(t, h.OnSvinfo(TS6Version, TS6Version, 0, start.Unix()))
	assert.False(t, h.Expired(start.Add(time.Hour)))
}

func TestOutboundGreetingRendersExpectedLines(t *testing.T) {
	lines := OutboundGreeting("secret", "001", "hub.example", 0, "the hub", []string{"QS", "EX"})
	require.Len(t, lines, 3)
	assert.Equal(t, "PASS secret TS 6 001", lines[0])
	assert.Equal(t, "CAPAB :QS EX", lines[1])
	assert.Equal(t, "SERVER hub.example 0 :the hub", lines[2])
}
