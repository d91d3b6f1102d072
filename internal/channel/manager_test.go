package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateReturnsSameActorWhileLive(t *testing.T) {
	m := NewManager()
	a := m.GetOrCreate("#test", "001", 1000)
	b := m.GetOrCreate("#test", "001", 1000)
	assert.Same(t, a, b)
	m.Drain(time.Second)
}

func TestManagerRetiresEmptyChannel(t *testing.T) {
	m := NewManager()
	a := m.GetOrCreate("#gone", "001", 1000)
	alice := newFakeMember("001AAAAAA")
	doJoin(a, alice, "alice")

	a.send(cmdQuit{UID: "001AAAAAA", Nick: "alice", Reason: "bye"})

	require.Eventually(t, func() bool {
		_, ok := m.Lookup("#gone")
		return !ok
	}, time.Second, time.Millisecond)

	fresh := m.GetOrCreate("#gone", "001", 2000)
	assert.NotSame(t, a, fresh)
	m.Drain(time.Second)
}

func TestCountExcludesMissingChannels(t *testing.T) {
	m := NewManager()
	m.GetOrCreate("#a", "001", 1000)
	m.GetOrCreate("#b", "001", 1000)
	assert.Equal(t, 2, m.Count())
	m.Drain(time.Second)
}
