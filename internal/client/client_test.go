package client

import (
	"testing"

	"github.com/sid3xyz/slircd-ng/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct{ msgs []*wire.MessageRef }

func (f *fakeSink) Deliver(m *wire.MessageRef) { f.msgs = append(f.msgs, m) }

func TestFirstAttachReturnsAttached(t *testing.T) {
	m := NewManager()
	res := m.Attach("alice", "phone", "sess1", true, &fakeSink{})
	assert.Equal(t, Attached, res.Outcome)
	assert.Empty(t, res.Memberships)
}

func TestSecondAttachReturnsReattached(t *testing.T) {
	m := NewManager()
	m.Attach("alice", "phone", "sess1", true, &fakeSink{})
	res := m.Attach("alice", "laptop", "sess2", true, &fakeSink{})
	assert.Equal(t, Reattached, res.Outcome)
}

func TestMulticlientDisallowedRejectsSecondSession(t *testing.T) {
	m := NewManager()
	m.Attach("alice", "phone", "sess1", true, &fakeSink{})
	res := m.Attach("alice", "laptop", "sess2", false, &fakeSink{})
	assert.Equal(t, MulticlientNotAllowed, res.Outcome)
}

func TestTooManySessionsRejected(t *testing.T) {
	m := NewManager()
	for i := 0; i < MaxSessionsPerAccount; i++ {
		res := m.Attach("alice", "dev", string(rune('a'+i)), true, &fakeSink{})
		require.NotEqual(t, TooManySessions, res.Outcome)
	}
	res := m.Attach("alice", "dev", "overflow", true, &fakeSink{})
	assert.Equal(t, TooManySessions, res.Outcome)
}

func TestDetachLastSessionGoesOfflineWithoutAlwaysOn(t *testing.T) {
	m := NewManager()
	m.Attach("alice", "phone", "sess1", true, &fakeSink{})
	wentOffline := m.Detach("alice", "sess1")
	assert.True(t, wentOffline)
	assert.False(t, m.IsOnline("alice"))
}

func TestDetachLastSessionStaysOnlineWhenAlwaysOn(t *testing.T) {
	m := NewManager()
	m.Attach("alice", "phone", "sess1", true, &fakeSink{})
	m.SetAlwaysOn("alice", true)
	wentOffline := m.Detach("alice", "sess1")
	assert.False(t, wentOffline)
}

func TestRecordJoinSurvivesForAutoreplay(t *testing.T) {
	m := NewManager()
	m.Attach("alice", "phone", "sess1", true, &fakeSink{})
	m.RecordJoin("alice", "#general", 0)
	m.Detach("alice", "sess1")
	m.SetAlwaysOn("alice", false)

	res := m.Attach("alice", "laptop", "sess2", true, &fakeSink{})
	// an offline detach (not always-on) keeps the stored memberships, so
	// the next attach gets them back for autoreplay.
	assert.Equal(t, []ChannelMembership{{Name: "#general", Prefix: 0}}, res.Memberships)
}

func TestBroadcastExcludesGivenSession(t *testing.T) {
	m := NewManager()
	s1 := &fakeSink{}
	s2 := &fakeSink{}
	m.Attach("alice", "phone", "sess1", true, s1)
	m.Attach("alice", "laptop", "sess2", true, s2)

	msg := wire.NewCommand("alice", "PRIVMSG", "#general", "hi")
	m.Broadcast("alice", "sess1", msg)

	assert.Empty(t, s1.msgs)
	assert.Len(t, s2.msgs, 1)
}
