package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseFoldUsesRFC2812Mapping(t *testing.T) {
	assert.Equal(t, "alice{}|~", CaseFold("ALICE[]\\^"))
}

func TestClaimNickIsAtomic(t *testing.T) {
	m := NewManager()
	require.True(t, m.ClaimNick("Alice", "001AAAAAA"))
	require.False(t, m.ClaimNick("alice", "001AAAAAB"))

	u, ok := m.Lookup("ALICE")
	assert.False(t, ok) // UID not added to byUID yet
	assert.Nil(t, u)
}

func TestAddAndLookupRoundTrip(t *testing.T) {
	m := NewManager()
	require.True(t, m.ClaimNick("alice", "001AAAAAA"))
	u := New("001AAAAAA", "alice", "alice", "host.example", "", "Alice A", 1000)
	m.Add(u)

	got, ok := m.Lookup("Alice")
	require.True(t, ok)
	assert.Equal(t, "001AAAAAA", got.UID())
}

func TestRenameNickRejectsCollision(t *testing.T) {
	m := NewManager()
	require.True(t, m.ClaimNick("alice", "001AAAAAA"))
	require.True(t, m.ClaimNick("bob", "001AAAAAB"))

	assert.False(t, m.RenameNick("alice", "bob", "001AAAAAA"))
	assert.True(t, m.RenameNick("alice", "carol", "001AAAAAA"))

	_, stillAlice := m.Lookup("alice")
	assert.False(t, stillAlice)
}

func TestRemoveRecordsWhowas(t *testing.T) {
	m := NewManager()
	require.True(t, m.ClaimNick("alice", "001AAAAAA"))
	u := New("001AAAAAA", "alice", "alice", "host.example", "", "Alice A", 1000)
	m.Add(u)

	m.Remove(u)

	_, ok := m.ByUID("001AAAAAA")
	assert.False(t, ok)

	entries := m.Whowas().Lookup("alice", time.Now().Unix())
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Nick)
}

func TestWhowasRingPrunesOldEntries(t *testing.T) {
	ring := NewWhowasRing(10, time.Minute)
	ring.Record(WhowasEntry{Nick: "alice", SignoffUTC: 0})

	entries := ring.Lookup("alice", int64((2 * time.Hour).Seconds()))
	assert.Empty(t, entries)
}
