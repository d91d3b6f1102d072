package historystore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func appendN(t *testing.T, s *BadgerStore, target string, n int) []Entry {
	t.Helper()
	var out []Entry
	base := time.Now()
	for i := 0; i < n; i++ {
		e := Entry{Target: target, Sender: "alice", Command: "PRIVMSG", Params: []string{target, "hi"}, Time: base.Add(time.Duration(i) * time.Millisecond)}
		require.NoError(t, s.Append(&e))
		out = append(out, e)
	}
	return out
}

func TestLatestReturnsMostRecentOldestFirst(t *testing.T) {
	s := openTestStore(t)
	entries := appendN(t, s, "#general", 5)

	got, err := s.Latest("#general", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, entries[2].MsgID, got[0].MsgID)
	assert.Equal(t, entries[4].MsgID, got[2].MsgID)
}

func TestBeforeExcludesTheAnchor(t *testing.T) {
	s := openTestStore(t)
	entries := appendN(t, s, "#general", 5)

	got, err := s.Before("#general", entries[3].MsgID, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, e := range got {
		assert.NotEqual(t, entries[3].MsgID, e.MsgID)
	}
}

func TestAfterExcludesTheAnchor(t *testing.T) {
	s := openTestStore(t)
	entries := appendN(t, s, "#general", 5)

	got, err := s.After("#general", entries[1].MsgID, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, entries[2].MsgID, got[0].MsgID)
}

func TestBetweenIsInclusiveOfBothEnds(t *testing.T) {
	s := openTestStore(t)
	entries := appendN(t, s, "#general", 5)

	got, err := s.Between("#general", entries[1].MsgID, entries[3].MsgID, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, entries[1].MsgID, got[0].MsgID)
	assert.Equal(t, entries[3].MsgID, got[2].MsgID)
}

func TestAroundIncludesCenterAndBothSides(t *testing.T) {
	s := openTestStore(t)
	entries := appendN(t, s, "#general", 5)

	got, err := s.Around("#general", entries[2].MsgID, 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, entries[1].MsgID, got[0].MsgID)
	assert.Equal(t, entries[2].MsgID, got[1].MsgID)
	assert.Equal(t, entries[3].MsgID, got[2].MsgID)
}

func TestTargetsFindsChannelsActiveInWindow(t *testing.T) {
	s := openTestStore(t)
	appendN(t, s, "#general", 1)
	appendN(t, s, "#random", 1)

	targets, err := s.Targets(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"#general", "#random"}, targets)
}

func TestDifferentTargetsDoNotLeakIntoEachOthersHistory(t *testing.T) {
	s := openTestStore(t)
	appendN(t, s, "#general", 2)
	appendN(t, s, "#random", 2)

	got, err := s.Latest("#general", 10)
	require.NoError(t, err)
	for _, e := range got {
		assert.Equal(t, "#general", e.Target)
	}
}
