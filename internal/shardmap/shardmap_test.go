package shardmap

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strHash(s string) uint32 { return FNV32a(s) }

func TestSetIfAbsent(t *testing.T) {
	m := New[string, int](strHash)

	require.True(t, m.SetIfAbsent("alice", 1))
	require.False(t, m.SetIfAbsent("alice", 2))

	v, ok := m.Get("alice")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestDeleteAndExists(t *testing.T) {
	m := New[string, int](strHash)
	m.Set("bob", 42)
	assert.True(t, m.Exists("bob"))

	assert.True(t, m.Delete("bob"))
	assert.False(t, m.Delete("bob"))
	assert.False(t, m.Exists("bob"))
}

func TestSnapshotAndLen(t *testing.T) {
	m := New[string, int](strHash)
	for i := 0; i < 100; i++ {
		m.Set("k"+strconv.Itoa(i), i)
	}
	assert.Equal(t, 100, m.Len())
	assert.Len(t, m.Snapshot(), 100)
}

func TestForEachCoversAllShards(t *testing.T) {
	m := New[string, int](strHash)
	for i := 0; i < 64; i++ {
		m.Set("k"+strconv.Itoa(i), i)
	}
	seen := 0
	m.ForEach(func(k string, v int) { seen++ })
	assert.Equal(t, 64, seen)
}
