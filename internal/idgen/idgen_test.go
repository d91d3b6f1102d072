package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSkipsLive(t *testing.T) {
	a := NewUIDAllocator("abc")
	live := map[string]bool{}

	first, err := a.Next(func(uid string) bool { return live[uid] })
	require.NoError(t, err)
	live[first] = true

	second, err := a.Next(func(uid string) bool { return live[uid] })
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "abc", SIDOf(first))
}

func TestExhaustion(t *testing.T) {
	a := NewUIDAllocator("abc")
	_, err := a.Next(func(uid string) bool { return true })
	assert.ErrorIs(t, err, ErrUIDSpaceExhausted)
}

func TestSessionIdUnique(t *testing.T) {
	s1 := NewSessionId()
	s2 := NewSessionId()
	assert.NotEqual(t, s1.String(), s2.String())
}
