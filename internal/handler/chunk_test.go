package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkJoinKeepsShortListOnOneLine(t *testing.T) {
	got := ChunkJoin(64, " ", "alice", "bob", "carol")
	require.Len(t, got, 1)
	assert.Equal(t, "alice bob carol", got[0])
}

func TestChunkJoinSplitsWhenOverLength(t *testing.T) {
	got := ChunkJoin(12, " ", "alice", "bob", "carol", "dave")
	require.True(t, len(got) > 1)
	for _, chunk := range got {
		assert.LessOrEqual(t, len(chunk), 12)
	}
}

func TestChunkJoinHandlesEmptyInput(t *testing.T) {
	got := ChunkJoin(64, " ")
	assert.Empty(t, got)
}
