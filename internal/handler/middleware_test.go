package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapLabeledSynthesizesAckWhenNoReplies(t *testing.T) {
	got := WrapLabeled("l1", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "@label=l1 ACK", got[0])
}

func TestWrapLabeledTagsEachReply(t *testing.T) {
	got := WrapLabeled("l1", []string{":server 001 nick :hi", ":server 002 nick :there"})
	require.Len(t, got, 2)
	assert.Equal(t, "@label=l1 :server 001 nick :hi", got[0])
}

func TestWrapLabeledPassesThroughWithoutLabel(t *testing.T) {
	in := []string{"PING :x"}
	got := WrapLabeled("", in)
	assert.Equal(t, in, got)
}

func TestWrapBatchBracketsReplies(t *testing.T) {
	got := WrapBatch(BatchNames, "ref1", "#general", []string{":server 353 nick = #general :alice bob"})
	require.Len(t, got, 3)
	assert.Equal(t, "BATCH +ref1 draft/names #general", got[0])
	assert.Equal(t, "@batch=ref1 :server 353 nick = #general :alice bob", got[1])
	assert.Equal(t, "BATCH -ref1", got[2])
}

func TestWrapBatchReturnsEmptyUnchanged(t *testing.T) {
	got := WrapBatch(BatchWhois, "ref1", "", nil)
	assert.Empty(t, got)
}

func TestWrapLabeledBatchComposesBothLayers(t *testing.T) {
	got := WrapLabeledBatch("l9", BatchChatHistory, "ref2", "#general", []string{":server PRIVMSG #general :hi"})
	require.Len(t, got, 3)
	for _, line := range got {
		assert.Contains(t, line, "label=l9")
	}
	assert.Contains(t, got[0], "BATCH +ref2")
}
