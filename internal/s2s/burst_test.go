package s2s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurstSequencerEnforcesOrder(t *testing.T) {
	b := NewBurstSequencer()
	assert.Equal(t, BurstBans, b.Phase())
	require.NoError(t, b.Accept(BurstBans))
	assert.Error(t, b.Accept(BurstUsers))

	require.NoError(t, b.Advance())
	assert.Equal(t, BurstUsers, b.Phase())
	require.NoError(t, b.Accept(BurstUsers))
}

func TestBurstSequencerWalksAllPhasesToFinish(t *testing.T) {
	b := NewBurstSequencer()
	for b.Phase() != BurstTopology {
		require.NoError(t, b.Advance())
	}
	require.NoError(t, b.Finish())
	assert.True(t, b.Done())
}

func TestBurstSequencerCannotFinishEarly(t *testing.T) {
	b := NewBurstSequencer()
	assert.Error(t, b.Finish())
}

func TestBurstSequencerCannotAdvancePastTopology(t *testing.T) {
	b := NewBurstSequencer()
	for b.Phase() != BurstTopology {
		require.NoError(t, b.Advance())
	}
	assert.Error(t, b.Advance())
}
