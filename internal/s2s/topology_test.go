package s2s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T) *Topology {
	t.Helper()
	topo := NewTopology("001", "hub.example", "hub")
	require.NoError(t, topo.Link(ServerEntry{SID: "002", Name: "leaf1.example", HopCount: 1, UpstreamSID: "001"}))
	require.NoError(t, topo.Link(ServerEntry{SID: "003", Name: "leaf2.example", HopCount: 2, UpstreamSID: "002"}))
	return topo
}

func TestLinkRejectsDuplicateSID(t *testing.T) {
	topo := buildChain(t)
	err := topo.Link(ServerEntry{SID: "002", Name: "dup.example"})
	assert.Error(t, err)
}

func TestLinkRejectsUnknownUpstream(t *testing.T) {
	topo := NewTopology("001", "hub.example", "hub")
	err := topo.Link(ServerEntry{SID: "002", Name: "orphan.example", UpstreamSID: "999"})
	assert.Error(t, err)
}

func TestNextHopResolvesThroughMultipleHops(t *testing.T) {
	topo := buildChain(t)
	hop, err := topo.NextHop("003")
	require.NoError(t, err)
	assert.Equal(t, "002", hop)
}

func TestNextHopForDirectChild(t *testing.T) {
	topo := buildChain(t)
	hop, err := topo.NextHop("002")
	require.NoError(t, err)
	assert.Equal(t, "002", hop)
}

func TestDownstreamIncludesWholeSubtree(t *testing.T) {
	topo := buildChain(t)
	down := topo.Downstream("002")
	assert.ElementsMatch(t, []string{"002", "003"}, down)
}

func TestUnlinkRemovesSubtreeAndDetachesFromParent(t *testing.T) {
	topo := buildChain(t)
	removed := topo.Unlink("002")
	assert.ElementsMatch(t, []string{"002", "003"}, removed)

	_, ok := topo.Lookup("002")
	assert.False(t, ok)
	_, ok = topo.Lookup("003")
	assert.False(t, ok)

	remaining := topo.Downstream("001")
	assert.Equal(t, []string{"001"}, remaining)
}
