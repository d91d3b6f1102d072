package router

import (
	"testing"

	"github.com/sid3xyz/slircd-ng/internal/s2s"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	sid  string
	sent []string
}

func (p *fakePeer) SID() string      { return p.sid }
func (p *fakePeer) Send(line string) { p.sent = append(p.sent, line) }

func buildTopo(t *testing.T) *s2s.Topology {
	t.Helper()
	topo := s2s.NewTopology("001", "hub.example", "hub")
	require.NoError(t, topo.Link(s2s.ServerEntry{SID: "002", Name: "leaf.example", HopCount: 1, UpstreamSID: "001"}))
	return topo
}

func TestSIDOfExtractsPrefix(t *testing.T) {
	sid, err := SIDOf("002AAAAAB")
	require.NoError(t, err)
	assert.Equal(t, "002", sid)
}

func TestSIDOfRejectsShortUID(t *testing.T) {
	_, err := SIDOf("ab")
	assert.Error(t, err)
}

func TestIsLocalDistinguishesOwnSID(t *testing.T) {
	topo := buildTopo(t)
	r := New(topo, s2s.NewPropagator(func() []s2s.Peer { return nil }), "001")
	assert.True(t, r.IsLocal("001AAAAAA"))
	assert.False(t, r.IsLocal("002AAAAAA"))
}

func TestForwardToUIDRoutesToNextHop(t *testing.T) {
	topo := buildTopo(t)
	peer := &fakePeer{sid: "002"}
	prop := s2s.NewPropagator(func() []s2s.Peer { return []s2s.Peer{peer} })
	r := New(topo, prop, "001")

	require.NoError(t, r.ForwardToUID("002AAAAAA", ":001 PRIVMSG 002AAAAAA :hi"))
	assert.Len(t, peer.sent, 1)
}

func TestForwardToUIDRejectsLocalDestination(t *testing.T) {
	topo := buildTopo(t)
	r := New(topo, s2s.NewPropagator(func() []s2s.Peer { return nil }), "001")
	err := r.ForwardToUID("001AAAAAA", "x")
	assert.Error(t, err)
}

func TestForwardToChannelBroadcastsExcludingOrigin(t *testing.T) {
	topo := buildTopo(t)
	a := &fakePeer{sid: "002"}
	b := &fakePeer{sid: "003"}
	prop := s2s.NewPropagator(func() []s2s.Peer { return []s2s.Peer{a, b} })
	r := New(topo, prop, "001")

	r.ForwardToChannel(":001 PRIVMSG #general :hi", "002")
	assert.Empty(t, a.sent)
	assert.Len(t, b.sent, 1)
}
