package s2s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	sid  string
	sent []string
}

func (p *fakePeer) SID() string     { return p.sid }
func (p *fakePeer) Send(line string) { p.sent = append(p.sent, line) }

func TestBroadcastExcludesOriginatingPeer(t *testing.T) {
	a := &fakePeer{sid: "002"}
	b := &fakePeer{sid: "003"}
	prop := NewPropagator(func() []Peer { return []Peer{a, b} })

	prop.Broadcast(":001 PRIVMSG #general :hi", "002")

	assert.Empty(t, a.sent)
	require.Len(t, b.sent, 1)
}

func TestBroadcastReachesEveryoneForLocalOrigin(t *testing.T) {
	a := &fakePeer{sid: "002"}
	b := &fakePeer{sid: "003"}
	prop := NewPropagator(func() []Peer { return []Peer{a, b} })

	prop.Broadcast(":001 PRIVMSG #general :hi", "")

	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
}

func TestRouteUnicastSendsOnlyToNextHop(t *testing.T) {
	topo := buildChain(t)
	a := &fakePeer{sid: "002"}
	prop := NewPropagator(func() []Peer { return []Peer{a} })

	err := prop.RouteUnicast(topo, "003", ":001 PRIVMSG 003AAAAAA :hi")
	require.NoError(t, err)
	require.Len(t, a.sent, 1)
}

func TestRouteUnicastErrorsWhenNextHopNotConnected(t *testing.T) {
	topo := buildChain(t)
	prop := NewPropagator(func() []Peer { return nil })

	err := prop.RouteUnicast(topo, "003", "x")
	assert.Error(t, err)
}
