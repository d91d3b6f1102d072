package s2s

// Peer is the minimal surface a propagation broadcast needs from a
// live peer link: where to send a rendered line, and which SID it
// leads to (so split-horizon can exclude the link traffic arrived on).
type Peer interface {
	SID() string
	Send(line string)
}

// Propagator implements split-horizon broadcast from spec section
// 4.6.4: a line received from peer X is forwarded to every other
// directly-linked peer, but never echoed back to X.
type Propagator struct {
	peers func() []Peer
}

// NewPropagator wires a Propagator against a callback that snapshots
// the current peer set -- kept as a callback, not a stored slice, to
// match the collect-then-send locking discipline used elsewhere in
// this codebase (internal/channel.Actor.allSenders, internal/client
// .Manager.Broadcast): the snapshot is taken fresh for every
// broadcast rather than held under a long-lived lock.
func NewPropagator(peers func() []Peer) *Propagator {
	return &Propagator{peers: peers}
}

// Broadcast sends line to every peer except excludeSID (the link the
// line arrived on, or "" for locally-originated traffic that must
// reach every peer).
func (p *Propagator) Broadcast(line string, excludeSID string) {
	for _, peer := range p.peers() {
		if peer.SID() == excludeSID {
			continue
		}
		peer.Send(line)
	}
}

// RouteUnicast sends line to exactly the next-hop peer for destSID,
// per spec section 4.6.4's UID-prefix routing (internal/router wraps
// this with the UID -> SID -> peer resolution).
func (p *Propagator) RouteUnicast(topo *Topology, destSID string, line string) error {
	nextHopSID, err := topo.NextHop(destSID)
	if err != nil {
		return err
	}
	for _, peer := range p.peers() {
		if peer.SID() == nextHopSID {
			peer.Send(line)
			return nil
		}
	}
	return errNextHopNotConnected
}

var errNextHopNotConnected = burstErr("next hop SID has no connected peer link")
