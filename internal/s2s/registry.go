package s2s

import "sync"

// PeerRegistry tracks the currently connected S2S links, so a
// Propagator/Router built once at startup can still see peers that
// connect and disconnect afterward. Grounded on the same
// snapshot-under-lock discipline as internal/channel.Actor.allSenders
// and internal/client.Manager.Broadcast: Snapshot copies out under the
// lock and the caller iterates the copy.
type PeerRegistry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

// NewPeerRegistry constructs an empty registry.
func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{peers: make(map[string]Peer)}
}

// Add records peer as the live link for its SID, replacing any prior
// entry (a reconnect after a stale disconnect notification).
func (r *PeerRegistry) Add(peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[peer.SID()] = peer
}

// Remove drops the peer for sid, if it is still the one registered --
// a no-op if a reconnect already replaced it.
func (r *PeerRegistry) Remove(sid string, peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.peers[sid] == peer {
		delete(r.peers, sid)
	}
}

// Snapshot returns every currently connected peer, safe to pass
// directly as a Propagator's peers callback.
func (r *PeerRegistry) Snapshot() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}
