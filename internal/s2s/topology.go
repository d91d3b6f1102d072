// Package s2s implements the server-to-server sync manager from spec
// section 4.6: the TS6-style handshake state machine, burst ordering,
// nick-collision resolution, operational propagation, netsplit
// handling, and topology bookkeeping. Grounded throughout on spec §4.6
// directly -- btnmasher-dircd carries no linking code to adapt -- with
// the command-constant/table idiom borrowed from
// btnmasher-dircd/commands.go and numerics.go.
package s2s

import (
	"fmt"
	"sync"
)

// ServerEntry is one node in the network topology DAG.
type ServerEntry struct {
	SID         string
	Name        string
	Description string
	HopCount    int
	UpstreamSID string // "" for this server's own entry
}

// Topology tracks the directed tree of linked servers rooted at the
// local server, per spec section 4.6.1.
type Topology struct {
	mu      sync.RWMutex
	selfSID string
	entries map[string]ServerEntry
	// children maps a SID to the SIDs whose UpstreamSID equals it,
	// kept denormalized for O(1) downstream-set computation during a
	// netsplit per spec section 4.6.5.
	children map[string]map[string]struct{}
}

// NewTopology constructs a topology whose only entry is the local
// server itself (hop count 0, no upstream).
func NewTopology(selfSID, selfName, selfDescription string) *Topology {
	t := &Topology{
		selfSID:  selfSID,
		entries:  make(map[string]ServerEntry),
		children: make(map[string]map[string]struct{}),
	}
	t.entries[selfSID] = ServerEntry{SID: selfSID, Name: selfName, Description: selfDescription}
	return t
}

// Link registers a newly-introduced server beneath upstreamSID.
func (t *Topology) Link(e ServerEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[e.SID]; exists {
		return fmt.Errorf("s2s: duplicate SID introduced: %s", e.SID)
	}
	if e.UpstreamSID != "" {
		if _, ok := t.entries[e.UpstreamSID]; !ok {
			return fmt.Errorf("s2s: unknown upstream SID %s for %s", e.UpstreamSID, e.SID)
		}
	}
	t.entries[e.SID] = e
	if t.children[e.UpstreamSID] == nil {
		t.children[e.UpstreamSID] = make(map[string]struct{})
	}
	t.children[e.UpstreamSID][e.SID] = struct{}{}
	return nil
}

// Lookup returns the entry for sid.
func (t *Topology) Lookup(sid string) (ServerEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[sid]
	return e, ok
}

// NextHop resolves the SID of the directly-linked peer through which
// traffic for destSID must be routed, by walking up from destSID to
// the child of selfSID on that path. Per spec section 4.6.4, ordinary
// unicast routing keys on the first 3 characters of a UID (its SID),
// so callers typically pass uid[:3] as destSID.
func (t *Topology) NextHop(destSID string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if destSID == t.selfSID {
		return "", fmt.Errorf("s2s: no next hop for the local server itself")
	}
	cur, ok := t.entries[destSID]
	if !ok {
		return "", fmt.Errorf("s2s: unknown destination SID %s", destSID)
	}
	for {
		if cur.UpstreamSID == t.selfSID {
			return cur.SID, nil
		}
		parent, ok := t.entries[cur.UpstreamSID]
		if !ok {
			return "", fmt.Errorf("s2s: broken topology path to %s", destSID)
		}
		cur = parent
	}
}

// Downstream returns every SID in the subtree rooted at sid, including
// sid itself -- the set that must be QUIT-synthesized and unlinked
// when the link to sid is lost, per spec section 4.6.5.
func (t *Topology) Downstream(sid string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	var walk func(string)
	walk = func(s string) {
		out = append(out, s)
		for child := range t.children[s] {
			walk(child)
		}
	}
	walk(sid)
	return out
}

// Unlink removes sid and its entire downstream subtree from the
// topology, returning the removed SIDs (same set Downstream would
// have returned before the removal).
func (t *Topology) Unlink(sid string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var upstreamSID string
	if e, ok := t.entries[sid]; ok {
		upstreamSID = e.UpstreamSID
	}

	var removed []string
	var walk func(string)
	walk = func(s string) {
		removed = append(removed, s)
		for child := range t.children[s] {
			walk(child)
		}
		delete(t.children, s)
		delete(t.entries, s)
	}
	walk(sid)

	if siblings, ok := t.children[upstreamSID]; ok {
		delete(siblings, sid)
	}
	return removed
}

// Servers returns a snapshot of every known server entry, for LINKS.
func (t *Topology) Servers() []ServerEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ServerEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out
}
