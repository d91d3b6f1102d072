// Package router implements UID-prefix -> SID -> next-hop forwarding
// for unicast traffic addressed to a remote user, per spec section
// 4.6.4. It is a thin, purpose-specific repointing of
// btnmasher-dircd/router.go's dispatch-table idiom: instead of mapping
// a command name to a handler chain, it maps a destination UID's
// leading 3 characters (its origin SID) to the peer link that must
// carry the message.
package router

import (
	"fmt"

	"github.com/sid3xyz/slircd-ng/internal/s2s"
)

// Router resolves and forwards unicast server-to-server traffic.
type Router struct {
	topo *s2s.Topology
	prop *s2s.Propagator
	self string
}

// New constructs a Router bound to one server's topology view and
// propagator.
func New(topo *s2s.Topology, prop *s2s.Propagator, selfSID string) *Router {
	return &Router{topo: topo, prop: prop, self: selfSID}
}

// SIDOf extracts the 3-character SID prefix from a 9-character UID,
// per spec section 3.1's identifier scheme.
func SIDOf(uid string) (string, error) {
	if len(uid) < 3 {
		return "", fmt.Errorf("router: malformed UID %q", uid)
	}
	return uid[:3], nil
}

// IsLocal reports whether uid belongs to this server.
func (r *Router) IsLocal(uid string) bool {
	sid, err := SIDOf(uid)
	return err == nil && sid == r.self
}

// ForwardToUID routes line to the peer link leading toward destUID's
// origin server. Returns an error if destUID is local (there is no
// next hop for a local user -- the caller should have delivered it
// directly) or if the origin server is unknown/unreachable.
func (r *Router) ForwardToUID(destUID string, line string) error {
	sid, err := SIDOf(destUID)
	if err != nil {
		return err
	}
	if sid == r.self {
		return fmt.Errorf("router: %s is local, nothing to forward", destUID)
	}
	return r.prop.RouteUnicast(r.topo, sid, line)
}

// ForwardToChannel broadcasts line to every peer except the one it
// arrived from (split-horizon), used for channel traffic that must
// reach every linked server regardless of membership.
func (r *Router) ForwardToChannel(line string, excludeSID string) {
	r.prop.Broadcast(line, excludeSID)
}
