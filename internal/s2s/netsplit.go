package s2s

import "time"

// PingInterval and PingTimeout implement the peer-liveness watchdog
// from spec section 4.6.5: a PING is sent every 30s, and the link is
// considered dead (and a netsplit processed) if no PONG answers within
// 90s of the last successfully received traffic.
const (
	PingInterval = 30 * time.Second
	PingTimeout  = 90 * time.Second
)

// LinkWatchdog tracks last-seen-traffic time for one peer link.
type LinkWatchdog struct {
	lastSeen time.Time
}

// NewLinkWatchdog starts a watchdog as of now.
func NewLinkWatchdog(now time.Time) *LinkWatchdog { return &LinkWatchdog{lastSeen: now} }

// Touch records that traffic (including a PONG) was just received.
func (w *LinkWatchdog) Touch(now time.Time) { w.lastSeen = now }

// ShouldPing reports whether it's time to send a keepalive PING.
func (w *LinkWatchdog) ShouldPing(now time.Time) bool {
	return now.Sub(w.lastSeen) >= PingInterval
}

// Expired reports whether the link has exceeded the 90-second timeout
// and must be treated as split.
func (w *LinkWatchdog) Expired(now time.Time) bool {
	return now.Sub(w.lastSeen) >= PingTimeout
}

// SplitResult is everything a netsplit handler needs to clean up after
// losing a peer link, per spec section 4.6.5.
type SplitResult struct {
	// RemovedSIDs is every server (the lost peer and its downstream
	// subtree) that must be unlinked from the topology.
	RemovedSIDs []string
	// QuitUIDs is every remote user whose UID belonged to one of
	// RemovedSIDs and who must be synthesized a QUIT with a
	// "<local> <remote>" split reason.
	QuitUIDs []string
}

// UIDsBySID, supplied by the caller (the user manager owns the
// UID->SID association), lets ProcessSplit enumerate affected users
// without this package importing internal/user.
type UIDsBySID func(sid string) []string

// ProcessSplit computes everything that must happen when the link to
// lostSID is lost: the whole downstream subtree is unlinked from the
// topology, and every user whose UID belongs to one of those servers
// is collected for a synthesized QUIT.
func ProcessSplit(topo *Topology, lostSID string, uidsBySID UIDsBySID) SplitResult {
	removed := topo.Unlink(lostSID)
	var quits []string
	for _, sid := range removed {
		quits = append(quits, uidsBySID(sid)...)
	}
	return SplitResult{RemovedSIDs: removed, QuitUIDs: quits}
}

// SplitReason formats the "<server1> <server2>" netsplit QUIT reason
// convention used across IRC networks.
func SplitReason(localServerName, remoteServerName string) string {
	return localServerName + " " + remoteServerName
}
