// Package security implements the layered connection/registration
// gates from spec section 4.5: IP deny, ban cache, rate limiting, spam
// heuristics, and extended bans. Every check returns allow/deny with an
// optional reason rather than panicking, per spec section 4.5's last
// line. The permission-level vocabulary (UPermNone..UPermServer) is
// grounded on btnmasher-dircd/permissions.go and usermode.go's
// UModeReqs gated-mutation pattern, generalized from per-command gates
// to connection-level gates.
package security

import (
	"net"
	"strings"
	"sync"
)

// Level mirrors btnmasher-dircd/permissions.go's UPerm ladder, used to
// gate privileged extended-ban and oper-only operations.
type Level uint8

const (
	LevelBan Level = iota
	LevelNone
	LevelUser
	LevelHelpOp
	LevelNetOp
	LevelAdmin
	LevelServer
)

// Verdict is the outcome of any gate in this package.
type Verdict struct {
	Allowed bool
	Reason  string
}

func allow() Verdict         { return Verdict{Allowed: true} }
func deny(reason string) Verdict { return Verdict{Allowed: false, Reason: reason} }

// IPDenyList implements the D/Z-line gate: an O(1) exact-match lookup
// plus a linear CIDR scan for ranges, checked before any protocol bytes
// are processed.
type IPDenyList struct {
	mu     sync.RWMutex
	exact  map[string]string // ip string -> reason
	ranges []denyRange
}

type denyRange struct {
	net    *net.IPNet
	reason string
}

// NewIPDenyList constructs an empty deny list.
func NewIPDenyList() *IPDenyList {
	return &IPDenyList{exact: make(map[string]string)}
}

// DenyExact adds a single-address deny entry (a D-line).
func (l *IPDenyList) DenyExact(ip, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exact[ip] = reason
}

// DenyRange adds a CIDR deny entry (a Z-line).
func (l *IPDenyList) DenyRange(cidr, reason string) error {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ranges = append(l.ranges, denyRange{net: ipnet, reason: reason})
	return nil
}

// Check reports whether ip is denied. The exact-match path is O(1);
// the CIDR path is O(n) in the number of configured ranges, which in
// practice stays small (operator-maintained, not client-supplied).
func (l *IPDenyList) Check(ip net.IP) Verdict {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if reason, ok := l.exact[ip.String()]; ok {
		return deny(reason)
	}
	for _, r := range l.ranges {
		if r.net.Contains(ip) {
			return deny(r.reason)
		}
	}
	return allow()
}

// BanCache implements the K/G-line gate: a user@host glob match
// performed once registration completes and the full mask is known.
type BanCache struct {
	mu   sync.RWMutex
	bans map[string]string // mask -> reason
}

// NewBanCache constructs an empty ban cache.
func NewBanCache() *BanCache {
	return &BanCache{bans: make(map[string]string)}
}

// Add registers a user@host glob mask.
func (b *BanCache) Add(mask, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bans[strings.ToLower(mask)] = reason
}

// Remove clears a previously-registered mask.
func (b *BanCache) Remove(mask string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bans, strings.ToLower(mask))
}

// Check matches userAtHost ("user@host") against every configured
// mask.
func (b *BanCache) Check(userAtHost string) Verdict {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lower := strings.ToLower(userAtHost)
	for mask, reason := range b.bans {
		if MatchMask(mask, lower) {
			return deny(reason)
		}
	}
	return allow()
}

// MatchMask matches an IRC-style hostmask glob (where '*' and '?' are
// the only wildcards) against subject. Implemented directly rather
// than via a third-party glob library: no glob package in the example
// pack supports IRC's specific two-wildcard grammar, and the pattern
// space is small enough that a hand-rolled matcher is both correct and
// auditable -- the justified stdlib-equivalent case called for in the
// grounding ledger.
func MatchMask(mask, subject string) bool {
	return matchGlob([]rune(mask), []rune(subject))
}

func matchGlob(pattern, subject []rune) bool {
	if len(pattern) == 0 {
		return len(subject) == 0
	}
	switch pattern[0] {
	case '*':
		if len(pattern) == 1 {
			return true
		}
		for i := 0; i <= len(subject); i++ {
			if matchGlob(pattern[1:], subject[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(subject) == 0 {
			return false
		}
		return matchGlob(pattern[1:], subject[1:])
	default:
		if len(subject) == 0 || subject[0] != pattern[0] {
			return false
		}
		return matchGlob(pattern[1:], subject[1:])
	}
}
