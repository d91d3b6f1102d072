package security

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// Rate limit defaults per spec section 4.5's governor-style
// check_and_consume. Matched loosely to the message/connection/join
// ceilings solanum-family daemons use.
const (
	MessagesPerSecond  = 2
	MessageBurst       = 10
	ConnectionsPerIP   = 1
	ConnectionBurstCap = 5
	JoinsPerSecond     = 1
	JoinBurst          = 5
)

// Limiters is the per-client bundle of token buckets: message rate and
// join burst are per-session; connection burst is per-IP and shared
// across sessions from that address.
type Limiters struct {
	messages *rate.Limiter
	joins    *rate.Limiter
}

// NewLimiters constructs a fresh per-client limiter bundle.
func NewLimiters() *Limiters {
	return &Limiters{
		messages: rate.NewLimiter(rate.Limit(MessagesPerSecond), MessageBurst),
		joins:    rate.NewLimiter(rate.Limit(JoinsPerSecond), JoinBurst),
	}
}

// AllowMessage consumes one token from the message bucket.
func (l *Limiters) AllowMessage() Verdict {
	if l.messages.Allow() {
		return allow()
	}
	return deny("rate limited: messages")
}

// AllowJoin consumes one token from the join bucket.
func (l *Limiters) AllowJoin() Verdict {
	if l.joins.Allow() {
		return allow()
	}
	return deny("rate limited: joins")
}

// ConnectionGovernor tracks per-IP connection burst limiters, created
// lazily and shared by every session from that address.
type ConnectionGovernor struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewConnectionGovernor constructs an empty per-IP governor.
func NewConnectionGovernor() *ConnectionGovernor {
	return &ConnectionGovernor{limiters: make(map[string]*rate.Limiter)}
}

// Allow consumes one token from ip's connection-burst bucket,
// allocating the bucket on first use.
func (g *ConnectionGovernor) Allow(ip net.IP) Verdict {
	g.mu.Lock()
	key := ip.String()
	l, ok := g.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(ConnectionsPerIP), ConnectionBurstCap)
		g.limiters[key] = l
	}
	g.mu.Unlock()

	if l.Allow() {
		return allow()
	}
	return deny("rate limited: connection burst")
}
