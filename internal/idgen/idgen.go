// Package idgen implements the identifier schemes from spec section
// 3.1: 3-char SIDs, 9-char UIDs (3-char SID prefix + 6-char per-server
// base36 counter), and opaque 128-bit SessionIds.
package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SessionId is an opaque 128-bit identifier for one TCP connection.
// Multiple sessions may share a UID when a bouncer account has more
// than one device attached (spec section 3.1).
type SessionId uuid.UUID

// NewSessionId mints a fresh session identifier.
func NewSessionId() SessionId {
	return SessionId(uuid.New())
}

func (s SessionId) String() string { return uuid.UUID(s).String() }

// UIDAllocator hands out UIDs for one local SID. The counter is a
// 6-character base36 value; spec section 4.3 requires overflow to wrap
// and skip any UID still live, so the allocator accepts a liveness
// check callback rather than tracking liveness itself.
type UIDAllocator struct {
	mu      sync.Mutex
	sid     string
	counter uint64 // 0 .. 36^6-1
}

// NewUIDAllocator constructs an allocator for the given 3-character SID.
func NewUIDAllocator(sid string) *UIDAllocator {
	if len(sid) != 3 {
		panic("idgen: SID must be exactly 3 characters")
	}
	return &UIDAllocator{sid: sid}
}

const counterSpace = 36 * 36 * 36 * 36 * 36 * 36

// Next returns the next UID not reported live by isLive. isLive is
// consulted under the allocator's lock and must not block or re-enter
// the allocator (it should be a simple map lookup copied out earlier,
// per the locking discipline in spec section 5).
func (a *UIDAllocator) Next(isLive func(uid string) bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.counter
	for {
		candidate := a.sid + encodeBase36(a.counter, 6)
		a.counter = (a.counter + 1) % counterSpace
		if !isLive(candidate) {
			return candidate, nil
		}
		if a.counter == start {
			return "", ErrUIDSpaceExhausted
		}
	}
}

// ErrUIDSpaceExhausted is returned when every UID in the 36^6 counter
// space for this SID is currently live.
var ErrUIDSpaceExhausted = fmt.Errorf("idgen: UID counter space exhausted for this SID")

func encodeBase36(n uint64, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = base36Alphabet[n%36]
		n /= 36
	}
	return string(buf)
}

// SIDOf returns the 3-character originating server ID encoded in uid.
// Every UID prefix must resolve to a known server per spec section 3.2.
func SIDOf(uid string) string {
	if len(uid) < 3 {
		return ""
	}
	return uid[:3]
}
