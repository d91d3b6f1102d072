package channel

import (
	"sync"

	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// fakeBroadcaster is a minimal Broadcaster double used across the
// actor/manager test suite.
type fakeBroadcaster struct {
	uid   string
	caps  map[string]bool
	mu    sync.Mutex
	inbox []*wire.MessageRef
}

func newFakeMember(uid string, caps ...string) *fakeBroadcaster {
	c := make(map[string]bool, len(caps))
	for _, k := range caps {
		c[k] = true
	}
	return &fakeBroadcaster{uid: uid, caps: c}
}

func (f *fakeBroadcaster) Deliver(m *wire.MessageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, m)
}

func (f *fakeBroadcaster) Capable(cap string) bool { return f.caps[cap] }
func (f *fakeBroadcaster) UID() string             { return f.uid }

func (f *fakeBroadcaster) messages() []*wire.MessageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*wire.MessageRef, len(f.inbox))
	copy(out, f.inbox)
	return out
}
