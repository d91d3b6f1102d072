package channel

import (
	"sync"
	"time"
)

// Manager owns the channel name -> Actor map and implements the
// split-brain-safe lifecycle handshake from spec section 4.2: an actor
// exits only once its membership is empty, and signals the manager via
// onClosing before doing so; the manager only removes its handle after
// observing that signal, and a later GetOrCreate spawns a fresh actor.
type Manager struct {
	mu       sync.Mutex
	actors   map[string]*Actor
	closing  map[string]struct{}
}

// NewManager constructs an empty channel manager.
func NewManager() *Manager {
	return &Manager{
		actors:  make(map[string]*Actor),
		closing: make(map[string]struct{}),
	}
}

// GetOrCreate returns the actor for name, spawning a fresh one (and
// starting its goroutine) if none exists or if the existing one is in
// the process of closing. serverName is used as the actor's origin SID
// for locally-originated CRDT writes (topic/key/limit sets before any
// remote peer is known).
func (m *Manager) GetOrCreate(name, serverName string, now int64) *Actor {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.actors[name]; ok {
		if _, closing := m.closing[name]; !closing {
			return a
		}
		// A join raced an in-flight closure: spawn a replacement now.
		// The old actor's onClosing callback still fires later, but it
		// only deletes the map entry if it still points at that same
		// actor instance, so it will not clobber the replacement below.
	}

	a := NewActor(name, serverName, now, nil)
	a.onClosing = m.onClosing(name, a)
	m.actors[name] = a
	delete(m.closing, name)
	go a.Run()
	return a
}

// Lookup returns the current actor for name without creating one.
func (m *Manager) Lookup(name string) (*Actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[name]
	if ok {
		if _, closing := m.closing[name]; closing {
			return nil, false
		}
	}
	return a, ok
}

// Names returns every channel name currently tracked, including ones
// mid-closure.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.actors))
	for name := range m.actors {
		out = append(out, name)
	}
	return out
}

// Count returns the number of live (non-closing) channel actors.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for name := range m.actors {
		if _, closing := m.closing[name]; !closing {
			n++
		}
	}
	return n
}

// onClosing returns the ClosingNotifier bound to the specific actor
// instance owner. The callback removes the map entry only if it still
// points at owner -- if a concurrent GetOrCreate already installed a
// replacement actor for this name (the split-brain race in spec
// section 4.2), the replacement is left untouched -- and clears any
// closing marker recorded for the name.
func (m *Manager) onClosing(name string, owner *Actor) ClosingNotifier {
	return func(closedName string) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.actors[closedName]; ok && cur == owner {
			delete(m.actors, closedName)
		}
		delete(m.closing, closedName)
	}
}

// Drain synchronously persists and stops every tracked actor, used on
// graceful server shutdown.
func (m *Manager) Drain(timeout time.Duration) {
	m.mu.Lock()
	actors := make([]*Actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.mu.Unlock()

	for _, a := range actors {
		done := make(chan struct{})
		a.sendBlocking(cmdPersistState{Done: done})
		select {
		case <-done:
		case <-time.After(timeout):
		}
		a.send(cmdStop{})
	}
}
