// Package client implements the bouncer-style multi-session account
// manager from spec section 4.4: per-account channel memberships,
// per-device last-seen bookkeeping, and attach/detach/autoreplay. There
// is no teacher equivalent for this (btnmasher-dircd has no bouncer
// concept); the attach/detach/backlog-replay shape is grounded on the
// delthas-soju network/channel detach handling surfaced in the example
// pack's other_examples.
package client

import (
	"sync"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// AttachOutcome is the result code for Manager.Attach.
type AttachOutcome int

const (
	Attached AttachOutcome = iota
	Reattached
	MulticlientNotAllowed
	TooManySessions
)

// MaxSessionsPerAccount bounds the number of concurrently attached
// devices, per spec section 4.4.
const MaxSessionsPerAccount = 10

// Sink receives messages for a session. A detached, always-on account
// is given a noopSink instead of losing its queue entirely.
type Sink interface {
	Deliver(*wire.MessageRef)
}

type noopSink struct{}

func (noopSink) Deliver(*wire.MessageRef) {}

// ChannelMembership records one channel an account currently belongs
// to, together with the member's prefix bits, for autoreplay.
type ChannelMembership struct {
	Name   string
	Prefix uint8
}

// session is one attached device.
type session struct {
	deviceID  string
	sessionID string
	sink      Sink
	lastSeen  time.Time
}

// Account is the bouncer state owned per-account. All access goes
// through Manager, which holds the lock; Account itself has no
// exported mutators.
type Account struct {
	name       string
	alwaysOn   bool
	memberships map[string]ChannelMembership
	sessions    map[string]*session // sessionID -> session
	lastSeenDev map[string]time.Time // deviceID -> last detach time, survives detach
}

// Manager owns every attached account. Guarded by a single mutex,
// matching spec section 3.3's single-writer-at-a-time discipline for
// small, infrequently-contended maps; channel actors remain the
// fine-grained concurrency unit, not this manager.
type Manager struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

// NewManager constructs an empty bouncer manager.
func NewManager() *Manager {
	return &Manager{accounts: make(map[string]*Account)}
}

// AttachResult is returned by Attach.
type AttachResult struct {
	Outcome     AttachOutcome
	Memberships []ChannelMembership
	LastSeen    time.Time // zero if this device has never attached before
}

// Attach registers session sessionID/deviceID against account, per
// spec section 4.4. allowMulticlient gates whether a second concurrent
// session is permitted at all (some accounts may restrict to a single
// session).
func (m *Manager) Attach(account, deviceID, sessionID string, allowMulticlient bool, sink Sink) AttachResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[account]
	if !ok {
		acct = &Account{
			name:        account,
			memberships: make(map[string]ChannelMembership),
			sessions:    make(map[string]*session),
			lastSeenDev: make(map[string]time.Time),
		}
		m.accounts[account] = acct
	}

	wasOffline := len(acct.sessions) == 0

	if !wasOffline && !allowMulticlient {
		return AttachResult{Outcome: MulticlientNotAllowed}
	}
	if len(acct.sessions) >= MaxSessionsPerAccount {
		return AttachResult{Outcome: TooManySessions}
	}

	lastSeen := acct.lastSeenDev[deviceID]

	acct.sessions[sessionID] = &session{
		deviceID:  deviceID,
		sessionID: sessionID,
		sink:      sink,
		lastSeen:  time.Now(),
	}

	memberships := make([]ChannelMembership, 0, len(acct.memberships))
	for _, cm := range acct.memberships {
		memberships = append(memberships, cm)
	}

	outcome := Attached
	if !wasOffline {
		outcome = Reattached
	}

	return AttachResult{Outcome: outcome, Memberships: memberships, LastSeen: lastSeen}
}

// Detach removes sessionID from account. If it was the last session
// and the account is not always-on, the account goes fully offline
// (caller is responsible for sending the network-wide QUIT) but keeps
// its stored memberships and per-device last-seen times for a later
// Attach; if
// always-on, the account's queue is replaced by a no-op sink so the
// UID keeps existing with nothing to deliver to.
func (m *Manager) Detach(account, sessionID string) (wentOffline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[account]
	if !ok {
		return false
	}
	sess, ok := acct.sessions[sessionID]
	if !ok {
		return false
	}
	acct.lastSeenDev[sess.deviceID] = time.Now()
	delete(acct.sessions, sessionID)

	if len(acct.sessions) > 0 {
		return false
	}
	if acct.alwaysOn {
		acct.sessions[sessionID] = &session{deviceID: sess.deviceID, sessionID: sessionID, sink: noopSink{}}
		return false
	}
	return true
}

// SetAlwaysOn toggles whether account persists after its last session
// detaches.
func (m *Manager) SetAlwaysOn(account string, alwaysOn bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[account]; ok {
		acct.alwaysOn = alwaysOn
	}
}

// RecordJoin/RecordPart keep an account's stored membership list in
// sync so a future Attach can autoreplay it.
func (m *Manager) RecordJoin(account, channel string, prefix uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[account]
	if !ok {
		return
	}
	acct.memberships[channel] = ChannelMembership{Name: channel, Prefix: prefix}
}

func (m *Manager) RecordPart(account, channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[account]; ok {
		delete(acct.memberships, channel)
	}
}

// Broadcast delivers msg to every currently-attached session of
// account except sessionID (use "" to exclude none), mirroring the
// channel actor's collect-then-send discipline: the sink list is
// copied out under the lock, then delivery happens outside it.
func (m *Manager) Broadcast(account, excludeSessionID string, msg *wire.MessageRef) {
	m.mu.Lock()
	acct, ok := m.accounts[account]
	if !ok {
		m.mu.Unlock()
		return
	}
	sinks := make([]Sink, 0, len(acct.sessions))
	for id, s := range acct.sessions {
		if id == excludeSessionID {
			continue
		}
		sinks = append(sinks, s.sink)
	}
	m.mu.Unlock()

	for _, s := range sinks {
		s.Deliver(msg)
	}
}

// SessionCount reports how many devices are currently attached to
// account.
func (m *Manager) SessionCount(account string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[account]
	if !ok {
		return 0
	}
	return len(acct.sessions)
}

// IsOnline reports whether account has any attached session.
func (m *Manager) IsOnline(account string) bool {
	return m.SessionCount(account) > 0
}

// HistorySince is the subset of AutoreplayPlan's inputs the caller
// (the session's handler loop) needs to ask the history store for
// messages published after a device's last-seen timestamp.
type HistorySince struct {
	Channel  string
	Since    time.Time
}

// AutoreplayPlan returns, for a freshly reattached device, the set of
// channels to JOIN-echo plus the timestamp each channel's history
// replay should start from, per spec section 4.4's Autoreplay step.
// The actual JOIN echo/TOPIC/batched history sending is done by the
// handler loop; this just hands back what to iterate.
func (m *Manager) AutoreplayPlan(account string, since time.Time) []HistorySince {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[account]
	if !ok {
		return nil
	}
	plan := make([]HistorySince, 0, len(acct.memberships))
	for name := range acct.memberships {
		plan = append(plan, HistorySince{Channel: name, Since: since})
	}
	return plan
}
