/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

// Package user implements the User manager described in spec section
// 4.3: the nick index, WHOWAS history, and per-session send-queue
// registration (UIDs are allocated by internal/idgen). The User type's accessor style (lock,
// copy/swap field, unlock) is grounded directly on
// btnmasher-dircd/user.go.
package user

import (
	"strings"
	"sync"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/idgen"
	"github.com/sid3xyz/slircd-ng/internal/shardmap"
	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// Sender is anything that can accept a rendered outbound message for
// one session. The concrete implementation is a session's bounded
// write queue; user and channel code only ever see this narrow
// interface so that fan-out never needs to know about sockets.
type Sender interface {
	Deliver(*wire.MessageRef)
	Capable(capability string) bool
	Close()
}

// User holds shared, multiple-reader/single-writer state for one
// network identity. Per spec section 3.3, readers must copy out the
// fields they need before performing any suspending operation.
type User struct {
	mu sync.RWMutex

	uid         string
	nick        string
	account     string
	userName    string
	host        string
	cloakedHost string
	realname    string
	modes       uint64
	signonTS    int64
	idleTS      int64

	channels map[string]struct{}
	sessions map[idgen.SessionId]Sender
}

// New constructs a User in its post-registration shape.
func New(uid, nick, userName, host, cloakedHost, realname string, signonTS int64) *User {
	return &User{
		uid:         uid,
		nick:        nick,
		userName:    userName,
		host:        host,
		cloakedHost: cloakedHost,
		realname:    realname,
		signonTS:    signonTS,
		idleTS:      signonTS,
		channels:    make(map[string]struct{}),
		sessions:    make(map[idgen.SessionId]Sender),
	}
}

func (u *User) UID() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.uid
}

func (u *User) Nick() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.nick
}

func (u *User) SetNick(nick string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nick = nick
}

func (u *User) Account() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account
}

func (u *User) SetAccount(account string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.account = account
	if account == "" {
		u.modes &^= ModeRegistered
	} else {
		u.modes |= ModeRegistered
	}
}

func (u *User) Hostmask() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	host := u.cloakedHost
	if host == "" {
		host = u.host
	}
	return u.nick + "!" + u.userName + "@" + host
}

func (u *User) Realname() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.realname
}

// UserName returns the ident/username field of the hostmask, for
// replies (WHOIS) that render it separately from the host.
func (u *User) UserName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.userName
}

// DisplayHost returns the cloaked host if one is set, else the real
// host -- the same choice Hostmask makes, exposed on its own for
// callers that need user/host as separate WHOIS reply fields.
func (u *User) DisplayHost() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.cloakedHost != "" {
		return u.cloakedHost
	}
	return u.host
}

func (u *User) SignonTS() int64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.signonTS
}

func (u *User) TouchIdle() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.idleTS = time.Now().Unix()
}

func (u *User) IdleSeconds() int64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return time.Now().Unix() - u.idleTS
}

// User mode bitmask flags, generalized from btnmasher-dircd/usermode.go.
const (
	ModeInvisible uint64 = 1 << iota
	ModeOperator
	ModeRegistered
	ModeAway
	ModeWallops
	ModeSecure
	ModeBot
)

func (u *User) AddMode(mode uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.modes |= mode
}

func (u *User) DelMode(mode uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.modes &^= mode
}

func (u *User) HasMode(mode uint64) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.modes&mode == mode
}

// JoinedChannel records that the user is a member of name. The channel
// actor is the authority on membership; this index exists so the user
// manager can answer "what channels is uid in" without asking every
// actor, per the membership-consistency invariant in spec section 8.1.
func (u *User) JoinedChannel(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.channels[name] = struct{}{}
}

func (u *User) LeftChannel(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.channels, name)
}

func (u *User) Channels() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]string, 0, len(u.channels))
	for name := range u.channels {
		out = append(out, name)
	}
	return out
}

// AddSession registers a send queue under sessionID, implementing the
// "a user may have up to multiclient.max_sessions sessions" fan-out
// target of spec section 4.3. Limit enforcement lives in the client
// manager (bouncer accounts); the user manager itself just maintains
// the set.
func (u *User) AddSession(id idgen.SessionId, sender Sender) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sessions[id] = sender
}

func (u *User) RemoveSession(id idgen.SessionId) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.sessions, id)
	return len(u.sessions)
}

func (u *User) SessionCount() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.sessions)
}

// Sessions returns a snapshot of this user's current send queues, for
// callers that need to act on the underlying connection directly (a
// forced KILL closing every session rather than just delivering a
// message to it).
func (u *User) Sessions() []Sender {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]Sender, 0, len(u.sessions))
	for _, s := range u.sessions {
		out = append(out, s)
	}
	return out
}

// Deliver fans out msg to every session of this user, filtering by the
// required capability (e.g. "echo-message" for self-echo) per spec
// section 4.3's session-aware delivery rule. The sender handles are
// copied out before any send is attempted, per the locking discipline
// in spec section 5.
func (u *User) Deliver(msg *wire.MessageRef, requireCap string) {
	u.mu.RLock()
	senders := make([]Sender, 0, len(u.sessions))
	for _, s := range u.sessions {
		senders = append(senders, s)
	}
	u.mu.RUnlock()

	for _, s := range senders {
		if requireCap != "" && !s.Capable(requireCap) {
			continue
		}
		s.Deliver(msg)
	}
}

// WhowasEntry is one ring-buffer record of a recently disconnected
// user's identity (spec section 3.2/4.3).
type WhowasEntry struct {
	Nick       string
	User       string
	Host       string
	Realname   string
	SignoffUTC int64
}

// WhowasRing is a bounded, time-windowed ring of WhowasEntry records.
type WhowasRing struct {
	mu      sync.Mutex
	entries []WhowasEntry
	max     int
	window  time.Duration
}

// NewWhowasRing constructs a ring retaining at most max entries, each
// pruned once it is older than window (defaults from spec section 4.3:
// 1 hour window, 1000 entry cap).
func NewWhowasRing(max int, window time.Duration) *WhowasRing {
	return &WhowasRing{max: max, window: window}
}

// Record appends an entry, evicting the oldest if the ring is full.
func (w *WhowasRing) Record(e WhowasEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, e)
	if len(w.entries) > w.max {
		w.entries = w.entries[len(w.entries)-w.max:]
	}
}

// Lookup returns the most recent entries for a case-folded nick, newest
// first, after pruning anything older than the retention window.
func (w *WhowasRing) Lookup(nick string, now int64) []WhowasEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now - int64(w.window/time.Second)
	kept := w.entries[:0:0]
	var matches []WhowasEntry
	for _, e := range w.entries {
		if e.SignoffUTC < cutoff {
			continue
		}
		kept = append(kept, e)
		if strings.EqualFold(e.Nick, nick) {
			matches = append(matches, e)
		}
	}
	w.entries = kept

	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	return matches
}

// Manager owns the uid->User and casefolded-nick->uid indices plus the
// network-lifetime WHOWAS ring. Grounded on btnmasher-dircd/conn_map.go
// and chan_map.go's specialized map pattern, generalized via shardmap.
type Manager struct {
	byUID  *shardmap.Map[string, *User]
	byNick *shardmap.Map[string, string] // casefolded nick -> uid
	whowas *WhowasRing
}

// NewManager constructs an empty user manager.
func NewManager() *Manager {
	return &Manager{
		byUID:  shardmap.New[string, *User](shardmap.FNV32a),
		byNick: shardmap.New[string, string](shardmap.FNV32a),
		whowas: NewWhowasRing(1000, time.Hour),
	}
}

// CaseFold applies the RFC 2812 ASCII + {}|~ mapping mandated by spec
// section 6.1 -- never a locale-aware ToLower.
func CaseFold(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
			b[i] = c + 32
		case c == '[':
			b[i] = '{'
		case c == ']':
			b[i] = '}'
		case c == '\\':
			b[i] = '|'
		case c == '^':
			b[i] = '~'
		}
	}
	return string(b)
}

// ClaimNick attempts the atomic "insert if absent" nick claim described
// in spec section 4.3. Returns false (ERR_NICKNAMEINUSE territory) if
// the casefolded nick is already claimed.
func (m *Manager) ClaimNick(nick, uid string) bool {
	return m.byNick.SetIfAbsent(CaseFold(nick), uid)
}

// ReleaseNick frees a casefolded nick claim, e.g. on NICK change or
// disconnect.
func (m *Manager) ReleaseNick(nick string) {
	m.byNick.Delete(CaseFold(nick))
}

// RenameNick atomically moves a nick claim from oldNick to newNick for
// uid. Returns false without changing anything if newNick is already
// claimed by a different uid.
func (m *Manager) RenameNick(oldNick, newNick, uid string) bool {
	if !m.byNick.SetIfAbsent(CaseFold(newNick), uid) {
		return false
	}
	m.byNick.Delete(CaseFold(oldNick))
	return true
}

// Lookup resolves a nick to its User, or (nil, false) if unknown.
func (m *Manager) Lookup(nick string) (*User, bool) {
	uid, ok := m.byNick.Get(CaseFold(nick))
	if !ok {
		return nil, false
	}
	return m.ByUID(uid)
}

// ByUID resolves a UID directly.
func (m *Manager) ByUID(uid string) (*User, bool) {
	return m.byUID.Get(uid)
}

// Operators returns every currently connected user with ModeOperator
// set, for WALLOPS fan-out.
func (m *Manager) Operators() []*User {
	var out []*User
	for _, u := range m.byUID.Snapshot() {
		if u.HasMode(ModeOperator) {
			out = append(out, u)
		}
	}
	return out
}

// Add installs u into the UID index. Callers must have already claimed
// u's nick via ClaimNick.
func (m *Manager) Add(u *User) {
	m.byUID.Set(u.UID(), u)
}

// Remove deletes u from both indices and records a WHOWAS entry,
// satisfying spec section 3.2's "QUIT broadcast always precedes
// destruction" lifecycle by leaving the broadcast itself to the caller
// (handler/channel actor) -- Remove only performs the index teardown.
func (m *Manager) Remove(u *User) {
	m.byUID.Delete(u.UID())
	m.ReleaseNick(u.Nick())
	m.whowas.Record(WhowasEntry{
		Nick:       u.Nick(),
		User:       u.userName,
		Host:       u.host,
		Realname:   u.Realname(),
		SignoffUTC: time.Now().Unix(),
	})
}

// Whowas exposes the manager's WHOWAS ring.
func (m *Manager) Whowas() *WhowasRing { return m.whowas }

// Count returns the number of locally known users.
func (m *Manager) Count() int { return m.byUID.Len() }
