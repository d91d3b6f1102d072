/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

// Package session implements the per-connection typestate described in
// spec section 4.1: an Unregistered value that accumulates partial
// identity, and a Registered value produced by consuming it once NICK,
// USER, CAP negotiation and SASL (if any) have all completed. There is
// deliberately no boolean "registered" flag anywhere in this package --
// generalizing btnmasher-dircd/connection.go's `registered bool` field
// into the type split spec section 4.1 calls for ("the handler registry
// picks the dispatch set by inspecting which variant is live").
package session

import (
	"time"

	"github.com/sid3xyz/slircd-ng/internal/idgen"
)

// SaslState is the AUTHENTICATE sub-state machine from spec section 4.1.2.
type SaslState int

const (
	SaslIdle SaslState = iota
	SaslMechanismSelected
	SaslInProgress
	SaslSuccess
	SaslFailed
)

// Mechanism identifies a supported SASL mechanism (spec section 6.5).
type Mechanism string

const (
	MechPlain      Mechanism = "PLAIN"
	MechExternal   Mechanism = "EXTERNAL"
	MechScramSha256 Mechanism = "SCRAM-SHA-256"
)

// LabelState tracks the IRCv3 labeled-response tag attached to the
// in-flight command, if any (spec section 4.7).
type LabelState struct {
	Label  string
	Active bool
}

// BatchState tracks an open server-to-client BATCH bracket used by the
// middleware layer (spec section 4.7) for NAMES/WHOIS/CHATHISTORY.
type BatchState struct {
	Ref    string
	Type   string
	Active bool
}

// CapState is the in-progress IRCv3 capability negotiation record.
// Registration is paused whenever LSSent or ReqPending is true and END
// has not yet arrived (spec section 4.1.1).
type CapState struct {
	LSSent     bool
	ReqPending bool
	Ended      bool
	Requested  map[string]bool
	Version302 bool
}

func newCapState() CapState {
	return CapState{Requested: make(map[string]bool)}
}

// Pending reports whether registration must still wait on CAP END.
func (c CapState) Pending() bool {
	return (c.LSSent || c.ReqPending) && !c.Ended
}

// Unregistered holds every field a not-yet-registered connection may
// accumulate: nick/user/realname as they arrive, an in-progress SASL
// exchange, and CAP negotiation state. Nothing here is visible to
// post-registration handlers; the handler registry dispatches against
// this type specifically for pre-reg/universal commands.
type Unregistered struct {
	SessionId idgen.SessionId
	RemoteIP  string

	Nick     string
	User     string
	Realname string
	Password string

	Cap  CapState
	Sasl struct {
		State     SaslState
		Mechanism Mechanism
		Buffer    []byte
		Account   string
	}

	Label LabelState
	Batch BatchState

	ConnectedAt time.Time
	TLS         bool
	CertFP      string // TLS peer certificate fingerprint, for SASL EXTERNAL
	WebIRCHost  string // set by a trusted WEBIRC gateway
}

// NewUnregistered constructs the initial pre-registration state for a
// freshly accepted connection.
func NewUnregistered(id idgen.SessionId, remoteIP string, tls bool) *Unregistered {
	return &Unregistered{
		SessionId:   id,
		RemoteIP:    remoteIP,
		Cap:         newCapState(),
		ConnectedAt: time.Now(),
		TLS:         tls,
	}
}

// ReadyToRegister reports whether every gate in spec section 4.1's
// transition rule is satisfied: NICK and USER both received, CAP
// negotiation either never started or ended with CAP END, and SASL
// either never started or completed successfully.
func (u *Unregistered) ReadyToRegister() bool {
	if u.Nick == "" || u.User == "" {
		return false
	}
	if u.Cap.Pending() {
		return false
	}
	if u.Sasl.State != SaslIdle && u.Sasl.State != SaslSuccess {
		return false
	}
	return true
}

// Registered is the post-registration identity: complete and
// immutable in shape (individual fields are still mutated over the
// user's lifetime -- nick changes, host changes -- but the struct
// itself is never "un-registered"). Constructed only by Register,
// which consumes the Unregistered value.
type Registered struct {
	SessionId    idgen.SessionId
	UID          string
	Nick         string
	User         string
	Host         string
	CloakedHost  string
	Realname     string
	Account      string // empty when not identified
	Caps         CapState
	Label        LabelState
	Batch        BatchState
	SignonTS     int64
	AttachedAt   time.Time
	TLS          bool
}

// Register consumes u and produces the Registered value. Callers must
// have already verified ReadyToRegister and run every ban/rate-limit
// check from spec section 4.5; Register itself performs no checks, it
// only performs the state transition.
func Register(u *Unregistered, uid, host, cloakedHost string, signonTS int64) *Registered {
	return &Registered{
		SessionId:   u.SessionId,
		UID:         uid,
		Nick:        u.Nick,
		User:        u.User,
		Host:        host,
		CloakedHost: cloakedHost,
		Realname:    u.Realname,
		Account:     u.Sasl.Account,
		Caps:        u.Cap,
		Label:       u.Label,
		Batch:       u.Batch,
		SignonTS:    signonTS,
		AttachedAt:  time.Now(),
		TLS:         u.TLS,
	}
}

// EffectiveHost returns the cloaked host if one is set, otherwise the
// real host, matching btnmasher-dircd/user.go's vanity-host precedence.
func (r *Registered) EffectiveHost() string {
	if r.CloakedHost != "" {
		return r.CloakedHost
	}
	return r.Host
}

// Hostmask renders the nick!user@host triple used as a message prefix.
func (r *Registered) Hostmask() string {
	return r.Nick + "!" + r.User + "@" + r.EffectiveHost()
}
