/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/channel"
	"github.com/sid3xyz/slircd-ng/internal/sasl"
	"github.com/sid3xyz/slircd-ng/internal/services"
	"github.com/sid3xyz/slircd-ng/internal/store"
	"github.com/sid3xyz/slircd-ng/internal/user"
	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// serviceAdapter implements every effects.Applier collaborator
// interface (Sender/AccountBinder/Enforcer/SessionKiller/
// ChannelMutator/Wallopper) against the live Matrix/Server pair, so a
// services.Effect returned by NickServ/ChanServ reaches real sessions,
// channel actors and user records instead of stopping at the
// unit-tested services/effects package boundary.
type serviceAdapter struct {
	s *Server

	mu           sync.Mutex
	enforcements map[string]*time.Timer
}

func newServiceAdapter(s *Server) *serviceAdapter {
	return &serviceAdapter{s: s, enforcements: make(map[string]*time.Timer)}
}

func (a *serviceAdapter) SendNotice(targetUID, from, text string) {
	u, ok := a.s.m.Users.ByUID(targetUID)
	if !ok {
		return
	}
	msg := wire.NewCommand(from, "NOTICE", u.Nick()).WithTrailingf("%s", text)
	u.Deliver(msg, "")
}

func (a *serviceAdapter) SetAccount(targetUID, account string) {
	if u, ok := a.s.m.Users.ByUID(targetUID); ok {
		u.SetAccount(account)
	}
}

func (a *serviceAdapter) ClearAccount(targetUID string) {
	if u, ok := a.s.m.Users.ByUID(targetUID); ok {
		u.SetAccount("")
	}
}

// CancelEnforcement stops any pending EnforceNick timer for nick.
func (a *serviceAdapter) CancelEnforcement(nick string) {
	key := user.CaseFold(nick)
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.enforcements[key]; ok {
		t.Stop()
		delete(a.enforcements, key)
	}
}

// EnforceNick schedules whoever holds nick after to be forcibly
// disconnected, the reclaim half of NickServ's RELEASE/GHOST pair.
// Nothing currently emits this effect (GHOST kills immediately
// instead), but the timer mechanics are real, not a stub.
func (a *serviceAdapter) EnforceNick(nick string, after time.Duration) {
	key := user.CaseFold(nick)
	a.mu.Lock()
	if t, ok := a.enforcements[key]; ok {
		t.Stop()
	}
	a.enforcements[key] = time.AfterFunc(after, func() {
		a.mu.Lock()
		delete(a.enforcements, key)
		a.mu.Unlock()
		if u, ok := a.s.m.Users.Lookup(nick); ok {
			a.killUser(u.UID(), "NickServ", "Nickname reclaimed by services")
		}
	})
	a.mu.Unlock()
}

// Kill implements SessionKiller. services.Kill.TargetUID is in
// practice populated with a nick (see nsGhost), not a UID, so UID
// lookup falls back to a nick lookup.
func (a *serviceAdapter) Kill(targetUID, killer, reason string) error {
	return a.killUser(targetUID, killer, reason)
}

func (a *serviceAdapter) killUser(targetUID, killer, reason string) error {
	u, ok := a.s.m.Users.ByUID(targetUID)
	if !ok {
		u, ok = a.s.m.Users.Lookup(targetUID)
	}
	if !ok {
		return fmt.Errorf("listener: no such user %q", targetUID)
	}
	msg := wire.NewCommand(a.s.serverName(), "ERROR",
		fmt.Sprintf("Closing Link: %s (Killed (%s (%s)))", u.Nick(), killer, reason))
	u.Deliver(msg, "")
	for _, sender := range u.Sessions() {
		if conn, ok := sender.(*Conn); ok {
			conn.SetQuitReason(fmt.Sprintf("Killed (%s (%s))", killer, reason))
		}
		sender.Close()
	}
	return nil
}

// Kick implements ChannelMutator.Kick. Like services.Kill, TargetUID
// may arrive as a nick (csKick passes args[1] straight through).
func (a *serviceAdapter) Kick(chanName, targetUID, kicker, reason string) error {
	actor, ok := a.s.m.Channels.Lookup(chanName)
	if !ok {
		return fmt.Errorf("listener: no such channel %q", chanName)
	}
	target, ok := a.s.m.Users.ByUID(targetUID)
	if !ok {
		target, ok = a.s.m.Users.Lookup(targetUID)
	}
	if !ok {
		return fmt.Errorf("listener: no such user %q", targetUID)
	}
	if err := actor.ServiceKick(kicker, target.UID(), reason); err != nil {
		return err
	}
	target.LeftChannel(chanName)
	return nil
}

// ApplyModes implements ChannelMutator.ApplyModes, converting
// ChanServ's single-letter ModeOpRequest batch into the channel
// actor's ModeOp type, resolving prefix-mode targets (which arrive as
// a UID for the self-target default, or a nick for an explicit
// target) the same way handleMode does for client-issued MODE.
func (a *serviceAdapter) ApplyModes(chanName string, ops []services.ModeOpRequest, setter string) error {
	actor, ok := a.s.m.Channels.Lookup(chanName)
	if !ok {
		return fmt.Errorf("listener: no such channel %q", chanName)
	}
	converted := make([]channel.ModeOp, 0, len(ops))
	for _, op := range ops {
		if len(op.Mode) != 1 {
			continue
		}
		letter := op.Mode[0]
		if prefix, ok := prefixModeLetters[letter]; ok {
			target, ok := a.s.m.Users.ByUID(op.Arg)
			if !ok {
				target, ok = a.s.m.Users.Lookup(op.Arg)
			}
			if !ok {
				continue
			}
			converted = append(converted, channel.ModeOp{Add: op.Add, Prefix: prefix, Arg: target.UID()})
			continue
		}
		if mode, ok := listModeLetters[letter]; ok {
			converted = append(converted, channel.ModeOp{Add: op.Add, Mode: mode, Arg: op.Arg})
			continue
		}
		if mode, ok := modeLetters[letter]; ok {
			converted = append(converted, channel.ModeOp{Add: op.Add, Mode: mode})
		}
	}
	if len(converted) == 0 {
		return nil
	}
	return actor.ServiceChangeModes(converted, time.Now().Unix())
}

// Wallops implements Wallopper, fanning msg out to every connected
// operator as a WALLOPS line.
func (a *serviceAdapter) Wallops(msg string) {
	line := wire.NewCommand(a.s.serverName(), "WALLOPS", "").WithTrailingf("%s", msg)
	for _, op := range a.s.m.Users.Operators() {
		op.Deliver(line, "")
	}
}

// buildServiceContext assembles the data-only services.Context for a
// registered session, binding MemberOf/ChannelOp to the live channel
// manager without handing the service package an actor reference.
func (s *Server) buildServiceContext(uid, nick, account string, isOper bool) services.Context {
	return services.Context{
		UID:     uid,
		Nick:    nick,
		Account: account,
		IsOper:  isOper,
		MemberOf: func(chanName string) bool {
			actor, ok := s.m.Channels.Lookup(chanName)
			if !ok {
				return false
			}
			for _, m := range actor.Members() {
				if m.UID == uid {
					return true
				}
			}
			return false
		},
		ChannelOp: func(chanName string) bool {
			actor, ok := s.m.Channels.Lookup(chanName)
			if !ok {
				return false
			}
			for _, m := range actor.Members() {
				if m.UID == uid {
					return m.Prefix.HasOpOrHigher()
				}
			}
			return false
		},
	}
}

// dispatchService routes a PRIVMSG/NOTICE addressed to a registered
// pseudo-client (NickServ, ChanServ) through the matching services.
// Service and applies the resulting effects, per spec section 4.8 --
// this is the only place those services are reachable from a live
// connection rather than just their own unit tests.
func (s *Server) dispatchService(svc *services.Service, reg *regInfo, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	verb, args := fields[0], fields[1:]
	svcCtx := s.buildServiceContext(reg.uid, reg.nick, reg.account, reg.isOper)

	if svc == s.m.NickServ {
		switch strings.ToUpper(verb) {
		case "REGISTER":
			if !s.registerNickServAccount(reg, args) {
				return
			}
		case "IDENTIFY":
			if !s.verifyNickServIdentify(reg, args) {
				return
			}
		}
	}

	effectsOut := svc.Dispatch(verb, args, svcCtx)
	if err := s.m.Effects.ApplyAll(effectsOut); err != nil {
		s.log.WithError(err).WithField("service", svc.Name).Debug("service effect failed")
	}
}

// registerNickServAccount hashes and persists a new account ahead of
// calling NickServ's pure REGISTER handler, since that handler (per
// its own doc comment) only decides the outcome and never touches
// storage. Returns false (having already replied) if registration
// can't proceed, so the caller skips Dispatch entirely.
func (s *Server) registerNickServAccount(reg *regInfo, args []string) bool {
	if len(args) < 1 {
		return true // let nsRegister's own arity check produce the USAGE reply
	}
	ctx := context.Background()
	if existing, err := s.m.Accounts.GetAccount(ctx, reg.nick); err == nil && existing != nil {
		s.m.Effects.ApplyAll([]services.Effect{services.Reply{TargetUID: reg.uid, Msg: "That nickname is already registered."}})
		return false
	}
	hash, err := sasl.HashPassword(args[0])
	if err != nil {
		s.m.Effects.ApplyAll([]services.Effect{services.Reply{TargetUID: reg.uid, Msg: "Registration failed; try again."}})
		return false
	}
	salt, iters, storedKey, serverKey, err := sasl.DeriveScramVerifier(args[0])
	if err != nil {
		s.m.Effects.ApplyAll([]services.Effect{services.Reply{TargetUID: reg.uid, Msg: "Registration failed; try again."}})
		return false
	}
	email := ""
	if len(args) >= 2 {
		email = args[1]
	}
	account := store.Account{
		Name:           reg.nick,
		PasswordHash:   hash,
		Email:          email,
		RegisteredAt:   time.Now(),
		LastSeenAt:     time.Now(),
		SCRAMSalt:      salt,
		SCRAMIters:     iters,
		SCRAMStoredKey: storedKey,
		SCRAMServerKey: serverKey,
	}
	if err := s.m.Accounts.PutAccount(ctx, account); err != nil {
		s.m.Effects.ApplyAll([]services.Effect{services.Reply{TargetUID: reg.uid, Msg: "Registration failed; try again."}})
		return false
	}
	return true
}

// verifyNickServIdentify checks args[0] against the stored bcrypt hash
// before letting nsIdentify produce its AccountIdentify effect, since
// nsIdentify itself assumes the password was already verified.
func (s *Server) verifyNickServIdentify(reg *regInfo, args []string) bool {
	if len(args) < 1 {
		return true // let nsIdentify's own arity check produce the USAGE reply
	}
	if _, err := s.m.Sasl.VerifyPassword(context.Background(), reg.nick, args[0]); err != nil {
		s.m.Effects.ApplyAll([]services.Effect{services.Reply{TargetUID: reg.uid, Msg: "Invalid password."}})
		return false
	}
	return true
}

// regInfo is the minimal snapshot relay needs to build a services.Context
// without re-acquiring conn.mu partway through dispatch.
type regInfo struct {
	uid     string
	nick    string
	account string
	isOper  bool
}
