/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package channel

import "github.com/sid3xyz/slircd-ng/internal/wire"

// api.go is the actor's public face: one exported, blocking method per
// command variant, so callers outside this package (the handler
// registry, the effects applier, the S2S burst path) never construct a
// mailbox entry directly. Every method here does nothing but build a
// command and hand it to send/sendBlocking -- all the actual state
// transitions stay in handle and its handleXxx helpers.

// Join enqueues a join attempt and blocks for the actor's verdict.
// registered, mlock and isFounder carry a ChanServ-registered
// channel's state (per spec section 4.2 JOIN step 5); pass
// false/nil/false for an unregistered channel.
func (a *Actor) Join(member Broadcaster, nick, account, realname, key string, invited, tls, oper bool, now int64, registered bool, mlock []ModeOp, isFounder bool) JoinResult {
	reply := make(chan JoinResult, 1)
	a.sendBlocking(cmdJoin{
		Member: member, Nick: nick, Account: account, Realname: realname,
		Key: key, Invited: invited, TLS: tls, Oper: oper, Now: now,
		MLock: mlock, MLockSet: registered, IsFounder: isFounder,
		Reply: reply,
	})
	return <-reply
}

// Part removes uid from the channel, first broadcasting the PART line
// (with reason) to every member, uid included.
func (a *Actor) Part(uid, nick, reason string, now int64) {
	a.send(cmdPart{UID: uid, Nick: nick, Reason: reason, Now: now})
}

// Quit removes uid without a PART broadcast, sending a QUIT line (with
// reason) to every other member; uid itself is not sent the QUIT.
func (a *Actor) Quit(uid, nick, reason string) {
	a.send(cmdQuit{UID: uid, Nick: nick, Reason: reason})
}

// Message delivers a channel PRIVMSG/NOTICE to every member except
// fromUID. The actor applies no +n/+m/ban gate to it.
func (a *Actor) Message(fromUID string, msg *wire.MessageRef) {
	a.send(cmdMessage{FromUID: fromUID, Msg: msg})
}

// Broadcast fans msg out to every current member except excludeUID.
func (a *Actor) Broadcast(msg *wire.MessageRef, excludeUID string) {
	a.send(cmdBroadcast{Msg: msg, ExcludeUID: excludeUID})
}

// BroadcastWithCaps fans primary out to members advertising
// requireCap, and fallback (if non-nil) to everyone else.
func (a *Actor) BroadcastWithCaps(requireCap string, primary, fallback *wire.MessageRef, excludeUID string) {
	a.send(cmdBroadcastWithCaps{RequireCap: requireCap, Primary: primary, Fallback: fallback, ExcludeUID: excludeUID})
}

// Info returns a read-only snapshot of the channel's topic/modes/members.
func (a *Actor) Info() ChannelInfo {
	reply := make(chan ChannelInfo, 1)
	a.sendBlocking(cmdGetInfo{Reply: reply})
	return <-reply
}

// BanList returns the rendered entries of list mode which ("b", "e", "I", "q").
func (a *Actor) BanList(which string) []ListEntry {
	reply := make(chan []ListEntry, 1)
	a.sendBlocking(cmdGetBanList{Which: which, Reply: reply})
	return <-reply
}

// Members returns a snapshot of the current membership list.
func (a *Actor) Members() []Member {
	reply := make(chan []Member, 1)
	a.sendBlocking(cmdGetMembers{Reply: reply})
	return <-reply
}

// Modes returns the channel-wide mode bitmask.
func (a *Actor) Modes() Mode {
	reply := make(chan Mode, 1)
	a.sendBlocking(cmdGetModes{Reply: reply})
	return <-reply
}

// ChangeModes applies a batched MODE command and reports the first
// error encountered, per spec section 4.2's all-or-nothing-per-op
// application order.
func (a *Actor) ChangeModes(actorUID string, ops []ModeOp, now int64) error {
	reply := make(chan error, 1)
	a.sendBlocking(cmdModeChange{ActorUID: actorUID, Ops: ops, Now: now, Reply: reply})
	return <-reply
}

// Kick removes targetUID, broadcasting a KICK line with reason.
func (a *Actor) Kick(actorUID, actorNick, targetUID, reason string) error {
	reply := make(chan error, 1)
	a.sendBlocking(cmdKick{ActorUID: actorUID, ActorNick: actorNick, TargetUID: targetUID, Reason: reason, Reply: reply})
	return <-reply
}

// ServiceChangeModes applies a batched MODE command on behalf of a
// service (ChanServ), bypassing the op-or-higher membership check
// since the service already authorized the caller against its own
// access list before requesting this effect.
func (a *Actor) ServiceChangeModes(ops []ModeOp, now int64) error {
	reply := make(chan error, 1)
	a.sendBlocking(cmdModeChange{Ops: ops, Now: now, Force: true, Reply: reply})
	return <-reply
}

// ServiceKick removes targetUID on behalf of a service, attributing the
// KICK line to actorName (e.g. "ChanServ") rather than a member UID.
func (a *Actor) ServiceKick(actorName, targetUID, reason string) error {
	reply := make(chan error, 1)
	a.sendBlocking(cmdKick{ActorNick: actorName, TargetUID: targetUID, Reason: reason, Force: true, Reply: reply})
	return <-reply
}

// ChangeTopic sets the channel topic, gated by +t per spec section 4.2.
func (a *Actor) ChangeTopic(actorUID, actorNick, topic string, now int64) error {
	reply := make(chan error, 1)
	a.sendBlocking(cmdTopicChange{ActorUID: actorUID, ActorNick: actorNick, Topic: topic, Now: now, Reply: reply})
	return <-reply
}

// Invite queues an invite for targetUID, expiring per InviteTTL.
func (a *Actor) Invite(actorUID, targetUID, targetNick string, now int64) error {
	reply := make(chan error, 1)
	a.sendBlocking(cmdInvite{ActorUID: actorUID, TargetUID: targetUID, TargetNick: targetNick, Now: now, Reply: reply})
	return <-reply
}

// Knock asks the membership for an invite, for +i channels that permit it.
func (a *Actor) Knock(uid, nick, text string) {
	a.send(cmdKnock{UID: uid, Nick: nick, Text: text})
}

// ChangeNick updates the display nick recorded against an existing member.
func (a *Actor) ChangeNick(uid, nick string) {
	a.send(cmdNickChange{UID: uid, Nick: nick})
}

// Clear empties the membership, used by server-enforced channel clears.
func (a *Actor) Clear(reason string) {
	a.send(cmdClearChannel{Reason: reason})
}

// RemoveSplitMembers drops every UID lost to a netsplit, without the
// per-member PART broadcast a voluntary part would produce.
func (a *Actor) RemoveSplitMembers(uids []string, reason string) {
	a.send(cmdNetsplitRemove{UIDs: uids, Reason: reason})
}

// MergeBurst applies a remote peer's CRDT state during S2S burst/sync
// (spec section 4.6.6).
func (a *Actor) MergeBurst(remote *BurstState) {
	a.send(cmdCrdtMerge{Remote: remote})
}

// ServerOp runs apply against the actor's internal state from within
// its own goroutine, for server-side operations (e.g. SAMODE) that
// need direct field access without a bespoke command type per case.
func (a *Actor) ServerOp(apply func(*Actor)) {
	a.send(cmdServerOp{Apply: apply})
}

// PersistState blocks until the actor has processed every command
// queued ahead of this call, for use before a checkpoint snapshot.
func (a *Actor) PersistState() {
	done := make(chan struct{})
	a.sendBlocking(cmdPersistState{Done: done})
	<-done
}

// Stop asks the actor's Run loop to exit after draining what's already queued.
func (a *Actor) Stop() {
	a.send(cmdStop{})
}
