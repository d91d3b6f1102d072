/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"time"

	"github.com/sid3xyz/slircd-ng/internal/channel"
	"github.com/sid3xyz/slircd-ng/internal/numerics"
	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// modeLetters maps a channel MODE letter to the bit it sets, for the
// non-prefix, non-list modes that take no argument.
var modeLetters = map[byte]channel.Mode{
	'm': channel.ModeModerated,
	'n': channel.ModeNoExternal,
	'i': channel.ModeInviteOnly,
	's': channel.ModeSecret,
	't': channel.ModeTopicLock,
}

// listModeLetters are group-A modes: always carry a mask argument.
var listModeLetters = map[byte]channel.Mode{
	'b': channel.ModeBan,
	'e': channel.ModeExcept,
	'I': channel.ModeInviteExcept,
	'q': channel.ModeQuiet,
}

// prefixModeLetters are the per-member status modes, each taking a
// nick argument.
var prefixModeLetters = map[byte]channel.PrefixMode{
	'o': channel.PrefixOp,
	'v': channel.PrefixVoice,
	'h': channel.PrefixHalfOp,
	'a': channel.PrefixAdmin,
	'q': channel.PrefixOwner,
}

// parseModeOps turns a MODE command's "+o-b" style string plus its
// trailing arguments into the batched ModeOp list the channel actor
// expects. Unrecognized letters are silently skipped rather than
// failing the whole batch, matching RFC 2812's "ignore what you don't
// understand" stance on MODE.
func parseModeOps(modeString string, args []string) []channel.ModeOp {
	var ops []channel.ModeOp
	add := true
	argi := 0
	nextArg := func() string {
		if argi >= len(args) {
			return ""
		}
		v := args[argi]
		argi++
		return v
	}

	for i := 0; i < len(modeString); i++ {
		letter := modeString[i]
		switch letter {
		case '+':
			add = true
		case '-':
			add = false
		default:
			if prefix, ok := prefixModeLetters[letter]; ok {
				ops = append(ops, channel.ModeOp{Add: add, Prefix: prefix, Arg: nextArg()})
				continue
			}
			if mode, ok := listModeLetters[letter]; ok {
				ops = append(ops, channel.ModeOp{Add: add, Mode: mode, Arg: nextArg()})
				continue
			}
			if letter == 'k' {
				ops = append(ops, channel.ModeOp{Add: add, Mode: channel.ModeKey, Arg: nextArg()})
				continue
			}
			if letter == 'l' {
				arg := ""
				if add {
					arg = nextArg()
				}
				ops = append(ops, channel.ModeOp{Add: add, Mode: channel.ModeLimit, Arg: arg})
				continue
			}
			if mode, ok := modeLetters[letter]; ok {
				ops = append(ops, channel.ModeOp{Add: add, Mode: mode})
			}
		}
	}
	return ops
}

func (s *Server) handleMode(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, currentNick(conn), "MODE", "Not enough parameters"))
		return
	}
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	target := params[0]
	if !validChannelName(target) {
		// User-mode MODE changes are not applied; the caller gets a
		// fixed "+" mode reply rather than an error.
		c.Reply(renderCommand(s.serverName(), "MODE", reg.Nick, "+"))
		return
	}

	actor, ok := s.m.Channels.Lookup(target)
	if !ok {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchChannel, reg.Nick, target, "No such channel"))
		return
	}

	if len(params) == 1 {
		info := actor.Info()
		c.Reply(renderCommand(s.serverName(), "MODE", reg.Nick, target, "+"+info.Modes.Letters()))
		return
	}

	ops := parseModeOps(params[1], params[2:])
	if len(ops) == 0 {
		return
	}
	if !s.resolvePrefixTargets(ops, reg.Nick, c) {
		return
	}
	if err := actor.ChangeModes(reg.UID, ops, time.Now().Unix()); err != nil {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrChanOPrivsNeeded, reg.Nick, target, "You're not channel operator"))
		return
	}
	actor.Broadcast(wire.NewCommand(reg.Hostmask(), "MODE", append([]string{target}, params[1:]...)...), "")
}

// resolvePrefixTargets rewrites each Prefix ModeOp's Arg from the nick
// token parsed off the wire into the target's UID, since the actor's
// member table is keyed by UID, not nick. Replies ErrNoSuchNick and
// returns false on the first unresolvable target.
func (s *Server) resolvePrefixTargets(ops []channel.ModeOp, settingNick string, c ctx) bool {
	for i := range ops {
		if ops[i].Prefix == 0 {
			continue
		}
		target, ok := s.m.Users.Lookup(ops[i].Arg)
		if !ok {
			c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchNick, settingNick, ops[i].Arg, "No such nick/channel"))
			return false
		}
		ops[i].Arg = target.UID()
	}
	return true
}

func (s *Server) handleKick(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 2 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, currentNick(conn), "KICK", "Not enough parameters"))
		return
	}
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	chanName := params[0]
	targetNick := params[1]
	reason := reg.Nick
	if len(params) > 2 {
		reason = params[2]
	}

	actor, ok := s.m.Channels.Lookup(chanName)
	if !ok {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchChannel, reg.Nick, chanName, "No such channel"))
		return
	}
	targetUser, ok := s.m.Users.Lookup(targetNick)
	if !ok {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchNick, reg.Nick, targetNick, "No such nick/channel"))
		return
	}
	if err := actor.Kick(reg.UID, reg.Nick, targetUser.UID(), reason); err != nil {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrChanOPrivsNeeded, reg.Nick, chanName, "You're not channel operator"))
		return
	}
	targetUser.LeftChannel(chanName)
}

func (s *Server) handleInvite(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 2 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, currentNick(conn), "INVITE", "Not enough parameters"))
		return
	}
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	targetNick := params[0]
	chanName := params[1]
	actor, ok := s.m.Channels.Lookup(chanName)
	if !ok {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchChannel, reg.Nick, chanName, "No such channel"))
		return
	}
	targetUser, ok := s.m.Users.Lookup(targetNick)
	if !ok {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchNick, reg.Nick, targetNick, "No such nick/channel"))
		return
	}
	if err := actor.Invite(reg.UID, targetUser.UID(), targetNick, time.Now().Unix()); err != nil {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrChanOPrivsNeeded, reg.Nick, chanName, "You're not channel operator"))
		return
	}
	targetUser.Deliver(wire.NewCommand(reg.Hostmask(), "INVITE", targetNick, chanName), "")
	c.Reply(renderNumeric(s.serverName(), numerics.RplInviting, reg.Nick, targetNick, chanName))
}
