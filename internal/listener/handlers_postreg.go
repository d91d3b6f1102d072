/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/channel"
	"github.com/sid3xyz/slircd-ng/internal/numerics"
	"github.com/sid3xyz/slircd-ng/internal/services"
	"github.com/sid3xyz/slircd-ng/internal/user"
	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// lookupService resolves target against the registered service pseudo
// clients (NickServ/ChanServ), per spec section 4.8's requirement that
// PRIVMSG/NOTICE to either name dispatch into the service command
// table instead of a plain nick lookup.
func (s *Server) lookupService(target string) (*services.Service, bool) {
	switch {
	case strings.EqualFold(target, s.m.NickServ.Name):
		return s.m.NickServ, true
	case strings.EqualFold(target, s.m.ChanServ.Name):
		return s.m.ChanServ, true
	default:
		return nil, false
	}
}

// channelNamePrefixes lists the RFC 2812 channel-name sigils this
// server accepts: '#' and '&'.
func validChannelName(name string) bool {
	return len(name) > 1 && (name[0] == '#' || name[0] == '&') && len(name) <= 64
}

func (s *Server) handleJoin(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, currentNick(conn), "JOIN", "Not enough parameters"))
		return
	}
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	u, ok := s.m.Users.ByUID(reg.UID)
	if !ok {
		return
	}

	keys := strings.Split(orEmpty(params, 1), ",")
	for i, chanName := range strings.Split(params[0], ",") {
		if !validChannelName(chanName) {
			c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchChannel, reg.Nick, chanName, "No such channel"))
			continue
		}
		key := ""
		if i < len(keys) {
			key = keys[i]
		}

		now := time.Now().Unix()
		actor := s.m.Channels.GetOrCreate(chanName, s.serverName(), now)
		registered, mlock, isFounder := s.channelMlock(chanName, reg.Account)
		result := actor.Join(conn, reg.Nick, reg.Account, reg.Realname, key, false, reg.TLS, false, now, registered, mlock, isFounder)
		if !result.OK {
			c.Reply(renderNumeric(s.serverName(), result.Numeric, reg.Nick, chanName, "Cannot join channel"))
			continue
		}

		u.JoinedChannel(chanName)

		if result.Topic != "" {
			c.Reply(renderNumeric(s.serverName(), numerics.RplTopic, reg.Nick, chanName, result.Topic))
			c.Reply(renderNumeric(s.serverName(), numerics.RplTopicWhoTime, reg.Nick, chanName, result.TopicSetBy, strconv.FormatInt(result.TopicTS, 10)))
		} else {
			c.Reply(renderNumeric(s.serverName(), numerics.RplNoTopic, reg.Nick, chanName, "No topic is set"))
		}

		names := make([]string, 0)
		for _, m := range actor.Members() {
			if mu, ok := s.m.Users.ByUID(m.UID); ok {
				names = append(names, m.Prefix.Symbol()+mu.Nick())
			}
		}
		c.Reply(renderNumeric(s.serverName(), numerics.RplNamReply, reg.Nick, "=", chanName, strings.Join(names, " ")))
		c.Reply(renderNumeric(s.serverName(), numerics.RplEndOfNames, reg.Nick, chanName, "End of /NAMES list"))
	}
}

// channelMlock looks up chanName's ChanServ registration and returns
// whether it is registered at all, its locked group-D mode flags
// parsed with the same table parseModeOps uses for client MODE, and
// whether account matches the registration's founder (per spec
// section 4.2 JOIN step 5's MLOCK application and auto-op
// suppression). An unregistered channel returns (false, nil, false).
func (s *Server) channelMlock(chanName, account string) (registered bool, mlock []channel.ModeOp, isFounder bool) {
	reg, err := s.m.ChannelStore.GetChannel(context.Background(), chanName)
	if err != nil || reg == nil {
		return false, nil, false
	}
	ops := parseModeOps(reg.MLock, nil)
	locked := make([]channel.ModeOp, 0, len(ops))
	for _, op := range ops {
		if op.Prefix == 0 && op.Mode != channel.ModeKey && op.Mode != channel.ModeLimit {
			locked = append(locked, op)
		}
	}
	return true, locked, account != "" && strings.EqualFold(account, reg.Founder)
}

func (s *Server) handlePart(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, currentNick(conn), "PART", "Not enough parameters"))
		return
	}
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	reason := ""
	if len(params) > 1 {
		reason = params[1]
	}

	u, ok := s.m.Users.ByUID(reg.UID)
	if !ok {
		return
	}

	for _, chanName := range strings.Split(params[0], ",") {
		actor, ok := s.m.Channels.Lookup(chanName)
		if !ok {
			c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchChannel, reg.Nick, chanName, "No such channel"))
			continue
		}
		actor.Part(reg.UID, reg.Nick, reason, time.Now().Unix())
		u.LeftChannel(chanName)
	}
}

func (s *Server) handleTopic(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, currentNick(conn), "TOPIC", "Not enough parameters"))
		return
	}
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	chanName := params[0]
	actor, ok := s.m.Channels.Lookup(chanName)
	if !ok {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchChannel, reg.Nick, chanName, "No such channel"))
		return
	}

	if len(params) == 1 {
		info := actor.Info()
		if info.Topic == "" {
			c.Reply(renderNumeric(s.serverName(), numerics.RplNoTopic, reg.Nick, chanName, "No topic is set"))
			return
		}
		c.Reply(renderNumeric(s.serverName(), numerics.RplTopic, reg.Nick, chanName, info.Topic))
		return
	}

	if err := actor.ChangeTopic(reg.UID, reg.Nick, params[1], time.Now().Unix()); err != nil {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrChanOPrivsNeeded, reg.Nick, chanName, "You're not channel operator"))
		return
	}
	// ChangeTopic's actor-side handler already broadcasts the TOPIC
	// line to every member, so nothing further is sent here.
}

func (s *Server) handlePrivmsg(c ctx) { s.relay(c, "PRIVMSG") }
func (s *Server) handleNotice(c ctx)  { s.relay(c, "NOTICE") }

// relay implements PRIVMSG/NOTICE delivery to either a channel or a
// nick, per spec section 4.2/4.3's message fan-out paths.
func (s *Server) relay(c ctx, command string) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoRecipient, currentNick(conn), "No recipient given ("+command+")"))
		return
	}
	if len(params) < 2 || params[1] == "" {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoTextToSend, currentNick(conn), "No text to send"))
		return
	}

	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	target := params[0]
	text := params[1]

	if svc, ok := s.lookupService(target); ok {
		u, ok := s.m.Users.ByUID(reg.UID)
		if !ok {
			return
		}
		s.dispatchService(svc, &regInfo{
			uid:     reg.UID,
			nick:    reg.Nick,
			account: u.Account(),
			isOper:  u.HasMode(user.ModeOperator),
		}, text)
		return
	}

	msg := wire.NewCommand(reg.Hostmask(), command, target).WithTrailingf("%s", text)

	if validChannelName(target) {
		actor, ok := s.m.Channels.Lookup(target)
		if !ok {
			c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchChannel, reg.Nick, target, "No such channel"))
			return
		}
		actor.Message(reg.UID, msg)
		if conn.Capable("echo-message") {
			conn.Deliver(msg)
		}
		return
	}

	recipient, ok := s.m.Users.Lookup(target)
	if !ok {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchNick, reg.Nick, target, "No such nick/channel"))
		return
	}
	recipient.Deliver(msg, "")
	if conn.Capable("echo-message") {
		conn.Deliver(msg)
	}
}

func (s *Server) handleWho(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	if len(params) < 1 {
		c.Reply(renderNumeric(s.serverName(), numerics.RplEndOfWho, reg.Nick, "*", "End of /WHO list"))
		return
	}
	target := params[0]
	actor, ok := s.m.Channels.Lookup(target)
	if !ok {
		c.Reply(renderNumeric(s.serverName(), numerics.RplEndOfWho, reg.Nick, target, "End of /WHO list"))
		return
	}
	for _, member := range actor.Members() {
		mu, ok := s.m.Users.ByUID(member.UID)
		if !ok {
			continue
		}
		c.Reply(renderNumeric(s.serverName(), numerics.RplWhoReply, reg.Nick, target, mu.Nick(), mu.Nick(), "H"+member.Prefix.Symbol()))
	}
	c.Reply(renderNumeric(s.serverName(), numerics.RplEndOfWho, reg.Nick, target, "End of /WHO list"))
}

func orEmpty(params []string, i int) string {
	if i >= len(params) {
		return ""
	}
	return params[i]
}

