/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"strconv"
	"strings"

	"github.com/sid3xyz/slircd-ng/internal/channel"
	"github.com/sid3xyz/slircd-ng/internal/numerics"
	"github.com/sid3xyz/slircd-ng/internal/user"
)

// handleWhois answers WHOIS for one or more comma-separated nicks,
// per spec section 4.1's numerics 311-319/330. Only the local-server
// case is implemented -- a <server> mask in params[0] addressed at a
// remote peer would need S2S query routing this pass doesn't build.
func (s *Server) handleWhois(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()

	if len(params) < 1 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchNick, reg.Nick, "*", "No such nick/channel"))
		return
	}

	targets := params[0]
	if len(params) > 1 {
		targets = params[1]
	}

	for _, nick := range strings.Split(targets, ",") {
		nick = strings.TrimSpace(nick)
		if nick == "" {
			continue
		}
		target, ok := s.m.Users.Lookup(nick)
		if !ok {
			c.Reply(renderNumeric(s.serverName(), numerics.ErrNoSuchNick, reg.Nick, nick, "No such nick/channel"))
			continue
		}
		s.whoisOne(c, reg.Nick, target)
	}
	c.Reply(renderNumeric(s.serverName(), numerics.RplEndOfWhois, reg.Nick, targets, "End of /WHOIS list"))
}

func (s *Server) whoisOne(c ctx, askingNick string, target *user.User) {
	c.Reply(renderNumeric(s.serverName(), numerics.RplWhoisUser,
		askingNick, target.Nick(), target.UserName(), target.DisplayHost(), "*", target.Realname()))

	c.Reply(renderNumeric(s.serverName(), numerics.RplWhoisServer,
		askingNick, target.Nick(), s.serverName(), s.m.Config.Get().Description))

	if target.HasMode(user.ModeOperator) {
		c.Reply(renderNumeric(s.serverName(), numerics.RplWhoisOperator,
			askingNick, target.Nick(), "is an IRC operator"))
	}

	if account := target.Account(); account != "" {
		c.Reply(renderNumeric(s.serverName(), numerics.RplWhoisAccount,
			askingNick, target.Nick(), account, "is logged in as"))
	}

	if names := s.whoisChannels(target, askingNick); names != "" {
		c.Reply(renderNumeric(s.serverName(), numerics.RplWhoisChannels,
			askingNick, target.Nick(), names))
	}

	c.Reply(renderNumeric(s.serverName(), numerics.RplWhoisIdle,
		askingNick, target.Nick(), strconv.FormatInt(target.IdleSeconds(), 10),
		strconv.FormatInt(target.SignonTS(), 10), "seconds idle, signon time"))
}

// whoisChannels renders target's channel membership the way RplWhois-
// Channels expects (prefix symbol + name, space separated), omitting
// +s channels the asking user isn't a member of.
func (s *Server) whoisChannels(target *user.User, askingNick string) string {
	asker, _ := s.m.Users.Lookup(askingNick)
	names := make([]string, 0, 4)
	for _, chanName := range target.Channels() {
		actor, ok := s.m.Channels.Lookup(chanName)
		if !ok {
			continue
		}
		info := actor.Info()
		if info.Modes&channel.ModeSecret != 0 && !isMember(actor, asker) {
			continue
		}
		for _, m := range actor.Members() {
			if m.UID == target.UID() {
				names = append(names, m.Prefix.Symbol()+chanName)
				break
			}
		}
	}
	return strings.Join(names, " ")
}

func isMember(actor *channel.Actor, u *user.User) bool {
	if u == nil {
		return false
	}
	for _, m := range actor.Members() {
		if m.UID == u.UID() {
			return true
		}
	}
	return false
}
