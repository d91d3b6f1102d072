/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"strings"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/handler"
	"github.com/sid3xyz/slircd-ng/internal/numerics"
	"github.com/sid3xyz/slircd-ng/internal/session"
	"github.com/sid3xyz/slircd-ng/internal/user"
	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// SupportedCaps is the set of IRCv3 capability tokens this server
// advertises in CAP LS, per spec section 4.1.1.
var SupportedCaps = []string{
	"server-time",
	"message-tags",
	"batch",
	"labeled-response",
	"echo-message",
	"multi-prefix",
	"away-notify",
	"account-notify",
	"account-tag",
	"sasl",
	"chghost",
	"extended-join",
}

type ctx = *handler.Context[*Conn, *wire.MessageRef]

func newRegistry(s *Server) *handler.Registry[*Conn, *wire.MessageRef] {
	r := handler.New[*Conn, *wire.MessageRef]()

	r.Handle("PASS", handler.PhasePreReg, s.handlePass)
	r.Handle("CAP", handler.PhasePreReg, s.handleCap)
	r.Handle("WEBIRC", handler.PhasePreReg, s.handleWebirc)
	r.Handle("STARTTLS", handler.PhasePreReg, s.handleStartTLS)
	r.Handle("AUTHENTICATE", handler.PhasePreReg, s.handleAuthenticate)
	r.Handle("NICK", handler.PhaseUniversal, s.handleNick)
	r.Handle("USER", handler.PhasePreReg, s.handleUser)
	r.Handle("PING", handler.PhaseUniversal, s.handlePing)
	r.Handle("PONG", handler.PhaseUniversal, func(c ctx) {})
	r.Handle("QUIT", handler.PhaseUniversal, s.handleQuit)

	r.Handle("JOIN", handler.PhasePostReg, s.handleJoin)
	r.Handle("PART", handler.PhasePostReg, s.handlePart)
	r.Handle("PRIVMSG", handler.PhasePostReg, s.handlePrivmsg)
	r.Handle("NOTICE", handler.PhasePostReg, s.handleNotice)
	r.Handle("TOPIC", handler.PhasePostReg, s.handleTopic)
	r.Handle("WHO", handler.PhasePostReg, s.handleWho)
	r.Handle("WHOIS", handler.PhasePostReg, s.handleWhois)
	r.Handle("MODE", handler.PhasePostReg, s.handleMode)
	r.Handle("KICK", handler.PhasePostReg, s.handleKick)
	r.Handle("INVITE", handler.PhasePostReg, s.handleInvite)

	return r
}

func (s *Server) handlePass(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, "*", "PASS", "Not enough parameters"))
		return
	}
	conn.Unreg.Password = params[0]
}

func (s *Server) handleCap(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 {
		return
	}
	sub := strings.ToUpper(params[0])
	nick := currentNick(conn)

	conn.mu.Lock()
	unreg := conn.Unreg
	conn.mu.Unlock()
	if unreg == nil {
		// CAP after registration (cap-notify re-negotiation) is out of
		// scope for this pass; only pre-registration negotiation gates
		// the handshake.
		return
	}

	switch sub {
	case "LS":
		unreg.Cap.LSSent = true
		if len(params) > 1 && params[1] == "302" {
			unreg.Cap.Version302 = true
		}
		c.Reply(renderCommand(s.serverName(), "CAP", nick, "LS", strings.Join(SupportedCaps, " ")))
	case "LIST":
		granted := make([]string, 0, len(unreg.Cap.Requested))
		for capab := range unreg.Cap.Requested {
			granted = append(granted, capab)
		}
		c.Reply(renderCommand(s.serverName(), "CAP", nick, "LIST", strings.Join(granted, " ")))
	case "REQ":
		if len(params) < 2 {
			return
		}
		tokens := strings.Fields(params[1])
		ok := true
		for _, t := range tokens {
			if !supportsCap(t) {
				ok = false
				break
			}
		}
		if !ok {
			c.Reply(renderCommand(s.serverName(), "CAP", nick, "NAK", params[1]))
			return
		}
		unreg.Cap.ReqPending = true
		for _, t := range tokens {
			unreg.Cap.Requested[t] = true
			conn.RequestCap(t)
		}
		c.Reply(renderCommand(s.serverName(), "CAP", nick, "ACK", params[1]))
	case "END":
		unreg.Cap.Ended = true
		s.tryRegister(c, conn)
	}
}

func supportsCap(token string) bool {
	for _, c := range SupportedCaps {
		if c == token {
			return true
		}
	}
	return false
}

func (s *Server) handleNick(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 || params[0] == "" {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNoNicknameGiven, currentNick(conn), "No nickname given"))
		return
	}
	nick := params[0]
	if !validNick(nick, s.m.Config.Get().Limits.MaxNickLength) {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrErroneousNick, currentNick(conn), nick, "Erroneous nickname"))
		return
	}

	conn.mu.Lock()
	reg := conn.Reg
	unreg := conn.Unreg
	conn.mu.Unlock()

	if reg != nil {
		s.changeNick(c, conn, reg, nick)
		return
	}

	if unreg.Nick != "" {
		s.m.Users.ReleaseNick(unreg.Nick)
	}
	if !s.m.Users.ClaimNick(nick, unreg.SessionId.String()) {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNicknameInUse, "*", nick, "Nickname is already in use"))
		return
	}
	unreg.Nick = nick
	s.tryRegister(c, conn)
}

func (s *Server) changeNick(c ctx, conn *Conn, reg *session.Registered, nick string) {
	oldNick := reg.Nick
	if user.CaseFold(oldNick) == user.CaseFold(nick) {
		conn.mu.Lock()
		reg.Nick = nick
		conn.mu.Unlock()
		return
	}
	if !s.m.Users.RenameNick(oldNick, nick, reg.UID) {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNicknameInUse, oldNick, nick, "Nickname is already in use"))
		return
	}
	u, ok := s.m.Users.ByUID(reg.UID)
	if !ok {
		return
	}
	oldHostmask := reg.Hostmask()
	u.SetNick(nick)
	conn.mu.Lock()
	reg.Nick = nick
	conn.mu.Unlock()

	nickMsg := wire.NewCommand(oldHostmask, "NICK", nick)
	for _, name := range u.Channels() {
		if actor, ok := s.m.Channels.Lookup(name); ok {
			actor.ChangeNick(reg.UID, nick)
			actor.Broadcast(nickMsg, "")
		}
	}
	c.Reply(renderCommand(oldHostmask, "NICK", nick))
}

func (s *Server) handleUser(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 4 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, currentNick(conn), "USER", "Not enough parameters"))
		return
	}

	conn.mu.Lock()
	unreg := conn.Unreg
	conn.mu.Unlock()
	if unreg == nil {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrAlreadyReg, currentNick(conn), "You may not reregister"))
		return
	}

	unreg.User = params[0]
	unreg.Realname = params[3]
	s.tryRegister(c, conn)
}

func (s *Server) handlePing(c ctx) {
	params := c.Msg.Msg.Params
	token := "slircd-ng"
	if len(params) > 0 {
		token = params[0]
	}
	c.Reply(renderCommand(s.serverName(), "PONG", s.serverName(), token))
}

func (s *Server) handleQuit(c ctx) {
	conn := c.Session
	reason := "Client quit"
	if len(c.Msg.Msg.Params) > 0 && c.Msg.Msg.Params[0] != "" {
		reason = c.Msg.Msg.Params[0]
	}
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()
	if reg == nil {
		return
	}
	c.Reply(renderCommand(s.serverName(), "ERROR", "Closing Link: "+reg.Nick+" ("+reason+")"))
}

// tryRegister completes registration once every gate in
// session.Unregistered.ReadyToRegister is satisfied, allocating a UID,
// installing the User into the manager, and sending the welcome burst.
func (s *Server) tryRegister(c ctx, conn *Conn) {
	conn.mu.Lock()
	unreg := conn.Unreg
	conn.mu.Unlock()
	if unreg == nil || !unreg.ReadyToRegister() {
		return
	}

	host := unreg.WebIRCHost
	if host == "" {
		host = unreg.RemoteIP
	}

	userAtHost := unreg.User + "@" + host
	if v := s.m.BanCache.Check(userAtHost); !v.Allowed {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrYoureBannedCreep, unreg.Nick, "You are banned: "+v.Reason))
		return
	}

	uid, err := s.m.UIDs.Next(func(candidate string) bool {
		_, live := s.m.Users.ByUID(candidate)
		return live
	})
	if err != nil {
		c.Reply(renderCommand(s.serverName(), "ERROR", "Closing Link: server identifier space exhausted"))
		return
	}

	signonTS := time.Now().Unix()
	reg := session.Register(unreg, uid, host, "", signonTS)

	conn.mu.Lock()
	conn.Reg = reg
	conn.Unreg = nil
	conn.mu.Unlock()

	s.m.Users.ReleaseNick(reg.Nick)
	s.m.Users.ClaimNick(reg.Nick, uid)

	u := user.New(uid, reg.Nick, reg.User, reg.Host, reg.CloakedHost, reg.Realname, signonTS)
	if reg.Account != "" {
		u.SetAccount(reg.Account)
	}
	u.AddSession(reg.SessionId, conn)
	s.m.Users.Add(u)
	s.m.Metrics.RecordSession("registered")

	sendWelcomeBurst(c, s, reg)
}

func sendWelcomeBurst(c ctx, s *Server, reg *session.Registered) {
	name := s.serverName()
	cfg := s.m.Config.Get()
	c.Reply(renderNumeric(name, numerics.RplWelcome, reg.Nick, "Welcome to "+cfg.NetworkName+", "+reg.Hostmask()))
	c.Reply(renderNumeric(name, numerics.RplYourHost, reg.Nick, "Your host is "+name+", running slircd-ng"))
	c.Reply(renderNumeric(name, numerics.RplCreated, reg.Nick, "This server was started some time ago"))
	c.Reply(renderNumeric(name, numerics.RplMyInfo, reg.Nick, name, "slircd-ng"))
	c.Reply(renderNumeric(name, numerics.RplMotdStart, reg.Nick, "- "+name+" Message of the Day -"))
	c.Reply(renderNumeric(name, numerics.RplEndOfMotd, reg.Nick, "End of /MOTD command"))
}

func validNick(nick string, maxLen int) bool {
	if nick == "" || len(nick) > maxLen {
		return false
	}
	first := nick[0]
	if !isLetter(first) && !isSpecial(first) {
		return false
	}
	for i := 1; i < len(nick); i++ {
		c := nick[i]
		if !isLetter(c) && !isDigit(c) && !isSpecial(c) && c != '-' {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isSpecial(c byte) bool {
	switch c {
	case '[', ']', '\\', '`', '_', '^', '{', '|', '}':
		return true
	}
	return false
}
