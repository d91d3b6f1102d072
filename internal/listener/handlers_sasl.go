/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/sid3xyz/slircd-ng/internal/numerics"
	"github.com/sid3xyz/slircd-ng/internal/session"
)

// handleAuthenticate drives spec section 4.1.2's AUTHENTICATE
// sub-state machine against session.Unregistered.Sasl: PASS-style
// single-line exchanges for PLAIN/EXTERNAL, and the two-round
// client-first/client-final handshake for SCRAM-SHA-256. Each
// AUTHENTICATE payload is taken as one complete base64 chunk; a
// response split across the wire's 400-byte continuation lines is not
// reassembled.
func (s *Server) handleAuthenticate(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 1 || params[0] == "" {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrSaslFail, currentNick(conn), "SASL authentication failed"))
		return
	}

	conn.mu.Lock()
	unreg := conn.Unreg
	conn.mu.Unlock()
	if unreg == nil {
		// AUTHENTICATE after registration (reauthentication) is out of
		// scope for this pass.
		return
	}

	payload := params[0]

	if unreg.Sasl.State == session.SaslIdle {
		s.startSasl(c, conn, unreg, strings.ToUpper(payload))
		return
	}

	if payload == "*" {
		s.abortSasl(c, unreg)
		return
	}

	raw, err := decodeSaslPayload(payload)
	if err != nil {
		s.failSasl(c, unreg, "Invalid SASL response")
		return
	}

	switch unreg.Sasl.Mechanism {
	case session.MechPlain:
		s.continuePlain(c, conn, unreg, raw)
	case session.MechExternal:
		s.continueExternal(c, conn, unreg)
	case session.MechScramSha256:
		s.continueScram(c, conn, unreg, raw)
	default:
		s.failSasl(c, unreg, "Unsupported mechanism")
	}
}

func decodeSaslPayload(payload string) ([]byte, error) {
	if payload == "+" {
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(payload)
}

func (s *Server) startSasl(c ctx, conn *Conn, unreg *session.Unregistered, mechanism string) {
	switch session.Mechanism(mechanism) {
	case session.MechPlain, session.MechExternal, session.MechScramSha256:
		unreg.Sasl.Mechanism = session.Mechanism(mechanism)
		unreg.Sasl.State = session.SaslMechanismSelected
		c.Reply(renderCommand(s.serverName(), "AUTHENTICATE", "+"))
	default:
		c.Reply(renderNumeric(s.serverName(), numerics.RplSaslMechs, currentNick(conn), "PLAIN,EXTERNAL,SCRAM-SHA-256", "are available SASL mechanisms"))
		c.Reply(renderNumeric(s.serverName(), numerics.ErrSaslFail, currentNick(conn), "SASL authentication failed"))
	}
}

func (s *Server) continuePlain(c ctx, conn *Conn, unreg *session.Unregistered, raw []byte) {
	unreg.Sasl.State = session.SaslInProgress
	account, err := s.m.Sasl.VerifyPlain(context.Background(), raw)
	if err != nil {
		s.failSasl(c, unreg, "SASL authentication failed")
		return
	}
	s.succeedSasl(c, conn, unreg, account.Name)
}

func (s *Server) continueExternal(c ctx, conn *Conn, unreg *session.Unregistered) {
	unreg.Sasl.State = session.SaslInProgress
	authcid := unreg.Nick
	if authcid == "" {
		authcid = unreg.User
	}
	account, err := s.m.Sasl.VerifyExternal(context.Background(), authcid, unreg.CertFP)
	if err != nil {
		s.failSasl(c, unreg, "SASL authentication failed")
		return
	}
	s.succeedSasl(c, conn, unreg, account.Name)
}

func (s *Server) continueScram(c ctx, conn *Conn, unreg *session.Unregistered, raw []byte) {
	conn.mu.Lock()
	exchange := conn.scram
	conn.mu.Unlock()

	if exchange == nil {
		ex, serverFirst, err := s.m.Sasl.StartScram(context.Background(), string(raw))
		if err != nil {
			s.failSasl(c, unreg, "SASL authentication failed")
			return
		}
		conn.mu.Lock()
		conn.scram = ex
		conn.mu.Unlock()
		unreg.Sasl.State = session.SaslInProgress
		c.Reply(renderCommand(s.serverName(), "AUTHENTICATE", base64.StdEncoding.EncodeToString([]byte(serverFirst))))
		return
	}

	serverFinal, account, err := exchange.Finish(string(raw))
	conn.mu.Lock()
	conn.scram = nil
	conn.mu.Unlock()
	if err != nil {
		s.failSasl(c, unreg, "SASL authentication failed")
		return
	}
	c.Reply(renderCommand(s.serverName(), "AUTHENTICATE", base64.StdEncoding.EncodeToString([]byte(serverFinal))))
	s.succeedSasl(c, conn, unreg, account.Name)
}

func (s *Server) succeedSasl(c ctx, conn *Conn, unreg *session.Unregistered, account string) {
	unreg.Sasl.State = session.SaslSuccess
	unreg.Sasl.Account = account
	nick := unreg.Nick
	if nick == "" {
		nick = "*"
	}
	mask := nick + "!" + unreg.User + "@" + unreg.RemoteIP
	c.Reply(renderNumeric(s.serverName(), numerics.RplLoggedIn, nick, mask, account, "You are now logged in as "+account))
	c.Reply(renderNumeric(s.serverName(), numerics.RplSaslSuccess, nick, "SASL authentication successful"))
	s.tryRegister(c, conn)
}

func (s *Server) failSasl(c ctx, unreg *session.Unregistered, reason string) {
	// Reset to SaslIdle rather than leaving SaslFailed latched, so the
	// client can retry AUTHENTICATE without reconnecting.
	unreg.Sasl.State = session.SaslIdle
	unreg.Sasl.Mechanism = ""
	nick := unreg.Nick
	if nick == "" {
		nick = "*"
	}
	c.Reply(renderNumeric(s.serverName(), numerics.ErrSaslFail, nick, reason))
}

func (s *Server) abortSasl(c ctx, unreg *session.Unregistered) {
	nick := unreg.Nick
	if nick == "" {
		nick = "*"
	}
	unreg.Sasl.State = session.SaslIdle
	unreg.Sasl.Mechanism = ""
	c.Reply(renderNumeric(s.serverName(), numerics.ErrSaslAborted, nick, "SASL authentication aborted"))
}
