/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"crypto/subtle"

	"github.com/sid3xyz/slircd-ng/internal/numerics"
)

// handleWebirc lets a trusted gateway (a web client or ident-relaying
// bouncer front-end) assert a connecting client's real hostname/IP in
// place of the gateway's own, per spec section 4.1's WEBIRC entry.
// Wire format: "WEBIRC <password> <gateway> <hostname> <ip>". Password
// comparison is constant-time, matching the discipline the S2S PASS
// handshake already uses for the same reason -- a gateway secret is
// exactly as sensitive as a link password.
func (s *Server) handleWebirc(c ctx) {
	conn := c.Session
	params := c.Msg.Msg.Params
	if len(params) < 4 {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrNeedMoreParams, currentNick(conn), "WEBIRC", "Not enough parameters"))
		return
	}

	conn.mu.Lock()
	unreg := conn.Unreg
	conn.mu.Unlock()
	if unreg == nil {
		// Only meaningful before registration completes; a client that
		// is already registered has nothing left to reassert.
		return
	}

	password, gateway, hostname, ip := params[0], params[1], params[2], params[3]

	var matched bool
	for _, block := range s.m.Config.Get().WebIRC {
		if block.Gateway != gateway {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(password), []byte(block.Password)) == 1 {
			matched = true
			break
		}
	}
	if !matched {
		return
	}

	conn.mu.Lock()
	unreg.WebIRCHost = hostname
	unreg.RemoteIP = ip
	conn.mu.Unlock()
}
