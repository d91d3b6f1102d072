/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import "github.com/sid3xyz/slircd-ng/internal/numerics"

// handleStartTLS implements the IRCv3 STARTTLS extension: a plaintext
// connection asks to upgrade in place rather than reconnecting to a
// dedicated TLS listener port, per spec section 4.1's STARTTLS entry.
// The 670 reply must reach the client before the handshake begins, so
// it's written directly via SendImmediate instead of through the
// normal Reply/queue path; the actual handshake then runs on the next
// read-loop iteration in server.go, which owns the buffered reader
// UpgradeTLS's result replaces.
func (s *Server) handleStartTLS(c ctx) {
	conn := c.Session

	conn.mu.Lock()
	unreg := conn.Unreg
	alreadyTLS := unreg != nil && unreg.TLS
	conn.mu.Unlock()

	if unreg == nil {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrStartTLS, currentNick(conn), "STARTTLS is only available before registration"))
		return
	}
	if alreadyTLS {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrStartTLS, currentNick(conn), "Already using TLS"))
		return
	}
	if s.startTLS == nil {
		c.Reply(renderNumeric(s.serverName(), numerics.ErrStartTLS, currentNick(conn), "STARTTLS is not available"))
		return
	}

	line := renderNumeric(s.serverName(), numerics.RplStartTLS, currentNick(conn), "STARTTLS successful, proceed with TLS handshake")
	if err := conn.SendImmediate(line); err != nil {
		return
	}
	conn.RequestTLSUpgrade(s.startTLS)
}
