/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/config"
	"github.com/sid3xyz/slircd-ng/internal/handler"
	"github.com/sid3xyz/slircd-ng/internal/matrix"
	"github.com/sid3xyz/slircd-ng/internal/wire"

	"github.com/sirupsen/logrus"
)

// ReadTimeout bounds how long a connection may sit without sending a
// full line before it is dropped as dead. The server sends no
// keepalive PING of its own before this deadline; it only answers the
// client's PINGs.
const ReadTimeout = 5 * time.Minute

// Server owns every configured listener socket and the shared command
// registry they dispatch into. Grounded on btnmasher-dircd/server.go's
// net.Listener-per-config-entry accept loop, adapted to hand each
// accepted net.Conn to a Conn/registry pair instead of the teacher's
// flat Connection type.
type Server struct {
	m        *matrix.Matrix
	log      *logrus.Entry
	registry *handler.Registry[*Conn, *wire.MessageRef]
	sockets  []net.Listener

	// startTLS is nil unless the document configures a [starttls] cert
	// /key pair, in which case the STARTTLS command becomes available
	// even on a plaintext listener.
	startTLS *tls.Config
}

// New builds a Server bound to m, with its command table fully
// populated (see handlers_prereg.go/handlers_postreg.go).
func New(m *matrix.Matrix, log *logrus.Entry) *Server {
	s := &Server{m: m, log: log}
	s.registry = newRegistry(s)

	if stls := m.Config.Get().StartTLS; stls.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(stls.CertFile, stls.KeyFile)
		if err != nil {
			log.WithError(err).Warn("starttls: loading configured cert failed, STARTTLS disabled")
		} else {
			s.startTLS = &tls.Config{
				Certificates: []tls.Certificate{cert},
				ClientAuth:   tls.RequestClientCert,
			}
		}
	}

	adapter := newServiceAdapter(s)
	m.Effects.Sender = adapter
	m.Effects.Accounts = adapter
	m.Effects.Enforcer = adapter
	m.Effects.Killer = adapter
	m.Effects.Channels = adapter
	m.Effects.Wallopper = adapter

	return s
}

// Listen opens every configured client/S2S listener and begins
// accepting connections on each, returning once every socket is bound
// (accept loops themselves run in background goroutines owned by the
// caller via Matrix.Go).
func (s *Server) Listen() error {
	for _, lc := range s.m.Config.Get().Listeners {
		ln, err := s.bind(lc)
		if err != nil {
			s.closeAll()
			return fmt.Errorf("listener: binding %s: %w", lc.Address, err)
		}
		s.sockets = append(s.sockets, ln)
		if lc.S2S {
			s.m.Go(func() { s.acceptS2SLoop(ln) })
		} else {
			s.m.Go(func() { s.acceptLoop(ln) })
		}
	}
	return nil
}

func (s *Server) bind(lc config.Listener) (net.Listener, error) {
	if !lc.TLS {
		return net.Listen("tcp", lc.Address)
	}
	cert, err := tls.LoadX509KeyPair(lc.CertFile, lc.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading TLS cert: %w", err)
	}
	return tls.Listen("tcp", lc.Address, &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequestClientCert,
	})
}

// Close stops accepting new connections on every bound socket.
func (s *Server) Close() { s.closeAll() }

func (s *Server) closeAll() {
	for _, ln := range s.sockets {
		ln.Close()
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		s.m.Go(func() { s.handleConn(raw) })
	}
}

// acceptS2SLoop is acceptLoop's counterpart for a `listener.s2s = true`
// socket: each accepted connection runs the TS6 handshake in
// handleS2SConn instead of the client registration state machine.
func (s *Server) acceptS2SLoop(ln net.Listener) {
	for {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		s.m.Go(func() { s.handleS2SConn(raw) })
	}
}

// handleConn runs for the lifetime of one accepted connection: gate
// checks, then the read loop that turns wire lines into Dispatch
// calls, until the socket closes or QUIT tears it down.
func (s *Server) handleConn(raw net.Conn) {
	ip := RemoteIP(raw)
	ipAddr := net.ParseIP(ip)

	if ipAddr != nil {
		if v := s.m.IPDenyList.Check(ipAddr); !v.Allowed {
			raw.Close()
			return
		}
		if v := s.m.Conns.Allow(ipAddr); !v.Allowed {
			raw.Close()
			s.m.Metrics.RecordRateLimitDenial("connection")
			return
		}
	}

	tlsConn, isTLS := raw.(*tls.Conn)
	if isTLS {
		tlsConn.SetDeadline(time.Now().Add(WriteTimeout))
		if err := tlsConn.Handshake(); err != nil {
			raw.Close()
			return
		}
		tlsConn.SetDeadline(time.Time{})
	}
	conn := NewConn(raw, ip, isTLS)
	if isTLS {
		conn.Unreg.CertFP = peerCertFingerprint(tlsConn)
	}
	go conn.writeLoop()
	defer conn.Close()

	s.m.Metrics.RecordSession("accepted")

	reader := bufio.NewReaderSize(raw, wire.MaxTaggedLength)
	for {
		raw.SetReadDeadline(time.Now().Add(ReadTimeout))
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if !s.dispatchLine(conn, line) {
			break
		}
		if cfg := conn.TakePendingTLSUpgrade(); cfg != nil {
			newReader, err := conn.UpgradeTLS(cfg)
			if err != nil {
				break
			}
			raw = conn.currentRaw()
			reader = newReader
		}
	}

	s.teardown(conn)
}

// dispatchLine parses one wire line and runs it through the registry,
// flushing queued replies. Returns false when the connection should be
// closed (a handler-triggered QUIT); a line that fails to parse gets
// a 421 reply and the connection stays open.
func (s *Server) dispatchLine(conn *Conn, line string) bool {
	ref, err := wire.Parse(line)
	if err != nil {
		conn.WriteLine(fmt.Sprintf(":%s 421 * :malformed message", s.serverName()))
		return true
	}

	ctx := &handler.Context[*Conn, *wire.MessageRef]{
		Session: conn,
		Msg:     ref,
		Phase:   phaseOf(conn),
	}

	command := strings.ToUpper(ref.Msg.Command)
	handler.Dispatch(s.registry, ctx, command, s.onUnknownCommand, s.onWrongPhase)

	for _, out := range ctx.Replies() {
		conn.WriteLine(out)
	}

	if ctx.Err() != nil {
		s.log.WithError(ctx.Err()).WithField("command", command).Debug("handler aborted")
	}

	return command != "QUIT"
}

func (s *Server) onUnknownCommand(ctx *handler.Context[*Conn, *wire.MessageRef]) {
	ctx.Reply(fmt.Sprintf(":%s 421 %s %s :Unknown command", s.serverName(), currentNick(ctx.Session), ctx.Msg.Msg.Command))
}

func (s *Server) onWrongPhase(ctx *handler.Context[*Conn, *wire.MessageRef]) {
	ctx.Reply(fmt.Sprintf(":%s 451 * :You have not registered", s.serverName()))
}

func (s *Server) serverName() string {
	return s.m.Config.Get().ServerName
}

// teardown removes a disconnecting session's identity from every
// index it was installed into. Pre-registration disconnects have
// nothing to unwind beyond the socket itself.
func (s *Server) teardown(conn *Conn) {
	conn.mu.Lock()
	reg := conn.Reg
	conn.mu.Unlock()
	if reg == nil {
		return
	}

	u, ok := s.m.Users.ByUID(reg.UID)
	if !ok {
		return
	}
	remaining := u.RemoveSession(reg.SessionId)
	if remaining > 0 {
		return
	}

	reason := conn.QuitReason("Client quit")
	for _, chanName := range u.Channels() {
		if actor, ok := s.m.Channels.Lookup(chanName); ok {
			actor.Quit(reg.UID, reg.Nick, reason)
		}
	}
	s.m.Users.Remove(u)
	s.m.Metrics.RecordSession("disconnected")
}

func phaseOf(conn *Conn) handler.Phase {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.Reg != nil {
		return handler.PhasePostReg
	}
	return handler.PhasePreReg
}

func currentNick(conn *Conn) string {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.Reg != nil {
		return conn.Reg.Nick
	}
	if conn.Unreg.Nick != "" {
		return conn.Unreg.Nick
	}
	return "*"
}
