/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

// Package listener is the transport boundary: it owns the TCP/TLS
// accept loop, the per-connection write queue, and the read loop that
// turns wire lines into handler.Dispatch calls. Grounded on
// btnmasher-dircd/connection.go's per-conn goroutine-plus-send-queue
// shape, adapted to the typestated session.Unregistered/Registered
// split and the phase-tagged handler.Registry instead of the
// teacher's single Connection struct and flat command switch.
package listener

import (
	"bufio"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/idgen"
	"github.com/sid3xyz/slircd-ng/internal/sasl"
	"github.com/sid3xyz/slircd-ng/internal/session"
	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// SendQueueDepth bounds a connection's outbound buffer; when it is
// full the oldest queued line is dropped (spec section 5).
const SendQueueDepth = 256

// WriteTimeout bounds a single outbound write, so one stalled peer
// cannot block the writer goroutine indefinitely.
const WriteTimeout = 10 * time.Second

// Conn is one accepted TCP/TLS connection. It carries the session
// typestate (exactly one of Unreg/Reg is non-nil at any time) plus the
// bounded write queue a channel actor or user fan-out delivers into.
// Conn implements channel.Broadcaster, user.Sender and client.Sink --
// the three narrow delivery interfaces the rest of the core programs
// against -- without any of those packages needing to import net.
type Conn struct {
	raw  net.Conn
	out  chan string
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	Unreg *session.Unregistered
	Reg   *session.Registered
	caps  map[string]bool

	// scram holds the in-progress SCRAM-SHA-256 server exchange
	// between AUTHENTICATE's client-first and client-final lines; nil
	// outside of that window.
	scram *sasl.ScramExchange

	// quitReason overrides the default "Client quit" reason teardown
	// broadcasts to the departed user's channels, set by a forced KILL
	// before the session is closed.
	quitReason string

	// pendingTLS is set by handleStartTLS once its plaintext reply has
	// gone out, and consumed by the read loop in server.go right after
	// dispatching that line -- the read loop owns the reader the
	// upgrade needs to replace, so the handler can only request it.
	pendingTLS *tls.Config
}

// RequestTLSUpgrade records cfg as the pending STARTTLS upgrade for the
// next read-loop iteration to perform.
func (c *Conn) RequestTLSUpgrade(cfg *tls.Config) {
	c.mu.Lock()
	c.pendingTLS = cfg
	c.mu.Unlock()
}

// TakePendingTLSUpgrade returns and clears any pending STARTTLS
// request, or nil if none is outstanding.
func (c *Conn) TakePendingTLSUpgrade() *tls.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg := c.pendingTLS
	c.pendingTLS = nil
	return cfg
}

// SendImmediate writes line directly to the current raw socket,
// bypassing the async output queue. STARTTLS's reply must reach the
// client before the TLS handshake begins, so it cannot go through the
// same queue a concurrent UpgradeTLS might race against.
func (c *Conn) SendImmediate(line string) error {
	raw := c.currentRaw()
	raw.SetWriteDeadline(time.Now().Add(WriteTimeout))
	_, err := raw.Write([]byte(line + "\r\n"))
	return err
}

// NewConn wraps an accepted connection in its initial pre-registration
// state.
func NewConn(raw net.Conn, remoteIP string, tls bool) *Conn {
	id := idgen.NewSessionId()
	return &Conn{
		raw:   raw,
		out:   make(chan string, SendQueueDepth),
		done:  make(chan struct{}),
		Unreg: session.NewUnregistered(id, remoteIP, tls),
		caps:  make(map[string]bool),
	}
}

// UID returns the registered UID, or "" pre-registration.
func (c *Conn) UID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Reg != nil {
		return c.Reg.UID
	}
	return ""
}

// SessionId returns the connection's stable per-socket identifier,
// used as the bouncer device key and channel actor sender key.
func (c *Conn) SessionId() idgen.SessionId {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Reg != nil {
		return c.Reg.SessionId
	}
	return c.Unreg.SessionId
}

// RequestCap marks capability as negotiated for this session, called
// once CAP REQ/ACK completes for it.
func (c *Conn) RequestCap(capability string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caps[capability] = true
}

// Capable reports whether this session has negotiated capability.
func (c *Conn) Capable(capability string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps[capability]
}

// Deliver renders msg and enqueues it for the writer goroutine,
// applying drop-oldest backpressure rather than blocking the sender
// (spec section 5). A message that fails to render (over the wire
// line budget) is dropped rather than sent truncated.
func (c *Conn) Deliver(msg *wire.MessageRef) {
	line, err := msg.Render()
	if err != nil {
		return
	}
	c.WriteLine(strings.TrimSuffix(line, "\r\n"))
}

// WriteLine enqueues a pre-rendered line (no trailing CRLF), as
// produced by the handler registry's middleware chain.
func (c *Conn) WriteLine(line string) {
	select {
	case c.out <- line:
	default:
		select {
		case <-c.out:
		default:
		}
		select {
		case c.out <- line:
		default:
		}
	}
}

// writeLoop drains the outbound queue until Close is called or a write
// fails, appending the wire CRLF terminator to each queued line. It
// re-reads c.raw under lock on every line rather than capturing a
// single bufio.Writer at startup, so a STARTTLS upgrade that swaps in a
// *tls.Conn mid-connection (see UpgradeTLS) takes effect on the very
// next queued write instead of leaving this loop writing to the
// stale pre-upgrade socket.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case line := <-c.out:
			raw := c.currentRaw()
			raw.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if _, err := raw.Write([]byte(line + "\r\n")); err != nil {
				c.Close()
				return
			}
		}
	}
}

// currentRaw returns the connection's live socket, reflecting any
// UpgradeTLS swap.
func (c *Conn) currentRaw() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw
}

// UpgradeTLS performs a server-side TLS handshake on the connection's
// current raw socket and installs the resulting *tls.Conn as the new
// raw socket, for STARTTLS (spec section 4.1). The caller's read loop
// must discard its buffered plaintext reader and switch to the
// returned one -- IRCv3's STARTTLS requires the client send nothing
// further until the handshake completes, so nothing of the old
// reader's buffer needs preserving.
func (c *Conn) UpgradeTLS(cfg *tls.Config) (*bufio.Reader, error) {
	raw := c.currentRaw()

	tlsConn := tls.Server(raw, cfg)
	tlsConn.SetDeadline(time.Now().Add(WriteTimeout))
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	tlsConn.SetDeadline(time.Time{})

	c.mu.Lock()
	c.raw = tlsConn
	c.Unreg.TLS = true
	c.Unreg.CertFP = peerCertFingerprint(tlsConn)
	c.mu.Unlock()

	return bufio.NewReaderSize(tlsConn, wire.MaxTaggedLength), nil
}

// SetQuitReason records the reason a forced disconnect should report
// to the rest of the network, read back by the server's teardown path
// once the read loop exits.
func (c *Conn) SetQuitReason(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quitReason = reason
}

// QuitReason returns the recorded quit reason, or def if none was set.
func (c *Conn) QuitReason(def string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quitReason == "" {
		return def
	}
	return c.quitReason
}

// Close shuts down the connection exactly once, unblocking both the
// read loop (via the underlying socket closing) and the write loop.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		c.currentRaw().Close()
	})
}

// peerCertFingerprint returns the hex SHA-256 digest of the client's
// leaf certificate, for SASL EXTERNAL (spec section 6.5), or "" if the
// client presented none.
func peerCertFingerprint(conn *tls.Conn) string {
	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return ""
	}
	sum := sha256.Sum256(state.PeerCertificates[0].Raw)
	return hex.EncodeToString(sum[:])
}

// RemoteIP returns the dotted-form remote address, stripped of port.
func RemoteIP(raw net.Conn) string {
	host, _, err := net.SplitHostPort(raw.RemoteAddr().String())
	if err != nil {
		return strings.TrimSpace(raw.RemoteAddr().String())
	}
	return host
}
