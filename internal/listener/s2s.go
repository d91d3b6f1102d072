/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package listener

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/channel"
	"github.com/sid3xyz/slircd-ng/internal/config"
	"github.com/sid3xyz/slircd-ng/internal/s2s"
	"github.com/sid3xyz/slircd-ng/internal/wire"
)

// s2sCapabs are the CAPAB tokens this server advertises on a new link,
// per spec section 6.2. QS/ENCAP/EX/IE are accepted defensively on the
// peer side even though this implementation's SJOIN/TMODE/TB handling
// doesn't yet branch on most of them.
var s2sCapabs = []string{"QS", "ENCAP", "EX", "IE", "HOPS", "CHW"}

// s2sPeer is the listener's concrete s2s.Peer: a locked writer over one
// accepted link socket, registered in Matrix.Peers once its handshake
// completes.
type s2sPeer struct {
	sid  string
	name string

	mu  sync.Mutex
	raw net.Conn
}

func (p *s2sPeer) SID() string { return p.sid }

func (p *s2sPeer) Send(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.raw.SetWriteDeadline(time.Now().Add(WriteTimeout))
	fmt.Fprintf(p.raw, "%s\r\n", line)
}

// handleS2SConn runs for the lifetime of one accepted inbound server
// link: the PASS/CAPAB/SERVER/SVINFO handshake from spec section
// 4.6.2, then a read loop applying SJOIN/TMODE/TB and forwarding
// everything else with split-horizon propagation, until the socket
// drops (at which point the link's SID is unlinked and its channel
// members are netsplit out).
func (s *Server) handleS2SConn(raw net.Conn) {
	defer raw.Close()

	reader := bufio.NewReaderSize(raw, wire.MaxTaggedLength)
	raw.SetReadDeadline(time.Now().Add(s2s.HandshakeTimeout))

	passLine, err := reader.ReadString('\n')
	if err != nil {
		return
	}
	passFields := strings.Fields(strings.TrimRight(passLine, "\r\n"))
	if len(passFields) < 5 || !strings.EqualFold(passFields[0], "PASS") {
		return
	}
	sid := passFields[4]
	link, ok := s.findLink(sid)
	if !ok {
		return
	}
	tsVersion, err := strconv.Atoi(passFields[3])
	if err != nil {
		return
	}

	hs := s2s.NewHandshake(link.Password, time.Now())
	if err := hs.OnPass(passFields[1], tsVersion, sid); err != nil {
		s.log.WithError(err).Warn("s2s: handshake rejected")
		return
	}

	cfg := s.m.Config.Get()
	for _, line := range s2s.OutboundGreeting(link.Password, cfg.SID, cfg.ServerName, 1, cfg.Description, s2sCapabs) {
		fmt.Fprintf(raw, "%s\r\n", line)
	}

	for hs.State() != s2s.Complete {
		if hs.Expired(time.Now()) {
			return
		}
		raw.SetReadDeadline(time.Now().Add(s2s.HandshakeTimeout))
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		msg, err := wire.Parse(strings.TrimRight(line, "\r\n"))
		if err != nil {
			return
		}
		switch strings.ToUpper(msg.Msg.Command) {
		case "CAPAB":
			if err := hs.OnCapab(strings.Fields(lastParam(msg))); err != nil {
				return
			}
		case "SERVER":
			if len(msg.Msg.Params) < 2 {
				return
			}
			hop, _ := strconv.Atoi(msg.Msg.Params[1])
			if err := hs.OnServer(msg.Msg.Params[0], hop, lastParam(msg)); err != nil {
				return
			}
			fmt.Fprintf(raw, "%s\r\n", s2s.SvinfoLine(time.Now()))
		case "SVINFO":
			if len(msg.Msg.Params) < 3 {
				return
			}
			maxTS, _ := strconv.Atoi(msg.Msg.Params[0])
			minTS, _ := strconv.Atoi(msg.Msg.Params[1])
			flags, _ := strconv.Atoi(msg.Msg.Params[2])
			remoteTime, _ := strconv.ParseInt(lastParam(msg), 10, 64)
			if err := hs.OnSvinfo(maxTS, minTS, flags, remoteTime); err != nil {
				return
			}
		default:
			return
		}
	}

	info := hs.Peer()
	if err := s.m.Topology.Link(s2s.ServerEntry{
		SID: info.SID, Name: info.Name, Description: info.Description,
		HopCount: 1, UpstreamSID: cfg.SID,
	}); err != nil {
		s.log.WithError(err).Warn("s2s: topology link rejected")
		return
	}

	peer := &s2sPeer{sid: info.SID, name: info.Name, raw: raw}
	s.m.Peers.Add(peer)
	s.log.WithField("peer", info.Name).Info("s2s: link established")
	defer func() {
		s.m.Peers.Remove(peer.sid, peer)
		s.netsplitPeer(peer.sid, info.Name)
	}()

	for {
		raw.SetReadDeadline(time.Now().Add(s2s.HandshakeTimeout * 3))
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			continue
		}
		s.handleS2SLine(peer, trimmed)
	}
}

func lastParam(msg *wire.MessageRef) string {
	if len(msg.Msg.Params) == 0 {
		return ""
	}
	return msg.Msg.Params[len(msg.Msg.Params)-1]
}

func (s *Server) findLink(sid string) (config.LinkBlock, bool) {
	for _, l := range s.m.Config.Get().Links {
		if l.SID == sid {
			return l, true
		}
	}
	return config.LinkBlock{}, false
}

// handleS2SLine applies one post-handshake line from peer: SJOIN/TMODE
// /TB are interpreted locally against internal/channel; SQUIT drops
// the link; anything else is forwarded to every other peer per
// split-horizon (spec section 4.6.4), covering UID/NICK/KILL/QUIT/
// PRIVMSG and the rest of the TS6 command set this pass doesn't need
// to interpret to route correctly.
func (s *Server) handleS2SLine(peer *s2sPeer, line string) {
	msg, err := wire.Parse(line)
	if err != nil {
		return
	}
	switch strings.ToUpper(msg.Msg.Command) {
	case "SJOIN":
		s.applySjoin(msg)
	case "TMODE":
		s.applyTmode(msg)
	case "TB":
		s.applyTopicBurst(msg)
	case "SQUIT":
		peer.raw.Close()
		return
	case "PING":
		peer.Send(fmt.Sprintf("PONG %s :%s", s.serverName(), lastParam(msg)))
	default:
		s.m.Propagator.Broadcast(line, peer.sid)
	}
}

// applySjoin merges a remote channel burst (membership + topic-locked
// creation timestamp) per spec section 4.6.3/4.6.6, then applies the
// burst's mode string as a forced batch -- MergeBurst's CRDT merge
// covers membership/topic/lists but not the group-D mode bitmask, so
// that piece is layered on afterward via the same Force path ChanServ
// uses.
func (s *Server) applySjoin(msg *wire.MessageRef) {
	if len(msg.Msg.Params) < 4 {
		return
	}
	ts, err := strconv.ParseInt(msg.Msg.Params[0], 10, 64)
	if err != nil {
		return
	}
	chanName := msg.Msg.Params[1]
	modes := msg.Msg.Params[2]
	actor := s.m.Channels.GetOrCreate(chanName, s.serverName(), ts)

	state := &channel.BurstState{
		Name:      chanName,
		CreatedTS: ts,
		Members:   make(map[string]channel.PrefixMode),
		MemberTS:  make(map[string]int64),
	}
	for _, tok := range strings.Fields(lastParam(msg)) {
		prefix, uid := splitSjoinToken(tok)
		if uid == "" {
			continue
		}
		state.Members[uid] = prefix
		state.MemberTS[uid] = ts
	}
	actor.MergeBurst(state)

	if ops := parseModeOps(modes, nil); len(ops) > 0 {
		actor.ServiceChangeModes(ops, ts)
	}
}

// splitSjoinToken peels the leading status-prefix symbols off one
// SJOIN member token (e.g. "@+9PAAAAAAC") per the same symbol table
// channel.PrefixMode.Symbol renders, returning the accumulated prefix
// bits and the bare UID.
func splitSjoinToken(tok string) (channel.PrefixMode, string) {
	prefix := channel.PrefixMode(0)
	i := 0
	for i < len(tok) {
		switch tok[i] {
		case '~':
			prefix |= channel.PrefixOwner
		case '&':
			prefix |= channel.PrefixAdmin
		case '@':
			prefix |= channel.PrefixOp
		case '%':
			prefix |= channel.PrefixHalfOp
		case '+':
			prefix |= channel.PrefixVoice
		default:
			return prefix, tok[i:]
		}
		i++
	}
	return prefix, ""
}

// applyTmode applies a remote channel mode change, Force-bypassing the
// membership check the way a ChanServ effect does: the acting
// authority here is the upstream server itself, not a local member.
func (s *Server) applyTmode(msg *wire.MessageRef) {
	if len(msg.Msg.Params) < 3 {
		return
	}
	ts, err := strconv.ParseInt(msg.Msg.Params[0], 10, 64)
	if err != nil {
		return
	}
	chanName := msg.Msg.Params[1]
	modes := msg.Msg.Params[2]
	actor, ok := s.m.Channels.Lookup(chanName)
	if !ok {
		return
	}
	if ops := parseModeOps(modes, msg.Msg.Params[3:]); len(ops) > 0 {
		actor.ServiceChangeModes(ops, ts)
	}
}

// applyTopicBurst merges a remote TOPIC burst line ("TB <chan> <ts>
// [<setter>] :<topic>") via the same LWW register MergeBurst already
// folds in for the voluntary-TOPIC path, so a stale remote topic can
// never clobber a newer local one.
func (s *Server) applyTopicBurst(msg *wire.MessageRef) {
	if len(msg.Msg.Params) < 2 {
		return
	}
	chanName := msg.Msg.Params[0]
	ts, err := strconv.ParseInt(msg.Msg.Params[1], 10, 64)
	if err != nil {
		return
	}
	actor, ok := s.m.Channels.Lookup(chanName)
	if !ok {
		return
	}
	setter := s.serverName()
	if len(msg.Msg.Params) >= 4 {
		setter = msg.Msg.Params[2]
	}
	actor.MergeBurst(&channel.BurstState{
		Topic: channel.LWWRegister{Value: lastParam(msg), TS: ts, SID: setter},
	})
}

// netsplitPeer tears down every local record of a lost peer link: its
// topology entry, and every remote member it introduced into a local
// channel, per spec section 4.6.5's mass-QUIT netsplit behavior. This
// implementation has no live user.User for remote identities (only
// their channel-membership footprint), so the "mass-QUIT" here is the
// channel-level equivalent: RemoveSplitMembers, which still broadcasts
// a QUIT line to local members for each lost UID.
func (s *Server) netsplitPeer(sid, peerName string) {
	lost := s.m.Topology.Unlink(sid)
	lost = append(lost, sid)
	reason := s2s.SplitReason(s.serverName(), peerName)
	for _, chanName := range s.m.Channels.Names() {
		actor, ok := s.m.Channels.Lookup(chanName)
		if !ok {
			continue
		}
		var uids []string
		for _, m := range actor.Members() {
			for _, lostSID := range lost {
				if strings.HasPrefix(m.UID, lostSID) {
					uids = append(uids, m.UID)
					break
				}
			}
		}
		if len(uids) > 0 {
			actor.RemoveSplitMembers(uids, reason)
		}
	}
}
