/*
   Copyright (c) 2020, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/
package channel

import "github.com/sid3xyz/slircd-ng/internal/wire"

// PrefixMode is the bitmask of per-member status prefixes, generalizing
// btnmasher-dircd/channel.go's four separate Ops/HalfOps/Voiced maps
// into one field per member.
type PrefixMode uint8

const (
	PrefixVoice PrefixMode = 1 << iota
	PrefixHalfOp
	PrefixOp
	PrefixAdmin
	PrefixOwner
)

// Symbol returns the highest-ranking prefix character for display in
// NAMES/WHO output, or "" if the member holds no status.
func (p PrefixMode) Symbol() string {
	switch {
	case p&PrefixOwner != 0:
		return "~"
	case p&PrefixAdmin != 0:
		return "&"
	case p&PrefixOp != 0:
		return "@"
	case p&PrefixHalfOp != 0:
		return "%"
	case p&PrefixVoice != 0:
		return "+"
	default:
		return ""
	}
}

// AllSymbols returns every prefix symbol the member holds, highest rank
// first, for the multi-prefix capability.
func (p PrefixMode) AllSymbols() string {
	out := ""
	if p&PrefixOwner != 0 {
		out += "~"
	}
	if p&PrefixAdmin != 0 {
		out += "&"
	}
	if p&PrefixOp != 0 {
		out += "@"
	}
	if p&PrefixHalfOp != 0 {
		out += "%"
	}
	if p&PrefixVoice != 0 {
		out += "+"
	}
	return out
}

// HasOpOrHigher reports whether p includes at least +h (the minimum
// required to KICK per spec section 4.2).
func (p PrefixMode) HasOpOrHigher() bool {
	return p&(PrefixHalfOp|PrefixOp|PrefixAdmin|PrefixOwner) != 0
}

// Mode is the channel-wide mode bitmask (CHANMODES groups A|B|C|D).
type Mode uint64

const (
	ModeBan         Mode = 1 << iota // +b, group A (list)
	ModeExcept                       // +e, group A (list)
	ModeInviteExcept                 // +I, group A (list)
	ModeQuiet                        // +q as a list mode, group A (quiet mask list)
	ModeKey                          // +k, group B (parameter always)
	ModeLimit                        // +l, group C (parameter on set)
	ModeModerated                    // +m, group D
	ModeNoExternal                   // +n, group D
	ModeInviteOnly                  // +i, group D
	ModeSecret                      // +s, group D
	ModeTopicLock                   // +t, group D
	ModeRegisteredOnly              // +r, group D
	ModeTLSOnly                      // +z, group D
	ModeOperOnly                     // +O, group D
	ModePermanent                    // +P, group D
	ModeDelayedJoin                  // +D, group D
)

// modeGroupDLetters pairs each argumentless group-D flag with its wire
// letter, in the conventional display order.
var modeGroupDLetters = []struct {
	bit    Mode
	letter byte
}{
	{ModeModerated, 'm'},
	{ModeNoExternal, 'n'},
	{ModeInviteOnly, 'i'},
	{ModeSecret, 's'},
	{ModeTopicLock, 't'},
	{ModeRegisteredOnly, 'r'},
	{ModeTLSOnly, 'z'},
	{ModeOperOnly, 'O'},
	{ModePermanent, 'P'},
	{ModeDelayedJoin, 'D'},
}

// Letters renders the set group-D (argumentless) flags as a MODE
// letter string, e.g. "nt". List modes (b/e/I/q) and parameterized
// modes (k/l) aren't represented here since they need their argument
// alongside the letter.
func (m Mode) Letters() string {
	letters := make([]byte, 0, len(modeGroupDLetters))
	for _, gd := range modeGroupDLetters {
		if m&gd.bit != 0 {
			letters = append(letters, gd.letter)
		}
	}
	return string(letters)
}

// Member is one entry of a channel's membership map.
type Member struct {
	UID    string
	Prefix PrefixMode
}

// ListEntry is a rendered view of one list-mode mask, used when
// enumerating bans/excepts/invites for the wire (spec section 4.2:
// "sorted by timestamp when enumerated").
type ListEntry struct {
	Mask   string
	SetBy  string
	TS     int64
}

// Broadcaster is the narrow interface a channel actor uses to reach a
// member's session without knowing anything about sockets.
type Broadcaster interface {
	Deliver(*wire.MessageRef)
	Capable(capability string) bool
	UID() string
}
