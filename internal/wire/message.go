/*
   Copyright (c) 2020, btnmasher
   All rights reserved.

   Redistribution and use in source and binary forms, with or without modification, are permitted provided that
   the following conditions are met:

   1. Redistributions of source code must retain the above copyright notice, this list of conditions and the
      following disclaimer.

   2. Redistributions in binary form must reproduce the above copyright notice, this list of conditions and
      the following disclaimer in the documentation and/or other materials provided with the distribution.

   3. Neither the name of the copyright holder nor the names of its contributors may be used to endorse or
      promote products derived from this software without specific prior written permission.

   THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED
   WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A
   PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE FOR
   ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED
   TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
   HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
   NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
   POSSIBILITY OF SUCH DAMAGE.
*/

// Package wire is the thin seam between the core and the assumed
// zero-copy wire codec (spec section 1 treats the plaintext parser as
// an external collaborator). It wraps gopkg.in/irc.v3's Message type
// with the pooled rendering path btnmasher-dircd's message.go used, and
// enforces the 512/8192-byte line budgets from spec section 6.1.
package wire

import (
	"fmt"

	irc "gopkg.in/irc.v3"
)

// Maximum line lengths per spec section 6.1.
const (
	MaxLineLength     = 512  // including CRLF, for messages without tags
	MaxTaggedLength   = 8192 // including CRLF, when message tags are present
	MaxTagBudget      = 4096
	MaxMessageParams  = 15
	PadNumericLiteral = "%03d"
)

// MessageRef is a borrowed view over one parsed IRC line: it carries
// the parsed irc.Message plus the numeric reply code, when the message
// represents a server numeric reply rather than a textual command.
type MessageRef struct {
	Msg  *irc.Message
	Code uint16 // 0 when this is a textual command rather than a numeric reply
}

// NewCommand builds a MessageRef for a textual command.
func NewCommand(source, command string, params ...string) *MessageRef {
	return &MessageRef{
		Msg: &irc.Message{
			Prefix:  prefixFor(source),
			Command: command,
			Params:  params,
		},
	}
}

// NewNumeric builds a MessageRef for a numeric reply per spec section 6.3.
func NewNumeric(source string, code uint16, params ...string) *MessageRef {
	return &MessageRef{
		Code: code,
		Msg: &irc.Message{
			Prefix:  prefixFor(source),
			Command: fmt.Sprintf(PadNumericLiteral, code),
			Params:  params,
		},
	}
}

func prefixFor(source string) *irc.Prefix {
	if source == "" {
		return nil
	}
	return irc.ParsePrefix(source)
}

// WithTrailingf appends a formatted trailing parameter (rendered with a
// leading colon by irc.Message.String when it contains a space or is
// empty) and returns the ref for chaining.
func (m *MessageRef) WithTrailingf(format string, args ...any) *MessageRef {
	m.Msg.Params = append(m.Msg.Params, fmt.Sprintf(format, args...))
	return m
}

// WithTags attaches IRCv3 message tags.
func (m *MessageRef) WithTags(tags irc.Tags) *MessageRef {
	m.Msg.Tags = tags
	return m
}

// Render serializes the message to its wire form, including the
// trailing CRLF. Returns an error if the rendered line (accounting for
// tags) would exceed the budgets in spec section 6.1.
func (m *MessageRef) Render() (string, error) {
	line := m.Msg.String()
	budget := MaxLineLength
	if len(m.Msg.Tags) > 0 {
		budget = MaxTaggedLength
	}
	if len(line)+2 > budget {
		return "", ErrLineTooLong
	}
	return line + "\r\n", nil
}

// ErrLineTooLong is returned by Render when the encoded message would
// exceed the wire budget for its message class.
var ErrLineTooLong = fmt.Errorf("wire: rendered message exceeds line budget")

// Parse decodes a single CRLF-stripped wire line into a MessageRef.
// Malformed input is a protocol error (spec section 7), never a panic.
func Parse(line string) (*MessageRef, error) {
	if len(line) == 0 {
		return nil, ErrEmptyLine
	}
	msg, err := irc.ParseMessage(line)
	if err != nil {
		return nil, fmt.Errorf("wire: parse error: %w", err)
	}
	return &MessageRef{Msg: msg}, nil
}

// ErrEmptyLine is returned by Parse for a blank input line.
var ErrEmptyLine = fmt.Errorf("wire: empty line")
