// Package services implements NickServ and ChanServ as pure functions
// per spec section 4.8: (command, args, session context) -> []Effect.
// No service function ever mutates shared state directly; the effect
// applier in internal/effects is the only party permitted to do that,
// which keeps every service handler here unit-testable as a plain
// table-driven function. Grounded on btnmasher-dircd/commands.go's
// command-name dispatch table shape (a map from uppercased verb to
// handler func), reworked so each handler returns data instead of
// performing I/O.
package services

import (
	"fmt"
	"strings"
	"time"
)

// Context is everything a service function is allowed to read about
// the calling session. It never exposes mutable handles (no channel
// actor reference, no user manager reference) -- only plain data.
type Context struct {
	UID        string
	Nick       string
	Account    string // "" if not identified
	Registered time.Time
	IsOper     bool
	MemberOf   func(channel string) bool
	ChannelOp  func(channel string) bool // true if UID holds +o/+h in channel
}

// Effect is the sealed set of mutations a service function may
// request, per spec section 4.8's table. The effect applier switches
// on concrete type.
type Effect interface{ isEffect() }

type baseEffect struct{}

func (baseEffect) isEffect() {}

type Reply struct {
	baseEffect
	TargetUID string
	Msg       string
}

type AccountIdentify struct {
	baseEffect
	TargetUID string
	Account   string
}

type AccountLogout struct {
	baseEffect
	TargetUID string
}

type CancelEnforcement struct {
	baseEffect
	Nick string
}

type Kill struct {
	baseEffect
	TargetUID string
	Killer    string
	Reason    string
}

type Kick struct {
	baseEffect
	Channel   string
	TargetUID string
	Reason    string
}

type ModeOpRequest struct {
	Add  bool
	Mode string // single-letter mode, e.g. "o", "b"
	Arg  string
}

type ChannelMode struct {
	baseEffect
	Channel string
	ModeOps []ModeOpRequest
}

type EnforceNick struct {
	baseEffect
	Nick  string
	Delay time.Duration
}

type Wallops struct {
	baseEffect
	Msg string
}

// Handler is a pure service command function.
type Handler func(args []string, ctx Context) []Effect

// Service is a named command table, e.g. "NickServ" or "ChanServ".
type Service struct {
	Name     string
	handlers map[string]Handler
}

// NewService constructs an empty service with the given display name
// (used as the Reply sender and in USAGE text).
func NewService(name string) *Service {
	return &Service{Name: name, handlers: make(map[string]Handler)}
}

// Register adds verb (case-insensitive) to the dispatch table.
func (s *Service) Register(verb string, h Handler) {
	s.handlers[strings.ToUpper(verb)] = h
}

// Dispatch looks up the verb and invokes its handler, or returns a
// single Reply{USAGE} effect if unknown.
func (s *Service) Dispatch(verb string, args []string, ctx Context) []Effect {
	h, ok := s.handlers[strings.ToUpper(verb)]
	if !ok {
		return []Effect{Reply{TargetUID: ctx.UID, Msg: fmt.Sprintf("Unknown command \x02%s\x02. \x02/msg %s HELP\x02 for a command list.", verb, s.Name)}}
	}
	return h(args, ctx)
}
