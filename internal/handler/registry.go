// Package handler implements the command registry and middleware
// chain from spec section 4.7. The registry maps an uppercased
// command name to a handler tagged with the session phase(s) it may
// run in; dispatch picks the table entry by the calling session's
// current phase. Grounded on btnmasher-dircd/router.go's Gin-style
// HandlersChain/RouterGroup (command -> middleware-then-handler
// chain, Use()/Handle()/Group()), generalized so a route also carries
// a Phase tag instead of being phase-agnostic.
package handler

import (
	"fmt"
)

// Phase is the set of session states a handler may run in, per spec
// section 4.1's session typestate.
type Phase int

const (
	// PhasePreReg: handler valid only before registration completes
	// (NICK, USER, PASS, CAP, AUTHENTICATE, WEBIRC, STARTTLS).
	PhasePreReg Phase = 1 << iota
	// PhasePostReg: handler valid only once the session is Registered.
	PhasePostReg
	// PhaseUniversal: handler valid in either phase (QUIT, PING, PONG).
	PhaseUniversal = PhasePreReg | PhasePostReg
)

// Context is the per-message handling context threaded through a
// handler chain, mirroring btnmasher-dircd's MessageContext but
// without a direct *Conn/*Message coupling -- callers supply their
// own session and message types via the generic parameters.
type Context[S any, M any] struct {
	Session S
	Msg     M
	Phase   Phase

	handlerName string
	handled     bool
	abort       bool
	err         error

	// Label, if non-empty, is the client-supplied labeled-response tag
	// (IRCv3 `label` capability) that middleware must echo.
	Label string
	// BatchRef, set by the batch middleware, names the open BATCH
	// reference this handler's replies should be tagged with.
	BatchRef string

	replies []string // accumulated outbound lines, pre-middleware
}

// Reply appends one line to the pending outbound set; middleware
// wraps these with label/batch framing before the transport sends
// them.
func (c *Context[S, M]) Reply(line string) { c.replies = append(c.replies, line) }

// Replies returns what handlers queued so far.
func (c *Context[S, M]) Replies() []string { return c.replies }

// Handled stops the chain from calling further handlers, matching
// btnmasher-dircd's MessageContext.Handled.
func (c *Context[S, M]) Handled() { c.handled = true }

// AbortWithError stops the chain and records an error for logging,
// matching btnmasher-dircd's MessageContext.AbortWithError.
func (c *Context[S, M]) AbortWithError(err error) {
	c.abort = true
	c.err = err
}

// Err returns the error recorded by AbortWithError, if any.
func (c *Context[S, M]) Err() error { return c.err }

// HandlerFunc processes one message within a chain.
type HandlerFunc[S any, M any] func(*Context[S, M])

type route[S any, M any] struct {
	phase    Phase
	handlers []HandlerFunc[S, M]
	name     string
}

// Registry is the uppercased-command -> route table for one protocol
// role (client-facing or server-facing).
type Registry[S any, M any] struct {
	routes  map[string]route[S, M]
	global  []HandlerFunc[S, M]
	unknown HandlerFunc[S, M]
}

// New constructs an empty registry.
func New[S any, M any]() *Registry[S, M] {
	return &Registry[S, M]{routes: make(map[string]route[S, M])}
}

// Use installs global middleware run before every command's own
// handler chain, matching Router.Use.
func (r *Registry[S, M]) Use(mw ...HandlerFunc[S, M]) {
	r.global = append(r.global, mw...)
}

// OnUnknown installs the handler Dispatch invokes when it can't find a
// registered command and no onUnknown callback was passed (distinct
// from a wrong-phase command, which goes to Dispatch's onWrongPhase).
func (r *Registry[S, M]) OnUnknown(h HandlerFunc[S, M]) { r.unknown = h }

// Handle registers handlers for command, valid only in the given
// phase(s). Panics on duplicate registration, matching the teacher's
// fail-fast addHandler.
func (r *Registry[S, M]) Handle(command string, phase Phase, handlers ...HandlerFunc[S, M]) {
	if command == "" {
		panic("handler: command must not be empty")
	}
	if len(handlers) == 0 {
		panic("handler: at least one handler required")
	}
	if _, exists := r.routes[command]; exists {
		panic(fmt.Sprintf("handler: already registered for command: %s", command))
	}
	chain := make([]HandlerFunc[S, M], 0, len(r.global)+len(handlers))
	chain = append(chain, r.global...)
	chain = append(chain, handlers...)
	r.routes[command] = route[S, M]{phase: phase, handlers: chain, name: command}
}

// Lookup result describes why a command could not be routed.
type LookupResult int

const (
	LookupOK LookupResult = iota
	LookupUnknown
	LookupWrongPhase
)

// Resolve finds the handler chain for command given the session's
// current phase, without running it -- Dispatch uses this, and
// middleware-heavy callers (tests) can use it directly.
func (r *Registry[S, M]) Resolve(command string, current Phase) ([]HandlerFunc[S, M], LookupResult) {
	rt, ok := r.routes[command]
	if !ok {
		return nil, LookupUnknown
	}
	if rt.phase&current == 0 {
		return nil, LookupWrongPhase
	}
	return rt.handlers, LookupOK
}

// Dispatch runs the handler chain for ctx.Msg's command (the caller
// is responsible for having set ctx.Phase to the session's current
// phase before calling). onUnknown and onWrongPhase are called
// when Resolve can't find a usable route, letting the caller decide
// between a 421/451 numeric and a silent drop per spec section 4.7.
func Dispatch[S any, M any](r *Registry[S, M], ctx *Context[S, M], command string, onUnknown func(*Context[S, M]), onWrongPhase func(*Context[S, M])) {
	handlers, result := r.Resolve(command, ctx.Phase)
	switch result {
	case LookupUnknown:
		if onUnknown != nil {
			onUnknown(ctx)
		} else if r.unknown != nil {
			r.unknown(ctx)
		}
		return
	case LookupWrongPhase:
		if onWrongPhase != nil {
			onWrongPhase(ctx)
		}
		return
	}

	for _, h := range handlers {
		h(ctx)
		if ctx.handled {
			return
		}
		if ctx.abort && len(handlers) > 1 {
			return
		}
	}
}
