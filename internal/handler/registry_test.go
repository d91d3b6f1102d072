package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct{ nick string }
type fakeMsg struct{ command string }

func newCtx(phase Phase) *Context[*fakeSession, *fakeMsg] {
	return &Context[*fakeSession, *fakeMsg]{Session: &fakeSession{}, Msg: &fakeMsg{}, Phase: phase}
}

func TestHandleRegistersAndResolves(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	called := false
	r.Handle("NICK", PhasePreReg, func(c *Context[*fakeSession, *fakeMsg]) { called = true })

	handlers, result := r.Resolve("NICK", PhasePreReg)
	require.Equal(t, LookupOK, result)
	require.Len(t, handlers, 1)
	handlers[0](newCtx(PhasePreReg))
	assert.True(t, called)
}

func TestResolveReturnsUnknownForUnregisteredCommand(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	_, result := r.Resolve("BOGUS", PhasePostReg)
	assert.Equal(t, LookupUnknown, result)
}

func TestResolveReturnsWrongPhase(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	r.Handle("NICK", PhasePreReg, func(c *Context[*fakeSession, *fakeMsg]) {})
	_, result := r.Resolve("NICK", PhasePostReg)
	assert.Equal(t, LookupWrongPhase, result)
}

func TestUniversalPhaseMatchesEitherPhase(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	r.Handle("PING", PhaseUniversal, func(c *Context[*fakeSession, *fakeMsg]) {})

	_, preResult := r.Resolve("PING", PhasePreReg)
	_, postResult := r.Resolve("PING", PhasePostReg)
	assert.Equal(t, LookupOK, preResult)
	assert.Equal(t, LookupOK, postResult)
}

func TestHandlePanicsOnDuplicateRegistration(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	r.Handle("NICK", PhasePreReg, func(c *Context[*fakeSession, *fakeMsg]) {})
	assert.Panics(t, func() {
		r.Handle("NICK", PhasePreReg, func(c *Context[*fakeSession, *fakeMsg]) {})
	})
}

func TestDispatchStopsChainWhenHandled(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	var order []int
	r.Handle("CAP", PhasePreReg,
		func(c *Context[*fakeSession, *fakeMsg]) { order = append(order, 1); c.Handled() },
		func(c *Context[*fakeSession, *fakeMsg]) { order = append(order, 2) },
	)
	ctx := newCtx(PhasePreReg)
	Dispatch(r, ctx, "CAP", nil, nil)
	assert.Equal(t, []int{1}, order)
}

func TestDispatchInvokesUnknownHandler(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	var gotUnknown bool
	ctx := newCtx(PhasePostReg)
	Dispatch(r, ctx, "BOGUS", func(c *Context[*fakeSession, *fakeMsg]) { gotUnknown = true }, nil)
	assert.True(t, gotUnknown)
}

func TestDispatchInvokesWrongPhaseHandler(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	r.Handle("NICK", PhasePreReg, func(c *Context[*fakeSession, *fakeMsg]) {})
	var gotWrongPhase bool
	ctx := newCtx(PhasePostReg)
	Dispatch(r, ctx, "NICK", nil, func(c *Context[*fakeSession, *fakeMsg]) { gotWrongPhase = true })
	assert.True(t, gotWrongPhase)
}

func TestGlobalMiddlewareRunsBeforeHandler(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	var order []string
	r.Use(func(c *Context[*fakeSession, *fakeMsg]) { order = append(order, "mw") })
	r.Handle("NICK", PhasePreReg, func(c *Context[*fakeSession, *fakeMsg]) { order = append(order, "handler") })

	ctx := newCtx(PhasePreReg)
	Dispatch(r, ctx, "NICK", nil, nil)
	assert.Equal(t, []string{"mw", "handler"}, order)
}

func TestAbortStopsMultiHandlerChain(t *testing.T) {
	r := New[*fakeSession, *fakeMsg]()
	var order []int
	r.Handle("JOIN", PhasePostReg,
		func(c *Context[*fakeSession, *fakeMsg]) { order = append(order, 1); c.AbortWithError(assert.AnError) },
		func(c *Context[*fakeSession, *fakeMsg]) { order = append(order, 2) },
	)
	ctx := newCtx(PhasePostReg)
	Dispatch(r, ctx, "JOIN", nil, nil)
	assert.Equal(t, []int{1}, order)
	assert.Error(t, ctx.Err())
}
