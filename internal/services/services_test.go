package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctxFor(uid, nick, account string) Context {
	return Context{
		UID:       uid,
		Nick:      nick,
		Account:   account,
		MemberOf:  func(string) bool { return true },
		ChannelOp: func(string) bool { return true },
	}
}

func TestNickServRegisterIdentifiesImmediately(t *testing.T) {
	ns := NewNickServ()
	effects := ns.Dispatch("REGISTER", []string{"hunter2"}, ctxFor("001AAAAAB", "alice", ""))
	require.Len(t, effects, 2)
	ident, ok := effects[0].(AccountIdentify)
	require.True(t, ok)
	assert.Equal(t, "alice", ident.Account)
}

func TestNickServIdentifyRejectsAlreadyIdentified(t *testing.T) {
	ns := NewNickServ()
	effects := ns.Dispatch("IDENTIFY", []string{"hunter2"}, ctxFor("001AAAAAB", "alice", "alice"))
	require.Len(t, effects, 1)
	_, ok := effects[0].(Reply)
	assert.True(t, ok)
}

func TestNickServGhostRefusesSelfTarget(t *testing.T) {
	ns := NewNickServ()
	effects := ns.Dispatch("GHOST", []string{"alice"}, ctxFor("001AAAAAB", "alice", "alice"))
	require.Len(t, effects, 1)
	_, ok := effects[0].(Reply)
	assert.True(t, ok)
}

func TestNickServGhostProducesKill(t *testing.T) {
	ns := NewNickServ()
	effects := ns.Dispatch("GHOST", []string{"bob"}, ctxFor("001AAAAAB", "alice", "alice"))
	require.Len(t, effects, 2)
	kill, ok := effects[0].(Kill)
	require.True(t, ok)
	assert.Equal(t, "bob", kill.TargetUID)
}

func TestUnknownCommandReturnsUsageReply(t *testing.T) {
	ns := NewNickServ()
	effects := ns.Dispatch("BOGUS", nil, ctxFor("001AAAAAB", "alice", ""))
	require.Len(t, effects, 1)
	r, ok := effects[0].(Reply)
	require.True(t, ok)
	assert.Contains(t, r.Msg, "Unknown command")
}

func TestChanServOpRequiresPrivilege(t *testing.T) {
	cs := NewChanServ()
	ctx := ctxFor("001AAAAAB", "alice", "alice")
	ctx.ChannelOp = func(string) bool { return false }
	ctx.IsOper = false
	effects := cs.Dispatch("OP", []string{"#general"}, ctx)
	require.Len(t, effects, 1)
	_, ok := effects[0].(Reply)
	assert.True(t, ok)
}

func TestChanServOpGrantsModeEffect(t *testing.T) {
	cs := NewChanServ()
	effects := cs.Dispatch("OP", []string{"#general", "001AAAAAC"}, ctxFor("001AAAAAB", "alice", "alice"))
	require.Len(t, effects, 2)
	mode, ok := effects[0].(ChannelMode)
	require.True(t, ok)
	require.Len(t, mode.ModeOps, 1)
	assert.Equal(t, "o", mode.ModeOps[0].Mode)
	assert.True(t, mode.ModeOps[0].Add)
}

func TestChanServKickRequiresChannelArg(t *testing.T) {
	cs := NewChanServ()
	effects := cs.Dispatch("KICK", nil, ctxFor("001AAAAAB", "alice", "alice"))
	require.Len(t, effects, 1)
	_, ok := effects[0].(Reply)
	assert.True(t, ok)
}
