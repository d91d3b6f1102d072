package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestActor(t *testing.T, name string) *Actor {
	t.Helper()
	closed := make(chan string, 1)
	a := NewActor(name, "001", 1000, func(n string) { closed <- n })
	go a.Run()
	t.Cleanup(func() { a.send(cmdStop{}) })
	return a
}

func doJoin(a *Actor, m *fakeBroadcaster, nick string) JoinResult {
	reply := make(chan JoinResult, 1)
	a.sendBlocking(cmdJoin{Member: m, Nick: nick, Now: 1000, Reply: reply})
	return <-reply
}

func TestFirstJoinerGetsOpAndBroadcastsJoin(t *testing.T) {
	a := newTestActor(t, "#test")
	alice := newFakeMember("001AAAAAA")

	res := doJoin(a, alice, "alice")
	require.True(t, res.OK)
	assert.True(t, res.GrantedOp)

	infoReply := make(chan ChannelInfo, 1)
	a.sendBlocking(cmdGetInfo{Reply: infoReply})
	info := <-infoReply
	require.Len(t, info.Members, 1)
	assert.Equal(t, PrefixOp, info.Members[0].Prefix)
}

func TestSecondJoinerDoesNotGetOp(t *testing.T) {
	a := newTestActor(t, "#test")
	alice := newFakeMember("001AAAAAA")
	bob := newFakeMember("001AAAAAB")

	doJoin(a, alice, "alice")
	res := doJoin(a, bob, "bob")
	require.True(t, res.OK)
	assert.False(t, res.GrantedOp)
}

func TestJoinRejectedByKeyMismatch(t *testing.T) {
	a := newTestActor(t, "#test")
	alice := newFakeMember("001AAAAAA")
	doJoin(a, alice, "alice")

	modeReply := make(chan error, 1)
	a.sendBlocking(cmdModeChange{
		ActorUID: "001AAAAAA",
		Ops:      []ModeOp{{Add: true, Mode: ModeKey, Arg: "secret"}},
		Now:      1001,
		Reply:    modeReply,
	})
	require.NoError(t, <-modeReply)

	bob := newFakeMember("001AAAAAB")
	reply := make(chan JoinResult, 1)
	a.sendBlocking(cmdJoin{Member: bob, Nick: "bob", Key: "wrong", Now: 1002, Reply: reply})
	res := <-reply
	assert.False(t, res.OK)
	assert.EqualValues(t, 475, res.Numeric)
}

func TestKickRequiresOpAndRemovesMember(t *testing.T) {
	a := newTestActor(t, "#test")
	alice := newFakeMember("001AAAAAA")
	bob := newFakeMember("001AAAAAB")
	doJoin(a, alice, "alice")
	doJoin(a, bob, "bob")

	kickReply := make(chan error, 1)
	a.sendBlocking(cmdKick{ActorUID: "001AAAAAB", ActorNick: "bob", TargetUID: "001AAAAAA", Reply: kickReply})
	assert.Error(t, <-kickReply) // bob has no ops

	kickReply2 := make(chan error, 1)
	a.sendBlocking(cmdKick{ActorUID: "001AAAAAA", ActorNick: "alice", TargetUID: "001AAAAAB", Reason: "bye", Reply: kickReply2})
	assert.NoError(t, <-kickReply2)

	membersReply := make(chan []Member, 1)
	a.sendBlocking(cmdGetMembers{Reply: membersReply})
	members := <-membersReply
	assert.Len(t, members, 1)
}

func TestTopicChangeRespectsTopicLock(t *testing.T) {
	a := newTestActor(t, "#test")
	alice := newFakeMember("001AAAAAA")
	bob := newFakeMember("001AAAAAB")
	doJoin(a, alice, "alice")
	doJoin(a, bob, "bob")

	reply := make(chan error, 1)
	a.sendBlocking(cmdTopicChange{ActorUID: "001AAAAAB", ActorNick: "bob", Topic: "hi", Now: 2000, Reply: reply})
	assert.Error(t, <-reply)

	reply2 := make(chan error, 1)
	a.sendBlocking(cmdTopicChange{ActorUID: "001AAAAAA", ActorNick: "alice", Topic: "hi", Now: 2000, Reply: reply2})
	assert.NoError(t, <-reply2)
}

func TestCrdtMergeConvergesBanList(t *testing.T) {
	a := newTestActor(t, "#test")
	a.sendBlocking(cmdCrdtMerge{Remote: &BurstState{
		Bans: map[string]int64{"*!*@bad.example": 10},
	}})

	listReply := make(chan []ListEntry, 1)
	a.sendBlocking(cmdGetBanList{Which: "b", Reply: listReply})
	list := <-listReply
	require.Len(t, list, 1)
	assert.Equal(t, "*!*@bad.example", list[0].Mask)
}

func TestLastMemberLeavingClosesChannel(t *testing.T) {
	closed := make(chan string, 1)
	a := NewActor("#bye", "001", 1000, func(n string) { closed <- n })
	go a.Run()
	alice := newFakeMember("001AAAAAA")
	doJoin(a, alice, "alice")

	a.send(cmdQuit{UID: "001AAAAAA", Nick: "alice", Reason: "done"})

	name := <-closed
	assert.Equal(t, "#bye", name)
}
