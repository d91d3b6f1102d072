package effects

import (
	"errors"
	"testing"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct{ sent []string }

func (f *fakeSender) SendNotice(targetUID, from, text string) {
	f.sent = append(f.sent, targetUID+":"+from+":"+text)
}

type fakeAccounts struct {
	identified map[string]string
}

func (f *fakeAccounts) SetAccount(uid, account string) {
	if f.identified == nil {
		f.identified = make(map[string]string)
	}
	f.identified[uid] = account
}
func (f *fakeAccounts) ClearAccount(uid string) { delete(f.identified, uid) }

type fakeEnforcer struct {
	cancelled []string
	enforced  map[string]time.Duration
}

func (f *fakeEnforcer) CancelEnforcement(nick string) { f.cancelled = append(f.cancelled, nick) }
func (f *fakeEnforcer) EnforceNick(nick string, after time.Duration) {
	if f.enforced == nil {
		f.enforced = make(map[string]time.Duration)
	}
	f.enforced[nick] = after
}

type fakeKiller struct {
	killed map[string]string
	err    error
}

func (f *fakeKiller) Kill(targetUID, killer, reason string) error {
	if f.err != nil {
		return f.err
	}
	if f.killed == nil {
		f.killed = make(map[string]string)
	}
	f.killed[targetUID] = killer
	return nil
}

type fakeChannels struct {
	kicked []string
	moded  []services.ModeOpRequest
}

func (f *fakeChannels) Kick(channel, targetUID, kicker, reason string) error {
	f.kicked = append(f.kicked, channel+":"+targetUID)
	return nil
}
func (f *fakeChannels) ApplyModes(channel string, ops []services.ModeOpRequest, setter string) error {
	f.moded = append(f.moded, ops...)
	return nil
}

func newTestApplier() (*Applier, *fakeSender, *fakeAccounts, *fakeEnforcer, *fakeKiller, *fakeChannels) {
	sender := &fakeSender{}
	accounts := &fakeAccounts{}
	enforcer := &fakeEnforcer{}
	killer := &fakeKiller{}
	channels := &fakeChannels{}
	a := New("NickServ")
	a.Sender, a.Accounts, a.Enforcer, a.Killer, a.Channels = sender, accounts, enforcer, killer, channels
	return a, sender, accounts, enforcer, killer, channels
}

func TestApplyReplySendsNotice(t *testing.T) {
	a, sender, _, _, _, _ := newTestApplier()
	require.NoError(t, a.Apply(services.Reply{TargetUID: "u1", Msg: "hi"}))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "hi")
}

func TestApplyAccountIdentifyAndLogout(t *testing.T) {
	a, _, accounts, _, _, _ := newTestApplier()
	require.NoError(t, a.Apply(services.AccountIdentify{TargetUID: "u1", Account: "alice"}))
	assert.Equal(t, "alice", accounts.identified["u1"])

	require.NoError(t, a.Apply(services.AccountLogout{TargetUID: "u1"}))
	_, ok := accounts.identified["u1"]
	assert.False(t, ok)
}

func TestApplyKillPropagatesError(t *testing.T) {
	a, _, _, _, killer, _ := newTestApplier()
	killer.err = errors.New("target gone")
	err := a.Apply(services.Kill{TargetUID: "u2", Killer: "NickServ"})
	assert.Error(t, err)
}

func TestApplyAllContinuesAfterError(t *testing.T) {
	a, sender, _, _, killer, _ := newTestApplier()
	killer.err = errors.New("boom")
	err := a.ApplyAll([]services.Effect{
		services.Kill{TargetUID: "u2"},
		services.Reply{TargetUID: "u1", Msg: "done"},
	})
	assert.Error(t, err)
	require.Len(t, sender.sent, 1)
}

func TestApplyChannelModeAndKick(t *testing.T) {
	a, _, _, _, _, channels := newTestApplier()
	require.NoError(t, a.Apply(services.ChannelMode{Channel: "#c", ModeOps: []services.ModeOpRequest{{Add: true, Mode: "o", Arg: "u1"}}}))
	require.Len(t, channels.moded, 1)

	require.NoError(t, a.Apply(services.Kick{Channel: "#c", TargetUID: "u3"}))
	assert.Contains(t, channels.kicked, "#c:u3")
}

func TestApplyUnwiredCollaboratorReturnsError(t *testing.T) {
	a := New("NickServ")
	err := a.Apply(services.Kill{TargetUID: "u2"})
	assert.Error(t, err)
}
