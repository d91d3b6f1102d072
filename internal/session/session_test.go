package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sid3xyz/slircd-ng/internal/idgen"
)

func newTestUnregistered() *Unregistered {
	return NewUnregistered(idgen.NewSessionId(), "127.0.0.1", false)
}

func TestReadyToRegisterRequiresNickAndUser(t *testing.T) {
	u := newTestUnregistered()
	assert.False(t, u.ReadyToRegister())

	u.Nick = "alice"
	assert.False(t, u.ReadyToRegister())

	u.User = "alice"
	assert.True(t, u.ReadyToRegister())
}

func TestCapPausesRegistration(t *testing.T) {
	u := newTestUnregistered()
	u.Nick, u.User = "alice", "alice"
	u.Cap.LSSent = true

	assert.False(t, u.ReadyToRegister())

	u.Cap.Ended = true
	assert.True(t, u.ReadyToRegister())
}

func TestSaslMustCompleteBeforeRegistration(t *testing.T) {
	u := newTestUnregistered()
	u.Nick, u.User = "alice", "alice"
	u.Sasl.State = SaslInProgress

	assert.False(t, u.ReadyToRegister())

	u.Sasl.State = SaslSuccess
	assert.True(t, u.ReadyToRegister())
}

func TestRegisterConsumesUnregistered(t *testing.T) {
	u := newTestUnregistered()
	u.Nick, u.User, u.Realname = "alice", "alice", "Alice A"
	u.Sasl.Account = "alice"

	r := Register(u, "001AAAAAA", "host.example", "cloaked.example", 1000)

	assert.Equal(t, "alice", r.Nick)
	assert.Equal(t, "alice", r.Account)
	assert.Equal(t, "cloaked.example", r.EffectiveHost())
	assert.Equal(t, "alice!alice@cloaked.example", r.Hostmask())
}
