package capauth

import (
	"testing"

	"github.com/sid3xyz/slircd-ng/internal/security"
	"github.com/stretchr/testify/assert"
)

func TestGrantKickRequiresOperOrChannelOp(t *testing.T) {
	a := NewAuthority(func(uid, channel string) bool { return uid == "001AAAAAA" })

	_, ok := a.GrantKick("001AAAAAB", "#test")
	assert.False(t, ok)

	_, ok = a.GrantKick("001AAAAAA", "#test")
	assert.True(t, ok)
}

func TestNetOpBypassesChannelRoleCheck(t *testing.T) {
	a := NewAuthority(func(uid, channel string) bool { return false })
	a.SetOperLevel("001AAAAAC", security.LevelNetOp)

	_, ok := a.GrantKick("001AAAAAC", "#test")
	assert.True(t, ok)
}

func TestGrantRehashRequiresAdmin(t *testing.T) {
	a := NewAuthority(nil)
	a.SetOperLevel("001AAAAAA", security.LevelNetOp)
	_, ok := a.GrantRehash("001AAAAAA")
	assert.False(t, ok)

	a.SetOperLevel("001AAAAAA", security.LevelAdmin)
	_, ok = a.GrantRehash("001AAAAAA")
	assert.True(t, ok)
}

func TestGrantBanNetworkWideRequiresNetOp(t *testing.T) {
	a := NewAuthority(nil)
	_, ok := a.GrantBan("001AAAAAA", "")
	assert.False(t, ok)

	a.SetOperLevel("001AAAAAA", security.LevelNetOp)
	_, ok = a.GrantBan("001AAAAAA", "")
	assert.True(t, ok)
}

func TestUnforgeableTokenZeroValueCarriesNoSubject(t *testing.T) {
	var tok KickToken
	assert.Equal(t, "", tok.Subject())
}
