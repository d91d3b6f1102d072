package security

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPDenyListExactMatch(t *testing.T) {
	l := NewIPDenyList()
	l.DenyExact("10.0.0.5", "abuse")
	v := l.Check(net.ParseIP("10.0.0.5"))
	assert.False(t, v.Allowed)
	assert.Equal(t, "abuse", v.Reason)

	assert.True(t, l.Check(net.ParseIP("10.0.0.6")).Allowed)
}

func TestIPDenyListRangeMatch(t *testing.T) {
	l := NewIPDenyList()
	require.NoError(t, l.DenyRange("192.168.1.0/24", "botnet"))
	assert.False(t, l.Check(net.ParseIP("192.168.1.42")).Allowed)
	assert.True(t, l.Check(net.ParseIP("192.168.2.42")).Allowed)
}

func TestBanCacheGlobMatch(t *testing.T) {
	b := NewBanCache()
	b.Add("*@*.bad.example", "spam network")
	assert.False(t, b.Check("evil@host.bad.example").Allowed)
	assert.True(t, b.Check("good@host.example").Allowed)
}

func TestMatchMaskWildcards(t *testing.T) {
	assert.True(t, MatchMask("*!*@bad.example", "alice!user@bad.example"))
	assert.True(t, MatchMask("a?ice", "alice"))
	assert.False(t, MatchMask("bob", "alice"))
}

func TestSpamEntropyCatchesRepeatedChar(t *testing.T) {
	v := CheckSpam("aaaaaaaaaaaaaaaaaaaa", DefaultSpamThresholds)
	assert.False(t, v.Allowed)
}

func TestSpamAllowsOrdinaryProse(t *testing.T) {
	v := CheckSpam("hey did anyone see the game last night", DefaultSpamThresholds)
	assert.True(t, v.Allowed)
}

func TestSpamURLRatio(t *testing.T) {
	v := CheckSpam("http://a.example http://b.example http://c.example", DefaultSpamThresholds)
	assert.False(t, v.Allowed)
}

func TestExtendedBanAccount(t *testing.T) {
	eb, ok := ParseExtendedBan("$a:spammer")
	require.True(t, ok)
	assert.True(t, eb.Match(MatchSubject{Account: "spammer"}))
	assert.False(t, eb.Match(MatchSubject{Account: "alice"}))
}

func TestExtendedBanTLSOnly(t *testing.T) {
	eb, ok := ParseExtendedBan("$z")
	require.True(t, ok)
	assert.True(t, eb.Match(MatchSubject{TLS: true}))
	assert.False(t, eb.Match(MatchSubject{TLS: false}))
}

func TestExtendedBanChannelMembership(t *testing.T) {
	eb, ok := ParseExtendedBan("$j:#other")
	require.True(t, ok)
	assert.True(t, eb.Match(MatchSubject{MemberOf: func(c string) bool { return c == "#other" }}))
}

func TestNonExtendedBanMaskNotParsed(t *testing.T) {
	_, ok := ParseExtendedBan("*!*@host.example")
	assert.False(t, ok)
}

func TestLimitersMessageBurstThenLimited(t *testing.T) {
	l := NewLimiters()
	allowed := 0
	for i := 0; i < MessageBurst+1; i++ {
		if l.AllowMessage().Allowed {
			allowed++
		}
	}
	assert.LessOrEqual(t, allowed, MessageBurst)
}

func TestConnectionGovernorPerIP(t *testing.T) {
	g := NewConnectionGovernor()
	ip := net.ParseIP("1.2.3.4")
	allowed := 0
	for i := 0; i < ConnectionBurstCap+2; i++ {
		if g.Allow(ip).Allowed {
			allowed++
		}
	}
	assert.Equal(t, ConnectionBurstCap, allowed)
}
