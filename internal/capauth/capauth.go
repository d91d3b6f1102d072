// Package capauth implements unforgeable capability tokens per spec
// section 4.9. Each privileged operation (KICK, KILL, REHASH, every
// ban class) takes a typed token parameter whose zero value is
// useless and whose only non-zero values come from this package's
// unexported constructor, called by Authority after it has actually
// evaluated the caller's privilege. A handler that accepts a
// *KickToken argument therefore cannot be called without a prior
// successful Authority.GrantKick -- the privilege check becomes a
// structural property of the call graph, not a runtime-checkable
// policy that can be forgotten.
//
// There is no teacher equivalent: btnmasher-dircd checks permission
// levels inline against a uint8 (permissions.go/usermode.go) at the
// call site, which is exactly the runtime pattern this package is
// grounded on generalizing away, per spec section 4.9's own framing.
package capauth

import "github.com/sid3xyz/slircd-ng/internal/security"

// token is the shared internal shape every capability token embeds.
// Its fields are unexported and it carries no public constructor, so
// code outside this package can hold a token value (passed through)
// but can never manufacture one.
type token struct {
	grantedTo string // UID of the session the token was issued to
	scope     string // channel name, or "" for network-wide capabilities
}

// KickToken authorizes one KICK call against scope.
type KickToken struct{ token }

// KillToken authorizes one KILL call.
type KillToken struct{ token }

// RehashToken authorizes one REHASH call.
type RehashToken struct{ token }

// BanToken authorizes setting or clearing one ban-class mode
// (+b/+e/+I/+q or a server-side K/G/D/Z-line) in scope.
type BanToken struct{ token }

// Subject returns the UID the token was issued to, for audit logging.
func (t token) Subject() string { return t.grantedTo }

// Scope returns the channel the token is valid for, or "" for
// network-wide tokens.
func (t token) Scope() string { return t.scope }

// Authority is the sole issuer of capability tokens. It evaluates
// operator membership, channel roles, and config-declared oper
// privileges, per spec section 4.9.
type Authority struct {
	opers map[string]security.Level // uid -> granted level
	// memberLevel reports whether a UID holds op-or-higher status in a
	// channel; wired to the
	// channel actor's membership snapshot by the caller (package
	// capauth does not import package channel, to avoid a dependency
	// cycle with channel -> security -> capauth paths elsewhere).
	memberLevel func(uid, channel string) (hasOpOrHigher bool)
}

// NewAuthority constructs an Authority. memberLevel may be nil if the
// caller never needs channel-scoped grants (e.g. in a unit test that
// only exercises network-wide tokens).
func NewAuthority(memberLevel func(uid, channel string) bool) *Authority {
	return &Authority{
		opers:       make(map[string]security.Level),
		memberLevel: memberLevel,
	}
}

// SetOperLevel records a config-declared oper privilege level for uid.
func (a *Authority) SetOperLevel(uid string, level security.Level) {
	a.opers[uid] = level
}

// GrantKick returns a KickToken if uid holds at least channel op in
// channel, or network oper level NetOp or higher.
func (a *Authority) GrantKick(uid, channel string) (KickToken, bool) {
	if a.opers[uid] >= security.LevelNetOp {
		return KickToken{token{grantedTo: uid, scope: channel}}, true
	}
	if a.memberLevel != nil && a.memberLevel(uid, channel) {
		return KickToken{token{grantedTo: uid, scope: channel}}, true
	}
	return KickToken{}, false
}

// GrantKill returns a KillToken if uid is a network oper of at least
// NetOp level.
func (a *Authority) GrantKill(uid string) (KillToken, bool) {
	if a.opers[uid] >= security.LevelNetOp {
		return KillToken{token{grantedTo: uid}}, true
	}
	return KillToken{}, false
}

// GrantRehash returns a RehashToken if uid is an Admin-level oper.
func (a *Authority) GrantRehash(uid string) (RehashToken, bool) {
	if a.opers[uid] >= security.LevelAdmin {
		return RehashToken{token{grantedTo: uid}}, true
	}
	return RehashToken{}, false
}

// GrantBan returns a BanToken if uid holds at least channel op in
// channel (for channel-scope bans) or NetOp (for server-wide K/G/D/Z
// lines, where channel is "").
func (a *Authority) GrantBan(uid, channel string) (BanToken, bool) {
	if channel == "" {
		if a.opers[uid] >= security.LevelNetOp {
			return BanToken{token{grantedTo: uid}}, true
		}
		return BanToken{}, false
	}
	if a.opers[uid] >= security.LevelNetOp {
		return BanToken{token{grantedTo: uid, scope: channel}}, true
	}
	if a.memberLevel != nil && a.memberLevel(uid, channel) {
		return BanToken{token{grantedTo: uid, scope: channel}}, true
	}
	return BanToken{}, false
}
