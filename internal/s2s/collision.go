package s2s

// CollisionOutcome is the result of resolving a nick collision between
// two introductions of the same nick from different sources, per spec
// section 4.6.4 / Scenario 3 of section 8.4.
type CollisionOutcome int

const (
	// CollisionKeepLocal: the local user's claim wins; the remote
	// introduction is rejected (a KILL is sent for the remote UID).
	CollisionKeepLocal CollisionOutcome = iota
	// CollisionKeepRemote: the remote user's claim wins; the local
	// session is killed.
	CollisionKeepRemote
	// CollisionKillBoth: signon times were equal; both are killed to
	// force both users to reconnect with a guaranteed-unique nick.
	CollisionKillBoth
	// CollisionFatal: same UID introduced from two different sources
	// with differing identity -- this is not a resolvable nick race,
	// it indicates a desynchronized network and the link itself must
	// be SQUIT per spec section 4.6.4.
	CollisionFatal
)

// CollisionRule picks the winner given two signon timestamps. It is a
// constructor parameter rather than a hardcoded rule because spec
// section 9 leaves "older wins" vs. other TS6 variants as an
// explicitly preserved Open Question; see DESIGN.md.
type CollisionRule func(localSignon, remoteSignon int64) CollisionOutcome

// OlderWins implements the default rule: the earlier signon timestamp
// (the user who claimed the nick first) survives. Equal timestamps
// kill both, since neither side can be preferred.
func OlderWins(localSignon, remoteSignon int64) CollisionOutcome {
	switch {
	case localSignon < remoteSignon:
		return CollisionKeepLocal
	case remoteSignon < localSignon:
		return CollisionKeepRemote
	default:
		return CollisionKillBoth
	}
}

// ResolveCollision applies rule (OlderWins if nil) to decide the
// outcome of a nick collision. sameUID signals the degenerate case
// from spec section 4.6.4: the same UID was introduced by two
// different sources, which is always CollisionFatal regardless of
// signon times.
func ResolveCollision(localSignon, remoteSignon int64, sameUID bool, rule CollisionRule) CollisionOutcome {
	if sameUID {
		return CollisionFatal
	}
	if rule == nil {
		rule = OlderWins
	}
	return rule(localSignon, remoteSignon)
}
