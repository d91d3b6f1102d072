package s2s

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOlderSignonWinsCollision(t *testing.T) {
	assert.Equal(t, CollisionKeepLocal, ResolveCollision(100, 200, false, nil))
	assert.Equal(t, CollisionKeepRemote, ResolveCollision(200, 100, false, nil))
}

func TestEqualSignonKillsBoth(t *testing.T) {
	assert.Equal(t, CollisionKillBoth, ResolveCollision(100, 100, false, nil))
}

func TestSameUIDIsAlwaysFatalRegardlessOfTimestamps(t *testing.T) {
	assert.Equal(t, CollisionFatal, ResolveCollision(100, 100, true, nil))
	assert.Equal(t, CollisionFatal, ResolveCollision(50, 200, true, OlderWins))
}

func TestCustomCollisionRuleIsHonored(t *testing.T) {
	alwaysRemote := func(local, remote int64) CollisionOutcome { return CollisionKeepRemote }
	assert.Equal(t, CollisionKeepRemote, ResolveCollision(1, 2, false, alwaysRemote))
}
