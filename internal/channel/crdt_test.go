package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLWWRegisterHigherTimestampWins(t *testing.T) {
	a := LWWRegister{Value: "old topic", TS: 10, SID: "001"}
	b := LWWRegister{Value: "new topic", TS: 20, SID: "002"}

	assert.Equal(t, b, a.Merge(b))
	assert.Equal(t, b, b.Merge(a))
}

func TestLWWRegisterTieBreaksByValueThenSID(t *testing.T) {
	a := LWWRegister{Value: "aaa", TS: 10, SID: "001"}
	b := LWWRegister{Value: "bbb", TS: 10, SID: "000"}

	assert.Equal(t, b, a.Merge(b)) // "bbb" > "aaa" lexicographically

	c := LWWRegister{Value: "same", TS: 10, SID: "001"}
	d := LWWRegister{Value: "same", TS: 10, SID: "002"}
	assert.Equal(t, d, c.Merge(d))
}

func TestAWSetAddThenRemove(t *testing.T) {
	s := NewAWSet[string]()
	s.Add("*!*@bad.example", 10)
	assert.True(t, s.Present("*!*@bad.example"))

	s.Remove("*!*@bad.example", 20)
	assert.False(t, s.Present("*!*@bad.example"))
}

func TestAWSetConcurrentAddWins(t *testing.T) {
	s := NewAWSet[string]()
	s.Add("alice", 10)
	s.Remove("alice", 5) // remove observed before this add: add wins
	assert.True(t, s.Present("alice"))
}

func TestAWSetMergeIsIdempotentAndCommutative(t *testing.T) {
	a := NewAWSet[string]()
	a.Add("ban1", 1)
	b := NewAWSet[string]()
	b.Add("ban1", 1)
	b.Remove("ban1", 5)

	merged1 := NewAWSet[string]()
	merged1.Merge(a)
	merged1.Merge(b)

	merged2 := NewAWSet[string]()
	merged2.Merge(b)
	merged2.Merge(a)
	merged2.Merge(a) // replay: idempotent

	assert.Equal(t, merged1.Present("ban1"), merged2.Present("ban1"))
	assert.False(t, merged1.Present("ban1"))
}
