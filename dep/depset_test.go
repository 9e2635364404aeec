package dep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNormalizes(t *testing.T) {
	s := New(3, 1, 3, 0, -2, 2)
	assert.Equal(t, []int{1, 2, 3}, s.Levels())
	assert.Equal(t, 3, s.Max())
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(4))
}

func TestEmptySet(t *testing.T) {
	var s Set
	assert.True(t, s.Empty())
	assert.True(t, s.Unconditional())
	assert.Equal(t, 0, s.Max())
	assert.Equal(t, "{}", s.String())
	assert.True(t, Level(0).Empty())
}

func TestUnion(t *testing.T) {
	a := New(1, 4).Union(Axiom(7))
	b := New(2, 4).Union(Axiom(3))
	u := a.Union(b)
	assert.Equal(t, []int{1, 2, 4}, u.Levels())
	assert.Equal(t, []int{3, 7}, u.Axioms())
	assert.Equal(t, "{1,2,4|ax:3,7}", u.String())

	// operands are not modified
	assert.Equal(t, []int{1, 4}, a.Levels())
	assert.Equal(t, []int{2, 4}, b.Levels())

	assert.True(t, a.Union(Set{}).Equal(a))
	assert.True(t, Set{}.Union(b).Equal(b))
}

func TestUnionSubset(t *testing.T) {
	a := New(1, 2, 3)
	assert.True(t, a.Union(New(2)).Equal(a))
	assert.True(t, New(2).Union(a).Equal(a))
}

func TestRestrict(t *testing.T) {
	s := New(1, 3, 5).Union(Axiom(9))
	r := s.Restrict(3)
	assert.Equal(t, []int{1}, r.Levels())
	assert.Equal(t, []int{9}, r.Axioms())
	assert.Equal(t, 1, r.Max())

	assert.True(t, s.Restrict(10).Equal(s))
	assert.True(t, s.Restrict(1).Unconditional())
	assert.False(t, s.Restrict(1).Empty())
}

func TestRange(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Range(3).Levels())
	assert.True(t, Range(0).Empty())
}
