// Package dep implements dependency sets: the branching points and axioms a
// derived fact depends on.
package dep

import (
	"sort"
	"strconv"
	"strings"
)

// Set is an immutable set of branching levels plus the axiom handles that
// contributed to a fact. The zero value is the empty set, meaning the fact
// holds unconditionally.
//
// Levels are positive; level N is the Nth open branching point of the
// current search. Axioms are opaque handles assigned by the caller.
type Set struct {
	levels []int
	axioms []int
}

// New returns a set holding the given branching levels.
func New(levels ...int) Set {
	return Set{levels: normalize(levels)}
}

// Level returns the singleton set {level}.
func Level(level int) Set {
	if level <= 0 {
		return Set{}
	}
	return Set{levels: []int{level}}
}

// Axiom returns a set carrying only the given axiom handle.
func Axiom(id int) Set {
	return Set{axioms: []int{id}}
}

// Range returns the set {1, ..., upTo}.
func Range(upTo int) Set {
	if upTo <= 0 {
		return Set{}
	}
	ls := make([]int, upTo)
	for i := range ls {
		ls[i] = i + 1
	}
	return Set{levels: ls}
}

func normalize(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if x > 0 {
			out = append(out, x)
		}
	}
	sort.Ints(out)
	return dedupSorted(out)
}

func dedupSorted(xs []int) []int {
	if len(xs) < 2 {
		return xs
	}
	j := 1
	for i := 1; i < len(xs); i++ {
		if xs[i] != xs[j-1] {
			xs[j] = xs[i]
			j++
		}
	}
	return xs[:j]
}

// Empty reports whether the set has neither levels nor axioms.
func (s Set) Empty() bool {
	return len(s.levels) == 0 && len(s.axioms) == 0
}

// Unconditional reports whether the set holds no branching levels.
func (s Set) Unconditional() bool {
	return len(s.levels) == 0
}

// Max returns the largest branching level in the set, or 0.
func (s Set) Max() int {
	if len(s.levels) == 0 {
		return 0
	}
	return s.levels[len(s.levels)-1]
}

// Contains reports whether level is in the set.
func (s Set) Contains(level int) bool {
	i := sort.SearchInts(s.levels, level)
	return i < len(s.levels) && s.levels[i] == level
}

// Levels returns a copy of the branching levels, ascending.
func (s Set) Levels() []int {
	return append([]int(nil), s.levels...)
}

// Axioms returns a copy of the axiom handles, ascending.
func (s Set) Axioms() []int {
	return append([]int(nil), s.axioms...)
}

// Union returns s ∪ o. Either operand is returned as is when the other adds
// nothing, so repeated unions along a derivation chain rarely allocate.
func (s Set) Union(o Set) Set {
	if o.Empty() {
		return s
	}
	if s.Empty() {
		return o
	}
	return Set{
		levels: mergeSorted(s.levels, o.levels),
		axioms: mergeSorted(s.axioms, o.axioms),
	}
}

// Restrict drops every level >= level. Axioms are kept.
func (s Set) Restrict(level int) Set {
	i := sort.SearchInts(s.levels, level)
	if i == len(s.levels) {
		return s
	}
	return Set{levels: s.levels[:i:i], axioms: s.axioms}
}

func mergeSorted(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	if len(out) == len(a) {
		return a
	}
	if len(out) == len(b) {
		return b
	}
	return out
}

// Equal reports whether both sets hold the same levels and axioms.
func (s Set) Equal(o Set) bool {
	return intsEqual(s.levels, o.levels) && intsEqual(s.axioms, o.axioms)
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range s.levels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(l))
	}
	if len(s.axioms) > 0 {
		b.WriteString("|ax:")
		for i, a := range s.axioms {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(a))
		}
	}
	b.WriteByte('}')
	return b.String()
}
