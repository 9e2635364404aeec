package ctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
)

// chain builds root -R-> x -R-> y and labels x and y with the given
// concepts.
func chain(tr *Tree, r dag.Role, xs, ys []dag.BP) (root, x, y NodeID) {
	root = tr.CreateNode()
	x = tr.CreateNode()
	tr.AddEdge(root, x, r, dep.Set{})
	y = tr.CreateNode()
	tr.AddEdge(x, y, r, dep.Set{})
	for _, c := range xs {
		tr.AddConcept(x, c, dep.Set{})
	}
	for _, c := range ys {
		tr.AddConcept(y, c, dep.Set{})
	}
	return root, x, y
}

func directlyBlocked(tr *Tree, id NodeID) bool {
	return tr.IsBlocked(id) && tr.Node(id).Status().Kind == Direct
}

func TestDirectAndIndirectBlocking(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		for _, anywhere := range []bool{false, true} {
			f := newFixture(t)
			a, b := f.names[0], f.names[1]
			tr := New(f.d, Options{Lazy: lazy, Anywhere: anywhere})
			root, x, y := chain(tr, f.r, []dag.BP{a, b}, []dag.BP{a})
			z := tr.CreateNode()
			tr.AddEdge(y, z, f.r, dep.Set{})
			tr.AddConcept(z, f.names[3], dep.Set{})

			assert.False(t, tr.IsBlocked(root))
			assert.False(t, tr.IsBlocked(x))
			require.True(t, directlyBlocked(tr, y))
			assert.Equal(t, x, tr.Node(y).Status().Blocker)
			assert.True(t, tr.IsBlocked(z))
			assert.Equal(t, Indirect, tr.Node(z).Status().Kind)
			assert.False(t, tr.isIllegallyDBlocked(tr.Node(y)))
			assert.Equal(t, 1, tr.Count(Direct))

			tr.Save()
			tr.AddConcept(y, f.names[2], dep.Level(1))
			assert.False(t, tr.IsBlocked(y), "lazy=%v anywhere=%v", lazy, anywhere)
			assert.False(t, tr.IsBlocked(z))

			tr.Restore(0)
			assert.True(t, directlyBlocked(tr, y))
			assert.True(t, tr.IsBlocked(z))
		}
	}
}

func TestInitConceptGuardsBlocker(t *testing.T) {
	f := newFixture(t)
	a, b := f.names[0], f.names[1]
	tr := New(f.d, Options{})
	_, _, y := chain(tr, f.r, []dag.BP{a}, []dag.BP{a})
	tr.SetInit(y, b)
	assert.False(t, tr.IsBlocked(y))
}

func TestAnywhereBlocking(t *testing.T) {
	f := newFixture(t)
	a := f.names[0]
	tr := New(f.d, Options{Anywhere: true})
	root := tr.CreateNode()
	left := tr.CreateNode()
	tr.AddEdge(root, left, f.r, dep.Set{})
	tr.AddConcept(left, a, dep.Set{})
	right := tr.CreateNode()
	tr.AddEdge(root, right, f.r, dep.Set{})
	tr.AddConcept(right, a, dep.Set{})

	assert.True(t, directlyBlocked(tr, right))
	assert.Equal(t, left, tr.Node(right).Status().Blocker)

	ancestor := New(f.d, Options{})
	root = ancestor.CreateNode()
	left = ancestor.CreateNode()
	ancestor.AddEdge(root, left, f.r, dep.Set{})
	right = ancestor.CreateNode()
	ancestor.AddEdge(root, right, f.r, dep.Set{})
	assert.False(t, ancestor.IsBlocked(right))
}

func TestSHIBlockingNeedsB2(t *testing.T) {
	f := newFixture(t)
	a, c := f.names[0], f.names[2]
	back := f.d.Forall(f.r.Inverse(), c)

	sh := New(f.d, Options{Logic: LogicSH})
	_, _, y := chain(sh, f.r, []dag.BP{a, back}, []dag.BP{a, back})
	assert.True(t, sh.IsBlocked(y))

	shi := New(f.d, Options{Logic: LogicSHI})
	_, x, y := chain(shi, f.r, []dag.BP{a, back}, []dag.BP{a, back})
	assert.False(t, shi.IsBlockedBySHI(y, x))
	assert.False(t, shi.IsBlocked(y))

	// y's ∀R⁻.C is satisfied at x once x carries C
	shi.AddConcept(x, c, dep.Set{})
	assert.True(t, shi.IsBlockedBySHI(y, x))
	assert.True(t, shi.IsBlocked(y))
}

func TestSHIQCardinality(t *testing.T) {
	f := newFixture(t)
	a := f.names[0]
	atLeast2 := f.d.AtLeast(2, f.r, a)

	tr := New(f.d, Options{Logic: LogicSHIQ})
	_, x, y := chain(tr, f.r, []dag.BP{atLeast2}, []dag.BP{atLeast2})
	assert.True(t, tr.IsBlockedBySH(y, x))
	assert.False(t, tr.IsBlockedBySHIQ(y, x))

	for i := 0; i < 2; i++ {
		k := tr.CreateNode()
		tr.AddEdge(y, k, f.r, dep.Set{})
		tr.AddConcept(k, a, dep.Set{})
	}
	assert.True(t, tr.IsBlockedBySHIQ(y, x))
	assert.True(t, directlyBlocked(tr, y))
}

func TestSHIQAtMostNeedsParentCheck(t *testing.T) {
	f := newFixture(t)
	a := f.names[0]
	atMost1 := f.d.AtMost(1, f.r.Inverse(), a)

	tr := New(f.d, Options{Logic: LogicSHIQ})
	_, x, y := chain(tr, f.r, []dag.BP{atMost1}, []dag.BP{atMost1})
	// the parent of y is an R⁻-neighbour neither labelled A nor ¬A
	assert.False(t, tr.IsBlockedBySHIQ(y, x))

	tr.AddConcept(x, -a, dep.Set{})
	assert.True(t, tr.IsBlockedBySHIQ(y, x))
}

func TestIllegallyBlocked(t *testing.T) {
	f := newFixture(t)
	a, b := f.names[0], f.names[1]
	tr := New(f.d, Options{})
	root := tr.CreateNode()
	w := tr.CreateNode()
	tr.AddEdge(root, w, f.r, dep.Set{})
	tr.AddConcept(w, a, dep.Set{})
	x := tr.CreateNode()
	tr.AddEdge(w, x, f.r, dep.Set{})
	tr.AddConcept(x, a, dep.Set{})
	tr.AddConcept(x, b, dep.Set{})
	y := tr.CreateNode()
	tr.AddEdge(x, y, f.r, dep.Set{})
	tr.AddConcept(y, a, dep.Set{})

	require.True(t, directlyBlocked(tr, y))
	assert.Equal(t, x, tr.Node(y).Status().Blocker)
	assert.False(t, tr.isIllegallyDBlocked(tr.Node(y)))

	// x becomes blocked by w, leaving y's block stale
	tr.AddConcept(w, b, dep.Set{})
	require.True(t, directlyBlocked(tr, x))
	assert.True(t, tr.isIllegallyDBlocked(tr.Node(y)))

	assert.True(t, tr.IsBlocked(y))
	assert.Equal(t, Indirect, tr.Node(y).Status().Kind)
	assert.False(t, tr.isIllegallyDBlocked(tr.Node(y)))
}

// The at-most condition of a blocker reads the labels of its successors,
// so a lazy check must notice when one of them changes.
func TestSuccessorChangeBreaksBlock(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		f := newFixture(t)
		a := f.names[0]
		atMost1 := f.d.AtMost(1, f.r.Inverse(), a)

		tr := New(f.d, Options{Logic: LogicSHIQ, Lazy: lazy})
		_, x, y := chain(tr, f.r, []dag.BP{a, atMost1}, []dag.BP{atMost1})
		k := tr.CreateNode()
		tr.AddEdge(x, k, f.r.Inverse(), dep.Set{})

		require.True(t, directlyBlocked(tr, y), "lazy=%v", lazy)
		assert.Equal(t, x, tr.Node(y).Status().Blocker)

		// x now has an R⁻-successor labelled A, which uses up ≤1 R⁻.A
		tr.AddConcept(k, a, dep.Set{})
		assert.False(t, tr.IsBlockedBySHIQ(y, x))
		assert.False(t, tr.IsBlocked(y), "lazy=%v", lazy)
	}
}
