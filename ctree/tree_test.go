package ctree

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
)

type fixture struct {
	d     *dag.DAG
	r     dag.Role
	names []dag.BP
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	rb := dag.NewRoleBox()
	r, err := rb.Object("R")
	require.NoError(t, err)
	rb.Finalize()
	d := dag.New(rb)
	f := fixture{d: d, r: r}
	for _, n := range []string{"A", "B", "C", "D", "E"} {
		f.names = append(f.names, d.Name(n))
	}
	return f
}

func TestCreateAndLabel(t *testing.T) {
	f := newFixture(t)
	tr := New(f.d, Options{})
	root := tr.CreateNode()
	a, b := f.names[0], f.names[1]
	all := f.d.Forall(f.r, b)

	assert.True(t, tr.AddConcept(root, a, dep.Level(0)))
	assert.True(t, tr.AddConcept(root, all, dep.New(1)))
	assert.False(t, tr.AddConcept(root, a, dep.New(2)))

	n := tr.Node(root)
	assert.Len(t, n.Simple(), 1)
	assert.Len(t, n.Complex(), 1)
	assert.True(t, n.IsLabelledBy(all))
	assert.False(t, n.IsLabelledBy(-a))

	d, ok := tr.Lookup(root, all)
	require.True(t, ok)
	assert.Equal(t, []int{1}, d.Levels())
	assert.Equal(t, 2, n.LabelSize())
}

func TestEdgesAndParent(t *testing.T) {
	f := newFixture(t)
	tr := New(f.d, Options{})
	root := tr.CreateNode()
	kid := tr.CreateNode()
	arc := tr.AddEdge(root, kid, f.r, dep.Set{})

	assert.True(t, arc.Succ)
	assert.Equal(t, kid, arc.End)
	assert.Equal(t, f.r.Inverse(), arc.Reverse().Role)
	assert.False(t, tr.hasParent(tr.Node(root)))
	assert.True(t, tr.hasParent(tr.Node(kid)))
	assert.Equal(t, root, tr.parentNode(tr.Node(kid)).ID())

	loop := tr.AddEdge(kid, kid, f.r, dep.Set{})
	assert.True(t, loop.Reflexive)
	assert.Len(t, tr.Node(kid).Neighbours(), 3)
	assert.Equal(t, root, tr.parentNode(tr.Node(kid)).ID())

	tr.SetNominalLevel(kid, 0)
	assert.False(t, tr.hasParent(tr.Node(kid)))
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	tr := New(f.d, Options{})
	root := tr.CreateNode()
	tr.AddConcept(root, f.names[0], dep.Set{})

	var snaps [][]NodeView
	var arcs []*Arc
	for level := 1; level <= 4; level++ {
		snaps = append(snaps, tr.Snapshot())
		tr.Save()
		require.Equal(t, level, tr.Level())

		kid := tr.CreateNode()
		arcs = append(arcs, tr.AddEdge(root, kid, f.r, dep.Level(level)))
		tr.AddConcept(kid, f.names[level%len(f.names)], dep.Level(level))
		tr.AddConcept(root, f.names[level], dep.Level(level))
		tr.InitIR(root, level, dep.Level(level))
		if level == 3 {
			tr.InvalidateArc(arcs[0])
			tr.Purge(NodeID(1), root, dep.Level(level))
		}
	}
	require.Equal(t, 5, tr.Len())

	tr.Restore(3)
	assert.Empty(t, cmp.Diff(snaps[3], tr.Snapshot()))
	assert.Equal(t, 4, tr.Len())
	assert.False(t, arcs[0].Valid())
	assert.Equal(t, Purged, tr.Node(1).Status().Kind)

	tr.Restore(2)
	assert.Empty(t, cmp.Diff(snaps[2], tr.Snapshot()))
	assert.True(t, arcs[0].Valid())
	assert.Equal(t, Unblocked, tr.Node(1).Status().Kind)

	tr.Restore(1)
	assert.Empty(t, cmp.Diff(snaps[1], tr.Snapshot()))

	tr.Restore(0)
	assert.Empty(t, cmp.Diff(snaps[0], tr.Snapshot()))
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, 0, tr.Level())

	// recycled slot starts clean
	kid := tr.CreateNode()
	assert.Zero(t, tr.Node(kid).LabelSize())
	assert.Empty(t, tr.Node(kid).Neighbours())
}

func TestRestoreFaults(t *testing.T) {
	f := newFixture(t)
	tr := New(f.d, Options{})
	tr.CreateNode()
	assert.Panics(t, func() { tr.Restore(1) })
	assert.Panics(t, func() { tr.Node(3) })
	assert.NotPanics(t, func() { tr.Restore(0) })
}

// Both trimming policies must leave identical trees after any restore,
// and both must match the state recorded at the matching save.
func TestTrimPoliciesAgree(t *testing.T) {
	f := newFixture(t)
	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		exact := New(f.d, Options{Trim: TrimExact})
		byLevel := New(f.d, Options{Trim: TrimByLevel})
		trees := []*Tree{exact, byLevel}
		for _, tr := range trees {
			tr.CreateNode()
		}
		var saved [][]NodeView

		for step := 0; step < 300; step++ {
			op := rng.Intn(7)
			n := NodeID(rng.Intn(exact.Len()))
			m := NodeID(rng.Intn(exact.Len()))
			c := f.names[rng.Intn(len(f.names))]
			if rng.Intn(2) == 0 {
				c = -c
			}
			pick := rng.Intn(16)
			target := rng.Intn(exact.Level() + 1)

			if op == 5 {
				saved = append(saved, exact.Snapshot())
			}
			for _, tr := range trees {
				switch op {
				case 0, 1:
					k := tr.CreateNode()
					tr.AddEdge(n, k, f.r, dep.Level(tr.Level()))
				case 2:
					tr.AddConcept(n, c, dep.Level(tr.Level()))
				case 3:
					tr.AddEdge(n, m, f.r, dep.Set{})
				case 4:
					if as := tr.Node(n).Neighbours(); len(as) > 0 {
						tr.InvalidateArc(as[pick%len(as)])
					}
				case 5:
					tr.Save()
				case 6:
					tr.InitIR(n, pick, dep.Level(tr.Level()))
					if target < tr.Level() {
						tr.Restore(target)
					}
				}
			}
			if op == 6 && target < len(saved) {
				require.Empty(t, cmp.Diff(saved[target], exact.Snapshot()), "seed %d step %d", seed, step)
				saved = saved[:target]
			}
			require.Empty(t, cmp.Diff(exact.Snapshot(), byLevel.Snapshot()), "seed %d step %d", seed, step)
		}
	}
}

func TestInequalityRelation(t *testing.T) {
	f := newFixture(t)
	tr := New(f.d, Options{})
	x, y, z := tr.CreateNode(), tr.CreateNode(), tr.CreateNode()

	assert.False(t, tr.InitIR(x, 7, dep.New(1)))
	assert.True(t, tr.InitIR(x, 7, dep.New(2)))
	assert.False(t, tr.InitIR(y, 7, dep.New(3)))

	ok, d := tr.NonMergable(x, y)
	require.True(t, ok)
	assert.Equal(t, []int{1, 3}, d.Levels())

	ok, _ = tr.NonMergable(x, z)
	assert.False(t, ok)

	tr.Save()
	tr.UpdateIR(z, y, dep.New(4))
	ok, d = tr.NonMergable(z, x)
	require.True(t, ok)
	assert.Equal(t, []int{1, 3, 4}, d.Levels())

	tr.Restore(0)
	ok, _ = tr.NonMergable(z, x)
	assert.False(t, ok)
}

func TestResolvePBlocker(t *testing.T) {
	f := newFixture(t)
	tr := New(f.d, Options{})
	a, b, c := tr.CreateNode(), tr.CreateNode(), tr.CreateNode()
	kid := tr.CreateNode()
	tr.AddEdge(a, kid, f.r, dep.Set{})

	tr.Purge(a, b, dep.New(1))
	tr.Purge(b, c, dep.New(2))

	to, d := tr.ResolvePBlocker(a)
	assert.Equal(t, c, to)
	assert.Equal(t, []int{1, 2}, d.Levels())
	assert.Equal(t, Purged, tr.Node(kid).Status().Kind)
	assert.Equal(t, 3, tr.Count(Purged))

	to, d = tr.ResolvePBlocker(c)
	assert.Equal(t, c, to)
	assert.True(t, d.Empty())
}
