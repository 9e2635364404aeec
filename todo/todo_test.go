package todo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/tableau/ctree"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
)

func entry(n int) Entry { return Entry{Node: ctree.NodeID(n), BP: dag.BP(n + 2)} }

func drain(l *List) []ctree.NodeID {
	var out []ctree.NodeID
	for {
		e, ok := l.Pop()
		if !ok {
			return out
		}
		out = append(out, e.Node)
	}
}

func TestParsePriorities(t *testing.T) {
	p, err := ParsePriorities(DefaultPriorities)
	require.NoError(t, err)
	assert.Equal(t, Priorities{1, 2, 6, 3, 0, 0, 5}, p)
	assert.Equal(t, DefaultPriorities, p.String())

	for _, bad := range []string{"", "126300", "12630051", "1263007", "12a3005"} {
		_, err := ParsePriorities(bad)
		assert.Error(t, err, bad)
	}
}

func TestPriorityOrderAndFIFO(t *testing.T) {
	p, _ := ParsePriorities(DefaultPriorities)
	l := New(p)
	l.Push(Or, entry(1))
	l.Push(Exists, entry(2))
	l.Push(Id, entry(3))
	l.Push(Forall, entry(4))
	l.Push(LE, entry(5))
	l.Push(Id, entry(6))
	l.Push(GE, entry(7))
	l.Push(And, entry(8))
	assert.Equal(t, 8, l.Len())

	// F and L share priority 0 and keep insertion order
	assert.Equal(t, []ctree.NodeID{4, 5, 3, 6, 8, 2, 7, 1}, drain(l))
	assert.Zero(t, l.Len())
}

func TestSaveRestore(t *testing.T) {
	p, _ := ParsePriorities(DefaultPriorities)
	l := New(p)
	l.Push(And, entry(1))
	l.Push(And, entry(2))
	l.Push(Or, entry(3))

	e, _ := l.Pop()
	require.Equal(t, ctree.NodeID(1), e.Node)

	l.Save()
	assert.Equal(t, 1, l.Level())
	l.Push(And, Entry{Node: 9, Dep: dep.New(1)})
	e, _ = l.Pop()
	assert.Equal(t, ctree.NodeID(2), e.Node)

	l.Save()
	l.Push(Forall, entry(10))
	assert.Equal(t, []ctree.NodeID{10, 9, 3}, drain(l))

	l.Restore(1)
	assert.Equal(t, []ctree.NodeID{9, 3}, drain(l))

	l.Restore(0)
	assert.Equal(t, []ctree.NodeID{2, 3}, drain(l))
	assert.PanicsWithValue(t, Fault{Op: "restore", Msg: "level 1 outside [0,0]"}, func() { l.Restore(1) })
}

func TestClassOf(t *testing.T) {
	rb := dag.NewRoleBox()
	r, _ := rb.Object("R")
	rb.Finalize()
	d := dag.New(rb)
	a, b := d.Name("A"), d.Name("B")

	cases := map[dag.BP]Class{
		a:                  Id,
		-a:                 Id,
		d.And(a, b):        And,
		d.Or(a, b):         Or,
		d.Exists(r, a):     Exists,
		d.Forall(r, a):     Forall,
		d.AtMost(2, r, a):  LE,
		d.AtLeast(2, r, a): GE,
	}
	for bp, want := range cases {
		got, ok := ClassOf(d, bp)
		require.True(t, ok, d.String(bp))
		assert.Equal(t, want, got, d.String(bp))
	}
	_, ok := ClassOf(d, dag.Top)
	assert.False(t, ok)
}
