package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/tableau/datatype"
)

func newGraph(t *testing.T, setup func(*RoleBox)) (*DAG, Role) {
	t.Helper()
	rb := NewRoleBox()
	r, err := rb.Object("R")
	require.NoError(t, err)
	if setup != nil {
		setup(rb)
	}
	rb.Finalize()
	return New(rb), r
}

func TestHashConsingIdempotent(t *testing.T) {
	d, r := newGraph(t, nil)
	a, b, c := d.Name("A"), d.Name("B"), d.Name("C")

	assert.Equal(t, a, d.Name("A"))
	assert.Equal(t, d.And(a, b, c), d.And(c, d.And(b, a)))
	assert.Equal(t, d.And(a, b), d.And(b, a, b, Top))
	assert.Equal(t, d.Or(a, b), d.AddVertex(Desc{Op: OpOr, Args: []BP{b, a}}))
	assert.Equal(t, d.Exists(r, a), d.AddVertex(Desc{Op: OpExists, Role: r, C: a}))
	assert.Equal(t, d.AtLeast(2, r, a), d.AtLeast(2, r, a))

	n := d.Len()
	d.And(a, b)
	d.Forall(r, c)
	d.Forall(r, c)
	assert.Equal(t, n+1, d.Len())
}

func TestCanonicalForms(t *testing.T) {
	d, r := newGraph(t, nil)
	a, b := d.Name("A"), d.Name("B")

	assert.Equal(t, Bottom, d.And(a, -a))
	assert.Equal(t, Bottom, d.And(a, Bottom))
	assert.Equal(t, Top, d.And())
	assert.Equal(t, a, d.And(a, Top))
	assert.Equal(t, Top, d.Or(a, -a))
	assert.Equal(t, -d.And(-a, -b), d.Or(a, b))
	assert.Equal(t, -d.Forall(r, -a), d.Exists(r, a))
	assert.Equal(t, d.Exists(r, a), d.AtLeast(1, r, a))
	assert.Equal(t, Top, d.AtLeast(0, r, a))
	assert.Equal(t, d.Forall(r, -a), d.AtMost(0, r, a))
	assert.Equal(t, Top, d.Forall(r, Top))
	assert.Equal(t, Bottom, d.Exists(r, Bottom))
	assert.Equal(t, Top, d.AtMost(3, r, Bottom))
	assert.Equal(t, -a, d.AddVertex(Desc{Op: OpNot, C: a}))
}

func TestKinds(t *testing.T) {
	d, r := newGraph(t, nil)
	a, b := d.Name("A"), d.Name("B")
	integer, err := datatype.Known(datatype.Integer)
	require.NoError(t, err)

	cases := []struct {
		bp      BP
		kind    Kind
		complex bool
	}{
		{Top, KindTop, false},
		{Bottom, KindBottom, false},
		{a, KindName, false},
		{-a, KindNotName, false},
		{d.And(a, b), KindAnd, true},
		{d.Or(a, b), KindOr, true},
		{d.Forall(r, a), KindForall, true},
		{d.Exists(r, a), KindExists, true},
		{d.AtMost(2, r, a), KindAtMost, true},
		{d.AtLeast(2, r, a), KindAtLeast, true},
		{d.DataType(integer), KindDataType, false},
		{-d.DataValue(datatype.Literal{Datatype: datatype.Integer, Value: "1"}), KindNotDataValue, false},
	}
	for _, tc := range cases {
		t.Run(d.String(tc.bp), func(t *testing.T) {
			assert.Equal(t, tc.kind, d.Kind(tc.bp))
			assert.Equal(t, tc.complex, d.IsComplex(tc.bp))
		})
	}
	assert.True(t, d.HasNumberRestrictions())
}

func TestFaultOnBadIndex(t *testing.T) {
	d, _ := newGraph(t, nil)
	assert.PanicsWithValue(t, Fault{Op: "get", BP: 99, Msg: "index out of range"}, func() { d.Get(99) })
	assert.Panics(t, func() { d.Get(Invalid) })
	assert.PanicsWithValue(t, Fault{Op: "and", BP: 42, Msg: "operand out of range"}, func() { d.And(42) })

	open := New(NewRoleBox())
	assert.Panics(t, func() { open.Forall(0, Top) })
}

func TestRoleClosure(t *testing.T) {
	rb := NewRoleBox()
	p, _ := rb.Object("partOf")
	q, _ := rb.Object("componentOf")
	s, _ := rb.Object("has")
	u, _ := rb.Data("age")
	require.NoError(t, rb.AddSuper(q, p))
	require.NoError(t, rb.SetTransitive(p))
	require.NoError(t, rb.AddInverse(s, p))
	assert.Error(t, rb.AddSuper(u, p))
	rb.Finalize()

	assert.True(t, rb.IsSubRole(q, p))
	assert.True(t, rb.IsSubRole(q.Inverse(), p.Inverse()))
	assert.False(t, rb.IsSubRole(p, q))
	assert.True(t, rb.IsSubRole(s, p.Inverse()))
	assert.True(t, rb.IsSubRole(p.Inverse(), s))
	// s is equivalent to inv(partOf) and so transitive
	assert.True(t, rb.IsTransitive(s))
	assert.Contains(t, rb.TransitiveSubRoles(p), p)
	assert.NotContains(t, rb.TransitiveSubRoles(q), p)
	assert.True(t, rb.HasInverse())
	assert.Equal(t, "inv(partOf)", rb.Name(p.Inverse()))
	assert.True(t, rb.IsData(u))

	assert.Panics(t, func() { _ = rb.SetTransitive(q) })
}

func TestTransitiveForall(t *testing.T) {
	d, r := newGraph(t, func(rb *RoleBox) {
		s, _ := rb.Object("S")
		r, _ := rb.Lookup("R")
		_ = rb.AddSuper(s, r)
		_ = rb.SetTransitive(s)
	})
	s, _ := d.Roles().Lookup("S")
	a := d.Name("A")

	all := d.Forall(r, a)
	trans := d.Get(all).Trans
	require.Len(t, trans, 1)
	assert.Equal(t, s, trans[0].Role)
	assert.Equal(t, d.Forall(s, a), trans[0].BP)

	// ∀S.A propagates itself along S
	self := d.Get(trans[0].BP).Trans
	require.Len(t, self, 1)
	assert.Equal(t, trans[0].BP, self[0].BP)

	assert.Len(t, d.Get(d.Forall(s.Inverse(), a)).Trans, 1)
}

func TestString(t *testing.T) {
	d, r := newGraph(t, nil)
	a, b := d.Name("A"), d.Name("B")
	assert.Equal(t, "(A ⊔ ¬B)", d.String(d.Or(a, -b)))
	assert.Equal(t, "∃R.A", d.String(d.Exists(r, a)))
	assert.Equal(t, "≥3 R.B", d.String(d.AtLeast(3, r, b)))
}
