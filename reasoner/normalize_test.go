package reasoner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/tableau/config"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/ontology"
)

func registryOf(as ...ontology.Axiom) *Registry {
	r := NewRegistry()
	for _, a := range as {
		r.Add(a)
	}
	return r
}

func TestDefinitions(t *testing.T) {
	r := ontology.Role("r")
	some := func(name string) ontology.ClassExpr { return ontology.Some(r, ontology.Class(name)) }
	reg := registryOf(
		ontology.Equivalent(ontology.Class("A"), some("B")),
		ontology.Equivalent(ontology.Class("B"), some("A")),
		ontology.Equivalent(ontology.Class("C"), some("D")),
		ontology.Sub(ontology.Class("C"), ontology.Class("E")),
		ontology.Equivalent(some("G"), ontology.Class("F")),
		ontology.Equivalent(ontology.Class("H"), some("F")),
		ontology.Equivalent(ontology.Class("I"), ontology.Class("J")),
	)
	defs := definitions(reg.snapshot(), reg.Handles())
	assert.Equal(t, map[string]int{"F": 5, "H": 6}, defs)
}

func TestNormalizeAbsorption(t *testing.T) {
	a, b, c := ontology.Class("A"), ontology.Class("B"), ontology.Class("C")
	reg := registryOf(
		ontology.Sub(ontology.And(a, b), c),
		ontology.Sub(ontology.Some(ontology.Role("r"), a), c),
		ontology.Sub(ontology.Thing(), ontology.Or(a, b)),
		ontology.Axiom{Kind: ontology.FunctionalRole, Role: "r"},
	)

	s, err := normalize(reg, absorptionOf(config.DefaultConfig()), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.absorbed)
	assert.Equal(t, 3, s.gcis)

	abp, ok := s.symbols.Class("A")
	require.True(t, ok)
	told := s.tbox.Told(abp)
	require.Len(t, told, 1)
	assert.Equal(t, 1, told[0].Axiom)
	assert.Equal(t, dag.KindOr, s.dag.Kind(told[0].BP))

	s, err = normalize(reg, absorption{}, nil)
	require.NoError(t, err)
	assert.Zero(t, s.absorbed)
	assert.Equal(t, 4, s.gcis)
	assert.Empty(t, s.tbox.Told(abp))
}

func TestNormalizeRoles(t *testing.T) {
	reg := registryOf(
		ontology.Axiom{Kind: ontology.SubRoleOf, Role: "hasSon", SuperRole: "hasChild"},
		ontology.Axiom{Kind: ontology.InverseRoles, Role: "hasChild", InverseOf: "hasParent"},
		ontology.Axiom{Kind: ontology.TransitiveRole, Role: "hasDescendant"},
		ontology.Sub(ontology.Class("A"), ontology.Only(ontology.Inv("hasSon"), ontology.Class("B"))),
	)
	s, err := normalize(reg, absorptionOf(config.DefaultConfig()), nil)
	require.NoError(t, err)
	box := s.dag.Roles()
	son, _ := s.symbols.Role("hasSon")
	child, _ := s.symbols.Role("hasChild")
	par, _ := s.symbols.Role("hasParent")
	assert.True(t, box.IsSubRole(son, child))
	assert.True(t, box.IsSubRole(son.Inverse(), par))
	assert.True(t, box.HasInverse())
	desc, _ := s.symbols.Role("hasDescendant")
	assert.True(t, box.IsTransitive(desc))
	assert.Equal(t, 4, s.symbols.RoleCount())
}

func TestNormalizeErrors(t *testing.T) {
	lo := int64(1)
	cases := map[string]ontology.Axiom{
		"object role with range": ontology.Sub(ontology.Class("A"),
			ontology.ClassExpr{Op: ontology.OpSome, Role: &ontology.RoleExpr{Name: "r"}, Range: &ontology.DataRange{Datatype: "xsd:string"}}),
		"unknown datatype": ontology.Sub(ontology.Class("A"),
			ontology.DataSome("d", ontology.DataRange{Datatype: "xsd:dateTime"})),
		"bounded string": ontology.Sub(ontology.Class("A"),
			ontology.DataSome("d", ontology.DataRange{Datatype: "xsd:string", Min: &lo})),
		"inverse data role": ontology.Sub(ontology.Class("A"),
			ontology.ClassExpr{Op: ontology.OpValue, Role: &ontology.RoleExpr{Name: "d", Inverse: true},
				Value: &ontology.Literal{Datatype: "xsd:string", Value: "x"}}),
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			reg := registryOf(ontology.Axiom{Kind: ontology.DeclareRole, Role: "r"}, a)
			_, err := normalize(reg, absorptionOf(config.DefaultConfig()), nil)
			assert.Error(t, err)
		})
	}
}

func TestToldClosure(t *testing.T) {
	const a, b, c, d dag.BP = 2, 3, 4, 5
	tc := newToldClosure()
	tc.add(a, b, 1)
	tc.add(b, c, 2)
	tc.add(c, d, 3)
	tc.add(a, d, 4)
	tc.add(a, a, 5)
	tc.saturate()

	chain, ok := tc.Subsumes(a, d)
	assert.True(t, ok)
	assert.Equal(t, []int{4}, chain)

	chain, ok = tc.Subsumes(a, c)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, chain)

	_, ok = tc.Subsumes(c, a)
	assert.False(t, ok)
	_, ok = tc.Subsumes(d, a)
	assert.False(t, ok)

	chain, ok = tc.Subsumes(d, dag.Top)
	assert.True(t, ok)
	assert.Empty(t, chain)

	assert.Equal(t, 6, tc.Len())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	h1 := r.Add(ontology.Sub(ontology.Class("A"), ontology.Class("B")))
	h2 := r.Add(ontology.Sub(ontology.Class("B"), ontology.Class("C")))
	assert.Equal(t, 1, h1)
	assert.Equal(t, []int{1, 2}, r.Handles())
	assert.True(t, r.Remove(h1))
	assert.False(t, r.Remove(h1))
	h3 := r.Add(ontology.Sub(ontology.Class("C"), ontology.Class("D")))
	assert.Equal(t, []int{h2, h3}, r.Handles())
	assert.Equal(t, 2, r.Len())
	_, ok := r.Get(h1)
	assert.False(t, ok)
}
