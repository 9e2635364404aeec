package tableau

import (
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
)

// Told is a concept a name implies together with the axiom saying so.
// Axiom 0 marks an internal consequence with no source axiom.
type Told struct {
	BP    dag.BP
	Axiom int
}

func (t Told) dep(d dep.Set) dep.Set { return withAxiom(d, t.Axiom) }

func withAxiom(d dep.Set, axiom int) dep.Set {
	if axiom == 0 {
		return d
	}
	return d.Union(dep.Axiom(axiom))
}

// Individual is an ABox individual and the concepts asserted for it.
type Individual struct {
	Name     string
	Concepts []Told
}

// RoleAssertion is R(From, To) between individuals.
type RoleAssertion struct {
	From, To int
	Role     dag.Role
	Axiom    int
}

// Different states that a set of individuals are pairwise distinct.
type Different struct {
	Individuals []int
	Axiom       int
}

// TBox holds the absorbed terminology and the assertions in the form the
// expansion rules consume. Vertex-indexed slices grow with the DAG.
type TBox struct {
	// pos[A] lists C for A ⊑ C. Fires when A enters a label.
	pos [][]Told

	// neg[A] lists ¬C for A ≡ C when A is defined. Fires on ¬A.
	neg [][]Told

	// gcis are added to every object node.
	gcis []Told

	individuals []Individual
	byName      map[string]int
	related     []RoleAssertion
	different   []Different
}

// NewTBox returns an empty TBox.
func NewTBox() *TBox {
	return &TBox{byName: make(map[string]int)}
}

// Grow expands the vertex-indexed slices to n entries.
func (t *TBox) Grow(n int) {
	for len(t.pos) < n {
		t.pos = append(t.pos, nil)
	}
	for len(t.neg) < n {
		t.neg = append(t.neg, nil)
	}
}

// AddTold records name ⊑ c; a negative name records ¬A ⊑ c.
func (t *TBox) AddTold(name, c dag.BP, axiom int) {
	i := int(name.Abs())
	t.Grow(i + 1)
	if name > 0 {
		t.pos[i] = append(t.pos[i], Told{BP: c, Axiom: axiom})
		return
	}
	t.neg[i] = append(t.neg[i], Told{BP: c, Axiom: axiom})
}

// AddGCI records ⊤ ⊑ c.
func (t *TBox) AddGCI(c dag.BP, axiom int) {
	if c == dag.Top {
		return
	}
	t.gcis = append(t.gcis, Told{BP: c, Axiom: axiom})
}

// Told returns what bp (a name or a negated name) implies.
func (t *TBox) Told(bp dag.BP) []Told {
	i := int(bp.Abs())
	if bp > 0 {
		if i < len(t.pos) {
			return t.pos[i]
		}
		return nil
	}
	if i < len(t.neg) {
		return t.neg[i]
	}
	return nil
}

// GCIs returns the internalised general inclusions.
func (t *TBox) GCIs() []Told { return t.gcis }

// Individual interns an ABox individual.
func (t *TBox) Individual(name string) int {
	if i, ok := t.byName[name]; ok {
		return i
	}
	t.individuals = append(t.individuals, Individual{Name: name})
	t.byName[name] = len(t.individuals) - 1
	return len(t.individuals) - 1
}

// LookupIndividual returns the index of a known individual.
func (t *TBox) LookupIndividual(name string) (int, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// Individuals returns the ABox individuals.
func (t *TBox) Individuals() []Individual { return t.individuals }

// AddConceptAssertion records C(a).
func (t *TBox) AddConceptAssertion(ind int, c dag.BP, axiom int) {
	t.individuals[ind].Concepts = append(t.individuals[ind].Concepts, Told{BP: c, Axiom: axiom})
}

// AddRoleAssertion records R(a, b).
func (t *TBox) AddRoleAssertion(from, to int, r dag.Role, axiom int) {
	t.related = append(t.related, RoleAssertion{From: from, To: to, Role: r, Axiom: axiom})
}

// AddDifferent records that the given individuals are pairwise distinct.
func (t *TBox) AddDifferent(inds []int, axiom int) {
	t.different = append(t.different, Different{Individuals: inds, Axiom: axiom})
}

// HasABox reports whether any individual was declared.
func (t *TBox) HasABox() bool { return len(t.individuals) > 0 }
