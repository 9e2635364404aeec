package reasoner

import (
	"sort"

	"github.com/nodeadmin/tableau/dag"
)

// toldEdge is a stated atomic subsumption and the axiom stating it.
type toldEdge struct {
	to    dag.BP
	axiom int
}

// toldStep records how a super-class was first reached.
type toldStep struct {
	from  dag.BP
	axiom int
}

// toldContext holds the closure state of a single name.
type toldContext struct {
	// supers[B] is the step that first derived B, so that a shortest
	// chain of axioms can be read back.
	supers map[dag.BP]toldStep
}

// ToldClosure is the transitive closure of the subsumptions between names
// that the axioms state outright. It answers those subsumption queries
// without a tableau search; it is sound but not complete.
type ToldClosure struct {
	edges    map[dag.BP][]toldEdge
	contexts map[dag.BP]*toldContext
}

func newToldClosure() *ToldClosure {
	return &ToldClosure{
		edges:    make(map[dag.BP][]toldEdge),
		contexts: make(map[dag.BP]*toldContext),
	}
}

func (tc *ToldClosure) add(sub, sup dag.BP, axiom int) {
	if sub == sup {
		return
	}
	tc.edges[sub] = append(tc.edges[sub], toldEdge{to: sup, axiom: axiom})
}

// saturate computes the super-class set of every name with a breadth-first
// worklist, so each recorded chain is a shortest one.
func (tc *ToldClosure) saturate() {
	sources := make([]dag.BP, 0, len(tc.edges))
	for bp := range tc.edges {
		sources = append(sources, bp)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	for _, c := range sources {
		ctx := &toldContext{supers: map[dag.BP]toldStep{c: {}}}
		worklist := []dag.BP{c}
		for len(worklist) > 0 {
			d := worklist[0]
			worklist = worklist[1:]
			for _, e := range tc.edges[d] {
				if _, seen := ctx.supers[e.to]; seen {
					continue
				}
				ctx.supers[e.to] = toldStep{from: d, axiom: e.axiom}
				worklist = append(worklist, e.to)
			}
		}
		tc.contexts[c] = ctx
	}
}

// Subsumes reports whether sub ⊑ sup follows from told axioms alone and
// returns the handles of one shortest chain proving it.
func (tc *ToldClosure) Subsumes(sub, sup dag.BP) ([]int, bool) {
	if sub == sup || sup == dag.Top {
		return nil, true
	}
	ctx, ok := tc.contexts[sub]
	if !ok {
		return nil, false
	}
	if _, ok := ctx.supers[sup]; !ok {
		return nil, false
	}
	var chain []int
	for at := sup; at != sub; {
		step := ctx.supers[at]
		chain = append(chain, step.axiom)
		at = step.from
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, true
}

// Len returns the number of derived subsumptions between distinct names.
func (tc *ToldClosure) Len() int {
	n := 0
	for _, ctx := range tc.contexts {
		n += len(ctx.supers) - 1
	}
	return n
}
