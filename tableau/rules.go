package tableau

import (
	"github.com/nodeadmin/tableau/ctree"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
	"github.com/nodeadmin/tableau/todo"
)

// apply runs the rule for one popped entry.
func (s *session) apply(e todo.Entry) *clash {
	n := s.tree.Node(e.Node)
	if n.Status().Kind == ctree.Purged {
		return nil
	}
	v := s.e.dag.Get(e.BP)
	switch s.e.dag.Kind(e.BP) {
	case dag.KindName, dag.KindNotName:
		return s.applyTold(e)
	case dag.KindAnd:
		for _, arg := range v.Args {
			if c := s.addConcept(e.Node, arg, e.Dep); c != nil {
				return c
			}
		}
		return nil
	case dag.KindOr:
		return s.applyOr(e, v)
	case dag.KindForall:
		return s.applyForall(e, v)
	case dag.KindExists:
		return s.applyExists(e, v)
	case dag.KindAtLeast:
		return s.applyAtLeast(e, v)
	case dag.KindAtMost:
		return s.applyAtMost(e, v)
	}
	return nil
}

func (s *session) applyTold(e todo.Entry) *clash {
	for _, t := range s.e.tbox.Told(e.BP) {
		if c := s.addConcept(e.Node, t.BP, t.dep(e.Dep)); c != nil {
			return c
		}
	}
	return nil
}

// applyOr handles ¬(C1 ⊓ ... ⊓ Cn). Disjuncts whose complement is already
// in the label are dropped, and their dependency sets join the branch.
func (s *session) applyOr(e todo.Entry, v *dag.Vertex) *clash {
	d := e.Dep
	var alts []dag.BP
	for _, arg := range v.Args {
		if _, ok := s.tree.Lookup(e.Node, -arg); ok {
			return nil
		}
		if other, ok := s.tree.Lookup(e.Node, arg); ok {
			d = d.Union(other)
			continue
		}
		alts = append(alts, -arg)
	}
	switch len(alts) {
	case 0:
		return &clash{dep: d}
	case 1:
		return s.addConcept(e.Node, alts[0], d)
	}
	return s.tryAlternative(s.openBranch(&branch{kind: orBranch, node: e.Node, entry: e, dep: d, alts: alts}))
}

// forallArc adds the filler of ∀R.C, and ∀S.C for every transitive S
// between the arc role and R, to the far end of a.
func (s *session) forallArc(v *dag.Vertex, d dep.Set, a *ctree.Arc) *clash {
	if !s.tree.IsNeighbour(a, v.Role) {
		return nil
	}
	d = d.Union(a.Dep)
	if c := s.addConcept(a.End, v.C, d); c != nil {
		return c
	}
	for _, t := range v.Trans {
		if s.tree.IsNeighbour(a, t.Role) {
			if c := s.addConcept(a.End, t.BP, d); c != nil {
				return c
			}
		}
	}
	return nil
}

func (s *session) applyForall(e todo.Entry, v *dag.Vertex) *clash {
	arcs := append([]*ctree.Arc(nil), s.tree.Node(e.Node).Neighbours()...)
	for _, a := range arcs {
		if c := s.forallArc(v, e.Dep, a); c != nil {
			return c
		}
	}
	return nil
}

// hasConcept reports whether node is labelled by c; every node is
// labelled by ⊤.
func (s *session) hasConcept(n *ctree.Node, c dag.BP) bool {
	return c == dag.Top || n.IsLabelledBy(c)
}

// neighbours returns the distinct live nodes reachable from id over an
// arc whose role is below r, with the first such arc to each.
func (s *session) neighbours(id ctree.NodeID, r dag.Role) []*ctree.Arc {
	var out []*ctree.Arc
	seen := make(map[ctree.NodeID]bool)
	for _, a := range s.tree.Node(id).Neighbours() {
		if !s.tree.IsNeighbour(a, r) || seen[a.End] {
			continue
		}
		if s.tree.Node(a.End).Status().Kind == ctree.Purged {
			continue
		}
		seen[a.End] = true
		out = append(out, a)
	}
	return out
}

// existsSatisfied reports whether ∃R.C holds at id.
func (s *session) existsSatisfied(id ctree.NodeID, r dag.Role, c dag.BP) bool {
	for _, a := range s.neighbours(id, r) {
		if s.hasConcept(s.tree.Node(a.End), c) {
			return true
		}
	}
	return false
}

// atLeastSatisfied reports whether id has m pairwise distinct R-neighbours
// labelled C. The selection is greedy.
func (s *session) atLeastSatisfied(id ctree.NodeID, m int, r dag.Role, c dag.BP) bool {
	var sel []ctree.NodeID
	for _, a := range s.neighbours(id, r) {
		if !s.hasConcept(s.tree.Node(a.End), c) {
			continue
		}
		distinct := true
		for _, x := range sel {
			if ok, _ := s.tree.NonMergable(x, a.End); !ok {
				distinct = false
				break
			}
		}
		if distinct {
			sel = append(sel, a.End)
			if len(sel) >= m {
				return true
			}
		}
	}
	return false
}

// applyExists handles ¬∀R.¬C, that is ∃R.C.
func (s *session) applyExists(e todo.Entry, v *dag.Vertex) *clash {
	c := -v.C
	if s.existsSatisfied(e.Node, v.Role, c) || s.tree.IsBlocked(e.Node) {
		return nil
	}
	_, cl := s.createSuccessor(e.Node, v.Role, c, e.Dep)
	return cl
}

// applyAtLeast handles ¬(≤n R.C), that is ≥n+1 R.C. The new successors
// share one inequality key, which makes them pairwise distinct.
func (s *session) applyAtLeast(e todo.Entry, v *dag.Vertex) *clash {
	m := v.N + 1
	if s.atLeastSatisfied(e.Node, m, v.Role, v.C) || s.tree.IsBlocked(e.Node) {
		return nil
	}
	key := s.nextIRKey()
	for range m {
		id, c := s.createSuccessor(e.Node, v.Role, v.C, e.Dep)
		if c != nil {
			return c
		}
		s.tree.InitIR(id, key, e.Dep)
	}
	return nil
}

type candidate struct {
	arc  *ctree.Arc
	dep  dep.Set
	pred bool
}

// applyAtMost handles ≤n R.C: first decide C on every R-neighbour, then
// merge while more than n of them carry C.
func (s *session) applyAtMost(e todo.Entry, v *dag.Vertex) *clash {
	arcs := s.neighbours(e.Node, v.Role)
	if len(arcs) <= v.N {
		return nil
	}
	if v.C != dag.Top {
		for _, a := range arcs {
			end := s.tree.Node(a.End)
			if end.IsLabelledBy(v.C) || end.IsLabelledBy(-v.C) {
				continue
			}
			b := &branch{
				kind:  chooseBranch,
				node:  a.End,
				entry: e,
				dep:   e.Dep.Union(a.Dep),
				alts:  []dag.BP{v.C, -v.C},
			}
			return s.tryAlternative(s.openBranch(b))
		}
	}

	var cands []candidate
	d := e.Dep
	for _, a := range arcs {
		cd := a.Dep
		if v.C != dag.Top {
			ld, ok := s.tree.Lookup(a.End, v.C)
			if !ok {
				continue
			}
			cd = cd.Union(ld)
		}
		cands = append(cands, candidate{arc: a, dep: cd, pred: !a.Succ})
		d = d.Union(cd)
	}
	if len(cands) <= v.N {
		return nil
	}

	var pairs [][2]ctree.NodeID
	for i := range cands {
		for j := i + 1; j < len(cands); j++ {
			from, to := s.mergeDirection(cands[i], cands[j])
			if ok, ird := s.tree.NonMergable(from, to); ok {
				d = d.Union(ird)
				continue
			}
			pairs = append(pairs, [2]ctree.NodeID{from, to})
		}
	}
	switch len(pairs) {
	case 0:
		return &clash{dep: d}
	case 1:
		if c := s.merge(pairs[0][0], pairs[0][1], d); c != nil {
			return c
		}
		s.todo.Push(todo.LE, e)
		return nil
	}
	return s.tryAlternative(s.openBranch(&branch{kind: mergeBranch, node: e.Node, entry: e, dep: d, pairs: pairs}))
}

// mergeDirection picks which of two neighbours survives: a nominal, else
// the predecessor, else the older node.
func (s *session) mergeDirection(x, y candidate) (from, to ctree.NodeID) {
	nx, ny := s.tree.Node(x.arc.End), s.tree.Node(y.arc.End)
	switch {
	case nx.IsNominal() != ny.IsNominal():
		if nx.IsNominal() {
			return ny.ID(), nx.ID()
		}
		return nx.ID(), ny.ID()
	case x.pred != y.pred:
		if x.pred {
			return ny.ID(), nx.ID()
		}
		return nx.ID(), ny.ID()
	case nx.ID() < ny.ID():
		return ny.ID(), nx.ID()
	}
	return nx.ID(), ny.ID()
}

// createSuccessor adds a fresh R-successor of id labelled C. The edge is
// added first so it becomes the parent arc of the new node.
func (s *session) createSuccessor(id ctree.NodeID, r dag.Role, c dag.BP, d dep.Set) (ctree.NodeID, *clash) {
	data := s.e.dag.Roles().IsData(r)
	m := s.newNode(data)
	s.tree.SetInit(m, c)
	if cl := s.addEdge(id, m, r, d); cl != nil {
		return m, cl
	}
	if !data {
		if cl := s.addGCIs(m, d); cl != nil {
			return m, cl
		}
	}
	return m, s.addConcept(m, c, d)
}

// addEdge links from to to, pushes the universals of both ends over the
// new edge, and requeues their at-most restrictions.
func (s *session) addEdge(from, to ctree.NodeID, r dag.Role, d dep.Set) *clash {
	a := s.tree.AddEdge(from, to, r, d)
	if c := s.propagate(from, a); c != nil {
		return c
	}
	if c := s.propagate(to, a.Reverse()); c != nil {
		return c
	}
	s.requeueAtMost(from)
	if to != from {
		s.requeueAtMost(to)
	}
	return nil
}

func (s *session) propagate(id ctree.NodeID, a *ctree.Arc) *clash {
	for _, cd := range s.tree.Node(id).Complex() {
		if s.e.dag.Kind(cd.BP) != dag.KindForall {
			continue
		}
		if c := s.forallArc(s.e.dag.Get(cd.BP), cd.Dep, a); c != nil {
			return c
		}
	}
	return nil
}

func (s *session) requeueAtMost(id ctree.NodeID) {
	for _, cd := range s.tree.Node(id).Complex() {
		if s.e.dag.Kind(cd.BP) == dag.KindAtMost {
			s.todo.Push(todo.LE, todo.Entry{Node: id, BP: cd.BP, Dep: cd.Dep})
		}
	}
}

// atMostViolated reports whether ≤n R.C at id still has work to do:
// an R-neighbour undecided on C, or more than n neighbours carrying C.
func (s *session) atMostViolated(id ctree.NodeID, n int, r dag.Role, c dag.BP) bool {
	arcs := s.neighbours(id, r)
	if len(arcs) <= n {
		return false
	}
	if c == dag.Top {
		return true
	}
	carry := 0
	for _, a := range arcs {
		end := s.tree.Node(a.End)
		switch {
		case end.IsLabelledBy(c):
			carry++
		case !end.IsLabelledBy(-c):
			return true
		}
	}
	return carry > n
}

// sweep requeues the restrictions that still have work to do once the
// queue is empty, typically because their entry was popped while the node
// was blocked or before its neighbours existed. Generating rules are
// rechecked on unblocked nodes and at-most rules on every node that is
// not indirectly blocked. It reports whether anything was queued.
func (s *session) sweep() bool {
	pushed := false
	for i := 0; i < s.tree.Len(); i++ {
		id := ctree.NodeID(i)
		n := s.tree.Node(id)
		if n.Status().Kind == ctree.Purged || n.IsData() {
			continue
		}
		blocked := s.tree.IsBlocked(id)
		if n.Status().Kind == ctree.Indirect {
			continue
		}
		for _, cd := range n.Complex() {
			v := s.e.dag.Get(cd.BP)
			switch s.e.dag.Kind(cd.BP) {
			case dag.KindExists:
				if blocked || s.existsSatisfied(id, v.Role, -v.C) {
					continue
				}
				s.todo.Push(todo.Exists, todo.Entry{Node: id, BP: cd.BP, Dep: cd.Dep})
				pushed = true
			case dag.KindAtLeast:
				if blocked || s.atLeastSatisfied(id, v.N+1, v.Role, v.C) {
					continue
				}
				s.todo.Push(todo.GE, todo.Entry{Node: id, BP: cd.BP, Dep: cd.Dep})
				pushed = true
			case dag.KindAtMost:
				if !s.atMostViolated(id, v.N, v.Role, v.C) {
					continue
				}
				s.todo.Push(todo.LE, todo.Entry{Node: id, BP: cd.BP, Dep: cd.Dep})
				pushed = true
			}
		}
	}
	return pushed
}
