package tableau

import (
	"github.com/nodeadmin/tableau/ctree"
	"github.com/nodeadmin/tableau/dep"
)

// merge folds from into to: labels, inequalities and edges move to to,
// and from with its blockable subtree is purged. A target that was itself
// merged away is followed to the node that absorbed it.
func (s *session) merge(from, to ctree.NodeID, d dep.Set) *clash {
	to, pd := s.tree.ResolvePBlocker(to)
	d = d.Union(pd)
	if from == to {
		return nil
	}
	for _, cd := range s.tree.Node(from).Concepts() {
		if c := s.addConcept(to, cd.BP, cd.Dep.Union(d)); c != nil {
			return c
		}
	}
	s.tree.UpdateIR(to, from, d)

	fromNominal := s.tree.Node(from).IsNominal()
	if fromNominal && !s.tree.Node(to).IsNominal() {
		s.tree.SetNominalLevel(to, s.tree.Node(from).NominalLevel())
	}
	arcs := append([]*ctree.Arc(nil), s.tree.Node(from).Neighbours()...)
	for _, a := range arcs {
		if !a.Valid() {
			continue
		}
		end, ed := s.tree.ResolvePBlocker(a.End)
		ad := a.Dep.Union(d).Union(ed)
		switch {
		case a.Reflexive:
			if !a.Succ {
				continue
			}
			if c := s.addEdge(to, to, a.Role, ad); c != nil {
				return c
			}
		case !a.Succ:
			// a.End -R-> from becomes a.End -R-> to
			if c := s.addEdge(end, to, a.Role.Inverse(), ad); c != nil {
				return c
			}
		case fromNominal || s.tree.Node(end).IsNominal():
			if c := s.addEdge(to, end, a.Role, ad); c != nil {
				return c
			}
		}
	}

	s.tree.Purge(from, to, d)
	for _, a := range s.tree.Node(from).Neighbours() {
		s.tree.InvalidateArc(a)
	}
	return nil
}
