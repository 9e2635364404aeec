package ctree

import (
	"github.com/nodeadmin/tableau/dag"
)

// IsBlocked reports whether id is directly or indirectly blocked,
// recomputing its status first when something it depends on changed.
func (t *Tree) IsBlocked(id NodeID) bool {
	n := t.Node(id)
	t.updateBlocking(n)
	return n.status.Blocked()
}

// isIllegallyDBlocked reports a direct block whose blocker is itself
// blocked or gone. Such a block must be recomputed.
func (t *Tree) isIllegallyDBlocked(n *Node) bool {
	if n.status.Kind != Direct {
		return false
	}
	b := t.blocker(n)
	return b == nil || b.status.Blocked()
}

// blocker returns the node named in the status of n, or nil if that slot
// was recycled.
func (t *Tree) blocker(n *Node) *Node {
	id := n.status.Blocker
	if id < 0 || int(id) >= t.count {
		return nil
	}
	b := t.nodes[id]
	if b.gen != n.status.gen {
		return nil
	}
	return b
}

func (t *Tree) parentNode(n *Node) *Node {
	return t.nodes[n.neighbours[0].End]
}

func (t *Tree) hasParent(n *Node) bool {
	return n.IsBlockable() && len(n.neighbours) > 0 && !n.neighbours[0].Succ
}

// affected reports whether anything the status of n depends on changed
// after it was computed: n or an ancestor, or its blocker or the
// blocker's parent. Changes to successors reach here through the parent
// stamp set by modified.
func (t *Tree) affected(n *Node) bool {
	if !t.opts.Lazy || n.checked == 0 {
		return true
	}
	for x := n; ; x = t.parentNode(x) {
		if x.changed > n.checked {
			return true
		}
		if !t.hasParent(x) {
			break
		}
	}
	if n.status.Blocked() {
		b := t.blocker(n)
		if b == nil || b.changed > n.checked {
			return true
		}
		if t.hasParent(b) && t.parentNode(b).changed > n.checked {
			return true
		}
	}
	return false
}

func (t *Tree) updateBlocking(n *Node) {
	if n.status.Kind == Purged || n.data || !t.hasParent(n) {
		return
	}
	p := t.parentNode(n)
	t.updateBlocking(p)
	if !t.affected(n) && !t.isIllegallyDBlocked(n) {
		return
	}
	var s Status
	switch {
	case p.status.Blocked() || p.status.Kind == Purged:
		s = Status{Kind: Indirect, Blocker: p.id, gen: p.gen}
	default:
		if b := t.findBlocker(n); b != nil {
			s = Status{Kind: Direct, Blocker: b.id, gen: b.gen}
		} else {
			s = unblocked()
		}
	}
	t.setStatus(n, s)
	n.checked = t.clock
}

// candidate reports whether p may block a node created for init.
func (t *Tree) candidate(p *Node, init dag.BP) bool {
	if p.data || !t.hasParent(p) || p.status.Kind != Unblocked {
		return false
	}
	switch init {
	case dag.Bottom:
		return false
	case dag.Top:
		return true
	}
	return p.IsLabelledBy(init)
}

func (t *Tree) findBlocker(n *Node) *Node {
	if t.opts.Anywhere {
		for _, p := range t.nodes[:n.id] {
			if t.candidate(p, n.init) && t.blockedBy(n, p) {
				return p
			}
		}
		return nil
	}
	for p := t.parentNode(n); t.hasParent(p); p = t.parentNode(p) {
		if t.candidate(p, n.init) && t.blockedBy(n, p) {
			return p
		}
	}
	return nil
}

func (t *Tree) blockedBy(n, p *Node) bool {
	switch t.opts.Logic {
	case LogicSH:
		return t.IsBlockedBySH(n.id, p.id)
	case LogicSHI:
		return t.IsBlockedBySHI(n.id, p.id)
	default:
		return t.IsBlockedBySHIQ(n.id, p.id)
	}
}

// IsBlockedBySH reports whether the label of id is contained in the label
// of p.
func (t *Tree) IsBlockedBySH(id, p NodeID) bool {
	return t.Node(id).label.subset(&t.Node(p).label)
}

// IsBlockedBySHI adds the B2 condition for every universal restriction of
// p to the SH check.
func (t *Tree) IsBlockedBySHI(id, p NodeID) bool {
	n, b := t.Node(id), t.Node(p)
	return t.hasParent(n) && t.commonlyBlockedBy(n, b)
}

// IsBlockedBySHIQ adds the cardinality conditions B3 to B6.
func (t *Tree) IsBlockedBySHIQ(id, p NodeID) bool {
	n, b := t.Node(id), t.Node(p)
	if !t.hasParent(n) || !t.commonlyBlockedBy(n, b) {
		return false
	}
	return t.cBlockedBy(n, b) || t.aBlockedBy(n, b)
}

func (t *Tree) commonlyBlockedBy(n, p *Node) bool {
	if !n.label.subset(&p.label) {
		return false
	}
	for _, c := range p.label.cc {
		if c.BP < 0 {
			continue
		}
		if v := t.dag.Get(c.BP); v.Tag == dag.TagForall && !t.b2(n, v) {
			return false
		}
	}
	return true
}

// b2: every arc from n to its parent that ∀R.C applies to finds C in the
// parent, and for non-simple R also each ∀S.C of a transitive S the arc
// falls under.
func (t *Tree) b2(n *Node, v *dag.Vertex) bool {
	parent := t.parentNode(n)
	for _, a := range n.neighbours {
		if a.End != parent.id || !t.IsNeighbour(a, v.Role) {
			continue
		}
		if !parent.IsLabelledBy(v.C) {
			return false
		}
		for _, tr := range v.Trans {
			if t.roles.IsSubRole(a.Role, tr.Role) && !parent.IsLabelledBy(tr.BP) {
				return false
			}
		}
	}
	return true
}

func (t *Tree) aBlockedBy(n, p *Node) bool {
	for _, c := range p.label.cc {
		v := t.dag.Get(c.BP)
		switch {
		case v.Tag == dag.TagForall && c.BP < 0:
			// ∃T.E
			if !t.b4(n, 1, v.Role, -v.C) {
				return false
			}
		case v.Tag == dag.TagLE && c.BP > 0:
			if !t.b3(n, p, v.N, v.Role, v.C) {
				return false
			}
		case v.Tag == dag.TagLE:
			// ≥ N+1 T.E
			if !t.b4(n, v.N+1, v.Role, v.C) {
				return false
			}
		}
	}
	return true
}

func (t *Tree) cBlockedBy(n, p *Node) bool {
	for _, c := range p.label.cc {
		if c.BP < 0 {
			continue
		}
		if v := t.dag.Get(c.BP); v.Tag == dag.TagLE && !t.b5(n, v.Role, v.C) {
			return false
		}
	}
	for _, c := range t.parentNode(n).label.cc {
		if c.BP > 0 {
			continue
		}
		if v := t.dag.Get(c.BP); v.Tag == dag.TagLE && !t.b6(n, v.Role, v.C) {
			return false
		}
	}
	return true
}

func (t *Tree) parentArcLabelled(n *Node, r dag.Role) bool {
	parent := n.neighbours[0].End
	for _, a := range n.neighbours {
		if a.End == parent && t.IsNeighbour(a, r) {
			return true
		}
	}
	return false
}

// b3 checks ≤n S.C in the label of the candidate blocker p.
func (t *Tree) b3(n, p *Node, max int, s dag.Role, c dag.BP) bool {
	if !t.parentArcLabelled(n, s) {
		return true
	}
	parent := t.parentNode(n)
	if parent.IsLabelledBy(-c) {
		return true
	}
	if !parent.IsLabelledBy(c) {
		return false
	}
	m := 0
	for _, a := range p.neighbours {
		if a.Succ && t.IsNeighbour(a, s) && t.nodes[a.End].IsLabelledBy(c) {
			m++
		}
	}
	return m < max
}

// b4 checks ≥m T.E in the label of the candidate blocker. Successors are
// counted at n itself.
func (t *Tree) b4(n *Node, m int, r dag.Role, e dag.BP) bool {
	if m == 1 && t.parentArcLabelled(n, r) && t.parentNode(n).IsLabelledBy(e) {
		return true
	}
	k := 0
	for _, a := range n.neighbours {
		if a.Succ && t.IsNeighbour(a, r) && t.nodes[a.End].IsLabelledBy(e) {
			k++
			if k >= m {
				return true
			}
		}
	}
	return false
}

// b5 checks ≤n T.E in the label of the candidate blocker.
func (t *Tree) b5(n *Node, r dag.Role, e dag.BP) bool {
	return !t.parentArcLabelled(n, r) || t.parentNode(n).IsLabelledBy(-e)
}

// b6 checks ≥m U.F in the label of the parent of n.
func (t *Tree) b6(n *Node, u dag.Role, f dag.BP) bool {
	return !t.parentArcLabelled(n, u.Inverse()) || n.IsLabelledBy(-f)
}
