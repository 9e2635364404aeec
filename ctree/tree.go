// Package ctree is the completion tree: the model graph a tableau search
// builds, together with its level-indexed save/restore and the blocking
// checks that keep expansion finite.
package ctree

import (
	"fmt"

	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
)

// Trim selects how restore shortens neighbour lists.
type Trim uint8

const (
	// TrimExact truncates to the length recorded in the node snapshot.
	TrimExact Trim = iota
	// TrimByLevel drops trailing arcs created above the target level.
	TrimByLevel
)

// Logic selects the blocking predicate.
type Logic uint8

const (
	LogicSH Logic = iota
	LogicSHI
	LogicSHIQ
)

func (l Logic) String() string {
	switch l {
	case LogicSH:
		return "SH"
	case LogicSHI:
		return "SHI"
	case LogicSHIQ:
		return "SHIQ"
	}
	return fmt.Sprintf("logic(%d)", uint8(l))
}

// Options configure a tree. The zero value is exact trimming, SH blocking,
// ancestor search and eager rechecks.
type Options struct {
	Trim     Trim
	Logic    Logic
	Anywhere bool
	Lazy     bool
}

// Fault is a structural error in the tree. It is raised by panic.
type Fault struct {
	Op   string
	Node NodeID
	Msg  string
}

func (f Fault) Error() string {
	if f.Node != NoNode {
		return fmt.Sprintf("ctree %s node %d: %s", f.Op, f.Node, f.Msg)
	}
	return fmt.Sprintf("ctree %s: %s", f.Op, f.Msg)
}

type treeSave struct {
	nodes int
	trail int
}

// Tree is the completion graph of one search. It is not safe for
// concurrent use.
type Tree struct {
	dag   *dag.DAG
	roles *dag.RoleBox
	opts  Options

	nodes  []*Node
	count  int
	level  int
	states []treeSave
	trail  []*Arc
	clock  uint64
}

// New returns an empty tree over d.
func New(d *dag.DAG, opts Options) *Tree {
	return &Tree{dag: d, roles: d.Roles(), opts: opts}
}

// Options returns the options the tree was built with.
func (t *Tree) Options() Options { return t.opts }

// Len returns the number of live nodes.
func (t *Tree) Len() int { return t.count }

// Level returns the current branching level.
func (t *Tree) Level() int { return t.level }

// Node returns a live node.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= t.count {
		panic(Fault{Op: "node", Node: id, Msg: fmt.Sprintf("not live (%d nodes)", t.count)})
	}
	return t.nodes[id]
}

func (t *Tree) tick() uint64 {
	t.clock++
	return t.clock
}

// modified stamps n and its parent. The blocking conditions of a node
// read the labels of its successors.
func (t *Tree) modified(n *Node) {
	n.changed = t.tick()
	if t.hasParent(n) {
		t.parentNode(n).changed = n.changed
	}
}

// CreateNode allocates a node, reusing a slot freed by restore.
func (t *Tree) CreateNode() NodeID {
	if t.count == len(t.nodes) {
		t.nodes = append(t.nodes, &Node{id: NodeID(t.count)})
	}
	n := t.nodes[t.count]
	t.count++
	n.reset(t.level, t.tick())
	return n.id
}

// touch snapshots n before its first change at the current level.
func (t *Tree) touch(n *Node) {
	if n.curLevel >= t.level {
		return
	}
	n.saves = append(n.saves, nodeSave{
		level:        t.level,
		prevLevel:    n.curLevel,
		nSC:          len(n.label.sc),
		nCC:          len(n.label.cc),
		nNeigh:       len(n.neighbours),
		nIR:          len(n.ir),
		status:       n.status,
		nominalLevel: n.nominalLevel,
	})
	n.curLevel = t.level
}

// SetInit records the concept a fresh node was created for.
func (t *Tree) SetInit(id NodeID, bp dag.BP) {
	t.Node(id).init = bp
}

// SetData marks a fresh node as a data value.
func (t *Tree) SetData(id NodeID) {
	t.Node(id).data = true
}

// SetNominalLevel marks id as a nominal born at the given level.
func (t *Tree) SetNominalLevel(id NodeID, level int) {
	n := t.Node(id)
	if n.nominalLevel == level {
		return
	}
	t.touch(n)
	n.nominalLevel = level
	t.modified(n)
}

// Lookup returns the dependency set of bp in the label of id.
func (t *Tree) Lookup(id NodeID, bp dag.BP) (dep.Set, bool) {
	return t.Node(id).label.lookup(bp, t.dag.IsComplex(bp))
}

// AddConcept adds bp to the label of id. It reports false when bp was
// already there; the first dependency set wins.
func (t *Tree) AddConcept(id NodeID, bp dag.BP, d dep.Set) bool {
	n := t.Node(id)
	complex := t.dag.IsComplex(bp)
	if _, ok := n.label.lookup(bp, complex); ok {
		return false
	}
	t.touch(n)
	n.label.add(bp, d, complex)
	t.modified(n)
	return true
}

// AddEdge links from to to with role and returns the arc stored at from.
// A loop (from == to) stores both halves at the same node, successor
// half first.
func (t *Tree) AddEdge(from, to NodeID, role dag.Role, d dep.Set) *Arc {
	a, b := t.Node(from), t.Node(to)
	succ := &Arc{Role: role, End: to, Dep: d, Succ: true, level: t.level, valid: true}
	pred := &Arc{Role: role.Inverse(), End: from, Dep: d, level: t.level, valid: true}
	succ.reverse, pred.reverse = pred, succ
	if from == to {
		succ.Reflexive, pred.Reflexive = true, true
	}
	t.touch(a)
	a.neighbours = append(a.neighbours, succ)
	t.modified(a)
	t.touch(b)
	b.neighbours = append(b.neighbours, pred)
	t.modified(b)
	return succ
}

// InvalidateArc removes the edge of a from the model. Restore revives it.
func (t *Tree) InvalidateArc(a *Arc) {
	if !a.valid {
		return
	}
	a.valid = false
	a.reverse.valid = false
	t.trail = append(t.trail, a)
	t.modified(t.Node(a.End))
	t.modified(t.Node(a.reverse.End))
}

// IsNeighbour reports whether a is a live arc whose role is below r.
func (t *Tree) IsNeighbour(a *Arc, r dag.Role) bool {
	return a.valid && t.roles.IsSubRole(a.Role, r)
}

// Save records the current state and opens the next level.
func (t *Tree) Save() {
	t.states = append(t.states, treeSave{nodes: t.count, trail: len(t.trail)})
	t.level++
}

// Restore returns the tree to the state it had when Save was called at
// level.
func (t *Tree) Restore(level int) {
	if level < 0 || level > t.level {
		panic(Fault{Op: "restore", Node: NoNode, Msg: fmt.Sprintf("level %d outside [0,%d]", level, t.level)})
	}
	if level == t.level {
		return
	}
	st := t.states[level]
	t.states = t.states[:level]
	t.level = level
	now := t.tick()

	for i := len(t.trail) - 1; i >= st.trail; i-- {
		a := t.trail[i]
		a.valid = true
		a.reverse.valid = true
	}
	clear(t.trail[st.trail:])
	t.trail = t.trail[:st.trail]

	t.count = st.nodes
	for _, n := range t.nodes[:t.count] {
		if n.curLevel > level {
			t.restoreNode(n, level)
			n.changed = now
			if t.hasParent(n) {
				t.parentNode(n).changed = now
			}
		}
	}
}

func (t *Tree) restoreNode(n *Node, level int) {
	var s nodeSave
	found := false
	for len(n.saves) > 0 && n.saves[len(n.saves)-1].level > level {
		s = n.saves[len(n.saves)-1]
		n.saves = n.saves[:len(n.saves)-1]
		found = true
	}
	if !found {
		panic(Fault{Op: "restore", Node: n.id, Msg: fmt.Sprintf("no snapshot above level %d", level)})
	}
	n.label.truncate(s.nSC, s.nCC)
	n.irTruncate(s.nIR)
	switch t.opts.Trim {
	case TrimByLevel:
		k := len(n.neighbours)
		for k > 0 && n.neighbours[k-1].level > level {
			k--
		}
		clear(n.neighbours[k:])
		n.neighbours = n.neighbours[:k]
	default:
		clear(n.neighbours[s.nNeigh:])
		n.neighbours = n.neighbours[:s.nNeigh]
	}
	n.status = s.status
	n.nominalLevel = s.nominalLevel
	n.curLevel = s.prevLevel
}

// Purge marks id and its blockable subtree as merged into into. Edges to
// nominal successors are invalidated instead.
func (t *Tree) Purge(id, into NodeID, d dep.Set) {
	n := t.Node(id)
	if n.status.Kind == Purged {
		return
	}
	t.setStatus(n, Status{Kind: Purged, Blocker: into, Dep: d, gen: t.Node(into).gen})
	for _, a := range n.neighbours {
		if !a.valid || !a.Succ || a.Reflexive {
			continue
		}
		if t.nodes[a.End].IsBlockable() {
			t.Purge(a.End, into, d)
		} else {
			t.InvalidateArc(a)
		}
	}
}

func (t *Tree) setStatus(n *Node, s Status) {
	if n.status.Kind == s.Kind && n.status.Blocker == s.Blocker && n.status.Dep.Equal(s.Dep) {
		return
	}
	t.touch(n)
	n.status = s
	n.changed = t.tick()
}

// ResolvePBlocker follows purge links from id to the node it was merged
// into, collecting the purge dependency sets on the way.
func (t *Tree) ResolvePBlocker(id NodeID) (NodeID, dep.Set) {
	var d dep.Set
	for {
		n := t.Node(id)
		if n.status.Kind != Purged {
			return id, d
		}
		d = d.Union(n.status.Dep)
		id = n.status.Blocker
	}
}

// InitIR adds key to the inequality relation of id. It reports true when
// the key was already there.
func (t *Tree) InitIR(id NodeID, key int, d dep.Set) bool {
	n := t.Node(id)
	if _, ok := n.irLookup(key); ok {
		return true
	}
	t.touch(n)
	n.irAdd(key, d)
	return false
}

// NonMergable reports whether a and b share an inequality key. The set
// returned explains the conflict.
func (t *Tree) NonMergable(a, b NodeID) (bool, dep.Set) {
	na, nb := t.Node(a), t.Node(b)
	if len(na.ir) == 0 || len(nb.ir) == 0 {
		return false, dep.Set{}
	}
	for _, e := range nb.ir {
		if d, ok := na.irLookup(e.Key); ok {
			return true, d.Union(e.Dep)
		}
	}
	return false, dep.Set{}
}

// UpdateIR copies the inequality relation of from into to, adding d to
// every copied entry.
func (t *Tree) UpdateIR(to, from NodeID, d dep.Set) {
	nt, nf := t.Node(to), t.Node(from)
	for _, e := range nf.ir {
		if _, ok := nt.irLookup(e.Key); ok {
			continue
		}
		t.touch(nt)
		nt.irAdd(e.Key, e.Dep.Union(d))
	}
}

// Count returns the number of live nodes in the given blocking state, as
// last computed.
func (t *Tree) Count(kind BlockKind) int {
	c := 0
	for _, n := range t.nodes[:t.count] {
		if n.status.Kind == kind {
			c++
		}
	}
	return c
}
