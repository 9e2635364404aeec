package ctree

import (
	"math"

	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
)

// NodeID indexes a node in the tree arena.
type NodeID int32

// NoNode marks a missing node reference.
const NoNode NodeID = -1

// BlockableLevel is the nominal level of an ordinary, blockable node.
const BlockableLevel = math.MaxInt

// ConceptDep is a label entry: a concept and the reason it is there.
type ConceptDep struct {
	BP  dag.BP
	Dep dep.Set
}

// IREntry is one inequality marker. Two nodes sharing a key must stay
// distinct.
type IREntry struct {
	Key int
	Dep dep.Set
}

// BlockKind is the blocking state of a node.
type BlockKind uint8

const (
	Unblocked BlockKind = iota
	Direct
	Indirect
	Purged
)

func (k BlockKind) String() string {
	switch k {
	case Unblocked:
		return "unblocked"
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	case Purged:
		return "purged"
	}
	return "unknown"
}

// Status is the blocking state of a node and, unless unblocked, the node
// responsible for it. Dep is set for purged nodes only.
type Status struct {
	Kind    BlockKind
	Blocker NodeID
	Dep     dep.Set

	gen uint32
}

func unblocked() Status { return Status{Kind: Unblocked, Blocker: NoNode} }

// Blocked reports a direct or indirect block.
func (s Status) Blocked() bool { return s.Kind == Direct || s.Kind == Indirect }

// label is split so blocking compares the cheap simple part first.
type label struct {
	sc, cc []ConceptDep
	index  map[dag.BP]int
}

func (l *label) reset() {
	l.sc = l.sc[:0]
	l.cc = l.cc[:0]
	if l.index == nil {
		l.index = make(map[dag.BP]int)
	}
	clear(l.index)
}

func (l *label) lookup(bp dag.BP, complex bool) (dep.Set, bool) {
	i, ok := l.index[bp]
	if !ok {
		return dep.Set{}, false
	}
	if complex {
		return l.cc[i].Dep, true
	}
	return l.sc[i].Dep, true
}

func (l *label) add(bp dag.BP, d dep.Set, complex bool) {
	if complex {
		l.index[bp] = len(l.cc)
		l.cc = append(l.cc, ConceptDep{BP: bp, Dep: d})
		return
	}
	l.index[bp] = len(l.sc)
	l.sc = append(l.sc, ConceptDep{BP: bp, Dep: d})
}

func (l *label) truncate(nSC, nCC int) {
	for _, c := range l.sc[nSC:] {
		delete(l.index, c.BP)
	}
	for _, c := range l.cc[nCC:] {
		delete(l.index, c.BP)
	}
	l.sc = l.sc[:nSC]
	l.cc = l.cc[:nCC]
}

// subset reports whether every concept of l is in o.
func (l *label) subset(o *label) bool {
	if len(l.sc) > len(o.sc) || len(l.cc) > len(o.cc) {
		return false
	}
	for _, c := range l.sc {
		if _, ok := o.index[c.BP]; !ok {
			return false
		}
	}
	for _, c := range l.cc {
		if _, ok := o.index[c.BP]; !ok {
			return false
		}
	}
	return true
}

// nodeSave is the state of a node before its first change at level.
type nodeSave struct {
	level        int
	prevLevel    int
	nSC, nCC     int
	nNeigh       int
	nIR          int
	status       Status
	nominalLevel int
}

// Node is a model element. Nodes are owned by their Tree and change only
// through it.
type Node struct {
	id         NodeID
	gen        uint32
	label      label
	ir         []IREntry
	irIndex    map[int]int
	neighbours []*Arc
	saves      []nodeSave
	curLevel   int

	init         dag.BP
	status       Status
	nominalLevel int
	data         bool

	changed uint64
	checked uint64
}

func (n *Node) reset(level int, clock uint64) {
	n.gen++
	n.label.reset()
	n.ir = n.ir[:0]
	if n.irIndex == nil {
		n.irIndex = make(map[int]int)
	}
	clear(n.irIndex)
	n.neighbours = n.neighbours[:0]
	n.saves = n.saves[:0]
	n.curLevel = level
	n.init = dag.Top
	n.status = unblocked()
	n.nominalLevel = BlockableLevel
	n.data = false
	n.changed = clock
	n.checked = 0
}

func (n *Node) ID() NodeID { return n.id }

// Init returns the concept the node was created for.
func (n *Node) Init() dag.BP { return n.init }

func (n *Node) Status() Status { return n.status }

func (n *Node) IsData() bool { return n.data }

func (n *Node) NominalLevel() int { return n.nominalLevel }

// IsBlockable reports an ordinary anonymous node.
func (n *Node) IsBlockable() bool { return n.nominalLevel == BlockableLevel }

// IsNominal reports a named individual or a node merged into one.
func (n *Node) IsNominal() bool { return n.nominalLevel != BlockableLevel }

// IsLabelledBy reports whether bp is in the label.
func (n *Node) IsLabelledBy(bp dag.BP) bool {
	_, ok := n.label.index[bp]
	return ok
}

// Simple returns the simple sub-label. The slice must not be modified.
func (n *Node) Simple() []ConceptDep { return n.label.sc }

// Complex returns the complex sub-label. The slice must not be modified.
func (n *Node) Complex() []ConceptDep { return n.label.cc }

// Concepts returns a fresh copy of the whole label.
func (n *Node) Concepts() []ConceptDep {
	out := make([]ConceptDep, 0, len(n.label.sc)+len(n.label.cc))
	out = append(out, n.label.sc...)
	return append(out, n.label.cc...)
}

// LabelSize returns the number of concepts in the label.
func (n *Node) LabelSize() int { return len(n.label.sc) + len(n.label.cc) }

// Neighbours returns every arc leaving the node, invalid ones included.
// The slice must not be modified.
func (n *Node) Neighbours() []*Arc { return n.neighbours }

// IR returns the inequality relation of the node.
func (n *Node) IR() []IREntry { return n.ir }

func (n *Node) irLookup(key int) (dep.Set, bool) {
	i, ok := n.irIndex[key]
	if !ok {
		return dep.Set{}, false
	}
	return n.ir[i].Dep, true
}

func (n *Node) irAdd(key int, d dep.Set) {
	n.irIndex[key] = len(n.ir)
	n.ir = append(n.ir, IREntry{Key: key, Dep: d})
}

func (n *Node) irTruncate(size int) {
	for _, e := range n.ir[size:] {
		delete(n.irIndex, e.Key)
	}
	n.ir = n.ir[:size]
}

// Arc is one direction of an edge. Every edge is stored twice, once per
// end, and the two halves point at each other.
type Arc struct {
	Role      dag.Role
	End       NodeID
	Dep       dep.Set
	Succ      bool
	Reflexive bool

	level   int
	valid   bool
	reverse *Arc
}

// Valid reports whether the arc survived merging.
func (a *Arc) Valid() bool { return a.valid }

// Level returns the branching level the arc was created at.
func (a *Arc) Level() int { return a.level }

// Reverse returns the other half of the edge.
func (a *Arc) Reverse() *Arc { return a.reverse }
