package ctree

import (
	"sort"

	"github.com/nodeadmin/tableau/dag"
)

// NodeView is a plain copy of a node for printing and comparison.
type NodeView struct {
	ID      NodeID      `json:"id"`
	Init    dag.BP      `json:"init"`
	Labels  []LabelView `json:"labels"`
	Arcs    []ArcView   `json:"arcs,omitempty"`
	IR      []LabelView `json:"ir,omitempty"`
	Status  string      `json:"status"`
	Blocker NodeID      `json:"blocker"`
	Nominal bool        `json:"nominal,omitempty"`
	Data    bool        `json:"data,omitempty"`
}

// LabelView is a label or inequality entry; BP holds the key for the
// latter.
type LabelView struct {
	BP  dag.BP `json:"bp"`
	Dep string `json:"dep"`
}

type ArcView struct {
	Role      dag.Role `json:"role"`
	End       NodeID   `json:"end"`
	Succ      bool     `json:"succ"`
	Reflexive bool     `json:"reflexive,omitempty"`
	Valid     bool     `json:"valid"`
	Dep       string   `json:"dep"`
}

// Snapshot copies every live node. Labels keep insertion order within the
// simple and complex parts.
func (t *Tree) Snapshot() []NodeView {
	out := make([]NodeView, 0, t.count)
	for _, n := range t.nodes[:t.count] {
		v := NodeView{
			ID:      n.id,
			Init:    n.init,
			Status:  n.status.Kind.String(),
			Blocker: n.status.Blocker,
			Nominal: n.IsNominal(),
			Data:    n.data,
		}
		for _, c := range n.Concepts() {
			v.Labels = append(v.Labels, LabelView{BP: c.BP, Dep: c.Dep.String()})
		}
		for _, a := range n.neighbours {
			v.Arcs = append(v.Arcs, ArcView{
				Role: a.Role, End: a.End, Succ: a.Succ, Reflexive: a.Reflexive,
				Valid: a.valid, Dep: a.Dep.String(),
			})
		}
		for _, e := range n.ir {
			v.IR = append(v.IR, LabelView{BP: dag.BP(e.Key), Dep: e.Dep.String()})
		}
		sort.Slice(v.IR, func(i, j int) bool { return v.IR[i].BP < v.IR[j].BP })
		out = append(out, v)
	}
	return out
}
