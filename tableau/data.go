package tableau

import (
	"github.com/nodeadmin/tableau/ctree"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/datatype"
	"github.com/nodeadmin/tableau/dep"
)

type typed struct {
	expr datatype.Expr
	dep  dep.Set
}

type valued struct {
	lit datatype.Literal
	dep dep.Set
}

// checkData looks for a contradiction among the data ranges in the label
// of a data node.
func (s *session) checkData(id ctree.NodeID) *clash {
	var pos, neg []typed
	var vals, notVals []valued
	for _, cd := range s.tree.Node(id).Simple() {
		v := s.e.dag.Get(cd.BP)
		switch s.e.dag.Kind(cd.BP) {
		case dag.KindDataType:
			pos = append(pos, typed{v.Data, cd.Dep})
		case dag.KindNotDataType:
			neg = append(neg, typed{v.Data, cd.Dep})
		case dag.KindDataValue:
			vals = append(vals, valued{v.Value, cd.Dep})
		case dag.KindNotDataValue:
			notVals = append(notVals, valued{v.Value, cd.Dep})
		}
	}

	for i, p := range pos {
		if p.expr.EmptyValueSpace() {
			return &clash{dep: p.dep}
		}
		for _, q := range pos[i+1:] {
			if !p.expr.IsCompatible(q.expr) {
				return &clash{dep: p.dep.Union(q.dep)}
			}
		}
		for _, n := range neg {
			if datatype.Covers(n.expr, p.expr) {
				return &clash{dep: p.dep.Union(n.dep)}
			}
		}
	}
	for i, v := range vals {
		for _, w := range vals[i+1:] {
			if !datatype.SameValue(v.lit, w.lit) {
				return &clash{dep: v.dep.Union(w.dep)}
			}
		}
		for _, p := range pos {
			if !p.expr.IsCompatibleLiteral(v.lit) {
				return &clash{dep: v.dep.Union(p.dep)}
			}
		}
		for _, n := range neg {
			if n.expr.IsCompatibleLiteral(v.lit) {
				return &clash{dep: v.dep.Union(n.dep)}
			}
		}
		for _, w := range notVals {
			if datatype.SameValue(v.lit, w.lit) {
				return &clash{dep: v.dep.Union(w.dep)}
			}
		}
	}
	return checkIntegers(pos, neg, notVals)
}

// checkIntegers catches what the pairwise tests above cannot: an integer
// range emptied by several negated ranges or excluded values together. It
// only runs when a range pins the value to the integers.
func checkIntegers(pos, neg []typed, notVals []valued) *clash {
	span := datatype.Integers()
	var d dep.Set
	integral := false
	for _, p := range pos {
		if r, ok := p.expr.(*datatype.Range); ok {
			span = span.Intersect(*r)
			d = d.Union(p.dep)
			integral = true
		}
	}
	if !integral {
		return nil
	}
	for _, n := range neg {
		ivs, ok := datatype.IntegerIntervals(n.expr)
		if !ok || len(ivs) == 0 {
			continue
		}
		for _, iv := range ivs {
			span = span.Minus(iv)
		}
		d = d.Union(n.dep)
	}
	for _, w := range notVals {
		if v, ok := datatype.IntegerValue(w.lit); ok {
			span = span.Without(v)
			d = d.Union(w.dep)
		}
	}
	if span.Empty() {
		return &clash{dep: d}
	}
	return nil
}
