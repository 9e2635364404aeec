package tableau

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nodeadmin/tableau/ctree"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
	"github.com/nodeadmin/tableau/todo"
)

type branchKind uint8

const (
	orBranch branchKind = iota
	chooseBranch
	mergeBranch
)

func (k branchKind) String() string {
	switch k {
	case orBranch:
		return "or"
	case chooseBranch:
		return "choose"
	}
	return "merge"
}

// branch is an open branching point. Its level is the level the tree was
// saved at before the first alternative.
type branch struct {
	kind  branchKind
	level int
	node  ctree.NodeID
	entry todo.Entry
	dep   dep.Set

	alts  []dag.BP
	pairs [][2]ctree.NodeID
	next  int

	// failed is the union of failDeps, one per refuted alternative.
	failed   dep.Set
	failDeps []dep.Set
}

func (b *branch) size() int {
	if b.kind == mergeBranch {
		return len(b.pairs)
	}
	return len(b.alts)
}

func (s *session) openBranch(b *branch) *branch {
	b.level = s.tree.Level() + 1
	s.branches = append(s.branches, b)
	s.stats.Branches++
	if ce := s.e.log.Check(zapcore.DebugLevel, "branch"); ce != nil {
		ce.Write(
			zap.Stringer("kind", b.kind),
			zap.Int("level", b.level),
			zap.Int32("node", int32(b.node)),
			zap.Int("alternatives", b.size()),
		)
	}
	return b
}

// tryAlternative applies the next alternative of b. Every alternative but
// the last runs at the branch level; the last one runs below it with the
// failures of its siblings as its dependency set, and closes the branch.
func (s *session) tryAlternative(b *branch) *clash {
	j := b.next
	b.next++
	var d dep.Set
	if b.next < b.size() {
		s.saveAll()
		d = b.dep.Union(dep.Level(b.level))
	} else {
		s.branches = s.branches[:len(s.branches)-1]
		d = b.dep.Union(b.failed)
	}

	switch b.kind {
	case orBranch:
		if s.e.opts.SemanticBranching {
			for i := range j {
				if c := s.addConcept(b.node, -b.alts[i], b.dep.Union(b.failDeps[i])); c != nil {
					return c
				}
			}
		}
		return s.addConcept(b.node, b.alts[j], d)
	case chooseBranch:
		if c := s.addConcept(b.node, b.alts[j], d); c != nil {
			return c
		}
	case mergeBranch:
		p := b.pairs[j]
		if c := s.merge(p[0], p[1], d); c != nil {
			return c
		}
	}
	s.todo.Push(todo.LE, b.entry)
	return nil
}
