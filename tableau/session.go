package tableau

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nodeadmin/tableau/ctree"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
	"github.com/nodeadmin/tableau/todo"
)

// clash carries the dependency set of a contradiction. It is a control
// signal, not an error.
type clash struct {
	dep dep.Set
}

// session is the state of one search.
type session struct {
	e        *Engine
	ctx      context.Context
	deadline time.Time
	tree     *ctree.Tree
	todo     *todo.List
	branches []*branch
	irKey    int
	stats    Stats
}

func newSession(ctx context.Context, e *Engine, start time.Time) *session {
	trim := ctree.TrimExact
	if e.opts.DynamicBackjumping {
		trim = ctree.TrimByLevel
	}
	s := &session{
		e:   e,
		ctx: ctx,
		tree: ctree.New(e.dag, ctree.Options{
			Trim:     trim,
			Logic:    e.logic,
			Anywhere: e.opts.AnywhereBlocking,
			Lazy:     e.opts.LazyBlocking,
		}),
		todo: todo.New(e.opts.Priorities),
	}
	if e.opts.Timeout > 0 {
		s.deadline = start.Add(e.opts.Timeout)
	}
	return s
}

func (s *session) finish(d time.Duration) Stats {
	st := s.stats
	st.Duration = d
	st.DirectlyBlocked = s.tree.Count(ctree.Direct)
	st.IndirectlyBlocked = s.tree.Count(ctree.Indirect)
	return st
}

// checkBudget runs once per popped entry.
func (s *session) checkBudget() error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrResourcesExhausted, err)
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		return fmt.Errorf("%w: timeout after %s", ErrResourcesExhausted, s.e.opts.Timeout)
	}
	if s.e.opts.MaxNodes > 0 && s.tree.Len() > s.e.opts.MaxNodes {
		return fmt.Errorf("%w: more than %d nodes", ErrResourcesExhausted, s.e.opts.MaxNodes)
	}
	return nil
}

func (s *session) run(q Query) (Status, dep.Set, error) {
	if c := s.seed(q); c != nil {
		if final, done := s.backjump(c.dep); done {
			return Unsatisfiable, final, nil
		}
	}
	for {
		if err := s.checkBudget(); err != nil {
			return Unknown, dep.Set{}, err
		}
		e, ok := s.todo.Pop()
		if !ok {
			if s.sweep() {
				continue
			}
			return Satisfiable, dep.Set{}, nil
		}
		c := s.apply(e)
		if c == nil {
			continue
		}
		if final, done := s.backjump(c.dep); done {
			return Unsatisfiable, final, nil
		}
	}
}

// seed builds the initial tree: a root for the query concept and one
// nominal node per individual.
func (s *session) seed(q Query) *clash {
	if q.ABox {
		if c := s.seedABox(q); c != nil {
			return c
		}
	}
	if q.Concept != dag.Invalid || !q.ABox || !s.e.tbox.HasABox() {
		root := s.newNode(false)
		concept := q.Concept
		if concept == dag.Invalid {
			concept = dag.Top
		}
		s.tree.SetInit(root, concept)
		if c := s.addGCIs(root, dep.Set{}); c != nil {
			return c
		}
		if c := s.addConcept(root, concept, dep.Set{}); c != nil {
			return c
		}
	}
	return nil
}

func (s *session) seedABox(q Query) *clash {
	tb := s.e.tbox
	nodes := make([]ctree.NodeID, len(tb.individuals))
	for i := range tb.individuals {
		nodes[i] = s.newNode(false)
		s.tree.SetNominalLevel(nodes[i], 0)
		if c := s.addGCIs(nodes[i], dep.Set{}); c != nil {
			return c
		}
	}
	for _, d := range tb.different {
		key := s.nextIRKey()
		for _, i := range d.Individuals {
			s.tree.InitIR(nodes[i], key, withAxiom(dep.Set{}, d.Axiom))
		}
	}
	for i, ind := range tb.individuals {
		for _, t := range ind.Concepts {
			if c := s.addConcept(nodes[i], t.BP, t.dep(dep.Set{})); c != nil {
				return c
			}
		}
	}
	for _, a := range q.Assume {
		if c := s.addConcept(nodes[a.Individual], a.Concept, dep.Set{}); c != nil {
			return c
		}
	}
	for _, ra := range tb.related {
		if c := s.addEdge(nodes[ra.From], nodes[ra.To], ra.Role, withAxiom(dep.Set{}, ra.Axiom)); c != nil {
			return c
		}
	}
	return nil
}

func (s *session) nextIRKey() int {
	s.irKey++
	return s.irKey
}

func (s *session) newNode(data bool) ctree.NodeID {
	n := s.tree.CreateNode()
	s.stats.Nodes++
	if data {
		s.tree.SetData(n)
	}
	return n
}

// addGCIs labels an object node with the internalised inclusions. d is
// the dependency set of the node's creation.
func (s *session) addGCIs(n ctree.NodeID, d dep.Set) *clash {
	for _, g := range s.e.tbox.GCIs() {
		if c := s.addConcept(n, g.BP, g.dep(d)); c != nil {
			return c
		}
	}
	return nil
}

// addConcept adds bp to the label of n, reports a clash with its
// complement, and queues the rule bp triggers.
func (s *session) addConcept(n ctree.NodeID, bp dag.BP, d dep.Set) *clash {
	switch bp {
	case dag.Top:
		return nil
	case dag.Bottom:
		return &clash{dep: d}
	}
	if _, ok := s.tree.Lookup(n, bp); ok {
		return nil
	}
	if other, ok := s.tree.Lookup(n, -bp); ok {
		return &clash{dep: d.Union(other)}
	}
	s.tree.AddConcept(n, bp, d)
	if s.tree.Node(n).IsData() {
		if c := s.checkData(n); c != nil {
			return c
		}
	}
	class, ok := todo.ClassOf(s.e.dag, bp)
	if !ok {
		return nil
	}
	if class == todo.Id && len(s.e.tbox.Told(bp)) == 0 {
		return nil
	}
	s.todo.Push(class, todo.Entry{Node: n, BP: bp, Dep: d})
	return nil
}

func (s *session) saveAll() {
	s.tree.Save()
	s.todo.Save()
	if l := s.tree.Level(); l > s.stats.MaxLevel {
		s.stats.MaxLevel = l
	}
}

func (s *session) restoreAll(level int) {
	s.tree.Restore(level)
	s.todo.Restore(level)
}

// backjump undoes the search down to the most recent branching point the
// clash depends on and tries its next alternative. It reports done with
// the final clash set when no branching point is left.
func (s *session) backjump(d dep.Set) (dep.Set, bool) {
	for {
		s.stats.Clashes++
		if !s.e.opts.Backjumping {
			d = d.Union(dep.Range(s.tree.Level()))
		}
		target := d.Max()
		if target == 0 {
			return d, true
		}
		i := len(s.branches)
		for i > 0 && s.branches[i-1].level > target {
			i--
		}
		if i == 0 || s.branches[i-1].level != target {
			panic(Fault{Op: "backjump", Msg: fmt.Sprintf("no branching point at level %d", target)})
		}
		b := s.branches[i-1]
		s.branches = s.branches[:i]
		s.restoreAll(target - 1)
		s.stats.Backjumps++
		s.stats.BackjumpTargets = append(s.stats.BackjumpTargets, target)
		if ce := s.e.log.Check(zapcore.DebugLevel, "backjump"); ce != nil {
			ce.Write(zap.Int("target", target), zap.Stringer("clash", d), zap.Int("nodes", s.tree.Len()))
		}

		fd := d.Restrict(target)
		b.failDeps = append(b.failDeps, fd)
		b.failed = b.failed.Union(fd)
		c := s.tryAlternative(b)
		if c == nil {
			return dep.Set{}, false
		}
		d = c.dep
	}
}
