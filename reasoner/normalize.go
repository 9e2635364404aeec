package reasoner

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/nodeadmin/tableau/config"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/datatype"
	"github.com/nodeadmin/tableau/ontology"
	"github.com/nodeadmin/tableau/tableau"
)

// state is one build of the loaded axioms. Searches only read it; query
// translation may intern new vertices, which the kernel serialises.
type state struct {
	gen     uint64
	symbols *SymbolTable
	dag     *dag.DAG
	tbox    *tableau.TBox
	told    *ToldClosure
	axioms  map[int]ontology.Axiom

	absorbed int
	defined  int
	gcis     int
}

// translator turns ontology expressions into DAG vertices.
type translator struct {
	st  *SymbolTable
	box *dag.RoleBox
	d   *dag.DAG
}

// absorption selects the absorptions a build performs.
type absorption struct {
	concepts    bool // C: told lists for named left-hand sides
	definitions bool // E: lazy unfolding of unique acyclic definitions
}

func absorptionOf(cfg *config.Config) absorption {
	return absorption{concepts: cfg.HasAbsorption('C'), definitions: cfg.HasAbsorption('E')}
}

// normalize compiles the axioms of reg into a DAG and TBox. Without
// absorption every inclusion becomes a GCI.
func normalize(reg *Registry, flags absorption, log *zap.Logger) (*state, error) {
	if log == nil {
		log = zap.NewNop()
	}
	axioms, handles := reg.snapshot(), reg.Handles()

	st := NewSymbolTable()
	box := dag.NewRoleBox()

	// First pass: roles. Their hierarchy must be final before any
	// restriction is interned.
	dataRoles := make(map[string]bool)
	for _, h := range handles {
		collectDataRoles(axioms[h], dataRoles)
	}
	for _, h := range handles {
		if err := declareRoles(st, box, axioms[h], dataRoles); err != nil {
			return nil, fmt.Errorf("axiom %d (%s): %w", h, axioms[h], err)
		}
	}
	functional := map[int]dag.Role{}
	for _, h := range handles {
		a := axioms[h]
		var err error
		switch a.Kind {
		case ontology.SubRoleOf:
			sub, _ := st.Role(a.Role)
			sup, _ := st.Role(a.SuperRole)
			err = box.AddSuper(sub, sup)
		case ontology.InverseRoles:
			r, _ := st.Role(a.Role)
			s, _ := st.Role(a.InverseOf)
			err = box.AddInverse(r, s)
		case ontology.TransitiveRole:
			r, _ := st.Role(a.Role)
			err = box.SetTransitive(r)
		case ontology.FunctionalRole:
			r, _ := st.Role(a.Role)
			box.SetFunctional(r)
			functional[h] = r
		}
		if err != nil {
			return nil, fmt.Errorf("axiom %d (%s): %w", h, a, err)
		}
	}
	box.Finalize()

	t := &translator{st: st, box: box, d: dag.New(box)}
	s := &state{
		symbols: st,
		dag:     t.d,
		tbox:    tableau.NewTBox(),
		told:    newToldClosure(),
		axioms:  axioms,
	}
	b := &builder{
		translator: t,
		s:          s,
		absorbC:    flags.concepts,
		absorbE:    flags.definitions,
	}
	defs := map[string]int{}
	if b.absorbE {
		defs = definitions(axioms, handles)
	}

	// Second pass: everything else.
	for _, h := range handles {
		a := axioms[h]
		if err := b.axiom(h, a, defs); err != nil {
			return nil, fmt.Errorf("axiom %d (%s): %w", h, a, err)
		}
		if r, ok := functional[h]; ok {
			b.gci(t.d.AtMost(1, r, dag.Top), h)
		}
	}
	s.told.saturate()
	s.tbox.Grow(t.d.Len() + 1)

	log.Debug("axioms normalized",
		zap.Int("axioms", len(axioms)),
		zap.Int("classes", st.ClassCount()),
		zap.Int("roles", st.RoleCount()),
		zap.Int("vertices", t.d.Len()),
		zap.Int("absorbed", s.absorbed),
		zap.Int("defined", s.defined),
		zap.Int("gcis", s.gcis))
	return s, nil
}

// collectDataRoles marks every role that is declared or used as a data
// role.
func collectDataRoles(a ontology.Axiom, out map[string]bool) {
	switch a.Kind {
	case ontology.DeclareDataRole, ontology.DataAssertion:
		out[a.Role] = true
	}
	walkAxiom(a, func(c *ontology.ClassExpr) {
		if c.IsData() && c.Role != nil {
			out[c.Role.Name] = true
		}
	})
}

func declareRoles(st *SymbolTable, box *dag.RoleBox, a ontology.Axiom, dataRoles map[string]bool) error {
	intern := func(name string) error {
		_, err := st.InternRole(box, name, dataRoles[name])
		return err
	}
	var names, objects []string
	switch a.Kind {
	case ontology.RoleAssertion, ontology.DeclareRole, ontology.TransitiveRole:
		objects = append(objects, a.Role)
	case ontology.InverseRoles:
		objects = append(objects, a.Role, a.InverseOf)
	case ontology.DeclareDataRole, ontology.FunctionalRole, ontology.DataAssertion:
		names = append(names, a.Role)
	case ontology.SubRoleOf:
		names = append(names, a.Role, a.SuperRole)
	}
	for _, n := range objects {
		if dataRoles[n] {
			return fmt.Errorf("role %q is used as a data role", n)
		}
	}
	for _, n := range append(names, objects...) {
		if err := intern(n); err != nil {
			return err
		}
	}
	var err error
	walkAxiom(a, func(c *ontology.ClassExpr) {
		if c.Role == nil || err != nil {
			return
		}
		if err = intern(c.Role.Name); err == nil && c.Role.Inverse {
			box.MarkInverse()
		}
	})
	return err
}

// walkAxiom calls fn on every class expression inside a.
func walkAxiom(a ontology.Axiom, fn func(*ontology.ClassExpr)) {
	var walk func(c *ontology.ClassExpr)
	walk = func(c *ontology.ClassExpr) {
		if c == nil {
			return
		}
		fn(c)
		for i := range c.Args {
			walk(&c.Args[i])
		}
		walk(c.Filler)
	}
	walk(a.Sub)
	walk(a.Super)
	walk(a.Class)
	for i := range a.Classes {
		walk(&a.Classes[i])
	}
}

// definitions picks the equivalences A ≡ C that can be unfolded lazily:
// A is a name, it occurs on no other left-hand side and the definitions
// are acyclic. The result maps A to the handle of its definition.
func definitions(axioms map[int]ontology.Axiom, handles []int) map[string]int {
	uses := map[string]int{}
	cand := map[string]int{}
	body := map[string]*ontology.ClassExpr{}
	for _, h := range handles {
		a := axioms[h]
		switch a.Kind {
		case ontology.SubClassOf:
			for _, n := range lhsNames(*a.Sub) {
				uses[n]++
			}
		case ontology.EquivalentClasses, ontology.DisjointClasses:
			for i := range a.Classes {
				if a.Classes[i].Op == ontology.OpClass {
					uses[a.Classes[i].Name]++
				}
			}
			if a.Kind != ontology.EquivalentClasses || len(a.Classes) != 2 {
				continue
			}
			ni, di := 0, 1
			if a.Classes[0].Op != ontology.OpClass {
				ni, di = 1, 0
			}
			if a.Classes[ni].Op == ontology.OpClass && a.Classes[di].Op != ontology.OpClass {
				cand[a.Classes[ni].Name] = h
				body[a.Classes[ni].Name] = &a.Classes[di]
			}
		}
	}
	for n := range cand {
		if uses[n] != 1 {
			delete(cand, n)
		}
	}

	// Drop every candidate that reaches itself through other candidates.
	const (
		white = iota
		grey
		black
	)
	colour := map[string]int{}
	cyclic := map[string]bool{}
	var visit func(n string, path []string)
	visit = func(n string, path []string) {
		colour[n] = grey
		path = append(path, n)
		for _, m := range namesIn(body[n]) {
			if _, ok := cand[m]; !ok {
				continue
			}
			switch colour[m] {
			case white:
				visit(m, path)
			case grey:
				for i := len(path) - 1; i >= 0; i-- {
					cyclic[path[i]] = true
					if path[i] == m {
						break
					}
				}
			}
		}
		colour[n] = black
	}
	names := make([]string, 0, len(cand))
	for n := range cand {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if colour[n] == white {
			visit(n, nil)
		}
	}
	for n := range cyclic {
		delete(cand, n)
	}
	return cand
}

// lhsNames lists the names a left-hand side would be absorbed into.
func lhsNames(c ontology.ClassExpr) []string {
	switch c.Op {
	case ontology.OpClass:
		return []string{c.Name}
	case ontology.OpAnd:
		var out []string
		for _, a := range c.Args {
			if a.Op == ontology.OpClass {
				out = append(out, a.Name)
			}
		}
		return out
	}
	return nil
}

// namesIn lists the class names occurring anywhere in c.
func namesIn(c *ontology.ClassExpr) []string {
	var out []string
	var walk func(c *ontology.ClassExpr)
	walk = func(c *ontology.ClassExpr) {
		if c == nil {
			return
		}
		if c.Op == ontology.OpClass {
			out = append(out, c.Name)
		}
		for i := range c.Args {
			walk(&c.Args[i])
		}
		walk(c.Filler)
	}
	walk(c)
	return out
}

// builder feeds translated axioms into the TBox and the told closure.
type builder struct {
	*translator
	s                *state
	absorbC, absorbE bool
}

func (b *builder) axiom(h int, a ontology.Axiom, defs map[string]int) error {
	d, tb := b.d, b.s.tbox
	switch a.Kind {
	case ontology.SubClassOf:
		sub, err := b.class(*a.Sub)
		if err != nil {
			return err
		}
		sup, err := b.class(*a.Super)
		if err != nil {
			return err
		}
		b.subsume(sub, sup, h)
		b.toldEdges(*a.Sub, *a.Super, h)

	case ontology.EquivalentClasses:
		bps := make([]dag.BP, len(a.Classes))
		for i := range a.Classes {
			bp, err := b.class(a.Classes[i])
			if err != nil {
				return err
			}
			bps[i] = bp
		}
		if len(bps) == 2 {
			name, def := 0, 1
			if a.Classes[0].Op != ontology.OpClass {
				name, def = 1, 0
			}
			if dh, ok := defs[a.Classes[name].Name]; ok && dh == h {
				tb.AddTold(bps[name], bps[def], h)
				tb.AddTold(-bps[name], -bps[def], h)
				b.s.defined++
				b.toldEdges(a.Classes[name], a.Classes[def], h)
				return nil
			}
		}
		for i := 1; i < len(bps); i++ {
			b.subsume(bps[0], bps[i], h)
			b.subsume(bps[i], bps[0], h)
			b.toldEdges(a.Classes[0], a.Classes[i], h)
			b.toldEdges(a.Classes[i], a.Classes[0], h)
		}

	case ontology.DisjointClasses:
		bps := make([]dag.BP, len(a.Classes))
		for i := range a.Classes {
			bp, err := b.class(a.Classes[i])
			if err != nil {
				return err
			}
			bps[i] = bp
		}
		for i := range bps {
			for j := i + 1; j < len(bps); j++ {
				b.subsume(bps[i], -bps[j], h)
			}
		}

	case ontology.ClassAssertion:
		c, err := b.class(*a.Class)
		if err != nil {
			return err
		}
		tb.AddConceptAssertion(tb.Individual(a.Individual), c, h)

	case ontology.RoleAssertion:
		r, _ := b.st.Role(a.Role)
		from, to := tb.Individual(a.Individual), tb.Individual(a.Object)
		tb.AddRoleAssertion(from, to, r, h)

	case ontology.DataAssertion:
		r, _ := b.st.Role(a.Role)
		v, err := b.literal(*a.Value)
		if err != nil {
			return err
		}
		tb.AddConceptAssertion(tb.Individual(a.Individual), d.Exists(r, v), h)

	case ontology.DifferentIndividual:
		inds := make([]int, len(a.Individuals))
		for i, n := range a.Individuals {
			inds[i] = tb.Individual(n)
		}
		tb.AddDifferent(inds, h)
	}
	return nil
}

// subsume records sub ⊑ sup, absorbing it into the told list of a name
// when possible.
func (b *builder) subsume(sub, sup dag.BP, h int) {
	d := b.d
	switch {
	case sub == dag.Top:
		b.gci(sup, h)
		return
	case sub == dag.Bottom || sup == dag.Top:
		return
	case !b.absorbC:
	case d.Kind(sub) == dag.KindName:
		b.s.tbox.AddTold(sub, sup, h)
		b.s.absorbed++
		return
	case d.Kind(sub) == dag.KindAnd:
		args := d.Get(sub).Args
		for i, a := range args {
			if d.Kind(a) != dag.KindName {
				continue
			}
			rest := make([]dag.BP, 0, len(args)-1)
			rest = append(rest, args[:i]...)
			rest = append(rest, args[i+1:]...)
			b.s.tbox.AddTold(a, d.Or(-d.And(rest...), sup), h)
			b.s.absorbed++
			return
		}
	}
	b.gci(d.Or(-sub, sup), h)
}

func (b *builder) gci(c dag.BP, h int) {
	b.s.tbox.AddGCI(c, h)
	b.s.gcis++
}

// toldEdges records the atomic subsumptions sub ⊑ sup states: a name
// below a name, or below every named conjunct.
func (b *builder) toldEdges(sub, sup ontology.ClassExpr, h int) {
	if sub.Op != ontology.OpClass {
		return
	}
	from, _ := b.st.Class(sub.Name)
	switch sup.Op {
	case ontology.OpClass:
		to, _ := b.st.Class(sup.Name)
		b.s.told.add(from, to, h)
	case ontology.OpAnd:
		for _, a := range sup.Args {
			if a.Op == ontology.OpClass {
				to, _ := b.st.Class(a.Name)
				b.s.told.add(from, to, h)
			}
		}
	}
}

// class translates a class expression. Roles must already be known.
func (t *translator) class(c ontology.ClassExpr) (dag.BP, error) {
	d := t.d
	switch c.Op {
	case ontology.OpThing:
		return dag.Top, nil
	case ontology.OpNothing:
		return dag.Bottom, nil
	case ontology.OpClass:
		return t.st.InternClass(d, c.Name), nil
	case ontology.OpAnd, ontology.OpOr:
		args := make([]dag.BP, len(c.Args))
		for i := range c.Args {
			bp, err := t.class(c.Args[i])
			if err != nil {
				return dag.Invalid, err
			}
			args[i] = bp
		}
		if c.Op == ontology.OpAnd {
			return d.And(args...), nil
		}
		return d.Or(args...), nil
	case ontology.OpNot:
		if len(c.Args) != 1 {
			return dag.Invalid, fmt.Errorf("not takes one argument")
		}
		bp, err := t.class(c.Args[0])
		if err != nil {
			return dag.Invalid, err
		}
		return d.Not(bp), nil
	case ontology.OpValue:
		if c.Role == nil || c.Value == nil {
			return dag.Invalid, fmt.Errorf("value restriction needs role and value")
		}
		r, err := t.role(*c.Role, true)
		if err != nil {
			return dag.Invalid, err
		}
		v, err := t.literal(*c.Value)
		if err != nil {
			return dag.Invalid, err
		}
		return d.Exists(r, v), nil
	case ontology.OpSome, ontology.OpOnly, ontology.OpMin, ontology.OpMax, ontology.OpExactly:
		return t.restriction(c)
	}
	return dag.Invalid, fmt.Errorf("unknown class constructor %q", c.Op)
}

func (t *translator) restriction(c ontology.ClassExpr) (dag.BP, error) {
	d := t.d
	if c.Role == nil {
		return dag.Invalid, fmt.Errorf("%s restriction without a role", c.Op)
	}
	data := t.st.IsDataRole(c.Role.Name)
	r, err := t.role(*c.Role, data)
	if err != nil {
		return dag.Invalid, err
	}
	filler := dag.Top
	switch {
	case c.Range != nil:
		if !data {
			return dag.Invalid, fmt.Errorf("object role %q with a data range", c.Role.Name)
		}
		e, neg, err := dataRange(*c.Range)
		if err != nil {
			return dag.Invalid, err
		}
		filler = d.DataType(e)
		if neg {
			filler = -filler
		}
	case c.Filler != nil:
		if data && c.Filler.Op != ontology.OpThing {
			return dag.Invalid, fmt.Errorf("data role %q with a class filler", c.Role.Name)
		}
		if filler, err = t.class(*c.Filler); err != nil {
			return dag.Invalid, err
		}
	}
	switch c.Op {
	case ontology.OpSome:
		return d.Exists(r, filler), nil
	case ontology.OpOnly:
		return d.Forall(r, filler), nil
	case ontology.OpMin:
		return d.AtLeast(c.N, r, filler), nil
	case ontology.OpMax:
		return d.AtMost(c.N, r, filler), nil
	}
	return d.And(d.AtLeast(c.N, r, filler), d.AtMost(c.N, r, filler)), nil
}

func (t *translator) role(re ontology.RoleExpr, data bool) (dag.Role, error) {
	r, ok := t.st.Role(re.Name)
	if !ok {
		return dag.NoRole, fmt.Errorf("unknown role %q", re.Name)
	}
	if t.st.IsDataRole(re.Name) != data {
		return dag.NoRole, fmt.Errorf("role %q used with the wrong kind of filler", re.Name)
	}
	if re.Inverse {
		if data {
			return dag.NoRole, fmt.Errorf("data role %q has no inverse", re.Name)
		}
		return r.Inverse(), nil
	}
	return r, nil
}

func (t *translator) literal(l ontology.Literal) (dag.BP, error) {
	b, err := datatype.Known(l.Datatype)
	if err != nil {
		return dag.Invalid, err
	}
	lit := datatype.Literal{Datatype: l.Datatype, Value: l.Value}
	if !b.IsCompatibleLiteral(lit) {
		return dag.Invalid, fmt.Errorf("malformed literal %s", lit)
	}
	return t.d.DataValue(lit), nil
}

// dataRange translates a data range. The flag reports a negated range.
func dataRange(r ontology.DataRange) (datatype.Expr, bool, error) {
	switch {
	case len(r.Union) > 0:
		var host datatype.Expr
		name := r.Datatype
		if name == "" {
			name = datatype.Any
		}
		hb, err := datatype.Known(name)
		if err != nil {
			return nil, false, err
		}
		host = hb
		u := datatype.NewUnion(host)
		for _, ur := range r.Union {
			m, neg, err := dataRange(ur)
			if err != nil {
				return nil, false, err
			}
			if neg {
				return nil, false, fmt.Errorf("negated union member %s", ur)
			}
			u = u.Add(m)
		}
		return u, r.Negated, nil
	case r.Min != nil || r.Max != nil:
		if r.Datatype != "" && r.Datatype != datatype.Integer {
			return nil, false, fmt.Errorf("bounds are only supported on %s, not %s", datatype.Integer, r.Datatype)
		}
		return datatype.IntRange(r.Min, r.Max), r.Negated, nil
	}
	name := r.Datatype
	if name == "" {
		name = datatype.Any
	}
	b, err := datatype.Known(name)
	if err != nil {
		return nil, false, err
	}
	return b, r.Negated, nil
}
