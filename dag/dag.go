// Package dag is the shared concept graph. Every concept expression the
// reasoner sees is reduced to a small set of stored vertex tags and interned
// once; negation is the sign of the index.
package dag

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/nodeadmin/tableau/datatype"
)

// BP is a signed vertex index. -bp is the complement of bp.
type BP int32

const (
	Invalid BP = 0
	Top     BP = 1
	Bottom  BP = -1
)

// Abs returns the stored vertex index of bp.
func (bp BP) Abs() BP {
	if bp < 0 {
		return -bp
	}
	return bp
}

// Tag is the stored shape of a vertex.
type Tag uint8

const (
	TagTop Tag = iota
	TagName
	TagAnd
	TagForall
	TagLE
	TagDataType
	TagDataValue
)

var tagNames = [...]string{"top", "name", "and", "forall", "le", "datatype", "datavalue"}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

// Kind is the meaning of a signed index: a stored tag read with its sign.
// Rule selection switches over Kind.
type Kind uint8

const (
	KindTop Kind = iota
	KindBottom
	KindName
	KindNotName
	KindAnd
	KindOr
	KindForall
	KindExists
	KindAtMost
	KindAtLeast
	KindDataType
	KindNotDataType
	KindDataValue
	KindNotDataValue
)

var kindNames = [...]string{
	"top", "bottom", "name", "not-name", "and", "or", "forall", "exists",
	"at-most", "at-least", "datatype", "not-datatype", "datavalue", "not-datavalue",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// TransForall is ∀S.C for a transitive S below the role of a FORALL vertex.
type TransForall struct {
	Role Role
	BP   BP
}

// Vertex is an interned concept. Fields not used by its tag are zero.
type Vertex struct {
	Tag   Tag
	Name  string
	Args  []BP
	Role  Role
	N     int
	C     BP
	Data  datatype.Expr
	Value datatype.Literal

	// Trans lists ∀S.C for every transitive S ⊑* Role, FORALL only. An
	// empty list means the role is simple.
	Trans []TransForall
}

// Fault is a structural error in the graph: a bad index or a use of the
// graph the engine never makes when it is correct. It is raised by panic.
type Fault struct {
	Op  string
	BP  BP
	Msg string
}

func (f Fault) Error() string {
	if f.BP != Invalid {
		return fmt.Sprintf("dag %s %d: %s", f.Op, f.BP, f.Msg)
	}
	return fmt.Sprintf("dag %s: %s", f.Op, f.Msg)
}

// key is the hash-consing identity of a vertex.
type key struct {
	Tag   Tag
	Name  string
	Args  []BP
	Role  Role
	N     int
	C     BP
	Data  string
	Value string
}

func (k key) equal(o key) bool {
	return k.Tag == o.Tag && k.Name == o.Name && slices.Equal(k.Args, o.Args) &&
		k.Role == o.Role && k.N == o.N && k.C == o.C && k.Data == o.Data && k.Value == o.Value
}

// DAG owns every vertex of a session. It is built single-threaded and then
// shared read-only between searches.
type DAG struct {
	roles    *RoleBox
	vertices []*Vertex
	keys     []key
	index    map[uint64][]BP
	names    map[string]BP
	numbers  bool
}

// New returns a graph holding only TOP. roles must be finalized before any
// FORALL or AT-MOST vertex is added.
func New(roles *RoleBox) *DAG {
	d := &DAG{
		roles:    roles,
		vertices: []*Vertex{nil, {Tag: TagTop}},
		keys:     []key{{}, {Tag: TagTop}},
		index:    make(map[uint64][]BP),
		names:    make(map[string]BP),
	}
	d.index[d.hash(d.keys[1])] = []BP{Top}
	return d
}

// Roles returns the role box the graph was built over.
func (d *DAG) Roles() *RoleBox { return d.roles }

// Len returns the number of stored vertices, including TOP.
func (d *DAG) Len() int { return len(d.vertices) - 1 }

// Get returns the stored vertex of bp (sign ignored).
func (d *DAG) Get(bp BP) *Vertex {
	i := bp.Abs()
	if i == Invalid || int(i) >= len(d.vertices) {
		panic(Fault{Op: "get", BP: bp, Msg: "index out of range"})
	}
	return d.vertices[i]
}

// Kind returns the meaning of bp.
func (d *DAG) Kind(bp BP) Kind {
	v := d.Get(bp)
	neg := bp < 0
	switch v.Tag {
	case TagTop:
		return pick(neg, KindTop, KindBottom)
	case TagName:
		return pick(neg, KindName, KindNotName)
	case TagAnd:
		return pick(neg, KindAnd, KindOr)
	case TagForall:
		return pick(neg, KindForall, KindExists)
	case TagLE:
		return pick(neg, KindAtMost, KindAtLeast)
	case TagDataType:
		return pick(neg, KindDataType, KindNotDataType)
	case TagDataValue:
		return pick(neg, KindDataValue, KindNotDataValue)
	}
	panic(Fault{Op: "kind", BP: bp, Msg: "unknown tag " + v.Tag.String()})
}

func pick(neg bool, pos, negk Kind) Kind {
	if neg {
		return negk
	}
	return pos
}

// IsComplex reports whether bp belongs in the complex sub-label: its
// vertex has structure an expansion rule works on.
func (d *DAG) IsComplex(bp BP) bool {
	switch d.Get(bp).Tag {
	case TagAnd, TagForall, TagLE:
		return true
	}
	return false
}

// IsData reports whether bp is a data-range vertex.
func (d *DAG) IsData(bp BP) bool {
	switch d.Get(bp).Tag {
	case TagDataType, TagDataValue:
		return true
	}
	return false
}

// HasNumberRestrictions reports whether an AT-MOST vertex with n > 0 exists.
func (d *DAG) HasNumberRestrictions() bool { return d.numbers }

// Lookup returns the vertex of a concept name.
func (d *DAG) Lookup(name string) (BP, bool) {
	bp, ok := d.names[name]
	return bp, ok
}

func (d *DAG) hash(k key) uint64 {
	h, err := hashstructure.Hash(k, hashstructure.FormatV2, nil)
	if err != nil {
		panic(Fault{Op: "hash", Msg: err.Error()})
	}
	return h
}

func (d *DAG) intern(k key, v *Vertex) (BP, bool) {
	h := d.hash(k)
	for _, bp := range d.index[h] {
		if d.keys[bp].equal(k) {
			return bp, false
		}
	}
	bp := BP(len(d.vertices))
	d.vertices = append(d.vertices, v)
	d.keys = append(d.keys, k)
	d.index[h] = append(d.index[h], bp)
	return bp, true
}

// check panics when an operand of op is not a stored vertex.
func (d *DAG) check(op string, bps ...BP) {
	for _, bp := range bps {
		if i := bp.Abs(); i == Invalid || int(i) >= len(d.vertices) {
			panic(Fault{Op: op, BP: bp, Msg: "operand out of range"})
		}
	}
}

// Op selects the constructor of a Desc.
type Op uint8

const (
	OpTop Op = iota
	OpBottom
	OpName
	OpNot
	OpAnd
	OpOr
	OpExists
	OpForall
	OpAtLeast
	OpAtMost
	OpDataType
	OpDataValue
)

// Desc describes a vertex to add. Args are the operands of AND/OR, C the
// operand of NOT and the filler of restrictions.
type Desc struct {
	Op    Op
	Name  string
	Args  []BP
	Role  Role
	N     int
	C     BP
	Data  datatype.Expr
	Value datatype.Literal
}

// AddVertex interns d and returns its signed index. Equivalent descriptions
// always yield the same index.
func (d *DAG) AddVertex(desc Desc) BP {
	switch desc.Op {
	case OpTop:
		return Top
	case OpBottom:
		return Bottom
	case OpName:
		return d.Name(desc.Name)
	case OpNot:
		d.check("not", desc.C)
		return -desc.C
	case OpAnd:
		return d.And(desc.Args...)
	case OpOr:
		return d.Or(desc.Args...)
	case OpExists:
		return d.Exists(desc.Role, desc.C)
	case OpForall:
		return d.Forall(desc.Role, desc.C)
	case OpAtLeast:
		return d.AtLeast(desc.N, desc.Role, desc.C)
	case OpAtMost:
		return d.AtMost(desc.N, desc.Role, desc.C)
	case OpDataType:
		return d.DataType(desc.Data)
	case OpDataValue:
		return d.DataValue(desc.Value)
	}
	panic(Fault{Op: "add", Msg: fmt.Sprintf("unknown op %d", desc.Op)})
}

// Name interns a concept name.
func (d *DAG) Name(name string) BP {
	bp, _ := d.intern(key{Tag: TagName, Name: name}, &Vertex{Tag: TagName, Name: name})
	d.names[name] = bp
	return bp
}

// And interns the conjunction of args.
func (d *DAG) And(args ...BP) BP {
	d.check("and", args...)
	flat := make([]BP, 0, len(args))
	for _, a := range args {
		if a > 0 && d.vertices[a].Tag == TagAnd {
			flat = append(flat, d.vertices[a].Args...)
			continue
		}
		flat = append(flat, a)
	}
	slices.Sort(flat)
	flat = slices.Compact(flat)
	ops := flat[:0]
	for _, a := range flat {
		switch a {
		case Top:
			continue
		case Bottom:
			return Bottom
		}
		ops = append(ops, a)
	}
	for _, a := range ops {
		if a < 0 {
			if _, found := slices.BinarySearch(ops, -a); found {
				return Bottom
			}
		}
	}
	switch len(ops) {
	case 0:
		return Top
	case 1:
		return ops[0]
	}
	stored := slices.Clone(ops)
	bp, _ := d.intern(key{Tag: TagAnd, Args: stored}, &Vertex{Tag: TagAnd, Args: stored})
	return bp
}

// Or interns the disjunction of args as ¬(¬a1 ⊓ ... ⊓ ¬an).
func (d *DAG) Or(args ...BP) BP {
	neg := make([]BP, len(args))
	for i, a := range args {
		neg[i] = -a
	}
	return -d.And(neg...)
}

// Not returns the complement of c.
func (d *DAG) Not(c BP) BP {
	d.check("not", c)
	return -c
}

// Forall interns ∀r.c.
func (d *DAG) Forall(r Role, c BP) BP {
	d.check("forall", c)
	d.roleReady("forall")
	if c == Top {
		return Top
	}
	bp, fresh := d.intern(key{Tag: TagForall, Role: r, C: c}, &Vertex{Tag: TagForall, Role: r, C: c})
	if fresh {
		var trans []TransForall
		for _, s := range d.roles.TransitiveSubRoles(r) {
			trans = append(trans, TransForall{Role: s, BP: d.Forall(s, c)})
		}
		d.vertices[bp].Trans = trans
	}
	return bp
}

// Exists interns ∃r.c as ¬∀r.¬c.
func (d *DAG) Exists(r Role, c BP) BP {
	d.check("exists", c)
	return -d.Forall(r, -c)
}

// AtMost interns ≤n r.c.
func (d *DAG) AtMost(n int, r Role, c BP) BP {
	d.check("at-most", c)
	d.roleReady("at-most")
	switch {
	case n < 0:
		return Bottom
	case c == Bottom:
		return Top
	case n == 0:
		return d.Forall(r, -c)
	}
	d.numbers = true
	bp, _ := d.intern(key{Tag: TagLE, Role: r, N: n, C: c}, &Vertex{Tag: TagLE, Role: r, N: n, C: c})
	return bp
}

// AtLeast interns ≥n r.c as ¬≤(n-1) r.c.
func (d *DAG) AtLeast(n int, r Role, c BP) BP {
	d.check("at-least", c)
	if n <= 0 {
		return Top
	}
	return -d.AtMost(n-1, r, c)
}

// DataType interns a data range.
func (d *DAG) DataType(e datatype.Expr) BP {
	if e == nil {
		panic(Fault{Op: "datatype", Msg: "nil expression"})
	}
	bp, _ := d.intern(key{Tag: TagDataType, Data: e.String()}, &Vertex{Tag: TagDataType, Data: e})
	return bp
}

// DataValue interns a single literal.
func (d *DAG) DataValue(l datatype.Literal) BP {
	bp, _ := d.intern(key{Tag: TagDataValue, Value: l.String()}, &Vertex{Tag: TagDataValue, Value: l})
	return bp
}

func (d *DAG) roleReady(op string) {
	if d.roles == nil || !d.roles.Final() {
		panic(Fault{Op: op, Msg: "role box not finalized"})
	}
}

// String renders bp in DL syntax.
func (d *DAG) String(bp BP) string {
	var b strings.Builder
	d.render(&b, bp)
	return b.String()
}

func (d *DAG) render(b *strings.Builder, bp BP) {
	v := d.Get(bp)
	switch d.Kind(bp) {
	case KindTop:
		b.WriteString("⊤")
	case KindBottom:
		b.WriteString("⊥")
	case KindName:
		b.WriteString(v.Name)
	case KindNotName:
		b.WriteString("¬" + v.Name)
	case KindAnd, KindOr:
		sep := " ⊓ "
		sign := BP(1)
		if bp < 0 {
			sep, sign = " ⊔ ", -1
		}
		b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString(sep)
			}
			d.render(b, sign*a)
		}
		b.WriteByte(')')
	case KindForall:
		b.WriteString("∀" + d.roles.Name(v.Role) + ".")
		d.render(b, v.C)
	case KindExists:
		b.WriteString("∃" + d.roles.Name(v.Role) + ".")
		d.render(b, -v.C)
	case KindAtMost:
		fmt.Fprintf(b, "≤%d %s.", v.N, d.roles.Name(v.Role))
		d.render(b, v.C)
	case KindAtLeast:
		fmt.Fprintf(b, "≥%d %s.", v.N+1, d.roles.Name(v.Role))
		d.render(b, v.C)
	case KindDataType:
		b.WriteString(v.Data.String())
	case KindNotDataType:
		b.WriteString("¬" + v.Data.String())
	case KindDataValue:
		b.WriteString(v.Value.String())
	case KindNotDataValue:
		b.WriteString("¬" + v.Value.String())
	}
}
