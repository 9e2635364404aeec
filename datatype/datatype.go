// Package datatype answers the value-space questions the tableau asks about
// data ranges: is a literal in a range, do two ranges overlap, is a range
// empty.
package datatype

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Well-known datatype names.
const (
	Any     = "rdfs:Literal"
	String  = "xsd:string"
	Boolean = "xsd:boolean"
	Decimal = "xsd:decimal"
	Integer = "xsd:integer"
)

// Literal is a lexical value tagged with its datatype name.
type Literal struct {
	Datatype string
	Value    string
}

func (l Literal) String() string {
	return strconv.Quote(l.Value) + "^^" + l.Datatype
}

// Expr is a data range the engine can query. Implementations must be
// immutable; String must identify the value space (it is used as the
// hash-consing key of data vertices).
type Expr interface {
	IsCompatibleLiteral(l Literal) bool
	IsCompatible(o Expr) bool
	EmptyValueSpace() bool
	String() string
}

// Basic is one of the built-in datatypes.
type Basic struct {
	name string
}

var basics = map[string]*Basic{
	Any:     {name: Any},
	String:  {name: String},
	Boolean: {name: Boolean},
	Decimal: {name: Decimal},
	Integer: {name: Integer},
}

// Known returns the built-in datatype with the given name.
func Known(name string) (*Basic, error) {
	if b, ok := basics[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("unknown datatype %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names lists the built-in datatype names.
func Names() []string {
	out := make([]string, 0, len(basics))
	for n := range basics {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (b *Basic) String() string { return b.name }

// Name returns the datatype IRI abbreviation.
func (b *Basic) Name() string { return b.name }

// subsumes reports whether every value of o is a value of b.
func (b *Basic) subsumes(o *Basic) bool {
	if b.name == Any || b.name == o.name {
		return true
	}
	return b.name == Decimal && o.name == Integer
}

// IsCompatibleLiteral reports whether l is a well-formed member of b.
func (b *Basic) IsCompatibleLiteral(l Literal) bool {
	lb, ok := basics[l.Datatype]
	if !ok {
		return false
	}
	switch b.name {
	case Any:
		return true
	case String:
		return lb.name == String
	case Boolean:
		if lb.name != Boolean {
			return false
		}
		_, err := strconv.ParseBool(l.Value)
		return err == nil
	case Decimal:
		if lb.name != Decimal && lb.name != Integer {
			return false
		}
		_, ok := new(big.Rat).SetString(l.Value)
		return ok
	case Integer:
		if lb.name != Integer && lb.name != Decimal {
			return false
		}
		_, ok := parseInteger(l.Value)
		return ok
	}
	return false
}

// IsCompatible reports whether b and o share at least one value.
func (b *Basic) IsCompatible(o Expr) bool {
	switch t := o.(type) {
	case *Basic:
		return b.subsumes(t) || t.subsumes(b)
	default:
		return o.IsCompatible(b)
	}
}

// EmptyValueSpace is false for every built-in datatype.
func (b *Basic) EmptyValueSpace() bool { return false }

func parseInteger(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if i, ok := new(big.Int).SetString(s, 10); ok {
		return i, true
	}
	// "3.0" is a decimal lexical form of an integer value
	r, ok := new(big.Rat).SetString(s)
	if !ok || !r.IsInt() {
		return nil, false
	}
	return r.Num(), true
}

// Range restricts xsd:integer to [Min, Max]. A nil bound is open.
type Range struct {
	Min, Max *big.Int
}

// IntRange builds an integer range; pass nil for an open bound.
func IntRange(min, max *int64) *Range {
	r := &Range{}
	if min != nil {
		r.Min = big.NewInt(*min)
	}
	if max != nil {
		r.Max = big.NewInt(*max)
	}
	return r
}

func (r *Range) String() string {
	lo, hi := "*", "*"
	if r.Min != nil {
		lo = r.Min.String()
	}
	if r.Max != nil {
		hi = r.Max.String()
	}
	return Integer + "[" + lo + "," + hi + "]"
}

func (r *Range) contains(v *big.Int) bool {
	if r.Min != nil && v.Cmp(r.Min) < 0 {
		return false
	}
	if r.Max != nil && v.Cmp(r.Max) > 0 {
		return false
	}
	return true
}

// IsCompatibleLiteral reports whether l is an integer inside the range.
func (r *Range) IsCompatibleLiteral(l Literal) bool {
	if !basics[Integer].IsCompatibleLiteral(l) {
		return false
	}
	v, _ := parseInteger(l.Value)
	return r.contains(v)
}

// IsCompatible reports whether r and o overlap.
func (r *Range) IsCompatible(o Expr) bool {
	if r.EmptyValueSpace() || o.EmptyValueSpace() {
		return false
	}
	switch t := o.(type) {
	case *Basic:
		return t.subsumes(basics[Integer])
	case *Range:
		lo := maxBound(r.Min, t.Min)
		hi := minBound(r.Max, t.Max)
		return lo == nil || hi == nil || lo.Cmp(hi) <= 0
	default:
		return o.IsCompatible(r)
	}
}

// EmptyValueSpace reports whether Min > Max.
func (r *Range) EmptyValueSpace() bool {
	return r.Min != nil && r.Max != nil && r.Min.Cmp(r.Max) > 0
}

func maxBound(a, b *big.Int) *big.Int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Cmp(b) >= 0:
		return a
	}
	return b
}

func minBound(a, b *big.Int) *big.Int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Cmp(b) <= 0:
		return a
	}
	return b
}

// Union is a host datatype narrowed to the union of a set of members.
// Unions are persistent: Add returns a new value.
type Union struct {
	host    Expr
	members []Expr
}

// NewUnion returns the union of members under host.
func NewUnion(host Expr, members ...Expr) *Union {
	u := &Union{host: host}
	for _, m := range members {
		u.members = appendUnique(u.members, m)
	}
	return u
}

func appendUnique(xs []Expr, e Expr) []Expr {
	for _, x := range xs {
		if x.String() == e.String() {
			return xs
		}
	}
	out := append(xs[:len(xs):len(xs)], e)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Add returns u extended with d.
func (u *Union) Add(d Expr) *Union {
	return &Union{host: u.host, members: appendUnique(u.members, d)}
}

func (u *Union) String() string {
	parts := make([]string, len(u.members))
	for i, m := range u.members {
		parts[i] = m.String()
	}
	return "union(" + u.host.String() + "){" + strings.Join(parts, " ") + "}"
}

// IsCompatibleLiteral holds when the host and some member accept l.
func (u *Union) IsCompatibleLiteral(l Literal) bool {
	if !u.host.IsCompatibleLiteral(l) {
		return false
	}
	for _, m := range u.members {
		if m.IsCompatibleLiteral(l) {
			return true
		}
	}
	return false
}

// IsCompatible holds when the host and some member overlap o.
func (u *Union) IsCompatible(o Expr) bool {
	if !u.host.IsCompatible(o) {
		return false
	}
	for _, m := range u.members {
		if m.IsCompatible(o) {
			return true
		}
	}
	return false
}

// EmptyValueSpace holds when every member is a restriction with an empty
// value space. A plain datatype member is never empty.
func (u *Union) EmptyValueSpace() bool {
	for _, m := range u.members {
		if _, basic := m.(*Basic); basic {
			return false
		}
		if !m.EmptyValueSpace() {
			return false
		}
	}
	return true
}

// Covers reports whether every value of b is also a value of a. It answers
// only for the built-in datatypes and integer ranges; for anything else it
// returns false, which the engine treats as "no clash known".
func Covers(a, b Expr) bool {
	if b.EmptyValueSpace() {
		return true
	}
	switch at := a.(type) {
	case *Basic:
		switch bt := b.(type) {
		case *Basic:
			return at.subsumes(bt)
		case *Range:
			return at.subsumes(basics[Integer])
		case *Union:
			for _, m := range bt.members {
				if !Covers(a, m) {
					return false
				}
			}
			return len(bt.members) > 0
		}
	case *Range:
		bt, ok := b.(*Range)
		if !ok {
			return false
		}
		if at.Min != nil && (bt.Min == nil || bt.Min.Cmp(at.Min) < 0) {
			return false
		}
		if at.Max != nil && (bt.Max == nil || bt.Max.Cmp(at.Max) > 0) {
			return false
		}
		return true
	case *Union:
		for _, m := range at.members {
			if Covers(m, b) && Covers(at.host, b) {
				return true
			}
		}
	}
	return false
}

// SameValue reports whether two literals denote the same value.
func SameValue(a, b Literal) bool {
	if a == b {
		return true
	}
	num := func(l Literal) (*big.Rat, bool) {
		if l.Datatype != Integer && l.Datatype != Decimal {
			return nil, false
		}
		return new(big.Rat).SetString(strings.TrimSpace(l.Value))
	}
	x, okA := num(a)
	y, okB := num(b)
	if okA && okB {
		return x.Cmp(y) == 0
	}
	if a.Datatype == Boolean && b.Datatype == Boolean {
		x, errA := strconv.ParseBool(a.Value)
		y, errB := strconv.ParseBool(b.Value)
		return errA == nil && errB == nil && x == y
	}
	return false
}
