// Package ontology is the external axiom model the reasoner loads: class
// and role expressions, data ranges, literals and axioms, already
// structured. Documents are read from YAML or JSON.
package ontology

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is the constructor of a class expression.
type Op string

const (
	OpThing   Op = "thing"
	OpNothing Op = "nothing"
	OpClass   Op = "class"
	OpAnd     Op = "and"
	OpOr      Op = "or"
	OpNot     Op = "not"
	OpSome    Op = "some"
	OpOnly    Op = "only"
	OpMin     Op = "min"
	OpMax     Op = "max"
	OpExactly Op = "exactly"
	// OpValue is a data restriction to one literal: role value v.
	OpValue Op = "value"
)

// RoleExpr is a named role or its inverse.
type RoleExpr struct {
	Name    string `yaml:"name" json:"name"`
	Inverse bool   `yaml:"inverse,omitempty" json:"inverse,omitempty"`
}

func (r RoleExpr) String() string {
	if r.Inverse {
		return "inv(" + r.Name + ")"
	}
	return r.Name
}

// Literal is a typed data value.
type Literal struct {
	Datatype string `yaml:"datatype" json:"datatype"`
	Value    string `yaml:"value" json:"value"`
}

func (l Literal) String() string {
	return strconv.Quote(l.Value) + "^^" + l.Datatype
}

// DataRange is a datatype, optionally restricted to an inclusive integer
// range, or a union of ranges.
type DataRange struct {
	Datatype string      `yaml:"datatype,omitempty" json:"datatype,omitempty"`
	Min      *int64      `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *int64      `yaml:"max,omitempty" json:"max,omitempty"`
	Union    []DataRange `yaml:"union,omitempty" json:"union,omitempty"`
	Negated  bool        `yaml:"negated,omitempty" json:"negated,omitempty"`
}

func (d DataRange) String() string {
	var s string
	switch {
	case len(d.Union) > 0:
		parts := make([]string, len(d.Union))
		for i, u := range d.Union {
			parts[i] = u.String()
		}
		s = d.Datatype + "{" + strings.Join(parts, " or ") + "}"
	case d.Min != nil || d.Max != nil:
		lo, hi := "*", "*"
		if d.Min != nil {
			lo = strconv.FormatInt(*d.Min, 10)
		}
		if d.Max != nil {
			hi = strconv.FormatInt(*d.Max, 10)
		}
		s = d.Datatype + "[" + lo + "," + hi + "]"
	default:
		s = d.Datatype
	}
	if d.Negated {
		return "not " + s
	}
	return s
}

// ClassExpr is a class expression. Which fields are set depends on Op:
// Name for class, Args for and/or/not, Role with Filler or Range for the
// restrictions, N for the cardinalities, Value for value.
type ClassExpr struct {
	Op     Op          `yaml:"op" json:"op"`
	Name   string      `yaml:"name,omitempty" json:"name,omitempty"`
	Args   []ClassExpr `yaml:"args,omitempty" json:"args,omitempty"`
	Role   *RoleExpr   `yaml:"role,omitempty" json:"role,omitempty"`
	N      int         `yaml:"n,omitempty" json:"n,omitempty"`
	Filler *ClassExpr  `yaml:"filler,omitempty" json:"filler,omitempty"`
	Range  *DataRange  `yaml:"range,omitempty" json:"range,omitempty"`
	Value  *Literal    `yaml:"value,omitempty" json:"value,omitempty"`
}

func Thing() ClassExpr   { return ClassExpr{Op: OpThing} }
func Nothing() ClassExpr { return ClassExpr{Op: OpNothing} }

// Class names an atomic class.
func Class(name string) ClassExpr { return ClassExpr{Op: OpClass, Name: name} }

func And(args ...ClassExpr) ClassExpr { return ClassExpr{Op: OpAnd, Args: args} }
func Or(args ...ClassExpr) ClassExpr  { return ClassExpr{Op: OpOr, Args: args} }
func Not(c ClassExpr) ClassExpr       { return ClassExpr{Op: OpNot, Args: []ClassExpr{c}} }

// Role names an object or data role.
func Role(name string) RoleExpr { return RoleExpr{Name: name} }

// Inv names the inverse of a role.
func Inv(name string) RoleExpr { return RoleExpr{Name: name, Inverse: true} }

func Some(r RoleExpr, c ClassExpr) ClassExpr { return restriction(OpSome, 0, r, c) }
func Only(r RoleExpr, c ClassExpr) ClassExpr { return restriction(OpOnly, 0, r, c) }

func Min(n int, r RoleExpr, c ClassExpr) ClassExpr     { return restriction(OpMin, n, r, c) }
func Max(n int, r RoleExpr, c ClassExpr) ClassExpr     { return restriction(OpMax, n, r, c) }
func Exactly(n int, r RoleExpr, c ClassExpr) ClassExpr { return restriction(OpExactly, n, r, c) }

func restriction(op Op, n int, r RoleExpr, c ClassExpr) ClassExpr {
	return ClassExpr{Op: op, Role: &r, N: n, Filler: &c}
}

// DataSome is role some range for a data role.
func DataSome(r string, d DataRange) ClassExpr {
	return ClassExpr{Op: OpSome, Role: &RoleExpr{Name: r}, Range: &d}
}

// DataOnly is role only range for a data role.
func DataOnly(r string, d DataRange) ClassExpr {
	return ClassExpr{Op: OpOnly, Role: &RoleExpr{Name: r}, Range: &d}
}

// DataMax is role max n range for a data role.
func DataMax(n int, r string, d DataRange) ClassExpr {
	return ClassExpr{Op: OpMax, N: n, Role: &RoleExpr{Name: r}, Range: &d}
}

// HasValue is role value v for a data role.
func HasValue(r string, v Literal) ClassExpr {
	return ClassExpr{Op: OpValue, Role: &RoleExpr{Name: r}, Value: &v}
}

// IsData reports whether the expression restricts a data role.
func (c ClassExpr) IsData() bool {
	return c.Range != nil || c.Value != nil
}

// String renders the expression in Manchester-like syntax.
func (c ClassExpr) String() string {
	switch c.Op {
	case OpThing:
		return "Thing"
	case OpNothing:
		return "Nothing"
	case OpClass:
		return c.Name
	case OpAnd, OpOr:
		parts := make([]string, len(c.Args))
		for i, a := range c.Args {
			parts[i] = a.String()
		}
		return "(" + strings.Join(parts, " "+string(c.Op)+" ") + ")"
	case OpNot:
		if len(c.Args) == 1 {
			return "not " + c.Args[0].String()
		}
	case OpValue:
		if c.Role != nil && c.Value != nil {
			return c.Role.String() + " value " + c.Value.String()
		}
	case OpSome, OpOnly, OpMin, OpMax, OpExactly:
		if c.Role == nil {
			break
		}
		var filler string
		switch {
		case c.Range != nil:
			filler = c.Range.String()
		case c.Filler != nil:
			filler = c.Filler.String()
		default:
			filler = "Thing"
		}
		if c.Op == OpSome || c.Op == OpOnly {
			return c.Role.String() + " " + string(c.Op) + " " + filler
		}
		return fmt.Sprintf("%s %s %d %s", c.Role, c.Op, c.N, filler)
	}
	return "<" + string(c.Op) + "?>"
}

// Kind is the type of an axiom.
type Kind string

const (
	SubClassOf          Kind = "subclass"
	EquivalentClasses   Kind = "equivalent"
	DisjointClasses     Kind = "disjoint"
	DeclareRole         Kind = "role"
	DeclareDataRole     Kind = "data-role"
	SubRoleOf           Kind = "subrole"
	InverseRoles        Kind = "inverse"
	TransitiveRole      Kind = "transitive"
	FunctionalRole      Kind = "functional"
	ClassAssertion      Kind = "type"
	RoleAssertion       Kind = "related"
	DataAssertion       Kind = "data"
	DifferentIndividual Kind = "different"
)

// Axiom is one statement. Which fields are set depends on Kind:
//
//	subclass:    Sub, Super
//	equivalent:  Classes (two or more)
//	disjoint:    Classes (two or more)
//	role, data-role, transitive, functional: Role
//	subrole:     Role, SuperRole
//	inverse:     Role, InverseOf
//	type:        Individual, Class
//	related:     Individual, Role, Object
//	data:        Individual, Role, Value
//	different:   Individuals (two or more)
type Axiom struct {
	Kind        Kind        `yaml:"kind" json:"kind" validate:"required,oneof=subclass equivalent disjoint role data-role subrole inverse transitive functional type related data different"`
	Sub         *ClassExpr  `yaml:"sub,omitempty" json:"sub,omitempty"`
	Super       *ClassExpr  `yaml:"super,omitempty" json:"super,omitempty"`
	Classes     []ClassExpr `yaml:"classes,omitempty" json:"classes,omitempty"`
	Role        string      `yaml:"role,omitempty" json:"role,omitempty"`
	SuperRole   string      `yaml:"super_role,omitempty" json:"super_role,omitempty"`
	InverseOf   string      `yaml:"inverse_of,omitempty" json:"inverse_of,omitempty"`
	Individual  string      `yaml:"individual,omitempty" json:"individual,omitempty"`
	Class       *ClassExpr  `yaml:"class,omitempty" json:"class,omitempty"`
	Object      string      `yaml:"object,omitempty" json:"object,omitempty"`
	Value       *Literal    `yaml:"value,omitempty" json:"value,omitempty"`
	Individuals []string    `yaml:"individuals,omitempty" json:"individuals,omitempty"`
}

func Sub(sub, super ClassExpr) Axiom {
	return Axiom{Kind: SubClassOf, Sub: &sub, Super: &super}
}

func Equivalent(classes ...ClassExpr) Axiom {
	return Axiom{Kind: EquivalentClasses, Classes: classes}
}

func Disjoint(classes ...ClassExpr) Axiom {
	return Axiom{Kind: DisjointClasses, Classes: classes}
}

func Type(ind string, c ClassExpr) Axiom {
	return Axiom{Kind: ClassAssertion, Individual: ind, Class: &c}
}

func Related(from, role, to string) Axiom {
	return Axiom{Kind: RoleAssertion, Individual: from, Role: role, Object: to}
}

func (a Axiom) String() string {
	classes := func(cs []ClassExpr, sep string) string {
		parts := make([]string, len(cs))
		for i, c := range cs {
			parts[i] = c.String()
		}
		return strings.Join(parts, sep)
	}
	switch a.Kind {
	case SubClassOf:
		if a.Sub != nil && a.Super != nil {
			return a.Sub.String() + " SubClassOf " + a.Super.String()
		}
	case EquivalentClasses:
		return classes(a.Classes, " EquivalentTo ")
	case DisjointClasses:
		return "DisjointClasses(" + classes(a.Classes, ", ") + ")"
	case DeclareRole:
		return "ObjectProperty " + a.Role
	case DeclareDataRole:
		return "DataProperty " + a.Role
	case SubRoleOf:
		return a.Role + " SubPropertyOf " + a.SuperRole
	case InverseRoles:
		return a.Role + " InverseOf " + a.InverseOf
	case TransitiveRole:
		return "Transitive " + a.Role
	case FunctionalRole:
		return "Functional " + a.Role
	case ClassAssertion:
		if a.Class != nil {
			return a.Individual + " Type " + a.Class.String()
		}
	case RoleAssertion:
		return a.Individual + " " + a.Role + " " + a.Object
	case DataAssertion:
		if a.Value != nil {
			return a.Individual + " " + a.Role + " " + a.Value.String()
		}
	case DifferentIndividual:
		return "DifferentIndividuals(" + strings.Join(a.Individuals, ", ") + ")"
	}
	return "<" + string(a.Kind) + "?>"
}
