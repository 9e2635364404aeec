package ontology

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// QueryKind names a question a document asks.
type QueryKind string

const (
	QuerySatisfiable QueryKind = "satisfiable"
	QuerySubsumes    QueryKind = "subsumes"
	QueryConsistent  QueryKind = "consistent"
	QueryInstances   QueryKind = "instances"
)

// Query is a question stored alongside the axioms.
type Query struct {
	Kind  QueryKind  `yaml:"kind" json:"kind" validate:"required,oneof=satisfiable subsumes consistent instances"`
	Class *ClassExpr `yaml:"class,omitempty" json:"class,omitempty" validate:"required_if=Kind satisfiable,required_if=Kind instances"`
	Sub   *ClassExpr `yaml:"sub,omitempty" json:"sub,omitempty" validate:"required_if=Kind subsumes"`
	Super *ClassExpr `yaml:"super,omitempty" json:"super,omitempty" validate:"required_if=Kind subsumes"`
}

// Document is a named set of axioms and, optionally, queries over them.
type Document struct {
	Name    string  `yaml:"name,omitempty" json:"name,omitempty"`
	Axioms  []Axiom `yaml:"axioms" json:"axioms" validate:"dive"`
	Queries []Query `yaml:"queries,omitempty" json:"queries,omitempty" validate:"dive"`
}

var validate = validator.New()

// UnmarshalYAML accepts a bare scalar as a class name; "Thing" and
// "Nothing" are the top and bottom classes.
func (c *ClassExpr) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "Thing":
			*c = Thing()
		case "Nothing":
			*c = Nothing()
		default:
			*c = Class(n.Value)
		}
		return nil
	}
	type plain ClassExpr
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*c = ClassExpr(p)
	return nil
}

// UnmarshalYAML accepts "R" and "inv(R)".
func (r *RoleExpr) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		v := n.Value
		if strings.HasPrefix(v, "inv(") && strings.HasSuffix(v, ")") {
			*r = Inv(v[4 : len(v)-1])
			return nil
		}
		*r = Role(v)
		return nil
	}
	type plain RoleExpr
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*r = RoleExpr(p)
	return nil
}

// Read decodes a document from YAML. JSON input is accepted as well.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadFile decodes the document stored at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Validate checks the shape of every axiom and query.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	for i := range d.Axioms {
		if err := d.Axioms[i].Validate(); err != nil {
			return fmt.Errorf("axiom %d: %w", i, err)
		}
	}
	for i, q := range d.Queries {
		for _, c := range []*ClassExpr{q.Class, q.Sub, q.Super} {
			if c == nil {
				continue
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
		}
	}
	return nil
}

// Validate checks that the fields Kind needs are present.
func (a *Axiom) Validate() error {
	if err := validate.Struct(a); err != nil {
		return err
	}
	need := func(ok bool, what string) error {
		if !ok {
			return fmt.Errorf("%s axiom needs %s", a.Kind, what)
		}
		return nil
	}
	var err error
	switch a.Kind {
	case SubClassOf:
		if err = need(a.Sub != nil && a.Super != nil, "sub and super"); err == nil {
			if err = a.Sub.Validate(); err == nil {
				err = a.Super.Validate()
			}
		}
	case EquivalentClasses, DisjointClasses:
		if err = need(len(a.Classes) >= 2, "two or more classes"); err == nil {
			for i := range a.Classes {
				if err = a.Classes[i].Validate(); err != nil {
					break
				}
			}
		}
	case DeclareRole, DeclareDataRole, TransitiveRole, FunctionalRole:
		err = need(a.Role != "", "a role")
	case SubRoleOf:
		err = need(a.Role != "" && a.SuperRole != "", "role and super_role")
	case InverseRoles:
		err = need(a.Role != "" && a.InverseOf != "", "role and inverse_of")
	case ClassAssertion:
		if err = need(a.Individual != "" && a.Class != nil, "individual and class"); err == nil {
			err = a.Class.Validate()
		}
	case RoleAssertion:
		err = need(a.Individual != "" && a.Role != "" && a.Object != "", "individual, role and object")
	case DataAssertion:
		err = need(a.Individual != "" && a.Role != "" && a.Value != nil, "individual, role and value")
	case DifferentIndividual:
		err = need(len(a.Individuals) >= 2, "two or more individuals")
	}
	return err
}

// Validate checks that the fields Op needs are present, recursively.
func (c *ClassExpr) Validate() error {
	switch c.Op {
	case OpThing, OpNothing:
		return nil
	case OpClass:
		if c.Name == "" {
			return fmt.Errorf("class without a name")
		}
		return nil
	case OpAnd, OpOr:
		if len(c.Args) == 0 {
			return fmt.Errorf("%s without arguments", c.Op)
		}
	case OpNot:
		if len(c.Args) != 1 {
			return fmt.Errorf("not takes one argument, got %d", len(c.Args))
		}
	case OpValue:
		if c.Role == nil || c.Value == nil {
			return fmt.Errorf("value restriction needs role and value")
		}
		return nil
	case OpSome, OpOnly, OpMin, OpMax, OpExactly:
		if c.Role == nil || c.Role.Name == "" {
			return fmt.Errorf("%s restriction without a role", c.Op)
		}
		if c.N < 0 {
			return fmt.Errorf("%s restriction with negative cardinality", c.Op)
		}
		if c.Filler != nil && c.Range != nil {
			return fmt.Errorf("%s restriction with both a class and a data filler", c.Op)
		}
		if c.Range != nil {
			return nil
		}
		if c.Filler != nil {
			return c.Filler.Validate()
		}
		return nil
	default:
		return fmt.Errorf("unknown class constructor %q", c.Op)
	}
	for i := range c.Args {
		if err := c.Args[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
