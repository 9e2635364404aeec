package reasoner

import (
	"fmt"
	"sort"

	"github.com/nodeadmin/tableau/dag"
)

// SymbolTable maps the names used in axioms to DAG vertices and roles.
// Names are interned on first use; the DAG owns the vertices themselves.
type SymbolTable struct {
	classToBP map[string]dag.BP
	classes   []string

	roleToID map[string]dag.Role
	roles    []string
	data     map[string]bool
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		classToBP: make(map[string]dag.BP, 64),
		roleToID:  make(map[string]dag.Role, 16),
		data:      make(map[string]bool, 4),
	}
}

// InternClass returns the vertex of a named class, creating it in d if
// needed.
func (st *SymbolTable) InternClass(d *dag.DAG, name string) dag.BP {
	if bp, ok := st.classToBP[name]; ok {
		return bp
	}
	bp := d.Name(name)
	st.classToBP[name] = bp
	st.classes = append(st.classes, name)
	return bp
}

// InternRole registers a role in the box. A name cannot be both an object
// and a data role.
func (st *SymbolTable) InternRole(box *dag.RoleBox, name string, data bool) (dag.Role, error) {
	if r, ok := st.roleToID[name]; ok {
		if st.data[name] != data {
			return 0, fmt.Errorf("role %q used as both object and data role", name)
		}
		return r, nil
	}
	var (
		r   dag.Role
		err error
	)
	if data {
		r, err = box.Data(name)
	} else {
		r, err = box.Object(name)
	}
	if err != nil {
		return 0, err
	}
	st.roleToID[name] = r
	st.roles = append(st.roles, name)
	st.data[name] = data
	return r, nil
}

// Class looks up a named class.
func (st *SymbolTable) Class(name string) (dag.BP, bool) {
	bp, ok := st.classToBP[name]
	return bp, ok
}

// Role looks up a role.
func (st *SymbolTable) Role(name string) (dag.Role, bool) {
	r, ok := st.roleToID[name]
	return r, ok
}

// IsDataRole reports whether name was registered as a data role.
func (st *SymbolTable) IsDataRole(name string) bool { return st.data[name] }

func (st *SymbolTable) ClassCount() int { return len(st.classes) }
func (st *SymbolTable) RoleCount() int  { return len(st.roles) }

// ClassNames returns the named classes in sorted order.
func (st *SymbolTable) ClassNames() []string {
	out := append([]string(nil), st.classes...)
	sort.Strings(out)
	return out
}
