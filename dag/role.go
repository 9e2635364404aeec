package dag

import (
	"fmt"
	"sort"
)

// Role indexes a role in a RoleBox. Object roles come in pairs: r and
// r.Inverse() are always adjacent.
type Role int32

// NoRole marks the absence of a role.
const NoRole Role = -1

// Inverse returns the inverse role.
func (r Role) Inverse() Role { return r ^ 1 }

type roleInfo struct {
	name       string
	data       bool
	transitive bool
	functional bool
	told       []Role

	// filled by Finalize
	supers    map[Role]struct{}
	transSubs []Role
}

// RoleBox holds the role hierarchy. Roles are added and related while the
// box is open; Finalize closes it and computes the sub-role closure.
type RoleBox struct {
	roles       []roleInfo
	byName      map[string]Role
	final       bool
	inverseUsed bool
}

// NewRoleBox returns an empty, open role box.
func NewRoleBox() *RoleBox {
	return &RoleBox{byName: make(map[string]Role)}
}

func (b *RoleBox) open(op string) {
	if b.final {
		panic(Fault{Op: op, Msg: "role box is finalized"})
	}
}

func (b *RoleBox) intern(name string, data bool) (Role, error) {
	if r, ok := b.byName[name]; ok {
		if b.roles[r].data != data {
			return NoRole, fmt.Errorf("role %q used both as object and data role", name)
		}
		return r, nil
	}
	b.open("intern role")
	r := Role(len(b.roles))
	b.roles = append(b.roles,
		roleInfo{name: name, data: data},
		roleInfo{name: "inv(" + name + ")", data: data},
	)
	b.byName[name] = r
	return r, nil
}

// Object interns an object role by name.
func (b *RoleBox) Object(name string) (Role, error) { return b.intern(name, false) }

// Data interns a data role by name.
func (b *RoleBox) Data(name string) (Role, error) { return b.intern(name, true) }

// Lookup returns the role with the given name.
func (b *RoleBox) Lookup(name string) (Role, bool) {
	r, ok := b.byName[name]
	return r, ok
}

func (b *RoleBox) info(r Role) *roleInfo {
	if r < 0 || int(r) >= len(b.roles) {
		panic(Fault{Op: "role", Msg: fmt.Sprintf("role %d out of range", r)})
	}
	return &b.roles[r]
}

// MarkInverse records that an inverse role occurs in the knowledge base.
func (b *RoleBox) MarkInverse() { b.inverseUsed = true }

// AddSuper records sub ⊑ sup, and with it inv(sub) ⊑ inv(sup).
func (b *RoleBox) AddSuper(sub, sup Role) error {
	b.open("add super-role")
	if b.info(sub).data != b.info(sup).data {
		return fmt.Errorf("cannot relate %s and %s: mixed object and data roles", b.Name(sub), b.Name(sup))
	}
	b.roles[sub].told = append(b.roles[sub].told, sup)
	b.roles[sub.Inverse()].told = append(b.roles[sub.Inverse()].told, sup.Inverse())
	return nil
}

// AddInverse records that r and s are inverses of each other.
func (b *RoleBox) AddInverse(r, s Role) error {
	if b.info(r).data || b.info(s).data {
		return fmt.Errorf("data roles have no inverse")
	}
	b.MarkInverse()
	if err := b.AddSuper(r, s.Inverse()); err != nil {
		return err
	}
	return b.AddSuper(s.Inverse(), r)
}

// SetTransitive marks r (and its inverse) transitive.
func (b *RoleBox) SetTransitive(r Role) error {
	b.open("set transitive")
	if b.info(r).data {
		return fmt.Errorf("data role %s cannot be transitive", b.Name(r))
	}
	b.roles[r].transitive = true
	b.roles[r.Inverse()].transitive = true
	return nil
}

// SetFunctional marks r functional.
func (b *RoleBox) SetFunctional(r Role) {
	b.open("set functional")
	b.info(r).functional = true
}

// Finalize computes the reflexive-transitive super-role closure and the
// transitive sub-roles of every role. The box is read-only afterwards.
func (b *RoleBox) Finalize() {
	if b.final {
		return
	}
	for i := range b.roles {
		seen := map[Role]struct{}{Role(i): {}}
		stack := []Role{Role(i)}
		for len(stack) > 0 {
			r := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, s := range b.roles[r].told {
				if _, ok := seen[s]; !ok {
					seen[s] = struct{}{}
					stack = append(stack, s)
				}
			}
		}
		b.roles[i].supers = seen
	}
	// equivalent roles share transitivity
	for i := range b.roles {
		if !b.roles[i].transitive {
			continue
		}
		for s := range b.roles[i].supers {
			if _, back := b.roles[s].supers[Role(i)]; back {
				b.roles[s].transitive = true
			}
		}
	}
	for i := range b.roles {
		var subs []Role
		for s := range b.roles {
			if !b.roles[s].transitive {
				continue
			}
			if _, ok := b.roles[s].supers[Role(i)]; ok {
				subs = append(subs, Role(s))
			}
		}
		sort.Slice(subs, func(x, y int) bool { return subs[x] < subs[y] })
		b.roles[i].transSubs = subs
	}
	b.final = true
}

// Final reports whether Finalize has run.
func (b *RoleBox) Final() bool { return b.final }

// IsSubRole reports s ⊑* r.
func (b *RoleBox) IsSubRole(s, r Role) bool {
	if s == r {
		return true
	}
	info := b.info(s)
	if info.supers == nil {
		panic(Fault{Op: "sub-role", Msg: "role box not finalized"})
	}
	_, ok := info.supers[r]
	return ok
}

// TransitiveSubRoles lists every transitive S with S ⊑* r.
func (b *RoleBox) TransitiveSubRoles(r Role) []Role { return b.info(r).transSubs }

// Name returns the printable role name.
func (b *RoleBox) Name(r Role) string {
	if r == NoRole {
		return "-"
	}
	return b.info(r).name
}

// IsData reports whether r is a data role.
func (b *RoleBox) IsData(r Role) bool { return b.info(r).data }

// IsTransitive reports whether r is transitive.
func (b *RoleBox) IsTransitive(r Role) bool { return b.info(r).transitive }

// IsFunctional reports whether r was declared functional.
func (b *RoleBox) IsFunctional(r Role) bool { return b.info(r).functional }

// Len returns the number of roles, inverses included.
func (b *RoleBox) Len() int { return len(b.roles) }

// HasInverse reports whether inverse roles are used.
func (b *RoleBox) HasInverse() bool { return b.inverseUsed }
