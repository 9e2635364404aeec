package reasoner

import (
	"sort"

	"github.com/nodeadmin/tableau/ontology"
)

// Registry holds the loaded axioms under stable integer handles. Handles
// start at 1; 0 is reserved for "no axiom" in dependency sets.
type Registry struct {
	byHandle map[int]ontology.Axiom
	next     int
}

func NewRegistry() *Registry {
	return &Registry{byHandle: make(map[int]ontology.Axiom), next: 1}
}

// Add stores a and returns its handle.
func (r *Registry) Add(a ontology.Axiom) int {
	h := r.next
	r.next++
	r.byHandle[h] = a
	return h
}

// Remove drops the axiom with handle h. It reports whether h was present.
func (r *Registry) Remove(h int) bool {
	if _, ok := r.byHandle[h]; !ok {
		return false
	}
	delete(r.byHandle, h)
	return true
}

// Get returns the axiom stored under h.
func (r *Registry) Get(h int) (ontology.Axiom, bool) {
	a, ok := r.byHandle[h]
	return a, ok
}

// Handles returns the live handles in load order.
func (r *Registry) Handles() []int {
	hs := make([]int, 0, len(r.byHandle))
	for h := range r.byHandle {
		hs = append(hs, h)
	}
	sort.Ints(hs)
	return hs
}

func (r *Registry) Len() int { return len(r.byHandle) }

// snapshot copies the live axioms so a build can outlive later changes.
func (r *Registry) snapshot() map[int]ontology.Axiom {
	out := make(map[int]ontology.Axiom, len(r.byHandle))
	for h, a := range r.byHandle {
		out[h] = a
	}
	return out
}
