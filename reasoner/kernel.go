// Package reasoner is the knowledge-base kernel: it keeps the loaded
// axioms, compiles them into a concept DAG and TBox, and answers
// satisfiability, subsumption, consistency and instance queries with the
// tableau engine.
package reasoner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nodeadmin/tableau/config"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
	"github.com/nodeadmin/tableau/ontology"
	"github.com/nodeadmin/tableau/tableau"
)

// ErrNoSuchAxiom is returned when retracting an unknown handle.
var ErrNoSuchAxiom = errors.New("reasoner: no such axiom")

// How a result was obtained.
const (
	ReasonTold    = "told"
	ReasonTableau = "tableau"
	ReasonCache   = "cache"
)

// Result answers one query. For satisfiability and consistency Holds means
// satisfiable; for subsumption it means the subsumption holds. A negative
// satisfiability or a positive subsumption is explained by the axioms the
// proof used.
type Result struct {
	Holds       bool             `json:"holds"`
	Status      tableau.Status   `json:"status"`
	Explanation []ontology.Axiom `json:"explanation,omitempty"`
	Stats       tableau.Stats    `json:"stats"`
	Reason      string           `json:"reason"`
}

// Kernel owns the axioms and the compiled knowledge base. Loading and
// retracting axioms, and translating query expressions, take the write
// lock; searches share the read lock.
type Kernel struct {
	id         uuid.UUID
	log        *zap.Logger
	opts       tableau.Options
	absorption absorption
	workers    int

	mu       sync.RWMutex
	registry *Registry
	gen      uint64
	state    *state
	cache    *ristretto.Cache[string, Result]
}

// New returns an empty kernel configured by cfg. A nil cfg gives the
// defaults and a nil logger disables logging.
func New(cfg *config.Config, log *zap.Logger) (*Kernel, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	k := &Kernel{
		id:         uuid.New(),
		opts:       opts,
		absorption: absorptionOf(cfg),
		workers:    cfg.Query.Workers,
		registry:   NewRegistry(),
	}
	if k.workers <= 0 {
		k.workers = runtime.NumCPU()
	}
	k.log = log.With(zap.String("session", k.id.String()))
	if size := cfg.Query.CacheSize; size > 0 {
		k.cache, err = ristretto.NewCache(&ristretto.Config[string, Result]{
			NumCounters:        size * 10,
			MaxCost:            size,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
	}
	return k, nil
}

// ID identifies the kernel in logs and reports.
func (k *Kernel) ID() string { return k.id.String() }

// Close releases the result cache.
func (k *Kernel) Close() {
	if k.cache != nil {
		k.cache.Close()
	}
}

// LoadAxiom validates and stores a, returning its handle.
func (k *Kernel) LoadAxiom(a ontology.Axiom) (int, error) {
	hs, err := k.LoadAxioms([]ontology.Axiom{a})
	if err != nil {
		return 0, err
	}
	return hs[0], nil
}

// LoadAxioms stores all axioms or none of them.
func (k *Kernel) LoadAxioms(as []ontology.Axiom) ([]int, error) {
	for i := range as {
		if err := as[i].Validate(); err != nil {
			return nil, fmt.Errorf("axiom %d: %w", i, err)
		}
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	hs := make([]int, len(as))
	for i, a := range as {
		hs[i] = k.registry.Add(a)
	}
	k.invalidate()
	return hs, nil
}

// LoadDocument stores the axioms of doc.
func (k *Kernel) LoadDocument(doc *ontology.Document) ([]int, error) {
	return k.LoadAxioms(doc.Axioms)
}

// RetractAxiom removes the axiom with handle h.
func (k *Kernel) RetractAxiom(h int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.registry.Remove(h) {
		return fmt.Errorf("%w: %d", ErrNoSuchAxiom, h)
	}
	k.invalidate()
	return nil
}

// Axiom returns the axiom stored under h.
func (k *Kernel) Axiom(h int) (ontology.Axiom, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.registry.Get(h)
}

// invalidate drops the compiled state. Cache keys carry the generation, so
// entries written by searches still running on the old state are never
// read again.
func (k *Kernel) invalidate() {
	k.state = nil
	k.gen++
	if k.cache != nil {
		k.cache.Clear()
	}
}

// ensure builds the state if needed. The write lock must be held.
func (k *Kernel) ensure() (*state, error) {
	if k.state != nil {
		return k.state, nil
	}
	start := time.Now()
	s, err := normalize(k.registry, k.absorption, k.log)
	if err != nil {
		return nil, err
	}
	s.gen = k.gen
	k.state = s
	k.log.Info("knowledge base built",
		zap.Int("axioms", k.registry.Len()),
		zap.Int("vertices", s.dag.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return s, nil
}

// prepare runs fn on the current state under the write lock.
func (k *Kernel) prepare(fn func(s *state) error) (*state, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, err := k.ensure()
	if err != nil {
		return nil, err
	}
	if fn != nil {
		if err := fn(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (k *Kernel) engine(s *state) *tableau.Engine {
	return tableau.New(s.dag, s.tbox, k.opts, k.log)
}

func (k *Kernel) run(ctx context.Context, eng *tableau.Engine, q tableau.Query) (tableau.Result, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return eng.Run(ctx, q)
}

func (k *Kernel) lookup(key string) (Result, bool) {
	if k.cache == nil {
		return Result{}, false
	}
	r, ok := k.cache.Get(key)
	if ok {
		r.Reason = ReasonCache
	}
	return r, ok
}

func (k *Kernel) store(key string, r Result) {
	if k.cache == nil {
		return
	}
	k.cache.Set(key, r, 1)
}

func cacheKey(gen uint64, op string, args ...fmt.Stringer) string {
	key := fmt.Sprintf("%d|%s", gen, op)
	for _, a := range args {
		key += "|" + a.String()
	}
	return key
}

func (s *state) translate(c ontology.ClassExpr) (dag.BP, error) {
	t := translator{st: s.symbols, box: s.dag.Roles(), d: s.dag}
	return t.class(c)
}

func (s *state) explain(d dep.Set) []ontology.Axiom {
	var out []ontology.Axiom
	for _, h := range d.Axioms() {
		if a, ok := s.axioms[h]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (s *state) fromTableau(tr tableau.Result) Result {
	r := Result{
		Holds:  tr.Status == tableau.Satisfiable,
		Status: tr.Status,
		Stats:  tr.Stats,
		Reason: ReasonTableau,
	}
	if tr.Status == tableau.Unsatisfiable {
		r.Explanation = s.explain(tr.Dep)
	}
	return r
}

// IsSatisfiable tests whether c can have an instance.
func (k *Kernel) IsSatisfiable(ctx context.Context, c ontology.ClassExpr) (Result, error) {
	var (
		bp  dag.BP
		eng *tableau.Engine
	)
	s, err := k.prepare(func(s *state) (err error) {
		bp, err = s.translate(c)
		eng = k.engine(s)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	key := cacheKey(s.gen, "sat", c)
	if r, ok := k.lookup(key); ok {
		return r, nil
	}
	tr, err := k.run(ctx, eng, tableau.Query{Concept: bp})
	if err != nil {
		return Result{Status: tr.Status, Stats: tr.Stats, Reason: ReasonTableau}, err
	}
	r := s.fromTableau(tr)
	k.store(key, r)
	return r, nil
}

// IsSubsumedBy tests sub ⊑ sup. Subsumptions between names that the
// axioms state directly are answered from the told closure.
func (k *Kernel) IsSubsumedBy(ctx context.Context, sub, sup ontology.ClassExpr) (Result, error) {
	var (
		test  dag.BP
		eng   *tableau.Engine
		chain []int
		told  bool
	)
	s, err := k.prepare(func(s *state) error {
		a, err := s.translate(sub)
		if err != nil {
			return err
		}
		b, err := s.translate(sup)
		if err != nil {
			return err
		}
		if sub.Op == ontology.OpClass {
			chain, told = s.told.Subsumes(a, b)
		}
		test = s.dag.And(a, s.dag.Not(b))
		eng = k.engine(s)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if told {
		r := Result{Holds: true, Status: tableau.Unsatisfiable, Reason: ReasonTold}
		for _, h := range chain {
			r.Explanation = append(r.Explanation, s.axioms[h])
		}
		return r, nil
	}
	key := cacheKey(s.gen, "subsumes", sub, sup)
	if r, ok := k.lookup(key); ok {
		return r, nil
	}
	tr, err := k.run(ctx, eng, tableau.Query{Concept: test})
	if err != nil {
		return Result{Status: tr.Status, Stats: tr.Stats, Reason: ReasonTableau}, err
	}
	r := s.fromTableau(tr)
	r.Holds = tr.Status == tableau.Unsatisfiable
	k.store(key, r)
	return r, nil
}

// IsConsistent tests the whole knowledge base, ABox included.
func (k *Kernel) IsConsistent(ctx context.Context) (Result, error) {
	var eng *tableau.Engine
	s, err := k.prepare(func(s *state) error {
		eng = k.engine(s)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	key := cacheKey(s.gen, "consistent")
	if r, ok := k.lookup(key); ok {
		return r, nil
	}
	tr, err := k.run(ctx, eng, tableau.Query{ABox: true})
	if err != nil {
		return Result{Status: tr.Status, Stats: tr.Stats, Reason: ReasonTableau}, err
	}
	r := s.fromTableau(tr)
	k.store(key, r)
	return r, nil
}

// ClassifyInstances returns, sorted, the individuals that are instances of
// c: those for which asserting ¬c makes the ABox inconsistent.
func (k *Kernel) ClassifyInstances(ctx context.Context, c ontology.ClassExpr) ([]string, tableau.Stats, error) {
	var (
		neg   dag.BP
		eng   *tableau.Engine
		names []string
	)
	_, err := k.prepare(func(s *state) error {
		bp, err := s.translate(c)
		if err != nil {
			return err
		}
		neg = s.dag.Not(bp)
		eng = k.engine(s)
		for _, ind := range s.tbox.Individuals() {
			names = append(names, ind.Name)
		}
		return nil
	})
	if err != nil {
		return nil, tableau.Stats{}, err
	}

	member := make([]bool, len(names))
	stats := make([]tableau.Stats, len(names))
	err = k.parallel(ctx, len(names), func(ctx context.Context, i int) error {
		tr, err := eng.Run(ctx, tableau.Query{
			ABox:   true,
			Assume: []tableau.Assumption{{Individual: i, Concept: neg}},
		})
		stats[i] = tr.Stats
		if err != nil {
			return fmt.Errorf("individual %s: %w", names[i], err)
		}
		member[i] = tr.Status == tableau.Unsatisfiable
		return nil
	})
	var total tableau.Stats
	for _, st := range stats {
		addStats(&total, st)
	}
	if err != nil {
		return nil, total, err
	}
	var out []string
	for i, ok := range member {
		if ok {
			out = append(out, names[i])
		}
	}
	sort.Strings(out)
	return out, total, nil
}

// Summary describes the compiled knowledge base.
type Summary struct {
	Session          string `json:"session"`
	Axioms           int    `json:"axioms"`
	Classes          int    `json:"classes"`
	Roles            int    `json:"roles"`
	Individuals      int    `json:"individuals"`
	Vertices         int    `json:"vertices"`
	Absorbed         int    `json:"absorbed"`
	Defined          int    `json:"defined"`
	GCIs             int    `json:"gcis"`
	ToldSubsumptions int    `json:"told_subsumptions"`
	Logic            string `json:"logic"`
}

// Summary builds the knowledge base if needed and describes it.
func (k *Kernel) Summary() (Summary, error) {
	var sum Summary
	_, err := k.prepare(func(s *state) error {
		sum = Summary{
			Session:          k.ID(),
			Axioms:           len(s.axioms),
			Classes:          s.symbols.ClassCount(),
			Roles:            s.symbols.RoleCount(),
			Individuals:      len(s.tbox.Individuals()),
			Vertices:         s.dag.Len(),
			Absorbed:         s.absorbed,
			Defined:          s.defined,
			GCIs:             s.gcis,
			ToldSubsumptions: s.told.Len(),
			Logic:            k.engine(s).Logic().String(),
		}
		return nil
	})
	return sum, err
}

// Classes returns the named classes of the knowledge base, sorted.
func (k *Kernel) Classes() ([]string, error) {
	var names []string
	_, err := k.prepare(func(s *state) error {
		names = s.symbols.ClassNames()
		return nil
	})
	return names, err
}

func addStats(dst *tableau.Stats, s tableau.Stats) {
	dst.Nodes += s.Nodes
	dst.Branches += s.Branches
	dst.Backjumps += s.Backjumps
	dst.Clashes += s.Clashes
	dst.DirectlyBlocked += s.DirectlyBlocked
	dst.IndirectlyBlocked += s.IndirectlyBlocked
	dst.Duration += s.Duration
	if s.MaxLevel > dst.MaxLevel {
		dst.MaxLevel = s.MaxLevel
	}
}
