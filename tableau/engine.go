// Package tableau runs satisfiability searches over a completion tree:
// the expansion rules, branching and dependency-directed backjumping.
package tableau

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nodeadmin/tableau/ctree"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
	"github.com/nodeadmin/tableau/todo"
)

var (
	// ErrResourcesExhausted reports a search stopped by its context, its
	// timeout or its node budget. The answer is unknown.
	ErrResourcesExhausted = errors.New("tableau: resources exhausted")

	// ErrStructuralFault reports an internal inconsistency of the engine.
	// The wrapped chain holds the Fault of the package that raised it.
	ErrStructuralFault = errors.New("tableau: structural fault")
)

// Fault is an inconsistency of the search state. It is raised by panic
// and surfaces from Run wrapped in ErrStructuralFault.
type Fault struct {
	Op  string
	Msg string
}

func (f Fault) Error() string { return fmt.Sprintf("tableau %s: %s", f.Op, f.Msg) }

// faultError turns a recovered panic value into an error.
func faultError(r any) error {
	switch f := r.(type) {
	case Fault:
		return f
	case dag.Fault:
		return f
	case ctree.Fault:
		return f
	case todo.Fault:
		return f
	case error:
		return f
	}
	return fmt.Errorf("%v", r)
}

// Logic selects the blocking predicate; LogicAuto picks the weakest one
// the knowledge base needs.
type Logic uint8

const (
	LogicAuto Logic = iota
	LogicSH
	LogicSHI
	LogicSHIQ
)

// ParseLogic reads "auto", "SH", "SHI" or "SHIQ".
func ParseLogic(s string) (Logic, error) {
	switch s {
	case "", "auto":
		return LogicAuto, nil
	case "SH":
		return LogicSH, nil
	case "SHI":
		return LogicSHI, nil
	case "SHIQ":
		return LogicSHIQ, nil
	}
	return LogicAuto, fmt.Errorf("unknown logic %q", s)
}

// Options configure the engine. Every combination is valid.
type Options struct {
	Logic              Logic
	AnywhereBlocking   bool
	LazyBlocking       bool
	SemanticBranching  bool
	Backjumping        bool
	DynamicBackjumping bool
	Priorities         todo.Priorities
	Timeout            time.Duration
	MaxNodes           int
}

// DefaultOptions mirrors the defaults of the configuration file.
func DefaultOptions() Options {
	p, _ := todo.ParsePriorities(todo.DefaultPriorities)
	return Options{
		AnywhereBlocking:  true,
		LazyBlocking:      true,
		SemanticBranching: true,
		Backjumping:       true,
		Priorities:        p,
	}
}

// Status is the answer of a search.
type Status uint8

const (
	Unknown Status = iota
	Satisfiable
	Unsatisfiable
)

func (s Status) String() string {
	switch s {
	case Satisfiable:
		return "satisfiable"
	case Unsatisfiable:
		return "unsatisfiable"
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Stats describe one search.
type Stats struct {
	Nodes             int           `json:"nodes"`
	Branches          int           `json:"branches"`
	Backjumps         int           `json:"backjumps"`
	Clashes           int           `json:"clashes"`
	MaxLevel          int           `json:"max_level"`
	DirectlyBlocked   int           `json:"directly_blocked"`
	IndirectlyBlocked int           `json:"indirectly_blocked"`
	BackjumpTargets   []int         `json:"backjump_targets,omitempty"`
	Duration          time.Duration `json:"duration_ns"`
}

// Result is the outcome of Run. Dep explains an unsatisfiable answer: its
// axiom handles are the axioms the final clash depends on.
type Result struct {
	Status Status
	Dep    dep.Set
	Stats  Stats
	Model  []ctree.NodeView
}

// Query selects what to test: the concept at a fresh root, the ABox, or
// both. With neither, the empty knowledge base is tested.
type Query struct {
	Concept dag.BP
	ABox    bool
	// Assume adds concept assertions for this search only. Requires ABox.
	Assume []Assumption
	// KeepModel copies the final tree into the result.
	KeepModel bool
}

// Assumption is a temporary C(a) with no axiom behind it.
type Assumption struct {
	Individual int
	Concept    dag.BP
}

// Engine runs searches over a built DAG and TBox. Both are shared read-only;
// each Run gets its own tree and scheduler, so Run is safe to call from
// several goroutines.
type Engine struct {
	dag   *dag.DAG
	tbox  *TBox
	opts  Options
	logic ctree.Logic
	log   *zap.Logger
}

// New returns an engine over d and tb. A nil logger disables logging.
func New(d *dag.DAG, tb *TBox, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	tb.Grow(d.Len() + 1)
	return &Engine{dag: d, tbox: tb, opts: opts, logic: chooseLogic(opts.Logic, d), log: log}
}

func chooseLogic(l Logic, d *dag.DAG) ctree.Logic {
	switch l {
	case LogicSH:
		return ctree.LogicSH
	case LogicSHI:
		return ctree.LogicSHI
	case LogicSHIQ:
		return ctree.LogicSHIQ
	}
	switch {
	case d.HasNumberRestrictions() && d.Roles().HasInverse():
		return ctree.LogicSHIQ
	case d.Roles().HasInverse():
		return ctree.LogicSHI
	}
	return ctree.LogicSH
}

// Logic returns the blocking logic in use.
func (e *Engine) Logic() ctree.Logic { return e.logic }

// DAG returns the concept graph the engine searches over.
func (e *Engine) DAG() *dag.DAG { return e.dag }

// Run performs one search. A clash-free complete tree gives Satisfiable,
// exhausted alternatives give Unsatisfiable. When the context, timeout or
// node budget stops the search the status is Unknown and the error wraps
// ErrResourcesExhausted; an engine bug gives ErrStructuralFault.
func (e *Engine) Run(ctx context.Context, q Query) (res Result, err error) {
	start := time.Now()
	s := newSession(ctx, e, start)
	defer func() {
		if r := recover(); r != nil {
			cause := faultError(r)
			e.log.Error("structural fault", zap.Error(cause), zap.ByteString("stack", debug.Stack()))
			res = Result{Status: Unknown}
			err = fmt.Errorf("%w: %w", ErrStructuralFault, pkgerrors.WithStack(cause))
		}
		res.Stats = s.finish(time.Since(start))
		observe(&res)
	}()

	status, d, err := s.run(q)
	res = Result{Status: status, Dep: d}
	if q.KeepModel && status == Satisfiable {
		res.Model = s.tree.Snapshot()
	}
	if err != nil {
		e.log.Debug("search stopped", zap.Error(err))
	}
	return res, err
}
