package reasoner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/ontology"
	"github.com/nodeadmin/tableau/tableau"
)

// parallel runs fn for 0..n-1 on at most k.workers goroutines, holding the
// read lock throughout. The first error cancels the others.
func (k *Kernel) parallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(k.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(gctx, i) })
	}
	return g.Wait()
}

// SatisfiableAll tests every class, one search per goroutine over the
// shared DAG. Results are in input order.
func (k *Kernel) SatisfiableAll(ctx context.Context, cs []ontology.ClassExpr) ([]Result, error) {
	bps := make([]dag.BP, len(cs))
	var eng *tableau.Engine
	s, err := k.prepare(func(s *state) error {
		for i, c := range cs {
			bp, err := s.translate(c)
			if err != nil {
				return fmt.Errorf("class %d (%s): %w", i, c, err)
			}
			bps[i] = bp
		}
		eng = k.engine(s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(cs))
	err = k.parallel(ctx, len(cs), func(ctx context.Context, i int) error {
		key := cacheKey(s.gen, "sat", cs[i])
		if r, ok := k.lookup(key); ok {
			out[i] = r
			return nil
		}
		tr, err := eng.Run(ctx, tableau.Query{Concept: bps[i]})
		if err != nil {
			return fmt.Errorf("class %s: %w", cs[i], err)
		}
		out[i] = s.fromTableau(tr)
		k.store(key, out[i])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
