package tableau

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queriesTotal counts finished searches by outcome
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tableau_queries_total",
		Help: "Total tableau searches by outcome",
	}, []string{"status"})

	// queryDuration tracks search latency
	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tableau_query_duration_seconds",
		Help:    "Tableau search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	})

	branchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tableau_branches_total",
		Help: "Total non-deterministic branching points opened",
	})

	backjumpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tableau_backjumps_total",
		Help: "Total backjumps performed",
	})

	clashesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tableau_clashes_total",
		Help: "Total clashes detected",
	})

	nodesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tableau_nodes_created_total",
		Help: "Total completion tree nodes created",
	})
)

func observe(r *Result) {
	queriesTotal.WithLabelValues(r.Status.String()).Inc()
	queryDuration.Observe(r.Stats.Duration.Seconds())
	branchesTotal.Add(float64(r.Stats.Branches))
	backjumpsTotal.Add(float64(r.Stats.Backjumps))
	clashesTotal.Add(float64(r.Stats.Clashes))
	nodesCreatedTotal.Add(float64(r.Stats.Nodes))
}
