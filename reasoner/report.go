package reasoner

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/nodeadmin/tableau/ontology"
	"github.com/nodeadmin/tableau/tableau"
)

// Answer statuses besides the tableau ones.
const (
	statusComplete = "complete"
	statusError    = "error"
)

// Answer is one answered query as it appears in a report.
type Answer struct {
	Kind        ontology.QueryKind `json:"kind"`
	Query       string             `json:"query"`
	Holds       bool               `json:"holds"`
	Status      string             `json:"status"`
	Reason      string             `json:"reason,omitempty"`
	Instances   []string           `json:"instances,omitempty"`
	Explanation []string           `json:"explanation,omitempty"`
	Stats       tableau.Stats      `json:"stats"`
	Error       string             `json:"error,omitempty"`
}

// ReportStats holds totals and timings of a report.
type ReportStats struct {
	Queries     int   `json:"queries"`
	Unknown     int   `json:"unknown"`
	Failed      int   `json:"failed"`
	Nodes       int   `json:"nodes"`
	Branches    int   `json:"branches"`
	Backjumps   int   `json:"backjumps"`
	Clashes     int   `json:"clashes"`
	BuildTimeMs int64 `json:"build_time_ms"`
	QueryTimeMs int64 `json:"query_time_ms"`
	TotalTimeMs int64 `json:"total_time_ms"`
}

// Report is the top-level JSON output of a document run.
type Report struct {
	Document string      `json:"document,omitempty"`
	Summary  Summary     `json:"summary"`
	Answers  []Answer    `json:"answers"`
	Stats    ReportStats `json:"stats"`
}

// Answer runs one document query. Failures are recorded in the answer,
// not returned.
func (k *Kernel) Answer(ctx context.Context, q ontology.Query) Answer {
	a := Answer{Kind: q.Kind}
	var (
		r   Result
		err error
	)
	switch q.Kind {
	case ontology.QuerySatisfiable:
		a.Query = q.Class.String()
		r, err = k.IsSatisfiable(ctx, *q.Class)
	case ontology.QuerySubsumes:
		a.Query = q.Sub.String() + " SubClassOf " + q.Super.String()
		r, err = k.IsSubsumedBy(ctx, *q.Sub, *q.Super)
	case ontology.QueryConsistent:
		a.Query = "consistent"
		r, err = k.IsConsistent(ctx)
	case ontology.QueryInstances:
		a.Query = q.Class.String()
		var names []string
		names, r.Stats, err = k.ClassifyInstances(ctx, *q.Class)
		r.Holds = len(names) > 0
		r.Reason = ReasonTableau
		a.Instances = names
	}
	a.Holds = r.Holds
	a.Status = r.Status.String()
	if q.Kind == ontology.QueryInstances {
		a.Status = statusComplete
	}
	a.Reason = r.Reason
	a.Stats = r.Stats
	for _, ax := range r.Explanation {
		a.Explanation = append(a.Explanation, ax.String())
	}
	if err != nil {
		a.Holds = false
		a.Status = statusError
		if errors.Is(err, tableau.ErrResourcesExhausted) {
			a.Status = tableau.Unknown.String()
		}
		a.Error = err.Error()
	}
	return a
}

// RunDocument answers the queries of doc against the axioms already
// loaded. It does not load doc's axioms.
func (k *Kernel) RunDocument(ctx context.Context, doc *ontology.Document) (*Report, error) {
	start := time.Now()
	sum, err := k.Summary()
	if err != nil {
		return nil, err
	}
	built := time.Since(start)

	rep := &Report{Document: doc.Name, Summary: sum, Answers: make([]Answer, 0, len(doc.Queries))}
	for _, q := range doc.Queries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		a := k.Answer(ctx, q)
		rep.Answers = append(rep.Answers, a)
		rep.Stats.add(a)
	}
	total := time.Since(start)
	rep.Stats.BuildTimeMs = built.Milliseconds()
	rep.Stats.QueryTimeMs = (total - built).Milliseconds()
	rep.Stats.TotalTimeMs = total.Milliseconds()
	return rep, nil
}

func (s *ReportStats) add(a Answer) {
	s.Queries++
	switch a.Status {
	case tableau.Unknown.String():
		s.Unknown++
	case statusError:
		s.Failed++
	}
	s.Nodes += a.Stats.Nodes
	s.Branches += a.Stats.Branches
	s.Backjumps += a.Stats.Backjumps
	s.Clashes += a.Stats.Clashes
}

// WriteReport writes the report as indented JSON.
func WriteReport(w io.Writer, r *Report) error {
	return ontology.WriteJSONPretty(w, r)
}
