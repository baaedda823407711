package services

import (
	"fmt"

	"github.com/weloop/lci-importer/modules/lci/domain/aggregates/activity"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/record"
)

// ResolvedProcess pairs a parsed process with its resolved exchange rows.
type ResolvedProcess struct {
	Process   record.Process
	Exchanges []activity.ResolvedExchange
}

// ImportGraph is the per-run activity set, keyed by identity and iterable in
// file read order. It is built in memory, written once and discarded;
// durability across runs comes from deterministic identities, not this graph.
type ImportGraph struct {
	order []activity.Identity
	byID  map[activity.Identity]*activity.ProcessActivity
}

func newImportGraph() *ImportGraph {
	return &ImportGraph{byID: map[activity.Identity]*activity.ProcessActivity{}}
}

func (g *ImportGraph) Len() int {
	return len(g.order)
}

func (g *ImportGraph) Get(id activity.Identity) (*activity.ProcessActivity, bool) {
	a, ok := g.byID[id]
	return a, ok
}

// Activities returns the activities in insertion order.
func (g *ImportGraph) Activities() []*activity.ProcessActivity {
	out := make([]*activity.ProcessActivity, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.byID[id])
	}
	return out
}

// GraphService turns validated resolved records into process activities with
// deterministic identities.
type GraphService struct {
	foregroundDB string
}

func NewGraphService(foregroundDB string) *GraphService {
	return &GraphService{foregroundDB: foregroundDB}
}

// Build assembles the import graph. Invariants enforced per activity: exactly
// one production exchange with nonzero amount; identity collisions across
// sheets merge exchange lists but fail when headers disagree on unit or
// location. Violations join the batch issue set; a violating activity never
// enters the graph.
func (s *GraphService) Build(items []ResolvedProcess) (*ImportGraph, []Issue) {
	graph := newImportGraph()
	var issues []Issue

	for i := range items {
		proc := &items[i].Process

		production, issue := productionOf(proc)
		if issue != nil {
			issues = append(issues, *issue)
			continue
		}

		id := activity.NewIdentity(s.foregroundDB, proc.Name, proc.Location)

		if existing, ok := graph.Get(id); ok {
			if existing.Unit != proc.Unit || existing.Location != proc.Location {
				issues = append(issues, Issue{
					Kind:    IssueInvariantViolation,
					Process: proc.Name,
					Sheet:   proc.Sheet,
					Reason: fmt.Sprintf(
						"colliding headers disagree: unit %q/%q location %q/%q",
						existing.Unit, proc.Unit, existing.Location, proc.Location,
					),
				})
				continue
			}
			// same process spread across sheets: merge exchange lists
			existing.Exchanges = append(existing.Exchanges, items[i].Exchanges...)
			continue
		}

		a := &activity.ProcessActivity{
			Identity:         id,
			Name:             proc.Name,
			Location:         proc.Location,
			Unit:             proc.Unit,
			ReferenceProduct: proc.ReferenceProduct,
			Exchanges:        items[i].Exchanges,
		}
		unit := production.Unit
		if unit == "" {
			unit = proc.Unit
		}
		a.Production = activity.ResolvedExchange{
			Type:   record.Production,
			Target: a.FlowKey(),
			Amount: production.Amount,
			Unit:   unit,
		}

		graph.order = append(graph.order, id)
		graph.byID[id] = a
	}

	return graph, issues
}

func productionOf(proc *record.Process) (*record.RawExchangeRow, *Issue) {
	rows := proc.ProductionRows()
	switch {
	case len(rows) == 0:
		return nil, &Issue{
			Kind:    IssueInvariantViolation,
			Process: proc.Name,
			Sheet:   proc.Sheet,
			Reason:  "no production exchange",
		}
	case len(rows) > 1:
		return nil, &Issue{
			Kind:    IssueInvariantViolation,
			Process: proc.Name,
			Sheet:   proc.Sheet,
			Row:     rows[1].Row,
			Reason:  fmt.Sprintf("%d production exchanges, want exactly one", len(rows)),
		}
	case rows[0].Amount == 0:
		return nil, &Issue{
			Kind:    IssueInvariantViolation,
			Process: proc.Name,
			Sheet:   proc.Sheet,
			Row:     rows[0].Row,
			Reason:  "production amount must be nonzero",
		}
	}
	return &rows[0], nil
}
