package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/weloop/lci-importer/modules/lci/domain/aggregates/activity"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/flow"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/mapping"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/record"
	"github.com/weloop/lci-importer/modules/lci/infrastructure/excel"
)

// ResolverService pins every raw exchange row to exactly one entity in the
// target store, or records why it could not. It consults the override mapping
// before any database lookup and never guesses: zero candidates and multiple
// candidates are both reported, not resolved.
type ResolverService struct {
	technosphere flow.TechnosphereRepository
	biosphere    flow.BiosphereRepository
	table        *mapping.Table

	backgroundDB string
	biosphereDB  string
}

func NewResolverService(
	technosphere flow.TechnosphereRepository,
	biosphere flow.BiosphereRepository,
	table *mapping.Table,
	backgroundDB, biosphereDB string,
) *ResolverService {
	if table == nil {
		table = mapping.Empty()
	}
	return &ResolverService{
		technosphere: technosphere,
		biosphere:    biosphere,
		table:        table,
		backgroundDB: backgroundDB,
		biosphereDB:  biosphereDB,
	}
}

// ResolveProcess resolves the non-production rows of one process. Issues are
// collected per row; the error return is reserved for lookup infrastructure
// failures, which abort the run.
func (s *ResolverService) ResolveProcess(ctx context.Context, proc *record.Process) ([]activity.ResolvedExchange, []Issue, error) {
	var resolved []activity.ResolvedExchange
	var issues []Issue

	for _, row := range proc.Exchanges {
		if row.Type == record.Production {
			continue
		}

		candidates, name, matchCtx, err := s.lookup(ctx, row)
		if err != nil {
			return nil, nil, fmt.Errorf("sheet %q row %d: %w", row.Sheet, row.Row, err)
		}

		switch len(candidates) {
		case 1:
			resolved = append(resolved, activity.ResolvedExchange{
				Type:   row.Type,
				Target: candidates[0].Key,
				Amount: row.Amount,
				Unit:   row.Unit,
			})
		case 0:
			issues = append(issues, Issue{
				Kind:     IssueUnresolvedFlow,
				Process:  proc.Name,
				Sheet:    row.Sheet,
				Row:      row.Row,
				Exchange: row.Name,
				Context:  matchCtx,
				Reason:   fmt.Sprintf("no match for %q in database %q", name, s.targetDatabase(row.Type)),
			})
		default:
			issues = append(issues, Issue{
				Kind:       IssueAmbiguousFlow,
				Process:    proc.Name,
				Sheet:      row.Sheet,
				Row:        row.Row,
				Exchange:   row.Name,
				Context:    matchCtx,
				Candidates: len(candidates),
				Reason:     fmt.Sprintf("%d matches for %q in database %q", len(candidates), name, s.targetDatabase(row.Type)),
			})
		}
	}

	return resolved, issues, nil
}

func (s *ResolverService) targetDatabase(t record.ExchangeType) string {
	if t == record.Biosphere {
		return s.biosphereDB
	}
	return s.backgroundDB
}

// lookup applies the mapping substitution and queries the database selected by
// the exchange type. It returns the candidates together with the (possibly
// substituted) name and context used, for diagnostics.
func (s *ResolverService) lookup(ctx context.Context, row record.RawExchangeRow) ([]*flow.Flow, string, string, error) {
	name := row.Name
	matchCtx := rowContext(row)

	if entry, ok := s.table.Lookup(name, matchCtx); ok {
		name = entry.TargetName
		matchCtx = entry.TargetContext
	}

	switch row.Type {
	case record.Technosphere:
		candidates, err := s.technosphere.FindCandidates(ctx, flow.TechnosphereQuery{
			Database:         s.backgroundDB,
			Name:             mapping.Normalize(name),
			Location:         mapping.Normalize(matchCtx),
			ReferenceProduct: mapping.Normalize(row.ReferenceProduct),
		})
		return candidates, name, matchCtx, err
	case record.Biosphere:
		candidates, err := s.biosphere.FindCandidates(ctx, flow.BiosphereQuery{
			Database:   s.biosphereDB,
			Name:       mapping.Normalize(name),
			Categories: splitContext(matchCtx),
		})
		return candidates, name, matchCtx, err
	}
	return nil, name, matchCtx, fmt.Errorf("unsupported exchange type %q", row.Type)
}

// rowContext is the mapping lookup context: the compartment path for biosphere
// rows, the location for technosphere rows.
func rowContext(row record.RawExchangeRow) string {
	if row.Type == record.Biosphere {
		return strings.Join(row.Categories, excel.CategorySeparator)
	}
	return row.Location
}

func splitContext(matchCtx string) []string {
	if strings.TrimSpace(matchCtx) == "" {
		return nil
	}
	parts := strings.Split(matchCtx, excel.CategorySeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
