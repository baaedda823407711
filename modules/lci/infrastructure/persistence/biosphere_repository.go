package persistence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/weloop/lci-importer/modules/lci/domain/entities/flow"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/mapping"
	"github.com/weloop/lci-importer/modules/lci/infrastructure/persistence/models"
	"github.com/weloop/lci-importer/pkg/composables"
)

type PgBiosphereRepository struct{}

func NewBiosphereRepository() flow.BiosphereRepository {
	return &PgBiosphereRepository{}
}

func (r *PgBiosphereRepository) FindCandidates(ctx context.Context, q flow.BiosphereQuery) ([]*flow.Flow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT database_name, code, name, unit, categories
		FROM lci_flows
		WHERE database_name = $1
		  AND lower(regexp_replace(btrim(name), '\s+', ' ', 'g')) = $2
	`
	args := []interface{}{q.Database, q.Name}
	if len(q.Categories) > 0 {
		normalized := make([]string, 0, len(q.Categories))
		for _, c := range q.Categories {
			normalized = append(normalized, mapping.Normalize(c))
		}
		query += whereNormalized("categories", 3)
		args = append(args, joinCategories(normalized))
	}
	query += " ORDER BY code"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "biosphere lookup")
	}
	defer rows.Close()

	var results []*flow.Flow
	for rows.Next() {
		var row models.Flow
		if err := rows.Scan(&row.DatabaseName, &row.Code, &row.Name, &row.Unit, &row.Categories); err != nil {
			return nil, errors.Wrap(err, "scan biosphere candidate")
		}
		results = append(results, toDomainBiosphereFlow(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "biosphere lookup")
	}
	return results, nil
}
