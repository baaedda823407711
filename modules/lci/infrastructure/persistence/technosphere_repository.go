package persistence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/weloop/lci-importer/modules/lci/domain/entities/flow"
	"github.com/weloop/lci-importer/modules/lci/infrastructure/persistence/models"
	"github.com/weloop/lci-importer/pkg/composables"
)

type PgTechnosphereRepository struct{}

func NewTechnosphereRepository() flow.TechnosphereRepository {
	return &PgTechnosphereRepository{}
}

func (r *PgTechnosphereRepository) FindCandidates(ctx context.Context, q flow.TechnosphereQuery) ([]*flow.Flow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT database_name, code, name, location, unit, reference_product
		FROM lci_activities
		WHERE database_name = $1
		  AND lower(regexp_replace(btrim(name), '\s+', ' ', 'g')) = $2
	`
	args := []interface{}{q.Database, q.Name}
	argPos := 3
	if q.Location != "" {
		query += whereNormalized("location", argPos)
		args = append(args, q.Location)
		argPos++
	}
	if q.ReferenceProduct != "" {
		query += whereNormalized("reference_product", argPos)
		args = append(args, q.ReferenceProduct)
	}
	query += " ORDER BY code"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "technosphere lookup")
	}
	defer rows.Close()

	var results []*flow.Flow
	for rows.Next() {
		var row models.Activity
		if err := rows.Scan(&row.DatabaseName, &row.Code, &row.Name, &row.Location, &row.Unit, &row.ReferenceProduct); err != nil {
			return nil, errors.Wrap(err, "scan technosphere candidate")
		}
		results = append(results, toDomainTechnosphereFlow(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "technosphere lookup")
	}
	return results, nil
}
