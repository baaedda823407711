package persistence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/weloop/lci-importer/modules/lci/domain/aggregates/activity"
	"github.com/weloop/lci-importer/pkg/composables"
)

type PgActivityRepository struct{}

func NewActivityRepository() activity.Repository {
	return &PgActivityRepository{}
}

func (r *PgActivityRepository) Exists(ctx context.Context, id activity.Identity) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM lci_activities WHERE database_name=$1 AND code=$2)`,
		id.Database, id.Code,
	).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check activity existence")
	}
	return exists, nil
}

// CreateOrUpdate upserts the activity row and replaces its exchange edges. Only
// rows owned by the activity's own database are touched; linked background and
// biosphere entities are never modified.
func (r *PgActivityRepository) CreateOrUpdate(ctx context.Context, a *activity.ProcessActivity) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}

	row := toDBActivity(a)

	var inserted bool
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO lci_activities (database_name, code, name, location, unit, reference_product)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (database_name, code) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			unit = EXCLUDED.unit,
			reference_product = EXCLUDED.reference_product,
			updated_at = now()
		 RETURNING (xmax = 0)`,
		row.DatabaseName, row.Code, row.Name, row.Location, row.Unit, row.ReferenceProduct,
	).Scan(&inserted); err != nil {
		return false, errors.Wrapf(err, "upsert activity %s", a.Name)
	}

	if _, err := tx.Exec(
		ctx,
		`DELETE FROM lci_exchanges WHERE activity_database=$1 AND activity_code=$2`,
		row.DatabaseName, row.Code,
	); err != nil {
		return false, errors.Wrapf(err, "clear exchanges for %s", a.Name)
	}

	for _, ex := range toDBExchanges(a) {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO lci_exchanges (
				activity_database, activity_code, input_database, input_code, type, amount, unit, position
			 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			ex.ActivityDatabase, ex.ActivityCode, ex.InputDatabase, ex.InputCode, ex.Type, ex.Amount, ex.Unit, ex.Position,
		); err != nil {
			return false, errors.Wrapf(err, "insert exchange %d for %s", ex.Position, a.Name)
		}
	}

	return inserted, nil
}
