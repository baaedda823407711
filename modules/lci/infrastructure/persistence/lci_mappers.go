package persistence

import (
	"strings"

	"github.com/weloop/lci-importer/modules/lci/domain/aggregates/activity"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/flow"
	"github.com/weloop/lci-importer/modules/lci/infrastructure/persistence/models"
)

// categorySeparator matches the workbook convention for compartment paths.
const categorySeparator = "::"

func toDomainTechnosphereFlow(row *models.Activity) *flow.Flow {
	return &flow.Flow{
		Key:              flow.Key{Database: row.DatabaseName, Code: row.Code},
		Name:             row.Name,
		Unit:             row.Unit,
		Location:         row.Location,
		ReferenceProduct: row.ReferenceProduct,
	}
}

func toDomainBiosphereFlow(row *models.Flow) *flow.Flow {
	return &flow.Flow{
		Key:        flow.Key{Database: row.DatabaseName, Code: row.Code},
		Name:       row.Name,
		Unit:       row.Unit,
		Categories: splitCategories(row.Categories),
	}
}

func toDBActivity(a *activity.ProcessActivity) *models.Activity {
	return &models.Activity{
		DatabaseName:     a.Identity.Database,
		Code:             a.Identity.Code,
		Name:             a.Name,
		Location:         a.Location,
		Unit:             a.Unit,
		ReferenceProduct: a.ReferenceProduct,
	}
}

func toDBExchanges(a *activity.ProcessActivity) []*models.Exchange {
	out := make([]*models.Exchange, 0, len(a.Exchanges)+1)
	out = append(out, &models.Exchange{
		ActivityDatabase: a.Identity.Database,
		ActivityCode:     a.Identity.Code,
		InputDatabase:    a.Production.Target.Database,
		InputCode:        a.Production.Target.Code,
		Type:             string(a.Production.Type),
		Amount:           a.Production.Amount,
		Unit:             a.Production.Unit,
		Position:         0,
	})
	for i, ex := range a.Exchanges {
		out = append(out, &models.Exchange{
			ActivityDatabase: a.Identity.Database,
			ActivityCode:     a.Identity.Code,
			InputDatabase:    ex.Target.Database,
			InputCode:        ex.Target.Code,
			Type:             string(ex.Type),
			Amount:           ex.Amount,
			Unit:             ex.Unit,
			Position:         i + 1,
		})
	}
	return out
}

func splitCategories(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, categorySeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func joinCategories(categories []string) string {
	return strings.Join(categories, categorySeparator)
}
