package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weloop/lci-importer/modules/lci/domain/aggregates/activity"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/flow"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/record"
	"github.com/weloop/lci-importer/modules/lci/infrastructure/persistence/models"
)

func TestToDBExchanges_ProductionFirstThenFileOrder(t *testing.T) {
	a := &activity.ProcessActivity{
		Identity: activity.NewIdentity("lci_metals", "Copper production", "FR"),
		Name:     "Copper production",
		Production: activity.ResolvedExchange{
			Type:   record.Production,
			Amount: 1,
			Unit:   "kg",
		},
		Exchanges: []activity.ResolvedExchange{
			{Type: record.Technosphere, Target: flow.Key{Database: "ecoinvent 3.10 cutoff", Code: "a"}, Amount: 0.5, Unit: "kWh"},
			{Type: record.Biosphere, Target: flow.Key{Database: "biosphere3", Code: "b"}, Amount: 2.1, Unit: "kg"},
		},
	}
	a.Production.Target = a.FlowKey()

	rows := toDBExchanges(a)
	require.Len(t, rows, 3)

	require.Equal(t, 0, rows[0].Position)
	require.Equal(t, string(record.Production), rows[0].Type)
	require.Equal(t, a.Identity.Code, rows[0].InputCode)

	require.Equal(t, 1, rows[1].Position)
	require.Equal(t, "a", rows[1].InputCode)
	require.Equal(t, 2, rows[2].Position)
	require.Equal(t, "b", rows[2].InputCode)

	for _, row := range rows {
		require.Equal(t, a.Identity.Database, row.ActivityDatabase)
		require.Equal(t, a.Identity.Code, row.ActivityCode)
	}
}

func TestCategoriesRoundTrip(t *testing.T) {
	require.Nil(t, splitCategories("  "))
	require.Equal(t, []string{"air", "urban air close to ground"}, splitCategories("air:: urban air close to ground"))
	require.Equal(t, "air::unspecified", joinCategories([]string{"air", "unspecified"}))
}

func TestToDomainBiosphereFlow(t *testing.T) {
	f := toDomainBiosphereFlow(&models.Flow{
		DatabaseName: "biosphere3",
		Code:         "co2",
		Name:         "Carbon dioxide, fossil",
		Unit:         "kg",
		Categories:   "air::unspecified",
	})
	require.Equal(t, flow.Key{Database: "biosphere3", Code: "co2"}, f.Key)
	require.Equal(t, []string{"air", "unspecified"}, f.Categories)
}

func TestWhereNormalized(t *testing.T) {
	require.Equal(
		t,
		` AND lower(regexp_replace(btrim(location), '\s+', ' ', 'g')) = $3`,
		whereNormalized("location", 3),
	)
}
