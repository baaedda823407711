package activity

import (
	"context"

	"github.com/google/uuid"

	"github.com/weloop/lci-importer/modules/lci/domain/entities/flow"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/mapping"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/record"
)

// identityNamespace seeds the deterministic activity codes. It must never
// change: re-import safety depends on (name, location) always hashing to the
// same code.
var identityNamespace = uuid.MustParse("8b2f1d0e-4c1a-5e9b-9f3d-6a7c2e8d1b4f")

// Identity is a stable activity key within the target store.
type Identity struct {
	Database string `json:"database"`
	Code     string `json:"code"`
}

// NewIdentity derives the activity code as a UUIDv5 of the normalized process
// name and location. Same inputs yield the same identity within and across
// runs, which is what makes re-imports update in place instead of duplicating.
func NewIdentity(database, name, location string) Identity {
	seed := mapping.Normalize(name) + "|" + mapping.Normalize(location)
	return Identity{
		Database: database,
		Code:     uuid.NewSHA1(identityNamespace, []byte(seed)).String(),
	}
}

// ResolvedExchange is an exchange whose target entity has been pinned to a
// concrete key in the target store.
type ResolvedExchange struct {
	Type   record.ExchangeType
	Target flow.Key
	Amount float64
	Unit   string
}

// ProcessActivity is one importable process: a stable identity, exactly one
// production exchange and the resolved technosphere/biosphere exchanges.
type ProcessActivity struct {
	Identity         Identity
	Name             string
	Location         string
	Unit             string
	ReferenceProduct string

	Production ResolvedExchange
	Exchanges  []ResolvedExchange
}

// FlowKey returns the activity's own key, which is also the target of its
// production exchange.
func (a *ProcessActivity) FlowKey() flow.Key {
	return flow.Key{Database: a.Identity.Database, Code: a.Identity.Code}
}

// Repository persists activities. CreateOrUpdate must converge: calling it again
// with an unchanged activity leaves the store unchanged. It reports whether the
// activity was newly created.
type Repository interface {
	CreateOrUpdate(ctx context.Context, a *ProcessActivity) (created bool, err error)
	Exists(ctx context.Context, id Identity) (bool, error)
}
