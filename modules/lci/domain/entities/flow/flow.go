package flow

import "context"

// Key identifies an entity inside the target store: the database label plus the
// entity code within that database.
type Key struct {
	Database string
	Code     string
}

// Flow is a lookup candidate from either target database. Technosphere
// candidates carry Location and ReferenceProduct, biosphere candidates carry
// Categories.
type Flow struct {
	Key              Key
	Name             string
	Unit             string
	Location         string
	ReferenceProduct string
	Categories       []string
}

// TechnosphereQuery looks a process up by normalized name inside one background
// database, optionally narrowed by location and reference product.
type TechnosphereQuery struct {
	Database         string
	Name             string
	Location         string
	ReferenceProduct string
}

// BiosphereQuery looks an elementary flow up by normalized name inside the
// biosphere database, optionally narrowed by compartment path.
type BiosphereQuery struct {
	Database   string
	Name       string
	Categories []string
}

// TechnosphereRepository is the read-only lookup over the background database.
// The importer links against it and never modifies it.
type TechnosphereRepository interface {
	FindCandidates(ctx context.Context, q TechnosphereQuery) ([]*Flow, error)
}

// BiosphereRepository is the read-only lookup over the elementary-flow database.
type BiosphereRepository interface {
	FindCandidates(ctx context.Context, q BiosphereQuery) ([]*Flow, error)
}
