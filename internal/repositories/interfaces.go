package repositories

import (
	"context"

	domain "github.com/weinhalle/shop/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartStateRepository persists the storefront's single cart aggregate.
//
// Load returns ok=false with a nil error when no state exists or the stored
// payload cannot be decoded; the shop starts over with an empty cart rather
// than refusing to serve.
type CartStateRepository interface {
	Load(ctx context.Context) (domain.CartState, bool, error)
	Save(ctx context.Context, state domain.CartState) error
}

// CatalogRepository resolves product and bundle definitions maintained by the
// CMS. The shop never writes to the catalog.
type CatalogRepository interface {
	GetEntry(ctx context.Context, id string) (domain.CatalogEntry, error)
	ListEntries(ctx context.Context) ([]domain.CatalogEntry, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
