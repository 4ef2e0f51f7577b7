// Package catalog is the read model for the menu catalog owned by the
// menu-management service. The order workflow only consumes it to resolve
// authoritative prices and availability at order-creation time; it never
// writes to it.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrRestaurantNotFound is returned when no settings row exists for a
// restaurant id.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// MenuItem is a catalog entry as seen by the order workflow.
type MenuItem struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Available bool
}

// Settings holds the per-restaurant rates applied on top of an order's
// subtotal. Rates are fractions, e.g. 0.10 for 10%.
type Settings struct {
	TaxRate           decimal.Decimal
	ServiceChargeRate decimal.Decimal
}

// Repository defines read operations against the catalog. Lookups are always
// fresh: prices must reflect the catalog at order time, so implementations
// must not cache across requests.
type Repository interface {
	// GetByIDs returns the menu items for the given ids. Ids with no
	// matching row are simply absent from the result; callers detect
	// missing items by comparing set sizes.
	GetByIDs(ctx context.Context, ids []string) ([]MenuItem, error)

	// Settings returns the tax and service charge rates for a restaurant.
	Settings(ctx context.Context, restaurantID string) (*Settings, error)
}
