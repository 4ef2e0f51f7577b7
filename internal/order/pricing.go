package order

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tableside/order-service/internal/catalog"
)

// Resolver resolves authoritative unit prices from the catalog. Client-supplied
// prices are never accepted; the request shape does not even carry them.
type Resolver struct {
	catalog catalog.Repository
}

// NewResolver creates a Resolver backed by the given catalog.
func NewResolver(c catalog.Repository) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve looks up the distinct set of catalog item ids in one batch and
// returns a price per id. The resolved set must match the requested set
// exactly: a strict equality check, so duplicate ids client-side cannot mask
// a missing item. Items marked unavailable are rejected.
func (r *Resolver) Resolve(ctx context.Context, itemIDs []string) (map[string]decimal.Decimal, error) {
	distinct := make([]string, 0, len(itemIDs))
	seen := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		if !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}

	items, err := r.catalog.GetByIDs(ctx, distinct)
	if err != nil {
		return nil, errors.Wrap(err, "fetch menu items")
	}

	prices := make(map[string]decimal.Decimal, len(items))
	var unavailable []string
	for _, it := range items {
		if !it.Available {
			unavailable = append(unavailable, it.ID)
			continue
		}
		prices[it.ID] = it.Price
	}
	if len(unavailable) > 0 {
		sort.Strings(unavailable)
		return nil, &ItemsUnavailableError{Unavailable: unavailable}
	}

	if len(prices) != len(distinct) {
		var missing []string
		for _, id := range distinct {
			if _, ok := prices[id]; !ok {
				missing = append(missing, id)
			}
		}
		sort.Strings(missing)
		return nil, &ItemsNotFoundError{Missing: missing}
	}

	return prices, nil
}
