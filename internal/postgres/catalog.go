package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tableside/order-service/internal/catalog"
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
// The workflow only reads these tables; the upsert methods exist for the
// menu-ingest import job.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

const getMenuItemsSQL = `SELECT item_id, name, price, available
	FROM menu_items WHERE item_id = ANY($1)`

// GetByIDs fetches the requested menu items in a single batch query.
// Unknown ids are absent from the result.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, getMenuItemsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query menu items")
	}
	defer rows.Close()

	items := make([]catalog.MenuItem, 0, len(ids))
	for rows.Next() {
		var it catalog.MenuItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.Available); err != nil {
			return nil, errors.Wrap(err, "scan menu item")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read menu items")
	}

	return items, nil
}

const getSettingsSQL = `SELECT tax_rate, service_charge_rate
	FROM restaurants WHERE restaurant_id = $1`

// Settings returns the tax and service charge rates for a restaurant.
func (r *CatalogRepository) Settings(ctx context.Context, restaurantID string) (*catalog.Settings, error) {
	var s catalog.Settings
	err := r.pool.QueryRow(ctx, getSettingsSQL, restaurantID).Scan(&s.TaxRate, &s.ServiceChargeRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrRestaurantNotFound
		}
		return nil, errors.Wrapf(err, "query settings for restaurant %q", restaurantID)
	}
	return &s, nil
}

const upsertRestaurantStubSQL = `INSERT INTO restaurants (restaurant_id, name)
	VALUES ($1, $2)
	ON CONFLICT (restaurant_id) DO NOTHING`

// UpsertRestaurantStub ensures a restaurant row exists so imported menu items
// have a parent. Rates stay at their defaults; the back office sets real ones.
func (r *CatalogRepository) UpsertRestaurantStub(ctx context.Context, restaurantID, name string) error {
	if _, err := r.pool.Exec(ctx, upsertRestaurantStubSQL, restaurantID, name); err != nil {
		return errors.Wrapf(err, "upsert restaurant %q", restaurantID)
	}
	return nil
}

const upsertRestaurantSQL = `INSERT INTO restaurants (restaurant_id, name, tax_rate, service_charge_rate)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (restaurant_id) DO UPDATE
	SET name = EXCLUDED.name,
	    tax_rate = EXCLUDED.tax_rate,
	    service_charge_rate = EXCLUDED.service_charge_rate,
	    updated_at = now()`

// UpsertRestaurant inserts or refreshes a restaurant including its rates.
func (r *CatalogRepository) UpsertRestaurant(ctx context.Context, restaurantID, name string, taxRate, serviceChargeRate decimal.Decimal) error {
	if _, err := r.pool.Exec(ctx, upsertRestaurantSQL, restaurantID, name, taxRate, serviceChargeRate); err != nil {
		return errors.Wrapf(err, "upsert restaurant %q", restaurantID)
	}
	return nil
}

const upsertMenuItemSQL = `INSERT INTO menu_items (item_id, restaurant_id, name, price, available)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (item_id) DO UPDATE
	SET name = EXCLUDED.name,
	    price = EXCLUDED.price,
	    available = EXCLUDED.available,
	    updated_at = now()`

// UpsertMenuItem inserts or refreshes one menu item from a POS export.
func (r *CatalogRepository) UpsertMenuItem(ctx context.Context, itemID, restaurantID, name string, price decimal.Decimal, available bool) error {
	if _, err := r.pool.Exec(ctx, upsertMenuItemSQL, itemID, restaurantID, name, price, available); err != nil {
		return errors.Wrapf(err, "upsert menu item %q", itemID)
	}
	return nil
}
