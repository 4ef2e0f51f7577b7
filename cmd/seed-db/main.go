// Command seed-db loads a demo restaurant and its menu into the database.
// It is used by local development and the integration test harness.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tableside/order-service/internal/postgres"
)

type menuJSON struct {
	Restaurant restaurantJSON `json:"restaurant"`
	Items      []menuItemJSON `json:"items"`
}

type restaurantJSON struct {
	RestaurantID      string          `json:"restaurant_id"`
	Name              string          `json:"name"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	ServiceChargeRate decimal.Decimal `json:"service_charge_rate"`
}

type menuItemJSON struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

func main() {
	var (
		databaseURL string
		menuFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "db/seed/menu.json", "path to menu JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, menuFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, menuFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading menu file", slog.String("path", menuFile))

	data, err := os.ReadFile(menuFile)
	if err != nil {
		return errors.Wrap(err, "read menu file")
	}

	var menu menuJSON
	if err := json.Unmarshal(data, &menu); err != nil {
		return errors.Wrap(err, "parse menu JSON")
	}

	catalog := postgres.NewCatalogRepository(pool)

	r := menu.Restaurant
	if err := catalog.UpsertRestaurant(ctx, r.RestaurantID, r.Name, r.TaxRate, r.ServiceChargeRate); err != nil {
		return errors.Wrapf(err, "upsert restaurant %s", r.RestaurantID)
	}
	slog.Info("upserted restaurant", slog.String("id", r.RestaurantID), slog.String("name", r.Name))

	slog.Info("upserting menu items", slog.Int("count", len(menu.Items)))

	for _, it := range menu.Items {
		if err := catalog.UpsertMenuItem(ctx, it.ItemID, r.RestaurantID, it.Name, it.Price, it.Available); err != nil {
			return errors.Wrapf(err, "upsert menu item %s", it.ItemID)
		}
		slog.Info("upserted menu item", slog.String("id", it.ItemID), slog.String("name", it.Name))
	}

	return nil
}
