// Command menu-ingest imports nightly POS menu exports into the catalog
// tables. Each export is a gzipped JSONL file, one menu item per line.
//
// An item id must belong to exactly one restaurant, but exports from
// misconfigured POS terminals occasionally repeat ids across files. Pass 1
// builds a bloom filter per file; pass 2 skips and reports any id that
// appears in another file's filter instead of importing it twice.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tableside/order-service/internal/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// menuRecord is one line of a POS export.
type menuRecord struct {
	ItemID         string          `json:"item_id"`
	RestaurantID   string          `json:"restaurant_id"`
	RestaurantName string          `json:"restaurant_name"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Available      bool            `json:"available"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz menu exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("menu ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("menu ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildItemFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build item filters")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("pass 2: importing menu items")

	catalog := postgres.NewCatalogRepository(pool)
	var imported, skipped int
	for i, f := range files {
		n, s, err := importFile(ctx, catalog, i, f, filters)
		if err != nil {
			return errors.Wrapf(err, "import %s", f)
		}
		imported += n
		skipped += s
	}

	slog.Info("import complete", slog.Int("imported", imported), slog.Int("skipped", skipped))
	return nil
}

// buildItemFilters streams every file once and records its item ids in a
// per-file bloom filter, concurrently.
func buildItemFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			if err := streamRecords(ctx, f, func(rec menuRecord) error {
				filter.AddString(rec.ItemID)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("items", count))
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("total_items", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// importFile streams one export and upserts every record whose item id does
// not also appear in another file's filter.
func importFile(
	ctx context.Context,
	catalog *postgres.CatalogRepository,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
) (imported, skipped int, err error) {
	err = streamRecords(ctx, path, func(rec menuRecord) error {
		if err := validateRecord(rec); err != nil {
			slog.Warn("invalid record skipped",
				slog.String("file", path),
				slog.String("item_id", rec.ItemID),
				slog.String("error", err.Error()),
			)
			skipped++
			return nil
		}

		for j, f := range filters {
			if j == idx {
				continue
			}
			if f.TestString(rec.ItemID) {
				slog.Warn("item id appears in multiple exports, skipped",
					slog.String("item_id", rec.ItemID),
					slog.Int("file", idx+1),
					slog.Int("also_in", j+1),
				)
				skipped++
				return nil
			}
		}

		if err := catalog.UpsertRestaurantStub(ctx, rec.RestaurantID, rec.RestaurantName); err != nil {
			return errors.Wrap(err, "upsert restaurant")
		}
		if err := catalog.UpsertMenuItem(ctx, rec.ItemID, rec.RestaurantID, rec.Name, rec.Price, rec.Available); err != nil {
			return errors.Wrapf(err, "upsert item %s", rec.ItemID)
		}
		imported++
		return nil
	})
	return imported, skipped, err
}

func validateRecord(rec menuRecord) error {
	if _, err := uuid.Parse(rec.ItemID); err != nil {
		return errors.Wrap(err, "item_id")
	}
	if _, err := uuid.Parse(rec.RestaurantID); err != nil {
		return errors.Wrap(err, "restaurant_id")
	}
	if rec.Name == "" {
		return errors.New("empty name")
	}
	if rec.Price.IsNegative() {
		return errors.New("negative price")
	}
	return nil
}

// streamRecords opens a gzipped JSONL file and calls fn for each record.
func streamRecords(ctx context.Context, path string, fn func(menuRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec menuRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return errors.Wrapf(err, "parse line in %s", path)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
