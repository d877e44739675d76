package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

// Migrate applies migrations and optional seed files.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files under `migrations/` in migrationFS that have not yet been recorded.
// The demo inventory in seedFS (`seed/cars.json`) is only inserted into an empty cars table.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, seedFS fs.FS) error {
	// ensure migrations table exists
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied BIGINT NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migDir := "migrations"

	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		// use filename (without extension) as migration version key
		version := strings.TrimSuffix(fname, path.Ext(fname))

		query, args, err := d.Dialect().From("schema_migrations").Prepared(true).
			Select(goqu.COUNT("*")).
			Where(goqu.Ex{"version": version}).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build migration check: %w", err)
		}
		var count int
		if err := d.QueryRow(ctx, query, args...).Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}

		insert, args, err := d.Dialect().Insert("schema_migrations").Prepared(true).
			Rows(goqu.Record{"version": version, "applied": time.Now().UTC().UnixMilli()}).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build migration record: %w", err)
		}
		if _, err := d.Exec(ctx, insert, args...); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		d.logger.Info("migration applied", slog.String("version", version))
	}

	if seedFS == nil {
		return nil
	}
	return seedCars(ctx, d, seedFS)
}

type seedCar struct {
	Name           string   `json:"name"`
	Brand          string   `json:"brand"`
	ModelYear      int      `json:"model_year"`
	Price          int64    `json:"price"`
	AdvanceAmount  int64    `json:"advance_amount"`
	KmDriven       int64    `json:"km_driven"`
	FuelType       string   `json:"fuel_type"`
	Location       string   `json:"location"`
	Images         []string `json:"images"`
	ConditionNotes *string  `json:"condition_notes"`
}

func seedCars(ctx context.Context, d *DB, seedFS fs.FS) error {
	b, err := fs.ReadFile(seedFS, path.Join("seed", "cars.json"))
	if err != nil {
		// seed files are optional
		return nil
	}

	query, args, err := d.Dialect().From("cars").Prepared(true).Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return fmt.Errorf("build cars count: %w", err)
	}
	var count int
	if err := d.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("count cars: %w", err)
	}
	if count > 0 {
		return nil
	}

	var cars []seedCar
	if err := json.Unmarshal(b, &cars); err != nil {
		return fmt.Errorf("decode seed cars: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	rows := make([]any, 0, len(cars))
	for i, c := range cars {
		images, err := json.Marshal(c.Images)
		if err != nil {
			return fmt.Errorf("encode seed images: %w", err)
		}
		// stagger timestamps so "newest first" ordering is stable
		ts := now - int64(len(cars)-i)
		rows = append(rows, goqu.Record{
			"id":              uuid.NewString(),
			"name":            c.Name,
			"brand":           c.Brand,
			"model_year":      c.ModelYear,
			"price":           c.Price,
			"advance_amount":  c.AdvanceAmount,
			"km_driven":       c.KmDriven,
			"fuel_type":       c.FuelType,
			"location":        c.Location,
			"status":          "available",
			"images":          string(images),
			"condition_notes": c.ConditionNotes,
			"created":         ts,
			"updated":         ts,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	insert, args, err := d.Dialect().Insert("cars").Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return fmt.Errorf("build seed insert: %w", err)
	}
	if _, err := d.Exec(ctx, insert, args...); err != nil {
		return fmt.Errorf("seed cars exec: %w", err)
	}
	d.logger.Info("seeded demo cars", slog.Int("count", len(rows)))
	return nil
}
