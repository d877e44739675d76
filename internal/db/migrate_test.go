package db_test

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/southwheels/db"
	"github.com/garnizeh/southwheels/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, db.DriverSQLite, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count < 1 {
		t.Fatalf("expected at least 1 migration recorded, got %d", count)
	}

	for _, table := range []string{"identities", "profiles", "cars", "bookings", "enquiries"} {
		var name string
		r := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)
		if err := r.Scan(&name); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}

	// seed runs once: the second Migrate must not duplicate the demo cars
	var cars int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM cars`).Scan(&cars); err != nil {
		t.Fatalf("count cars: %v", err)
	}
	if cars != 4 {
		t.Fatalf("expected 4 seeded cars, got %d", cars)
	}
}

func TestMigrate_NoSeed(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, db.DriverSQLite, ":memory:", nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	var cars int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM cars`).Scan(&cars); err != nil {
		t.Fatalf("count cars: %v", err)
	}
	if cars != 0 {
		t.Fatalf("expected no cars without seed, got %d", cars)
	}
}

func TestMigrate_BadMigration(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, db.DriverSQLite, ":memory:", nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer d.Close()

	fsys := fstest.MapFS{
		"migrations/0001_ok.sql":     {Data: []byte(`CREATE TABLE t (id INTEGER)`)},
		"migrations/0002_broken.sql": {Data: []byte(`CREATE TABL nope`)},
		"migrations/README.md":       {Data: []byte(`ignored`)},
	}
	if err := db.Migrate(ctx, d, fsys, nil); err == nil {
		t.Fatalf("expected error from broken migration")
	}

	var applied int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected only the first migration recorded, got %d", applied)
	}
}

func TestMigrate_SeedConditionNotes(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, db.DriverSQLite, ":memory:", nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	var notes sql.NullString
	r := d.QueryRow(ctx, `SELECT condition_notes FROM cars WHERE name = ?`, "Maruti Swift VDI")
	if err := r.Scan(&notes); err != nil {
		t.Fatalf("scan seeded car: %v", err)
	}
	if !notes.Valid || notes.String != "Single owner, full service history" {
		t.Fatalf("unexpected condition notes %+v", notes)
	}

	var missing int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM cars WHERE condition_notes IS NULL`).Scan(&missing); err != nil {
		t.Fatalf("count cars without notes: %v", err)
	}
	if missing != 2 {
		t.Fatalf("expected 2 seeded cars without notes, got %d", missing)
	}
}
