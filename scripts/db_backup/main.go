package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/garnizeh/southwheels/internal/config"
	"github.com/garnizeh/southwheels/internal/db"
)

// db_backup writes a consistent copy of the SQLite database next to it.
// Postgres deployments use pg_dump instead.
func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Driver != db.DriverSQLite {
		fmt.Fprintf(os.Stderr, "Backup error: driver %q is not supported, use pg_dump\n", cfg.Database.Driver)
		os.Exit(1)
	}

	src := cfg.Database.DSN
	dst := src + ".bak"
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	database, err := db.New(ctx, cfg.Database.Driver, src, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// VACUUM INTO snapshots the database even while the server is writing
	if _, err := database.Exec(ctx, "VACUUM INTO '"+strings.ReplaceAll(dst, "'", "''")+"'"); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup completed: %s\n", dst)
}
