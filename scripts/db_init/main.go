package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	dbfs "github.com/garnizeh/southwheels/db"
	"github.com/garnizeh/southwheels/internal/auth"
	"github.com/garnizeh/southwheels/internal/config"
	"github.com/garnizeh/southwheels/internal/db"
	"github.com/garnizeh/southwheels/internal/repository/sqlstore"
	"github.com/garnizeh/southwheels/pkg/models"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// db_init applies migrations, seeds the demo inventory and provisions the
// admin account from SWT_ADMIN_* settings. Admins cannot sign up.
func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	noSeed := flag.Bool("no-seed", false, "Skip the demo car inventory")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.Database.Driver, cfg.Database.DSN, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// run migrations and seed using internal/db.Migrate
	if *noSeed || !cfg.Database.Seed {
		err = db.Migrate(ctx, database, dbfs.Migrations, nil)
	} else {
		err = db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Admin.Email == "" {
		fmt.Println("Database initialized successfully (no admin configured).")
		return
	}
	if err := provisionAdmin(ctx, sqlstore.New(database, nil), cfg.Admin); err != nil {
		fmt.Fprintf(os.Stderr, "Admin provisioning error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Database initialized successfully.")
}

func provisionAdmin(ctx context.Context, identities repository.IdentityRepo, a config.AdminConfig) error {
	hash, err := auth.HashPassword(a.Password)
	if err != nil {
		return fmt.Errorf("admin password: %w", err)
	}
	_, err = identities.CreateIdentity(ctx, repository.NewIdentity{
		Email:        a.Email,
		PasswordHash: hash,
		FullName:     a.FullName,
		Mobile:       a.Mobile,
		Role:         models.RoleAdmin,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		fmt.Printf("Admin %s already exists.\n", a.Email)
		return nil
	}
	return err
}
