package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/providers"
	"github.com/pratik-mahalle/cloudops/internal/repository/dynamo"
	"github.com/pratik-mahalle/cloudops/internal/repository/postgres"
	"github.com/pratik-mahalle/cloudops/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Driver == "dynamodb" {
		if err := ensureTables(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	applied, err := postgres.RunMigrations(db, migrations.FS())
	for _, name := range applied {
		fmt.Printf("✓ Migration %s completed successfully\n", name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	if len(applied) == 0 {
		fmt.Println("No pending migrations")
		return
	}
	fmt.Println("\nAll migrations completed successfully!")
}

func ensureTables(cfg *config.Config) error {
	ctx := context.Background()

	awsCfg, err := providers.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamo.New(awsCfg, dynamo.TablesFromConfig(cfg.AWS))
	created, err := client.EnsureTables(ctx)
	for _, name := range created {
		fmt.Printf("✓ Created table %s\n", name)
	}
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if len(created) == 0 {
		fmt.Println("All tables already exist")
	}
	return nil
}
