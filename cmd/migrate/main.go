// Command migrate runs goose migrations against the catalog database.
//
//	migrate up
//	migrate down
//	migrate status
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/db"
	"github.com/printforge/quickorder-backend/pkg/logger"
	"github.com/printforge/quickorder-backend/pkg/migrate"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate <up|down|status|version> [args]")
	}
	command := args[0]

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.FeatureFlags.UseSQLite {
		return fmt.Errorf("goose migrations target postgres; sqlite uses auto-migrate")
	}

	logg := logger.New(logger.Options{
		ServiceName: "quickorder-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	ctx := context.Background()
	client, err := db.New(ctx, cfg.DB, false, logg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	if err := migrate.Run(ctx, sqlDB, migrate.DefaultDir, command, args[1:]...); err != nil {
		return err
	}
	logg.Info(ctx, "migration command completed")
	return nil
}
