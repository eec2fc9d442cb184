package migrate

import (
	"context"
	"fmt"

	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/db"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on boot when the auto-migrate
// flag is set. Guarded to non-prod so production schema changes stay an
// explicit cmd/migrate step.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.App.IsProd() {
		return fmt.Errorf("auto-migrate is not allowed in prod")
	}
	if cfg.FeatureFlags.UseSQLite {
		// SQLite runs use gorm AutoMigrate in the caller instead.
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle for migrations: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "applying pending migrations")
	}
	return Run(ctx, sqlDB, DefaultDir, "up")
}
