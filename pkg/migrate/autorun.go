package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/interviewprep-backend/pkg/config"
	"github.com/angelmondragon/interviewprep-backend/pkg/db"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
)

// SchemaFunc creates tables straight from the gorm models.
type SchemaFunc func(*gorm.DB) error

// MaybeRun prepares the schema on boot. sqlite databases are always built
// with gorm AutoMigrate; Postgres runs goose only when the auto-migrate flag
// is set in dev.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client, schema SchemaFunc) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}

	if client.Dialect() == db.DialectSQLite {
		if schema == nil {
			return nil
		}
		logg.Info(logg.WithField(ctx, "dialect", db.DialectSQLite), "running gorm auto-migrate")
		if err := schema(client.DB()); err != nil {
			return fmt.Errorf("gorm auto-migrate: %w", err)
		}
		return nil
	}

	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
