package main

import (
	"context"
	"os"

	"github.com/navid-fn/skywatch/configs"
	"github.com/navid-fn/skywatch/internal/app"
	"github.com/navid-fn/skywatch/internal/storage"
	"github.com/navid-fn/skywatch/utils"
)

func main() {
	cfg := configs.AppLoad()
	logger := app.NewLogger(cfg.Log.Level, cfg.Log.Format)
	ctx := context.Background()

	store, err := storage.OpenClickHouse(ctx, cfg.Store.ClickHouseDSN, utils.LoadLocation(cfg.Airport.Timezone))
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer store.Close()

	logger.Info("Running database migrations...")
	if err := store.Migrate(ctx); err != nil {
		logger.WithError(err).Error("Goose migration failed")
		os.Exit(1)
	}

	logger.Info("Migrations completed successfully")
}
