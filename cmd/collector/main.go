package main

import (
	"os"

	"github.com/navid-fn/skywatch/configs"
	"github.com/navid-fn/skywatch/internal/app"
)

func main() {
	appConfig := configs.AppLoad()
	logger := app.NewLogger(appConfig.Log.Level, appConfig.Log.Format)

	ctx, stop := app.SignalContext(logger)
	defer stop()

	a, err := app.New(ctx, appConfig, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to build collector")
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.WithError(err).Error("Failed to close collector")
		}
	}()

	a.Health.Start(ctx)
	defer a.Health.Stop()

	logger.WithField("interval", appConfig.Run.CollectInterval).Info("Collector started successfully")

	if err := a.Ingester.Start(ctx, appConfig.Run.CollectInterval); err != nil {
		logger.WithError(err).Error("Collector stopped with error")
		return
	}

	logger.Info("Collector shutdown complete")
}
