package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"github.com/navid-fn/skywatch/configs"
	"github.com/navid-fn/skywatch/internal/app"
	"github.com/navid-fn/skywatch/server/internal/handler"
	"github.com/navid-fn/skywatch/server/internal/repository"
	"github.com/navid-fn/skywatch/server/internal/router"
	"github.com/navid-fn/skywatch/server/internal/service"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before serving")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := app.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := app.SignalContext(logger)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build collector: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.WithError(err).Error("Failed to close collector")
		}
	}()

	if *migrateFlag && a.ClickHouse != nil {
		logger.Info("Running database migrations...")
		if err := a.ClickHouse.Migrate(ctx); err != nil {
			logger.Fatalf("Goose migration failed: %v", err)
		}
	}

	collectService := service.NewCollectService(a.Ingester, a.Health)
	routerConfig := &router.Config{
		CollectHandler: handler.NewCollectHandler(collectService, cfg.Airport.IATA),
		Registry:       a.Metrics.GetRegistry(),
	}

	if a.ClickHouse != nil {
		db, err := gorm.Open(clickhouse.New(clickhouse.Config{Conn: a.ClickHouse.DB()}), &gorm.Config{})
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		movementRepo := repository.NewGormMovementRepository(db)
		movementService := service.NewMovementsService(movementRepo)
		routerConfig.MovementHandler = handler.NewMovementHandler(movementService)
	}

	a.Health.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router.NewRouter(routerConfig),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("HTTP server shutdown failed")
		}
	}()

	logger.WithField("addr", srv.Addr).Info("HTTP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server failed: %v", err)
	}
	a.Health.Stop()
	logger.Info("Server stopped")
}
