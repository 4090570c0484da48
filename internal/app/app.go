// Package app wires configuration into a ready-to-run collector.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/skywatch/configs"
	"github.com/navid-fn/skywatch/internal/drivers/flightradar"
	"github.com/navid-fn/skywatch/internal/extractor"
	"github.com/navid-fn/skywatch/internal/faulttolerance"
	"github.com/navid-fn/skywatch/internal/ingester"
	"github.com/navid-fn/skywatch/internal/metrics"
	"github.com/navid-fn/skywatch/internal/publisher"
	"github.com/navid-fn/skywatch/internal/storage"
	"github.com/navid-fn/skywatch/utils"
)

// App holds every long-lived component of the collector.
type App struct {
	Config   *configs.AppConfig
	Logger   *logrus.Logger
	Location *time.Location
	Region   flightradar.Region

	Connector storage.Connector
	Source    *flightradar.Client
	Ingester  *ingester.Ingester
	Health    *faulttolerance.HealthMonitor
	Metrics   *metrics.PrometheusRecorder

	// ClickHouse is set when the clickhouse backend is selected.
	ClickHouse *storage.ClickHouse

	closers []func() error
}

// New validates cfg and builds the collector.
func New(ctx context.Context, cfg *configs.AppConfig, logger *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Location: utils.LoadLocation(cfg.Airport.Timezone),
		Region:   flightradar.BoundsAround(cfg.Airport.Latitude, cfg.Airport.Longitude, cfg.Airport.RadiusMeters),
		Metrics:  metrics.NewPrometheusRecorder(),
	}

	connector, err := a.connector(ctx)
	if err != nil {
		return nil, err
	}
	a.Connector = connector

	opts := []flightradar.Option{
		flightradar.WithDetailInterval(cfg.Source.DetailInterval),
		flightradar.WithLogger(logger),
	}
	if cfg.Source.FeedURL != "" {
		opts = append(opts, flightradar.WithFeedURL(cfg.Source.FeedURL))
	}
	if cfg.Source.DetailURL != "" {
		opts = append(opts, flightradar.WithDetailURL(cfg.Source.DetailURL))
	}
	a.Source = flightradar.New(opts...)

	policy, err := Policy(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	retryCfg := faulttolerance.DefaultRetryConfig("store-append")
	retryCfg.MaxAttempts = cfg.Run.WriteMaxAttempts
	retryCfg.BaseDelay = cfg.Run.WriteBaseDelay

	ingOpts := []ingester.Option{
		ingester.WithRunLock(ingester.NewRunLock(cfg.Run.Lock)),
		ingester.WithMetrics(a.Metrics),
	}
	if cfg.Kafka.Broker != "" {
		pub, err := publisher.NewKafka(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { pub.Close(); return nil })
		ingOpts = append(ingOpts, ingester.WithPublisher(pub))
	}

	a.Ingester = ingester.NewIngester(
		a.Connector,
		a.Source,
		extractor.New(policy, a.Source),
		faulttolerance.NewRetryer(retryCfg, logger),
		ingester.Config{
			Region:       a.Region,
			IndexRows:    cfg.Index.Rows,
			IndexHorizon: cfg.Index.Horizon,
			Workers:      cfg.Run.Workers,
		},
		logger,
		ingOpts...,
	)

	a.Health = faulttolerance.NewHealthMonitor(logger, time.Minute)
	a.Health.AddCheck("store", true, func(ctx context.Context) error {
		if p, ok := a.Connector.(storage.Pinger); ok {
			return p.Ping(ctx)
		}
		_, err := a.Connector.Connect(ctx)
		return err
	})
	a.Health.AddCheck("flightradar-detail", false, a.Source.Breaker().HealthCheck)

	logger.WithFields(logrus.Fields{
		"airport": cfg.Airport.IATA,
		"region":  a.Region.String(),
		"backend": cfg.Store.Backend,
	}).Info("Collector configured")
	return a, nil
}

// Policy builds the extractor policy from configuration.
func Policy(cfg *configs.AppConfig) (extractor.Policy, error) {
	resolver, err := extractor.NewResolver(extractor.ResolverMode(cfg.Policy.Resolver))
	if err != nil {
		return extractor.Policy{}, err
	}
	p := extractor.DefaultPolicy(cfg.Airport.IATA)
	p.FreshnessWindow = cfg.Policy.FreshnessWindow
	p.ArrivalCeilingFt = cfg.Policy.ArrivalCeilingFt
	p.DepartureCeilingFt = cfg.Policy.DepartureCeilingFt
	p.UnknownCeilingFt = cfg.Policy.UnknownCeilingFt
	p.GroundSpeedCeilingKt = cfg.Policy.GroundSpeedCeilingKt
	p.DelaySanityLimit = cfg.Policy.DelaySanityLimit
	p.Resolver = resolver
	return p, p.Validate()
}

func (a *App) connector(ctx context.Context) (storage.Connector, error) {
	cfg := a.Config.Store
	switch cfg.Backend {
	case "sheets":
		return storage.NewSheetsConnector(storage.SheetsConfig{
			CredentialsFile: cfg.GoogleCredentialsFile,
			SpreadsheetID:   cfg.SpreadsheetID,
			SheetName:       cfg.SheetName,
			Location:        a.Location,
		}), nil
	case "clickhouse":
		ch, err := storage.OpenClickHouse(ctx, cfg.ClickHouseDSN, a.Location)
		if err != nil {
			return nil, err
		}
		a.ClickHouse = ch
		a.closers = append(a.closers, ch.Close)
		return ch, nil
	case "memory":
		return storage.NewMemory(a.Location), nil
	}
	return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Backend)
}

// Close releases every resource opened by New.
func (a *App) Close() error {
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	return result.ErrorOrNil()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger logrus.FieldLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			logger.Info("Received shutdown signal, gracefully shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
