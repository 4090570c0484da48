// Package ingester runs ingestion: one pass reads the recent store tail,
// polls the snapshot source, extracts new movements and appends them in a
// single batch.
package ingester

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/skywatch/internal/drivers/flightradar"
	"github.com/navid-fn/skywatch/internal/extractor"
	"github.com/navid-fn/skywatch/internal/faulttolerance"
	"github.com/navid-fn/skywatch/internal/metrics"
	"github.com/navid-fn/skywatch/internal/models"
	"github.com/navid-fn/skywatch/internal/publisher"
	"github.com/navid-fn/skywatch/internal/signature"
	"github.com/navid-fn/skywatch/internal/storage"
)

var (
	ErrRunInProgress           = errors.New("ingestion run already in progress")
	ErrStoreUnavailable        = errors.New("event store unavailable")
	ErrSourceUnavailable       = errors.New("snapshot source unavailable")
	ErrWriteFailedAfterRetries = errors.New("write failed after retries")
)

// Source lists the aircraft currently inside a region.
type Source interface {
	ListSnapshots(ctx context.Context, region flightradar.Region) ([]models.AircraftSnapshot, error)
}

// Config holds run parameters.
type Config struct {
	// Region is polled on every run.
	Region flightradar.Region

	// IndexRows and IndexHorizon bound the store read that seeds the
	// signature index. IndexHorizon must cover the extractor's freshness
	// window.
	IndexRows    int
	IndexHorizon time.Duration

	// Workers > 1 evaluates snapshots concurrently.
	Workers int
}

// Result summarizes one run.
type Result struct {
	RunID         string         `json:"run_id"`
	Candidates    int            `json:"candidates"`
	Accepted      int            `json:"accepted"`
	Rejected      map[string]int `json:"rejected"`
	IndexSize     int            `json:"index_size"`
	IndexDegraded bool           `json:"index_degraded"`
	Duration      time.Duration  `json:"duration"`

	Events []models.MovementEvent `json:"-"`
}

// Ingester coordinates runs. A single Ingester never runs two passes at
// once; a second RunOnce while one is in flight returns ErrRunInProgress.
type Ingester struct {
	connector storage.Connector
	source    Source
	extractor *extractor.Extractor
	retryer   *faulttolerance.Retryer
	cfg       Config
	logger    logrus.FieldLogger

	lock      TryLocker
	now       func() time.Time
	publisher publisher.Publisher
	metrics   metrics.Recorder
}

type Option func(*Ingester)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(ig *Ingester) { ig.now = now }
}

func WithRunLock(l TryLocker) Option {
	return func(ig *Ingester) { ig.lock = l }
}

// WithPublisher announces every appended batch. Publish failures are logged
// and never fail the run.
func WithPublisher(p publisher.Publisher) Option {
	return func(ig *Ingester) { ig.publisher = p }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(ig *Ingester) { ig.metrics = r }
}

// NewIngester creates an Ingester with the provided dependencies.
func NewIngester(
	connector storage.Connector,
	source Source,
	ex *extractor.Extractor,
	retryer *faulttolerance.Retryer,
	cfg Config,
	logger logrus.FieldLogger,
	opts ...Option,
) *Ingester {
	ig := &Ingester{
		connector: connector,
		source:    source,
		extractor: ex,
		retryer:   retryer,
		cfg:       cfg,
		logger:    logger,
		lock:      &sync.Mutex{},
		now:       time.Now,
		publisher: publisher.Nop{},
		metrics:   metrics.Nop{},
	}
	for _, opt := range opts {
		opt(ig)
	}
	return ig
}

// RunOnce performs one full pass. Nothing is written unless every snapshot
// was evaluated, and everything accepted is written in one Append.
func (ig *Ingester) RunOnce(ctx context.Context) (Result, error) {
	if !ig.lock.TryLock() {
		ig.metrics.RecordRun(metrics.OutcomeBusy, 0)
		return Result{}, ErrRunInProgress
	}
	defer ig.lock.Unlock()

	start := ig.now()
	res := Result{RunID: uuid.NewString(), Rejected: map[string]int{}}
	log := ig.logger.WithField("run_id", res.RunID)

	finish := func(outcome string, err error) (Result, error) {
		res.Duration = ig.now().Sub(start)
		ig.metrics.RecordRun(outcome, res.Duration)
		if err != nil {
			log.WithError(err).WithField("outcome", outcome).Error("Ingestion run failed")
		}
		return res, err
	}

	store, err := ig.connector.Connect(ctx)
	if err != nil {
		return finish(metrics.OutcomeStoreUnavailable, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	window := storage.Window{Rows: ig.cfg.IndexRows, Since: start.Add(-ig.cfg.IndexHorizon)}
	idx := signature.Load(ctx, func(ctx context.Context) ([]models.Row, error) {
		return store.ReadRecent(ctx, window)
	}, log)
	res.IndexSize, res.IndexDegraded = idx.Len(), idx.Degraded()
	ig.metrics.RecordIndexSize(res.IndexSize)
	if res.IndexDegraded {
		ig.metrics.RecordIndexDegraded()
	}

	snapshots, err := ig.source.ListSnapshots(ctx, ig.cfg.Region)
	if err != nil {
		return finish(metrics.OutcomeSourceFailed, fmt.Errorf("%w: %w", ErrSourceUnavailable, err))
	}
	res.Candidates = len(snapshots)

	events, err := ig.extractAll(ctx, snapshots, start, idx, res.Rejected, log)
	if err != nil {
		return finish(metrics.OutcomeCancelled, err)
	}
	res.Events = events
	res.Accepted = len(events)

	if len(events) > 0 {
		err := ig.retryer.Execute(ctx, func(ctx context.Context) error {
			return store.Append(ctx, events)
		})
		if err != nil {
			res.Accepted = 0
			return finish(metrics.OutcomeWriteFailed, fmt.Errorf("%w: %w", ErrWriteFailedAfterRetries, err))
		}
		if err := ig.publisher.Publish(ctx, events); err != nil {
			log.WithError(err).Warn("Failed to publish recorded movements")
		}
	}

	ig.metrics.RecordSnapshots(res.Candidates, res.Accepted)
	for reason, n := range res.Rejected {
		ig.metrics.RecordRejection(reason, n)
	}

	res, err = finish(metrics.OutcomeSuccess, nil)
	log.WithFields(logrus.Fields{
		"candidates":     res.Candidates,
		"accepted":       res.Accepted,
		"rejected":       res.Rejected,
		"index_size":     res.IndexSize,
		"index_degraded": res.IndexDegraded,
		"duration":       res.Duration,
	}).Info("Ingestion run completed")
	return res, err
}

type outcome struct {
	event models.MovementEvent
	err   error
}

// extractAll evaluates every snapshot and returns accepted events in
// snapshot order. Rejections are counted into rejected by reason.
func (ig *Ingester) extractAll(
	ctx context.Context,
	snapshots []models.AircraftSnapshot,
	now time.Time,
	idx *signature.Index,
	rejected map[string]int,
	log logrus.FieldLogger,
) ([]models.MovementEvent, error) {
	outcomes := make([]outcome, len(snapshots))
	evaluate := func(i int) {
		if err := ctx.Err(); err != nil {
			outcomes[i].err = err
			return
		}
		outcomes[i].event, outcomes[i].err = ig.extractor.Extract(ctx, snapshots[i], now, idx)
	}

	if ig.cfg.Workers <= 1 {
		for i := range snapshots {
			evaluate(i)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < ig.cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					evaluate(i)
				}
			}()
		}
		for i := range snapshots {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []models.MovementEvent
	for i, o := range outcomes {
		if o.err == nil {
			events = append(events, o.event)
			continue
		}
		reason := extractor.ReasonOf(o.err)
		rejected[reason]++

		entry := log.WithField("snapshot", snapshots[i].ID).WithField("reason", reason)
		if errors.Is(o.err, extractor.ErrDetailFetchFailed) {
			entry.WithError(o.err).Warn("Snapshot skipped")
		} else {
			entry.Debug("Snapshot skipped")
		}
	}
	return events, nil
}

// Start runs RunOnce immediately and then every interval until ctx is done.
// Failed runs are logged and the loop continues.
func (ig *Ingester) Start(ctx context.Context, interval time.Duration) error {
	ig.logger.WithField("interval", interval).Info("Starting collector loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// failures are logged by RunOnce
		if _, err := ig.RunOnce(ctx); errors.Is(err, ErrRunInProgress) {
			ig.logger.Debug("Previous run still in progress, skipping tick")
		}

		select {
		case <-ctx.Done():
			ig.logger.Info("Collector loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ReasonCounts returns the rejection reasons of r sorted by label.
func (r Result) ReasonCounts() []string {
	out := make([]string, 0, len(r.Rejected))
	for reason, n := range r.Rejected {
		out = append(out, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(out)
	return out
}
