package ingester

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/skywatch/internal/drivers/flightradar"
	"github.com/navid-fn/skywatch/internal/extractor"
	"github.com/navid-fn/skywatch/internal/faulttolerance"
	"github.com/navid-fn/skywatch/internal/models"
	"github.com/navid-fn/skywatch/internal/storage"
)

const t0 int64 = 1700000000

var runStart = time.Unix(t0, 0).Add(5 * time.Minute)

type fakeSource struct {
	snapshots []models.AircraftSnapshot
	err       error
	calls     int
}

func (f *fakeSource) ListSnapshots(context.Context, flightradar.Region) ([]models.AircraftSnapshot, error) {
	f.calls++
	return f.snapshots, f.err
}

type fakeFetcher struct {
	mu      sync.Mutex
	details map[string]models.FlightDetail
}

func (f *fakeFetcher) FetchDetail(_ context.Context, snap models.AircraftSnapshot) (models.FlightDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[snap.ID]
	if !ok {
		return models.FlightDetail{}, errors.New("status 404")
	}
	return d, nil
}

// testStore wraps Memory with injectable failures.
type testStore struct {
	*storage.Memory
	connectErr error
	readErr    error
	appendErrs []error
	appends    int
	window     storage.Window
}

func newTestStore() *testStore {
	return &testStore{Memory: storage.NewMemory(time.UTC)}
}

func (s *testStore) Connect(context.Context) (storage.EventStore, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return s, nil
}

func (s *testStore) ReadRecent(ctx context.Context, w storage.Window) ([]models.Row, error) {
	s.window = w
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.Memory.ReadRecent(ctx, w)
}

func (s *testStore) Append(ctx context.Context, events []models.MovementEvent) error {
	s.appends++
	if len(s.appendErrs) > 0 {
		err := s.appendErrs[0]
		s.appendErrs = s.appendErrs[1:]
		if err != nil {
			return err
		}
	}
	return s.Memory.Append(ctx, events)
}

type recordingPublisher struct {
	published []models.MovementEvent
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, events []models.MovementEvent) error {
	p.published = append(p.published, events...)
	return p.err
}

func (p *recordingPublisher) Close() {}

func arrival(flight string, actual int64) models.FlightDetail {
	return models.FlightDetail{
		FlightNumber:     flight,
		Airline:          "Iberia",
		AircraftModel:    "A320",
		Registration:     "EC-ABC",
		Origin:           &models.AirportInfo{IATA: "BCN", City: "Barcelona", Country: "Spain"},
		Destination:      &models.AirportInfo{IATA: "MAD", City: "Madrid", Country: "Spain", Terminal: "4"},
		ScheduledArrival: actual - 7*60,
		RealArrival:      actual,
	}
}

func approach(id string) models.AircraftSnapshot {
	return models.AircraftSnapshot{ID: id, Altitude: 400, GroundSpeed: 140, Destination: "MAD"}
}

type fixture struct {
	store   *testStore
	source  *fakeSource
	fetcher *fakeFetcher
	cfg     Config
	opts    []Option
}

func newFixture() *fixture {
	return &fixture{
		store:   newTestStore(),
		source:  &fakeSource{},
		fetcher: &fakeFetcher{details: map[string]models.FlightDetail{}},
		cfg:     Config{IndexRows: 1500, IndexHorizon: 24 * time.Hour},
	}
}

func (f *fixture) ingester() *Ingester {
	logger, _ := logtest.NewNullLogger()
	retryer := faulttolerance.NewRetryer(faulttolerance.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}, logger)
	ex := extractor.New(extractor.DefaultPolicy("MAD"), f.fetcher)
	opts := append([]Option{WithClock(func() time.Time { return runStart })}, f.opts...)
	return NewIngester(f.store, f.source, ex, retryer, f.cfg, logger, opts...)
}

func TestRunOnceRecordsNewMovements(t *testing.T) {
	f := newFixture()
	f.source.snapshots = []models.AircraftSnapshot{
		approach("a1"),
		{ID: "a2", Altitude: 36000, GroundSpeed: 470},
		{ID: "a3", Altitude: 3000, GroundSpeed: 200, Origin: "LIS", Destination: "BCN"},
	}
	f.fetcher.details["a1"] = arrival("IB3170", t0)

	res, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, map[string]int{"above_ceiling": 1, "off_route": 1}, res.Rejected)
	assert.Equal(t, []string{"above_ceiling=1", "off_route=1"}, res.ReasonCounts())

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "IB3170_1700000000", events[0].Signature)
	assert.Equal(t, runStart, events[0].CaptureTime)
	assert.Equal(t, 1, f.store.appends)
}

func TestRunOnceReadsBoundedWindow(t *testing.T) {
	f := newFixture()

	_, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1500, f.store.window.Rows)
	assert.Equal(t, runStart.Add(-24*time.Hour), f.store.window.Since)
	assert.Zero(t, f.store.appends, "nothing to write means no append call")
}

func TestRunOnceReplayIsIdempotent(t *testing.T) {
	f := newFixture()
	f.source.snapshots = []models.AircraftSnapshot{approach("a1")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)
	ig := f.ingester()

	first, err := ig.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Accepted)

	second, err := ig.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Accepted)
	assert.Equal(t, map[string]int{"duplicate": 1}, second.Rejected)
	assert.Equal(t, 1, second.IndexSize)
	assert.Equal(t, 1, f.store.Len())
}

func TestRunOnceDeduplicatesWithinRun(t *testing.T) {
	f := newFixture()
	f.source.snapshots = []models.AircraftSnapshot{approach("a1"), approach("a2")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)
	f.fetcher.details["a2"] = arrival("IB3170", t0)

	res, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Rejected["duplicate"])
	assert.Equal(t, 1, f.store.Len())
}

func TestRunOnceMatchesRowsWrittenWithOtherFormatting(t *testing.T) {
	f := newFixture()
	row := make(models.Row, models.RowWidth)
	row[models.ColFlightID] = " IB3170 "
	row[models.ColSignature] = "IB3170_1,700,000,000.0"
	f.store.Seed(models.Header, row)
	f.source.snapshots = []models.AircraftSnapshot{approach("a1")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)

	res, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 1, res.Rejected["duplicate"])
}

func TestRunOnceContinuesWithDegradedIndex(t *testing.T) {
	f := newFixture()
	f.store.readErr = errors.New("quota exceeded")
	f.source.snapshots = []models.AircraftSnapshot{approach("a1")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)

	res, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	assert.True(t, res.IndexDegraded)
	assert.Equal(t, 1, res.Accepted)
}

func TestRunOnceStoreUnavailable(t *testing.T) {
	f := newFixture()
	f.store.connectErr = errors.New("invalid credentials")

	_, err := f.ingester().RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Zero(t, f.source.calls)
}

func TestRunOnceSourceUnavailable(t *testing.T) {
	f := newFixture()
	f.source.err = errors.New("status 451")

	_, err := f.ingester().RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Zero(t, f.store.appends)
}

func TestRunOnceRetriesWrite(t *testing.T) {
	f := newFixture()
	f.store.appendErrs = []error{errors.New("503"), errors.New("503")}
	f.source.snapshots = []models.AircraftSnapshot{approach("a1")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)

	res, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 3, f.store.appends)
	assert.Equal(t, 1, f.store.Len())
}

func TestRunOnceWriteFailsAfterRetries(t *testing.T) {
	f := newFixture()
	f.store.appendErrs = []error{errors.New("503"), errors.New("503"), errors.New("503")}
	f.source.snapshots = []models.AircraftSnapshot{approach("a1")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)

	res, err := f.ingester().RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrWriteFailedAfterRetries)
	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 3, f.store.appends)
	assert.Zero(t, f.store.Len())
}

func TestRunOnceDoesNotRetryPermanentWriteErrors(t *testing.T) {
	f := newFixture()
	f.store.appendErrs = []error{faulttolerance.Permanent(errors.New("403 forbidden"))}
	f.source.snapshots = []models.AircraftSnapshot{approach("a1")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)

	_, err := f.ingester().RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrWriteFailedAfterRetries)
	assert.Equal(t, 1, f.store.appends)
}

func TestRunOnceRejectsOverlappingRun(t *testing.T) {
	f := newFixture()
	var mu sync.Mutex
	mu.Lock()
	f.opts = []Option{WithRunLock(&mu)}

	_, err := f.ingester().RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Zero(t, f.source.calls)
}

func TestRunOnceCancelledWritesNothing(t *testing.T) {
	f := newFixture()
	f.source.snapshots = []models.AircraftSnapshot{approach("a1")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ingester().RunOnce(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.appends)
}

func TestRunOnceWorkersKeepSnapshotOrder(t *testing.T) {
	f := newFixture()
	f.cfg.Workers = 4
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("a%02d", i)
		f.source.snapshots = append(f.source.snapshots, approach(id))
		f.fetcher.details[id] = arrival(fmt.Sprintf("IB%d", 3100+i), t0-int64(i))
	}

	res, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, 20, res.Accepted)
	events := f.store.Events()
	for i, e := range events {
		assert.Equal(t, fmt.Sprintf("IB%d", 3100+i), e.FlightID)
	}
}

func TestRunOnceWorkersEmitEachMovementOnce(t *testing.T) {
	f := newFixture()
	f.cfg.Workers = 4
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("a%02d", i)
		f.source.snapshots = append(f.source.snapshots, approach(id))
		f.fetcher.details[id] = arrival("IB3170", t0)
	}

	res, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 9, res.Rejected["duplicate"])
	assert.Equal(t, 1, f.store.Len())
}

func TestRunOncePublishesBestEffort(t *testing.T) {
	f := newFixture()
	pub := &recordingPublisher{err: errors.New("broker down")}
	f.opts = []Option{WithPublisher(pub)}
	f.source.snapshots = []models.AircraftSnapshot{approach("a1")}
	f.fetcher.details["a1"] = arrival("IB3170", t0)

	res, err := f.ingester().RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "IB3170_1700000000", pub.published[0].Signature)
}

func TestStartStopsOnCancel(t *testing.T) {
	f := newFixture()
	ig := f.ingester()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error)
	go func() { done <- ig.Start(ctx, time.Hour) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.Equal(t, 1, f.source.calls, "one run happens before the first tick")
}
