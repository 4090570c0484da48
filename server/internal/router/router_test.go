package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"github.com/navid-fn/skywatch/internal/faulttolerance"
	"github.com/navid-fn/skywatch/internal/ingester"
	"github.com/navid-fn/skywatch/internal/metrics"
	"github.com/navid-fn/skywatch/server/internal/handler"
	"github.com/navid-fn/skywatch/server/internal/repository"
	"github.com/navid-fn/skywatch/server/internal/service"
)

type fakeRunner struct {
	res ingester.Result
	err error
}

func (f fakeRunner) RunOnce(context.Context) (ingester.Result, error) { return f.res, f.err }

type fakeHealth struct {
	status faulttolerance.HealthStatus
}

func (f fakeHealth) CheckNow(context.Context) faulttolerance.HealthStatus { return f.status }
func (f fakeHealth) GetHealth() []faulttolerance.HealthCheck {
	return []faulttolerance.HealthCheck{{Name: "store", Status: f.status, Critical: true}}
}

func newRouter(t *testing.T, runner service.Runner, health service.HealthChecker, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &Config{
		CollectHandler: handler.NewCollectHandler(service.NewCollectService(runner, health), "MAD"),
		Registry:       metrics.NewPrometheusRecorder().GetRegistry(),
	}
	if db != nil {
		cfg.MovementHandler = handler.NewMovementHandler(service.NewMovementsService(repository.NewGormMovementRepository(db)))
	}
	return NewRouter(cfg)
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name       string
		runner     fakeRunner
		wantCode   int
		wantStatus string
	}{
		{"success", fakeRunner{res: ingester.Result{RunID: "r1", Accepted: 2}}, http.StatusOK, "success"},
		{"busy", fakeRunner{err: ingester.ErrRunInProgress}, http.StatusConflict, "busy"},
		{"failed", fakeRunner{err: ingester.ErrStoreUnavailable}, http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t, tt.runner, fakeHealth{faulttolerance.HealthStatusHealthy}, nil)
			for _, method := range []string{http.MethodGet, http.MethodPost} {
				w := serve(r, method, "/collect")
				assert.Equal(t, tt.wantCode, w.Code)
				assert.Equal(t, tt.wantStatus, decode(t, w)["status"])
			}
		})
	}
}

func TestCollectReportsAccepted(t *testing.T) {
	r := newRouter(t, fakeRunner{res: ingester.Result{RunID: "r1", Accepted: 2}}, fakeHealth{faulttolerance.HealthStatusHealthy}, nil)
	body := decode(t, serve(r, http.MethodPost, "/collect"))
	assert.Equal(t, float64(2), body["accepted"])
	assert.Equal(t, "r1", body["run_id"])
}

func TestHealth(t *testing.T) {
	r := newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusDegraded}, nil)
	w := serve(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])

	r = newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusUnhealthy}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/health").Code)
}

func TestIndexAndMetrics(t *testing.T) {
	r := newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusHealthy}, nil)

	w := serve(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MAD", decode(t, w)["airport"])

	w = serve(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestMovementRoutesNeedClickHouse(t *testing.T) {
	r := newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusHealthy}, nil)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/v1/movements/latest").Code)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	mock.ExpectQuery(`SELECT version\(\)`).WillReturnRows(sqlmock.NewRows([]string{"version()"}).AddRow("24.3.1.1"))
	db, err := gorm.Open(clickhouse.New(clickhouse.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestLatestMovements(t *testing.T) {
	db, mock := newMockDB(t)
	captured := time.Date(2023, 11, 14, 22, 18, 20, 0, time.UTC)
	mock.ExpectQuery("SELECT \\* FROM `movements` ORDER BY capture_time desc").
		WillReturnRows(sqlmock.NewRows([]string{"capture_time", "flight_id", "movement_type", "event_signature"}).
			AddRow(captured, "IB3170", "ARRIVAL", "IB3170_1700000000"))

	r := newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusHealthy}, db)
	w := serve(r, http.MethodGet, "/v1/movements/latest?limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	var movements []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movements))
	require.Len(t, movements, 1)
	assert.Equal(t, "IB3170", movements[0]["flight_id"])
	assert.Equal(t, "IB3170_1700000000", movements[0]["event_signature"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestMovementsBadLimit(t *testing.T) {
	db, _ := newMockDB(t)
	r := newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusHealthy}, db)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/v1/movements/latest?limit=ten").Code)
}

func TestMovementCount(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `movements` WHERE movement_type = \\?").
		WithArgs("ARRIVAL").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	r := newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusHealthy}, db)
	w := serve(r, http.MethodGet, "/v1/movements/count?type=arrival")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), decode(t, w)["arrival"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementCountRejectsUnknownType(t *testing.T) {
	db, _ := newMockDB(t)
	r := newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusHealthy}, db)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/v1/movements/count?type=overflight").Code)
}

func TestMovementCountRepositoryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT count").WillReturnError(errors.New("connection reset"))

	r := newRouter(t, fakeRunner{}, fakeHealth{faulttolerance.HealthStatusHealthy}, db)
	assert.Equal(t, http.StatusInternalServerError, serve(r, http.MethodGet, "/v1/movements/count").Code)
}
