package service

import (
	"context"

	"github.com/navid-fn/skywatch/internal/faulttolerance"
	"github.com/navid-fn/skywatch/internal/ingester"
)

// Runner executes one ingestion run.
type Runner interface {
	RunOnce(ctx context.Context) (ingester.Result, error)
}

// HealthChecker reports the health of the collector's dependencies.
type HealthChecker interface {
	CheckNow(ctx context.Context) faulttolerance.HealthStatus
	GetHealth() []faulttolerance.HealthCheck
}

type CollectService struct {
	runner Runner
	health HealthChecker
}

func NewCollectService(runner Runner, health HealthChecker) *CollectService {
	return &CollectService{
		runner: runner,
		health: health,
	}
}

func (s *CollectService) Collect(ctx context.Context) (ingester.Result, error) {
	return s.runner.RunOnce(ctx)
}

// Health runs every check and returns the overall status with the details.
func (s *CollectService) Health(ctx context.Context) (faulttolerance.HealthStatus, []faulttolerance.HealthCheck) {
	status := s.health.CheckNow(ctx)
	return status, s.health.GetHealth()
}
