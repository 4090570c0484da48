package faulttolerance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is the last known result of one named check.
type HealthCheck struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Critical  bool          `json:"critical"`
	LastCheck time.Time     `json:"last_check"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`

	checkFunc func(ctx context.Context) error
}

// HealthMonitor runs registered checks, either on demand through CheckNow or
// periodically between Start and Stop.
type HealthMonitor struct {
	checks   map[string]*HealthCheck
	mutex    sync.RWMutex
	logger   logrus.FieldLogger
	interval time.Duration
	timeout  time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(logger logrus.FieldLogger, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HealthMonitor{
		checks:   make(map[string]*HealthCheck),
		logger:   logger.WithField("component", "health"),
		interval: interval,
		timeout:  10 * time.Second,
	}
}

// AddCheck registers a check. A failing critical check makes the overall
// status unhealthy; a failing non-critical one only degrades it.
func (hm *HealthMonitor) AddCheck(name string, critical bool, checkFunc func(ctx context.Context) error) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.checks[name] = &HealthCheck{
		Name:      name,
		Status:    HealthStatusHealthy,
		Critical:  critical,
		checkFunc: checkFunc,
	}
	hm.logger.WithField("check", name).Debug("health check registered")
}

// Start runs the checks every interval until Stop.
func (hm *HealthMonitor) Start(ctx context.Context) {
	ctx, hm.cancel = context.WithCancel(ctx)
	hm.wg.Add(1)
	go func() {
		defer hm.wg.Done()

		ticker := time.NewTicker(hm.interval)
		defer ticker.Stop()

		hm.CheckNow(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hm.CheckNow(ctx)
			}
		}
	}()
}

// Stop stops the periodic checks started by Start.
func (hm *HealthMonitor) Stop() {
	if hm.cancel != nil {
		hm.cancel()
	}
	hm.wg.Wait()
}

// CheckNow runs every check concurrently and returns the overall status.
func (hm *HealthMonitor) CheckNow(ctx context.Context) HealthStatus {
	hm.mutex.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		checks = append(checks, check)
	}
	hm.mutex.RUnlock()

	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(check *HealthCheck) {
			defer wg.Done()
			hm.runCheck(ctx, check)
		}(check)
	}
	wg.Wait()

	return hm.GetOverallHealth()
}

func (hm *HealthMonitor) runCheck(ctx context.Context, check *HealthCheck) {
	if check.checkFunc == nil {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	err := check.checkFunc(ctx)
	duration := time.Since(start)

	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	check.LastCheck = start
	check.Duration = duration

	old := check.Status
	if err != nil {
		check.Status = HealthStatusUnhealthy
		check.Error = err.Error()
		if old != HealthStatusUnhealthy {
			hm.logger.WithError(err).WithField("check", check.Name).Error("health check failed")
		}
		return
	}

	check.Status = HealthStatusHealthy
	check.Error = ""
	if old != HealthStatusHealthy {
		hm.logger.WithField("check", check.Name).Info("health check recovered")
	}
}

// GetHealth returns a copy of every check, sorted by name.
func (hm *HealthMonitor) GetHealth() []HealthCheck {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	result := make([]HealthCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		c := *check
		c.checkFunc = nil
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// GetOverallHealth returns the overall health status
func (hm *HealthMonitor) GetOverallHealth() HealthStatus {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	overall := HealthStatusHealthy
	for _, check := range hm.checks {
		if check.Status != HealthStatusUnhealthy {
			continue
		}
		if check.Critical {
			return HealthStatusUnhealthy
		}
		overall = HealthStatusDegraded
	}
	return overall
}
