package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckState is the outcome of one health check, or the aggregate of all
// of them.
type CheckState string

const (
	StateHealthy   CheckState = "healthy"
	StateDegraded  CheckState = "degraded"
	StateUnhealthy CheckState = "unhealthy"
)

// HealthCheck probes one dependency. A failing critical check takes the
// whole service to unhealthy; a failing non-critical one only degrades it.
type HealthCheck struct {
	Name      string
	CheckFunc func(context.Context) error
	Timeout   time.Duration
	Critical  bool
}

// HealthChecker runs registered checks on demand.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]*HealthCheck
}

// HealthReport is the JSON body served on /health.
type HealthReport struct {
	Status    CheckState             `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult is one check's outcome inside a HealthReport.
type CheckResult struct {
	Status   CheckState `json:"status"`
	Message  string     `json:"message,omitempty"`
	Duration string     `json:"duration"`
}

var (
	globalChecker  *HealthChecker
	initHealthOnce sync.Once
)

// InitHealthChecker returns the process-wide checker, creating it on the
// first call.
func InitHealthChecker() *HealthChecker {
	initHealthOnce.Do(func() {
		globalChecker = &HealthChecker{checks: make(map[string]*HealthCheck)}
	})
	return globalChecker
}

// RegisterCheck adds a check. A zero timeout defaults to 5 seconds.
func (hc *HealthChecker) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = 5 * time.Second
	}
	hc.mu.Lock()
	hc.checks[check.Name] = check
	hc.mu.Unlock()
}

// Check runs every registered check and aggregates the worst outcome.
func (hc *HealthChecker) Check(ctx context.Context) HealthReport {
	hc.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hc.checks))
	for _, c := range hc.checks {
		checks = append(checks, c)
	}
	hc.mu.RUnlock()

	report := HealthReport{
		Status:    StateHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}
	for _, check := range checks {
		result := runCheck(ctx, check)
		report.Checks[check.Name] = result
		switch {
		case result.Status == StateUnhealthy:
			report.Status = StateUnhealthy
		case result.Status == StateDegraded && report.Status == StateHealthy:
			report.Status = StateDegraded
		}
	}
	return report
}

func runCheck(ctx context.Context, check *HealthCheck) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	start := time.Now()
	errChan := make(chan error, 1)
	go func() { errChan <- check.CheckFunc(ctx) }()

	var err error
	select {
	case err = <-errChan:
	case <-ctx.Done():
		err = ctx.Err()
	}

	result := CheckResult{Status: StateHealthy, Duration: time.Since(start).String()}
	if err != nil {
		result.Message = err.Error()
		result.Status = StateDegraded
		if check.Critical {
			result.Status = StateUnhealthy
		}
	}
	return result
}

// HealthHandler serves the full health report. Degraded still answers 200
// so partial outages do not pull the daemon out of rotation.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := InitHealthChecker().Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StateUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// LivenessHandler reports that the process is up, nothing more.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadinessHandler answers 200 only when every check passes.
func ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := InitHealthChecker().Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		status := "ready"
		if report.Status != StateHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			status = "not ready"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

// PingCheck is a trivial always-passing check.
func PingCheck() *HealthCheck {
	return &HealthCheck{
		Name:      "ping",
		CheckFunc: func(ctx context.Context) error { return nil },
		Timeout:   time.Second,
	}
}

// StoreCheck reports whether the conversation store is reachable.
func StoreCheck(pingFunc func(context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:      "store",
		CheckFunc: pingFunc,
		Timeout:   5 * time.Second,
		Critical:  true,
	}
}

// ProviderCheck probes connectivity to an upstream model provider. Not
// critical: the daemon keeps serving open sessions while a provider is
// down.
func ProviderCheck(name string, checkFunc func(context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:      name,
		CheckFunc: checkFunc,
		Timeout:   10 * time.Second,
	}
}
