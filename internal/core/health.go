package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
)

// HealthChecker provides health check functionality
type HealthChecker struct {
	providers []model.Provider
	sinks     []model.Sink
	mu        sync.RWMutex
	status    HealthStatus
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Status      string        `json:"status"` // "pass", "fail", "warn"
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration_ms"`
	LastChecked time.Time     `json:"last_checked"`
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(providers []model.Provider, sinks []model.Sink) *HealthChecker {
	return &HealthChecker{
		providers: providers,
		sinks:     sinks,
		status: HealthStatus{
			Status: "healthy",
			Checks: make(map[string]CheckResult),
		},
	}
}

// CheckHealth performs all health checks
func (h *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	checks := make(map[string]CheckResult)

	for _, provider := range h.providers {
		checks[fmt.Sprintf("provider_%s", provider.Info().Name)] = h.checkProvider(ctx, provider)
	}

	for _, sink := range h.sinks {
		checks[fmt.Sprintf("sink_%s", sink.Info().Name)] = h.checkSink(ctx, sink)
	}

	// Determine overall status
	overallStatus := "healthy"
	for _, check := range checks {
		if check.Status == "fail" {
			overallStatus = "unhealthy"
			break
		} else if check.Status == "warn" {
			overallStatus = "degraded"
		}
	}

	h.status = HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
	}

	return h.status
}

// GetStatus returns the current health status
func (h *HealthChecker) GetStatus() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// checkProvider performs a health check on a provider
func (h *HealthChecker) checkProvider(ctx context.Context, provider model.Provider) CheckResult {
	start := time.Now()

	auth := provider.Auth()
	if !auth.IsTokenValid(ctx) {
		if err := auth.RefreshToken(ctx); err != nil {
			return CheckResult{
				Status:      "fail",
				Message:     fmt.Sprintf("Authentication failed: %v", err),
				Duration:    time.Since(start),
				LastChecked: time.Now(),
			}
		}
	}

	// Basic connectivity: the device list round-trip
	if _, err := provider.ListDevices(ctx); err != nil {
		return CheckResult{
			Status:      "warn",
			Message:     fmt.Sprintf("Provider connectivity issue: %v", err),
			Duration:    time.Since(start),
			LastChecked: time.Now(),
		}
	}

	return CheckResult{
		Status:      "pass",
		Message:     "Provider is healthy",
		Duration:    time.Since(start),
		LastChecked: time.Now(),
	}
}

// checkSink performs a health check on a sink. Sinks verify their own
// connectivity at Open time, so a configured sink counts as healthy.
func (h *HealthChecker) checkSink(ctx context.Context, sink model.Sink) CheckResult {
	start := time.Now()

	return CheckResult{
		Status:      "pass",
		Message:     "Sink is healthy",
		Duration:    time.Since(start),
		LastChecked: time.Now(),
	}
}

// ServeHealth provides an HTTP handler for health checks
func (h *HealthChecker) ServeHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := h.CheckHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		// Headers already sent; nothing useful left to do on error.
		_ = json.NewEncoder(w).Encode(status)
	})
}
