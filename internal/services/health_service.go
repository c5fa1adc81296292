package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/session"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts"
)

// ClientCounter reports how many dashboard clients are connected.
// The websocket hub satisfies this.
type ClientCounter interface {
	ClientCount() int
}

// HealthService aggregates component health for the health endpoints.
type HealthService struct {
	store     *session.Store
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service watching the session store
// and the websocket hub. Either dependency may be nil; the corresponding
// check reports degraded instead of failing.
func NewHealthService(store *session.Store, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:     store,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthStatus is the response body for the health endpoints.
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth describes one component inside a HealthStatus.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// HealthCheck reports overall process health.
func (h *HealthService) HealthCheck(ctx context.Context) *HealthStatus {
	return &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports whether the server can accept new sessions.
// It stays "ready" while every component check passes.
func (h *HealthService) ReadinessCheck(ctx context.Context) *HealthStatus {
	checks := map[string]ServiceHealth{
		"sessions":  h.checkSessions(),
		"websocket": h.checkWebSocket(),
	}

	status := "ready"
	for name, check := range checks {
		if check.Status != "ok" {
			status = "degraded"
			h.logger.WarnContext(ctx, "readiness check degraded",
				slog.String("check", name),
				slog.String("message", check.Message))
		}
	}

	return &HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Services:  checks,
	}
}

// LivenessCheck reports process vitals for orchestration probes.
func (h *HealthService) LivenessCheck(ctx context.Context) *HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":       time.Since(h.startTime).String(),
			"go_version":   runtime.Version(),
			"goroutines":   runtime.NumGoroutine(),
			"memory_alloc": mem.Alloc,
			"num_cpu":      runtime.NumCPU(),
		},
	}
}

// Version returns build identity for the version endpoint.
func (h *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":     info.Version,
		"api_version": info.APIVersion,
		"build_time":  info.BuildTime,
		"git_commit":  info.GitCommit,
		"go_version":  info.GoVersion,
		"os":          info.OS,
		"arch":        info.Architecture,
		"uptime":      time.Since(h.startTime).String(),
	}
}

func (h *HealthService) checkSessions() ServiceHealth {
	if h.store == nil {
		return ServiceHealth{Status: "unavailable", Message: "session store not configured"}
	}
	return ServiceHealth{
		Status:  "ok",
		Message: formatCount(h.store.Count(), "active session"),
		Uptime:  time.Since(h.startTime).String(),
	}
}

func (h *HealthService) checkWebSocket() ServiceHealth {
	if h.hub == nil {
		return ServiceHealth{Status: "unavailable", Message: "event hub not configured"}
	}
	return ServiceHealth{
		Status:  "ok",
		Message: formatCount(h.hub.ClientCount(), "connected client"),
	}
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
