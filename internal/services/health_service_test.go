package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/session"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts"
)

type fakeCounter struct{ n int }

func (f *fakeCounter) ClientCount() int { return f.n }

func newTestHealthService(t *testing.T) *HealthService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(config.SessionConfig{
		TTL:           time.Hour,
		SweepInterval: time.Minute,
	}, logger)
	return NewHealthService(store, &fakeCounter{n: 3}, logger)
}

func TestHealthCheck(t *testing.T) {
	h := newTestHealthService(t)

	status := h.HealthCheck(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, contracts.Version, status.Version)
	assert.False(t, status.Timestamp.IsZero())
}

func TestReadinessCheck(t *testing.T) {
	h := newTestHealthService(t)

	status := h.ReadinessCheck(context.Background())
	assert.Equal(t, "ready", status.Status)

	require.Contains(t, status.Services, "sessions")
	assert.Equal(t, "ok", status.Services["sessions"].Status)
	assert.Equal(t, "0 active sessions", status.Services["sessions"].Message)

	require.Contains(t, status.Services, "websocket")
	assert.Equal(t, "ok", status.Services["websocket"].Status)
	assert.Equal(t, "3 connected clients", status.Services["websocket"].Message)
}

func TestReadinessCheck_Degraded(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHealthService(nil, nil, logger)

	status := h.ReadinessCheck(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unavailable", status.Services["sessions"].Status)
	assert.Equal(t, "unavailable", status.Services["websocket"].Status)
}

func TestLivenessCheck(t *testing.T) {
	h := newTestHealthService(t)

	status := h.LivenessCheck(context.Background())
	assert.Equal(t, "alive", status.Status)
	assert.Contains(t, status.Runtime, "uptime")
	assert.Contains(t, status.Runtime, "go_version")
	assert.Contains(t, status.Runtime, "goroutines")
}

func TestVersion(t *testing.T) {
	h := newTestHealthService(t)

	info := h.Version()
	assert.Equal(t, contracts.Version, info["version"])
	assert.Equal(t, contracts.APIVersion, info["api_version"])
	assert.Contains(t, info, "go_version")
	assert.Contains(t, info, "uptime")
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "1 active session", formatCount(1, "active session"))
	assert.Equal(t, "2 active sessions", formatCount(2, "active session"))
	assert.Equal(t, "0 connected clients", formatCount(0, "connected client"))
}
