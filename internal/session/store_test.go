package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

func newTestStore(maxSessions int, ttl time.Duration) *Store {
	cfg := config.SessionConfig{
		TTL:           ttl,
		MaxSessions:   maxSessions,
		SweepInterval: time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(cfg, logger)
}

func TestStore_CreateAndGet(t *testing.T) {
	st := newTestStore(8, time.Hour)

	s, err := st.Create(testDatasets(), []string{"t", "v1"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, st.Count())

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = st.Get("no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	st := newTestStore(8, time.Hour)

	s, err := st.Create(testDatasets(), nil, nil)
	require.NoError(t, err)

	require.NoError(t, st.Delete(s.ID))
	assert.Equal(t, 0, st.Count())

	assert.ErrorIs(t, st.Delete(s.ID), ErrNotFound)
}

func TestStore_MaxSessions(t *testing.T) {
	st := newTestStore(2, time.Hour)

	_, err := st.Create(testDatasets(), nil, nil)
	require.NoError(t, err)
	_, err = st.Create(testDatasets(), nil, nil)
	require.NoError(t, err)

	_, err = st.Create(testDatasets(), nil, nil)
	assert.ErrorIs(t, err, ErrStoreFull)
	assert.Equal(t, 2, st.Count())
}

func TestStore_SweepEvictsIdleSessions(t *testing.T) {
	st := newTestStore(8, 30*time.Minute)

	idle, err := st.Create(testDatasets(), nil, nil)
	require.NoError(t, err)
	fresh, err := st.Create(testDatasets(), nil, nil)
	require.NoError(t, err)

	idle.mu.Lock()
	idle.lastActive = time.Now().UTC().Add(-time.Hour)
	idle.mu.Unlock()

	evicted := st.Sweep(time.Now().UTC())
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, st.Count())

	_, err = st.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestStore_GetRefreshesIdleTimer(t *testing.T) {
	st := newTestStore(8, 30*time.Minute)

	s, err := st.Create(testDatasets(), nil, nil)
	require.NoError(t, err)

	s.mu.Lock()
	s.lastActive = time.Now().UTC().Add(-time.Hour)
	s.mu.Unlock()

	_, err = st.Get(s.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, st.Sweep(time.Now().UTC()))
	assert.Equal(t, 1, st.Count())
}

func TestStore_RunStopsOnCancel(t *testing.T) {
	st := newTestStore(8, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	st := newTestStore(64, time.Hour)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			s, err := st.Create(testDatasets(), []string{"t", "v1", "v2"}, nil)
			if err != nil {
				return err
			}
			if _, err := st.Get(s.ID); err != nil {
				return err
			}
			if _, err := s.UpdateSpec(0, domain.FieldYColumn, "v2"); err != nil {
				return err
			}
			return st.Delete(s.ID)
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 0, st.Count())
}
