package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// Store is the in-memory session registry. Sessions expire after the
// configured idle TTL; nothing is ever written to disk.
type Store struct {
	logger *slog.Logger
	ttl    time.Duration
	sweep  time.Duration
	max    int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a session store from the session configuration
func NewStore(cfg config.SessionConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:   logger.With(slog.String("component", "session_store")),
		ttl:      cfg.TTL,
		sweep:    cfg.SweepInterval,
		max:      cfg.MaxSessions,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session over the loaded datasets
func (st *Store) Create(datasets []domain.Dataset, catalog []string, uploadDiags []domain.Diagnostic) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.max > 0 && len(st.sessions) >= st.max {
		st.logger.Warn("session store full",
			slog.Int("sessions", len(st.sessions)),
			slog.Int("max", st.max))
		return nil, fmt.Errorf("%w: %d active", ErrStoreFull, len(st.sessions))
	}

	s := New(uuid.New().String(), datasets, catalog, uploadDiags)
	st.sessions[s.ID] = s

	st.logger.Info("session created",
		slog.String("session_id", s.ID),
		slog.Int("datasets", len(datasets)),
		slog.Int("active_sessions", len(st.sessions)))
	return s, nil
}

// Get returns a live session and refreshes its idle timer
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Touch()
	return s, nil
}

// Delete removes a session
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(st.sessions, id)

	st.logger.Info("session deleted",
		slog.String("session_id", id),
		slog.Int("active_sessions", len(st.sessions)))
	return nil
}

// Count reports the number of live sessions
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Run sweeps expired sessions until the context is cancelled. Call it
// from a dedicated goroutine.
func (st *Store) Run(ctx context.Context) {
	interval := st.sweep
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	st.logger.Info("session sweeper started",
		slog.Duration("interval", interval),
		slog.Duration("ttl", st.ttl))

	for {
		select {
		case <-ctx.Done():
			st.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			st.Sweep(time.Now().UTC())
		}
	}
}

// Sweep evicts sessions idle longer than the TTL and returns how many
// were removed
func (st *Store) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	evicted := 0
	for id, s := range st.sessions {
		if now.Sub(s.LastActive()) > st.ttl {
			delete(st.sessions, id)
			evicted++
			st.logger.Info("session expired",
				slog.String("session_id", id),
				slog.Time("last_active", s.LastActive()))
		}
	}
	return evicted
}
