package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brettbedarf/sandboxfs/config"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"github.com/puzpuzpuz/xsync/v4"
)

var ErrTooManySessions = errors.New("too many sessions")

// Manager holds many isolated sessions keyed by ID, e.g. behind a network gateway.
type Manager struct {
	cfg      *config.Config
	sessions *xsync.Map[string, *Session]
	createMu sync.Mutex // serializes the capacity check with the insert
	now      func() time.Time
	seed     *filesystem.SnapshotNode // nil = builtin seed tree
	hooks    []func(*Session)
	logger   util.Logger
}

type ManagerOption func(*Manager)

// OnCreate runs fn for every new session before it is handed out
func OnCreate(fn func(*Session)) ManagerOption {
	return func(m *Manager) { m.hooks = append(m.hooks, fn) }
}

// WithSeed starts every new session from its own copy of seed
func WithSeed(seed *filesystem.SnapshotNode) ManagerOption {
	return func(m *Manager) { m.seed = seed }
}

// WithManagerClock sets the time source for new sessions and sweeping
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(cfg *config.Config, opts ...ManagerOption) *Manager {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	m := &Manager{
		cfg:      cfg,
		sessions: xsync.NewMap[string, *Session](),
		now:      time.Now,
		logger:   util.GetLogger("SessionManager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session over a fresh seed tree
func (m *Manager) Create() (*Session, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	if m.cfg.MaxSessions > 0 && m.sessions.Size() >= m.cfg.MaxSessions {
		m.logger.Warn().Int("max", m.cfg.MaxSessions).Msg("Session limit reached")
		return nil, ErrTooManySessions
	}
	opts := []Option{WithClock(m.now)}
	if m.seed != nil {
		fsys, err := filesystem.NewFSFromSnapshot(m.seed)
		if err != nil {
			return nil, fmt.Errorf("invalid seed: %w", err)
		}
		opts = append(opts, WithFileSystem(fsys))
	}
	s := New(m.cfg, opts...)
	for _, hook := range m.hooks {
		hook(s)
	}
	m.sessions.Store(s.ID(), s)
	m.logger.Info().Str("session", s.ID()).Int("active", m.sessions.Size()).Msg("Created session")
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	return m.sessions.Load(id)
}

// Delete discards a session and its tree; false if it did not exist
func (m *Manager) Delete(id string) bool {
	if _, ok := m.sessions.LoadAndDelete(id); ok {
		m.logger.Info().Str("session", id).Msg("Deleted session")
		return true
	}
	return false
}

func (m *Manager) Len() int {
	return m.sessions.Size()
}

// Sweep evicts sessions idle longer than the configured timeout and returns
// how many were removed. It is a no-op when the timeout is 0.
func (m *Manager) Sweep(now time.Time) int {
	timeout := m.cfg.SessionIdleTimeout
	if timeout <= 0 {
		return 0
	}
	evicted := 0
	m.sessions.Range(func(id string, s *Session) bool {
		if now.Sub(s.LastActive()) <= timeout {
			return true
		}
		// re-check under the bucket lock; a concurrent Submit keeps the session
		m.sessions.Compute(id, func(cur *Session, loaded bool) (*Session, xsync.ComputeOp) {
			if !loaded || now.Sub(cur.LastActive()) <= timeout {
				return cur, xsync.CancelOp
			}
			evicted++
			return nil, xsync.DeleteOp
		})
		return true
	})
	if evicted > 0 {
		m.logger.Info().Int("evicted", evicted).Int("active", m.sessions.Size()).Msg("Evicted idle sessions")
	}
	return evicted
}

// Run sweeps idle sessions periodically until ctx is done
func (m *Manager) Run(ctx context.Context) {
	timeout := m.cfg.SessionIdleTimeout
	if timeout <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(max(timeout/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}
