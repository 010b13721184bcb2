package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager manages all live sessions.
type Manager struct {
	opts     Options
	sessions map[string]*Session // code -> session
	mu       sync.RWMutex
}

// NewManager creates a session manager. Every session it creates shares opts.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create creates a new session with a fresh join code. The session is not
// started.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]bool, len(m.sessions))
	for code := range m.sessions {
		existing[code] = true
	}

	code := GenerateCode(existing)
	s := New(code, m.opts)
	m.sessions[code] = s

	slog.Info("session created", "code", code, "id", s.ID)
	return s
}

// Get returns a session by its code.
func (m *Manager) Get(code string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[NormalizeCode(code)]
}

// Remove stops and forgets a session. With discard the cached snapshot is
// dropped too; otherwise it stays readable until it expires.
func (m *Manager) Remove(code string, discard bool) {
	m.mu.Lock()
	s, ok := m.sessions[code]
	delete(m.sessions, code)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Stop()
	if discard && m.opts.Cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := m.opts.Cache.Delete(ctx, code); err != nil {
			slog.Warn("snapshot delete failed", "code", code, "error", err)
		}
	}
	slog.Info("session removed", "code", code)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// FindByClientID finds the session a client is attached to.
func (m *Manager) FindByClientID(clientID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.HasClient(clientID) {
			return s
		}
	}
	return nil
}

// LoadSnapshot returns the cached snapshot of a session, or nil.
func (m *Manager) LoadSnapshot(ctx context.Context, code string) ([]byte, error) {
	if m.opts.Cache == nil {
		return nil, nil
	}
	return m.opts.Cache.Load(ctx, NormalizeCode(code))
}

// StopAll halts every session loop.
func (m *Manager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.Stop()
	}
}
