package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ugaemi/fragmentia-server/internal/profile"
)

// LedgerEntry is one recorded karma change.
type LedgerEntry struct {
	ProfileID string
	Delta     int
	Reason    string
	At        time.Time
}

// MemoryStore implements ProfileStore in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
	ledger   []LedgerEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]profile.Profile)}
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) Create(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return fmt.Errorf("profile %s already exists", p.ID)
	}
	s.profiles[p.ID] = *p
	return nil
}

func (s *MemoryStore) AddKarma(_ context.Context, id string, delta int, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return 0, ErrNotFound
	}
	p.Karma += delta
	s.profiles[id] = p
	s.ledger = append(s.ledger, LedgerEntry{ProfileID: id, Delta: delta, Reason: reason, At: time.Now()})
	return p.Karma, nil
}

func (s *MemoryStore) RecordProgress(_ context.Context, id string, pr profile.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.Merge(pr)
	p.LastPlayedAt = time.Now()
	s.profiles[id] = p
	return nil
}

func (s *MemoryStore) UpdateLastPlayed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		p.LastPlayedAt = time.Now()
		s.profiles[id] = p
	}
	return nil
}

func (s *MemoryStore) UpdateNickname(_ context.Context, id string, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		p.Nickname = nickname
		s.profiles[id] = p
	}
	return nil
}

// Ledger returns the karma changes recorded for id, oldest first.
func (s *MemoryStore) Ledger(id string) []LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LedgerEntry
	for _, e := range s.ledger {
		if e.ProfileID == id {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemoryStore) Close() error { return nil }

var (
	_ ProfileStore = (*MemoryStore)(nil)
	_ ProfileStore = (*PostgresStore)(nil)
)
