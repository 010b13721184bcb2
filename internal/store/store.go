package store

import (
	"context"
	"errors"

	"github.com/ugaemi/fragmentia-server/internal/profile"
)

// ErrNotFound is returned by mutations on a profile that does not exist.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("profile not found")

// ProfileStore defines the interface for persistent profile storage.
type ProfileStore interface {
	// FindByID looks up a profile by ID.
	FindByID(ctx context.Context, id string) (*profile.Profile, error)
	// Create inserts a new profile.
	Create(ctx context.Context, p *profile.Profile) error
	// AddKarma applies delta to the karma total, records it in the ledger
	// with reason, and returns the new total.
	AddKarma(ctx context.Context, id string, delta int, reason string) (int, error)
	// RecordProgress merges a run's progress into the profile.
	RecordProgress(ctx context.Context, id string, pr profile.Progress) error
	// UpdateLastPlayed updates the last played timestamp.
	UpdateLastPlayed(ctx context.Context, id string) error
	// UpdateNickname updates the profile nickname.
	UpdateNickname(ctx context.Context, id string, nickname string) error
	// Close releases storage resources.
	Close() error
}
