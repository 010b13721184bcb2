package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ugaemi/fragmentia-server/internal/profile"
)

func TestMemoryStore_CreateAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p := profile.NewProfile("neo")
	require.NoError(t, s.Create(ctx, p))
	assert.Error(t, s.Create(ctx, p), "duplicate id")

	found, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "neo", found.Nickname)

	// Returned profiles are copies.
	found.Karma = 99
	again, _ := s.FindByID(ctx, p.ID)
	assert.Zero(t, again.Karma)

	missing, err := s.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_AddKarma(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p := profile.NewProfile("k")
	require.NoError(t, s.Create(ctx, p))

	tests := []struct {
		delta  int
		reason string
		want   int
	}{
		{5, "choice:gate_entry:B", 5},
		{1, "stealth_streak", 6},
		{-10, "stealth_kill", -4},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			total, err := s.AddKarma(ctx, p.ID, tt.delta, tt.reason)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}

	ledger := s.Ledger(p.ID)
	require.Len(t, ledger, 3)
	assert.Equal(t, "stealth_kill", ledger[2].Reason)

	_, err := s.AddKarma(ctx, "ghost", 1, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_AddKarmaConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p := profile.NewProfile("c")
	require.NoError(t, s.Create(ctx, p))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddKarma(ctx, p.ID, 1, "stealth_streak")
		}()
	}
	wg.Wait()

	found, _ := s.FindByID(ctx, p.ID)
	assert.Equal(t, 50, found.Karma)
	assert.Len(t, s.Ledger(p.ID), 50)
}

func TestMemoryStore_RecordProgress(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p := profile.NewProfile("r")
	require.NoError(t, s.Create(ctx, p))

	require.NoError(t, s.RecordProgress(ctx, p.ID, profile.Progress{Stage: 5, HasGun: true}))
	require.NoError(t, s.RecordProgress(ctx, p.ID, profile.Progress{Stage: 3}))

	found, _ := s.FindByID(ctx, p.ID)
	assert.Equal(t, 5, found.BestStage)
	assert.True(t, found.HasGun)

	assert.ErrorIs(t, s.RecordProgress(ctx, "ghost", profile.Progress{}), ErrNotFound)
}

func TestMemoryStore_UpdateNickname(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p := profile.NewProfile("old")
	require.NoError(t, s.Create(ctx, p))

	require.NoError(t, s.UpdateNickname(ctx, p.ID, "new"))
	require.NoError(t, s.UpdateLastPlayed(ctx, p.ID))

	found, _ := s.FindByID(ctx, p.ID)
	assert.Equal(t, "new", found.Nickname)
	assert.False(t, found.LastPlayedAt.Before(p.LastPlayedAt))
}
