package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ugaemi/fragmentia-server/internal/profile"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id TEXT PRIMARY KEY,
    nickname TEXT NOT NULL DEFAULT '',
    karma INTEGER NOT NULL DEFAULT 0,
    best_stage INTEGER NOT NULL DEFAULT -1,
    souls_saved INTEGER NOT NULL DEFAULT 0,
    has_gun BOOLEAN NOT NULL DEFAULT false,
    intel_collected BOOLEAN NOT NULL DEFAULT false,
    missions_completed INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_played_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS karma_ledger (
    id BIGSERIAL PRIMARY KEY,
    profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    delta INTEGER NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_karma_ledger_profile_id ON karma_ledger(profile_id);
`

const profileColumns = `id, nickname, karma, best_stage, souls_saved, has_gun, intel_collected,
	missions_completed, created_at, last_played_at`

// PostgresStore implements ProfileStore using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and initializes the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// FindByID looks up a profile by ID.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*profile.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// Create inserts a new profile.
func (s *PostgresStore) Create(ctx context.Context, p *profile.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Nickname, p.Karma, p.BestStage, p.SoulsSaved, p.HasGun, p.IntelCollected,
		p.MissionsCompleted, p.CreatedAt, p.LastPlayedAt)
	return err
}

// AddKarma updates the total and appends a ledger row in one transaction.
func (s *PostgresStore) AddKarma(ctx context.Context, id string, delta int, reason string) (int, error) {
	var total int
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE profiles SET karma = karma + $1 WHERE id = $2 RETURNING karma`,
			delta, id).Scan(&total)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO karma_ledger (profile_id, delta, reason) VALUES ($1, $2, $3)`,
			id, delta, reason)
		return err
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// RecordProgress merges progress without ever lowering a stored record.
func (s *PostgresStore) RecordProgress(ctx context.Context, id string, pr profile.Progress) error {
	completed := 0
	if pr.MissionComplete {
		completed = 1
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET
		    best_stage = GREATEST(best_stage, $2),
		    souls_saved = GREATEST(souls_saved, $3),
		    has_gun = has_gun OR $4,
		    intel_collected = intel_collected OR $5,
		    missions_completed = missions_completed + $6,
		    last_played_at = $7
		 WHERE id = $1`,
		id, pr.Stage, pr.SoulsSaved, pr.HasGun, pr.IntelCollected, completed, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastPlayed updates the last played timestamp.
func (s *PostgresStore) UpdateLastPlayed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE profiles SET last_played_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

// UpdateNickname updates the profile nickname.
func (s *PostgresStore) UpdateNickname(ctx context.Context, id string, nickname string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE profiles SET nickname = $1 WHERE id = $2`, nickname, id)
	return err
}

// Close releases database resources.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	var p profile.Profile
	err := row.Scan(&p.ID, &p.Nickname, &p.Karma, &p.BestStage, &p.SoulsSaved, &p.HasGun,
		&p.IntelCollected, &p.MissionsCompleted, &p.CreatedAt, &p.LastPlayedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
