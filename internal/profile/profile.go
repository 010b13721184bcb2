package profile

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNicknameLength = 24

// Profile is a persistent player record. It owns the karma total; the
// mission engine only reports deltas.
type Profile struct {
	ID                string    `json:"id"`
	Nickname          string    `json:"nickname"`
	Karma             int       `json:"karma"`
	BestStage         int       `json:"best_stage"`
	SoulsSaved        int       `json:"souls_saved"`
	HasGun            bool      `json:"has_gun"`
	IntelCollected    bool      `json:"intel_collected"`
	MissionsCompleted int       `json:"missions_completed"`
	CreatedAt         time.Time `json:"created_at"`
	LastPlayedAt      time.Time `json:"last_played_at"`
}

// Progress is the per-run state merged into a profile. Merging never loses
// ground: BestStage and SoulsSaved keep their maximum, flags stay set.
type Progress struct {
	Stage           int  `json:"stage"`
	SoulsSaved      int  `json:"souls_saved"`
	HasGun          bool `json:"has_gun"`
	IntelCollected  bool `json:"intel_collected"`
	MissionComplete bool `json:"mission_complete"`
}

// NewProfile creates a profile with a fresh id and zero karma.
func NewProfile(nickname string) *Profile {
	now := time.Now()
	return &Profile{
		ID:           uuid.New().String(),
		Nickname:     NormalizeNickname(nickname),
		BestStage:    -1,
		CreatedAt:    now,
		LastPlayedAt: now,
	}
}

// NormalizeNickname trims whitespace and caps the length. Empty names
// become "AGENT".
func NormalizeNickname(nickname string) string {
	n := strings.TrimSpace(nickname)
	if n == "" {
		return "AGENT"
	}
	if r := []rune(n); len(r) > maxNicknameLength {
		n = string(r[:maxNicknameLength])
	}
	return n
}

// Merge folds a run's progress into the profile.
func (p *Profile) Merge(pr Progress) {
	if pr.Stage > p.BestStage {
		p.BestStage = pr.Stage
	}
	if pr.SoulsSaved > p.SoulsSaved {
		p.SoulsSaved = pr.SoulsSaved
	}
	p.HasGun = p.HasGun || pr.HasGun
	p.IntelCollected = p.IntelCollected || pr.IntelCollected
	if pr.MissionComplete {
		p.MissionsCompleted++
	}
}
