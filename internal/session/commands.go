package session

import (
	"github.com/ugaemi/fragmentia-server/internal/mission"
	"github.com/ugaemi/fragmentia-server/internal/stealth"
)

// Pilot commands. Each runs under the session lock between frames; events
// they queue are relayed by the next Step.

// Move sets the player position.
func (s *Session) Move(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x, s.y = x, y
}

// AddScore adds points earned outside the stealth and mission engines.
func (s *Session) AddScore(points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score += points
}

// ChangeLevel rebuilds the stealth layout for level.
func (s *Session) ChangeLevel(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setupLevel(level)
}

// Caller must hold s.mu.
func (s *Session) setupLevel(level int) {
	s.stealth.SetupLevel(level)
	s.level = level
	s.hadGuards = len(s.stealth.Guards()) > 0
	s.mission.SetCombatCleared(false)
}

// StealthKill attempts a silent takedown from the player's position. A kill
// costs karma and earns score.
func (s *Session) StealthKill() stealth.KillResult {
	s.mu.Lock()
	res := s.stealth.TryStealthKill(s.x, s.y, stealth.DefaultKillReach)
	fx := effects{profileID: s.ProfileID}
	if res.Success {
		s.score += StealthKillScore
		s.queueKarma(&fx, StealthKillKarma, "stealth_kill")
	}
	s.mu.Unlock()

	s.apply(fx)
	return res
}

// HitGuard applies a hit to guard idx. Returns true when the guard died.
func (s *Session) HitGuard(idx, damage int, lethal bool) bool {
	s.mu.Lock()
	killed := s.stealth.HitGuard(idx, damage, lethal)
	fx := effects{profileID: s.ProfileID}
	if killed {
		s.queueKarma(&fx, GuardKillKarma, "guard_killed")
	}
	s.mu.Unlock()

	s.apply(fx)
	return killed
}

// CompleteObjective marks an objective of the active stage as done.
func (s *Session) CompleteObjective(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mission.CompleteObjective(id)
}

// TriggerChoice surfaces a choice of the active stage.
func (s *Session) TriggerChoice(id string) (mission.KarmaChoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mission.TriggerChoice(id)
}

// ResolveChoice picks an option of the pending choice and credits its karma
// to the pilot's profile. Returns the delta.
func (s *Session) ResolveChoice(id string, opt mission.Option) int {
	s.mu.Lock()
	delta := s.mission.ResolveChoice(id, opt)
	fx := effects{profileID: s.ProfileID}
	s.queueKarma(&fx, delta, "choice:"+id+":"+string(opt))
	s.mu.Unlock()

	s.apply(fx)
	return delta
}

// SetFlag sets a mission flag such as combat_cleared or area_<name>.
func (s *Session) SetFlag(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mission.SetFlag(key, value)
}

// IntelPickup records the intel tablet.
func (s *Session) IntelPickup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mission.IntelPickup()
}

// ChoicePending reports whether the mission is waiting on a choice.
func (s *Session) ChoicePending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mission.ChoicePending()
}
