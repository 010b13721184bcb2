package stealth

import (
	"encoding/json"
	"math"
	"math/rand/v2"
)

type GuardState int

const (
	GuardPatrol GuardState = iota
	GuardSuspicious
	GuardAlert
	GuardStunned
)

func (s GuardState) String() string {
	switch s {
	case GuardPatrol:
		return "PATROL"
	case GuardSuspicious:
		return "SUSPICIOUS"
	case GuardAlert:
		return "ALERT"
	case GuardStunned:
		return "STUNNED"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes GuardState as a string.
func (s GuardState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

var barkLines = []string{"ALARM! ALARM!", "FREEZE!", "TARGET SPOTTED!"}

// Guard is a patrolling perception agent. Its facing is binary (+1 right,
// -1 left) and suspicion is always kept inside [0, 1].
type Guard struct {
	Index       int
	X           float64
	Y           float64
	PatrolLeft  float64
	PatrolRight float64
	PatrolDir   int
	PatrolSpeed float64
	Facing      int

	Health    int
	MaxHealth int
	Active    bool

	State       GuardState
	Suspicion   float64
	AlertTimer  float64
	StunTimer   float64
	VisionRange float64
	VisionAngle float64 // degrees, total arc

	barks []Event
}

// NewGuard creates an active patrolling guard facing right.
func NewGuard(index int, x, y, patrolLeft, patrolRight, visionRange float64) *Guard {
	return &Guard{
		Index:       index,
		X:           x,
		Y:           y,
		PatrolLeft:  patrolLeft,
		PatrolRight: patrolRight,
		PatrolDir:   1,
		PatrolSpeed: GuardPatrolSpeed,
		Facing:      1,
		Health:      GuardMaxHealth,
		MaxHealth:   GuardMaxHealth,
		Active:      true,
		State:       GuardPatrol,
		VisionRange: visionRange,
		VisionAngle: DefaultVisionAngle,
	}
}

// Update runs one frame of the guard state machine and returns the alert
// level this guard contributes.
func (g *Guard) Update(dt, px, py float64, spots []*HideSpot) AlertLevel {
	if !g.Active {
		return Undetected
	}

	if g.State == GuardStunned {
		g.StunTimer -= dt
		if g.StunTimer <= 0 {
			g.State = GuardPatrol
			g.Suspicion = 0
		}
		return Undetected
	}

	if g.State == GuardPatrol {
		g.patrol(dt)
	}

	if g.CanSee(px, py, spots) {
		g.Suspicion = clamp01(g.Suspicion + SuspicionBuildRate*dt)
	} else {
		g.Suspicion = clamp01(g.Suspicion - SuspicionDecayRate*dt)
	}

	switch {
	case g.Suspicion >= 1.0 && g.State != GuardAlert:
		g.State = GuardAlert
		g.AlertTimer = 0
		g.bark()
		return Detected
	case g.Suspicion >= SuspiciousAt && g.Suspicion < 1.0 && g.State == GuardPatrol:
		g.State = GuardSuspicious
		return Suspicious
	case g.Suspicion < SuspiciousAt && g.State == GuardSuspicious:
		g.State = GuardPatrol
	}

	if g.State == GuardAlert {
		g.chase(dt, px)
		// Hard timeout: the guard gives up even if the player is still in view.
		if g.AlertTimer > GuardAlertTimeout {
			g.State = GuardPatrol
			g.Suspicion = 0
			g.AlertTimer = 0
		}
		return Detected
	}

	if g.Suspicion < SuspiciousAt {
		return Undetected
	}
	return Suspicious
}

func (g *Guard) patrol(dt float64) {
	g.X += float64(g.PatrolDir) * g.PatrolSpeed * dt
	if g.X >= g.PatrolRight {
		g.X = g.PatrolRight
		g.PatrolDir = -1
		g.Facing = -1
	} else if g.X <= g.PatrolLeft {
		g.X = g.PatrolLeft
		g.PatrolDir = 1
		g.Facing = 1
	}
}

func (g *Guard) chase(dt, px float64) {
	g.AlertTimer += dt
	dx := px - g.X
	if math.Abs(dx) <= GuardChaseDeadzone {
		return
	}
	dir := 1
	if dx < 0 {
		dir = -1
	}
	g.X += float64(dir) * g.PatrolSpeed * GuardChaseFactor * dt
	g.Facing = dir
}

// CanSee reports whether the player is within range and inside the arc
// around the guard's facing direction, and not hidden.
func (g *Guard) CanSee(px, py float64, spots []*HideSpot) bool {
	if occluded(px, py, spots) {
		return false
	}

	dx := px - g.X
	dy := py - g.Y
	if math.Sqrt(dx*dx+dy*dy) > g.VisionRange {
		return false
	}

	heading := 0.0
	if g.Facing < 0 {
		heading = math.Pi
	}
	diff := math.Abs(normalizeAngle(math.Atan2(dy, dx) - heading))
	return diff <= degToRad(g.VisionAngle/2)
}

func (g *Guard) bark() {
	g.barks = append(g.barks, GuardBarkEvent{
		GuardIndex: g.Index,
		Text:       barkLines[rand.IntN(len(barkLines))],
		X:          g.X,
		Y:          g.Y - GuardBarkOffsetY,
	})
}

// TakeDamage applies a hit. Non-lethal hits always stun, regardless of
// health. Lethal hits subtract health. Returns true when the guard was
// deactivated by this hit.
func (g *Guard) TakeDamage(amount int, lethal bool) bool {
	if !g.Active {
		return false
	}
	if !lethal {
		g.State = GuardStunned
		g.StunTimer = GuardStunDuration
		g.Suspicion = 0
		return false
	}
	g.Health -= amount
	if g.Health <= 0 {
		g.Active = false
		return true
	}
	return false
}

// IsBehind reports whether the player at px stands on the side the guard
// is not facing.
func (g *Guard) IsBehind(px float64) bool {
	dx := px - g.X
	return (g.Facing > 0 && dx < 0) || (g.Facing < 0 && dx > 0)
}

// StealthKill attempts a silent takedown and deactivates the guard
// permanently on success.
func (g *Guard) StealthKill(px, py, reach float64) bool {
	if !g.Active {
		return false
	}
	if g.State == GuardAlert || g.State == GuardStunned {
		return false
	}
	if g.Suspicion >= MaxKillSuspicion {
		return false
	}
	if Distance(px, py, g.X, g.Y) > reach {
		return false
	}
	if !g.IsBehind(px) {
		return false
	}
	g.Active = false
	g.Health = 0
	return true
}

// Perceive implements Perceiver.
func (g *Guard) Perceive(dt, px, py float64, spots []*HideSpot) AlertLevel {
	return g.Update(dt, px, py, spots)
}

// DrainEvents implements Perceiver and empties the bark queue.
func (g *Guard) DrainEvents() []Event {
	if len(g.barks) == 0 {
		return nil
	}
	out := g.barks
	g.barks = nil
	return out
}
