package stealth

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard() *Guard {
	return NewGuard(0, 500, 960, 300, 800, DefaultVisionRange)
}

func TestGuardCanSee(t *testing.T) {
	tests := []struct {
		name     string
		facing   int
		px, py   float64
		spots    []*HideSpot
		expected bool
	}{
		{"in front", 1, 600, 960, nil, true},
		{"behind", 1, 400, 960, nil, false},
		{"behind when facing left", -1, 600, 960, nil, false},
		{"in front when facing left", -1, 400, 960, nil, true},
		{"beyond range", 1, 900, 960, nil, false},
		{"inside half angle", 1, 700, 1000, nil, true},
		{"outside half angle", 1, 600, 1060, nil, false},
		{"occupied hide spot", 1, 600, 960, []*HideSpot{{X: 560, Y: 900, Width: 80, Height: 100, Occupied: true}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard()
			g.Facing = tt.facing
			assert.Equal(t, tt.expected, g.CanSee(tt.px, tt.py, tt.spots))
		})
	}
}

func TestGuardPatrolReversesAtBounds(t *testing.T) {
	g := newTestGuard()
	g.X = 795

	g.Update(0.1, 0, 5000, nil)
	assert.InDelta(t, 800.0, g.X, 0.001)
	assert.Equal(t, -1, g.PatrolDir)
	assert.Equal(t, -1, g.Facing)

	g.X = 305
	g.Update(0.1, 0, 5000, nil)
	assert.InDelta(t, 300.0, g.X, 0.001)
	assert.Equal(t, 1, g.PatrolDir)
	assert.Equal(t, 1, g.Facing)
}

func TestGuardSuspicionStateMachine(t *testing.T) {
	const dt = 0.016
	g := newTestGuard()

	var crossings, frames int
	for frames = 1; frames <= 100; frames++ {
		alert := g.Update(dt, g.X+100, 960, nil)
		if frames == 13 {
			assert.Equal(t, GuardSuspicious, g.State)
			assert.Equal(t, Suspicious, alert)
		}
		if g.State == GuardAlert {
			crossings++
			assert.Equal(t, Detected, alert)
			break
		}
	}

	assert.Equal(t, 1, crossings)
	assert.Equal(t, 42, frames)
	assert.InDelta(t, 1.0, g.Suspicion, 1e-9)

	events := g.DrainEvents()
	require.Len(t, events, 1)
	bark, ok := events[0].(GuardBarkEvent)
	require.True(t, ok)
	assert.Contains(t, barkLines, bark.Text)
	assert.InDelta(t, g.Y-GuardBarkOffsetY, bark.Y, 0.001)
	assert.Nil(t, g.DrainEvents())
}

func TestGuardSuspiciousStandsStill(t *testing.T) {
	g := newTestGuard()
	g.State = GuardSuspicious
	g.Suspicion = 0.5

	g.Update(0.1, 600, 960, nil)
	assert.InDelta(t, 500.0, g.X, 0.001)
}

func TestGuardSuspiciousDecaysToPatrol(t *testing.T) {
	g := newTestGuard()
	g.State = GuardSuspicious
	g.Suspicion = 0.31

	alert := g.Update(0.1, 0, 5000, nil)
	assert.Equal(t, GuardPatrol, g.State)
	assert.Equal(t, Undetected, alert)
	assert.InDelta(t, 0.23, g.Suspicion, 1e-9)
}

func TestGuardChase(t *testing.T) {
	tests := []struct {
		name  string
		dx    float64
		wantX float64
	}{
		{"chases right", 100, 512},
		{"inside deadzone", 3, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard()
			g.State = GuardAlert
			g.Suspicion = 1

			alert := g.Update(0.1, g.X+tt.dx, 960, nil)
			assert.Equal(t, Detected, alert)
			assert.InDelta(t, tt.wantX, g.X, 0.001)
			assert.Empty(t, g.DrainEvents(), "no bark without a fresh crossing")
		})
	}
}

func TestGuardChaseTurnsToFacePlayer(t *testing.T) {
	g := newTestGuard()
	g.State = GuardAlert
	g.Suspicion = 1

	g.Update(0.1, 300, 960, nil)
	assert.Equal(t, -1, g.Facing)
	assert.InDelta(t, 488.0, g.X, 0.001)
}

func TestGuardAlertHardTimeout(t *testing.T) {
	g := newTestGuard()
	g.State = GuardAlert
	g.Suspicion = 1
	g.AlertTimer = 7.0

	g.Update(0.1, g.X+50, 960, nil)
	assert.Equal(t, GuardAlert, g.State)

	g.AlertTimer = 7.95
	alert := g.Update(0.1, g.X+50, 960, nil)
	assert.Equal(t, GuardPatrol, g.State, "gives up even while the player is in view")
	assert.InDelta(t, 0.0, g.Suspicion, 1e-9)
	assert.Equal(t, Detected, alert)
}

func TestGuardTakeDamage(t *testing.T) {
	t.Run("non-lethal stuns regardless of health", func(t *testing.T) {
		g := newTestGuard()
		g.Suspicion = 0.8

		assert.False(t, g.TakeDamage(1000, false))
		assert.Equal(t, GuardStunned, g.State)
		assert.Equal(t, GuardMaxHealth, g.Health)
		assert.InDelta(t, 0.0, g.Suspicion, 1e-9)
		assert.InDelta(t, GuardStunDuration, g.StunTimer, 1e-9)
		assert.True(t, g.Active)
	})

	t.Run("lethal subtracts health until zero", func(t *testing.T) {
		g := newTestGuard()

		assert.False(t, g.TakeDamage(30, true))
		assert.Equal(t, 30, g.Health)
		assert.True(t, g.TakeDamage(30, true))
		assert.False(t, g.Active)
	})

	t.Run("inactive guard ignores hits", func(t *testing.T) {
		g := newTestGuard()
		g.Active = false

		assert.False(t, g.TakeDamage(100, true))
		assert.False(t, g.TakeDamage(100, false))
		assert.Equal(t, GuardPatrol, g.State)
	})
}

func TestGuardStunRecovery(t *testing.T) {
	g := newTestGuard()
	g.TakeDamage(0, false)

	// Stunned guards neither move nor look.
	assert.Equal(t, Undetected, g.Update(4.9, 600, 960, nil))
	assert.Equal(t, GuardStunned, g.State)
	assert.InDelta(t, 500.0, g.X, 0.001)
	assert.InDelta(t, 0.0, g.Suspicion, 1e-9)

	assert.Equal(t, Undetected, g.Update(0.2, 600, 960, nil))
	assert.Equal(t, GuardPatrol, g.State)
	assert.InDelta(t, 0.0, g.Suspicion, 1e-9)
}

func TestGuardStealthKill(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(g *Guard)
		px       float64
		expected bool
	}{
		{"behind and in reach", nil, 450, true},
		{"in front", nil, 550, false},
		{"too far", nil, 350, false},
		{"suspicion at ceiling", func(g *Guard) { g.Suspicion = MaxKillSuspicion }, 450, false},
		{"suspicion below ceiling", func(g *Guard) { g.Suspicion = 0.49 }, 450, true},
		{"alerted", func(g *Guard) { g.State = GuardAlert }, 450, false},
		{"stunned", func(g *Guard) { g.State = GuardStunned }, 450, false},
		{"already dead", func(g *Guard) { g.Active = false }, 450, false},
		{"facing left, player right", func(g *Guard) { g.Facing = -1 }, 550, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard()
			if tt.setup != nil {
				tt.setup(g)
			}
			wasActive := g.Active

			assert.Equal(t, tt.expected, g.StealthKill(tt.px, 960, DefaultKillReach))
			if tt.expected {
				assert.False(t, g.Active)
				assert.Equal(t, 0, g.Health)
			} else {
				assert.Equal(t, wasActive, g.Active)
			}
		})
	}
}

func TestGuardSuspicionStaysClamped(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	g := newTestGuard()

	for i := 0; i < 5000; i++ {
		dt := rng.Float64() * 0.5
		px := 200 + rng.Float64()*700
		py := 900 + rng.Float64()*120
		if rng.IntN(200) == 0 {
			g.TakeDamage(0, false)
		}
		g.Update(dt, px, py, nil)
		assert.GreaterOrEqual(t, g.Suspicion, 0.0)
		assert.LessOrEqual(t, g.Suspicion, 1.0)
	}
}

func TestGuardHiddenPlayerNeverRaisesSuspicion(t *testing.T) {
	spot := &HideSpot{X: 520, Y: 900, Width: 80, Height: 100, Occupied: true}
	g := newTestGuard()
	g.State = GuardSuspicious
	g.Suspicion = 0.5

	prev := g.Suspicion
	for i := 0; i < 120; i++ {
		g.Update(0.016, 560, 960, []*HideSpot{spot})
		assert.LessOrEqual(t, g.Suspicion, prev)
		prev = g.Suspicion
	}
	assert.InDelta(t, 0.0, g.Suspicion, 1e-9)
}
