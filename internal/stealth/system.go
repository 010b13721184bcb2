package stealth

import "math"

// System orchestrates every camera, guard and hide spot of one level and
// owns the global alert. It is not safe for concurrent use; the host drives
// it from a single game loop.
type System struct {
	levels LevelSet
	level  int

	cameras    []*Camera
	guards     []*Guard
	hideSpots  []*HideSpot
	perceivers []Perceiver

	globalAlert   AlertLevel
	playerHidden  bool
	alertCooldown float64
	stealthTimer  float64

	events []Event
}

// NewSystem creates an inert system backed by the given level tables.
// A nil set means no level has threats.
func NewSystem(levels LevelSet) *System {
	return &System{levels: levels, level: -1}
}

// SetupLevel discards the current level and builds the entities configured
// for levelIdx. Unknown levels leave the system empty.
func (s *System) SetupLevel(levelIdx int) {
	s.Reset()
	s.level = levelIdx

	cfg, ok := s.levels[levelIdx]
	if !ok {
		return
	}
	for _, c := range cfg.Cameras {
		cam := c.build()
		s.cameras = append(s.cameras, cam)
		s.perceivers = append(s.perceivers, cam)
	}
	for i, g := range cfg.Guards {
		guard := g.build(i)
		s.guards = append(s.guards, guard)
		s.perceivers = append(s.perceivers, guard)
	}
	for _, h := range cfg.HideSpots {
		s.hideSpots = append(s.hideSpots, h.build())
	}
}

// Reset clears every entity and all transient state.
func (s *System) Reset() {
	s.level = -1
	s.cameras = nil
	s.guards = nil
	s.hideSpots = nil
	s.perceivers = nil
	s.globalAlert = Undetected
	s.playerHidden = false
	s.alertCooldown = 0
	s.stealthTimer = 0
	s.events = nil
}

// Update runs one frame and returns the global alert level.
func (s *System) Update(dt, px, py float64) AlertLevel {
	// Occupancy first so every perceiver sees the same occlusion this frame.
	s.playerHidden = false
	for _, h := range s.hideSpots {
		h.Occupied = h.Contains(px, py)
		if h.Occupied {
			s.playerHidden = true
		}
	}

	frame := Undetected
	for _, p := range s.perceivers {
		frame = maxAlert(frame, p.Perceive(dt, px, py, s.hideSpots))
		s.events = append(s.events, p.DrainEvents()...)
	}

	if frame == Detected && s.globalAlert < Detected {
		s.alertCooldown = AlertCooldown
		s.fireDetection(px, py)
	}

	if s.globalAlert == Detected {
		s.alertCooldown -= dt
		if s.alertCooldown <= 0 {
			s.alertCooldown = 0
			s.globalAlert = Undetected
		}
	} else {
		s.globalAlert = frame
	}

	if s.globalAlert == Undetected && s.playerHidden {
		s.stealthTimer += dt
		if s.stealthTimer >= StealthKarmaEvery {
			s.stealthTimer = 0
			s.events = append(s.events, StealthKarmaEvent{Delta: StealthKarmaDelta, Text: stealthKarmaMessage})
		}
	}

	return s.globalAlert
}

func (s *System) fireDetection(px, py float64) {
	s.stealthTimer = 0
	s.events = append(s.events, PlayerDetectedEvent{X: px, Y: py, Text: detectedMessage})
}

// RaiseAlert forces the level to DETECTED with a fresh cooldown. It does
// nothing while the level is already on alert.
func (s *System) RaiseAlert(px, py float64) {
	if s.globalAlert == Detected {
		return
	}
	s.globalAlert = Detected
	s.alertCooldown = AlertCooldown
	s.fireDetection(px, py)
}

// TryStealthKill targets the nearest active guard and attempts a silent
// takedown. Failures never mutate state.
func (s *System) TryStealthKill(px, py, reach float64) KillResult {
	best := -1
	bestDist := math.Inf(1)
	for i, g := range s.guards {
		if !g.Active {
			continue
		}
		if d := Distance(px, py, g.X, g.Y); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return killFailed(-1, NoGuardNearby)
	}

	g := s.guards[best]
	if g.StealthKill(px, py, reach) {
		s.events = append(s.events, StealthKillEvent{GuardIndex: best, X: g.X, Y: g.Y})
		return KillResult{Success: true, GuardIndex: best, X: g.X, Y: g.Y}
	}

	var res KillResult
	switch {
	case bestDist > reach:
		res = killFailed(best, TooFar)
	case g.Suspicion >= MaxKillSuspicion:
		res = killFailed(best, GuardAlerted)
	case g.State == GuardAlert || g.State == GuardStunned:
		res = killFailed(best, GuardBusy)
		res.Reason = "GUARD STATE: " + g.State.String()
	default:
		res = killFailed(best, NotBehind)
	}
	res.X, res.Y = g.X, g.Y
	return res
}

// HitGuard applies a melee or ranged hit. Out-of-range indices and inactive
// guards are ignored. Returns true when the hit deactivated the guard.
func (s *System) HitGuard(idx, damage int, lethal bool) bool {
	if idx < 0 || idx >= len(s.guards) || !s.guards[idx].Active {
		return false
	}
	killed := s.guards[idx].TakeDamage(damage, lethal)
	switch {
	case lethal && killed:
		s.events = append(s.events, GuardKilledEvent{GuardIndex: idx})
	case !lethal:
		s.events = append(s.events, GuardStunnedEvent{GuardIndex: idx})
	}
	return killed
}

// GuardAt returns the first active guard within reach of x along the
// horizontal axis, or -1.
func (s *System) GuardAt(x, reach float64) int {
	for i, g := range s.guards {
		if g.Active && math.Abs(g.X-x) <= reach {
			return i
		}
	}
	return -1
}

// PollEvents returns the queued events and clears the queue.
func (s *System) PollEvents() []Event {
	if len(s.events) == 0 {
		return nil
	}
	out := s.events
	s.events = nil
	return out
}

func (s *System) Level() int { return s.level }
func (s *System) GlobalAlert() AlertLevel { return s.globalAlert }
func (s *System) PlayerHidden() bool { return s.playerHidden }
func (s *System) AlertCooldown() float64 { return s.alertCooldown }
func (s *System) Guards() []*Guard { return s.guards }
func (s *System) Cameras() []*Camera { return s.cameras }
func (s *System) HideSpots() []*HideSpot { return s.hideSpots }

// ActiveGuardCount returns the number of guards still alive.
func (s *System) ActiveGuardCount() int {
	n := 0
	for _, g := range s.guards {
		if g.Active {
			n++
		}
	}
	return n
}

// GuardView is the client-facing state of one guard.
type GuardView struct {
	Index     int        `json:"idx"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Facing    int        `json:"facing"`
	State     GuardState `json:"state"`
	Suspicion float64    `json:"suspicion"`
	Active    bool       `json:"active"`
}

// CameraView is the client-facing state of one camera.
type CameraView struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Angle float64  `json:"angle"`
	Range float64  `json:"range"`
	Mode  ConeMode `json:"mode"`
}

// Snapshot is a JSON-ready copy of the level state.
type Snapshot struct {
	Level         int          `json:"level"`
	Alert         AlertLevel   `json:"alert"`
	AlertCooldown float64      `json:"alert_cooldown"`
	PlayerHidden  bool         `json:"player_hidden"`
	Guards        []GuardView  `json:"guards"`
	Cameras       []CameraView `json:"cameras"`
	HideSpots     []HideSpot   `json:"hide_spots"`
}

// Snapshot copies the current level state.
func (s *System) Snapshot() Snapshot {
	snap := Snapshot{
		Level:         s.level,
		Alert:         s.globalAlert,
		AlertCooldown: s.alertCooldown,
		PlayerHidden:  s.playerHidden,
		Guards:        make([]GuardView, 0, len(s.guards)),
		Cameras:       make([]CameraView, 0, len(s.cameras)),
		HideSpots:     make([]HideSpot, 0, len(s.hideSpots)),
	}
	for _, g := range s.guards {
		snap.Guards = append(snap.Guards, GuardView{
			Index: g.Index, X: g.X, Y: g.Y, Facing: g.Facing,
			State: g.State, Suspicion: g.Suspicion, Active: g.Active,
		})
	}
	for _, c := range s.cameras {
		snap.Cameras = append(snap.Cameras, CameraView{
			X: c.X, Y: c.Y, Angle: c.Angle(), Range: c.VisionRange, Mode: c.Mode,
		})
	}
	for _, h := range s.hideSpots {
		snap.HideSpots = append(snap.HideSpots, *h)
	}
	return snap
}
