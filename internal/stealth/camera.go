package stealth

import (
	"encoding/json"
	"math"
)

// ConeMode selects which angle the camera's detection cone is centred on.
type ConeMode int

const (
	// ConeStatic centres detection on the midpoint of the sweep range. The
	// cone drawn for players still follows the swept angle.
	ConeStatic ConeMode = iota
	// ConeSwept centres detection on the current swept angle.
	ConeSwept
)

func (m ConeMode) String() string {
	if m == ConeSwept {
		return "swept"
	}
	return "static"
}

// MarshalJSON serializes ConeMode as a string.
func (m ConeMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// Camera is a wall-mounted sweeping vision cone.
type Camera struct {
	X           float64
	Y           float64
	SweepLeft   float64 // radians
	SweepRight  float64 // radians
	VisionRange float64
	SweepPeriod float64 // seconds for a full left-right-left cycle
	Mode        ConeMode

	timer float64
	angle float64
}

// NewCamera creates a camera from sweep bounds given in degrees.
func NewCamera(x, y, sweepLeftDeg, sweepRightDeg, visionRange, period float64) *Camera {
	c := &Camera{
		X:           x,
		Y:           y,
		SweepLeft:   degToRad(sweepLeftDeg),
		SweepRight:  degToRad(sweepRightDeg),
		VisionRange: visionRange,
		SweepPeriod: period,
	}
	c.angle = c.SweepLeft
	return c
}

// Update advances the sweep. The phase is eased through a shifted sine so
// the camera slows down at both ends of its arc.
func (c *Camera) Update(dt float64) {
	c.timer += dt
	if c.SweepPeriod <= 0 {
		return
	}
	c.timer = math.Mod(c.timer, c.SweepPeriod)
	phase := c.timer / c.SweepPeriod
	lerp := (math.Sin(phase*2*math.Pi-math.Pi/2) + 1) / 2
	c.angle = c.SweepLeft + (c.SweepRight-c.SweepLeft)*lerp
}

// Angle returns the current swept angle in radians.
func (c *Camera) Angle() float64 {
	return c.angle
}

// coneCenter returns the angle detection is measured around.
func (c *Camera) coneCenter() float64 {
	if c.Mode == ConeSwept {
		return c.angle
	}
	return c.SweepLeft + (c.SweepRight-c.SweepLeft)*0.5
}

// CanSee reports whether the player at (px, py) is inside the cone and not
// in an occupied hide spot.
func (c *Camera) CanSee(px, py float64, spots []*HideSpot) bool {
	dx := px - c.X
	dy := py - c.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist > c.VisionRange || dist < minCameraDistance {
		return false
	}

	diff := math.Abs(normalizeAngle(math.Atan2(dy, dx) - c.coneCenter()))
	if diff > degToRad(CameraHalfFOV) {
		return false
	}

	return !occluded(px, py, spots)
}

// Perceive implements Perceiver. A camera either sees the player or not;
// there is no suspicion ramp.
func (c *Camera) Perceive(dt, px, py float64, spots []*HideSpot) AlertLevel {
	c.Update(dt)
	if c.CanSee(px, py, spots) {
		return Detected
	}
	return Undetected
}

// DrainEvents implements Perceiver. Cameras never queue events.
func (c *Camera) DrainEvents() []Event {
	return nil
}
