package stealth

// Vision
const (
	DefaultVisionRange = 300.0 // pixels
	DefaultVisionAngle = 80.0  // degrees, total arc (±40)
	CameraHalfFOV      = 40.0  // degrees, each side of the cone centre
	minCameraDistance  = 1.0   // pixels, closer than this is degenerate
)

// Suspicion
const (
	SuspicionBuildRate = 1.5 // per second while visible
	SuspicionDecayRate = 0.8 // per second while not visible
	SuspiciousAt       = 0.3
	MaxKillSuspicion   = 0.5 // stealth kills need suspicion below this
)

// Guard behaviour
const (
	GuardPatrolSpeed   = 80.0 // pixels per second
	GuardChaseFactor   = 1.5  // multiplier on patrol speed while alert
	GuardChaseDeadzone = 5.0  // pixels, no chase movement inside this gap
	GuardAlertTimeout  = 8.0  // seconds in ALERT before giving up
	GuardStunDuration  = 5.0  // seconds
	GuardMaxHealth     = 60
	GuardBarkOffsetY   = 50.0 // bark is placed above the guard
	DefaultKillReach   = 90.0 // pixels
)

// Camera sweep defaults (degrees / seconds)
const (
	DefaultSweepLeft   = 200.0
	DefaultSweepRight  = 340.0
	DefaultSweepPeriod = 4.0
)

// Hide spot defaults
const (
	DefaultHideSpotWidth  = 80.0
	DefaultHideSpotHeight = 100.0
	DefaultHideSpotLabel  = "HIDE SPOT"
)

// Global alert
const (
	AlertCooldown       = 12.0 // seconds DETECTED is held once reached
	StealthKarmaEvery   = 8.0  // seconds of sustained stealth per karma event
	StealthKarmaDelta   = 1
	stealthKarmaMessage = "STEALTH BONUS +1 KARMA"
	detectedMessage     = "YOU HAVE BEEN DETECTED!"
)
