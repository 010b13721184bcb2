package stealth

// Perceiver is anything that looks for the player each frame and
// contributes to the level's alert. Camera and Guard implement it.
type Perceiver interface {
	Perceive(dt, px, py float64, spots []*HideSpot) AlertLevel
	DrainEvents() []Event
}

var (
	_ Perceiver = (*Camera)(nil)
	_ Perceiver = (*Guard)(nil)
)
