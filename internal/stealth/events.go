package stealth

// EventKind is the wire tag of a stealth event.
type EventKind string

const (
	KindGuardBark      EventKind = "guard_bark"
	KindPlayerDetected EventKind = "player_detected"
	KindStealthKarma   EventKind = "stealth_karma"
	KindStealthKill    EventKind = "stealth_kill"
	KindGuardKilled    EventKind = "guard_killed"
	KindGuardStunned   EventKind = "guard_stunned"
)

// Event is one outbound notification from the stealth system. The set of
// implementations is closed; hosts dispatch with a type switch.
type Event interface {
	Kind() EventKind
}

// GuardBarkEvent is a guard shouting on detection.
type GuardBarkEvent struct {
	GuardIndex int     `json:"guard_idx"`
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// PlayerDetectedEvent fires once when the global alert reaches DETECTED.
type PlayerDetectedEvent struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// StealthKarmaEvent rewards sustained undetected hiding.
type StealthKarmaEvent struct {
	Delta int    `json:"delta"`
	Text  string `json:"text"`
}

// StealthKillEvent reports a successful silent takedown.
type StealthKillEvent struct {
	GuardIndex int     `json:"guard_idx"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// GuardKilledEvent reports a guard deactivated by lethal damage.
type GuardKilledEvent struct {
	GuardIndex int `json:"guard_idx"`
}

// GuardStunnedEvent reports a non-lethal takedown.
type GuardStunnedEvent struct {
	GuardIndex int `json:"guard_idx"`
}

func (GuardBarkEvent) Kind() EventKind      { return KindGuardBark }
func (PlayerDetectedEvent) Kind() EventKind { return KindPlayerDetected }
func (StealthKarmaEvent) Kind() EventKind   { return KindStealthKarma }
func (StealthKillEvent) Kind() EventKind    { return KindStealthKill }
func (GuardKilledEvent) Kind() EventKind    { return KindGuardKilled }
func (GuardStunnedEvent) Kind() EventKind   { return KindGuardStunned }
