package stealth

import "encoding/json"

// KillFailure names the precondition a stealth kill attempt failed on.
type KillFailure int

const (
	KillOK KillFailure = iota
	NoGuardNearby
	TooFar
	GuardAlerted
	GuardBusy
	NotBehind
)

func (f KillFailure) String() string {
	switch f {
	case KillOK:
		return "ok"
	case NoGuardNearby:
		return "no_guard_nearby"
	case TooFar:
		return "too_far"
	case GuardAlerted:
		return "guard_alerted"
	case GuardBusy:
		return "guard_busy"
	case NotBehind:
		return "not_behind"
	default:
		return "unknown"
	}
}

// Reason returns the user-facing feedback line for the failure.
func (f KillFailure) Reason() string {
	switch f {
	case NoGuardNearby:
		return "NO GUARD NEARBY"
	case TooFar:
		return "TOO FAR"
	case GuardAlerted:
		return "GUARD IS ALERTED, LOSE THEM FIRST"
	case GuardBusy:
		return "GUARD IS BUSY"
	case NotBehind:
		return "YOU ARE NOT BEHIND THEM"
	default:
		return ""
	}
}

// MarshalJSON serializes KillFailure as a string.
func (f KillFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// KillResult is the outcome of TryStealthKill. On failure GuardIndex still
// names the guard that was targeted, or -1 when there was none.
type KillResult struct {
	Success    bool        `json:"success"`
	GuardIndex int         `json:"guard_idx"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Failure    KillFailure `json:"failure"`
	Reason     string      `json:"reason,omitempty"`
}

func killFailed(idx int, f KillFailure) KillResult {
	return KillResult{GuardIndex: idx, Failure: f, Reason: f.Reason()}
}
