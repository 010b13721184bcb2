package stealth

import "encoding/json"

// AlertLevel is the severity a perception source reports for one frame.
// Levels are ordered so the aggregate is a plain max.
type AlertLevel int

const (
	Undetected AlertLevel = iota
	Suspicious
	Detected
)

func (a AlertLevel) String() string {
	switch a {
	case Undetected:
		return "undetected"
	case Suspicious:
		return "suspicious"
	case Detected:
		return "detected"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes AlertLevel as a string.
func (a AlertLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON deserializes AlertLevel from a string.
func (a *AlertLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "suspicious":
		*a = Suspicious
	case "detected":
		*a = Detected
	default:
		*a = Undetected
	}
	return nil
}

func maxAlert(a, b AlertLevel) AlertLevel {
	if a > b {
		return a
	}
	return b
}
