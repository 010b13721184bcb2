package ws

import "encoding/json"

// Message represents a WebSocket message with type-based routing.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message types - Profile
const (
	TypeIdentify       = "identify"
	TypeIdentifyResult = "identify_result"
)

// Message types - Session lifecycle
const (
	TypeCreateSession = "create_session"
	TypeJoinSession   = "join_session"
	TypeLeaveSession  = "leave_session"
	TypeSessionInfo   = "session_info"
)

// Message types - Gameplay (pilot only)
const (
	TypePlayerMove        = "player_move"
	TypeAddScore          = "add_score"
	TypeChangeLevel       = "change_level"
	TypeStealthKill       = "stealth_kill"
	TypeHitGuard          = "hit_guard"
	TypeCompleteObjective = "complete_objective"
	TypeTriggerChoice     = "trigger_choice"
	TypeResolveChoice     = "resolve_choice"
	TypeSetFlag           = "set_flag"
	TypeIntelPickup       = "intel_pickup"
)

// Message types - Server push
const (
	TypeSessionState    = "session_state"
	TypeStealthEvent    = "stealth_event"
	TypeMissionEvent    = "mission_event"
	TypeKillResult      = "kill_result"
	TypeHitResult       = "hit_result"
	TypeChoiceResult    = "choice_result"
	TypeObjectiveResult = "objective_result"
)

// Message types - System
const (
	TypeError = "error"
)

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Message string `json:"message"`
}

// NewErrorMessage creates a Message with an error payload.
func NewErrorMessage(msg string) Message {
	data, _ := json.Marshal(ErrorMessage{Message: msg})
	return Message{Type: TypeError, Data: data}
}

// NewMessage creates a Message with a typed payload.
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Data: data}, nil
}
