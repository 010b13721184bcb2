package mission

// EventKind is the wire tag of a mission event.
type EventKind string

const (
	KindDialogue      EventKind = "DIALOGUE"
	KindChoicePending EventKind = "CHOICE_PENDING"
	KindObjectiveAdd  EventKind = "OBJECTIVE_ADD"
	KindObjectiveDone EventKind = "OBJECTIVE_DONE"
	KindUnlock        EventKind = "UNLOCK"
	KindAlertRaised   EventKind = "ALERT_RAISED"
	KindReward        EventKind = "REWARD"
)

// Event is one outbound notification from the mission manager. The set of
// implementations is closed; hosts dispatch with a type switch.
type Event interface {
	Kind() EventKind
}

type DialogueEvent struct {
	Speaker  string `json:"speaker" yaml:"speaker"`
	Text     string `json:"text" yaml:"text"`
	Cutscene bool   `json:"is_cutscene" yaml:"cutscene"`
}

type ChoicePendingEvent struct {
	Choice KarmaChoice `json:"choice"`
}

type ObjectiveAddEvent struct {
	ObjectiveID string `json:"obj_id"`
	Text        string `json:"text"`
	Optional    bool   `json:"optional"`
}

type ObjectiveDoneEvent struct {
	ObjectiveID string `json:"obj_id"`
}

// UnlockEvent opens a persistent feature. Boolean unlocks carry Value 1;
// counters carry the new count.
type UnlockEvent struct {
	Key   string `json:"key" yaml:"key"`
	Value int    `json:"value" yaml:"value"`
}

// AlertRaisedEvent asks the host to put the stealth level on alert.
type AlertRaisedEvent struct {
	Reason string `json:"reason" yaml:"reason"`
}

type RewardEvent struct {
	Score  int    `json:"score" yaml:"score"`
	Reason string `json:"reason" yaml:"reason"`
}

func (DialogueEvent) Kind() EventKind      { return KindDialogue }
func (ChoicePendingEvent) Kind() EventKind { return KindChoicePending }
func (ObjectiveAddEvent) Kind() EventKind  { return KindObjectiveAdd }
func (ObjectiveDoneEvent) Kind() EventKind { return KindObjectiveDone }
func (UnlockEvent) Kind() EventKind        { return KindUnlock }
func (AlertRaisedEvent) Kind() EventKind   { return KindAlertRaised }
func (RewardEvent) Kind() EventKind        { return KindReward }
