package mission

// Progress is the player state the mission tracks across stages.
type Progress struct {
	HasGun         bool `json:"has_gun"`
	SoulsSaved     int  `json:"souls_saved"`
	UsedStealth    bool `json:"used_stealth"`
	IntelCollected bool `json:"intel_collected"`
}

// Manager drives the stage machine. It does not own karma: ResolveChoice
// returns the delta for the host to apply. Not safe for concurrent use.
type Manager struct {
	stages []StageDef

	active        *StageDef
	activeID      int
	objectives    []Objective
	activeChoice  *KarmaChoice
	choicePending bool
	complete      bool

	activated map[int]bool
	resolved  map[string]bool
	flags     flags
	progress  Progress

	events []Event
}

// NewManager creates a manager over stages, which must be in ascending id
// order as returned by LoadStages.
func NewManager(stages []StageDef) *Manager {
	m := &Manager{stages: stages}
	m.Reset()
	return m
}

// Reset returns the manager to a fresh mission.
func (m *Manager) Reset() {
	m.active = nil
	m.activeID = -1
	m.objectives = nil
	m.activeChoice = nil
	m.choicePending = false
	m.complete = false
	m.activated = make(map[int]bool)
	m.resolved = make(map[string]bool)
	m.flags = newFlags()
	m.progress = Progress{}
	m.events = nil
}

// Update runs one frame: first activates the next triggered stage, then
// evaluates the active stage's exit. Nothing happens while a choice is
// pending or after the mission is complete.
func (m *Manager) Update(dt, px, py float64, score, levelIdx int) {
	if m.complete || m.choicePending {
		return
	}

	for i := range m.stages {
		s := &m.stages[i]
		if s.ID <= m.activeID || m.activated[s.ID] {
			continue
		}
		if levelIdx == s.Trigger.Level && score >= s.Trigger.Score {
			m.activate(s)
			break
		}
	}

	if m.active == nil {
		return
	}
	m.checkExit(score)
}

func (m *Manager) activate(s *StageDef) {
	if s.ID == m.activeID {
		return
	}
	m.active = s
	m.activeID = s.ID
	m.objectives = make([]Objective, len(s.Objectives))
	copy(m.objectives, s.Objectives)

	if !m.activated[s.ID] {
		m.activated[s.ID] = true
		m.events = append(m.events, s.entryEvents()...)
	}
}

func (m *Manager) checkExit(score int) {
	exit := m.active.Exit

	var triggered bool
	switch exit.Condition {
	case ExitScore:
		triggered = score >= exit.Score
	case ExitObjectiveDone:
		triggered = m.objectiveDone(exit.Objective)
	case ExitCombatClear:
		triggered = m.flags.combatCleared
	case ExitAreaReached:
		triggered = m.flags.areas[exit.Area]
	}
	if !triggered {
		return
	}

	if exit.To == MissionEnd {
		m.completeMission()
		return
	}
	for i := range m.stages {
		if m.stages[i].ID == exit.To {
			m.activate(&m.stages[i])
			return
		}
	}
}

func (m *Manager) objectiveDone(id string) bool {
	for _, o := range m.objectives {
		if o.ID == id {
			return o.Completed
		}
	}
	return false
}

func (m *Manager) completeMission() {
	m.complete = true
	m.events = append(m.events,
		DialogueEvent{Speaker: "SOKRAT", Text: "The factory is behind us. Neon Town isn't boundless, but at least it isn't the Stomach."},
		UnlockEvent{Key: "neon_town_access", Value: 1},
		RewardEvent{Score: CompletionReward, Reason: "MISSION COMPLETE: FACTORY TRAVERSAL"},
	)
}

// CompleteObjective marks an objective of the active stage as done. It
// returns false if the objective is unknown or already complete.
func (m *Manager) CompleteObjective(id string) bool {
	for i := range m.objectives {
		o := &m.objectives[i]
		if o.ID == id && !o.Completed {
			o.Completed = true
			m.events = append(m.events, ObjectiveDoneEvent{ObjectiveID: id})
			return true
		}
	}
	return false
}

// AddObjective appends an objective to the active list unless one with the
// same id exists.
func (m *Manager) AddObjective(id, text string, optional bool) {
	for _, o := range m.objectives {
		if o.ID == id {
			return
		}
	}
	m.objectives = append(m.objectives, Objective{ID: id, Text: text, Optional: optional})
	m.events = append(m.events, ObjectiveAddEvent{ObjectiveID: id, Text: text, Optional: optional})
}

// TriggerChoice surfaces a choice of the active stage and pauses stage
// progression until it is resolved.
func (m *Manager) TriggerChoice(id string) (KarmaChoice, bool) {
	if m.active == nil || m.resolved[id] {
		return KarmaChoice{}, false
	}
	c, ok := m.active.Choices[id]
	if !ok {
		return KarmaChoice{}, false
	}
	m.activeChoice = &c
	m.choicePending = true
	m.events = append(m.events, ChoicePendingEvent{Choice: c})
	return c, true
}

// ResolveChoice applies the picked option of the active choice and returns
// its karma delta. Anything but the active choice with a known option is a
// no-op returning 0.
func (m *Manager) ResolveChoice(id string, opt Option) int {
	if m.activeChoice == nil || m.activeChoice.ID != id {
		return 0
	}
	picked, ok := m.activeChoice.Pick(opt)
	if !ok {
		return 0
	}

	m.resolved[id] = true
	m.choicePending = false
	m.applyTag(picked.Tag)
	m.activeChoice = nil
	return picked.Karma
}

func (m *Manager) applyTag(tag string) {
	switch tag {
	case TagUnlockGun:
		m.progress.HasGun = true
		m.events = append(m.events, UnlockEvent{Key: "player_gun", Value: 1})
	case TagSoulSaved:
		m.progress.SoulsSaved++
		m.events = append(m.events, UnlockEvent{Key: "saved_soul", Value: m.progress.SoulsSaved})
	case TagStealthEntry, TagSmartEntry:
		m.progress.UsedStealth = true
		m.events = append(m.events, RewardEvent{Score: StealthEntryReward, Reason: "STEALTH BONUS"})
	case TagParkourEscape:
		m.events = append(m.events, RewardEvent{Score: ParkourReward, Reason: "PARKOUR ESCAPE"})
	}
}

// IntelPickup records the intel tablet. Only the first call has effect.
func (m *Manager) IntelPickup() {
	if m.progress.IntelCollected {
		return
	}
	m.progress.IntelCollected = true
	m.CompleteObjective("get_tablet")
	m.events = append(m.events,
		DialogueEvent{
			Speaker:  "SYSTEM DATA",
			Text:     "TRAIN DEPARTS: 20:00  //  WARDEN: NEON TOWN NODE_7  //  CONTRABAND: INDUSTRIALIST LOGISTICS",
			Cutscene: true,
		},
		UnlockEvent{Key: "map_unlocked", Value: 1},
		RewardEvent{Score: IntelReward, Reason: "INTEL COLLECTED"},
	)
}

// PollEvents returns the queued events and clears the queue.
func (m *Manager) PollEvents() []Event {
	if len(m.events) == 0 {
		return nil
	}
	out := m.events
	m.events = nil
	return out
}

// ActiveObjectives returns the incomplete objectives of the active stage.
func (m *Manager) ActiveObjectives() []Objective {
	var out []Objective
	for _, o := range m.objectives {
		if !o.Completed {
			out = append(out, o)
		}
	}
	return out
}

// Objectives returns a copy of every objective of the active stage.
func (m *Manager) Objectives() []Objective {
	out := make([]Objective, len(m.objectives))
	copy(out, m.objectives)
	return out
}

func (m *Manager) CurrentStageName() string {
	if m.active == nil {
		return ""
	}
	return m.active.Name
}

func (m *Manager) IsStageActive(id int) bool { return m.activeID == id }
func (m *Manager) ActiveStageID() int        { return m.activeID }
func (m *Manager) MissionComplete() bool     { return m.complete }
func (m *Manager) ChoicePending() bool       { return m.choicePending }
func (m *Manager) Progress() Progress        { return m.progress }

// ActiveChoice returns the pending choice, if any.
func (m *Manager) ActiveChoice() (KarmaChoice, bool) {
	if m.activeChoice == nil {
		return KarmaChoice{}, false
	}
	return *m.activeChoice, true
}

// Snapshot is a JSON-ready copy of the mission state.
type Snapshot struct {
	StageID       int          `json:"stage_id"`
	StageName     string       `json:"stage_name"`
	Objectives    []Objective  `json:"objectives"`
	ChoicePending bool         `json:"choice_pending"`
	ActiveChoice  *KarmaChoice `json:"active_choice,omitempty"`
	Complete      bool         `json:"complete"`
	Progress      Progress     `json:"progress"`
}

func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{
		StageID:       m.activeID,
		StageName:     m.CurrentStageName(),
		Objectives:    m.Objectives(),
		ChoicePending: m.choicePending,
		Complete:      m.complete,
		Progress:      m.progress,
	}
	if c, ok := m.ActiveChoice(); ok {
		snap.ActiveChoice = &c
	}
	return snap
}
