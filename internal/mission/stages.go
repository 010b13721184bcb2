package mission

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var defaultStagesYAML []byte

// MissionEnd as an exit target completes the mission.
const MissionEnd = -1

// Trigger activates a stage on an exact level index once score reaches
// the threshold.
type Trigger struct {
	Level int `yaml:"level"`
	Score int `yaml:"score"`
}

// Exit is a stage's single exit condition and where it leads.
type Exit struct {
	Condition ExitCondition `yaml:"condition"`
	Score     int           `yaml:"score"`
	Objective string        `yaml:"objective"`
	Area      string        `yaml:"area"`
	To        int           `yaml:"to"`
}

// EventDef is one entry event. Exactly one field is set.
type EventDef struct {
	Dialogue     *DialogueEvent    `yaml:"dialogue"`
	ObjectiveAdd string            `yaml:"objective_add"`
	Unlock       *UnlockEvent      `yaml:"unlock"`
	AlertRaised  *AlertRaisedEvent `yaml:"alert_raised"`
	Reward       *RewardEvent      `yaml:"reward"`
}

// StageDef is the static definition of one mission stage.
type StageDef struct {
	ID          int                    `yaml:"id"`
	Name        string                 `yaml:"name"`
	Theme       int                    `yaml:"theme"`
	Trigger     Trigger                `yaml:"trigger"`
	Objectives  []Objective            `yaml:"objectives"`
	EntryEvents []EventDef             `yaml:"entry_events"`
	Choices     map[string]KarmaChoice `yaml:"choices"`
	Exit        Exit                   `yaml:"exit"`
}

func (s *StageDef) objective(id string) (Objective, bool) {
	for _, o := range s.Objectives {
		if o.ID == id {
			return o, true
		}
	}
	return Objective{}, false
}

// entryEvents builds fresh event values for a stage activation.
func (s *StageDef) entryEvents() []Event {
	out := make([]Event, 0, len(s.EntryEvents))
	for _, d := range s.EntryEvents {
		switch {
		case d.Dialogue != nil:
			out = append(out, *d.Dialogue)
		case d.ObjectiveAdd != "":
			o, _ := s.objective(d.ObjectiveAdd)
			out = append(out, ObjectiveAddEvent{ObjectiveID: o.ID, Text: o.Text, Optional: o.Optional})
		case d.Unlock != nil:
			out = append(out, *d.Unlock)
		case d.AlertRaised != nil:
			out = append(out, *d.AlertRaised)
		case d.Reward != nil:
			out = append(out, *d.Reward)
		}
	}
	return out
}

// DefaultStages returns the embedded stage table.
func DefaultStages() []StageDef {
	stages, err := LoadStages(defaultStagesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded stages.yaml is invalid: %v", err))
	}
	return stages
}

// LoadStagesFile reads a stage table from a YAML file.
func LoadStagesFile(path string) ([]StageDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stages file: %w", err)
	}
	return LoadStages(data)
}

// LoadStages parses and validates a stage table.
func LoadStages(data []byte) ([]StageDef, error) {
	var stages []StageDef
	if err := yaml.Unmarshal(data, &stages); err != nil {
		return nil, fmt.Errorf("parse stages: %w", err)
	}

	defined := make(map[int]bool, len(stages))
	for i := range stages {
		s := &stages[i]
		if i > 0 && s.ID <= stages[i-1].ID {
			return nil, fmt.Errorf("stage %d: ids must be unique and ascending", s.ID)
		}
		defined[s.ID] = true
	}
	for i := range stages {
		if err := stages[i].validate(defined); err != nil {
			return nil, fmt.Errorf("stage %d: %w", stages[i].ID, err)
		}
	}
	return stages, nil
}

func (s *StageDef) validate(defined map[int]bool) error {
	seen := make(map[string]bool, len(s.Objectives))
	for _, o := range s.Objectives {
		if o.ID == "" {
			return errors.New("objective without id")
		}
		if seen[o.ID] {
			return fmt.Errorf("duplicate objective %q", o.ID)
		}
		seen[o.ID] = true
	}

	// Exits only ever lead forward, which keeps progression monotonic.
	if to := s.Exit.To; to != MissionEnd && (to <= s.ID || !defined[to]) {
		return fmt.Errorf("exit target %d must be a later stage or %d", to, MissionEnd)
	}
	switch s.Exit.Condition {
	case ExitObjectiveDone:
		if !seen[s.Exit.Objective] {
			return fmt.Errorf("exit objective %q is not defined", s.Exit.Objective)
		}
	case ExitAreaReached:
		if s.Exit.Area == "" {
			return errors.New("area_reached exit needs an area")
		}
	}

	for i, d := range s.EntryEvents {
		if n := d.count(); n != 1 {
			return fmt.Errorf("entry event %d: want exactly one kind, got %d", i, n)
		}
		if d.ObjectiveAdd != "" && !seen[d.ObjectiveAdd] {
			return fmt.Errorf("entry event %d: objective %q is not defined", i, d.ObjectiveAdd)
		}
	}

	for key, c := range s.Choices {
		if c.ID == "" {
			c.ID = key
			s.Choices[key] = c
		}
		if c.ID != key {
			return fmt.Errorf("choice %q: id %q does not match its key", key, c.ID)
		}
	}
	return nil
}

func (d EventDef) count() int {
	n := 0
	for _, set := range []bool{d.Dialogue != nil, d.ObjectiveAdd != "", d.Unlock != nil, d.AlertRaised != nil, d.Reward != nil} {
		if set {
			n++
		}
	}
	return n
}
