package mission

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Option is one side of a KarmaChoice.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
)

// ParseOption converts wire text into an Option.
func ParseOption(s string) (Option, error) {
	switch Option(s) {
	case OptionA, OptionB:
		return Option(s), nil
	default:
		return "", fmt.Errorf("unknown choice option %q", s)
	}
}

// ChoiceOption is the label, karma delta and outcome tag of one option.
type ChoiceOption struct {
	Label string `json:"label" yaml:"label"`
	Karma int    `json:"karma" yaml:"karma"`
	Tag   string `json:"tag,omitempty" yaml:"tag"`
}

// KarmaChoice is a moral decision offered during a stage. It is consumed
// exactly once.
type KarmaChoice struct {
	ID     string       `json:"id" yaml:"id"`
	Prompt string       `json:"prompt" yaml:"prompt"`
	A      ChoiceOption `json:"a" yaml:"a"`
	B      ChoiceOption `json:"b" yaml:"b"`
}

// Pick returns the option for o. ok is false for an unknown option.
func (c KarmaChoice) Pick(o Option) (opt ChoiceOption, ok bool) {
	switch o {
	case OptionA:
		return c.A, true
	case OptionB:
		return c.B, true
	default:
		return ChoiceOption{}, false
	}
}

// Objective is one HUD goal of the active stage.
type Objective struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	Completed bool   `json:"completed" yaml:"-"`
	Optional  bool   `json:"optional" yaml:"optional"`
}

// Outcome tags with side effects on resolution.
const (
	TagUnlockGun     = "UNLOCK_GUN"
	TagSoulSaved     = "SOUL_SAVED"
	TagStealthEntry  = "STEALTH_ENTRY"
	TagSmartEntry    = "SMART_ENTRY"
	TagParkourEscape = "PARKOUR_ESCAPE"
)

// Rewards
const (
	StealthEntryReward = 800
	ParkourReward      = 500
	IntelReward        = 2000
	CompletionReward   = 10000
)

// ExitCondition selects what ends a stage.
type ExitCondition int

const (
	ExitScore ExitCondition = iota
	ExitObjectiveDone
	ExitCombatClear
	ExitAreaReached
)

func (c ExitCondition) String() string {
	switch c {
	case ExitScore:
		return "score"
	case ExitObjectiveDone:
		return "objective_done"
	case ExitCombatClear:
		return "combat_clear"
	case ExitAreaReached:
		return "area_reached"
	default:
		return "unknown"
	}
}

func parseExitCondition(s string) (ExitCondition, error) {
	switch s {
	case "score":
		return ExitScore, nil
	case "objective_done":
		return ExitObjectiveDone, nil
	case "combat_clear":
		return ExitCombatClear, nil
	case "area_reached":
		return ExitAreaReached, nil
	default:
		return 0, fmt.Errorf("unknown exit condition %q", s)
	}
}

// MarshalJSON serializes ExitCondition as a string.
func (c ExitCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalYAML reads ExitCondition from its string form.
func (c *ExitCondition) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseExitCondition(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
