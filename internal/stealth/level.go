package stealth

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed levels.yaml
var defaultLevelsYAML []byte

// CameraConfig places one surveillance camera. Angles are in degrees.
type CameraConfig struct {
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	SweepLeft  float64 `yaml:"sweep_left"`
	SweepRight float64 `yaml:"sweep_right"`
	Range      float64 `yaml:"range"`
	Period     float64 `yaml:"period"`
	Cone       string  `yaml:"cone"`
}

// GuardConfig places one guard and its patrol route.
type GuardConfig struct {
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	PatrolLeft  float64 `yaml:"patrol_left"`
	PatrolRight float64 `yaml:"patrol_right"`
	Range       float64 `yaml:"range"`
}

// HideSpotConfig places one hide spot.
type HideSpotConfig struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	W     float64 `yaml:"w"`
	H     float64 `yaml:"h"`
	Label string  `yaml:"label"`
}

// LevelConfig is the static stealth layout of one level.
type LevelConfig struct {
	Cameras   []CameraConfig   `yaml:"cameras"`
	Guards    []GuardConfig    `yaml:"guards"`
	HideSpots []HideSpotConfig `yaml:"hide_spots"`
}

// LevelSet maps level index to layout. Levels without an entry have no
// stealth threats.
type LevelSet map[int]LevelConfig

// DefaultLevels returns the embedded level tables.
func DefaultLevels() LevelSet {
	levels, err := LoadLevels(defaultLevelsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded levels.yaml is invalid: %v", err))
	}
	return levels
}

// LoadLevelsFile reads level tables from a YAML file.
func LoadLevelsFile(path string) (LevelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read levels file: %w", err)
	}
	return LoadLevels(data)
}

// LoadLevels parses level tables, fills defaults and validates them.
func LoadLevels(data []byte) (LevelSet, error) {
	var raw map[int]LevelConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse levels: %w", err)
	}

	levels := make(LevelSet, len(raw))
	for id, lc := range raw {
		lc.applyDefaults()
		if err := lc.validate(); err != nil {
			return nil, fmt.Errorf("level %d: %w", id, err)
		}
		levels[id] = lc
	}
	return levels, nil
}

func (lc *LevelConfig) applyDefaults() {
	for i := range lc.Cameras {
		c := &lc.Cameras[i]
		if c.SweepLeft == 0 && c.SweepRight == 0 {
			c.SweepLeft, c.SweepRight = DefaultSweepLeft, DefaultSweepRight
		}
		if c.Range == 0 {
			c.Range = DefaultVisionRange
		}
		if c.Period == 0 {
			c.Period = DefaultSweepPeriod
		}
	}
	for i := range lc.Guards {
		if lc.Guards[i].Range == 0 {
			lc.Guards[i].Range = DefaultVisionRange
		}
	}
	for i := range lc.HideSpots {
		h := &lc.HideSpots[i]
		if h.W == 0 {
			h.W = DefaultHideSpotWidth
		}
		if h.H == 0 {
			h.H = DefaultHideSpotHeight
		}
		if h.Label == "" {
			h.Label = DefaultHideSpotLabel
		}
	}
}

func (lc *LevelConfig) validate() error {
	for i, c := range lc.Cameras {
		if c.Range < 0 || c.Period < 0 {
			return fmt.Errorf("camera %d: range and period must be positive", i)
		}
		if c.Cone != "" && c.Cone != "static" && c.Cone != "swept" {
			return fmt.Errorf("camera %d: unknown cone mode %q", i, c.Cone)
		}
	}
	for i, g := range lc.Guards {
		if g.PatrolLeft >= g.PatrolRight {
			return fmt.Errorf("guard %d: patrol_left must be less than patrol_right", i)
		}
		if g.Range < 0 {
			return fmt.Errorf("guard %d: range must be positive", i)
		}
	}
	for i, h := range lc.HideSpots {
		if h.W < 0 || h.H < 0 {
			return fmt.Errorf("hide spot %d: width and height must be positive", i)
		}
	}
	return nil
}

func (c CameraConfig) build() *Camera {
	cam := NewCamera(c.X, c.Y, c.SweepLeft, c.SweepRight, c.Range, c.Period)
	if c.Cone == "swept" {
		cam.Mode = ConeSwept
	}
	return cam
}

func (g GuardConfig) build(index int) *Guard {
	return NewGuard(index, g.X, g.Y, g.PatrolLeft, g.PatrolRight, g.Range)
}

func (h HideSpotConfig) build() *HideSpot {
	return &HideSpot{Label: h.Label, X: h.X, Y: h.Y, Width: h.W, Height: h.H}
}
