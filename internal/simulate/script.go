// Package simulate replays scripted officiating sessions through a fresh
// scoring engine. Scripts are YAML; results are deterministic so they can
// be diffed between runs.
package simulate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
)

// Step actions.
const (
	ActionEvent     = "event"
	ActionFoul      = "foul"
	ActionTimeout   = "timeout"
	ActionUndo      = "undo"
	ActionPeriod    = "period"
	ActionShotClock = "shot_clock"
	ActionClock     = "clock"
)

// Script is one officiating session.
type Script struct {
	Name    string      `yaml:"name"`
	Sport   match.Sport `yaml:"sport"`
	MatchID string      `yaml:"match_id,omitempty"`

	// PeriodDuration is in seconds.
	PeriodDuration  int `yaml:"period_duration,omitempty"`
	TimeoutsPerTeam int `yaml:"timeouts_per_team,omitempty"`

	// Rules overrides engine defaults, keyed like the JSON rule overrides
	// (e.g. bonusFoulThreshold).
	Rules map[string]any `yaml:"rules,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is one operator action.
type Step struct {
	Action    string            `yaml:"action"`
	Team      match.Team        `yaml:"team,omitempty"`
	Type      scoring.EventType `yaml:"type,omitempty"`
	Player    string            `yaml:"player,omitempty"`
	Period    int               `yaml:"period,omitempty"`
	GameClock *int              `yaml:"game_clock,omitempty"`
	ShotClock *int              `yaml:"shot_clock,omitempty"`
	Meta      map[string]any    `yaml:"meta,omitempty"`

	// Target is the 1-based index of the step whose event an undo removes.
	Target int `yaml:"target,omitempty"`

	// Reset selects the shot clock value: full or offensive_rebound.
	Reset string `yaml:"reset,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the outcome of a step. Nil fields are not checked.
type Expect struct {
	Valid  *bool `yaml:"valid,omitempty"`
	Points *int  `yaml:"points,omitempty"`
	Home   *int  `yaml:"home,omitempty"`
	Away   *int  `yaml:"away,omitempty"`
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return Parse(data)
}

// Parse decodes a script, rejecting unknown fields.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) validate() error {
	if !s.Sport.Valid() {
		return fmt.Errorf("script %q: unknown sport %q", s.Name, s.Sport)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("script %q: no steps", s.Name)
	}
	for i, st := range s.Steps {
		n := i + 1
		switch st.Action {
		case ActionEvent:
			if st.Type == "" {
				return fmt.Errorf("step %d: event needs a type", n)
			}
		case ActionFoul, ActionTimeout:
			if !st.Team.Valid() {
				return fmt.Errorf("step %d: %s needs team home or away", n, st.Action)
			}
		case ActionUndo:
			if st.Target < 1 || st.Target >= n {
				return fmt.Errorf("step %d: undo target %d must name an earlier step", n, st.Target)
			}
		case ActionPeriod:
			if st.Period < 1 {
				return fmt.Errorf("step %d: period must be positive", n)
			}
		case ActionShotClock:
			if st.Reset != "" && st.Reset != "full" && st.Reset != "offensive_rebound" {
				return fmt.Errorf("step %d: unknown shot clock reset %q", n, st.Reset)
			}
		case ActionClock:
		default:
			return fmt.Errorf("step %d: unknown action %q", n, st.Action)
		}
	}
	return nil
}

// overrides converts the script's rule map into engine overrides.
func (s *Script) overrides() (*scoring.RuleOverrides, error) {
	if len(s.Rules) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(s.Rules)
	if err != nil {
		return nil, fmt.Errorf("encoding rules: %w", err)
	}
	return scoring.ParseOverrides(raw)
}
