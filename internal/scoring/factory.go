package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

// RuleOverrides replaces individual rule defaults. Nil fields keep the
// default; fields for the other sport are ignored.
type RuleOverrides struct {
	MaxFoulsPerPlayer        *int `json:"maxFoulsPerPlayer,omitempty"`
	BonusFoulThreshold       *int `json:"bonusFoulThreshold,omitempty"`
	DoubleBonusFoulThreshold *int `json:"doubleBonusFoulThreshold,omitempty"`
	ShotClockDuration        *int `json:"shotClockDuration,omitempty"`
	OffensiveReboundReset    *int `json:"offensiveReboundReset,omitempty"`

	MaxYellowCardsBeforeRed *int  `json:"maxYellowCardsBeforeRed,omitempty"`
	DirectRedCardEjection   *bool `json:"directRedCardEjection,omitempty"`
	OffsideRule             *bool `json:"offsideRule,omitempty"`
}

// ParseOverrides decodes overrides stored with the match settings. Empty
// input yields nil.
func ParseOverrides(raw []byte) (*RuleOverrides, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var o RuleOverrides
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decoding rule overrides: %w", err)
	}
	return &o, nil
}

func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (o *RuleOverrides) basketball() BasketballRules {
	r := DefaultBasketballRules()
	if o == nil {
		return r
	}
	override(&r.MaxFoulsPerPlayer, o.MaxFoulsPerPlayer)
	override(&r.BonusFoulThreshold, o.BonusFoulThreshold)
	override(&r.DoubleBonusFoulThreshold, o.DoubleBonusFoulThreshold)
	override(&r.ShotClockDuration, o.ShotClockDuration)
	override(&r.OffensiveReboundReset, o.OffensiveReboundReset)
	return r
}

func (o *RuleOverrides) football() FootballRules {
	r := DefaultFootballRules()
	if o == nil {
		return r
	}
	override(&r.MaxYellowCardsBeforeRed, o.MaxYellowCardsBeforeRed)
	override(&r.DirectRedCardEjection, o.DirectRedCardEjection)
	override(&r.OffsideRule, o.OffsideRule)
	return r
}

// New builds the engine variant for sport with default rules merged with
// overrides. Sports without a rule table fail with ErrUnknownSport.
func New(sport match.Sport, ctx MatchContext, overrides *RuleOverrides, opts ...Option) (Engine, error) {
	switch sport {
	case match.SportBasketball:
		return NewBasketball(ctx, overrides.basketball(), opts...), nil
	case match.SportFootball:
		return NewFootball(ctx, overrides.football(), opts...), nil
	}
	return nil, fmt.Errorf("scoring engine for %q: %w", sport, ErrUnknownSport)
}

// DefaultContext is the starting context for a new match.
func DefaultContext(sport match.Sport, periodDuration, timeoutsPerTeam int) MatchContext {
	return MatchContext{
		Sport:          sport,
		CurrentPeriod:  1,
		PeriodDuration: periodDuration,
		HomeTimeouts:   timeoutsPerTeam,
		AwayTimeouts:   timeoutsPerTeam,
		PeriodScores:   []PeriodScore{},
	}
}
