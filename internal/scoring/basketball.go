package scoring

import (
	"fmt"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

type BasketballRules struct {
	MaxFoulsPerPlayer        int `json:"maxFoulsPerPlayer"`
	BonusFoulThreshold       int `json:"bonusFoulThreshold"`
	DoubleBonusFoulThreshold int `json:"doubleBonusFoulThreshold"`
	ShotClockDuration        int `json:"shotClockDuration"`
	OffensiveReboundReset    int `json:"offensiveReboundReset"`
}

func DefaultBasketballRules() BasketballRules {
	return BasketballRules{
		MaxFoulsPerPlayer:        6,
		BonusFoulThreshold:       4,
		DoubleBonusFoulThreshold: 8,
		ShotClockDuration:        24,
		OffensiveReboundReset:    14,
	}
}

// Basketball periods 5 through 8 are overtime.
var (
	basketballPeriods  = periods(1, 8)
	regulationQuarters = periods(1, 4)
)

type Basketball struct {
	core
	rules BasketballRules
}

// NewBasketball builds a basketball engine. Use New when the sport comes
// from user input.
func NewBasketball(ctx MatchContext, rules BasketballRules, opts ...Option) *Basketball {
	b := &Basketball{rules: rules}
	b.init(match.SportBasketball, ctx, opts)
	if b.ctx.ShotClock == nil {
		sc := rules.ShotClockDuration
		b.ctx.ShotClock = &sc
	}

	for _, t := range []EventType{FreeThrowMade, FreeThrowMissed} {
		b.addRule(Rule{
			EventType:      t,
			Points:         points(t),
			RequiresPlayer: true,
			AllowedPeriods: basketballPeriods,
		})
	}
	for _, t := range []EventType{TwoPointMade, TwoPointMissed, ThreePointMade, ThreePointMissed} {
		b.addRule(Rule{
			EventType:         t,
			Points:            points(t),
			RequiresPlayer:    true,
			RequiresShotClock: true,
			AllowedPeriods:    basketballPeriods,
			Validate:          requireShotClock,
		})
	}
	b.addRule(Rule{
		EventType:      Timeout,
		AllowedPeriods: regulationQuarters,
		Validate: func(ev ScoreEvent, ctx MatchContext) Verdict {
			if *ctx.timeouts(ev.Team) <= 0 {
				return reject(fmt.Sprintf("%s team has no timeouts remaining", ev.Team))
			}
			return accept()
		},
	})
	b.addRule(Rule{
		EventType:      Foul,
		RequiresPlayer: true,
		AllowedPeriods: basketballPeriods,
		Validate:       b.foulWarning,
	})
	b.addRule(Rule{EventType: TechnicalFoul, AllowedPeriods: basketballPeriods})
	b.addRule(Rule{EventType: FlagrantFoul, RequiresPlayer: true, AllowedPeriods: basketballPeriods})
	b.addRule(Rule{EventType: Substitution, RequiresPlayer: true, AllowedPeriods: basketballPeriods})
	return b
}

func points(t EventType) int {
	switch t {
	case FreeThrowMade, Goal, PenaltyGoal, OwnGoal:
		return 1
	case TwoPointMade:
		return 2
	case ThreePointMade:
		return 3
	}
	return 0
}

func requireShotClock(ev ScoreEvent, _ MatchContext) Verdict {
	if ev.ShotClock == nil {
		return reject(fmt.Sprintf("%s requires a shot clock value", ev.EventType))
	}
	if *ev.ShotClock < 0 {
		return reject("shot clock cannot be negative")
	}
	return accept()
}

// foulWarning runs under the engine lock; the thresholds are immutable.
func (b *Basketball) foulWarning(ev ScoreEvent, ctx MatchContext) Verdict {
	fouls := *ctx.fouls(ev.Team)
	switch {
	case fouls >= b.rules.DoubleBonusFoulThreshold:
		return acceptWithWarning(fmt.Sprintf("%s team is in the double bonus (%d fouls)", ev.Team, fouls))
	case fouls >= b.rules.BonusFoulThreshold:
		return acceptWithWarning(fmt.Sprintf("%s team has reached the bonus foul threshold (%d fouls)", ev.Team, fouls))
	}
	return accept()
}

func (b *Basketball) Rules() BasketballRules { return b.rules }

func (b *Basketball) AddEvent(d Draft) ScoreEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := b.newEventLocked(d)
	return b.commitLocked(ev, b.validateLocked(ev))
}

func (b *Basketball) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Basketball) IsInBonus(team match.Team) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.ctx.fouls(team) >= b.rules.BonusFoulThreshold
}

func (b *Basketball) IsInDoubleBonus(team match.Team) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.ctx.fouls(team) >= b.rules.DoubleBonusFoulThreshold
}

// RecordFoul bumps the team foul counter. It does not create an event; the
// caller records the matching Foul event separately.
func (b *Basketball) RecordFoul(team match.Team, playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	*b.ctx.fouls(team)++
}

// RecordTimeout spends one of the team's timeouts. The counter never drops
// below zero.
func (b *Basketball) RecordTimeout(team match.Team) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := b.ctx.timeouts(team); *n > 0 {
		*n--
	}
}

func (b *Basketball) IsPlayerFouledOut(playerID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ev := range b.history {
		if ev.PlayerID != playerID {
			continue
		}
		switch ev.EventType {
		case Foul, TechnicalFoul, FlagrantFoul:
			n++
		}
	}
	return n >= b.rules.MaxFoulsPerPlayer
}

func (b *Basketball) ResetShotClock() {
	b.mu.Lock()
	defer b.mu.Unlock()
	sc := b.rules.ShotClockDuration
	b.ctx.ShotClock = &sc
}

func (b *Basketball) ResetShotClockOnOffensiveRebound() {
	b.mu.Lock()
	defer b.mu.Unlock()
	sc := b.rules.OffensiveReboundReset
	b.ctx.ShotClock = &sc
}

func (b *Basketball) FieldGoalPercentage(team match.Team) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fieldGoalPctLocked(team)
}

func (b *Basketball) ThreePointPercentage(team match.Team) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.threePointPctLocked(team)
}

func (b *Basketball) FreeThrowPercentage(team match.Team) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freeThrowPctLocked(team)
}

func (b *Basketball) fieldGoalPctLocked(team match.Team) float64 {
	made := b.countLocked(team, TwoPointMade, ThreePointMade)
	missed := b.countLocked(team, TwoPointMissed, ThreePointMissed)
	return percentage(made, made+missed)
}

func (b *Basketball) threePointPctLocked(team match.Team) float64 {
	made := b.countLocked(team, ThreePointMade)
	return percentage(made, made+b.countLocked(team, ThreePointMissed))
}

func (b *Basketball) freeThrowPctLocked(team match.Team) float64 {
	made := b.countLocked(team, FreeThrowMade)
	return percentage(made, made+b.countLocked(team, FreeThrowMissed))
}

type BasketballStats struct {
	Team                 match.Team `json:"team"`
	Score                int        `json:"score"`
	FieldGoalPercentage  float64    `json:"fieldGoalPercentage"`
	ThreePointPercentage float64    `json:"threePointPercentage"`
	FreeThrowPercentage  float64    `json:"freeThrowPercentage"`
	IsInBonus            bool       `json:"isInBonus"`
	IsInDoubleBonus      bool       `json:"isInDoubleBonus"`
	Fouls                int        `json:"fouls"`
	Timeouts             int        `json:"timeouts"`
	ShotClock            *int       `json:"shotClock,omitempty"`
}

func (b *Basketball) Stats(team match.Team) BasketballStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	fouls := *b.ctx.fouls(team)
	ctx := b.ctx.clone()
	return BasketballStats{
		Team:                 team,
		Score:                *ctx.score(team),
		FieldGoalPercentage:  b.fieldGoalPctLocked(team),
		ThreePointPercentage: b.threePointPctLocked(team),
		FreeThrowPercentage:  b.freeThrowPctLocked(team),
		IsInBonus:            fouls >= b.rules.BonusFoulThreshold,
		IsInDoubleBonus:      fouls >= b.rules.DoubleBonusFoulThreshold,
		Fouls:                fouls,
		Timeouts:             *b.ctx.timeouts(team),
		ShotClock:            ctx.ShotClock,
	}
}
