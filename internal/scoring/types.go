package scoring

import (
	"maps"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

type EventType string

const (
	FreeThrowMade    EventType = "free_throw_make"
	FreeThrowMissed  EventType = "free_throw_miss"
	TwoPointMade     EventType = "two_point_make"
	TwoPointMissed   EventType = "two_point_miss"
	ThreePointMade   EventType = "three_point_make"
	ThreePointMissed EventType = "three_point_miss"

	Goal          EventType = "goal"
	PenaltyGoal   EventType = "penalty_goal"
	OwnGoal       EventType = "own_goal"
	MissedPenalty EventType = "missed_penalty"

	Timeout       EventType = "timeout"
	Substitution  EventType = "substitution"
	Foul          EventType = "foul"
	TechnicalFoul EventType = "technical_foul"
	FlagrantFoul  EventType = "flagrant_foul"
	YellowCard    EventType = "yellow_card"
	RedCard       EventType = "red_card"
)

// Metadata keys understood by the football engine.
const (
	MetaOffside          = "isOffside"
	MetaOwnGoal          = "isOwnGoal"
	MetaSecondYellow     = "secondYellowCard"
	MetaOriginalYellowID = "originalYellowCardId"
)

// Draft is an event as submitted by an operator, before the engine assigns
// identity, points and a verdict.
type Draft struct {
	MatchID      string         `json:"matchId"`
	Team         match.Team     `json:"team"`
	EventType    EventType      `json:"eventType"`
	PlayerID     string         `json:"playerId,omitempty"`
	PlayerName   string         `json:"playerName,omitempty"`
	PlayerNumber *int           `json:"playerNumber,omitempty"`
	Period       int            `json:"period"`
	// GameClock defaults to the context's game clock when nil.
	GameClock    *int           `json:"gameClock,omitempty"`
	ShotClock    *int           `json:"shotClock,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ScoreEvent is one recorded scoring-relevant occurrence.
type ScoreEvent struct {
	ID              string         `json:"id"`
	MatchID         string         `json:"matchId"`
	Team            match.Team     `json:"team"`
	EventType       EventType      `json:"eventType"`
	Points          int            `json:"points"`
	PlayerID        string         `json:"playerId,omitempty"`
	PlayerName      string         `json:"playerName,omitempty"`
	PlayerNumber    *int           `json:"playerNumber,omitempty"`
	Period          int            `json:"period"`
	GameClock       int            `json:"gameClock"`
	ShotClock       *int           `json:"shotClock,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	IsValid         bool           `json:"isValid"`
	ValidationError string         `json:"validationError,omitempty"`
	Warning         string         `json:"warning,omitempty"`
	Metadata        map[string]any `json:"metadata"`
}

func (e ScoreEvent) metaBool(key string) bool {
	v, ok := e.Metadata[key].(bool)
	return ok && v
}

func (e ScoreEvent) metaString(key string) string {
	v, _ := e.Metadata[key].(string)
	return v
}

func (e ScoreEvent) clone() ScoreEvent {
	e.Metadata = maps.Clone(e.Metadata)
	if e.PlayerNumber != nil {
		n := *e.PlayerNumber
		e.PlayerNumber = &n
	}
	if e.ShotClock != nil {
		n := *e.ShotClock
		e.ShotClock = &n
	}
	return e
}

type PeriodScore struct {
	Period int `json:"period"`
	Home   int `json:"home"`
	Away   int `json:"away"`
}

// MatchContext is the live state an engine validates against.
type MatchContext struct {
	Sport          match.Sport   `json:"sport"`
	CurrentPeriod  int           `json:"currentPeriod"`
	PeriodDuration int           `json:"periodDuration"`
	GameClock      int           `json:"gameClock"`
	ShotClock      *int          `json:"shotClock,omitempty"`
	IsOvertime     bool          `json:"isOvertime"`
	HomeScore      int           `json:"homeScore"`
	AwayScore      int           `json:"awayScore"`
	HomeFouls      int           `json:"homeFouls"`
	AwayFouls      int           `json:"awayFouls"`
	HomeTimeouts   int           `json:"homeTimeouts"`
	AwayTimeouts   int           `json:"awayTimeouts"`
	PeriodScores   []PeriodScore `json:"periodScores"`
}

func (c MatchContext) clone() MatchContext {
	if c.ShotClock != nil {
		n := *c.ShotClock
		c.ShotClock = &n
	}
	c.PeriodScores = append([]PeriodScore{}, c.PeriodScores...)
	return c
}

func (c *MatchContext) score(t match.Team) *int {
	if t == match.Home {
		return &c.HomeScore
	}
	return &c.AwayScore
}

func (c *MatchContext) fouls(t match.Team) *int {
	if t == match.Home {
		return &c.HomeFouls
	}
	return &c.AwayFouls
}

func (c *MatchContext) timeouts(t match.Team) *int {
	if t == match.Home {
		return &c.HomeTimeouts
	}
	return &c.AwayTimeouts
}

// ContextUpdate is a partial MatchContext. Nil fields are left untouched.
type ContextUpdate struct {
	CurrentPeriod  *int          `json:"currentPeriod,omitempty"`
	PeriodDuration *int          `json:"periodDuration,omitempty"`
	GameClock      *int          `json:"gameClock,omitempty"`
	ShotClock      *int          `json:"shotClock,omitempty"`
	IsOvertime     *bool         `json:"isOvertime,omitempty"`
	HomeScore      *int          `json:"homeScore,omitempty"`
	AwayScore      *int          `json:"awayScore,omitempty"`
	HomeFouls      *int          `json:"homeFouls,omitempty"`
	AwayFouls      *int          `json:"awayFouls,omitempty"`
	HomeTimeouts   *int          `json:"homeTimeouts,omitempty"`
	AwayTimeouts   *int          `json:"awayTimeouts,omitempty"`
	PeriodScores   []PeriodScore `json:"periodScores,omitempty"`
}

func (u ContextUpdate) apply(c *MatchContext) {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&c.CurrentPeriod, u.CurrentPeriod)
	setInt(&c.PeriodDuration, u.PeriodDuration)
	setInt(&c.GameClock, u.GameClock)
	setInt(&c.HomeScore, u.HomeScore)
	setInt(&c.AwayScore, u.AwayScore)
	setInt(&c.HomeFouls, u.HomeFouls)
	setInt(&c.AwayFouls, u.AwayFouls)
	setInt(&c.HomeTimeouts, u.HomeTimeouts)
	setInt(&c.AwayTimeouts, u.AwayTimeouts)
	if u.ShotClock != nil {
		n := *u.ShotClock
		c.ShotClock = &n
	}
	if u.IsOvertime != nil {
		c.IsOvertime = *u.IsOvertime
	}
	if u.PeriodScores != nil {
		c.PeriodScores = append([]PeriodScore{}, u.PeriodScores...)
	}
}

// Verdict is the outcome of validating an event.
type Verdict struct {
	Valid   bool
	Error   string
	Warning string
}

func accept() Verdict { return Verdict{Valid: true} }

func reject(msg string) Verdict { return Verdict{Error: msg} }

func acceptWithWarning(w string) Verdict { return Verdict{Valid: true, Warning: w} }

// Rule describes how one event type scores and when it is legal.
type Rule struct {
	Sport             match.Sport
	EventType         EventType
	Points            int
	RequiresPlayer    bool
	RequiresShotClock bool
	AllowedPeriods    []int // empty means any period
	Validate          func(ev ScoreEvent, ctx MatchContext) Verdict
}

func (r Rule) allows(period int) bool {
	if len(r.AllowedPeriods) == 0 {
		return true
	}
	for _, p := range r.AllowedPeriods {
		if p == period {
			return true
		}
	}
	return false
}

// PeriodCount is the number of recorded events per side in one period.
type PeriodCount struct {
	Period     int `json:"period"`
	HomeEvents int `json:"homeEvents"`
	AwayEvents int `json:"awayEvents"`
}

type Summary struct {
	TotalEvents int               `json:"totalEvents"`
	ByPeriod    []PeriodCount     `json:"byPeriod"`
	ByType      map[EventType]int `json:"byType"`
}

type History struct {
	MatchID string       `json:"matchId"`
	Sport   match.Sport  `json:"sport"`
	Events  []ScoreEvent `json:"events"`
	Summary Summary      `json:"summary"`
}
