// Package match defines the core domain types shared by the scoring engine,
// the timer subsystem and the console service.
// It has zero external dependencies.
package match

import "time"

type Sport string

const (
	SportBasketball Sport = "basketball"
	SportFootball   Sport = "football"
	SportIceHockey  Sport = "ice_hockey"
	SportEsports    Sport = "esports"
)

func (s Sport) Valid() bool {
	switch s {
	case SportBasketball, SportFootball, SportIceHockey, SportEsports:
		return true
	}
	return false
}

// Team identifies a side of the match.
type Team string

const (
	Home Team = "home"
	Away Team = "away"
)

func (t Team) Valid() bool { return t == Home || t == Away }

// Opponent returns the other side. Anything that is not Home maps to Home.
func (t Team) Opponent() Team {
	if t == Home {
		return Away
	}
	return Home
}

// Settings is the persisted configuration of a match. The engine pair is
// built from it on first use.
type Settings struct {
	ID               string
	Sport            Sport
	HomeTeam         string
	AwayTeam         string
	PeriodCount      int
	PeriodDuration   time.Duration
	OvertimeDuration time.Duration
	TimeoutsPerTeam  int
	RuleOverrides    []byte // raw JSON, decoded by the scoring layer
	CreatedAt        time.Time
}
