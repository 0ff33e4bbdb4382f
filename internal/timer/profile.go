package timer

import (
	"fmt"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

// Profile holds the clock durations of a sport.
type Profile struct {
	Game        time.Duration
	Period      time.Duration
	Overtime    time.Duration
	PeriodCount int
	PeriodLabel string

	// Zero when the sport has no shot clock.
	ShotClock        time.Duration
	OffensiveRebound time.Duration
}

var profiles = map[match.Sport]Profile{
	match.SportBasketball: {
		Game:             48 * time.Minute,
		Period:           12 * time.Minute,
		Overtime:         5 * time.Minute,
		PeriodCount:      4,
		PeriodLabel:      "quarter",
		ShotClock:        24 * time.Second,
		OffensiveRebound: 14 * time.Second,
	},
	match.SportFootball: {
		Game:        90 * time.Minute,
		Period:      45 * time.Minute,
		Overtime:    15 * time.Minute,
		PeriodCount: 2,
		PeriodLabel: "half",
	},
	match.SportIceHockey: {
		Game:        60 * time.Minute,
		Period:      20 * time.Minute,
		Overtime:    20 * time.Minute,
		PeriodCount: 3,
		PeriodLabel: "period",
	},
	match.SportEsports: {
		Game:        60 * time.Minute,
		Period:      15 * time.Minute,
		Overtime:    5 * time.Minute,
		PeriodCount: 4,
		PeriodLabel: "period",
	},
}

func ProfileFor(sport match.Sport) (Profile, error) {
	p, ok := profiles[sport]
	if !ok {
		return Profile{}, fmt.Errorf("timer profile for %q: %w", sport, ErrUnknownSport)
	}
	return p, nil
}

// Settings overrides parts of a sport profile for one match. Zero values
// keep the profile default.
type Settings struct {
	PeriodCount      int
	PeriodDuration   time.Duration
	OvertimeDuration time.Duration
}

func (p Profile) with(s Settings) Profile {
	if s.PeriodCount > 0 {
		p.PeriodCount = s.PeriodCount
	}
	if s.PeriodDuration > 0 {
		p.Period = s.PeriodDuration
		p.Game = time.Duration(p.PeriodCount) * s.PeriodDuration
	}
	if s.OvertimeDuration > 0 {
		p.Overtime = s.OvertimeDuration
	}
	return p
}
