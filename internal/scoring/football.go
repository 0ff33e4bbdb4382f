package scoring

import (
	"fmt"
	"slices"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

const (
	playersPerSide   = 11
	minPlayersOnSide = 7
	maxSubstitutions = 5
)

type FootballRules struct {
	MaxYellowCardsBeforeRed int  `json:"maxYellowCardsBeforeRed"`
	DirectRedCardEjection   bool `json:"directRedCardEjection"`
	OffsideRule             bool `json:"offsideRule"`
}

func DefaultFootballRules() FootballRules {
	return FootballRules{
		MaxYellowCardsBeforeRed: 2,
		DirectRedCardEjection:   true,
		OffsideRule:             true,
	}
}

// Two halves plus two halves of extra time.
var footballPeriods = periods(1, 4)

type cardKey struct {
	team     match.Team
	playerID string
}

type Football struct {
	core
	rules   FootballRules
	yellows map[cardKey]int
}

func NewFootball(ctx MatchContext, rules FootballRules, opts ...Option) *Football {
	f := &Football{rules: rules, yellows: map[cardKey]int{}}
	f.init(match.SportFootball, ctx, opts)

	f.addRule(Rule{
		EventType:      Goal,
		Points:         points(Goal),
		RequiresPlayer: true,
		AllowedPeriods: footballPeriods,
		Validate: func(ev ScoreEvent, _ MatchContext) Verdict {
			if f.offside(ev) {
				return reject("goal disallowed: offside")
			}
			return accept()
		},
	})
	for _, t := range []EventType{PenaltyGoal, OwnGoal, MissedPenalty, Substitution} {
		f.addRule(Rule{
			EventType:      t,
			Points:         points(t),
			RequiresPlayer: true,
			AllowedPeriods: footballPeriods,
		})
	}
	f.addRule(Rule{
		EventType:      RedCard,
		RequiresPlayer: true,
		AllowedPeriods: footballPeriods,
		Validate:       f.rejectSentOff,
	})
	f.addRule(Rule{
		EventType:      YellowCard,
		RequiresPlayer: true,
		AllowedPeriods: footballPeriods,
		Validate: func(ev ScoreEvent, ctx MatchContext) Verdict {
			if v := f.rejectSentOff(ev, ctx); !v.Valid {
				return v
			}
			n := f.yellows[cardKey{ev.Team, ev.PlayerID}]
			if n+1 == f.rules.MaxYellowCardsBeforeRed {
				return acceptWithWarning(fmt.Sprintf("player %s has accumulated %d yellow cards and is sent off", ev.PlayerID, n+1))
			}
			return accept()
		},
	})
	return f
}

func (f *Football) Rules() FootballRules { return f.rules }

// rejectSentOff runs under the engine lock.
func (f *Football) rejectSentOff(ev ScoreEvent, _ MatchContext) Verdict {
	if f.sentOffLocked(ev.Team, ev.PlayerID) {
		return reject(fmt.Sprintf("player %s has already been sent off", ev.PlayerID))
	}
	return accept()
}

func (f *Football) offside(ev ScoreEvent) bool {
	return f.rules.OffsideRule && ev.EventType == Goal && ev.metaBool(MetaOffside)
}

// AddEvent records an event. An offside goal is rejected before any other
// check. Own goals are credited to, and stored against, the opposing team.
// A yellow card that reaches the limit also appends a red card.
func (f *Football) AddEvent(d Draft) ScoreEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev := f.newEventLocked(d)
	if f.offside(ev) {
		return f.commitLocked(ev, reject("goal disallowed: offside"))
	}
	v := f.validateLocked(ev)
	if !v.Valid {
		return f.commitLocked(ev, v)
	}

	switch ev.EventType {
	case OwnGoal:
		ev.Team = ev.Team.Opponent()
		ev.Metadata[MetaOwnGoal] = true
		return f.commitLocked(ev, v)
	case YellowCard:
		ev = f.commitLocked(ev, v)
		f.accumulateYellowLocked(ev)
		return ev
	}
	return f.commitLocked(ev, v)
}

func (f *Football) accumulateYellowLocked(ev ScoreEvent) {
	key := cardKey{ev.Team, ev.PlayerID}
	f.yellows[key]++
	if f.yellows[key] != f.rules.MaxYellowCardsBeforeRed {
		return
	}
	red := ev.clone()
	red.ID = f.newID()
	red.EventType = RedCard
	red.Points = 0
	red.Timestamp = f.now()
	red.Warning = ""
	red.Metadata[MetaSecondYellow] = true
	red.Metadata[MetaOriginalYellowID] = ev.ID
	f.history = append(f.history, red)
}

// Undo removes an event. Undoing a yellow card also takes back the red card
// it triggered, and undoing such a red card takes back its yellow.
func (f *Football) Undo(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if i := slices.IndexFunc(f.history, func(e ScoreEvent) bool { return e.ID == eventID }); i >= 0 {
		if h := f.history[i]; h.EventType == RedCard && h.metaBool(MetaSecondYellow) {
			if id := h.metaString(MetaOriginalYellowID); id != "" {
				eventID = id
			}
		}
	}

	ev, ok := f.removeLocked(eventID)
	if !ok {
		return false
	}
	if ev.EventType != YellowCard {
		return true
	}
	key := cardKey{ev.Team, ev.PlayerID}
	if f.yellows[key] <= 1 {
		delete(f.yellows, key)
	} else {
		f.yellows[key]--
	}
	for _, h := range f.history {
		if h.EventType == RedCard && h.metaString(MetaOriginalYellowID) == ev.ID {
			f.removeLocked(h.ID)
			break
		}
	}
	return true
}

func (f *Football) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	clear(f.yellows)
}

func (f *Football) IsPlayerSentOff(playerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sentOffLocked("", playerID)
}

// sentOffLocked matches the player on either side when team is empty.
func (f *Football) sentOffLocked(team match.Team, playerID string) bool {
	onTeam := func(t match.Team) bool { return team == "" || t == team }
	for _, ev := range f.history {
		if ev.PlayerID != playerID || ev.EventType != RedCard || !onTeam(ev.Team) {
			continue
		}
		if f.rules.DirectRedCardEjection || ev.metaBool(MetaSecondYellow) {
			return true
		}
	}
	for key, n := range f.yellows {
		if key.playerID == playerID && onTeam(key.team) && n >= f.rules.MaxYellowCardsBeforeRed {
			return true
		}
	}
	return false
}

func (f *Football) YellowCards(team match.Team) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.yellowCardsLocked(team)
}

func (f *Football) yellowCardsLocked(team match.Team) int {
	n := 0
	for key, count := range f.yellows {
		if key.team == team {
			n += count
		}
	}
	return n
}

func (f *Football) RedCards(team match.Team) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countLocked(team, RedCard)
}

func (f *Football) PlayersOnField(team match.Team) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playersOnFieldLocked(team)
}

func (f *Football) playersOnFieldLocked(team match.Team) int {
	return max(minPlayersOnSide, playersPerSide-f.countLocked(team, RedCard))
}

func (f *Football) RemainingSubstitutions(team match.Team) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maxSubstitutions - f.countLocked(team, Substitution)
}

func (f *Football) CanSubstitute(team match.Team) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countLocked(team, Substitution) < maxSubstitutions
}

func (f *Football) PenaltyConversionRate(team match.Team) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	scored := f.countLocked(team, PenaltyGoal)
	return percentage(scored, scored+f.countLocked(team, MissedPenalty))
}

type FootballStats struct {
	Team                   match.Team `json:"team"`
	Score                  int        `json:"score"`
	Goals                  int        `json:"goals"`
	GoalsConceded          int        `json:"goalsConceded"`
	OwnGoalsConceded       int        `json:"ownGoalsConceded"`
	PenaltiesScored        int        `json:"penaltiesScored"`
	PenaltiesMissed        int        `json:"penaltiesMissed"`
	PenaltyConversionRate  float64    `json:"penaltyConversionRate"`
	YellowCards            int        `json:"yellowCards"`
	RedCards               int        `json:"redCards"`
	PlayersOnField         int        `json:"playersOnField"`
	RemainingSubstitutions int        `json:"remainingSubstitutions"`
}

// Stats is a consolidated snapshot for one team. OwnGoalsConceded counts own
// goals credited to the other side.
func (f *Football) Stats(team match.Team) FootballStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	scored := f.countLocked(team, PenaltyGoal)
	missed := f.countLocked(team, MissedPenalty)
	return FootballStats{
		Team:                   team,
		Score:                  *f.ctx.score(team),
		Goals:                  f.countLocked(team, Goal, PenaltyGoal),
		GoalsConceded:          *f.ctx.score(team.Opponent()),
		OwnGoalsConceded:       f.countLocked(team.Opponent(), OwnGoal),
		PenaltiesScored:        scored,
		PenaltiesMissed:        missed,
		PenaltyConversionRate:  percentage(scored, scored+missed),
		YellowCards:            f.yellowCardsLocked(team),
		RedCards:               f.countLocked(team, RedCard),
		PlayersOnField:         f.playersOnFieldLocked(team),
		RemainingSubstitutions: maxSubstitutions - f.countLocked(team, Substitution),
	}
}
