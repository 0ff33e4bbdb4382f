package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

func newTestFootball(t *testing.T, rules FootballRules) *Football {
	t.Helper()
	ctx := DefaultContext(match.SportFootball, 2700, 0)
	return NewFootball(ctx, rules, WithMatchID("f1"), sequentialIDs())
}

func TestFootball_OwnGoalThenPenalty(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())

	og := f.AddEvent(Draft{
		Team:      match.Home,
		EventType: OwnGoal,
		PlayerID:  "h4",
		Period:    1,
		Metadata:  map[string]any{MetaOffside: false},
	})
	require.True(t, og.IsValid, og.ValidationError)
	assert.Equal(t, match.Away, og.Team, "own goal is stored against the credited team")
	assert.Equal(t, true, og.Metadata[MetaOwnGoal])

	ctx := f.Context()
	assert.Equal(t, 0, ctx.HomeScore)
	assert.Equal(t, 1, ctx.AwayScore)

	pen := f.AddEvent(Draft{Team: match.Away, EventType: PenaltyGoal, PlayerID: "a9", Period: 2})
	require.True(t, pen.IsValid)
	assert.Equal(t, 2, f.Context().AwayScore)
	assert.Equal(t, 0, f.Context().HomeScore)

	stored := f.History().Events[0]
	assert.Equal(t, match.Away, stored.Team)
	assert.Equal(t, true, stored.Metadata[MetaOwnGoal])
}

func TestFootball_OwnGoalUndo(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	before := f.Context()

	og := f.AddEvent(Draft{Team: match.Away, EventType: OwnGoal, PlayerID: "a2", Period: 1})
	require.Equal(t, 1, f.Context().HomeScore)

	require.True(t, f.Undo(og.ID))
	assert.Equal(t, before, f.Context())
}

func TestFootball_OffsideGoalRejected(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())

	// No player either; offside must still be the reported reason.
	ev := f.AddEvent(Draft{Team: match.Home, EventType: Goal, Period: 1, Metadata: map[string]any{MetaOffside: true}})

	assert.False(t, ev.IsValid)
	assert.Contains(t, ev.ValidationError, "offside")
	assert.Equal(t, 0, f.Context().HomeScore)
}

func TestFootball_OffsideRuleDisabled(t *testing.T) {
	rules := DefaultFootballRules()
	rules.OffsideRule = false
	f := newTestFootball(t, rules)

	ev := f.AddEvent(Draft{Team: match.Home, EventType: Goal, PlayerID: "h9", Period: 1, Metadata: map[string]any{MetaOffside: true}})

	assert.True(t, ev.IsValid, ev.ValidationError)
	assert.Equal(t, 1, f.Context().HomeScore)
}

func TestFootball_SecondYellowAddsOneRedCard(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	yellow := Draft{Team: match.Home, EventType: YellowCard, PlayerID: "h5", Period: 1}

	first := f.AddEvent(yellow)
	require.True(t, first.IsValid)
	assert.False(t, f.IsPlayerSentOff("h5"))
	assert.Len(t, f.History().Events, 1)

	second := f.AddEvent(yellow)
	require.True(t, second.IsValid)
	assert.NotEmpty(t, second.Warning)

	events := f.History().Events
	require.Len(t, events, 3, "two yellows plus one synthetic red")
	red := events[2]
	assert.Equal(t, RedCard, red.EventType)
	assert.NotEqual(t, second.ID, red.ID)
	assert.Equal(t, true, red.Metadata[MetaSecondYellow])
	assert.Equal(t, second.ID, red.Metadata[MetaOriginalYellowID])

	assert.True(t, f.IsPlayerSentOff("h5"))
	assert.Equal(t, 2, f.YellowCards(match.Home))
	assert.Equal(t, 1, f.RedCards(match.Home))
	assert.Equal(t, 10, f.PlayersOnField(match.Home))
	assert.Equal(t, 11, f.PlayersOnField(match.Away))
}

func TestFootball_UndoSecondYellowRemovesRed(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	yellow := Draft{Team: match.Away, EventType: YellowCard, PlayerID: "a3", Period: 2}

	f.AddEvent(yellow)
	second := f.AddEvent(yellow)
	require.True(t, f.IsPlayerSentOff("a3"))

	require.True(t, f.Undo(second.ID))
	assert.False(t, f.IsPlayerSentOff("a3"))
	assert.Equal(t, 1, f.YellowCards(match.Away))
	assert.Equal(t, 0, f.RedCards(match.Away))
	assert.Len(t, f.History().Events, 1)
}

func TestFootball_UndoSecondYellowRedTakesBackTheYellow(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	yellow := Draft{Team: match.Away, EventType: YellowCard, PlayerID: "a4", Period: 1}

	f.AddEvent(yellow)
	f.AddEvent(yellow)
	events := f.History().Events
	require.Len(t, events, 3)
	red := events[2]
	require.Equal(t, RedCard, red.EventType)

	require.True(t, f.Undo(red.ID))
	assert.False(t, f.IsPlayerSentOff("a4"))
	assert.Equal(t, 0, f.RedCards(match.Away))
	assert.Equal(t, 1, f.YellowCards(match.Away))
	assert.Equal(t, 11, f.PlayersOnField(match.Away))
	assert.Len(t, f.History().Events, 1)

	again := f.AddEvent(yellow)
	require.True(t, again.IsValid, again.ValidationError)
	assert.Equal(t, 1, f.RedCards(match.Away), "the next second yellow sends off again")
	assert.True(t, f.IsPlayerSentOff("a4"))
}

func TestFootball_CardsForSentOffPlayerRejected(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	yellow := Draft{Team: match.Home, EventType: YellowCard, PlayerID: "h8", Period: 1}
	f.AddEvent(yellow)
	f.AddEvent(yellow)
	require.True(t, f.IsPlayerSentOff("h8"))

	third := f.AddEvent(yellow)
	assert.False(t, third.IsValid)
	assert.Contains(t, third.ValidationError, "sent off")

	red := f.AddEvent(Draft{Team: match.Home, EventType: RedCard, PlayerID: "h8", Period: 1})
	assert.False(t, red.IsValid)

	assert.Equal(t, 2, f.YellowCards(match.Home))
	assert.Equal(t, 1, f.RedCards(match.Home))
	assert.Len(t, f.Rejected(), 2)

	other := f.AddEvent(Draft{Team: match.Away, EventType: YellowCard, PlayerID: "h8", Period: 1})
	assert.True(t, other.IsValid, "the same id on the other side is a different player")
}

func TestFootball_YellowCardsAreCountedPerTeam(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())

	f.AddEvent(Draft{Team: match.Home, EventType: YellowCard, PlayerID: "7", Period: 1})
	f.AddEvent(Draft{Team: match.Away, EventType: YellowCard, PlayerID: "7", Period: 1})

	assert.False(t, f.IsPlayerSentOff("7"), "same shirt id on both sides is two players")
	assert.Equal(t, 1, f.YellowCards(match.Home))
	assert.Equal(t, 1, f.YellowCards(match.Away))
}

func TestFootball_DirectRedCard(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	f.AddEvent(Draft{Team: match.Home, EventType: RedCard, PlayerID: "h2", Period: 1})
	assert.True(t, f.IsPlayerSentOff("h2"))

	rules := DefaultFootballRules()
	rules.DirectRedCardEjection = false
	lenient := newTestFootball(t, rules)
	lenient.AddEvent(Draft{Team: match.Home, EventType: RedCard, PlayerID: "h2", Period: 1})
	assert.False(t, lenient.IsPlayerSentOff("h2"))
	assert.Equal(t, 1, lenient.RedCards(match.Home))
}

func TestFootball_PlayersOnFieldFloor(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	for i := 0; i < 6; i++ {
		f.AddEvent(Draft{Team: match.Away, EventType: RedCard, PlayerID: string(rune('a' + i)), Period: 1})
	}
	assert.Equal(t, 7, f.PlayersOnField(match.Away))
}

func TestFootball_Substitutions(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	for i := 0; i < 5; i++ {
		require.True(t, f.CanSubstitute(match.Home))
		f.AddEvent(Draft{Team: match.Home, EventType: Substitution, PlayerID: "h1", Period: 2})
	}
	assert.False(t, f.CanSubstitute(match.Home))
	assert.Equal(t, 0, f.RemainingSubstitutions(match.Home))
	assert.Equal(t, 5, f.RemainingSubstitutions(match.Away))
}

func TestFootball_PenaltyConversionRate(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	assert.Equal(t, 0.0, f.PenaltyConversionRate(match.Home))

	f.AddEvent(Draft{Team: match.Home, EventType: PenaltyGoal, PlayerID: "h10", Period: 1})
	f.AddEvent(Draft{Team: match.Home, EventType: MissedPenalty, PlayerID: "h10", Period: 1})
	f.AddEvent(Draft{Team: match.Home, EventType: MissedPenalty, PlayerID: "h11", Period: 2})

	assert.Equal(t, 33.33, f.PenaltyConversionRate(match.Home))
}

func TestFootball_Stats(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	f.AddEvent(Draft{Team: match.Home, EventType: Goal, PlayerID: "h9", Period: 1})
	f.AddEvent(Draft{Team: match.Home, EventType: OwnGoal, PlayerID: "h3", Period: 1})
	f.AddEvent(Draft{Team: match.Away, EventType: PenaltyGoal, PlayerID: "a9", Period: 2})

	home := f.Stats(match.Home)
	assert.Equal(t, 1, home.Goals)
	assert.Equal(t, 1, home.Score)
	assert.Equal(t, 2, home.GoalsConceded)
	assert.Equal(t, 1, home.OwnGoalsConceded)

	away := f.Stats(match.Away)
	assert.Equal(t, 1, away.Goals)
	assert.Equal(t, 2, away.Score)
	assert.Equal(t, 100.0, away.PenaltyConversionRate)
	assert.Equal(t, 0, away.OwnGoalsConceded)
}

func TestFootball_Reset(t *testing.T) {
	f := newTestFootball(t, DefaultFootballRules())
	f.AddEvent(Draft{Team: match.Home, EventType: YellowCard, PlayerID: "h5", Period: 1})
	f.AddEvent(Draft{Team: match.Home, EventType: Goal, PlayerID: "h9", Period: 1})

	f.Reset()

	assert.Equal(t, 0, f.Context().HomeScore)
	assert.Empty(t, f.Context().PeriodScores)
	assert.Empty(t, f.History().Events)
	assert.Equal(t, 0, f.YellowCards(match.Home))
	assert.Equal(t, DefaultFootballRules(), f.Rules())
}
