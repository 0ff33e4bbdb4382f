package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

func TestAddEventAndUndo(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	base := "/api/matches/" + m.ID + "/score"

	rec := env.do(t, http.MethodPost, base+"/events", scoring.Draft{
		Team:      match.Home,
		EventType: scoring.ThreePointMade,
		PlayerID:  "p23",
		ShotClock: intPtr(8),
	})
	wantStatus(t, rec, http.StatusOK)
	ev := decode[scoring.ScoreEvent](t, rec)
	if !ev.IsValid || ev.Points != 3 || ev.MatchID != m.ID || ev.Period != 1 {
		t.Fatalf("event = %+v", ev)
	}

	ctx := decode[scoring.MatchContext](t, env.do(t, http.MethodGet, base+"/context", nil))
	if ctx.HomeScore != 3 {
		t.Fatalf("homeScore = %d, want 3", ctx.HomeScore)
	}

	rec = env.do(t, http.MethodDelete, base+"/events/"+ev.ID, nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[scoring.MatchContext](t, rec); got.HomeScore != 0 || len(got.PeriodScores) != 0 {
		t.Fatalf("after undo = %+v", got)
	}

	wantStatus(t, env.do(t, http.MethodDelete, base+"/events/"+ev.ID, nil), http.StatusNotFound)
}

func TestInvalidEventIsReturnedAndLogged(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	base := "/api/matches/" + m.ID + "/score"

	rec := env.do(t, http.MethodPost, base+"/events", scoring.Draft{
		Team:      match.Away,
		EventType: scoring.TwoPointMade,
		PlayerID:  "p1",
	})
	wantStatus(t, rec, http.StatusOK)
	ev := decode[scoring.ScoreEvent](t, rec)
	if ev.IsValid || ev.ValidationError == "" {
		t.Fatalf("event = %+v, want rejected", ev)
	}

	rejected := decode[[]scoring.ScoreEvent](t, env.do(t, http.MethodGet, base+"/rejected", nil))
	if len(rejected) != 1 || rejected[0].ID != ev.ID {
		t.Fatalf("rejected = %+v", rejected)
	}
	history := decode[scoring.History](t, env.do(t, http.MethodGet, base+"/history", nil))
	if history.Summary.TotalEvents != 0 {
		t.Fatalf("history has %d events, want 0", history.Summary.TotalEvents)
	}
}

func TestRecordFoulReachesBonus(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	path := "/api/matches/" + m.ID + "/score/fouls"

	var resp FoulResponse
	for i := 0; i < 4; i++ {
		rec := env.do(t, http.MethodPost, path, FoulRequest{Team: match.Away, PlayerID: "p7"})
		wantStatus(t, rec, http.StatusOK)
		resp = decode[FoulResponse](t, rec)
	}

	if !resp.InBonus || resp.InDoubleBonus {
		t.Errorf("bonus = %v, double = %v, want true, false", resp.InBonus, resp.InDoubleBonus)
	}
	if resp.Event.Warning == "" {
		t.Error("fourth foul should carry a bonus warning")
	}
	if resp.PlayerFouledOut {
		t.Error("four fouls should not foul out")
	}
	ctx := decode[scoring.MatchContext](t, env.do(t, http.MethodGet, "/api/matches/"+m.ID+"/score/context", nil))
	if ctx.AwayFouls != 4 {
		t.Errorf("awayFouls = %d, want 4", ctx.AwayFouls)
	}

	rec := env.do(t, http.MethodPost, path, FoulRequest{Team: match.Away, PlayerID: "p7", Kind: "elbow"})
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestRejectedFoulBroadcastsCountOnly(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	path := "/api/matches/" + m.ID + "/score/fouls"
	ch := env.broker.Subscribe(m.ID)
	defer env.broker.Unsubscribe(m.ID, ch)

	// Rejected and no counter change: nothing goes out.
	rec := env.do(t, http.MethodPost, path, FoulRequest{Team: match.Away, Kind: scoring.FlagrantFoul})
	wantStatus(t, rec, http.StatusOK)
	if resp := decode[FoulResponse](t, rec); resp.Event.IsValid {
		t.Fatal("flagrant foul without a player should be rejected")
	}

	// Rejected team foul: the count moved, the event is left out.
	rec = env.do(t, http.MethodPost, path, FoulRequest{Team: match.Away})
	wantStatus(t, rec, http.StatusOK)

	select {
	case data := <-ch:
		var msg struct {
			Event string      `json:"event"`
			Data  ScoreUpdate `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding broadcast: %v", err)
		}
		if msg.Data.Event != nil {
			t.Errorf("broadcast carries rejected event %+v", msg.Data.Event)
		}
		if msg.Data.Context.AwayFouls != 1 {
			t.Errorf("awayFouls = %d, want 1", msg.Data.Context.AwayFouls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast for the team foul")
	}
}

func TestRecordTimeoutStartsTimeoutClock(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	base := "/api/matches/" + m.ID

	wantStatus(t, env.do(t, http.MethodPost, base+"/timers/start", nil), http.StatusOK)

	rec := env.do(t, http.MethodPost, base+"/score/timeouts", TimeoutRequest{Team: match.Home, DurationMs: 30000})
	wantStatus(t, rec, http.StatusOK)
	if ev := decode[scoring.ScoreEvent](t, rec); !ev.IsValid {
		t.Fatalf("timeout rejected: %s", ev.ValidationError)
	}

	ctx := decode[scoring.MatchContext](t, env.do(t, http.MethodGet, base+"/score/context", nil))
	if ctx.HomeTimeouts != defaultTimeoutsPerTeam-1 {
		t.Errorf("homeTimeouts = %d, want %d", ctx.HomeTimeouts, defaultTimeoutsPerTeam-1)
	}

	snap := decode[timer.Snapshot](t, env.do(t, http.MethodGet, base+"/timers", nil))
	if snap.TimeoutTimer == nil || snap.TimeoutTimer.Status != timer.Running {
		t.Fatalf("timeout timer = %+v, want running", snap.TimeoutTimer)
	}
	if snap.TimeoutTimer.InitialTime != 30000 {
		t.Errorf("timeout initial = %d, want 30000", snap.TimeoutTimer.InitialTime)
	}
	if snap.PeriodTimers[0].TimerState.Status != timer.Paused {
		t.Errorf("period status = %s, want paused", snap.PeriodTimers[0].TimerState.Status)
	}
}

func TestTimeoutsRunOut(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	path := "/api/matches/" + m.ID + "/score/timeouts"

	for i := 0; i < defaultTimeoutsPerTeam; i++ {
		wantStatus(t, env.do(t, http.MethodPost, path, TimeoutRequest{Team: match.Away}), http.StatusOK)
	}
	ev := decode[scoring.ScoreEvent](t, env.do(t, http.MethodPost, path, TimeoutRequest{Team: match.Away}))
	if ev.IsValid {
		t.Fatal("timeout accepted with none remaining")
	}
}

func TestWrongSportCommands(t *testing.T) {
	env := newTestEnv(t, Options{})
	bb := env.createMatch(t, match.SportBasketball)
	fb := env.createMatch(t, match.SportFootball)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"card on basketball", "/api/matches/" + bb.ID + "/score/cards", CardRequest{Team: match.Home, PlayerID: "p1", Color: "yellow"}},
		{"foul on football", "/api/matches/" + fb.ID + "/score/fouls", FoulRequest{Team: match.Home, PlayerID: "p1"}},
		{"shot clock on football", "/api/matches/" + fb.ID + "/score/shot-clock", ShotClockRequest{Reset: "full"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantStatus(t, env.do(t, http.MethodPost, tt.path, tt.body), http.StatusConflict)
		})
	}
}

func TestSecondYellowSendsOff(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportFootball)
	path := "/api/matches/" + m.ID + "/score/cards"
	card := CardRequest{Team: match.Away, PlayerID: "p4", Color: "yellow"}

	first := decode[CardResponse](t, env.do(t, http.MethodPost, path, card))
	if first.PlayerSentOff {
		t.Fatal("sent off after one yellow")
	}
	second := decode[CardResponse](t, env.do(t, http.MethodPost, path, card))
	if !second.PlayerSentOff {
		t.Fatal("not sent off after two yellows")
	}
	if second.YellowCards != 2 || second.RedCards != 1 {
		t.Errorf("yellow = %d, red = %d, want 2, 1", second.YellowCards, second.RedCards)
	}

	wantStatus(t, env.do(t, http.MethodPost, path, CardRequest{Team: match.Away, PlayerID: "p4", Color: "green"}), http.StatusBadRequest)
}

func TestScoringUnsupportedSport(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportIceHockey)

	rec := env.do(t, http.MethodGet, "/api/matches/"+m.ID+"/score/context", nil)
	wantStatus(t, rec, http.StatusUnprocessableEntity)

	// Timers still work for sports without scoring rules.
	wantStatus(t, env.do(t, http.MethodGet, "/api/matches/"+m.ID+"/timers", nil), http.StatusOK)
}

func TestStatsAndReset(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportFootball)
	base := "/api/matches/" + m.ID + "/score"

	env.do(t, http.MethodPost, base+"/events", scoring.Draft{Team: match.Home, EventType: scoring.Goal, PlayerID: "p9"})
	env.do(t, http.MethodPost, base+"/events", scoring.Draft{Team: match.Home, EventType: scoring.PenaltyGoal, PlayerID: "p9"})

	rec := env.do(t, http.MethodGet, base+"/stats", nil)
	wantStatus(t, rec, http.StatusOK)
	stats := decode[struct {
		Home scoring.FootballStats `json:"home"`
	}](t, rec)
	if stats.Home.Goals != 2 {
		t.Errorf("home goals = %d, want 2", stats.Home.Goals)
	}

	rec = env.do(t, http.MethodPost, base+"/reset", nil)
	wantStatus(t, rec, http.StatusOK)
	if ctx := decode[scoring.MatchContext](t, rec); ctx.HomeScore != 0 {
		t.Errorf("homeScore after reset = %d", ctx.HomeScore)
	}
}

func TestShotClockResetUpdatesEngineAndTimer(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	base := "/api/matches/" + m.ID

	rec := env.do(t, http.MethodPost, base+"/score/shot-clock", ShotClockRequest{Reset: "offensive_rebound"})
	wantStatus(t, rec, http.StatusOK)
	ctx := decode[scoring.MatchContext](t, rec)
	if ctx.ShotClock == nil || *ctx.ShotClock != 14 {
		t.Fatalf("shotClock = %v, want 14", ctx.ShotClock)
	}

	snap := decode[timer.Snapshot](t, env.do(t, http.MethodGet, base+"/timers", nil))
	if snap.ShotClock == nil || snap.ShotClock.RemainingTime != 14000 {
		t.Fatalf("shot clock timer = %+v, want 14000 remaining", snap.ShotClock)
	}

	wantStatus(t, env.do(t, http.MethodPost, base+"/score/shot-clock", ShotClockRequest{Reset: "half"}), http.StatusBadRequest)
}

func TestUpdateClockMergesContext(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)

	rec := env.do(t, http.MethodPut, "/api/matches/"+m.ID+"/score/clock", scoring.ContextUpdate{GameClock: intPtr(431)})
	wantStatus(t, rec, http.StatusOK)
	ctx := decode[scoring.MatchContext](t, rec)
	if ctx.GameClock != 431 || ctx.CurrentPeriod != 1 {
		t.Fatalf("context = %+v", ctx)
	}
}
