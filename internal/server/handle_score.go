package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

// FoulRequest is the request body for POST .../score/fouls.
type FoulRequest struct {
	Team         match.Team        `json:"team"`
	PlayerID     string            `json:"playerId"`
	PlayerName   string            `json:"playerName,omitempty"`
	PlayerNumber *int              `json:"playerNumber,omitempty"`
	Kind         scoring.EventType `json:"kind,omitempty"`
	Period       int               `json:"period,omitempty"`
	GameClock    *int              `json:"gameClock,omitempty"`
}

// TimeoutRequest is the request body for POST .../score/timeouts.
type TimeoutRequest struct {
	Team       match.Team `json:"team"`
	Period     int        `json:"period,omitempty"`
	GameClock  *int       `json:"gameClock,omitempty"`
	DurationMs int64      `json:"durationMs,omitempty"`
}

// CardRequest is the request body for POST .../score/cards.
type CardRequest struct {
	Team         match.Team `json:"team"`
	PlayerID     string     `json:"playerId"`
	PlayerName   string     `json:"playerName,omitempty"`
	PlayerNumber *int       `json:"playerNumber,omitempty"`
	Color        string     `json:"color"`
	Period       int        `json:"period,omitempty"`
	GameClock    *int       `json:"gameClock,omitempty"`
}

// CardResponse reports the card and whether the player is now off.
type CardResponse struct {
	Event         scoring.ScoreEvent `json:"event"`
	PlayerSentOff bool               `json:"playerSentOff"`
	YellowCards   int                `json:"yellowCards"`
	RedCards      int                `json:"redCards"`
}

// FoulResponse reports the foul and the resulting penalty situation.
type FoulResponse struct {
	Event           scoring.ScoreEvent `json:"event"`
	InBonus         bool               `json:"inBonus"`
	InDoubleBonus   bool               `json:"inDoubleBonus"`
	PlayerFouledOut bool               `json:"playerFouledOut"`
}

// ShotClockRequest is the request body for POST .../score/shot-clock.
type ShotClockRequest struct {
	Reset string `json:"reset"`
}

// StatsResponse holds per-team statistics of the match's sport.
type StatsResponse struct {
	Home any `json:"home"`
	Away any `json:"away"`
}

// engineFor writes the error response itself when no engine can serve s.
func engineFor(w http.ResponseWriter, c *Console, s match.Settings) (scoring.Engine, bool) {
	eng, err := c.Engine(s)
	if errors.Is(err, scoring.ErrUnknownSport) {
		writeError(w, http.StatusUnprocessableEntity, "no scoring rules for "+string(s.Sport))
		return nil, false
	}
	if err != nil {
		c.logger.Error("building scoring engine", "match_id", s.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "scoring engine unavailable")
		return nil, false
	}
	return eng, true
}

func basketballFor(w http.ResponseWriter, c *Console, s match.Settings) (*scoring.Basketball, bool) {
	eng, ok := engineFor(w, c, s)
	if !ok {
		return nil, false
	}
	b, ok := eng.(*scoring.Basketball)
	if !ok {
		writeError(w, http.StatusConflict, "not a basketball match")
	}
	return b, ok
}

func footballFor(w http.ResponseWriter, c *Console, s match.Settings) (*scoring.Football, bool) {
	eng, ok := engineFor(w, c, s)
	if !ok {
		return nil, false
	}
	f, ok := eng.(*scoring.Football)
	if !ok {
		writeError(w, http.StatusConflict, "not a football match")
	}
	return f, ok
}

// handleAddEvent returns the stamped event whether or not it was valid.
func handleAddEvent(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var d scoring.Draft
		if err := readJSON(r, &d); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		eng, ok := engineFor(w, c, s)
		if !ok {
			return
		}

		d.MatchID = s.ID
		ev := eng.AddEvent(d)
		if ev.IsValid {
			c.PublishScore(r.Context(), ScoreUpdate{MatchID: s.ID, Event: &ev, Context: eng.Context()})
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func handleUndoEvent(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		eng, ok := engineFor(w, c, s)
		if !ok {
			return
		}
		eventID := chi.URLParam(r, "eventID")
		if !eng.Undo(eventID) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		ctx := eng.Context()
		c.PublishScore(r.Context(), ScoreUpdate{MatchID: s.ID, Undone: eventID, Context: ctx})
		writeJSON(w, http.StatusOK, ctx)
	}
}

func handleHistory(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, ok := engineFor(w, c, matchFrom(r))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, eng.History())
	}
}

func handleRejected(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, ok := engineFor(w, c, matchFrom(r))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, eng.Rejected())
	}
}

func handleScoreContext(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, ok := engineFor(w, c, matchFrom(r))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, eng.Context())
	}
}

// handleUpdateClock merges a partial context, typically the clock values
// pushed by the operator console.
func handleUpdateClock(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var u scoring.ContextUpdate
		if err := readJSON(r, &u); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		eng, ok := engineFor(w, c, s)
		if !ok {
			return
		}
		eng.UpdateContext(u)
		ctx := eng.Context()
		c.PublishScore(r.Context(), ScoreUpdate{MatchID: s.ID, Context: ctx})
		writeJSON(w, http.StatusOK, ctx)
	}
}

// handleRecordFoul counts a team foul before recording the event, so the
// event's warning reflects the new total.
func handleRecordFoul(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var req FoulRequest
		if err := readJSON(r, &req); err != nil || !req.Team.Valid() {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Kind == "" {
			req.Kind = scoring.Foul
		}
		switch req.Kind {
		case scoring.Foul, scoring.TechnicalFoul, scoring.FlagrantFoul:
		default:
			writeError(w, http.StatusBadRequest, "kind must be foul, technical_foul or flagrant_foul")
			return
		}

		b, ok := basketballFor(w, c, s)
		if !ok {
			return
		}
		if req.Kind == scoring.Foul {
			b.RecordFoul(req.Team, req.PlayerID)
		}
		ev := b.AddEvent(scoring.Draft{
			Team:         req.Team,
			EventType:    req.Kind,
			PlayerID:     req.PlayerID,
			PlayerName:   req.PlayerName,
			PlayerNumber: req.PlayerNumber,
			Period:       req.Period,
			GameClock:    req.GameClock,
		})
		// A rejected team foul still moved the foul count.
		if ev.IsValid || req.Kind == scoring.Foul {
			u := ScoreUpdate{MatchID: s.ID, Context: b.Context()}
			if ev.IsValid {
				u.Event = &ev
			}
			c.PublishScore(r.Context(), u)
		}
		writeJSON(w, http.StatusOK, FoulResponse{
			Event:           ev,
			InBonus:         b.IsInBonus(req.Team),
			InDoubleBonus:   b.IsInDoubleBonus(req.Team),
			PlayerFouledOut: req.PlayerID != "" && b.IsPlayerFouledOut(req.PlayerID),
		})
	}
}

// handleRecordTimeout spends a timeout only when the event is accepted, then
// stops the period clock and runs the timeout clock.
func handleRecordTimeout(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var req TimeoutRequest
		if err := readJSON(r, &req); err != nil || !req.Team.Valid() || req.DurationMs < 0 {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		b, ok := basketballFor(w, c, s)
		if !ok {
			return
		}

		ev := b.AddEvent(scoring.Draft{
			Team:      req.Team,
			EventType: scoring.Timeout,
			Period:    req.Period,
			GameClock: req.GameClock,
		})
		if ev.IsValid {
			b.RecordTimeout(req.Team)
			if m, err := c.Timers(s); err == nil {
				d := defaultTimeoutDuration
				if req.DurationMs > 0 {
					d = msDuration(req.DurationMs)
				}
				m.PauseCurrentPeriod()
				m.StartTimeout(d)
			}
			c.PublishScore(r.Context(), ScoreUpdate{MatchID: s.ID, Event: &ev, Context: b.Context()})
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func handleRecordCard(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var req CardRequest
		if err := readJSON(r, &req); err != nil || !req.Team.Valid() {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		var kind scoring.EventType
		switch req.Color {
		case "yellow":
			kind = scoring.YellowCard
		case "red":
			kind = scoring.RedCard
		default:
			writeError(w, http.StatusBadRequest, "color must be yellow or red")
			return
		}
		f, ok := footballFor(w, c, s)
		if !ok {
			return
		}

		ev := f.AddEvent(scoring.Draft{
			Team:         req.Team,
			EventType:    kind,
			PlayerID:     req.PlayerID,
			PlayerName:   req.PlayerName,
			PlayerNumber: req.PlayerNumber,
			Period:       req.Period,
			GameClock:    req.GameClock,
		})
		if ev.IsValid {
			c.PublishScore(r.Context(), ScoreUpdate{MatchID: s.ID, Event: &ev, Context: f.Context()})
		}
		writeJSON(w, http.StatusOK, CardResponse{
			Event:         ev,
			PlayerSentOff: req.PlayerID != "" && f.IsPlayerSentOff(req.PlayerID),
			YellowCards:   f.YellowCards(req.Team),
			RedCards:      f.RedCards(req.Team),
		})
	}
}

// handleShotClock resets the engine's shot clock value and the running shot
// clock timer together.
func handleShotClock(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var req ShotClockRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		reset, ok := parseShotClockReset(req.Reset)
		if !ok {
			writeError(w, http.StatusBadRequest, "reset must be full or offensive_rebound")
			return
		}
		b, ok := basketballFor(w, c, s)
		if !ok {
			return
		}

		if reset == timer.ResetOffensiveRebound {
			b.ResetShotClockOnOffensiveRebound()
		} else {
			b.ResetShotClock()
		}
		if m, err := c.Timers(s); err == nil {
			m.ResetShotClock(reset)
		}
		ctx := b.Context()
		c.PublishScore(r.Context(), ScoreUpdate{MatchID: s.ID, Context: ctx})
		writeJSON(w, http.StatusOK, ctx)
	}
}

func handleStats(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, ok := engineFor(w, c, matchFrom(r))
		if !ok {
			return
		}
		switch e := eng.(type) {
		case *scoring.Basketball:
			writeJSON(w, http.StatusOK, StatsResponse{Home: e.Stats(match.Home), Away: e.Stats(match.Away)})
		case *scoring.Football:
			writeJSON(w, http.StatusOK, StatsResponse{Home: e.Stats(match.Home), Away: e.Stats(match.Away)})
		default:
			writeError(w, http.StatusUnprocessableEntity, "no statistics for this sport")
		}
	}
}

func handleResetScore(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		eng, ok := engineFor(w, c, s)
		if !ok {
			return
		}
		eng.Reset()
		ctx := eng.Context()
		c.logger.Info("score reset", "match_id", s.ID)
		c.PublishScore(r.Context(), ScoreUpdate{MatchID: s.ID, Context: ctx})
		writeJSON(w, http.StatusOK, ctx)
	}
}
