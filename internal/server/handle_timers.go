package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

const defaultTimeoutDuration = 60 * time.Second

// AdjustRequest is the request body for PUT .../timers/{timerType}/{op}.
type AdjustRequest struct {
	ValueMs int64 `json:"valueMs"`
}

// ShotClockResetRequest is the request body for POST .../timers/shot-clock/reset.
type ShotClockResetRequest struct {
	Kind string `json:"kind,omitempty"`
}

// StartTimeoutRequest is the request body for POST .../timers/timeout.
type StartTimeoutRequest struct {
	DurationMs int64 `json:"durationMs,omitempty"`
}

func msDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }

func parseShotClockReset(s string) (timer.ShotClockReset, bool) {
	switch timer.ShotClockReset(s) {
	case "", timer.ResetFull:
		return timer.ResetFull, true
	case timer.ResetOffensiveRebound:
		return timer.ResetOffensiveRebound, true
	}
	return "", false
}

func timersFor(w http.ResponseWriter, c *Console, s match.Settings) (*timer.Manager, bool) {
	m, err := c.Timers(s)
	if errors.Is(err, timer.ErrUnknownSport) {
		writeError(w, http.StatusUnprocessableEntity, "no timer profile for "+string(s.Sport))
		return nil, false
	}
	if err != nil {
		c.logger.Error("building timer manager", "match_id", s.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "timers unavailable")
		return nil, false
	}
	return m, true
}

func handleTimerStates(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		m, ok := timersFor(w, c, s)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, c.Snapshot(s, m))
	}
}

// handleTimerAction runs one manager action and answers with the new
// snapshot. Period changes are mirrored into the scoring context.
func handleTimerAction(c *Console, action func(*timer.Manager)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		m, ok := timersFor(w, c, s)
		if !ok {
			return
		}
		action(m)
		c.SyncPeriod(s, m)
		writeJSON(w, http.StatusOK, c.Snapshot(s, m))
	}
}

func handleAdjustTimer(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var req AdjustRequest
		if err := readJSON(r, &req); err != nil || req.ValueMs < 0 {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		op := timer.AdjustOp(chi.URLParam(r, "op"))
		switch op {
		case timer.OpSet, timer.OpAdd, timer.OpSubtract:
		default:
			writeError(w, http.StatusBadRequest, "op must be set, add or subtract")
			return
		}
		m, ok := timersFor(w, c, s)
		if !ok {
			return
		}

		kind := timer.Kind(chi.URLParam(r, "timerType"))
		err := m.AdjustTimer(kind, op, msDuration(req.ValueMs))
		if errors.Is(err, timer.ErrNoTimer) {
			writeError(w, http.StatusNotFound, "no "+string(kind)+" timer")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, c.Snapshot(s, m))
	}
}

func handleResetShotClockTimer(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var req ShotClockResetRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		kind, ok := parseShotClockReset(req.Kind)
		if !ok {
			writeError(w, http.StatusBadRequest, "kind must be full or offensive_rebound")
			return
		}
		m, ok := timersFor(w, c, s)
		if !ok {
			return
		}
		m.ResetShotClock(kind)
		writeJSON(w, http.StatusOK, c.Snapshot(s, m))
	}
}

func handleStartTimeout(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		var req StartTimeoutRequest
		if err := readJSON(r, &req); err != nil || req.DurationMs < 0 {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		m, ok := timersFor(w, c, s)
		if !ok {
			return
		}
		d := defaultTimeoutDuration
		if req.DurationMs > 0 {
			d = msDuration(req.DurationMs)
		}
		m.StartTimeout(d)
		writeJSON(w, http.StatusOK, c.Snapshot(s, m))
	}
}

func handleDestroyTimers(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		if !c.timers.Remove(s.ID) {
			writeError(w, http.StatusNotFound, "timers not running")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
