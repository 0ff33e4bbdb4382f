package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
)

// CreateMatchRequest is the request body for POST /api/matches. Zero
// durations and counts take the sport defaults.
type CreateMatchRequest struct {
	Sport              match.Sport     `json:"sport"`
	HomeTeam           string          `json:"homeTeam"`
	AwayTeam           string          `json:"awayTeam"`
	PeriodCount        int             `json:"periodCount,omitempty"`
	PeriodDurationMs   int64           `json:"periodDurationMs,omitempty"`
	OvertimeDurationMs int64           `json:"overtimeDurationMs,omitempty"`
	TimeoutsPerTeam    int             `json:"timeoutsPerTeam,omitempty"`
	RuleOverrides      json.RawMessage `json:"ruleOverrides,omitempty"`
}

// MatchResponse is a stored match.
type MatchResponse struct {
	ID                 string          `json:"id"`
	Sport              match.Sport     `json:"sport"`
	HomeTeam           string          `json:"homeTeam"`
	AwayTeam           string          `json:"awayTeam"`
	PeriodCount        int             `json:"periodCount"`
	PeriodDurationMs   int64           `json:"periodDurationMs"`
	OvertimeDurationMs int64           `json:"overtimeDurationMs"`
	TimeoutsPerTeam    int             `json:"timeoutsPerTeam"`
	RuleOverrides      json.RawMessage `json:"ruleOverrides,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func toMatchResponse(s match.Settings) MatchResponse {
	resp := MatchResponse{
		ID:                 s.ID,
		Sport:              s.Sport,
		HomeTeam:           s.HomeTeam,
		AwayTeam:           s.AwayTeam,
		PeriodCount:        s.PeriodCount,
		PeriodDurationMs:   s.PeriodDuration.Milliseconds(),
		OvertimeDurationMs: s.OvertimeDuration.Milliseconds(),
		TimeoutsPerTeam:    s.TimeoutsPerTeam,
		CreatedAt:          s.CreatedAt,
	}
	if len(s.RuleOverrides) > 0 {
		resp.RuleOverrides = json.RawMessage(s.RuleOverrides)
	}
	return resp
}

func (req CreateMatchRequest) validate() string {
	switch {
	case strings.TrimSpace(req.HomeTeam) == "" || strings.TrimSpace(req.AwayTeam) == "":
		return "homeTeam and awayTeam are required"
	case req.PeriodCount < 0 || req.PeriodDurationMs < 0 || req.OvertimeDurationMs < 0 || req.TimeoutsPerTeam < 0:
		return "counts and durations cannot be negative"
	}
	if _, err := scoring.ParseOverrides(req.RuleOverrides); err != nil {
		return "invalid ruleOverrides"
	}
	return ""
}

func handleCreateMatch(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateMatchRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !req.Sport.Valid() {
			writeError(w, http.StatusUnprocessableEntity, "unknown sport")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		s, err := withDefaults(match.Settings{
			Sport:            req.Sport,
			HomeTeam:         strings.TrimSpace(req.HomeTeam),
			AwayTeam:         strings.TrimSpace(req.AwayTeam),
			PeriodCount:      req.PeriodCount,
			PeriodDuration:   msDuration(req.PeriodDurationMs),
			OvertimeDuration: msDuration(req.OvertimeDurationMs),
			TimeoutsPerTeam:  req.TimeoutsPerTeam,
			RuleOverrides:    req.RuleOverrides,
		})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "unknown sport")
			return
		}

		created, err := c.store.CreateMatch(r.Context(), s)
		if err != nil {
			c.logger.Error("creating match", "error", err)
			writeError(w, http.StatusInternalServerError, "creating match")
			return
		}
		c.logger.Info("match created", "match_id", created.ID, "sport", created.Sport)
		writeJSON(w, http.StatusCreated, toMatchResponse(created))
	}
}

func handleListMatches(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := c.store.ListMatches(r.Context())
		if err != nil {
			c.logger.Error("listing matches", "error", err)
			writeError(w, http.StatusInternalServerError, "listing matches")
			return
		}
		out := make([]MatchResponse, 0, len(matches))
		for _, m := range matches {
			out = append(out, toMatchResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetMatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toMatchResponse(matchFrom(r)))
	}
}

// handleDeleteMatch removes the settings and tears down the live state.
func handleDeleteMatch(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		err := c.store.DeleteMatch(r.Context(), s.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			c.logger.Error("deleting match", "match_id", s.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "deleting match")
			return
		}
		c.Teardown(s.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}
