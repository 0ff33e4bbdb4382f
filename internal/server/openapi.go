package server

import (
	"encoding/json"
	"net/http"
	"strings"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/huarongfei/Event-Control-System/internal/scoring"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type matchPath struct {
	MatchID string `path:"matchID"`
}

type eventPath struct {
	MatchID string `path:"matchID"`
	EventID string `path:"eventID"`
}

type adjustPath struct {
	MatchID   string `path:"matchID"`
	TimerType string `path:"timerType" enum:"game,period,shot_clock,timeout"`
	Op        string `path:"op" enum:"set,add,subtract"`
}

// pathParams picks the parameter struct matching the placeholders of path.
func pathParams(path string) any {
	switch {
	case strings.Contains(path, "{eventID}"):
		return eventPath{}
	case strings.Contains(path, "{timerType}"):
		return adjustPath{}
	case strings.Contains(path, "{matchID}"):
		return matchPath{}
	}
	return nil
}

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               any
	respStatus                         int
	errors                             []int
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Event Control System API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Operator console API for live scoring and match clocks.")

	const m = "/api/matches/{matchID}"
	ops := []operation{
		{http.MethodGet, "/healthz", "Health check", "Returns the health status of backend dependencies.",
			nil, HealthResponse{}, http.StatusOK, []int{http.StatusServiceUnavailable}},
		{http.MethodPost, "/api/matches", "Create match", "Stores match settings. Zero values take the sport defaults.",
			CreateMatchRequest{}, MatchResponse{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusUnprocessableEntity}},
		{http.MethodGet, "/api/matches", "List matches", "Returns all stored matches, newest first.",
			nil, []MatchResponse{}, http.StatusOK, nil},
		{http.MethodGet, m, "Get match", "Returns the stored settings of a match.",
			nil, MatchResponse{}, http.StatusOK, []int{http.StatusNotFound}},
		{http.MethodDelete, m, "Delete match", "Deletes the match and tears down its engine and timers.",
			nil, nil, http.StatusNoContent, []int{http.StatusNotFound}},

		{http.MethodPost, m + "/score/events", "Record score event", "Validates and records an event. Invalid events come back with isValid false.",
			scoring.Draft{}, scoring.ScoreEvent{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnprocessableEntity}},
		{http.MethodDelete, m + "/score/events/{eventID}", "Undo score event", "Removes a recorded event and reverses its points.",
			nil, scoring.MatchContext{}, http.StatusOK, []int{http.StatusNotFound}},
		{http.MethodGet, m + "/score/history", "Score history", "Returns accepted events with a summary.",
			nil, scoring.History{}, http.StatusOK, nil},
		{http.MethodGet, m + "/score/rejected", "Rejected events", "Returns events that failed validation.",
			nil, []scoring.ScoreEvent{}, http.StatusOK, nil},
		{http.MethodGet, m + "/score/context", "Match context", "Returns the live scoring context.",
			nil, scoring.MatchContext{}, http.StatusOK, nil},
		{http.MethodPut, m + "/score/clock", "Update context", "Merges a partial context, usually clock values.",
			scoring.ContextUpdate{}, scoring.MatchContext{}, http.StatusOK, []int{http.StatusBadRequest}},
		{http.MethodPost, m + "/score/fouls", "Record foul", "Basketball only. Counts a team foul and records the event.",
			FoulRequest{}, FoulResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusConflict}},
		{http.MethodPost, m + "/score/timeouts", "Record timeout", "Basketball only. Spends a timeout and starts the timeout clock.",
			TimeoutRequest{}, scoring.ScoreEvent{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusConflict}},
		{http.MethodPost, m + "/score/cards", "Record card", "Football only. Two yellows add a red card.",
			CardRequest{}, CardResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusConflict}},
		{http.MethodPost, m + "/score/shot-clock", "Reset shot clock", "Basketball only. Resets the shot clock value and timer.",
			ShotClockRequest{}, scoring.MatchContext{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusConflict}},
		{http.MethodGet, m + "/score/stats", "Team statistics", "Returns per-team statistics for the match's sport.",
			nil, StatsResponse{}, http.StatusOK, nil},
		{http.MethodPost, m + "/score/reset", "Reset score", "Clears history and scores.",
			nil, scoring.MatchContext{}, http.StatusOK, nil},

		{http.MethodGet, m + "/timers", "Timer states", "Returns the match's timer set.",
			nil, timer.Snapshot{}, http.StatusOK, []int{http.StatusUnprocessableEntity}},
		{http.MethodDelete, m + "/timers", "Destroy timers", "Stops and releases the match's timers.",
			nil, nil, http.StatusNoContent, []int{http.StatusNotFound}},
		{http.MethodPost, m + "/timers/start", "Start period", "Starts the current period and the game clock.",
			nil, timer.Snapshot{}, http.StatusOK, nil},
		{http.MethodPost, m + "/timers/pause", "Pause period", "Pauses the current period and the game clock.",
			nil, timer.Snapshot{}, http.StatusOK, nil},
		{http.MethodPost, m + "/timers/end-period", "End period", "Stops the current period clock.",
			nil, timer.Snapshot{}, http.StatusOK, nil},
		{http.MethodPost, m + "/timers/next-period", "Next period", "Ends the current period and starts the next, entering overtime past the regular count.",
			nil, timer.Snapshot{}, http.StatusOK, nil},
		{http.MethodPut, m + "/timers/{timerType}/{op}", "Adjust timer", "Sets, adds or subtracts milliseconds on one clock.",
			AdjustRequest{}, timer.Snapshot{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusNotFound}},
		{http.MethodPost, m + "/timers/shot-clock/reset", "Reset shot clock timer", "Resets to the full or offensive rebound value.",
			ShotClockResetRequest{}, timer.Snapshot{}, http.StatusOK, []int{http.StatusBadRequest}},
		{http.MethodPost, m + "/timers/shot-clock/start", "Start shot clock", "",
			nil, timer.Snapshot{}, http.StatusOK, nil},
		{http.MethodPost, m + "/timers/shot-clock/pause", "Pause shot clock", "",
			nil, timer.Snapshot{}, http.StatusOK, nil},
		{http.MethodPost, m + "/timers/timeout", "Start timeout clock", "Replaces the timeout clock and starts it.",
			StartTimeoutRequest{}, timer.Snapshot{}, http.StatusOK, []int{http.StatusBadRequest}},
	}

	for _, op := range ops {
		oc, _ := r.NewOperationContext(op.method, op.path)
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if params := pathParams(op.path); params != nil {
			oc.AddReqStructure(params)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.respStatus))
		for _, status := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}

	// GET /api/matches/{matchID}/live
	live, _ := r.NewOperationContext(http.MethodGet, m+"/live")
	live.SetSummary("Live event stream")
	live.SetDescription("Server-Sent Events carrying score:updated and timer notifications.")
	live.AddReqStructure(matchPath{})
	live.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(live)

	// GET /ws/matches/{matchID}
	ws, _ := r.NewOperationContext(http.MethodGet, "/ws/matches/{matchID}")
	ws.SetSummary("Live WebSocket feed")
	ws.SetDescription("Upgrades to a WebSocket that pushes the same messages as the live stream.")
	ws.AddReqStructure(matchPath{})
	ws.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(ws)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
