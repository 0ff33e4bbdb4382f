package simulate

import (
	"fmt"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

// epoch anchors simulated event timestamps; step n happens n seconds later.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StepResult is the outcome of one step.
type StepResult struct {
	Step    int                 `json:"step"`
	Action  string              `json:"action"`
	Event   *scoring.ScoreEvent `json:"event,omitempty"`
	Undone  string              `json:"undone,omitempty"`
	Home    int                 `json:"home"`
	Away    int                 `json:"away"`
	Failure string              `json:"failure,omitempty"`
}

// Result is the full replay report.
type Result struct {
	Name     string               `json:"name"`
	Sport    match.Sport          `json:"sport"`
	Context  scoring.MatchContext `json:"context"`
	Summary  scoring.Summary      `json:"summary"`
	Rejected int                  `json:"rejected"`
	Stats    map[match.Team]any   `json:"stats"`
	Steps    []StepResult         `json:"steps"`
	Failures []string             `json:"failures,omitempty"`
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

type runner struct {
	script  *Script
	engine  scoring.Engine
	regular int
	events  map[int]string
	result  *Result
}

// Run replays the script through a new engine. Expectation mismatches are
// collected in the result; an error means the script could not run at all.
func Run(s *Script) (*Result, error) {
	overrides, err := s.overrides()
	if err != nil {
		return nil, err
	}
	profile, err := timer.ProfileFor(s.Sport)
	if err != nil {
		return nil, err
	}

	periodDuration := s.PeriodDuration
	if periodDuration == 0 {
		periodDuration = int(profile.Period / time.Second)
	}
	timeouts := s.TimeoutsPerTeam
	if timeouts == 0 {
		timeouts = 3
	}
	matchID := s.MatchID
	if matchID == "" {
		matchID = "sim"
	}

	seq, tick := 0, 0
	engine, err := scoring.New(s.Sport, scoring.DefaultContext(s.Sport, periodDuration, timeouts), overrides,
		scoring.WithMatchID(matchID),
		scoring.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("%s-evt-%d", matchID, seq)
		}),
		scoring.WithClock(func() time.Time { return epoch.Add(time.Duration(tick) * time.Second) }),
	)
	if err != nil {
		return nil, err
	}

	r := &runner{
		script:  s,
		engine:  engine,
		regular: profile.PeriodCount,
		events:  make(map[int]string),
		result:  &Result{Name: s.Name, Sport: s.Sport, Steps: make([]StepResult, 0, len(s.Steps))},
	}
	for i, st := range s.Steps {
		tick = i + 1
		r.step(i+1, st)
	}

	r.result.Context = engine.Context()
	r.result.Summary = engine.History().Summary
	r.result.Rejected = len(engine.Rejected())
	r.result.Stats = stats(engine)
	return r.result, nil
}

func (r *runner) step(n int, st Step) {
	res := StepResult{Step: n, Action: st.Action}

	switch st.Action {
	case ActionEvent:
		res.Event = r.add(st, st.Type)
	case ActionFoul:
		kind := st.Type
		if kind == "" {
			kind = scoring.Foul
		}
		if b, ok := r.engine.(*scoring.Basketball); ok && kind == scoring.Foul {
			b.RecordFoul(st.Team, st.Player)
		}
		res.Event = r.add(st, kind)
	case ActionTimeout:
		res.Event = r.add(st, scoring.Timeout)
		if b, ok := r.engine.(*scoring.Basketball); ok && res.Event.IsValid {
			b.RecordTimeout(st.Team)
		}
	case ActionUndo:
		id, ok := r.events[st.Target]
		if !ok || !r.engine.Undo(id) {
			res.Failure = fmt.Sprintf("step %d has no event to undo", st.Target)
		} else {
			res.Undone = id
		}
	case ActionPeriod:
		overtime := st.Period > r.regular
		r.engine.UpdateContext(scoring.ContextUpdate{CurrentPeriod: &st.Period, IsOvertime: &overtime})
	case ActionShotClock:
		b, ok := r.engine.(*scoring.Basketball)
		switch {
		case !ok:
			res.Failure = "no shot clock in " + string(r.script.Sport)
		case st.Reset == "offensive_rebound":
			b.ResetShotClockOnOffensiveRebound()
		default:
			b.ResetShotClock()
		}
	case ActionClock:
		r.engine.UpdateContext(scoring.ContextUpdate{GameClock: st.GameClock, ShotClock: st.ShotClock})
	}

	ctx := r.engine.Context()
	res.Home, res.Away = ctx.HomeScore, ctx.AwayScore
	if res.Event != nil {
		r.events[n] = res.Event.ID
	}
	if msg := check(st.Expect, res); msg != "" {
		res.Failure = msg
	}
	if res.Failure != "" {
		r.result.Failures = append(r.result.Failures, fmt.Sprintf("step %d (%s): %s", n, st.Action, res.Failure))
	}
	r.result.Steps = append(r.result.Steps, res)
}

func (r *runner) add(st Step, kind scoring.EventType) *scoring.ScoreEvent {
	ev := r.engine.AddEvent(scoring.Draft{
		Team:      st.Team,
		EventType: kind,
		PlayerID:  st.Player,
		Period:    st.Period,
		GameClock: st.GameClock,
		ShotClock: st.ShotClock,
		Metadata:  st.Meta,
	})
	return &ev
}

func check(e *Expect, res StepResult) string {
	if e == nil {
		return ""
	}
	if e.Valid != nil {
		valid := res.Event != nil && res.Event.IsValid
		if valid != *e.Valid {
			reason := ""
			if res.Event != nil {
				reason = res.Event.ValidationError
			}
			return fmt.Sprintf("valid = %v, want %v %s", valid, *e.Valid, reason)
		}
	}
	if e.Points != nil && (res.Event == nil || res.Event.Points != *e.Points) {
		return fmt.Sprintf("points mismatch, want %d", *e.Points)
	}
	if e.Home != nil && res.Home != *e.Home {
		return fmt.Sprintf("home = %d, want %d", res.Home, *e.Home)
	}
	if e.Away != nil && res.Away != *e.Away {
		return fmt.Sprintf("away = %d, want %d", res.Away, *e.Away)
	}
	return ""
}

func stats(e scoring.Engine) map[match.Team]any {
	out := make(map[match.Team]any, 2)
	for _, t := range []match.Team{match.Home, match.Away} {
		switch v := e.(type) {
		case *scoring.Basketball:
			out[t] = v.Stats(t)
		case *scoring.Football:
			out[t] = v.Stats(t)
		}
	}
	return out
}
