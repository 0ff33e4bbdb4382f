// Package scoring validates and applies officiating events against
// sport-specific rule tables and keeps the per-match score bookkeeping.
//
// Engines are safe for concurrent use; every public method serializes on a
// per-engine mutex.
package scoring

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

var (
	ErrUnknownSport = errors.New("unknown sport")
	ErrNoEngine     = errors.New("no scoring engine for match")
)

// Engine is the sport-agnostic contract. The set of implementations is
// closed: *Basketball and *Football.
type Engine interface {
	Sport() match.Sport
	MatchID() string
	AddEvent(d Draft) ScoreEvent
	Undo(eventID string) bool
	History() History
	Rejected() []ScoreEvent
	UpdateContext(u ContextUpdate)
	Context() MatchContext
	Reset()

	sealed()
}

type Option func(*core)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// WithIDGenerator overrides event identity generation.
func WithIDGenerator(gen func() string) Option {
	return func(c *core) { c.newID = gen }
}

func WithMatchID(id string) Option {
	return func(c *core) { c.matchID = id }
}

func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// core holds what every sport variant shares. Methods ending in Locked
// expect mu to be held by the caller.
type core struct {
	mu       sync.Mutex
	sport    match.Sport
	matchID  string
	rules    map[EventType]Rule
	ctx      MatchContext
	history  []ScoreEvent
	rejected []ScoreEvent
	now      func() time.Time
	newID    func() string
}

func (c *core) init(sport match.Sport, ctx MatchContext, opts []Option) {
	ctx = ctx.clone()
	ctx.Sport = sport
	if ctx.CurrentPeriod == 0 {
		ctx.CurrentPeriod = 1
	}
	c.sport = sport
	c.ctx = ctx
	c.rules = make(map[EventType]Rule)
	c.now = time.Now
	c.newID = newUUID
	for _, opt := range opts {
		opt(c)
	}
}

func (c *core) addRule(r Rule) {
	r.Sport = c.sport
	c.rules[r.EventType] = r
}

func (c *core) sealed() {}

func (c *core) Sport() match.Sport { return c.sport }

func (c *core) MatchID() string { return c.matchID }

// Rule returns the rule for an event type, if the sport has one.
func (c *core) Rule(t EventType) (Rule, bool) {
	r, ok := c.rules[t]
	return r, ok
}

func (c *core) newEventLocked(d Draft) ScoreEvent {
	ev := ScoreEvent{
		ID:           c.newID(),
		MatchID:      d.MatchID,
		Team:         d.Team,
		EventType:    d.EventType,
		PlayerID:     d.PlayerID,
		PlayerName:   d.PlayerName,
		PlayerNumber: d.PlayerNumber,
		Period:       d.Period,
		GameClock:    c.ctx.GameClock,
		ShotClock:    d.ShotClock,
		Timestamp:    c.now(),
		Metadata:     maps.Clone(d.Metadata),
	}
	if ev.MatchID == "" {
		ev.MatchID = c.matchID
	}
	if ev.Period == 0 {
		ev.Period = c.ctx.CurrentPeriod
	}
	if d.GameClock != nil {
		ev.GameClock = *d.GameClock
	}
	if ev.Metadata == nil {
		ev.Metadata = map[string]any{}
	}
	if r, ok := c.rules[ev.EventType]; ok {
		ev.Points = r.Points
	}
	return ev.clone()
}

func (c *core) validateLocked(ev ScoreEvent) Verdict {
	if !ev.Team.Valid() {
		return reject(fmt.Sprintf("invalid team %q", ev.Team))
	}
	r, ok := c.rules[ev.EventType]
	if !ok {
		return reject(fmt.Sprintf("unsupported event type %q for %s", ev.EventType, c.sport))
	}
	if !r.allows(ev.Period) {
		return reject(fmt.Sprintf("%s is not allowed in period %d", ev.EventType, ev.Period))
	}
	if r.RequiresPlayer && ev.PlayerID == "" {
		return reject(fmt.Sprintf("%s requires a player", ev.EventType))
	}
	if r.Validate != nil {
		return r.Validate(ev, c.ctx.clone())
	}
	return accept()
}

// commitLocked stamps the verdict on ev. Valid events are applied and
// appended to history, invalid ones go to the rejected log.
func (c *core) commitLocked(ev ScoreEvent, v Verdict) ScoreEvent {
	ev.IsValid = v.Valid
	ev.ValidationError = v.Error
	ev.Warning = v.Warning
	if !v.Valid {
		c.rejected = append(c.rejected, ev)
		return ev.clone()
	}
	c.applyLocked(ev, 1)
	c.history = append(c.history, ev)
	return ev.clone()
}

func (c *core) applyLocked(ev ScoreEvent, sign int) {
	delta := sign * ev.Points
	*c.ctx.score(ev.Team) += delta

	i := slices.IndexFunc(c.ctx.PeriodScores, func(p PeriodScore) bool { return p.Period == ev.Period })
	if i < 0 {
		if sign < 0 {
			return
		}
		c.ctx.PeriodScores = append(c.ctx.PeriodScores, PeriodScore{Period: ev.Period})
		i = len(c.ctx.PeriodScores) - 1
	}
	if ev.Team == match.Home {
		c.ctx.PeriodScores[i].Home += delta
	} else {
		c.ctx.PeriodScores[i].Away += delta
	}
}

// removeLocked takes the event out of history and reverses its score. The
// period entry is dropped again once no recorded event refers to it and it
// is back to 0-0.
func (c *core) removeLocked(eventID string) (ScoreEvent, bool) {
	i := slices.IndexFunc(c.history, func(e ScoreEvent) bool { return e.ID == eventID })
	if i < 0 {
		return ScoreEvent{}, false
	}
	ev := c.history[i]
	c.history = slices.Delete(c.history, i, i+1)
	c.applyLocked(ev, -1)

	if slices.ContainsFunc(c.history, func(e ScoreEvent) bool { return e.Period == ev.Period }) {
		return ev, true
	}
	c.ctx.PeriodScores = slices.DeleteFunc(c.ctx.PeriodScores, func(p PeriodScore) bool {
		return p.Period == ev.Period && p.Home == 0 && p.Away == 0
	})
	return ev, true
}

func (c *core) Undo(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.removeLocked(eventID)
	return ok
}

func (c *core) History() History {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := History{
		MatchID: c.matchID,
		Sport:   c.sport,
		Events:  make([]ScoreEvent, 0, len(c.history)),
		Summary: Summary{
			TotalEvents: len(c.history),
			ByPeriod:    []PeriodCount{},
			ByType:      map[EventType]int{},
		},
	}
	byPeriod := map[int]*PeriodCount{}
	for _, ev := range c.history {
		h.Events = append(h.Events, ev.clone())
		h.Summary.ByType[ev.EventType]++
		pc, ok := byPeriod[ev.Period]
		if !ok {
			pc = &PeriodCount{Period: ev.Period}
			byPeriod[ev.Period] = pc
		}
		if ev.Team == match.Home {
			pc.HomeEvents++
		} else {
			pc.AwayEvents++
		}
	}
	for _, p := range slices.Sorted(maps.Keys(byPeriod)) {
		h.Summary.ByPeriod = append(h.Summary.ByPeriod, *byPeriod[p])
	}
	return h
}

func (c *core) Rejected() []ScoreEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ScoreEvent, 0, len(c.rejected))
	for _, ev := range c.rejected {
		out = append(out, ev.clone())
	}
	return out
}

func (c *core) UpdateContext(u ContextUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u.apply(&c.ctx)
}

func (c *core) Context() MatchContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx.clone()
}

func (c *core) resetLocked() {
	c.history = nil
	c.rejected = nil
	c.ctx.HomeScore = 0
	c.ctx.AwayScore = 0
	c.ctx.PeriodScores = []PeriodScore{}
}

func (c *core) countLocked(team match.Team, types ...EventType) int {
	n := 0
	for _, ev := range c.history {
		if ev.Team == team && slices.Contains(types, ev.EventType) {
			n++
		}
	}
	return n
}

// percentage returns made/attempted*100 rounded to two decimals, or 0 when
// nothing was attempted.
func percentage(made, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return math.Round(float64(made)/float64(attempted)*10000) / 100
}

func periods(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		out = append(out, p)
	}
	return out
}
