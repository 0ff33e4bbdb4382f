package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/broadcast"
	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

const defaultTimeoutsPerTeam = 3

// Console ties persisted match settings to the live engine pair of each
// match and publishes what changes.
type Console struct {
	store   MatchStore
	engines *scoring.Registry
	timers  *timer.Registry
	fanout  *broadcast.Fanout
	logger  *slog.Logger
}

func NewConsole(logger *slog.Logger, store MatchStore, engines *scoring.Registry, timers *timer.Registry, fanout *broadcast.Fanout) *Console {
	return &Console{
		store:   store,
		engines: engines,
		timers:  timers,
		fanout:  fanout,
		logger:  logger,
	}
}

// withDefaults fills zero settings from the sport's timer profile.
func withDefaults(s match.Settings) (match.Settings, error) {
	p, err := timer.ProfileFor(s.Sport)
	if err != nil {
		return s, err
	}
	if s.PeriodCount == 0 {
		s.PeriodCount = p.PeriodCount
	}
	if s.PeriodDuration == 0 {
		s.PeriodDuration = p.Period
	}
	if s.OvertimeDuration == 0 {
		s.OvertimeDuration = p.Overtime
	}
	if s.TimeoutsPerTeam == 0 {
		s.TimeoutsPerTeam = defaultTimeoutsPerTeam
	}
	return s, nil
}

// Engine returns the match's scoring engine, building it from the settings
// on first use.
func (c *Console) Engine(s match.Settings) (scoring.Engine, error) {
	return c.engines.GetOrCreate(s.ID, func() (scoring.Engine, error) {
		overrides, err := scoring.ParseOverrides(s.RuleOverrides)
		if err != nil {
			return nil, err
		}
		ctx := scoring.DefaultContext(s.Sport, int(s.PeriodDuration/time.Second), s.TimeoutsPerTeam)
		eng, err := scoring.New(s.Sport, ctx, overrides, scoring.WithMatchID(s.ID))
		if err != nil {
			return nil, err
		}
		c.logger.Info("scoring engine created", "match_id", s.ID, "sport", s.Sport)
		return eng, nil
	})
}

// Timers returns the match's timer manager, creating it on first use.
func (c *Console) Timers(s match.Settings) (*timer.Manager, error) {
	return c.timers.GetWithSettings(s.ID, s.Sport, timer.Settings{
		PeriodCount:      s.PeriodCount,
		PeriodDuration:   s.PeriodDuration,
		OvertimeDuration: s.OvertimeDuration,
	})
}

// Teardown releases the live state of a match. Safe to call for matches
// that never went live.
func (c *Console) Teardown(matchID string) {
	engine := c.engines.Remove(matchID)
	timers := c.timers.Remove(matchID)
	if engine || timers {
		c.logger.Info("match torn down", "match_id", matchID)
	}
}

// Snapshot is the timer set with period scores taken from the engine.
func (c *Console) Snapshot(s match.Settings, m *timer.Manager) timer.Snapshot {
	snap := m.AllStates()
	eng, err := c.engines.Get(s.ID)
	if err != nil {
		return snap
	}
	scores := make(map[int]scoring.PeriodScore)
	for _, ps := range eng.Context().PeriodScores {
		scores[ps.Period] = ps
	}
	for i := range snap.PeriodTimers {
		if ps, ok := scores[snap.PeriodTimers[i].Number]; ok {
			snap.PeriodTimers[i].Score = timer.PeriodScore{Home: ps.Home, Away: ps.Away}
		}
	}
	return snap
}

// SyncPeriod copies the manager's period into the engine context so events
// default to the running period.
func (c *Console) SyncPeriod(s match.Settings, m *timer.Manager) {
	eng, err := c.engines.Get(s.ID)
	if errors.Is(err, scoring.ErrNoEngine) {
		return
	}
	period, overtime := m.CurrentPeriod(), m.IsOvertime()
	eng.UpdateContext(scoring.ContextUpdate{CurrentPeriod: &period, IsOvertime: &overtime})
}

// ScoreUpdate is the payload of score:updated.
type ScoreUpdate struct {
	MatchID string               `json:"matchId"`
	Event   *scoring.ScoreEvent  `json:"event,omitempty"`
	Undone  string               `json:"undoneEventId,omitempty"`
	Context scoring.MatchContext `json:"context"`
}

func (c *Console) PublishScore(ctx context.Context, u ScoreUpdate) {
	if err := c.fanout.Publish(ctx, u.MatchID, broadcast.EventScoreUpdated, u); err != nil {
		c.logger.Error("publishing score update", "match_id", u.MatchID, "error", err)
	}
}

// ForwardTimers returns a timer registry hook that relays every
// notification of a new manager to the fan-out until the manager is
// destroyed or ctx ends.
func ForwardTimers(ctx context.Context, logger *slog.Logger, fanout *broadcast.Fanout) func(*timer.Manager) {
	return func(m *timer.Manager) {
		go func() {
			for {
				select {
				case n := <-m.Updates():
					if err := fanout.Publish(ctx, m.MatchID(), n.Event, n.Payload); err != nil {
						logger.Error("publishing timer notification", "match_id", m.MatchID(), "event", n.Event, "error", err)
					}
				case <-m.Done():
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}
