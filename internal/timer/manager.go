package timer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

var (
	ErrUnknownSport = errors.New("unknown sport")
	ErrNoManager    = errors.New("no timer manager for match")
	ErrNoTimer      = errors.New("no such timer")
)

type ShotClockReset string

const (
	ResetFull             ShotClockReset = "full"
	ResetOffensiveRebound ShotClockReset = "offensive_rebound"
)

type AdjustOp string

const (
	OpSet      AdjustOp = "set"
	OpAdd      AdjustOp = "add"
	OpSubtract AdjustOp = "subtract"
)

const updateBuffer = 256

type managerConfig struct {
	clock          Clock
	tickInterval   time.Duration
	autoResetDelay time.Duration
	logger         *slog.Logger
}

// Manager owns the timer set of one match: the game clock, one clock per
// period (overtime ones created on demand), the basketball shot clock and a
// timeout clock. Managers are created by a Registry.
type Manager struct {
	matchID string
	sport   match.Sport
	profile Profile
	cfg     managerConfig

	updates chan Notification
	done    chan struct{}

	// live is the current period clock, readable without mu.
	live atomic.Pointer[Timer]

	// Completion notices are delivered in order by relay.
	queueMu sync.Mutex
	queue   []completion
	wake    chan struct{}

	mu        sync.Mutex
	game      *Timer
	periods   map[int]*Timer
	shotClock *Timer
	timeout   *Timer
	current   int
	overtime  bool
	destroyed bool
}

func newManager(matchID string, sport match.Sport, profile Profile, cfg managerConfig) *Manager {
	m := &Manager{
		matchID: matchID,
		sport:   sport,
		profile: profile,
		cfg:     cfg,
		updates: make(chan Notification, updateBuffer),
		done:    make(chan struct{}),
		periods: make(map[int]*Timer),
		current: 1,
		wake:    make(chan struct{}, 1),
	}
	m.game = m.newTimer(Config{
		ID:      matchID + "-game",
		Kind:    KindGame,
		Initial: profile.Game,
	}, 0)
	for n := 1; n <= profile.PeriodCount; n++ {
		m.periods[n] = m.newTimer(Config{
			ID:      fmt.Sprintf("%s-period-%d", matchID, n),
			Kind:    KindPeriod,
			Initial: profile.Period,
		}, n)
	}
	if profile.ShotClock > 0 {
		m.shotClock = m.newTimer(Config{
			ID:      matchID + "-shot-clock",
			Kind:    KindShotClock,
			Initial: profile.ShotClock,
		}, 0)
	}
	m.live.Store(m.periods[1])
	go m.relay()
	return m
}

func (m *Manager) newTimer(cfg Config, period int) *Timer {
	cfg.MatchID = m.matchID
	cfg.Mode = Countdown
	cfg.TickInterval = m.cfg.tickInterval
	cfg.AutoResetDelay = m.cfg.autoResetDelay
	var t *Timer
	t = New(cfg, WithClock(m.cfg.clock), WithObserver(func(s State) {
		m.observe(t, s, period)
	}))
	return t
}

type completion struct {
	kind   Kind
	period int
	state  State
}

// observe runs on the emitting timer's call path, where the caller may hold
// the manager lock. A completed current period pauses the game clock at the
// instant it ran out; the period notice is queued first so it is delivered
// before a game completion that pause may cause.
func (m *Manager) observe(t *Timer, s State, period int) {
	m.send(Notification{
		Event:   NotifyTimerUpdate,
		Payload: TimerUpdate{MatchID: m.matchID, TimerType: s.Type, State: s},
	})
	if s.Status != Completed {
		return
	}
	switch s.Type {
	case KindPeriod:
		m.enqueue(completion{kind: KindPeriod, period: period, state: s})
		if t == m.live.Load() {
			m.game.pauseAt(t.completionTime())
		}
	case KindGame:
		m.enqueue(completion{kind: KindGame, state: s})
	}
}

func (m *Manager) enqueue(c completion) {
	m.queueMu.Lock()
	m.queue = append(m.queue, c)
	m.queueMu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// take pops the next completion. With periodsOnly it only takes queued
// period completions.
func (m *Manager) take(periodsOnly bool) (completion, bool) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for i, c := range m.queue {
		if periodsOnly && c.kind != KindPeriod {
			continue
		}
		m.queue = slices.Delete(m.queue, i, i+1)
		return c, true
	}
	return completion{}, false
}

// relay delivers completion notices until the manager is destroyed. Before a
// game completion goes out, the current period clock is brought up to date
// so a period that ran out at the same instant is reported first.
func (m *Manager) relay() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}
		for {
			c, ok := m.take(false)
			if !ok {
				break
			}
			if c.kind == KindGame {
				if p := m.live.Load(); p != nil {
					p.tick()
				}
				for {
					pc, ok := m.take(true)
					if !ok {
						break
					}
					m.periodComplete(pc.period, pc.state)
				}
				m.gameComplete(c.state)
				continue
			}
			m.periodComplete(c.period, c.state)
		}
	}
}

// send drops timer updates a slow consumer has no room for.
func (m *Manager) send(n Notification) {
	select {
	case m.updates <- n:
	default:
	}
}

// sendReliable blocks until the notification is taken or the manager is
// destroyed. Completion notices go through here.
func (m *Manager) sendReliable(n Notification) {
	select {
	case m.updates <- n:
	case <-m.done:
	}
}

func (m *Manager) periodComplete(period int, s State) {
	m.mu.Lock()
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		return
	}

	m.cfg.logger.Info("period complete", "match_id", m.matchID, "period", period)
	m.sendReliable(Notification{
		Event:   NotifyPeriodComplete,
		Payload: PeriodComplete{MatchID: m.matchID, Period: period, FinalTime: s.ElapsedTime},
	})
}

func (m *Manager) gameComplete(s State) {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	summary := m.periodsSummaryLocked()
	m.mu.Unlock()

	m.cfg.logger.Info("game complete", "match_id", m.matchID)
	m.sendReliable(Notification{
		Event:   NotifyGameComplete,
		Payload: GameComplete{MatchID: m.matchID, FinalTime: s.ElapsedTime, Periods: summary},
	})
}

func (m *Manager) MatchID() string { return m.matchID }

func (m *Manager) Sport() match.Sport { return m.sport }

func (m *Manager) Profile() Profile { return m.profile }

// Updates delivers every timer notification of the match. It is never
// closed; select on Done to stop reading.
func (m *Manager) Updates() <-chan Notification { return m.updates }

// Done is closed once the manager is destroyed.
func (m *Manager) Done() <-chan struct{} { return m.done }

// StartCurrentPeriod runs the current period clock together with the game
// clock.
func (m *Manager) StartCurrentPeriod() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.periods[m.current].Start()
	m.game.Start()
}

func (m *Manager) PauseCurrentPeriod() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.periods[m.current].Pause()
	m.game.Pause()
}

func (m *Manager) EndCurrentPeriod() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.endCurrentLocked()
}

func (m *Manager) endCurrentLocked() {
	m.periods[m.current].Stop()
	m.game.Pause()
}

// NextPeriod ends the current period and starts the next one. Periods past
// the regular count are overtime and get a clock on first use.
func (m *Manager) NextPeriod() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.endCurrentLocked()
	m.current++
	if m.current > m.profile.PeriodCount && !m.overtime {
		m.overtime = true
		m.cfg.logger.Info("overtime", "match_id", m.matchID, "period", m.current)
	}
	if _, ok := m.periods[m.current]; !ok {
		m.periods[m.current] = m.newTimer(Config{
			ID:      fmt.Sprintf("%s-ot-%d", m.matchID, m.current),
			Kind:    KindPeriod,
			Initial: m.profile.Overtime,
		}, m.current)
	}
	m.live.Store(m.periods[m.current])
	m.periods[m.current].Start()
	m.game.Start()
}

// ResetShotClock puts the shot clock back to its full duration or to the
// offensive rebound value. A running shot clock keeps running. Matches
// without a shot clock ignore it.
func (m *Manager) ResetShotClock(kind ShotClockReset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || m.shotClock == nil {
		return
	}
	running := m.shotClock.Snapshot().Status == Running
	m.shotClock.Reset()
	if kind == ResetOffensiveRebound {
		m.shotClock.SetTime(m.profile.OffensiveRebound)
	}
	if running {
		m.shotClock.Start()
	}
}

func (m *Manager) StartShotClock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || m.shotClock == nil {
		return
	}
	m.shotClock.Start()
}

func (m *Manager) PauseShotClock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || m.shotClock == nil {
		return
	}
	m.shotClock.Pause()
}

// StartTimeout replaces the timeout clock with a fresh one of length d and
// starts it.
func (m *Manager) StartTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	if m.timeout != nil {
		m.timeout.Destroy()
	}
	m.timeout = m.newTimer(Config{
		ID:      m.matchID + "-timeout",
		Kind:    KindTimeout,
		Initial: d,
	}, 0)
	m.timeout.Start()
}

// AdjustTimer applies a set, add or subtract to one of the match clocks.
// KindPeriod addresses the current period.
func (m *Manager) AdjustTimer(kind Kind, op AdjustOp, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.timerLocked(kind)
	if t == nil {
		return fmt.Errorf("%s timer of match %q: %w", kind, m.matchID, ErrNoTimer)
	}
	switch op {
	case OpSet:
		t.SetTime(d)
	case OpAdd:
		t.AddTime(d)
	case OpSubtract:
		t.SubtractTime(d)
	default:
		return fmt.Errorf("unknown timer operation %q", op)
	}
	return nil
}

func (m *Manager) timerLocked(kind Kind) *Timer {
	if m.destroyed {
		return nil
	}
	switch kind {
	case KindGame:
		return m.game
	case KindPeriod:
		return m.periods[m.current]
	case KindShotClock:
		return m.shotClock
	case KindTimeout:
		return m.timeout
	}
	return nil
}

func (m *Manager) CurrentPeriod() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) IsOvertime() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overtime
}

func (m *Manager) periodLabel(n int) string {
	if n > m.profile.PeriodCount {
		return "overtime"
	}
	return m.profile.PeriodLabel
}

// AllStates snapshots the whole timer set. Period scores are left at zero;
// the scoring engine owns them.
func (m *Manager) AllStates() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		MatchID:       m.matchID,
		GameTimer:     m.game.Snapshot(),
		PeriodTimers:  make([]PeriodTimer, 0, len(m.periods)),
		CurrentPeriod: m.current,
		IsOvertime:    m.overtime,
	}
	for _, n := range slices.Sorted(maps.Keys(m.periods)) {
		t := m.periods[n]
		state := t.Snapshot()
		s.PeriodTimers = append(s.PeriodTimers, PeriodTimer{
			Number:      n,
			Type:        m.periodLabel(n),
			Duration:    t.Config().Initial.Milliseconds(),
			TimerState:  state,
			IsCompleted: n < m.current || state.Status == Completed,
		})
	}
	if m.shotClock != nil {
		sc := m.shotClock.Snapshot()
		s.ShotClock = &sc
	}
	if m.timeout != nil {
		to := m.timeout.Snapshot()
		s.TimeoutTimer = &to
	}
	return s
}

func (m *Manager) periodsSummaryLocked() []PeriodSummary {
	out := make([]PeriodSummary, 0, len(m.periods))
	for _, n := range slices.Sorted(maps.Keys(m.periods)) {
		state := m.periods[n].Snapshot()
		out = append(out, PeriodSummary{
			Period:      n,
			Type:        m.periodLabel(n),
			ElapsedTime: state.ElapsedTime,
			Status:      state.Status,
		})
	}
	return out
}

// Destroy stops and releases every timer. It is idempotent.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.game.Destroy()
	for _, t := range m.periods {
		t.Destroy()
	}
	if m.shotClock != nil {
		m.shotClock.Destroy()
	}
	if m.timeout != nil {
		m.timeout.Destroy()
	}
	close(m.done)
}
