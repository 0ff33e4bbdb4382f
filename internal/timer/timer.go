// Package timer implements match clocks: a single countdown/count-up timer
// state machine, the per-match timer set and the process-wide registry of
// timer sets.
package timer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTickInterval   = 10 * time.Millisecond
	DefaultAutoResetDelay = time.Second
)

// Clock supplies the current time. Elapsed time is always a difference of
// two readings, so time.Now's monotonic component keeps it immune to wall
// clock jumps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Config struct {
	ID             string
	MatchID        string
	Kind           Kind
	Mode           Mode
	Initial        time.Duration
	AutoStart      bool
	AutoReset      bool
	TickInterval   time.Duration
	AutoResetDelay time.Duration
}

type Option func(*Timer)

func WithClock(c Clock) Option {
	return func(t *Timer) { t.clock = c }
}

// WithObserver registers the function called with a snapshot after every
// tick and transition. It must not call back into the timer.
func WithObserver(fn func(State)) Option {
	return func(t *Timer) { t.observer = fn }
}

// Timer is a single clock. All methods are safe for concurrent use and are
// no-ops in states where they do not apply.
type Timer struct {
	cfg      Config
	clock    Clock
	observer func(State)

	// emitMu keeps observer calls in mutation order without holding mu
	// while the observer runs.
	emitMu sync.Mutex

	mu          sync.Mutex
	status      Status
	origin      time.Time     // effective start; valid while running
	elapsed     time.Duration // authoritative when not running
	lastUpdated time.Time
	startedAt   *time.Time
	pausedAt    *time.Time
	stoppedAt   *time.Time
	completedAt time.Time // instant a countdown ran out
	halt        chan struct{}
	autoReset   *time.Timer
	events      []Event
	pending     []State
	destroyed   bool
}

func New(cfg Config, opts ...Option) *Timer {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.AutoResetDelay <= 0 {
		cfg.AutoResetDelay = DefaultAutoResetDelay
	}
	if cfg.Mode == "" {
		cfg.Mode = Countdown
	}
	t := &Timer{cfg: cfg, clock: systemClock{}, status: Idle}
	for _, opt := range opts {
		opt(t)
	}
	t.lastUpdated = t.clock.Now()
	if cfg.AutoStart {
		t.Start()
	}
	return t
}

func (t *Timer) Config() Config { return t.cfg }

// apply runs fn under the state lock, then hands the snapshots fn queued to
// the observer.
func (t *Timer) apply(fn func()) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	observer := t.observer
	fn()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	if observer == nil {
		return
	}
	for _, s := range pending {
		observer(s)
	}
}

func (t *Timer) Start() { t.apply(t.startLocked) }

func (t *Timer) Pause() { t.apply(t.pauseLocked) }

func (t *Timer) Stop() { t.apply(t.stopLocked) }

// Reset returns the timer to idle at its initial value. A timer configured
// with AutoReset that was running starts again right away.
func (t *Timer) Reset() {
	t.apply(func() {
		wasRunning := t.resetLocked()
		if wasRunning && t.cfg.AutoReset {
			t.startLocked()
		}
	})
}

// SetTime sets the displayed value: the remaining time for a countdown, the
// elapsed time otherwise.
func (t *Timer) SetTime(v time.Duration) {
	v = max(0, v)
	t.apply(func() {
		t.adjustLocked(func(time.Duration) time.Duration {
			if t.cfg.Mode == Countdown {
				return t.cfg.Initial - v
			}
			return v
		})
	})
}

// AddTime puts d back on a countdown, or forward on any other mode.
func (t *Timer) AddTime(d time.Duration) {
	t.apply(func() {
		t.adjustLocked(func(elapsed time.Duration) time.Duration {
			if t.cfg.Mode == Countdown {
				return elapsed - d
			}
			return max(0, elapsed+d)
		})
	})
}

func (t *Timer) SubtractTime(d time.Duration) { t.AddTime(-d) }

func (t *Timer) tick() {
	t.apply(func() {
		if t.status != Running {
			return
		}
		if !t.advanceLocked(t.clock.Now()) {
			t.notifyLocked()
		}
	})
}

func (t *Timer) run(halt <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-halt:
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// Snapshot returns the current state, with elapsed time brought up to date
// when the timer is running.
func (t *Timer) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == Running {
		now := t.clock.Now()
		t.elapsed = t.clampLocked(now.Sub(t.origin))
		t.lastUpdated = now
	}
	return t.stateLocked()
}

func (t *Timer) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Destroy stops the timer, cancels a pending auto-reset and detaches the
// observer. Calling it again has no effect.
func (t *Timer) Destroy() {
	t.apply(func() {
		if t.destroyed {
			return
		}
		t.stopLocked()
		t.cancelAutoResetLocked()
		t.destroyed = true
		t.observer = nil
		t.events = nil
	})
}

func (t *Timer) startLocked() {
	if t.destroyed {
		return
	}
	switch t.status {
	case Running, Stopped, Completed:
		return
	}
	now := t.clock.Now()
	// Shifting the origin by the frozen elapsed value is the same as moving
	// the original start forward by every pause.
	t.origin = now.Add(-t.elapsed)
	origin := t.origin
	t.startedAt = &origin
	t.pausedAt = nil
	t.status = Running
	t.lastUpdated = now

	halt := make(chan struct{})
	t.halt = halt
	go t.run(halt)

	t.recordLocked(EventStart, now)
	t.notifyLocked()
}

func (t *Timer) pauseLocked() { t.pauseAtLocked(t.clock.Now()) }

// pauseAt pauses the timer as of an earlier instant of the current run.
func (t *Timer) pauseAt(at time.Time) {
	t.apply(func() { t.pauseAtLocked(at) })
}

func (t *Timer) pauseAtLocked(at time.Time) {
	if t.status != Running {
		return
	}
	if now := t.clock.Now(); at.After(now) {
		at = now
	}
	if at.Before(t.origin) {
		at = t.origin
	}
	if t.advanceLocked(at) {
		return
	}
	t.status = Paused
	t.pausedAt = &at
	t.haltLocked()
	t.recordLocked(EventPause, at)
	t.notifyLocked()
}

// completionTime is the instant the countdown last ran out, zero if it has
// not.
func (t *Timer) completionTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completedAt
}

func (t *Timer) stopLocked() {
	if t.status == Idle || t.status == Stopped {
		return
	}
	now := t.clock.Now()
	if t.status == Running {
		t.elapsed = t.clampLocked(now.Sub(t.origin))
	}
	t.status = Stopped
	t.stoppedAt = &now
	t.lastUpdated = now
	t.haltLocked()
	t.cancelAutoResetLocked()
	t.recordLocked(EventStop, now)
	t.notifyLocked()
}

func (t *Timer) resetLocked() (wasRunning bool) {
	if t.destroyed {
		return false
	}
	wasRunning = t.status == Running
	now := t.clock.Now()
	t.haltLocked()
	t.cancelAutoResetLocked()
	t.status = Idle
	t.elapsed = 0
	t.startedAt = nil
	t.pausedAt = nil
	t.stoppedAt = nil
	t.completedAt = time.Time{}
	t.lastUpdated = now
	t.recordLocked(EventReset, now)
	t.notifyLocked()
	return wasRunning
}

func (t *Timer) adjustLocked(fn func(elapsed time.Duration) time.Duration) {
	if t.destroyed || t.status == Stopped || t.status == Completed {
		return
	}
	now := t.clock.Now()
	running := t.status == Running
	if running {
		t.elapsed = now.Sub(t.origin)
	}
	t.elapsed = fn(t.elapsed)
	if running {
		t.origin = now.Add(-t.elapsed)
	}
	t.lastUpdated = now
	t.recordLocked(EventAdjust, now)
	if running && t.cfg.Mode == Countdown && t.elapsed >= t.cfg.Initial {
		t.completeLocked(now)
		return
	}
	t.notifyLocked()
}

// advanceLocked recomputes elapsed from the clock and completes a countdown
// that ran out. It reports whether the timer completed.
func (t *Timer) advanceLocked(now time.Time) bool {
	t.elapsed = now.Sub(t.origin)
	t.lastUpdated = now
	if t.cfg.Mode == Countdown && t.elapsed >= t.cfg.Initial {
		t.completeLocked(now)
		return true
	}
	return false
}

func (t *Timer) completeLocked(now time.Time) {
	t.completedAt = t.origin.Add(t.cfg.Initial)
	if t.completedAt.After(now) {
		t.completedAt = now
	}
	t.elapsed = t.cfg.Initial
	t.status = Completed
	t.lastUpdated = now
	t.haltLocked()
	t.recordLocked(EventComplete, now)
	t.notifyLocked()
	if t.cfg.AutoReset {
		t.autoReset = time.AfterFunc(t.cfg.AutoResetDelay, t.Reset)
	}
}

func (t *Timer) clampLocked(elapsed time.Duration) time.Duration {
	if t.cfg.Mode == Countdown {
		return min(elapsed, t.cfg.Initial)
	}
	return elapsed
}

func (t *Timer) haltLocked() {
	if t.halt != nil {
		close(t.halt)
		t.halt = nil
	}
}

func (t *Timer) cancelAutoResetLocked() {
	if t.autoReset != nil {
		t.autoReset.Stop()
		t.autoReset = nil
	}
}

func (t *Timer) stateLocked() State {
	s := State{
		ID:          t.cfg.ID,
		MatchID:     t.cfg.MatchID,
		Type:        t.cfg.Kind,
		Mode:        t.cfg.Mode,
		Status:      t.status,
		ElapsedTime: t.elapsed.Milliseconds(),
		InitialTime: t.cfg.Initial.Milliseconds(),
		LastUpdated: t.lastUpdated,
		StartedAt:   copyTime(t.startedAt),
		PausedAt:    copyTime(t.pausedAt),
		StoppedAt:   copyTime(t.stoppedAt),
	}
	if t.cfg.Mode == Countdown {
		s.CurrentTime = max(0, s.InitialTime-s.ElapsedTime)
		s.RemainingTime = s.CurrentTime
	} else {
		s.CurrentTime = s.ElapsedTime
		s.RemainingTime = s.ElapsedTime
	}
	return s
}

func (t *Timer) notifyLocked() {
	if t.observer != nil {
		t.pending = append(t.pending, t.stateLocked())
	}
}

func (t *Timer) recordLocked(typ EventType, now time.Time) {
	if t.destroyed {
		return
	}
	s := t.stateLocked()
	t.events = append(t.events, Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TimerID:   t.cfg.ID,
		MatchID:   t.cfg.MatchID,
		Type:      typ,
		Timestamp: now,
		Elapsed:   s.ElapsedTime,
		Remaining: s.RemainingTime,
	})
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
