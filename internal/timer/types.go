package timer

import "time"

type Kind string

const (
	KindGame       Kind = "game"
	KindPeriod     Kind = "period"
	KindShotClock  Kind = "shot_clock"
	KindPossession Kind = "possession"
	KindTimeout    Kind = "timeout"
)

type Mode string

const (
	Countdown Mode = "countdown"
	CountUp   Mode = "countup"
	Stopwatch Mode = "stopwatch"
)

type Status string

const (
	Idle      Status = "idle"
	Running   Status = "running"
	Paused    Status = "paused"
	Stopped   Status = "stopped"
	Completed Status = "completed"
)

// State is a timer snapshot. Times are in milliseconds.
type State struct {
	ID            string     `json:"id"`
	MatchID       string     `json:"matchId"`
	Type          Kind       `json:"type"`
	Mode          Mode       `json:"mode"`
	Status        Status     `json:"status"`
	CurrentTime   int64      `json:"currentTime"`
	ElapsedTime   int64      `json:"elapsedTime"`
	RemainingTime int64      `json:"remainingTime"`
	InitialTime   int64      `json:"initialTime"`
	LastUpdated   time.Time  `json:"lastUpdated"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	PausedAt      *time.Time `json:"pausedAt,omitempty"`
	StoppedAt     *time.Time `json:"stoppedAt,omitempty"`
}

type EventType string

const (
	EventStart    EventType = "start"
	EventPause    EventType = "pause"
	EventStop     EventType = "stop"
	EventReset    EventType = "reset"
	EventAdjust   EventType = "adjust"
	EventComplete EventType = "complete"
)

// Event is an entry of a timer's transition log.
type Event struct {
	ID        string    `json:"id"`
	TimerID   string    `json:"timerId"`
	MatchID   string    `json:"matchId"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Elapsed   int64     `json:"elapsedTime"`
	Remaining int64     `json:"remainingTime"`
}

// Notification names as seen by live viewers.
const (
	NotifyTimerUpdate    = "timer:update"
	NotifyPeriodComplete = "timer:period:complete"
	NotifyGameComplete   = "timer:game:complete"
)

// Notification is one message on a manager's update channel. Payload is a
// TimerUpdate, PeriodComplete or GameComplete.
type Notification struct {
	Event   string `json:"event"`
	Payload any    `json:"data"`
}

type TimerUpdate struct {
	MatchID   string `json:"matchId"`
	TimerType Kind   `json:"timerType"`
	State     State  `json:"state"`
}

type PeriodComplete struct {
	MatchID   string `json:"matchId"`
	Period    int    `json:"period"`
	FinalTime int64  `json:"finalTime"`
}

type PeriodSummary struct {
	Period      int    `json:"period"`
	Type        string `json:"type"`
	ElapsedTime int64  `json:"elapsedTime"`
	Status      Status `json:"status"`
}

type GameComplete struct {
	MatchID   string          `json:"matchId"`
	FinalTime int64           `json:"finalTime"`
	Periods   []PeriodSummary `json:"periods"`
}

type PeriodScore struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

type PeriodTimer struct {
	Number      int         `json:"number"`
	Type        string      `json:"type"`
	Duration    int64       `json:"duration"`
	TimerState  State       `json:"timerState"`
	IsCompleted bool        `json:"isCompleted"`
	Score       PeriodScore `json:"score"`
}

// Snapshot is the full state of a match's timer set.
type Snapshot struct {
	MatchID         string        `json:"matchId"`
	GameTimer       State         `json:"gameTimer"`
	PeriodTimers    []PeriodTimer `json:"periodTimers"`
	ShotClock       *State        `json:"shotClock,omitempty"`
	PossessionTimer *State        `json:"possessionTimer,omitempty"`
	TimeoutTimer    *State        `json:"timeoutTimer,omitempty"`
	CurrentPeriod   int           `json:"currentPeriod"`
	IsOvertime      bool          `json:"isOvertime"`
}
