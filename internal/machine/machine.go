// Package machine implements the realtime state machine: the top-level
// state, its event dispatcher, and the override percentage cells the
// rest of the pipeline reads atomically. Grounded on the CPU
// run-loop (emul/cpu.go's Step/interrupt dispatch), generalized from
// "one opcode executed per step" to "one event dispatched per call",
// with the override cells modeled as atomic ints rather than
// mutex-guarded fields so the step engine can read them lock-free on
// every block entry.
package machine

import (
	"sync"
	"sync/atomic"

	"fluidnc/internal/errs"
	"fluidnc/internal/job"
	"fluidnc/internal/planner"
)

type State int

const (
	Idle State = iota
	Cycle
	Hold
	Jog
	Homing
	Alarm
	ConfigAlarm
	SafetyDoor
	CheckMode
	Sleep
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Cycle:
		return "Run"
	case Hold:
		return "Hold"
	case Jog:
		return "Jog"
	case Homing:
		return "Home"
	case Alarm:
		return "Alarm"
	case ConfigAlarm:
		return "ConfigAlarm"
	case SafetyDoor:
		return "Door"
	case CheckMode:
		return "Check"
	case Sleep:
		return "Sleep"
	default:
		return "Unknown"
	}
}

// RapidOverride is the closed set of rapid-override steps:
// 100%, 50%, 25%, or a configured low value.
type RapidOverride int32

const (
	Rapid100 RapidOverride = 100
	Rapid50  RapidOverride = 50
	Rapid25  RapidOverride = 25
)

// Overrides holds the realtime-accessible override percents and
// coolant/spindle-stop bits as atomic cells, read by the step engine on
// block entry without taking a lock.
type Overrides struct {
	feedPct     int32
	rapidPct    int32
	spindlePct  int32
	rapidLow    int32
	mistOn      int32
	floodOn     int32
	spindleStop int32
}

func NewOverrides(rapidLow int32) *Overrides {
	if rapidLow <= 0 {
		rapidLow = 25
	}
	return &Overrides{feedPct: 100, rapidPct: int32(Rapid100), spindlePct: 100, rapidLow: rapidLow}
}

func (o *Overrides) FeedPct() int32    { return atomic.LoadInt32(&o.feedPct) }
func (o *Overrides) RapidPct() int32   { return atomic.LoadInt32(&o.rapidPct) }
func (o *Overrides) SpindlePct() int32 { return atomic.LoadInt32(&o.spindlePct) }

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AdjustFeed applies a signed delta to the feed override, clamped to
// 10..200.
func (o *Overrides) AdjustFeed(delta int32) {
	for {
		old := atomic.LoadInt32(&o.feedPct)
		next := clamp32(old+delta, 10, 200)
		if atomic.CompareAndSwapInt32(&o.feedPct, old, next) {
			return
		}
	}
}

func (o *Overrides) AdjustSpindle(delta int32) {
	for {
		old := atomic.LoadInt32(&o.spindlePct)
		next := clamp32(old+delta, 10, 200)
		if atomic.CompareAndSwapInt32(&o.spindlePct, old, next) {
			return
		}
	}
}

// SetRapid selects one of the three rapid steps, or the configured low
// value when r < 0 is passed as a sentinel for "low".
func (o *Overrides) SetRapid(r RapidOverride) {
	if r < 0 {
		o.SetRapidLow()
		return
	}
	atomic.StoreInt32(&o.rapidPct, int32(r))
}

func (o *Overrides) SetRapidLow() {
	atomic.StoreInt32(&o.rapidPct, atomic.LoadInt32(&o.rapidLow))
}

func (o *Overrides) SetMist(on bool)  { atomic.StoreInt32(&o.mistOn, b2i(on)) }
func (o *Overrides) SetFlood(on bool) { atomic.StoreInt32(&o.floodOn, b2i(on)) }
func (o *Overrides) Mist() bool       { return atomic.LoadInt32(&o.mistOn) != 0 }
func (o *Overrides) Flood() bool      { return atomic.LoadInt32(&o.floodOn) != 0 }

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// EventKind enumerates every event the state machine reacts to.
type EventKind int

const (
	EvReset EventKind = iota
	EvStatusReport
	EvCycleStart
	EvFeedHold
	EvSafetyDoor
	EvSafetyDoorClosed
	EvJogCancel
	EvOverrideChange
	EvBlockCompleted
	EvAlarmRaised
	EvProbeTriggered
	EvProbeFailed
	EvMacro
	EvPinEvent
	EvUnlock // $X
)

type Event struct {
	Kind      EventKind
	AlarmCode errs.Code
	Channel   string
	MacroIdx  int
	Pin       int
	PinActive bool
}

// Machine is the single owner of the top-level state. It never itself
// executes G-code or flow control; those call into it only to report
// completion or request transitions.
type Machine struct {
	mu sync.Mutex

	state           State
	motionInterrupted bool
	doorLatched     bool
	configAllowsHomingFromAlarm bool

	Planner   *planner.Planner
	Jobs      *job.Stack
	Overrides *Overrides

	onReset func()
}

func New(pl *planner.Planner, jobs *job.Stack, ov *Overrides) *Machine {
	return &Machine{state: Idle, Planner: pl, Jobs: jobs, Overrides: ov}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetHomingFromAlarmAllowed configures whether $H is accepted while
// Alarm is active and not yet unlocked.
func (m *Machine) SetHomingFromAlarmAllowed(allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configAllowsHomingFromAlarm = allowed
}

// OnReset installs a callback invoked synchronously during Reset
// handling, after the planner is flushed and the job stack unwound, so
// callers can do things like emit the welcome banner.
func (m *Machine) OnReset(fn func()) { m.onReset = fn }

// Handle dispatches one event and returns the resulting state. It is the
// only path by which the top-level state changes.
func (m *Machine) Handle(ev Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case EvReset:
		wasMidStroke := m.state == Cycle || m.state == Hold || m.state == Jog || m.state == Homing
		m.Planner.Flush()
		m.Jobs.Abort()
		m.doorLatched = false
		if wasMidStroke {
			m.state = Alarm
		} else if m.state != ConfigAlarm {
			m.state = Idle
		}
		if m.onReset != nil {
			m.onReset()
		}

	case EvStatusReport:
		// Synchronous emit; state itself is unaffected.

	case EvCycleStart:
		switch m.state {
		case Hold:
			m.state = Cycle
		case Idle:
			if m.Planner.Len() > 0 {
				m.state = Cycle
			}
		case SafetyDoor:
			if !m.doorLatched {
				m.state = Cycle
			}
		}

	case EvFeedHold:
		if m.state == Cycle {
			m.state = Hold
		}
		// Jog is explicitly unaffected

	case EvSafetyDoor:
		m.doorLatched = true
		if m.state == Cycle || m.state == Jog || m.state == Homing {
			m.state = SafetyDoor
		}

	case EvSafetyDoorClosed:
		m.doorLatched = false

	case EvJogCancel:
		if m.state == Jog {
			m.Planner.Flush()
			m.state = Idle
		}

	case EvOverrideChange:
		m.Planner.MarkOverridesDirty()

	case EvBlockCompleted:
		m.Planner.DiscardCurrent()
		if m.state == Cycle && m.Planner.Len() == 0 {
			m.state = Idle
		}

	case EvAlarmRaised:
		m.Planner.Flush()
		m.state = Alarm

	case EvProbeTriggered, EvProbeFailed:
		// Consumed by the homing/probing coordinator; the state
		// machine itself does not transition on these directly.

	case EvMacro:
		// Dispatch is the caller's responsibility (run the configured
		// macro as if received from an internal channel); no state
		// change here.

	case EvPinEvent:
		// Routed to whichever component registered the pin.

	case EvUnlock:
		if m.state == Alarm {
			m.state = Idle
		}
	}

	return m.state
}

// CanHome reports whether $H is currently accepted.
func (m *Machine) CanHome() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == ConfigAlarm {
		return false
	}
	if m.state == Alarm {
		return m.configAllowsHomingFromAlarm
	}
	return m.state == Idle
}

// EnterHoming and ExitHoming bracket a homing cycle run by the
// homing/probing coordinator.
func (m *Machine) EnterHoming() { m.mu.Lock(); m.state = Homing; m.mu.Unlock() }
func (m *Machine) ExitHoming(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.state = Idle
	} else {
		m.state = Alarm
	}
}

// EnterConfigAlarm is called once, at startup, on a fatal configuration
// error; it can only be left by a config reload.
func (m *Machine) EnterConfigAlarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = ConfigAlarm
}

func (m *Machine) ReloadConfig() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == ConfigAlarm {
		m.state = Idle
	}
}
