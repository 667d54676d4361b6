package machine

import (
	"io"
	"testing"

	"fluidnc/internal/errs"
	"fluidnc/internal/job"
	"fluidnc/internal/planner"
)

type nullSource struct{}

func (nullSource) ReadLine() (string, error) { return "", io.EOF }
func (nullSource) Position() int64           { return 0 }
func (nullSource) Rewind(int64) error        { return nil }
func (nullSource) Save() error               { return nil }
func (nullSource) Restore() error            { return nil }
func (nullSource) IsFile() bool              { return true }

type fakeRouter struct{}

func (fakeRouter) SendOK()              {}
func (fakeRouter) SendError(c errs.Code) {}
func (fakeRouter) Name() string          { return "leader" }

func newTestMachine() *Machine {
	pl := planner.New(16, 0.02)
	jobs := job.NewStack(nullSource{}, fakeRouter{})
	return New(pl, jobs, NewOverrides(25))
}

func TestCycleStartFromIdleRequiresQueuedBlocks(t *testing.T) {
	m := newTestMachine()
	if st := m.Handle(Event{Kind: EvCycleStart}); st != Idle {
		t.Fatalf("CycleStart with empty planner from Idle should stay Idle, got %v", st)
	}
}

func TestFeedHoldThenCycleStartResumes(t *testing.T) {
	m := newTestMachine()
	m.mu.Lock()
	m.state = Cycle
	m.mu.Unlock()

	if st := m.Handle(Event{Kind: EvFeedHold}); st != Hold {
		t.Fatalf("FeedHold from Cycle should go to Hold, got %v", st)
	}
	if st := m.Handle(Event{Kind: EvCycleStart}); st != Cycle {
		t.Fatalf("CycleStart from Hold should resume Cycle, got %v", st)
	}
}

func TestFeedHoldDoesNotAffectJog(t *testing.T) {
	m := newTestMachine()
	m.mu.Lock()
	m.state = Jog
	m.mu.Unlock()
	if st := m.Handle(Event{Kind: EvFeedHold}); st != Jog {
		t.Fatalf("FeedHold must not affect Jog, got %v", st)
	}
}

func TestAlarmRaisedForcesAlarmAndBlocksMotion(t *testing.T) {
	m := newTestMachine()
	m.mu.Lock()
	m.state = Cycle
	m.mu.Unlock()
	st := m.Handle(Event{Kind: EvAlarmRaised})
	if st != Alarm {
		t.Fatalf("AlarmRaised should force Alarm, got %v", st)
	}
	if m.CanHome() {
		t.Error("CanHome should be false in Alarm unless explicitly allowed")
	}
	st = m.Handle(Event{Kind: EvUnlock})
	if st != Idle {
		t.Fatalf("$X unlock from Alarm should go to Idle, got %v", st)
	}
}

func TestConfigAlarmOnlyLeavesViaReload(t *testing.T) {
	m := newTestMachine()
	m.EnterConfigAlarm()
	if st := m.Handle(Event{Kind: EvUnlock}); st != ConfigAlarm {
		t.Fatalf("$X must not clear ConfigAlarm, got %v", st)
	}
	if st := m.Handle(Event{Kind: EvReset}); st != ConfigAlarm {
		t.Fatalf("Reset must not clear ConfigAlarm, got %v", st)
	}
	m.ReloadConfig()
	if m.State() != Idle {
		t.Fatalf("config reload should clear ConfigAlarm, got %v", m.State())
	}
}

func TestResetMidStrokeEntersAlarm(t *testing.T) {
	m := newTestMachine()
	m.mu.Lock()
	m.state = Cycle
	m.mu.Unlock()
	st := m.Handle(Event{Kind: EvReset})
	if st != Alarm {
		t.Fatalf("Reset while Cycle was in progress should enter Alarm, got %v", st)
	}
}

func TestFeedOverrideClampsToRange(t *testing.T) {
	ov := NewOverrides(25)
	ov.AdjustFeed(1000)
	if ov.FeedPct() != 200 {
		t.Errorf("feed override should clamp at 200, got %d", ov.FeedPct())
	}
	ov.AdjustFeed(-1000)
	if ov.FeedPct() != 10 {
		t.Errorf("feed override should clamp at 10, got %d", ov.FeedPct())
	}
}
