package homing

import (
	"testing"

	"fluidnc/internal/backlash"
	"fluidnc/internal/errs"
	"fluidnc/internal/kinematics"
)

type fakeMover struct {
	assertResults [][]bool
	callIdx       int
	motorMM       [kinematics.MaxAxes]float64
	originSet     []int
}

func (m *fakeMover) MoveUntilSwitch(axes []int, positive []bool, rate, maxTravelMM float64) ([]bool, error) {
	res := m.assertResults[m.callIdx]
	m.callIdx++
	return res, nil
}
func (m *fakeMover) MoveAway(axes []int, positive []bool, distanceMM, rate float64) error { return nil }
func (m *fakeMover) SetMotorOrigin(axes []int, originMM []float64)                        { m.originSet = axes }
func (m *fakeMover) CurrentMotorMM() [kinematics.MaxAxes]float64                           { return m.motorMM }

func testCfg() *kinematics.Config {
	cfg := &kinematics.Config{NAxis: 1}
	cfg.StepsPerMM[0] = 80
	return cfg
}

func TestRunCycleHappyPath(t *testing.T) {
	mover := &fakeMover{assertResults: [][]bool{{true}, {true}}}
	bf := backlash.New(testCfg(), [kinematics.MaxAxes]float64{0.1})
	c := NewCoordinator(mover, bf)

	cyc := AxisCycle{Axes: []int{0}, Positive: []bool{false}, SeekRate: 500, FeedRate: 50, PulloffMM: 2, MaxTravelMM: 300, OriginMM: []float64{0}}
	if err := c.RunCycle(cyc); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(mover.originSet) != 1 {
		t.Error("expected SetMotorOrigin to be called for the homed axis")
	}
}

func TestRunCycleAmbiguousSwitchFails(t *testing.T) {
	mover := &fakeMover{assertResults: [][]bool{{true, true}}}
	c := NewCoordinator(mover, nil)
	cyc := AxisCycle{Axes: []int{0, 1}, Positive: []bool{false, false}, SeekRate: 500, FeedRate: 50, PulloffMM: 2, MaxTravelMM: 300, OriginMM: []float64{0, 0}}
	err := c.RunCycle(cyc)
	if code, ok := errs.As(err); !ok || code != errs.HomingAmbiguousSwitch {
		t.Fatalf("expected HomingAmbiguousSwitch, got %v", err)
	}
}

func TestRunCycleNoSwitchAssertedFailsApproach(t *testing.T) {
	mover := &fakeMover{assertResults: [][]bool{{false}}}
	c := NewCoordinator(mover, nil)
	cyc := AxisCycle{Axes: []int{0}, Positive: []bool{false}, SeekRate: 500, FeedRate: 50, PulloffMM: 2, MaxTravelMM: 300, OriginMM: []float64{0}}
	err := c.RunCycle(cyc)
	if code, ok := errs.As(err); !ok || code != errs.HomingFailApproach {
		t.Fatalf("expected HomingFailApproach, got %v", err)
	}
}

func TestProberG382RaisesOnNoContact(t *testing.T) {
	p := NewProber(nil)
	err := p.Finish(G382, ProbeResult{Contacted: false})
	if code, ok := errs.As(err); !ok || code != errs.ProbeFailContact {
		t.Fatalf("expected ProbeFailContact, got %v", err)
	}
}

func TestProberG383SucceedsSilentlyOnNoContact(t *testing.T) {
	p := NewProber(nil)
	if err := p.Finish(G383, ProbeResult{Contacted: false}); err != nil {
		t.Fatalf("G38.3 with no contact must not error, got %v", err)
	}
}
