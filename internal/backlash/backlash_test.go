package backlash

import (
	"testing"

	"fluidnc/internal/kinematics"
	"fluidnc/internal/planner"
)

func testConfig() *kinematics.Config {
	cfg := &kinematics.Config{NAxis: 3}
	for i := 0; i < 3; i++ {
		cfg.StepsPerMM[i] = 80
		cfg.MaxRate[i] = 5000
		cfg.Acceleration[i] = 200 * 3600
		cfg.MaxTravel[i] = 1000
	}
	return cfg
}

// TestBacklashReversalScenario reproduces scenario 6: X-axis
// backlash 0.1mm, G1 X1 then G1 X0, expecting exactly two user-visible
// blocks and one hidden 0.1mm correction block between them.
func TestBacklashReversalScenario(t *testing.T) {
	cfg := testConfig()
	pl := planner.New(32, 0.02)
	var backlashMM [kinematics.MaxAxes]float64
	backlashMM[0] = 0.1
	f := New(cfg, backlashMM)

	var origin, x1, x0 [kinematics.MaxAxes]float64
	x1[0] = 1
	x0[0] = 0

	cur := origin
	// First move: no prior direction, so no reversal possible yet.
	if !f.PlanLine(pl, cur, x1, planner.LineData{Feed: 100}) {
		t.Fatal("plan x1 failed")
	}
	cur = x1
	if !f.PlanLine(pl, cur, x0, planner.LineData{Feed: 100}) {
		t.Fatal("plan x0 failed")
	}

	blocks := pl.Snapshot()
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks (move, hidden backlash, move), got %d", len(blocks))
	}
	if blocks[0].Flags.IsBacklash {
		t.Error("first move must not be a hidden block")
	}
	if !blocks[1].Flags.IsBacklash {
		t.Error("expected hidden backlash block between the two real moves")
	}
	if blocks[1].Flags.IsProbe || blocks[1].Flags.IsJog {
		t.Error("hidden backlash blocks must never carry is_probe/is_jog")
	}
	if d := blocks[1].Distance; d < 0.099 || d > 0.101 {
		t.Errorf("hidden block distance = %v, want ~0.1", d)
	}
	if blocks[2].Flags.IsBacklash {
		t.Error("second move must not itself be flagged as backlash")
	}

	if f.prevDirection[0] != planner.Negative {
		t.Errorf("prevDirection after reversal to X0 = %v, want Negative", f.prevDirection[0])
	}
}

func TestBacklashNoReversalNoHiddenBlock(t *testing.T) {
	cfg := testConfig()
	pl := planner.New(32, 0.02)
	var backlashMM [kinematics.MaxAxes]float64
	backlashMM[0] = 0.1
	f := New(cfg, backlashMM)

	var cur, x1, x2 [kinematics.MaxAxes]float64
	x1[0] = 1
	x2[0] = 2

	f.PlanLine(pl, cur, x1, planner.LineData{Feed: 100})
	f.PlanLine(pl, x1, x2, planner.LineData{Feed: 100})

	blocks := pl.Snapshot()
	if len(blocks) != 2 {
		t.Fatalf("same-direction moves must not insert a hidden block, got %d blocks", len(blocks))
	}
}

func TestBacklashDisabledWhenNoAxisConfigured(t *testing.T) {
	cfg := testConfig()
	pl := planner.New(32, 0.02)
	var zero [kinematics.MaxAxes]float64
	f := New(cfg, zero)

	var cur, x1, x0 [kinematics.MaxAxes]float64
	x1[0] = 1
	f.PlanLine(pl, cur, x1, planner.LineData{Feed: 100})
	f.PlanLine(pl, x1, x0, planner.LineData{Feed: 100})

	blocks := pl.Snapshot()
	if len(blocks) != 2 {
		t.Fatalf("backlash disabled: expected 2 blocks, got %d", len(blocks))
	}
}
