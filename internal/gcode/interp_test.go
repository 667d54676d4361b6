package gcode

import (
	"testing"

	"fluidnc/internal/backlash"
	"fluidnc/internal/errs"
	"fluidnc/internal/flow"
	"fluidnc/internal/job"
	"fluidnc/internal/kinematics"
	"fluidnc/internal/machine"
	"fluidnc/internal/params"
	"fluidnc/internal/planner"
	"fluidnc/internal/spindle"
)

type fakeRouter struct{}

func (fakeRouter) SendOK()                 {}
func (fakeRouter) SendError(errs.Code)     {}
func (fakeRouter) Name() string            { return "test" }

type fakeSpindle struct{}

func (fakeSpindle) SetState(spindle.State, float64) error { return nil }
func (fakeSpindle) GetState() (spindle.State, float64)    { return spindle.Disable, 0 }
func (fakeSpindle) IsRateAdjusted() bool                  { return false }
func (fakeSpindle) SpeedMap() []spindle.SpeedMapPoint      { return nil }

func newTestInterp(t *testing.T) (*Interpreter, *planner.Planner, *params.Store) {
	t.Helper()
	cfg := kinematics.Config{NAxis: 3}
	for i := 0; i < 3; i++ {
		cfg.StepsPerMM[i] = 80
		cfg.MaxRate[i] = 5000
		cfg.Acceleration[i] = 200 * 3600
		cfg.MaxTravel[i] = 500
	}
	xform := kinematics.NewCartesian(&cfg)
	pl := planner.New(16, 0.02)
	bl := backlash.New(&cfg, [kinematics.MaxAxes]float64{})
	store := params.NewStore(params.NewMemStore(), &cfg)
	jobs := job.NewStack(job.RootSource{}, fakeRouter{})
	flowCtl := flow.NewControl()
	mach := machine.New(pl, jobs, machine.NewOverrides(25))
	coolant := &spindle.CoolantMask{}
	it := New(&cfg, xform, bl, pl, store, jobs, flowCtl, mach, fakeSpindle{}, coolant, nil, nil)
	return it, pl, store
}

func TestLinearMoveWithFeedEnqueuesBlock(t *testing.T) {
	it, pl, _ := newTestInterp(t)
	if err := it.Execute("G1 X10 Y5 F300"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pl.Len() != 1 {
		t.Fatalf("expected 1 planned block, got %d", pl.Len())
	}
}

func TestModalGroupConflictIsRejected(t *testing.T) {
	it, _, _ := newTestInterp(t)
	err := it.Execute("G0 G1 X1")
	code, ok := errs.As(err)
	if !ok || code != errs.GcodeModalGroupViolation {
		t.Fatalf("expected GcodeModalGroupViolation, got %v", err)
	}
}

func TestUndefinedFeedRateIsRejected(t *testing.T) {
	it, _, _ := newTestInterp(t)
	it.Execute("G94") // units-per-minute feed mode, no F commanded yet
	err := it.Execute("G1 X5")
	code, ok := errs.As(err)
	if !ok || code != errs.GcodeUndefinedFeedRate {
		t.Fatalf("expected GcodeUndefinedFeedRate, got %v", err)
	}
}

func TestDuplicateAxisWordIsWordRepeated(t *testing.T) {
	it, _, _ := newTestInterp(t)
	err := it.Execute("G1 X1 X2 F100")
	code, ok := errs.As(err)
	if !ok || code != errs.GcodeWordRepeated {
		t.Fatalf("expected GcodeWordRepeated, got %v", err)
	}
}

func TestParameterAssignmentCommitsOnlyAfterBlockSucceeds(t *testing.T) {
	it, _, store := newTestInterp(t)
	if err := it.Execute("#100=[2+3*4]"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := store.GetNumbered(100); v != 14 {
		t.Fatalf("expected #100 == 14, got %v", v)
	}
	if err := it.Execute("G1 X#100 F100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParameterAssignmentDiscardedWhenBlockFails(t *testing.T) {
	it, _, store := newTestInterp(t)
	// A modal-group conflict anywhere on the line must prevent the
	// deferred #101 write alongside it from ever being committed.
	err := it.Execute("G0 G1 #101=5")
	if err == nil {
		t.Fatalf("expected an error from the conflicting line")
	}
	if v := store.GetNumbered(101); v != 0 {
		t.Fatalf("expected #101 to remain unset after a failed block, got %v", v)
	}
}

func TestG92OffsetsWithoutEnqueuingMotion(t *testing.T) {
	it, pl, store := newTestInterp(t)
	if err := it.Execute("G1 X10 F100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := pl.Len()
	if err := it.Execute("G92 X0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pl.Len() != before {
		t.Fatalf("G92 must not enqueue motion, planner length changed from %d to %d", before, pl.Len())
	}
	off := store.CoordOffset(params.G92)
	if off[0] != 10 {
		t.Fatalf("expected G92 offset on X to be 10, got %v", off[0])
	}
}

func TestDwellEnqueuesMotionlessBlock(t *testing.T) {
	it, pl, _ := newTestInterp(t)
	before := pl.Len()
	if err := it.Execute("G4 P0.5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pl.Len() != before+1 {
		t.Fatalf("expected dwell to enqueue one block, len went from %d to %d", before, pl.Len())
	}
}

func TestArcMoveSegmentsIntoMultipleBlocks(t *testing.T) {
	it, pl, _ := newTestInterp(t)
	// With no step engine draining the 16-slot planner, a coarse chord
	// tolerance keeps the segment count (8 here) within its capacity.
	it.arcToleranceMM = 0.5
	if err := it.Execute("G1 X10 Y0 F200"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := pl.Len()
	if err := it.Execute("G2 X0 Y10 I-10 J0 F200"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pl.Len() <= before+1 {
		t.Fatalf("expected a 270-degree clockwise arc to produce multiple segments, got %d new blocks", pl.Len()-before)
	}
}

func TestUnsupportedGCodeIsRejected(t *testing.T) {
	it, _, _ := newTestInterp(t)
	err := it.Execute("G200 X1")
	code, ok := errs.As(err)
	if !ok || code != errs.GcodeUnsupportedCommand {
		t.Fatalf("expected GcodeUnsupportedCommand, got %v", err)
	}
}

func TestFlowControlLineIsNotTreatedAsGcode(t *testing.T) {
	it, _, _ := newTestInterp(t)
	if err := it.Execute("O100 IF[1 EQ 1]"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := it.Execute("O100 ENDIF"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCommentAndDemarcatorLinesAreNoOps(t *testing.T) {
	it, pl, _ := newTestInterp(t)
	before := pl.Len()
	if err := it.Execute("(just a comment)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := it.Execute("%"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pl.Len() != before {
		t.Fatalf("comment/demarcator lines must not enqueue motion")
	}
}
