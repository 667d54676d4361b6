package kinematics

import (
	"math"
	"sync"

	"fluidnc/internal/errs"
)

// MachineState is the minimal view of the realtime state machine
// the Maslow calibration routine needs: it may only mutate anchor
// coordinates while homing is in progress, which keeps the planner
// from ever observing an inconsistent kinematics snapshot mid-motion.
type MachineState interface {
	IsHoming() bool
}

// Anchor is one of the four belt anchor points in machine coordinates.
type Anchor struct {
	X, Y float64
}

// Maslow implements the 4-belt CNC kinematics: the sled position maps to
// four belt lengths from fixed top anchors, with a small per-anchor arm
// offset that accounts for the real sled's belt-exit geometry. The
// kinematics instance is the sole owner of Anchors; Calibrate is the only
// way to mutate them, and it refuses outside of homing.
type Maslow struct {
	Cfg *Config

	mu      sync.Mutex
	Anchors [4]Anchor // top-left, top-right, bottom-right, bottom-left
	ArmLen  float64   // sled arm + belt-exit offset, mm
	State   MachineState
}

func NewMaslow(cfg *Config, anchors [4]Anchor, armLen float64, state MachineState) *Maslow {
	return &Maslow{Cfg: cfg, Anchors: anchors, ArmLen: armLen, State: state}
}

// beltLength returns the compensated belt length from anchor a to sled
// position (x, y): the straight-line distance minus the arm offset,
// which approximates the true geometry well for small ArmLen relative to
// belt length (the approximation the real firmware also makes).
func beltLength(a Anchor, x, y, armLen float64) float64 {
	dx, dy := x-a.X, y-a.Y
	straight := math.Sqrt(dx*dx + dy*dy)
	return straight - armLen
}

func (m *Maslow) CartesianToMotors(target [MaxAxes]float64) [MaxAxes]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := target
	x, y := target[0], target[1]
	for i := 0; i < 4; i++ {
		out[i] = beltLength(m.Anchors[i], x, y, m.ArmLen)
	}
	return out
}

// MotorsToCartesian solves the forward problem (four belt lengths -> xy)
// by two-circle trilateration against the top two anchors only; the two
// bottom belt lengths are not used and no iterative refinement is done.
func (m *Maslow) MotorsToCartesian(motors [MaxAxes]float64) [MaxAxes]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := motors
	l1, l2 := motors[0]+m.ArmLen, motors[1]+m.ArmLen
	a1, a2 := m.Anchors[0], m.Anchors[1]

	dx := a2.X - a1.X
	// Standard two-circle trilateration along the top edge.
	x := (l1*l1 - l2*l2 + dx*dx) / (2 * dx)
	under := l1*l1 - x*x
	if under < 0 {
		under = 0
	}
	y := a1.Y - math.Sqrt(under)
	out[0], out[1] = a1.X+x, y
	return out
}

func (m *Maslow) ConstrainJog(target [MaxAxes]float64, feed float64, current [MaxAxes]float64) [MaxAxes]float64 {
	return clampJogToTravel(m.Cfg, target, current)
}

func (m *Maslow) LimitsCheck(cfg *Config, current, target [MaxAxes]float64) error {
	return straightLineLimitsCheck(cfg, current, target)
}

// Calibrate updates one anchor's coordinates from a fresh belt-length
// measurement pass. It is the single mutation path for Anchors (ArmLen
// is set only by NewMaslow)
// and is refused outside Homing so the planner, which may be reading a
// snapshot concurrently from the main context, never sees a torn update
// mid-motion.
func (m *Maslow) Calibrate(anchorIdx int, a Anchor) error {
	if m.State == nil || !m.State.IsHoming() {
		return errs.Newf(errs.CheckDoor, "Maslow calibration only permitted while homing")
	}
	if anchorIdx < 0 || anchorIdx >= 4 {
		return errs.Newf(errs.BadRuntimeConfigSetting, "anchor index out of range")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Anchors[anchorIdx] = a
	return nil
}
