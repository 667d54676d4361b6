// Package homing implements the homing/probing coordinator: the
// per-axis approach/pulloff/feed/final-pulloff
// cycle and the G38.x probing sequence. Grounded on the explicit
// multi-phase startup sequencing in emul/main.go (load binary, set up
// terminal, run, restore terminal — each phase able to abort the rest
// on error), adapted from "emulator bring-up phases" to "homing cycle
// phases".
package homing

import (
	"fluidnc/internal/backlash"
	"fluidnc/internal/errs"
	"fluidnc/internal/kinematics"
)

// AxisCycle describes one homing cycle: the set of axes that move
// together, their configured direction, and rates.
type AxisCycle struct {
	Axes         []int
	Positive     []bool // per-axis home direction, indexed the same as Axes
	SeekRate     float64
	FeedRate     float64
	PulloffMM    float64
	MaxTravelMM  float64
	OriginMM     []float64 // mpos to assign on completion, per axis in Axes
}

// Mover is the motion collaborator the coordinator drives: a thin
// synchronous facade over the step engine used only during homing/
// probing, never during ordinary G-code motion.
type Mover interface {
	// MoveUntilSwitch rapids the given axes toward their switch at rate,
	// capped at maxTravelMM, and returns which axes asserted their
	// switch. An axis whose switch never asserts within the cap is
	// reported as false in asserted.
	MoveUntilSwitch(axes []int, positive []bool, rate, maxTravelMM float64) (asserted []bool, err error)
	// MoveAway backs the given axes off by distanceMM at rate.
	MoveAway(axes []int, positive []bool, distanceMM, rate float64) error
	// SetMotorOrigin zeroes the motor step counters for the given axes
	// to the configured mpos origin.
	SetMotorOrigin(axes []int, originMM []float64)
	// CurrentMotorMM returns the live per-axis motor position in mm.
	CurrentMotorMM() [kinematics.MaxAxes]float64
}

// Coordinator runs homing cycles and probing moves.
type Coordinator struct {
	mover    Mover
	backlash *backlash.Filter
}

func NewCoordinator(mover Mover, bf *backlash.Filter) *Coordinator {
	return &Coordinator{mover: mover, backlash: bf}
}

// RunCycle executes steps 1-6 for one homing cycle.
func (c *Coordinator) RunCycle(cyc AxisCycle) error {
	seekCap := cyc.MaxTravelMM * 1.5

	asserted, err := c.mover.MoveUntilSwitch(cyc.Axes, cyc.Positive, cyc.SeekRate, seekCap)
	if err != nil {
		return errs.New(errs.HomingFailApproach)
	}
	if err := checkAmbiguous(asserted); err != nil {
		return err
	}

	if err := c.mover.MoveAway(cyc.Axes, cyc.Positive, cyc.PulloffMM, cyc.SeekRate); err != nil {
		return errs.New(errs.HomingFailPulloff)
	}

	asserted, err = c.mover.MoveUntilSwitch(cyc.Axes, cyc.Positive, cyc.FeedRate, cyc.PulloffMM*4)
	if err != nil {
		return errs.New(errs.HomingFailApproach)
	}
	if err := checkAmbiguous(asserted); err != nil {
		return err
	}

	if err := c.mover.MoveAway(cyc.Axes, cyc.Positive, cyc.PulloffMM, cyc.FeedRate); err != nil {
		return errs.New(errs.HomingFailPulloff)
	}

	c.mover.SetMotorOrigin(cyc.Axes, cyc.OriginMM)

	for i, axis := range cyc.Axes {
		if c.backlash != nil {
			c.backlash.SeedHomingDirection(axis, cyc.Positive[i])
		}
	}
	if c.backlash != nil {
		c.backlash.ResetPosition(c.mover.CurrentMotorMM())
	}
	return nil
}

func checkAmbiguous(asserted []bool) error {
	count := 0
	for _, a := range asserted {
		if a {
			count++
		}
	}
	if count > 1 {
		return errs.New(errs.HomingAmbiguousSwitch)
	}
	if count == 0 {
		return errs.New(errs.HomingFailApproach)
	}
	return nil
}

// Prober runs G38.x probing moves via the planner/backlash pipeline; the
// actual block completion/contact detection lives in the step engine,
// which is an external collaborator — this type only interprets its
// result.
type Prober struct {
	backlash *backlash.Filter
}

func NewProber(bf *backlash.Filter) *Prober { return &Prober{backlash: bf} }

// ProbeResult is what the step engine reports back after a G38.x block
// either terminates on switch assertion or runs to completion.
type ProbeResult struct {
	Contacted  bool
	MotorStepsMM [kinematics.MaxAxes]float64
}

// G38Variant is the closed set of probing sub-codes.
type G38Variant int

const (
	G382 G38Variant = iota // toward, error on no contact
	G383                   // toward, no error on no contact
	G384                   // away, error on no contact
	G385                   // away, no error on no contact
)

func (v G38Variant) ErrorsOnNoContact() bool {
	return v == G382 || v == G384
}

// Finish applies the post-probe rules: on contact always
// succeeds; on no contact, G38.2/G38.4 raise ProbeFailContact while
// G38.3/G38.5 succeed silently. Either way the backlash filter's
// position is resynchronized from the measured motor position.
func (p *Prober) Finish(variant G38Variant, res ProbeResult) error {
	if p.backlash != nil {
		p.backlash.ResetPosition(res.MotorStepsMM)
	}
	if !res.Contacted && variant.ErrorsOnNoContact() {
		return errs.New(errs.ProbeFailContact)
	}
	return nil
}
