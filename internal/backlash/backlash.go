// Package backlash implements the per-axis mechanical lost-motion
// pre-filter: on every direction reversal on an axis
// with a configured backlash distance, it emits a single hidden
// correction block into the planner before the caller's real motion is
// planned. Grounded on the FixedBitVec per-position state
// pattern (exer/cex/FixedBitVec.go) generalized from a bit-per-pin to a
// direction-per-axis field, owned by a single struct instead of a package
// global.
package backlash

import (
	"fluidnc/internal/kinematics"
	"fluidnc/internal/planner"
)

// Filter owns the per-axis reversal-detection state. It replaces the
// source's static prev_target[]/prev_direction[] module globals with a
// field on a value the motion pipeline constructs once and threads
// through every plan call.
type Filter struct {
	cfg *kinematics.Config

	backlashMM    [kinematics.MaxAxes]float64
	prevTarget    [kinematics.MaxAxes]float64
	prevDirection [kinematics.MaxAxes]planner.Direction
	enabled       bool
}

func New(cfg *kinematics.Config, backlashMM [kinematics.MaxAxes]float64) *Filter {
	enabled := false
	for i := 0; i < cfg.NAxis; i++ {
		if backlashMM[i] != 0 {
			enabled = true
			break
		}
	}
	return &Filter{cfg: cfg, backlashMM: backlashMM, enabled: enabled}
}

func sign(d float64) planner.Direction {
	switch {
	case d > 0:
		return planner.Positive
	case d < 0:
		return planner.Negative
	default:
		return planner.Neutral
	}
}

// PlanLine runs: before the caller's real motion is planned,
// detect direction reversals against the filter's own per-axis state and,
// if any axis reversed, enqueue a single hidden is_backlash block moving
// only the reversed axes by their configured backlash distance in the
// new direction. It then enqueues the caller's real motion and updates
// prevTarget. prevDirection is recorded here for every axis that moves
// (reversed or not); besides this, only SeedHomingDirection sets it, and
// ResetPosition does not touch it.
func (f *Filter) PlanLine(pl *planner.Planner, current, target [kinematics.MaxAxes]float64, ld planner.LineData) bool {
	if !f.enabled {
		return planner.PlanLine(pl, f.cfg, current, target, ld)
	}

	var compensated [kinematics.MaxAxes]float64
	compensated = current
	anyReversal := false
	var newDir [kinematics.MaxAxes]planner.Direction

	for i := 0; i < f.cfg.NAxis; i++ {
		d := sign(target[i] - f.prevTarget[i])
		newDir[i] = f.prevDirection[i]
		if d == planner.Neutral {
			continue
		}
		if f.backlashMM[i] != 0 && f.prevDirection[i] != planner.Neutral && d != f.prevDirection[i] {
			anyReversal = true
			newDir[i] = d
			if d == planner.Positive {
				compensated[i] = current[i] + f.backlashMM[i]
			} else {
				compensated[i] = current[i] - f.backlashMM[i]
			}
		} else {
			newDir[i] = d
		}
	}

	if anyReversal {
		hiddenLD := ld
		hiddenLD.IsBacklash = true
		hiddenLD.IsJog = false
		hiddenLD.IsProbe = false
		if !planner.PlanLine(pl, f.cfg, current, compensated, hiddenLD) {
			return false
		}
		current = compensated
	}

	for i := 0; i < f.cfg.NAxis; i++ {
		f.prevDirection[i] = newDir[i]
	}
	f.prevTarget = target

	return planner.PlanLine(pl, f.cfg, current, target, ld)
}

// ResetPosition re-synchronizes prevTarget from a freshly measured motor
// position (after probing or homing) without disturbing prevDirection.
func (f *Filter) ResetPosition(measured [kinematics.MaxAxes]float64) {
	f.prevTarget = measured
}

// SeedHomingDirection sets the starting prevDirection for an axis that
// just homed: a positive-homing axis starts with prevDirection = Positive
// and vice versa.
func (f *Filter) SeedHomingDirection(axis int, positive bool) {
	if positive {
		f.prevDirection[axis] = planner.Positive
	} else {
		f.prevDirection[axis] = planner.Negative
	}
}
