package planner

import (
	"math"

	"fluidnc/internal/kinematics"
)

// LineData carries the parser-block-derived parameters a single
// plan_line call needs, independent of the caller's G-code/backlash/jog
// origin.
type LineData struct {
	Feed           float64 // mm/min, or minutes-for-whole-move when InverseTime
	InverseTime    bool
	Rapid          bool
	SpindleSpeed   float64
	LineNumber     int
	NoFeedOverride bool
	IsJog          bool
	IsSystem       bool
	IsProbe        bool
	IsBacklash     bool
	SpindleSync    bool
}

// PlanLine implements plan_line: compute the block's motion
// parameters from a motor-space delta and enqueue it. currentMM/targetMM
// are motor-equivalent positions in mm (post steps_per_mm conversion),
// consistent across calls with whatever the caller (backlash filter,
// jog executor, or the interpreter directly) tracks as "last planned
// position" — never the live, possibly-still-executing motor snapshot.
//
// Returns false only when the ring is full; callers are expected to have
// checked Full() first, so this is a last-moment guard,
// not the primary backpressure signal.
func PlanLine(pl *Planner, cfg *kinematics.Config, currentMM, targetMM [kinematics.MaxAxes]float64, ld LineData) bool {
	var delta [kinematics.MaxAxes]float64
	for i := 0; i < cfg.NAxis; i++ {
		delta[i] = targetMM[i] - currentMM[i]
	}
	distance := kinematics.CartesianNorm(cfg.NAxis, currentMM, targetMM)
	if distance <= 0 {
		return true // silently dropped,
	}

	var unit [kinematics.MaxAxes]float64
	accel := SomeLargeValue
	for i := 0; i < cfg.NAxis; i++ {
		unit[i] = delta[i] / distance
		if unit[i] != 0 {
			candidate := cfg.Acceleration[i] / math.Abs(unit[i])
			if candidate < accel {
				accel = candidate
			}
		}
	}

	nominal := ld.Feed
	if ld.InverseTime && ld.Feed > 0 {
		nominal = distance / ld.Feed
	}
	if ld.Rapid {
		nominal = SomeLargeValue
	}
	for i := 0; i < cfg.NAxis; i++ {
		if unit[i] == 0 {
			continue
		}
		maxForAxis := cfg.MaxRate[i] / math.Abs(unit[i])
		if maxForAxis < nominal {
			nominal = maxForAxis
		}
	}

	var targetSteps [kinematics.MaxAxes]int64
	for i := 0; i < cfg.NAxis; i++ {
		targetSteps[i] = int64(math.Round(targetMM[i] * cfg.StepsPerMM[i]))
	}

	b := Block{
		TargetSteps:  targetSteps,
		UnitVec:      unit,
		Distance:     distance,
		NominalSpeed: nominal,
		Acceleration: accel,
		LineNumber:   ld.LineNumber,
		SpindleSpeed: ld.SpindleSpeed,
		Flags: Flags{
			IsJog:          ld.IsJog,
			IsBacklash:     ld.IsBacklash,
			IsSystem:       ld.IsSystem,
			IsProbe:        ld.IsProbe,
			Rapid:          ld.Rapid,
			InverseTime:    ld.InverseTime,
			SpindleSync:    ld.SpindleSync,
			NoFeedOverride: ld.NoFeedOverride,
		},
	}
	return pl.Enqueue(b)
}
