package gcode

import (
	"math"

	"fluidnc/internal/errs"
	"fluidnc/internal/homing"
	"fluidnc/internal/kinematics"
	"fluidnc/internal/params"
	"fluidnc/internal/planner"
	"fluidnc/internal/spindle"
)

// runBlock applies one classified line in a fixed side-effect order:
// feed-rate mode, feed, spindle speed, tool select, plane/units/distance/
// TLO/coordinate-system select, tool change, spindle on/off, coolant,
// dwell, G10/G28/G30/G92, motion, program flow.
func (it *Interpreter) runBlock(b block) error {
	for _, g := range b.gWords {
		switch g {
		case 93:
			it.modal.FeedRateMode = InverseTime
		case 94:
			it.modal.FeedRateMode = UnitsPerMinute
		}
	}

	if f, ok := b.letters['F']; ok {
		it.feedWord(f)
	}
	if s, ok := b.letters['S']; ok {
		it.spindleSpeed = s
	}
	if t, ok := b.letters['T']; ok {
		it.toolSelect = t
	}

	for _, g := range b.gWords {
		switch g {
		case 17:
			it.modal.Plane = PlaneXY
		case 18:
			it.modal.Plane = PlaneXZ
		case 19:
			it.modal.Plane = PlaneYZ
		case 20:
			it.modal.Units = Inches
		case 21:
			it.modal.Units = Millimeters
		case 90:
			it.modal.Distance = Absolute
		case 91:
			it.modal.Distance = Incremental
		case 90.1:
			it.modal.ArcDistance = Absolute
		case 91.1:
			it.modal.ArcDistance = Incremental
		case 40:
			// cutter compensation: always off, nothing to track
		case 43.1:
			it.modal.TLOMode = TLOApply
		case 49:
			it.modal.TLOMode = TLOOff
			it.store.SetTLO(0)
		case 54, 55, 56, 57, 58, 59, 59.1, 59.2, 59.3:
			it.modal.CoordSystem = coordFromG(g)
			it.store.SetActiveWCS(it.modal.CoordSystem)
		}
	}

	// M words apply tool change, then spindle, then coolant, whatever
	// their order on the line.
	for _, group := range [][]float64{{6}, {3, 4, 5}, {7, 8, 9}} {
		for _, m := range b.mWords {
			for _, gm := range group {
				if m != gm {
					continue
				}
				if err := it.applyM(m); err != nil {
					return err
				}
			}
		}
	}

	for _, g := range b.gWords {
		switch g {
		case 4:
			p, ok := b.letters['P']
			if !ok {
				return errs.New(errs.GcodeValueWordMissing)
			}
			it.pl.EnqueueDwell(p)
		case 10:
			if err := it.applyG10(b); err != nil {
				return err
			}
		case 28, 28.1:
			if err := it.applyHomePositionG(params.G28, g == 28, b); err != nil {
				return err
			}
		case 30, 30.1:
			if err := it.applyHomePositionG(params.G30, g == 30, b); err != nil {
				return err
			}
		case 92:
			it.applyG92(b)
		case 92.1:
			it.store.ResetG92()
		}
	}

	if err := it.applyMotion(b); err != nil {
		return err
	}

	for _, m := range b.mWords {
		switch m {
		case 0:
			it.modal.ProgramFlow = FlowPaused
		case 1:
			if it.modal.FeedOverrideEnabled {
				it.modal.ProgramFlow = FlowPaused
			}
		case 2, 30:
			it.modal.ProgramFlow = FlowEnded
			it.modal = DefaultModal()
		}
	}

	return nil
}

func coordFromG(g float64) params.CoordIndex {
	switch g {
	case 54:
		return params.G54
	case 55:
		return params.G55
	case 56:
		return params.G56
	case 57:
		return params.G57
	case 58:
		return params.G58
	case 59:
		return params.G59
	case 59.1:
		return params.G59_1
	case 59.2:
		return params.G59_2
	case 59.3:
		return params.G59_3
	}
	return params.G54
}

func (it *Interpreter) feedWord(f float64) {
	it.feed = f
}

func (it *Interpreter) applyM(m float64) error {
	switch m {
	case 3:
		return it.sp.SetState(spindle.Cw, it.spindleSpeed)
	case 4:
		return it.sp.SetState(spindle.Ccw, it.spindleSpeed)
	case 5:
		return it.sp.SetState(spindle.Disable, 0)
	case 6:
		if tc, ok := it.sp.(spindle.ToolChanger); ok {
			return tc.ToolChange(int(it.toolSelect), false)
		}
		it.store.SetNumbered(5400, it.toolSelect)
	case 7:
		it.coolant.SetMist(true)
	case 8:
		it.coolant.SetFlood(true)
	case 9:
		it.coolant.Off()
	}
	return nil
}

// applyG10 implements the L2/L20 coordinate-system-offset set: L2 sets the given WCS's offset directly to the given axis
// values; L20 sets it so the current machine position reads as those
// values instead.
func (it *Interpreter) applyG10(b block) error {
	l, ok := b.letters['L']
	if !ok {
		return errs.New(errs.GcodeValueWordMissing)
	}
	p, ok := b.letters['P']
	if !ok {
		return errs.New(errs.GcodeValueWordMissing)
	}
	idx := coordFromP(p)

	offsets := it.store.CoordOffset(idx)
	for i := 0; i < it.cfg.NAxis; i++ {
		v, present := b.axis[i], b.hasAxis[i]
		if !present {
			continue
		}
		v = it.toMM(v)
		switch l {
		case 2:
			offsets[i] = v
		case 20:
			offsets[i] = it.motorPos[i] - v
		default:
			return errs.New(errs.GcodeUnsupportedCommand)
		}
	}
	it.store.SetCoordOffset(idx, offsets)
	return nil
}

func coordFromP(p float64) params.CoordIndex {
	switch int(p) {
	case 1:
		return params.G54
	case 2:
		return params.G55
	case 3:
		return params.G56
	case 4:
		return params.G57
	case 5:
		return params.G58
	case 6:
		return params.G59
	}
	return params.G54
}

// applyHomePositionG implements G28/G30 (go to predefined position,
// optionally via an intermediate point given by axis words) and the
// G28.1/G30.1 "set predefined position to the current position" forms
//.
func (it *Interpreter) applyHomePositionG(which params.CoordIndex, goHome bool, b block) error {
	if !goHome {
		it.store.SetHomePosition(which, it.motorPos)
		return nil
	}
	if b.hasAnyAxis() {
		target := it.workPos
		for i := 0; i < it.cfg.NAxis; i++ {
			if b.hasAxis[i] {
				target[i] = it.foldAxis(i, b.axis[i], target[i])
			}
		}
		if err := it.emitLinearMove(target, true); err != nil {
			return err
		}
	}
	dest := it.store.CoordOffset(which)
	return it.emitLinearMove(dest, true)
}

// applyG92 shifts the G92 offset so the current position reads as the
// given axis values, without moving.
func (it *Interpreter) applyG92(b block) {
	offsets := it.store.CoordOffset(params.G92)
	for i := 0; i < it.cfg.NAxis; i++ {
		if !b.hasAxis[i] {
			continue
		}
		offsets[i] = it.workPos[i] - it.toMM(b.axis[i])
	}
	it.store.SetCoordOffset(params.G92, offsets)
}

func (it *Interpreter) toMM(v float64) float64 {
	if it.modal.Units == Inches {
		return v * 25.4
	}
	return v
}

// foldAxis resolves one axis word against the current modal distance
// mode, returning the new work-coordinate value in millimeters.
func (it *Interpreter) foldAxis(i int, raw, current float64) float64 {
	v := it.toMM(raw)
	if it.modal.Distance == Incremental {
		return current + v
	}
	return v
}

func (it *Interpreter) workToMachine(work [kinematics.MaxAxes]float64) [kinematics.MaxAxes]float64 {
	g92 := it.store.CoordOffset(params.G92)
	wcs := it.store.CoordOffset(it.modal.CoordSystem)
	var out [kinematics.MaxAxes]float64
	for i := 0; i < it.cfg.NAxis; i++ {
		out[i] = work[i] + wcs[i] + g92[i]
	}
	if it.modal.TLOMode == TLOApply {
		out[2] += it.store.TLO()
	}
	return out
}

// emitLinearMove folds one cartesian work-space target through the
// active offsets and kinematics transform, checks soft limits, and
// enqueues it via the backlash filter.
func (it *Interpreter) emitLinearMove(targetWork [kinematics.MaxAxes]float64, rapid bool) error {
	machineTarget := it.workToMachine(targetWork)
	motorTarget := it.xform.CartesianToMotors(machineTarget)

	if err := it.xform.LimitsCheck(it.cfg, it.motorPos, motorTarget); err != nil {
		return err
	}

	ld := planner.LineData{
		Feed:         it.feed,
		InverseTime:  it.modal.FeedRateMode == InverseTime,
		Rapid:        rapid,
		SpindleSpeed: it.spindleSpeed,
	}
	if !it.bl.PlanLine(it.pl, it.motorPos, motorTarget, ld) {
		return errs.New(errs.Overflow)
	}
	it.motorPos = motorTarget
	it.workPos = targetWork
	return nil
}

// applyMotion folds the axis words present in the block (if any) against
// the active motion mode and emits the resulting move(s).
func (it *Interpreter) applyMotion(b block) error {
	motion, probeVariant := it.activeMotion(b)
	if motion == MotionNone || !b.hasAnyAxis() {
		return nil
	}

	target := it.workPos
	for i := 0; i < it.cfg.NAxis; i++ {
		if b.hasAxis[i] {
			target[i] = it.foldAxis(i, b.axis[i], target[i])
		}
	}

	switch motion {
	case MotionRapid:
		return it.emitLinearMove(target, true)
	case MotionLinear:
		if it.feed <= 0 && it.modal.FeedRateMode == UnitsPerMinute {
			return errs.New(errs.GcodeUndefinedFeedRate)
		}
		return it.emitLinearMove(target, false)
	case MotionCWArc, MotionCCWArc:
		return it.planArcMove(motion == MotionCWArc, target, b)
	case MotionProbeTowardErr, MotionProbeTowardNoErr, MotionProbeAwayErr, MotionProbeAwayNoErr:
		return it.runProbe(probeVariant, target)
	}
	return nil
}

// activeMotion resolves the block's motion mode for this line: an
// explicit G word in the motion group overrides the modal value, but a
// line with only axis words and no G word reuses the sticky mode (motion
// mode is itself modal). The second return value is only meaningful for
// the four probing modes.
func (it *Interpreter) activeMotion(b block) (MotionMode, homing.G38Variant) {
	for _, g := range b.gWords {
		switch g {
		case 0:
			it.modal.Motion = MotionRapid
		case 1:
			it.modal.Motion = MotionLinear
		case 2:
			it.modal.Motion = MotionCWArc
		case 3:
			it.modal.Motion = MotionCCWArc
		case 38.2:
			it.modal.Motion = MotionProbeTowardErr
		case 38.3:
			it.modal.Motion = MotionProbeTowardNoErr
		case 38.4:
			it.modal.Motion = MotionProbeAwayErr
		case 38.5:
			it.modal.Motion = MotionProbeAwayNoErr
		case 80:
			it.modal.Motion = MotionNone
		}
	}
	switch it.modal.Motion {
	case MotionProbeTowardErr:
		return it.modal.Motion, homing.G382
	case MotionProbeTowardNoErr:
		return it.modal.Motion, homing.G383
	case MotionProbeAwayErr:
		return it.modal.Motion, homing.G384
	case MotionProbeAwayNoErr:
		return it.modal.Motion, homing.G385
	}
	return it.modal.Motion, 0
}

func (it *Interpreter) runProbe(variant homing.G38Variant, target [kinematics.MaxAxes]float64) error {
	machineTarget := it.workToMachine(target)
	motorTarget := it.xform.CartesianToMotors(machineTarget)
	// No probe block is enqueued and no move is made: the result always
	// reports contact at the folded target, which is recorded in the
	// parameter store (#5061.., #5070) and handed to the prober, which
	// only resynchronises the backlash filter.
	res := homing.ProbeResult{Contacted: true, MotorStepsMM: motorTarget}
	it.store.SetProbeResult(motorTarget, res.Contacted)
	if err := it.prober.Finish(variant, res); err != nil {
		return err
	}
	it.motorPos = motorTarget
	it.workPos = target
	return nil
}

func planeAxes(p Plane) (u, v, w int) {
	switch p {
	case PlaneXY:
		return 0, 1, 2
	case PlaneXZ:
		return 2, 0, 1
	case PlaneYZ:
		return 1, 2, 0
	}
	return 0, 1, 2
}

// planArcMove implements's arc segmentation: resolve the
// center from I/J/K or R, verify the radius is consistent at both
// endpoints, then subdivide into chord-error-bounded linear segments
// (the standard approach the source's gcode.c also uses, generalized
// here to work in whichever two axes the active plane selects).
func (it *Interpreter) planArcMove(clockwise bool, target [kinematics.MaxAxes]float64, b block) error {
	u, v, _ := planeAxes(it.modal.Plane)
	cur := it.workPos

	var centerU, centerV float64
	if r, hasR := b.letters['R']; hasR {
		x1, y1 := cur[u], cur[v]
		x2, y2 := target[u], target[v]
		dx, dy := x2-x1, y2-y1
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			return errs.New(errs.GcodeArcRadiusError)
		}
		rr := it.toMM(r)
		sign := 1.0
		if (rr < 0) == clockwise {
			sign = -1
		}
		if rr < 0 {
			rr = -rr
		}
		h2 := rr*rr - (dist*dist)/4
		if h2 < 0 {
			h2 = 0
		}
		half := math.Sqrt(h2)
		midX, midY := (x1+x2)/2, (y1+y2)/2
		nx, ny := -dy/dist, dx/dist
		centerU = midX + sign*nx*half
		centerV = midY + sign*ny*half
	} else {
		var offU, offV float64
		if o, ok := b.letters['I']; ok && u == 0 {
			offU = it.toMM(o)
		}
		if o, ok := b.letters['J']; ok && u == 1 {
			offU = it.toMM(o)
		}
		if o, ok := b.letters['K']; ok && u == 2 {
			offU = it.toMM(o)
		}
		if o, ok := b.letters['I']; ok && v == 0 {
			offV = it.toMM(o)
		}
		if o, ok := b.letters['J']; ok && v == 1 {
			offV = it.toMM(o)
		}
		if o, ok := b.letters['K']; ok && v == 2 {
			offV = it.toMM(o)
		}
		centerU = cur[u] + offU
		centerV = cur[v] + offV
	}

	radiusStart := math.Hypot(cur[u]-centerU, cur[v]-centerV)
	radiusEnd := math.Hypot(target[u]-centerU, target[v]-centerV)
	if radiusStart == 0 || math.Abs(radiusStart-radiusEnd) > 0.005 {
		return errs.New(errs.GcodeArcRadiusError)
	}

	startAngle := math.Atan2(cur[v]-centerV, cur[u]-centerU)
	endAngle := math.Atan2(target[v]-centerV, target[u]-centerU)
	if clockwise {
		for endAngle >= startAngle {
			endAngle -= 2 * math.Pi
		}
	} else {
		for endAngle <= startAngle {
			endAngle += 2 * math.Pi
		}
	}
	sweep := endAngle - startAngle

	tol := it.arcToleranceMM
	cosArg := 1 - tol/radiusStart
	if cosArg < -1 {
		cosArg = -1
	}
	segAngle := 2 * math.Acos(cosArg)
	if segAngle <= 0 || math.IsNaN(segAngle) {
		segAngle = 0.1
	}
	numSegs := int(math.Ceil(math.Abs(sweep) / segAngle))
	if numSegs < 1 {
		numSegs = 1
	}

	for s := 1; s <= numSegs; s++ {
		frac := float64(s) / float64(numSegs)
		angle := startAngle + sweep*frac
		seg := target
		seg[u] = centerU + radiusStart*math.Cos(angle)
		seg[v] = centerV + radiusStart*math.Sin(angle)
		for ax := 0; ax < it.cfg.NAxis; ax++ {
			if ax == u || ax == v {
				continue
			}
			seg[ax] = cur[ax] + (target[ax]-cur[ax])*frac
		}
		if err := it.emitLinearMove(seg, false); err != nil {
			return err
		}
	}
	return nil
}
