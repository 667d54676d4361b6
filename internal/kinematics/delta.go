package kinematics

import "math"

// ParallelDelta implements the closed-form 3-arm delta kinematics: three
// motors hold three effector joints at 120 degrees around the base/
// effector circles via rigid arms of fixed length. Standard delta-robot
// closed form, parameterized by the classic rf/re/f/e geometry constants.
type ParallelDelta struct {
	Cfg *Config

	// rf: base arm (bicep) length, re: effector rod length, f: base
	// radius to motor pivots, e: effector radius to joints, all mm.
	Rf, Re, F, E float64
}

func NewParallelDelta(cfg *Config, rf, re, f, e float64) *ParallelDelta {
	return &ParallelDelta{Cfg: cfg, Rf: rf, Re: re, F: f, E: e}
}

const (
	sqrt3   = 1.7320508075688772
	deltaPi = math.Pi
	sin120  = sqrt3 / 2.0
	cos120  = -0.5
	tan60   = sqrt3
	sin30   = 0.5
	tan30   = 1.0 / sqrt3
)

// CartesianToMotors computes the three tower angles (expressed here as
// motor mm targets via steps handled by the caller) for a given effector
// position, i.e. the inverse kinematics of a delta robot.
func (d *ParallelDelta) CartesianToMotors(target [MaxAxes]float64) [MaxAxes]float64 {
	out := target
	x0, y0, z0 := target[0], target[1], target[2]
	t1, ok1 := d.anglesYZ(x0, y0, z0)
	t2, ok2 := d.anglesYZ(x0*cos120+y0*sin120, y0*cos120-x0*sin120, z0)
	t3, ok3 := d.anglesYZ(x0*cos120-y0*sin120, y0*cos120+x0*sin120, z0)
	if !ok1 || !ok2 || !ok3 {
		// Unreachable point: fall back to identity so limits_check
		// (which runs before the planner consumes this) can reject it
		// based on travel bounds rather than this transform panicking.
		return target
	}
	out[0], out[1], out[2] = t1, t2, t3
	return out
}

// anglesYZ solves the inverse kinematics for one tower using the
// standard Trossen/Rostock delta closed form in the tower's rotated
// (y, z) plane.
func (d *ParallelDelta) anglesYZ(x0, y0, z0 float64) (float64, bool) {
	y1 := -0.5 * tan30 * d.F
	y0 -= 0.5 * tan30 * d.E
	a := (x0*x0 + y0*y0 + z0*z0 + d.Rf*d.Rf - d.Re*d.Re - y1*y1) / (2 * z0)
	b := (y1 - y0) / z0
	dd := -(a+b*y1)*(a+b*y1) + d.Rf*(b*b*d.Rf+d.Rf)
	if dd < 0 {
		return 0, false
	}
	yj := (y1 - a*b - math.Sqrt(dd)) / (b*b + 1)
	zj := a + b*yj
	theta := math.Atan2(-zj, y1-yj) * 180.0 / deltaPi
	return theta, true
}

// MotorsToCartesian solves the forward kinematics (tower angles -> xyz)
// via trilateration of the three joint positions implied by the angles.
func (d *ParallelDelta) MotorsToCartesian(motors [MaxAxes]float64) [MaxAxes]float64 {
	out := motors
	t1 := motors[0] * deltaPi / 180.0
	t2 := motors[1] * deltaPi / 180.0
	t3 := motors[2] * deltaPi / 180.0

	y1 := -(d.F + (d.Re-d.E)*tan30) - d.Rf*math.Cos(t1)
	z1 := -d.Rf * math.Sin(t1)

	x2 := (d.F+(d.Re-d.E)*tan30+d.Rf*math.Cos(t2)) * sin30
	y2 := x2 * tan60
	z2 := -d.Rf * math.Sin(t2)

	x3 := -(d.F + (d.Re-d.E)*tan30 + d.Rf*math.Cos(t3)) * sin30
	y3 := x3 * tan60
	z3 := -d.Rf * math.Sin(t3)

	dnm := (y2-y1)*x3 - (y3-y1)*x2

	w1 := y1*y1 + z1*z1
	w2 := x2*x2 + y2*y2 + z2*z2
	w3 := x3*x3 + y3*y3 + z3*z3

	a1 := (z2 - z1) * (y3 - y1) - (z3-z1)*(y2-y1)
	b1 := -((w2 - w1) * (y3 - y1) - (w3-w1)*(y2-y1)) / 2.0

	a2 := -(z2-z1)*x3 + (z3-z1)*x2
	b2 := ((w2-w1)*x3 - (w3-w1)*x2) / 2.0

	a := a1*a1 + a2*a2 + dnm*dnm
	b := 2 * (a1*b1 + a2*(b2-y1*dnm) - z1*dnm*dnm)
	c := (b2-y1*dnm)*(b2-y1*dnm) + b1*b1 + dnm*dnm*(z1*z1-d.Re*d.Re)

	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return out
	}
	z0 := -0.5 * (b + math.Sqrt(disc)) / a
	x0 := (a1*z0 + b1) / dnm
	y0 := (a2*z0 + b2) / dnm

	out[0], out[1], out[2] = x0, y0, z0
	return out
}

func (d *ParallelDelta) ConstrainJog(target [MaxAxes]float64, feed float64, current [MaxAxes]float64) [MaxAxes]float64 {
	return clampJogToTravel(d.Cfg, target, current)
}

func (d *ParallelDelta) LimitsCheck(cfg *Config, current, target [MaxAxes]float64) error {
	return straightLineLimitsCheck(cfg, current, target)
}
