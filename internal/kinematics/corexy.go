package kinematics

// CoreXY drives the X/Y plane through two belt motors A, B related to the
// cartesian axes by A = X+Y, B = X-Y. All axes beyond X/Y
// (Z and any additional configured axes) pass through unchanged.
type CoreXY struct {
	Cfg *Config
}

func NewCoreXY(cfg *Config) *CoreXY { return &CoreXY{Cfg: cfg} }

func (k *CoreXY) CartesianToMotors(target [MaxAxes]float64) [MaxAxes]float64 {
	out := target
	x, y := target[0], target[1]
	out[0] = x + y
	out[1] = x - y
	return out
}

func (k *CoreXY) MotorsToCartesian(motors [MaxAxes]float64) [MaxAxes]float64 {
	out := motors
	a, b := motors[0], motors[1]
	out[0] = (a + b) / 2
	out[1] = (a - b) / 2
	return out
}

func (k *CoreXY) ConstrainJog(target [MaxAxes]float64, feed float64, current [MaxAxes]float64) [MaxAxes]float64 {
	return clampJogToTravel(k.Cfg, target, current)
}

func (k *CoreXY) LimitsCheck(cfg *Config, current, target [MaxAxes]float64) error {
	return straightLineLimitsCheck(cfg, current, target)
}
