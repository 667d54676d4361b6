package kinematics

// Cartesian is the identity kinematics: one motor per axis, steps = mm *
// steps_per_mm. It is the baseline every other variant is compared to.
type Cartesian struct {
	Cfg *Config
}

func NewCartesian(cfg *Config) *Cartesian { return &Cartesian{Cfg: cfg} }

func (c *Cartesian) CartesianToMotors(target [MaxAxes]float64) [MaxAxes]float64 {
	return target
}

func (c *Cartesian) MotorsToCartesian(motors [MaxAxes]float64) [MaxAxes]float64 {
	return motors
}

func (c *Cartesian) ConstrainJog(target [MaxAxes]float64, feed float64, current [MaxAxes]float64) [MaxAxes]float64 {
	return clampJogToTravel(c.Cfg, target, current)
}

func (c *Cartesian) LimitsCheck(cfg *Config, current, target [MaxAxes]float64) error {
	return straightLineLimitsCheck(cfg, current, target)
}
