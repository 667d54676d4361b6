// Package config loads the immutable machine description the rest of
// the pipeline is built from: axis geometry, homing cycles, coordinate
// systems, and the channel list. Grounded on the flat
// key=value settings loader conventions (the $-setting line format the
// rest of the pack's example repos use for controller config), adapted
// from grbl-style numbered settings to named ones since this rewrite has
// no fixed legacy setting-number table to stay wire-compatible with.
package config

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fluidnc/internal/homing"
	"fluidnc/internal/kinematics"
)

// AxisCycleSpec is one homing cycle's worth of config (several axes may
// share a cycle number and home together).
type AxisCycleSpec struct {
	Cycle     int
	Axes      []int
	Positive  []bool
	SeekRate  float64
	FeedRate  float64
	PulloffMM float64
}

// SpeedMapEntry is one knot of a spindle's RPM-to-output speed map.
type SpeedMapEntry struct {
	Input, Output float64
}

// Machine is the fully-resolved, immutable configuration tree. Nothing
// in the pipeline mutates it after Load returns; settings that change at
// runtime (overrides, coordinate offsets, tool table) live in the
// params/machine packages instead.
type Machine struct {
	Kinematics  string // "cartesian", "corexy", "delta", "maslow"
	Axes        kinematics.Config
	BacklashMM  [kinematics.MaxAxes]float64
	HomingCycles []AxisCycleSpec
	RapidLowPct int32

	SpindlePWMHz    float64
	SpindleSpeedMap []SpeedMapEntry
	SpinUpMS        int
	SpinDownMS      int

	SerialDevice string
	SerialBaud   int
	ReportMS     int
	ArcToleranceMM float64
}

// Default returns a small, safe three-axis cartesian configuration, the
// one a fresh install or a test harness starts from.
func Default() *Machine {
	cfg := kinematics.Config{NAxis: 3, SoftLimits: true}
	for i := 0; i < 3; i++ {
		cfg.StepsPerMM[i] = 80
		cfg.MaxRate[i] = 5000
		cfg.Acceleration[i] = 200 * 60 * 60
		cfg.MaxTravel[i] = 300
	}
	return &Machine{
		Kinematics: "cartesian",
		Axes:       cfg,
		HomingCycles: []AxisCycleSpec{
			{Cycle: 1, Axes: []int{2}, Positive: []bool{true}, SeekRate: 1000, FeedRate: 100, PulloffMM: 3},
			{Cycle: 2, Axes: []int{0, 1}, Positive: []bool{false, false}, SeekRate: 1000, FeedRate: 100, PulloffMM: 3},
		},
		RapidLowPct:    25,
		SpindlePWMHz:   5000,
		SpinUpMS:       0,
		SpinDownMS:     0,
		SerialDevice:   "",
		SerialBaud:     115200,
		ReportMS:       200,
		ArcToleranceMM: 0.002,
	}
}

// Load parses a flat "key=value" settings stream, one per line, '#' to
// EOL as comment, overlaying onto Default() rather than requiring every
// key. It never panics: any malformed line is reported as an error so
// the caller can enter ConfigAlarm
// instead of running with a half-applied configuration.
func Load(r *bufio.Scanner) (*Machine, error) {
	m := Default()
	lineNo := 0
	for r.Scan() {
		lineNo++
		line := r.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, fmt.Errorf("config line %d: missing '='", lineNo)
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if err := applyKey(m, key, val); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNo, err)
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func applyKey(m *Machine, key, val string) error {
	axis, isAxisKey, field := splitAxisKey(key)
	if isAxisKey {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if axis < 0 || axis >= m.Axes.NAxis {
			return fmt.Errorf("%s: axis out of range", key)
		}
		switch field {
		case "steps_per_mm":
			m.Axes.StepsPerMM[axis] = f
		case "max_rate":
			m.Axes.MaxRate[axis] = f
		case "acceleration":
			m.Axes.Acceleration[axis] = f
		case "max_travel":
			m.Axes.MaxTravel[axis] = f
		case "backlash":
			m.BacklashMM[axis] = f
		default:
			return fmt.Errorf("%s: unknown axis field %q", key, field)
		}
		return nil
	}

	switch key {
	case "kinematics":
		m.Kinematics = val
	case "naxis":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		m.Axes.NAxis = n
	case "soft_limits":
		m.Axes.SoftLimits = val == "true" || val == "1"
	case "rapid_low_pct":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		m.RapidLowPct = int32(n)
	case "serial_device":
		m.SerialDevice = val
	case "serial_baud":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		m.SerialBaud = n
	case "report_ms":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		m.ReportMS = n
	case "arc_tolerance_mm":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		m.ArcToleranceMM = f
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// splitAxisKey recognizes "axis<N>.<field>" keys such as "axis0.max_rate".
func splitAxisKey(key string) (axis int, ok bool, field string) {
	if !strings.HasPrefix(key, "axis") {
		return 0, false, ""
	}
	rest := key[len("axis"):]
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return 0, false, ""
	}
	n, err := strconv.Atoi(rest[:dot])
	if err != nil {
		return 0, false, ""
	}
	return n, true, rest[dot+1:]
}

// ToHomingCycles converts the config's homing spec into the form
// internal/homing.Coordinator.RunCycle expects, one AxisCycle per
// configured cycle number in ascending order.
func (m *Machine) ToHomingCycles() []homing.AxisCycle {
	specs := append([]AxisCycleSpec(nil), m.HomingCycles...)
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Cycle < specs[j].Cycle })
	out := make([]homing.AxisCycle, 0, len(specs))
	for _, c := range specs {
		origin := make([]float64, len(c.Axes))
		out = append(out, homing.AxisCycle{
			Axes:        c.Axes,
			Positive:    c.Positive,
			SeekRate:    c.SeekRate,
			FeedRate:    c.FeedRate,
			PulloffMM:   c.PulloffMM,
			MaxTravelMM: maxTravelOf(m, c.Axes),
			OriginMM:    origin,
		})
	}
	return out
}

func maxTravelOf(m *Machine, axes []int) float64 {
	max := 0.0
	for _, a := range axes {
		if m.Axes.MaxTravel[a] > max {
			max = m.Axes.MaxTravel[a]
		}
	}
	return max
}
