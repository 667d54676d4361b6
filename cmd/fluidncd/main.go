// Command fluidncd wires the motion pipeline together: config, job
// stack, parameter store, planner, backlash filter, spindle/coolant,
// G-code interpreter, and one or more channels, then pumps the channel
// set until told to quit. Grounded on the flag+submain()+
// os.Exit entry-point shape (exer/cex/main.go).
package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"time"

	"fluidnc/internal/backlash"
	"fluidnc/internal/channel"
	"fluidnc/internal/channel/consolechan"
	"fluidnc/internal/channel/serialchan"
	"fluidnc/internal/config"
	"fluidnc/internal/flow"
	"fluidnc/internal/gcode"
	"fluidnc/internal/homing"
	"fluidnc/internal/job"
	"fluidnc/internal/kinematics"
	"fluidnc/internal/machine"
	"fluidnc/internal/params"
	"fluidnc/internal/planner"
	"fluidnc/internal/session"
	"fluidnc/internal/spindle"
)

func main() {
	os.Exit(submain())
}

func submain() int {
	log.SetFlags(log.Lmsgprefix | log.Ltime)
	log.SetPrefix("fluidncd: ")

	var configPath string
	var useSerial bool
	flag.StringVar(&configPath, "config", "", "settings file (key=value), defaults if empty")
	flag.BoolVar(&useSerial, "serial", false, "use the configured serial device instead of the console")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Printf("configuration error, entering alarm: %v", err)
	}

	xform := kinematicsFor(cfg)
	pl := planner.New(32, 0.02)
	bl := backlash.New(&cfg.Axes, cfg.BacklashMM)
	store := params.NewStore(params.NewMemStore(), &cfg.Axes)
	jobs := job.NewStack(job.RootSource{}, nil)
	flowCtl := flow.NewControl()
	ov := machine.NewOverrides(cfg.RapidLowPct)
	mach := machine.New(pl, jobs, ov)
	mach.OnReset(store.ResetG92)
	if err != nil {
		mach.EnterConfigAlarm()
	}

	sp := spindle.NewPWM(toSpeedMapPoints(cfg.SpindleSpeedMap), false,
		time.Duration(cfg.SpinUpMS)*time.Millisecond, time.Duration(cfg.SpinDownMS)*time.Millisecond)
	coolant := &spindle.CoolantMask{}
	homer := homing.NewCoordinator(noopMover{cfg: &cfg.Axes}, bl)
	prober := homing.NewProber(bl)

	interp := gcode.New(&cfg.Axes, xform, bl, pl, store, jobs, flowCtl, mach, sp, coolant, homer, prober)
	sess := session.New(jobs, interp)

	t, name, err := openTransport(cfg, useSerial)
	if err != nil {
		log.Printf("opening transport: %v", err)
		return 2
	}
	defer t.Close()

	ch := channel.New(name, t, mach, ov, sess)
	ch.SetReportInterval(time.Duration(cfg.ReportMS) * time.Millisecond)
	ch.SetDebugLog(func(msg string) { log.Println(msg) })

	log.Printf("ready on %s", name)
	for {
		if err := ch.Pump(); err != nil {
			log.Printf("transport closed: %v", err)
			return 0
		}
	}
}

func loadConfig(path string) (*config.Machine, error) {
	if path == "" {
		return config.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return config.Default(), err
	}
	defer f.Close()
	m, err := config.Load(bufio.NewScanner(f))
	if err != nil {
		return config.Default(), err
	}
	return m, nil
}

func kinematicsFor(cfg *config.Machine) kinematics.Transform {
	switch cfg.Kinematics {
	case "corexy":
		return kinematics.NewCoreXY(&cfg.Axes)
	default:
		return kinematics.NewCartesian(&cfg.Axes)
	}
}

func toSpeedMapPoints(in []config.SpeedMapEntry) []spindle.SpeedMapPoint {
	out := make([]spindle.SpeedMapPoint, len(in))
	for i, p := range in {
		out[i] = spindle.SpeedMapPoint{Input: p.Input, Output: p.Output}
	}
	return out
}

func openTransport(cfg *config.Machine, useSerial bool) (channel.Transport, string, error) {
	if useSerial && cfg.SerialDevice != "" {
		t, err := serialchan.Open(cfg.SerialDevice, cfg.SerialBaud)
		if err != nil {
			return nil, "", err
		}
		return t, cfg.SerialDevice, nil
	}
	t, err := consolechan.Open()
	if err != nil {
		return nil, "", err
	}
	return t, "console", nil
}

// noopMover stands in for the step-engine-backed homing mover: actual
// motor I/O is a hardware integration outside this pipeline's scope, but
// the coordinator still needs something satisfying homing.Mover to wire
// at startup.
type noopMover struct {
	cfg *kinematics.Config
}

func (noopMover) MoveUntilSwitch(axes []int, positive []bool, rate, maxTravelMM float64) ([]bool, error) {
	asserted := make([]bool, len(axes))
	for i := range asserted {
		asserted[i] = true
	}
	return asserted, nil
}

func (noopMover) MoveAway(axes []int, positive []bool, distanceMM, rate float64) error { return nil }

func (noopMover) SetMotorOrigin(axes []int, originMM []float64) {}

func (m noopMover) CurrentMotorMM() [kinematics.MaxAxes]float64 {
	return [kinematics.MaxAxes]float64{}
}
