// Package gcode implements the G-code interpreter:
// per-line parsing, modal-group classification and conflict detection,
// target folding, soft-limit checking, arc segmentation, and the
// canonical non-motion side-effect ordering. Grounded on the
// instruction-decode table in emul/cpu.go, generalized from a fixed
// 8-bit opcode space to G/M letter+number modal groups.
package gcode

import (
	"strings"

	"fluidnc/internal/backlash"
	"fluidnc/internal/errs"
	"fluidnc/internal/flow"
	"fluidnc/internal/homing"
	"fluidnc/internal/job"
	"fluidnc/internal/kinematics"
	"fluidnc/internal/machine"
	"fluidnc/internal/params"
	"fluidnc/internal/planner"
	"fluidnc/internal/spindle"
)

// Interpreter holds the one-per-job-stack mutable modal state and the
// external collaborators a line may need: the motion pipeline (backlash
// filter in front of the planner), the parameter store, the job stack
// (for #<name> scope and flow-control frame ids), the flow-control
// interpreter, the realtime state machine, and the spindle/coolant and
// homing/probing capability objects.
type Interpreter struct {
	cfg   *kinematics.Config
	xform kinematics.Transform
	bl    *backlash.Filter
	pl    *planner.Planner

	store   *params.Store
	jobs    *job.Stack
	flowCtl *flow.Control
	mach    *machine.Machine

	sp       spindle.Spindle
	coolant  *spindle.CoolantMask
	homer    *homing.Coordinator
	prober   *homing.Prober

	modal ModalState

	// workPos is the last commanded target in the active work coordinate
	// system, in millimeters, used to resolve incremental moves and as
	// the arc start point. motorPos is the same position pushed through
	// the kinematics transform, which is what the backlash filter and
	// planner track.
	workPos  [kinematics.MaxAxes]float64
	motorPos [kinematics.MaxAxes]float64

	arcToleranceMM float64

	feed         float64
	spindleSpeed float64
	toolSelect   float64

	lineNumber int
}

func New(cfg *kinematics.Config, xform kinematics.Transform, bl *backlash.Filter, pl *planner.Planner,
	store *params.Store, jobs *job.Stack, flowCtl *flow.Control, mach *machine.Machine,
	sp spindle.Spindle, coolant *spindle.CoolantMask, homer *homing.Coordinator, prober *homing.Prober) *Interpreter {
	return &Interpreter{
		cfg: cfg, xform: xform, bl: bl, pl: pl,
		store: store, jobs: jobs, flowCtl: flowCtl, mach: mach,
		sp: sp, coolant: coolant, homer: homer, prober: prober,
		modal:          DefaultModal(),
		arcToleranceMM: 0.002,
	}
}

func axisIndex(letter byte) (int, bool) {
	switch letter {
	case 'X':
		return 0, true
	case 'Y':
		return 1, true
	case 'Z':
		return 2, true
	case 'A':
		return 3, true
	case 'B':
		return 4, true
	case 'C':
		return 5, true
	case 'U':
		return 6, true
	case 'V':
		return 7, true
	case 'W':
		return 8, true
	}
	return 0, false
}

// Execute runs one raw input line through the full pipeline and returns
// nil on success or an error (an *errs.Err carries the code). It is the
// method a channel's LineSink or a job-stack reader calls for every line,
// O-word flow-control lines included.
func (it *Interpreter) Execute(raw string) error {
	stripped, err := stripComments(raw)
	if err != nil {
		return err
	}
	if isDemarcator(stripped) {
		return nil
	}
	trimmed := strings.TrimSpace(stripped)
	if trimmed == "" {
		return nil
	}

	frameID := it.jobs.FrameID()

	if oline, ok, err := scanOLine(trimmed); err != nil {
		return err
	} else if ok {
		return it.handleFlowLine(frameID, oline)
	}

	if it.flowCtl.Skipping(frameID) {
		return nil
	}

	res := newResolver(it.store, it.jobs)

	cleaned, assigns, err := extractAssignments(trimmed, res)
	if err != nil {
		return err
	}
	words, err := scanWords(cleaned, res)
	if err != nil {
		return err
	}

	block, err := classify(words)
	if err != nil {
		return err
	}

	if err := it.runBlock(block); err != nil {
		return err
	}

	// Commit deferred #ref=value assignments only now that the whole
	// block has succeeded.
	for _, a := range assigns {
		if a.named {
			it.jobs.SetParam(a.ref, a.value)
		} else {
			n := 0
			for _, r := range a.ref {
				n = n*10 + int(r-'0')
			}
			it.store.SetNumbered(n, a.value)
		}
	}
	return nil
}

func (it *Interpreter) handleFlowLine(frameID int, ol parsedOLine) error {
	res := newResolver(it.store, it.jobs)
	result, err := it.flowCtl.Handle(frameID, it.jobs.Source(), ol.Label, ol.Word, ol.ExprText, res)
	if err != nil {
		return err
	}
	if result.Alarm {
		return errs.Newf(errs.FlowControlSyntaxError, "ALARM "+itoa(result.AlarmCode))
	}
	if result.ErrorCode != nil {
		return errs.New(*result.ErrorCode)
	}
	if result.Returning {
		if result.ReturnValue != nil {
			it.jobs.SetParam("_value", *result.ReturnValue)
			it.jobs.SetParam("_value_returned", 1)
		} else {
			it.jobs.SetParam("_value_returned", 0)
		}
		it.flowCtl.Reset(frameID)
		return it.jobs.Unnest()
	}
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
