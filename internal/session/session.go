// Package session wires a channel's pushed lines into the job stack and
// G-code/flow-control pipeline: the glue for "the multiplexer hands
// completed lines to whichever component owns the active job",
// generalized here into one small type instead of scattering the wiring
// across main. Grounded on the per-connection
// session loop (exer/cex/nano.go's interactiveSession), adapted from one
// physical connection to one logical job stack shared by several
// channels that take turns owning it.
package session

import (
	"io"

	"fluidnc/internal/channel"
	"fluidnc/internal/errs"
	"fluidnc/internal/gcode"
	"fluidnc/internal/job"
)

// Session implements channel.LineSink, routing every pushed line into
// the interpreter and then draining any nested job frames (macro/file
// playback) that line may have started, until control returns to the
// interactive root.
type Session struct {
	jobs      *job.Stack
	interp    *gcode.Interpreter
	ownerName string
}

func New(jobs *job.Stack, interp *gcode.Interpreter) *Session {
	return &Session{jobs: jobs, interp: interp}
}

// HandleLine implements channel.LineSink.
func (s *Session) HandleLine(ch *channel.Channel, line string) {
	if s.jobs.IsNested() && s.ownerName != "" && ch.Name() != s.ownerName {
		ch.SendError(errs.AnotherInterfaceBusy)
		return
	}
	s.ownerName = ch.Name()
	s.jobs.SetRootLeader(ch)

	respond(ch, s.interp.Execute(line))
	s.drainNested()
}

// drainNested runs any macro/file frame Execute just pushed onto the job
// stack, sending each line's ack to that frame's leader, until the stack
// transparently unnests all the way back to the interactive root.
func (s *Session) drainNested() {
	for s.jobs.IsNested() {
		leader := s.jobs.Leader()
		line, err := s.jobs.ReadLine()
		if err != nil {
			if err == io.EOF {
				return
			}
			return
		}
		respond(leader, s.interp.Execute(line))
	}
}

func respond(leader job.AckRouter, err error) {
	if err == nil {
		leader.SendOK()
		return
	}
	if code, ok := errs.As(err); ok {
		leader.SendError(code)
		return
	}
	leader.SendError(errs.InvalidStatement)
}
