// Package gcode implements the G-code interpreter:
// per-line parsing, modal-group classification and conflict detection,
// target folding, soft-limit checking, arc segmentation, and the
// canonical non-motion side-effect ordering. Grounded on the
// instruction-decode table in emul/cpu.go, generalized from a fixed
// 8-bit opcode space to G/M letter+number modal groups.
package gcode

import "fluidnc/internal/params"

type MotionMode int

const (
	MotionNone MotionMode = iota
	MotionRapid
	MotionLinear
	MotionCWArc
	MotionCCWArc
	MotionProbeTowardErr
	MotionProbeTowardNoErr
	MotionProbeAwayErr
	MotionProbeAwayNoErr
	MotionDwell
	MotionCancel
)

type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

type DistanceMode int

const (
	Absolute DistanceMode = iota
	Incremental
)

type FeedRateMode int

const (
	UnitsPerMinute FeedRateMode = iota
	InverseTime
)

type Units int

const (
	Millimeters Units = iota
	Inches
)

type ToolLenMode int

const (
	TLOOff ToolLenMode = iota
	TLOApply
)

type ProgramFlow int

const (
	FlowRunning ProgramFlow = iota
	FlowPaused
	FlowEnded
)

// ModalGroup identifies one of the mutually-exclusive G/M word groups
// requires at most one active member of, per block.
type ModalGroup int

const (
	GroupMotion ModalGroup = iota
	GroupPlane
	GroupDistance
	GroupArcDistance
	GroupFeedRateMode
	GroupUnits
	GroupCutterComp
	GroupTLOMode
	GroupCoordSystem
	GroupProgramFlow
	GroupNonModal // G4, G10, G28, G30, G92, G92.1 — not sticky but still one-per-block
)

// ModalState is the persistent modal record.
type ModalState struct {
	Motion       MotionMode
	Plane        Plane
	Distance     DistanceMode
	ArcDistance  DistanceMode
	FeedRateMode FeedRateMode
	Units        Units
	TLOMode      ToolLenMode
	CoordSystem  params.CoordIndex
	ProgramFlow  ProgramFlow

	CoolantMist  bool
	CoolantFlood bool
	FeedOverrideEnabled bool
}

func DefaultModal() ModalState {
	return ModalState{
		Motion:              MotionRapid,
		Plane:               PlaneXY,
		Distance:            Absolute,
		ArcDistance:         Incremental,
		FeedRateMode:        UnitsPerMinute,
		Units:               Millimeters,
		TLOMode:             TLOOff,
		CoordSystem:         params.G54,
		ProgramFlow:         FlowRunning,
		FeedOverrideEnabled: true,
	}
}
