// Package errs defines the single closed taxonomy of failure kinds the
// motion pipeline surfaces to the ack protocol and to operators. Numeric
// codes match the legacy wire values so that `error:<n>` is stable across
// rewrites.
package errs

// Code is a stable, closed enumeration of failure kinds. Zero is success.
type Code uint8

const (
	Ok Code = 0

	// parse
	ExpectedCommandLetter Code = 1
	BadNumberFormat       Code = 2
	InvalidStatement      Code = 3
	NegativeValue         Code = 4

	SettingDisabled     Code = 5
	SettingStepPulseMin Code = 6
	SettingReadFail     Code = 7

	IdleError    Code = 8
	SystemGcLock Code = 9

	SoftLimitError      Code = 10
	Overflow            Code = 11
	MaxStepRateExceeded Code = 12
	CheckDoor           Code = 13
	LineLengthExceeded  Code = 14
	TravelExceeded      Code = 15
	InvalidJogCommand   Code = 16
	SettingDisabledLaser Code = 17
	HomingNoCycles      Code = 18
	SingleAxisHoming    Code = 19

	// modal / semantic
	GcodeUnsupportedCommand     Code = 20
	GcodeModalGroupViolation    Code = 21
	GcodeUndefinedFeedRate      Code = 22
	GcodeCommandValueNotInteger Code = 23
	GcodeAxisCommandConflict    Code = 24
	GcodeWordRepeated           Code = 25
	GcodeNoAxisWords            Code = 26
	GcodeInvalidLineNumber      Code = 27
	GcodeValueWordMissing       Code = 28
	GcodeUnsupportedCoordSys    Code = 29
	GcodeG53InvalidMotionMode   Code = 30
	GcodeAxisWordsExist         Code = 31
	GcodeNoAxisWordsInPlane     Code = 32
	GcodeInvalidTarget          Code = 33
	GcodeArcRadiusError         Code = 34
	GcodeNoOffsetsInPlane       Code = 35
	GcodeUnusedWords            Code = 36
	GcodeG43DynamicAxisError    Code = 37
	GcodeMaxValueExceeded       Code = 38
	PParamMaxExceeded           Code = 39
	CheckControlPins            Code = 40

	// expression (kept in the 40s band, distinct from Grbl legacy codes
	// which never defined these — FluidNC's Expression.cpp raises these
	// as generic InvalidStatement/InvalidValue; here each keeps its own
	// code, and that code is what the session reports on the wire)
	ExpressionDivideByZero       Code = 41
	ExpressionArgumentOutOfRange Code = 42
	ExpressionSyntaxError        Code = 43
	ExpressionUnknownOp          Code = 44

	// flow control
	FlowControlSyntaxError       Code = 45
	FlowControlNotExecutingMacro Code = 46

	// filesystem
	FsFailedMount     Code = 60
	FsFailedRead      Code = 61
	FsFailedOpenDir   Code = 62
	FsDirNotFound     Code = 63
	FsFileEmpty       Code = 64
	FsFileNotFound    Code = 65
	FsFailedOpenFile  Code = 66
	FsFailedBusy      Code = 67
	FsFailedDelDir    Code = 68
	FsFailedDelFile   Code = 69
	FsFailedRenameFile Code = 70

	NumberRange       Code = 80
	InvalidValue      Code = 81
	FsFailedCreateFile Code = 82
	FsFailedFormat    Code = 83

	MessageFailed Code = 90

	NvsSetFailed      Code = 100
	NvsGetStatsFailed Code = 101

	AuthenticationFailed Code = 110
	Eol                  Code = 111
	Eof                  Code = 112
	Reset                Code = 113

	AnotherInterfaceBusy Code = 120
	JogCancelled         Code = 130

	BadPinSpecification     Code = 150
	BadRuntimeConfigSetting Code = 151
	ConfigurationInvalid    Code = 152

	UploadFailed   Code = 160
	DownloadFailed Code = 161
	ReadOnlySetting Code = 162

	// alarm kinds: stickier than ordinary errors, they lock
	// motion until an explicit unlock rather than failing a single line.
	HomingFailReset       Code = 170
	HomingFailDoor        Code = 171
	HomingFailPulloff     Code = 172
	HomingFailApproach    Code = 173
	HomingAmbiguousSwitch Code = 174
	ProbeFailInitial      Code = 175
	ProbeFailContact      Code = 176
	AbortCycle            Code = 177
)

var names = map[Code]string{
	Ok:                           "Ok",
	ExpectedCommandLetter:        "Expected command letter",
	BadNumberFormat:              "Bad number format",
	InvalidStatement:             "Invalid statement",
	NegativeValue:                "Negative value",
	SettingDisabled:               "Setting disabled",
	SettingStepPulseMin:           "Step pulse too short",
	SettingReadFail:               "Setting read failed",
	IdleError:                     "Command requires idle state",
	SystemGcLock:                  "G-code locked out during alarm/jog state",
	SoftLimitError:                "Soft limit violated",
	Overflow:                      "Line overflow detected",
	MaxStepRateExceeded:           "Max step rate exceeded",
	CheckDoor:                     "Safety door detected as open",
	LineLengthExceeded:            "Line length exceeded, truncated",
	TravelExceeded:                "Target out of machine travel",
	InvalidJogCommand:             "Invalid jog command",
	SettingDisabledLaser:          "Setting disabled in laser mode",
	HomingNoCycles:                "No homing cycles defined",
	SingleAxisHoming:              "Single axis homing not allowed",
	GcodeUnsupportedCommand:       "Unsupported g-code command",
	GcodeModalGroupViolation:      "Gcode modal group violated",
	GcodeUndefinedFeedRate:        "Gcode undefined feed rate",
	GcodeCommandValueNotInteger:   "Gcode command value not integer",
	GcodeAxisCommandConflict:      "Gcode axis command conflict",
	GcodeWordRepeated:             "Gcode word repeated",
	GcodeNoAxisWords:              "Gcode no axis words",
	GcodeInvalidLineNumber:        "Gcode invalid line number",
	GcodeValueWordMissing:         "Gcode value word missing",
	GcodeUnsupportedCoordSys:      "Gcode unsupported coordinate system",
	GcodeG53InvalidMotionMode:     "Gcode G53 invalid motion mode",
	GcodeAxisWordsExist:           "Gcode axis words exist",
	GcodeNoAxisWordsInPlane:       "Gcode no axis words in plane",
	GcodeInvalidTarget:            "Gcode invalid target",
	GcodeArcRadiusError:           "Gcode arc radius error",
	GcodeNoOffsetsInPlane:         "Gcode no offsets in plane",
	GcodeUnusedWords:              "Gcode unused words",
	GcodeG43DynamicAxisError:      "Gcode G43 dynamic axis error",
	GcodeMaxValueExceeded:         "Gcode max value exceeded",
	PParamMaxExceeded:             "P param max exceeded",
	CheckControlPins:              "Check control pins",
	ExpressionDivideByZero:        "Expression: divide by zero",
	ExpressionArgumentOutOfRange:  "Expression: argument out of range",
	ExpressionSyntaxError:         "Expression: syntax error",
	ExpressionUnknownOp:           "Expression: unknown operator",
	FlowControlSyntaxError:        "Flow control: syntax error",
	FlowControlNotExecutingMacro:  "Flow control: not executing a macro",
	FsFailedMount:                 "Filesystem failed to mount",
	FsFailedRead:                  "Failed to read file",
	FsFailedOpenDir:               "Failed to open directory",
	FsDirNotFound:                 "Directory not found",
	FsFileEmpty:                   "File is empty",
	FsFileNotFound:                "File not found",
	FsFailedOpenFile:              "Failed to open file",
	FsFailedBusy:                  "Filesystem is busy",
	FsFailedDelDir:                "Failed to delete directory",
	FsFailedDelFile:               "Failed to delete file",
	FsFailedRenameFile:            "Failed to rename file",
	NumberRange:                   "Setting number out of range",
	InvalidValue:                  "Invalid value",
	FsFailedCreateFile:            "Failed to create file",
	FsFailedFormat:                "Failed to format filesystem",
	MessageFailed:                 "Message failed",
	NvsSetFailed:                  "Nvs set failed",
	NvsGetStatsFailed:             "Nvs get stats failed",
	AuthenticationFailed:          "Authentication failed",
	Eol:                           "End of line",
	Eof:                           "End of file",
	Reset:                         "Reset",
	AnotherInterfaceBusy:          "Another interface is busy",
	JogCancelled:                  "Jog cancelled",
	BadPinSpecification:           "Bad pin specification",
	BadRuntimeConfigSetting:       "Bad runtime config setting",
	ConfigurationInvalid:          "Configuration invalid",
	UploadFailed:                  "Upload failed",
	DownloadFailed:                "Download failed",
	ReadOnlySetting:               "Setting is read-only",
	HomingFailReset:               "Homing fail: reset during cycle",
	HomingFailDoor:                "Homing fail: door open during cycle",
	HomingFailPulloff:             "Homing fail: pulloff travel exceeded",
	HomingFailApproach:            "Homing fail: switch not found during approach",
	HomingAmbiguousSwitch:         "Homing fail: ambiguous switch assertion",
	ProbeFailInitial:              "Probe fail: switch already contacted at start",
	ProbeFailContact:              "Probe fail: no contact",
	AbortCycle:                    "Abort: realtime queue overflow",
}

// String implements fmt.Stringer, returning the verbose-mode text for a code.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "Unknown error"
}

// Err wraps a Code as an error, the way callers throughout the pipeline
// report a line failure without losing the numeric code needed for the
// terse `error:<n>` wire form.
type Err struct {
	Code Code
	// Detail, if non-empty, is appended to verbose-mode text (e.g. the
	// offending token or axis letter) but never changes Code.
	Detail string
}

func New(c Code) error {
	if c == Ok {
		return nil
	}
	return &Err{Code: c}
}

func Newf(c Code, detail string) error {
	if c == Ok {
		return nil
	}
	return &Err{Code: c, Detail: detail}
}

func (e *Err) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Detail
}

// As reports whether err wraps an *Err and returns its Code.
func As(err error) (Code, bool) {
	if err == nil {
		return Ok, false
	}
	if e, ok := err.(*Err); ok {
		return e.Code, true
	}
	return 0, false
}
