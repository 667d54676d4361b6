// Package channel implements the channel multiplexer and line editor:
// per-channel receive queue, resettable UTF-8
// realtime-byte decoder, line assembly, periodic status reports, and ack
// routing. Grounded on the cooperative per-connection loop in
// exer/cex/nano.go (one goroutine per connection pulling bytes and
// dispatching framed messages), generalized from the
// request/response framing to G-code's line/realtime-byte framing.
package channel

import (
	"fmt"
	"sync"
	"time"

	"fluidnc/internal/errs"
	"fluidnc/internal/machine"
)

const maxLine = 256

// Transport is the byte-level collaborator a concrete channel
// (serialchan, consolechan, a future network channel) supplies.
type Transport interface {
	// Read returns zero or more available bytes without blocking
	// indefinitely; (0, nil) means "nothing available right now".
	Read(buf []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// RealtimeAction is the decoded meaning of one out-of-band byte.
type RealtimeAction int

const (
	RTNone RealtimeAction = iota
	RTReset
	RTStatus
	RTCycleStart
	RTFeedHold
	RTSafetyDoor
	RTJogCancel
	RTDebug
	RTMacro0
	RTMacro1
	RTMacro2
	RTMacro3
	RTFeedOverride
	RTRapidOverride
	RTSpindleOverride
	RTCoolantToggle
)

// realtimeTable maps each single-byte realtime code to an action.
// Override bytes 0x90..0x9E and coolant bytes 0xA0/0xA1
// carry their specific meaning (coarse/fine, up/down, which coolant) in
// OverrideDelta below rather than in this coarse table.
var realtimeTable = map[byte]RealtimeAction{
	0x18: RTReset,
	'?':  RTStatus,
	'~':  RTCycleStart,
	'!':  RTFeedHold,
	0x84: RTSafetyDoor,
	0x85: RTJogCancel,
	0x86: RTDebug,
	0x87: RTMacro0,
	0x88: RTMacro1,
	0x89: RTMacro2,
	0x8A: RTMacro3,
}

func init() {
	for b := byte(0x90); b <= 0x9E; b++ {
		realtimeTable[b] = RTFeedOverride // refined by OverrideDelta
	}
	realtimeTable[0xA0] = RTCoolantToggle
	realtimeTable[0xA1] = RTCoolantToggle
}

// OverrideDelta decodes the specific feed/rapid/spindle-override step
// encoded by a byte in 0x90..0x9E.
// decodeOverride maps 0x91/0x92/0x93/0x94 to feed +10/-10/+1/-1,
// 0x95/0x96/0x97 to rapid 100/50/25, and 0x99/0x9A/0x9B/0x9C to spindle
// +10/-10/+1/-1; the other bytes in the range decode to OverrideNone.
// Coolant toggles are the separate bytes 0xA0 (mist) and 0xA1 (flood).
type OverrideKind int

const (
	OverrideNone OverrideKind = iota
	OverrideFeed
	OverrideRapid
	OverrideSpindle
)

type OverrideDelta struct {
	Kind  OverrideKind
	Delta int32 // for Feed/Spindle: signed percent step; for Rapid: the target percent (100/50/25)
}

func decodeOverride(b byte) OverrideDelta {
	switch b {
	case 0x91:
		return OverrideDelta{Kind: OverrideFeed, Delta: 10}
	case 0x92:
		return OverrideDelta{Kind: OverrideFeed, Delta: -10}
	case 0x93:
		return OverrideDelta{Kind: OverrideFeed, Delta: 1}
	case 0x94:
		return OverrideDelta{Kind: OverrideFeed, Delta: -1}
	case 0x95:
		return OverrideDelta{Kind: OverrideRapid, Delta: 100}
	case 0x96:
		return OverrideDelta{Kind: OverrideRapid, Delta: 50}
	case 0x97:
		return OverrideDelta{Kind: OverrideRapid, Delta: 25}
	case 0x99:
		return OverrideDelta{Kind: OverrideSpindle, Delta: 10}
	case 0x9A:
		return OverrideDelta{Kind: OverrideSpindle, Delta: -10}
	case 0x9B:
		return OverrideDelta{Kind: OverrideSpindle, Delta: 1}
	case 0x9C:
		return OverrideDelta{Kind: OverrideSpindle, Delta: -1}
	default:
		return OverrideDelta{}
	}
}

// utf8Decoder is the small resettable state machine
// describes: it tracks how many UTF-8 continuation bytes remain for the
// character in progress, so high bytes that are genuinely part of a
// multi-byte character (typed into an interactive console) are not
// mistaken for realtime command bytes, while the documented realtime
// codes are still recognized at the start of a character.
type utf8Decoder struct {
	remaining int
}

func (d *utf8Decoder) reset() { d.remaining = 0 }

// decodeResult classifies one incoming byte.
type decodeResult int

const (
	decodeRealtime decodeResult = iota
	decodeContinuation
	decodeLeadByte
	decodeLineByte
	decodeMalformed
)

func (d *utf8Decoder) feed(b byte) decodeResult {
	if d.remaining > 0 {
		if b&0xC0 == 0x80 {
			d.remaining--
			return decodeContinuation
		}
		d.reset()
		return decodeMalformed
	}
	if _, ok := realtimeTable[b]; ok {
		return decodeRealtime
	}
	switch {
	case b < 0x80:
		return decodeLineByte
	case b&0xE0 == 0xC0:
		d.remaining = 1
		return decodeLeadByte
	case b&0xF0 == 0xE0:
		d.remaining = 2
		return decodeLeadByte
	case b&0xF8 == 0xF0:
		d.remaining = 3
		return decodeLeadByte
	default:
		return decodeMalformed
	}
}

// LineSink receives completed lines from the multiplexer's main-loop
// drain, handing them to the G-code/flow-control pipeline.
type LineSink interface {
	HandleLine(ch *Channel, line string)
}

// Channel is one bidirectional byte transport plumbed into the
// multiplexer: line-accumulation state, a realtime-byte queue, the
// periodic-report scheduler, and the authentication level.
type Channel struct {
	mu sync.Mutex

	name      string
	transport Transport
	decoder   utf8Decoder
	buf       []byte
	overflowed bool

	reportInterval time.Duration
	lastReport     time.Time
	lastModalHash  string

	authLevel int

	mach *machine.Machine
	ov   *machine.Overrides
	sink LineSink

	debugLog func(msg string)
}

func New(name string, t Transport, mach *machine.Machine, ov *machine.Overrides, sink LineSink) *Channel {
	return &Channel{
		name:           name,
		transport:      t,
		reportInterval: 200 * time.Millisecond,
		mach:           mach,
		ov:             ov,
		sink:           sink,
		debugLog:       func(string) {},
	}
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) SetDebugLog(fn func(string)) { c.debugLog = fn }

// SendOK and SendError implement job.AckRouter.
func (c *Channel) SendOK() {
	c.transport.Write([]byte("ok\n"))
}

func (c *Channel) SendError(code errs.Code) {
	c.transport.Write([]byte(fmt.Sprintf("error:%d\n", code)))
}

func (c *Channel) SendAlarm(code errs.Code) {
	c.transport.Write([]byte(fmt.Sprintf("ALARM:%d\n", code)))
}

func (c *Channel) SendMessage(text string) {
	c.transport.Write([]byte("[MSG:" + text + "]\n"))
}

func (c *Channel) SendStatus(report string) {
	c.transport.Write([]byte(report))
}

// Pump runs one iteration of the channel's cooperative loop: pull available bytes, decode each, dispatch realtime events
// in-line, and assemble non-realtime bytes into lines that are handed to
// the LineSink as they complete.
func (c *Channel) Pump() error {
	var rx [256]byte
	n, err := c.transport.Read(rx[:])
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		c.consumeByte(rx[i])
	}
	return nil
}

func (c *Channel) consumeByte(b byte) {
	c.mu.Lock()
	res := c.decoder.feed(b)
	c.mu.Unlock()

	switch res {
	case decodeMalformed:
		c.debugLog(fmt.Sprintf("malformed utf-8 byte 0x%02x on %s", b, c.name))
		return

	case decodeRealtime:
		c.dispatchRealtime(b)
		return

	case decodeContinuation, decodeLeadByte, decodeLineByte:
		c.appendLineByte(b)
	}
}

func (c *Channel) dispatchRealtime(b byte) {
	action := realtimeTable[b]
	switch action {
	case RTReset:
		c.mach.Handle(machine.Event{Kind: machine.EvReset})
	case RTStatus:
		c.mach.Handle(machine.Event{Kind: machine.EvStatusReport, Channel: c.name})
	case RTCycleStart:
		c.mach.Handle(machine.Event{Kind: machine.EvCycleStart})
	case RTFeedHold:
		c.mach.Handle(machine.Event{Kind: machine.EvFeedHold})
	case RTSafetyDoor:
		c.mach.Handle(machine.Event{Kind: machine.EvSafetyDoor})
	case RTJogCancel:
		c.mach.Handle(machine.Event{Kind: machine.EvJogCancel})
	case RTDebug:
		c.debugLog("debug realtime byte received on " + c.name)
	case RTMacro0, RTMacro1, RTMacro2, RTMacro3:
		idx := int(action - RTMacro0)
		c.mach.Handle(machine.Event{Kind: machine.EvMacro, MacroIdx: idx})
	case RTFeedOverride:
		od := decodeOverride(b)
		switch od.Kind {
		case OverrideFeed:
			c.ov.AdjustFeed(od.Delta)
		case OverrideRapid:
			c.ov.SetRapid(machine.RapidOverride(od.Delta))
		case OverrideSpindle:
			c.ov.AdjustSpindle(od.Delta)
		}
		if od.Kind != OverrideNone {
			c.mach.Handle(machine.Event{Kind: machine.EvOverrideChange})
		}
	case RTCoolantToggle:
		if b == 0xA0 {
			c.ov.SetMist(!c.ov.Mist())
		} else {
			c.ov.SetFlood(!c.ov.Flood())
		}
	}
}

// appendLineByte implements the line-editor rules: CR/LF/CR-LF/LF-CR are
// all single terminators, backspace shrinks the buffer, and overflow
// beyond max_line drops further bytes until the next terminator.
func (c *Channel) appendLineByte(b byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch b {
	case '\r', '\n':
		line := string(c.buf)
		overflow := c.overflowed
		c.buf = c.buf[:0]
		c.overflowed = false
		sink, name := c.sink, c.name
		c.mu.Unlock()
		if overflow {
			c.debugLog("line length exceeded on " + name)
			c.SendError(errs.LineLengthExceeded)
			c.mu.Lock()
			return
		}
		if line != "" && sink != nil {
			// HandleLine runs synchronously on the main cooperative
			// loop: it may itself call back into this
			// channel (ok/error), so the line-editor lock must not be
			// held while it executes.
			sink.HandleLine(c, line)
		}
		c.mu.Lock()
		return

	case 0x08, 0x7F: // backspace / DEL
		if len(c.buf) > 0 {
			c.buf = c.buf[:len(c.buf)-1]
		}
		return
	}

	if c.overflowed {
		return
	}
	if len(c.buf) >= maxLine {
		c.overflowed = true
		return
	}
	c.buf = append(c.buf, b)
}

// MaybeReport writes statusLine if the report interval has elapsed and
// either motion is active or state changed since the last emission. It
// records modalHash but writes no separate modal report.
func (c *Channel) MaybeReport(statusLine string, modalHash string, motionActive, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reportInterval <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(c.lastReport) < c.reportInterval {
		return
	}
	if !motionActive && !changed {
		return
	}
	c.lastReport = now
	c.transport.Write([]byte(statusLine))
	if modalHash != c.lastModalHash {
		c.lastModalHash = modalHash
	}
}

func (c *Channel) SetReportInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportInterval = d
}
