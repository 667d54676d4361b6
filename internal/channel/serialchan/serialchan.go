// Package serialchan adapts a go.bug.st/serial port to the channel
// package's Transport interface — the default transport for USB/UART
// CNC controllers. Grounded on the transport-adapter pattern
// in exer/cex's connection dialing (one small Read/Write/Close wrapper
// per concrete medium).
package serialchan

import (
	"time"

	"go.bug.st/serial"
)

type Transport struct {
	port serial.Port
}

// Open configures and opens a serial port at the given baud rate with an
// 8N1 framing and a short read timeout so Read never blocks the main
// cooperative loop for long.
func Open(device string, baud int) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(10 * time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}
	return &Transport{port: port}, nil
}

func (t *Transport) Read(buf []byte) (int, error) {
	n, err := t.port.Read(buf)
	if err != nil {
		// go.bug.st/serial returns an error on the read-timeout path on
		// some platforms; treat a zero-byte timeout as "nothing
		// available" rather than a channel failure.
		if n == 0 {
			return 0, nil
		}
		return n, err
	}
	return n, nil
}

func (t *Transport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *Transport) Close() error {
	return t.port.Close()
}
