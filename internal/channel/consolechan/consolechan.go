// Package consolechan adapts the process's stdin/stdout to the channel
// package's Transport interface, putting the terminal into raw mode via
// golang.org/x/term so backspace, CR, and realtime bytes all reach the
// line editor as raw bytes instead of being line-buffered and echoed by
// the OS tty driver. Grounded on the interactive-session
// raw-mode handling in exer/cex/main.go.
package consolechan

import (
	"os"

	"golang.org/x/term"
)

type Transport struct {
	fd       int
	oldState *term.State
}

// Open puts stdin into raw mode and returns a Transport reading from
// stdin and writing to stdout. Call Close to restore the terminal.
func Open() (*Transport, error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &Transport{fd: fd, oldState: old}, nil
}

func (t *Transport) Read(buf []byte) (int, error) {
	n, err := os.Stdin.Read(buf)
	if err != nil {
		return n, err
	}
	return n, nil
}

func (t *Transport) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (t *Transport) Close() error {
	if t.oldState == nil {
		return nil
	}
	return term.Restore(t.fd, t.oldState)
}
