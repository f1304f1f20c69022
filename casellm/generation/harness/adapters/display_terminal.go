package adapters

import (
	"io"
	"time"
	"unicode/utf8"

	ports "github.com/SCADASolve/CASE/casellm/generation/harness/ports"
)

const ansiClear = "\033[H\033[2J"

// TerminalDisplay writes the conversation to a terminal, optionally one character at a time.
type TerminalDisplay struct {
	w           io.Writer
	clearScreen bool
	delay       time.Duration
	sleep       func(time.Duration)
}

// NewTerminalDisplay returns a display over w. Clear is a no-op unless clearScreen is set.
func NewTerminalDisplay(w io.Writer, clearScreen bool, delay time.Duration) *TerminalDisplay {
	return &TerminalDisplay{w: w, clearScreen: clearScreen, delay: delay, sleep: time.Sleep}
}

func (d *TerminalDisplay) Write(p []byte) (int, error) {
	if d.delay <= 0 {
		return d.w.Write(p)
	}

	written := 0
	for written < len(p) {
		_, size := utf8.DecodeRune(p[written:])
		n, err := d.w.Write(p[written : written+size])
		written += n
		if err != nil {
			return written, err
		}
		d.sleep(d.delay)
	}
	return written, nil
}

func (d *TerminalDisplay) Clear() error {
	if !d.clearScreen {
		return nil
	}
	_, err := io.WriteString(d.w, ansiClear)
	return err
}

var _ ports.Display = (*TerminalDisplay)(nil)
