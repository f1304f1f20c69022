package adapters

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"

	ports "github.com/SCADASolve/CASE/casellm/generation/harness/ports"
)

// ReadlineConsole is the interactive line reader with editing and history.
type ReadlineConsole struct {
	rl *readline.Instance
}

// NewReadlineConsole opens a readline instance on the process terminal.
// An empty historyFile disables persisted history.
func NewReadlineConsole(historyFile string) (*ReadlineConsole, error) {
	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		HistorySearchFold: true,

		Stdin:  readline.NewCancelableStdin(os.Stdin),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return &ReadlineConsole{rl: rl}, nil
}

// ReadLine returns io.EOF on Ctrl+D, and on Ctrl+C at an empty line.
// Ctrl+C with pending text discards it and prompts again.
func (c *ReadlineConsole) ReadLine(prompt string) (string, error) {
	c.rl.SetPrompt(prompt)
	for {
		line, err := c.rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return "", io.EOF
			}
			continue
		case err != nil:
			return "", err
		}
		return line, nil
	}
}

func (c *ReadlineConsole) Close() error {
	return c.rl.Close()
}

var _ ports.LineReader = (*ReadlineConsole)(nil)
