package adapters

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	ports "github.com/SCADASolve/CASE/casellm/generation/harness/ports"
)

// StdioConsole reads lines from any reader. Lines may be arbitrarily long.
type StdioConsole struct {
	r   *bufio.Reader
	out io.Writer
}

// NewStdioConsole reads from in and writes prompts to out.
func NewStdioConsole(in io.Reader, out io.Writer) *StdioConsole {
	return &StdioConsole{r: bufio.NewReader(in), out: out}
}

func (c *StdioConsole) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		if _, err := fmt.Fprint(c.out, prompt); err != nil {
			return "", err
		}
	}

	line, err := c.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		// final line without a terminator is still a line
		if line == "" {
			return "", io.EOF
		}
	}
	return trimLineEnding(line), nil
}

func (c *StdioConsole) Close() error { return nil }

// trimLineEnding strips one "\n" and then one "\r". Nothing else is touched.
func trimLineEnding(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

var _ ports.LineReader = (*StdioConsole)(nil)
