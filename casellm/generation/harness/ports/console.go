package harnessports

import "io"

// LineReader reads operator input one line at a time.
type LineReader interface {
	// ReadLine shows prompt and returns the next line without its line terminator.
	// It returns io.EOF when input is exhausted.
	ReadLine(prompt string) (string, error)
	io.Closer
}

// Display is the terminal the conversation is written to.
type Display interface {
	io.Writer
	// Clear wipes the visible screen. It is purely cosmetic.
	Clear() error
}
