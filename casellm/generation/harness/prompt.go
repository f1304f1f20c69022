package harness

import (
	"os"
	"strings"
)

// newlineStripper drops every line ending: "\r\n", a bare "\n" and a bare "\r".
var newlineStripper = strings.NewReplacer("\r\n", "", "\n", "", "\r", "")

// LoadSeedPrompt reads the seed prompt file with its line breaks removed.
func LoadSeedPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &PromptLoadError{Path: path, Err: err}
	}
	return newlineStripper.Replace(string(data)), nil
}
