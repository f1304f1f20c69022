package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SCADASolve/CASE/casellm/generation/harness"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "casechat dev")
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfgPath := writeConfig(t, "model:\n  threads: 8\n")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--threads=-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threads must be positive")
}

func TestInvalidPrimingOutputFlag(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", writeConfig(t, ""), "--priming-output", "loud"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priming output")
}

func TestMissingModelFailsBeforeInteraction(t *testing.T) {
	t.Setenv("CASE_MODEL_DIR", t.TempDir())
	t.Setenv("CASE_LOG_LEVEL", "disabled")
	t.Setenv("CASE_SESSION_HISTORY_FILE", filepath.Join(t.TempDir(), "history"))

	seed := filepath.Join(t.TempDir(), "seed.txt")
	require.NoError(t, os.WriteFile(seed, []byte("You are Case."), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--config", writeConfig(t, ""),
		"--model", "does-not-exist.gguf",
		"--training-path", seed,
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, harness.ErrModelLoad)
	assert.Contains(t, err.Error(), "does-not-exist.gguf")
}
