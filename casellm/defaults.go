// Package casellm holds process-wide defaults shared by the CASE packages.
package casellm

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName = "case"

	// DefaultEnvPrefix prefixes every environment override, e.g. CASE_MODEL_THREADS.
	DefaultEnvPrefix = "CASE"

	DefaultModelName   = "mistral-7b-instruct-v0.1.Q4_0.gguf"
	DefaultDevice      = "cpu"
	DefaultPromptLabel = "UserPrompt>"
	DefaultSentinel    = "exit"
	DefaultDoneMarker  = "--Done--"
)

var (
	DefaultConfigPath     = filepath.Join(userConfigDir(), DefaultAppName)
	DefaultCacheDir       = filepath.Join(userCacheDir(), DefaultAppName)
	DefaultModelDir       = filepath.Join(DefaultCacheDir, "models")
	DefaultTrainingPath   = filepath.Join(DefaultConfigPath, "initCase.Conversational.txt")
	DefaultTranscriptPath = filepath.Join(DefaultCacheDir, "transcripts.db")
)

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}
