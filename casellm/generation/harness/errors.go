package harness

import (
	"errors"
	"fmt"
)

var (
	ErrModelLoad  = errors.New("model load failed")
	ErrPromptLoad = errors.New("seed prompt load failed")
	ErrGeneration = errors.New("generation failed")

	// ErrInputClosed means operator input ended before the sentinel was read.
	ErrInputClosed = errors.New("operator input closed before exit")
	ErrAlreadyRun  = errors.New("harness already run")
	ErrNotPrimed   = errors.New("session has not been primed")
)

// ModelLoadError reports a model that could not be resolved or loaded.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %q: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error        { return e.Err }
func (e *ModelLoadError) Is(target error) bool { return target == ErrModelLoad }

// PromptLoadError reports an unreadable seed prompt.
type PromptLoadError struct {
	Path string
	Err  error
}

func (e *PromptLoadError) Error() string {
	return fmt.Sprintf("failed to load seed prompt %s: %v", e.Path, e.Err)
}

func (e *PromptLoadError) Unwrap() error        { return e.Err }
func (e *PromptLoadError) Is(target error) bool { return target == ErrPromptLoad }

// GenerationError reports an engine failure. Turn 0 is the priming call.
type GenerationError struct {
	Turn int
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Turn == 0 {
		return fmt.Sprintf("priming generation failed: %v", e.Err)
	}
	return fmt.Sprintf("generation failed on turn %d: %v", e.Turn, e.Err)
}

func (e *GenerationError) Unwrap() error        { return e.Err }
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }
