package harnessports

import (
	"context"

	"github.com/SCADASolve/CASE/casellm/config"
)

// Engine loads models. Inference itself is hidden behind Model and ChatSession.
type Engine interface {
	Load(ctx context.Context, cfg config.ModelConfig) (Model, error)
}

// Model is a loaded model instance owned by exactly one harness.
type Model interface {
	// OpenSession starts a conversation; the caller must Close it.
	OpenSession(ctx context.Context) (ChatSession, error)
	Close() error
}

// ChatSession keeps conversational memory across Generate calls.
type ChatSession interface {
	// Generate submits prompt as the next user message and blocks until the reply is complete.
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
