package harnessports

import (
	"context"
	"time"
)

// Turn roles.
const (
	RoleSeed = "seed"
	RoleUser = "user"
)

// Turn is one prompt/response exchange.
type Turn struct {
	Index     int           // 0 for the seed prompt, then 1..n
	Role      string        // RoleSeed or RoleUser
	Input     string        // text sent to the engine
	Output    string        // engine reply
	Elapsed   time.Duration // generation latency
	CreatedAt time.Time
}

// TranscriptStore persists completed turns.
type TranscriptStore interface {
	StartSession(ctx context.Context, sessionID, model string) error
	SaveTurn(ctx context.Context, sessionID string, turn Turn) error
	LoadTurns(ctx context.Context, sessionID string) ([]Turn, error)
	Close() error
}
