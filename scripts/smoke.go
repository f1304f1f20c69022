//go:build integration

package scripts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SCADASolve/CASE/casellm/config"
	"github.com/SCADASolve/CASE/casellm/db"
	"github.com/SCADASolve/CASE/casellm/generation/harness/adapters"
	ports "github.com/SCADASolve/CASE/casellm/generation/harness/ports"
	"github.com/SCADASolve/CASE/casellm/generation/models"
)

// RunSmokeTranscripts opens a scratch transcript database and round-trips one session.
func RunSmokeTranscripts(ctx context.Context, dir string, logger zerolog.Logger) error {
	path := filepath.Join(dir, "smoke.db")
	defer os.Remove(path)

	conn, err := db.ConnectToDB(ctx, path, logger)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	store := adapters.NewLibSQLTranscriptStore(conn)
	defer store.Close()

	var jsonRes string
	if err := conn.QueryRowContext(ctx, `SELECT json_extract('{"test":"value"}', '$.test')`).Scan(&jsonRes); err != nil {
		return fmt.Errorf("JSON1 query: %w", err)
	}
	if jsonRes != "value" {
		return fmt.Errorf("JSON1 returned unexpected: %v", jsonRes)
	}
	logger.Info().Msg("OK: JSON1")

	id := uuid.NewString()
	if err := store.StartSession(ctx, id, "smoke"); err != nil {
		return err
	}
	if err := store.SaveTurn(ctx, id, ports.Turn{Index: 0, Role: ports.RoleSeed, Input: "ping", Output: "pong", Elapsed: time.Millisecond}); err != nil {
		return err
	}
	turns, err := store.LoadTurns(ctx, id)
	if err != nil {
		return err
	}
	if len(turns) != 1 || turns[0].Output != "pong" {
		return fmt.Errorf("unexpected transcript %+v", turns)
	}
	logger.Info().Msg("OK: transcript round trip")
	return nil
}

// RunSmokeModel loads a real GGUF file and generates one reply. Needs a -tags llama build.
func RunSmokeModel(ctx context.Context, modelPath string, logger zerolog.Logger) (string, error) {
	engine := models.NewGGUFEngine(models.NewResolver("", nil, logger), logger)

	model, err := engine.Load(ctx, config.ModelConfig{
		Name:        modelPath,
		Threads:     4,
		Device:      "cpu",
		ContextSize: 2048,
		MaxTokens:   32,
		Temperature: 0.2,
		TopP:        0.9,
		UseMMAP:     true,
	})
	if err != nil {
		return "", fmt.Errorf("load: %w", err)
	}
	defer model.Close()

	session, err := model.OpenSession(ctx)
	if err != nil {
		return "", err
	}
	defer session.Close()

	start := time.Now()
	out, err := session.Generate(ctx, "Reply with the single word: ready")
	if err != nil {
		return "", err
	}
	logger.Info().Dur("elapsed", time.Since(start)).Str("reply", out).Msg("OK: generation")
	return out, nil
}
