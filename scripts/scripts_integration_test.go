//go:build integration

package scripts

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptsIntegration(t *testing.T) {
	if os.Getenv("RUN_SCRIPTS_TESTS") == "" {
		t.Skip("skipping integration test; set RUN_SCRIPTS_TESTS=1 to run")
	}

	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := context.Background()

	t.Run("SmokeTranscripts", func(t *testing.T) {
		require.NoError(t, RunSmokeTranscripts(ctx, t.TempDir(), logger))
	})

	t.Run("SmokeModel", func(t *testing.T) {
		modelPath := os.Getenv("CASE_SMOKE_MODEL")
		if modelPath == "" {
			t.Skip("set CASE_SMOKE_MODEL to a GGUF file")
		}
		out, err := RunSmokeModel(ctx, modelPath, logger)
		require.NoError(t, err)
		assert.NotEmpty(t, out)
	})
}
