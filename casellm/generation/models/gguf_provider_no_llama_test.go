//go:build !llama || no_llama

package models

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineWithoutLlamaFailsToLoad(t *testing.T) {
	e := NewGGUFEngine(NewResolver(t.TempDir(), nil, zerolog.Nop()), zerolog.Nop())

	_, err := e.Load(context.Background(), testModelConfig(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, errLlamaUnavailable)
}
