package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTurnIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(TurnsTotal)

	RecordTurn(50 * time.Millisecond)
	RecordTurn(2 * time.Second)

	assert.Equal(t, before+2, testutil.ToFloat64(TurnsTotal))
}

func TestRecordGenerationErrorByPhase(t *testing.T) {
	before := testutil.ToFloat64(GenerationErrors.WithLabelValues("turn"))

	RecordGenerationError("turn")

	assert.Equal(t, before+1, testutil.ToFloat64(GenerationErrors.WithLabelValues("turn")))
}

func TestHistogramsAcceptObservations(t *testing.T) {
	RecordModelLoad(3 * time.Second)
	RecordPriming(1500 * time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(ModelLoadDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(PrimingDuration))
}

func TestServeAndShutdown(t *testing.T) {
	s := Serve("127.0.0.1:0", zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, s.Shutdown(ctx))
}
