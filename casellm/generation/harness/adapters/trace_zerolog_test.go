package adapters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZerologTracerSpan(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewZerologTracer(zerolog.New(&buf).Level(zerolog.DebugLevel))

	ctx, finish := tracer.StartSpan(context.Background(), "harness.turn", map[string]any{"turn": 3})
	tracer.Event(ctx, "generated", map[string]any{"chars": 12})
	finish(errors.New("engine failed"))

	out := buf.String()
	assert.Contains(t, out, `"span":"harness.turn"`)
	assert.Contains(t, out, `"turn":3`)
	assert.Contains(t, out, `"event":"span_start"`)
	assert.Contains(t, out, `"event":"generated"`)
	assert.Contains(t, out, `"chars":12`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"error":"engine failed"`)
}

func TestZerologTracerEventWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewZerologTracer(zerolog.New(&buf))

	tracer.Event(context.Background(), "orphan", nil)

	assert.Contains(t, buf.String(), `"event":"orphan"`)
	assert.NotContains(t, buf.String(), `"span"`)
}

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	got, finish := NoopTracer{}.StartSpan(ctx, "x", nil)
	assert.Equal(t, ctx, got)
	finish(nil)
}
