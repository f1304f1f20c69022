package adapters

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalDisplayTypewriter(t *testing.T) {
	var out bytes.Buffer
	d := NewTerminalDisplay(&out, false, 5*time.Millisecond)

	var sleeps []time.Duration
	d.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	n, err := d.Write([]byte("héllo"))
	require.NoError(t, err)
	assert.Equal(t, len("héllo"), n)
	assert.Equal(t, "héllo", out.String())
	assert.Len(t, sleeps, 5, "one pause per rune")
}

func TestTerminalDisplayPassThrough(t *testing.T) {
	var out bytes.Buffer
	d := NewTerminalDisplay(&out, false, 0)
	d.sleep = func(time.Duration) { t.Fatal("no delay configured") }

	_, err := d.Write([]byte("response"))
	require.NoError(t, err)
	assert.Equal(t, "response", out.String())
}

func TestTerminalDisplayClear(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, NewTerminalDisplay(&out, false, 0).Clear())
	assert.Empty(t, out.String())

	require.NoError(t, NewTerminalDisplay(&out, true, 0).Clear())
	assert.Equal(t, ansiClear, out.String())
}
