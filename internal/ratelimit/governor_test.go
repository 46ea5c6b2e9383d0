package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay_StaysInRange(t *testing.T) {
	g := NewGovernor(Config{DelayMin: 10 * time.Millisecond, DelayMax: 30 * time.Millisecond})

	for i := 0; i < 1000; i++ {
		d := g.Delay()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 30*time.Millisecond)
	}
}

func TestDelay_InvertedRangeCollapsesToMin(t *testing.T) {
	g := NewGovernor(Config{DelayMin: 20 * time.Millisecond, DelayMax: 5 * time.Millisecond})
	assert.Equal(t, 20*time.Millisecond, g.Delay())
}

func TestPause_ZeroRangeReturnsImmediately(t *testing.T) {
	g := NewGovernor(Config{})

	start := time.Now()
	require.NoError(t, g.Pause(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestPause_Sleeps(t *testing.T) {
	g := NewGovernor(Config{DelayMin: 20 * time.Millisecond, DelayMax: 20 * time.Millisecond})

	start := time.Now()
	require.NoError(t, g.Pause(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPause_CancelledContext(t *testing.T) {
	g := NewGovernor(Config{DelayMin: time.Hour, DelayMax: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Pause(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPause_SharedLimiter(t *testing.T) {
	g := NewGovernor(Config{MaxRPS: 20})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Pause(ctx))
	}
	// burst of one, so the second and third calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Pause(context.Background()))
}
